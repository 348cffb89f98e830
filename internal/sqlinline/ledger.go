package sqlinline

const QInsertSpendEvent = `--sql 0c5e9f82-4a1d-4b37-96c0-3e8a7d2b1f46
insert into spend_events(id, user_id, amount, model, base_cost, multiplier, scene_index, region, created_at)
values ($1::uuid, $2::uuid, $3::int, $4::text, $5::int, $6::numeric, $7::int, nullif($8::text, ''), now());
`

const QSpendSummary = `--sql 5d8b2a60-7f4e-4c19-b3a8-e6d05c9f7231
select
    coalesce(sum(amount), 0) as spent_total,
    coalesce(sum(amount) filter (where created_at > now() - interval '24 hours'), 0) as spent_24h,
    count(*) filter (where created_at > now() - interval '24 hours') as events_24h
from spend_events
where user_id = $1::uuid;
`
