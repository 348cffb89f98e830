package credits

import (
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"storyreel-server/internal/domain"
)

type recordingSyncer struct {
	mu      sync.Mutex
	deltas  []int
	records []*domain.SpendRecord
	done    sync.WaitGroup
}

func (r *recordingSyncer) Apply(delta int, balance int, rec *domain.SpendRecord) {
	r.mu.Lock()
	r.deltas = append(r.deltas, delta)
	r.records = append(r.records, rec)
	r.mu.Unlock()
	r.done.Done()
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestCheckAndDeductBackToBack(t *testing.T) {
	// One wan_2_5-tier video costs 38 credits. Two deductions issued with no
	// yield between them must not both succeed on a 38-credit balance.
	store := NewStore(38, false, nil, testLogger())

	if !store.CheckAndDeduct(38, nil) {
		t.Fatal("first deduction should succeed")
	}
	if store.Balance() != 0 {
		t.Fatalf("balance after first deduction = %d, want 0", store.Balance())
	}
	if store.CheckAndDeduct(38, nil) {
		t.Fatal("second deduction should fail")
	}
	if store.Balance() != 0 {
		t.Fatalf("balance after rejected deduction = %d, want 0", store.Balance())
	}
}

func TestCheckAndDeductNeverOverspends(t *testing.T) {
	const start = 100
	store := NewStore(start, false, nil, testLogger())

	var wg sync.WaitGroup
	var mu sync.Mutex
	spent := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.CheckAndDeduct(7, nil) {
				mu.Lock()
				spent += 7
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if spent > start {
		t.Fatalf("sum of successful deductions %d exceeds starting balance %d", spent, start)
	}
	if got := store.Balance(); got != start-spent {
		t.Fatalf("balance = %d, want %d", got, start-spent)
	}
}

func TestUnlimitedBypassesMetering(t *testing.T) {
	syncer := &recordingSyncer{}
	store := NewStore(0, true, syncer, testLogger())

	for i := 0; i < 5; i++ {
		if !store.CheckAndDeduct(1000, nil) {
			t.Fatal("unlimited account should always succeed")
		}
	}
	if store.Balance() != 0 {
		t.Fatalf("unlimited deductions mutated balance: %d", store.Balance())
	}
	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.deltas) != 0 {
		t.Fatalf("unlimited deductions should record nothing, got %d syncs", len(syncer.deltas))
	}
}

func TestDeductTriggersSync(t *testing.T) {
	syncer := &recordingSyncer{}
	syncer.done.Add(1)
	store := NewStore(50, false, syncer, testLogger())

	rec := &domain.SpendRecord{Amount: 38, Model: "wan_2_5", BaseCost: 38, Multiplier: 1.0}
	if !store.CheckAndDeduct(38, rec) {
		t.Fatal("deduction should succeed")
	}
	syncer.done.Wait()

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.deltas) != 1 || syncer.deltas[0] != -38 {
		t.Fatalf("sync deltas = %v, want [-38]", syncer.deltas)
	}
	if syncer.records[0] != rec {
		t.Fatal("spend record should be forwarded to the syncer")
	}
}

func TestCreditIncreasesBalanceAndSyncs(t *testing.T) {
	syncer := &recordingSyncer{}
	syncer.done.Add(1)
	store := NewStore(4, false, syncer, testLogger())

	store.Credit(100)
	if got := store.Balance(); got != 104 {
		t.Fatalf("balance = %d, want 104", got)
	}
	syncer.done.Wait()

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.deltas) != 1 || syncer.deltas[0] != 100 {
		t.Fatalf("sync deltas = %v, want [100]", syncer.deltas)
	}
}

func TestSetBalanceAndSetUnlimited(t *testing.T) {
	store := NewStore(10, false, nil, testLogger())
	store.SetBalance(3)
	if store.CheckAndDeduct(4, nil) {
		t.Fatal("deduction above overridden balance should fail")
	}
	store.SetUnlimited()
	if !store.CheckAndDeduct(4, nil) {
		t.Fatal("deduction should succeed after SetUnlimited")
	}
}

func TestNegativeAmountRejected(t *testing.T) {
	store := NewStore(10, false, nil, testLogger())
	if store.CheckAndDeduct(-5, nil) {
		t.Fatal("negative deduction must be rejected")
	}
	if store.Balance() != 10 {
		t.Fatalf("balance mutated by rejected deduction: %d", store.Balance())
	}
}
