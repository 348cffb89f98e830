package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storyreel-server/internal/domain"
	"storyreel-server/internal/providers/video"
	"storyreel-server/internal/telemetry"
)

const (
	DefaultPollInterval = 4 * time.Second
	DefaultJobTimeout   = 10 * time.Minute
)

// ResolveFunc receives each job as it reaches a terminal state.
type ResolveFunc func(job domain.Job)

// Poller sweeps the outstanding set on a fixed interval, querying every
// job's remote status independently. One job's failure never blocks the
// rest of the sweep. Jobs past the hard wall-clock ceiling are force
// resolved to timed_out regardless of what the remote would report.
type Poller struct {
	registry  *Registry
	status    video.StatusClient
	interval  time.Duration
	ceiling   time.Duration
	onResolve ResolveFunc
	logger    zerolog.Logger
	now       func() time.Time
}

func NewPoller(registry *Registry, status video.StatusClient, interval, ceiling time.Duration, onResolve ResolveFunc, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if ceiling <= 0 {
		ceiling = DefaultJobTimeout
	}
	return &Poller{
		registry:  registry,
		status:    status,
		interval:  interval,
		ceiling:   ceiling,
		onResolve: onResolve,
		logger:    logger,
		now:       time.Now,
	}
}

// Run drives recurring sweeps until ctx is canceled. Sweeps over an empty
// outstanding set are no-ops.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.registry.Len() == 0 {
				continue
			}
			p.Sweep(ctx)
		}
	}
}

// Sweep queries every outstanding job once, in parallel.
func (p *Poller) Sweep(ctx context.Context) {
	outstanding := p.registry.Outstanding()
	if len(outstanding) == 0 {
		return
	}
	telemetry.PollSweeps.Inc()

	var wg sync.WaitGroup
	for _, job := range outstanding {
		wg.Add(1)
		go func(job domain.Job) {
			defer wg.Done()
			p.poll(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (p *Poller) poll(ctx context.Context, job domain.Job) {
	elapsed := job.Elapsed(p.now())
	if elapsed > p.ceiling {
		p.resolve(job.Scene, domain.JobStateTimedOut, "", "generation timed out")
		return
	}

	st, err := p.status.Status(ctx, job.ExternalID)
	if err != nil {
		// Transient polling failure: retried on the next sweep tick.
		p.logger.Warn().Err(err).Int("scene", job.Scene).Str("job_id", job.ExternalID).Msg("poller: status query failed")
		return
	}

	switch st.State {
	case video.StateSucceeded:
		if st.OutputURL == "" {
			// A success report without an output is an error, never a success.
			p.resolve(job.Scene, domain.JobStateFailed, "", "provider returned no output")
			return
		}
		p.resolve(job.Scene, domain.JobStateSucceeded, st.OutputURL, "")
	case video.StateFailed:
		p.resolve(job.Scene, domain.JobStateFailed, "", st.Error)
	case video.StateCanceled:
		p.resolve(job.Scene, domain.JobStateCanceled, "", st.Error)
	default:
		p.registry.Touch(job.Scene, domain.JobStateProcessing)
		p.logger.Debug().Int("scene", job.Scene).Str("job_id", job.ExternalID).
			Dur("elapsed", elapsed).Str("remote_state", st.State).Msg("poller: still processing")
	}
}

func (p *Poller) resolve(scene int, state domain.JobState, outputURL, message string) {
	job, ok := p.registry.Resolve(scene, state, outputURL, message)
	if !ok {
		return
	}
	switch state {
	case domain.JobStateSucceeded:
		telemetry.JobsSucceeded.Inc()
	case domain.JobStateTimedOut:
		telemetry.JobsTimedOut.Inc()
	default:
		telemetry.JobsFailed.Inc()
	}
	p.logger.Info().Int("scene", scene).Str("state", string(state)).Msg("poller: job resolved")
	if p.onResolve != nil {
		p.onResolve(job)
	}
}
