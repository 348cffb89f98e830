package jobs

import (
	"sort"
	"sync"
	"time"

	"storyreel-server/internal/domain"
	"storyreel-server/internal/telemetry"
)

// Registry tracks the outstanding generation job for each scene. A scene
// holds at most one outstanding job; terminal resolution removes it from
// the set. All mutation goes through Register/Resolve, never through the
// map directly.
type Registry struct {
	mu   sync.Mutex
	jobs map[int]*domain.Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[int]*domain.Job)}
}

// Register records a new outstanding job for the scene. Registering a scene
// that already has an outstanding job fails with ErrDuplicateJob.
func (r *Registry) Register(scene int, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[scene]; exists {
		return domain.ErrDuplicateJob
	}
	r.jobs[scene] = &domain.Job{
		ExternalID: externalID,
		Scene:      scene,
		StartedAt:  time.Now(),
		State:      domain.JobStateStarting,
	}
	telemetry.OutstandingSet.Set(float64(len(r.jobs)))
	return nil
}

// Resolve moves a scene's job to a terminal state and removes it from the
// outstanding set. Resolving an already-resolved or never-registered scene
// is a no-op, so double notifications produce no double side effects.
func (r *Registry) Resolve(scene int, state domain.JobState, outputURL, message string) (domain.Job, bool) {
	if !state.Terminal() {
		return domain.Job{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, exists := r.jobs[scene]
	if !exists {
		return domain.Job{}, false
	}
	job.State = state
	job.OutputURL = outputURL
	job.Message = message
	delete(r.jobs, scene)
	telemetry.OutstandingSet.Set(float64(len(r.jobs)))
	return *job, true
}

// Touch records an observed non-terminal state without resolving the job.
func (r *Registry) Touch(scene int, state domain.JobState) {
	if state.Terminal() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, exists := r.jobs[scene]; exists {
		job.State = state
	}
}

// Outstanding returns a snapshot of all unresolved jobs ordered by scene.
func (r *Registry) Outstanding() []domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scene < out[j].Scene })
	return out
}

// Lookup returns the outstanding job for a scene, if any.
func (r *Registry) Lookup(scene int) (domain.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, exists := r.jobs[scene]
	if !exists {
		return domain.Job{}, false
	}
	return *job, true
}

// Len reports the size of the outstanding set.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
