package jobs

import (
	"errors"
	"testing"

	"storyreel-server/internal/domain"
)

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(5, "job-a"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.Register(5, "job-b"); !errors.Is(err, domain.ErrDuplicateJob) {
		t.Fatalf("second register error = %v, want ErrDuplicateJob", err)
	}
	outstanding := r.Outstanding()
	if len(outstanding) != 1 {
		t.Fatalf("outstanding = %d entries, want 1", len(outstanding))
	}
	if outstanding[0].ExternalID != "job-a" {
		t.Fatalf("outstanding job = %q, want the first registration", outstanding[0].ExternalID)
	}
}

func TestResolveRemovesFromOutstanding(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(1, "job-a"); err != nil {
		t.Fatalf("register: %v", err)
	}
	job, ok := r.Resolve(1, domain.JobStateSucceeded, "https://cdn.example.com/v.mp4", "")
	if !ok {
		t.Fatal("resolve should report success")
	}
	if job.State != domain.JobStateSucceeded || job.OutputURL != "https://cdn.example.com/v.mp4" {
		t.Fatalf("resolved job = %+v", job)
	}
	if r.Len() != 0 {
		t.Fatalf("outstanding after resolve = %d, want 0", r.Len())
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(2, "job-a"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := r.Resolve(2, domain.JobStateFailed, "", "boom"); !ok {
		t.Fatal("first resolve should succeed")
	}
	// Same scene, different terminal state: must be a no-op.
	if _, ok := r.Resolve(2, domain.JobStateSucceeded, "https://late.example.com/v.mp4", ""); ok {
		t.Fatal("second resolve should be a no-op")
	}
	// Never-registered scene: also a no-op.
	if _, ok := r.Resolve(99, domain.JobStateFailed, "", ""); ok {
		t.Fatal("resolving an unregistered scene should be a no-op")
	}
}

func TestResolveIgnoresNonTerminalStates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(3, "job-a"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := r.Resolve(3, domain.JobStateProcessing, "", ""); ok {
		t.Fatal("resolve must refuse non-terminal states")
	}
	if r.Len() != 1 {
		t.Fatal("job should remain outstanding")
	}
}

func TestSceneCanBeReregisteredAfterResolution(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(4, "job-a"); err != nil {
		t.Fatalf("register: %v", err)
	}
	r.Resolve(4, domain.JobStateTimedOut, "", "generation timed out")
	if err := r.Register(4, "job-b"); err != nil {
		t.Fatalf("re-register after terminal state failed: %v", err)
	}
}

func TestOutstandingIsOrderedSnapshot(t *testing.T) {
	r := NewRegistry()
	for _, scene := range []int{7, 2, 5} {
		if err := r.Register(scene, "job"); err != nil {
			t.Fatalf("register scene %d: %v", scene, err)
		}
	}
	out := r.Outstanding()
	if len(out) != 3 || out[0].Scene != 2 || out[1].Scene != 5 || out[2].Scene != 7 {
		t.Fatalf("outstanding = %+v, want scenes ordered 2,5,7", out)
	}
	// Mutating the snapshot must not affect the registry.
	out[0].State = domain.JobStateSucceeded
	if job, _ := r.Lookup(2); job.State == domain.JobStateSucceeded {
		t.Fatal("snapshot mutation leaked into the registry")
	}
}
