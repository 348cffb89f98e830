package video

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SyntheticProvider simulates the async provider lifecycle in memory:
// submissions are accepted immediately and report processing for a fixed
// number of status queries before succeeding with a deterministic URL.
type SyntheticProvider struct {
	mu         sync.Mutex
	polls      map[string]int
	prompts    map[string]string
	PollsUntil int
	BaseURL    string
}

func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{
		polls:      make(map[string]int),
		prompts:    make(map[string]string),
		PollsUntil: 2,
		BaseURL:    "https://synthetic.storyreel.local/videos",
	}
}

func (p *SyntheticProvider) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	p.mu.Lock()
	p.polls[id] = 0
	p.prompts[id] = req.Prompt + "|" + req.SourceImageURL
	p.mu.Unlock()
	return &Submission{JobID: id, State: StateStarting}, nil
}

func (p *SyntheticProvider) Status(ctx context.Context, jobID string) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	seen, ok := p.polls[jobID]
	if !ok {
		return &Status{State: StateFailed, Error: "unknown task"}, nil
	}
	p.polls[jobID] = seen + 1
	if seen+1 < p.PollsUntil {
		return &Status{State: StateProcessing}, nil
	}
	sum := sha256.Sum256([]byte(p.prompts[jobID]))
	return &Status{
		State:     StateSucceeded,
		OutputURL: fmt.Sprintf("%s/%s.mp4", p.BaseURL, hex.EncodeToString(sum[:8])),
	}, nil
}

var (
	_ Submitter    = (*SyntheticProvider)(nil)
	_ StatusClient = (*SyntheticProvider)(nil)
)
