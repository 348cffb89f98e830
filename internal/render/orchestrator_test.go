package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"storyreel-server/internal/credits"
	"storyreel-server/internal/domain"
	"storyreel-server/internal/jobs"
	"storyreel-server/internal/providers/image"
	"storyreel-server/internal/providers/video"
)

type stubImageGen struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubImageGen) Generate(ctx context.Context, req image.GenerateRequest) (*image.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &image.Asset{URL: fmt.Sprintf("https://cdn.example.com/img-%d.png", s.calls)}, nil
}

func (s *stubImageGen) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubVideoSubmitter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubVideoSubmitter) Submit(ctx context.Context, req video.SubmitRequest) (*video.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &video.Submission{JobID: fmt.Sprintf("task-%d", s.calls), State: video.StateStarting}, nil
}

func (s *stubVideoSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type upgradeRecorder struct {
	mu      sync.Mutex
	signals []int
}

func (u *upgradeRecorder) signal(scene int, needed int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.signals = append(u.signals, scene)
}

func (u *upgradeRecorder) scenes() []int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]int(nil), u.signals...)
}

func testBoard(sceneCount int) *Board {
	scenes := make([]domain.Scene, sceneCount)
	for i := range scenes {
		scenes[i] = domain.Scene{Index: i, Prompt: fmt.Sprintf("scene %d prompt", i)}
	}
	return NewBoard(domain.Storyboard{
		ID:             "board-1",
		Title:          "Test Board",
		Style:          "watercolor",
		AspectRatio:    "16:9",
		IdentityAnchor: "a red fox with a torn left ear",
		Scenes:         scenes,
	})
}

type fixture struct {
	board    *Board
	balance  *credits.Store
	registry *jobs.Registry
	images   *stubImageGen
	videos   *stubVideoSubmitter
	upgrades *upgradeRecorder
	orch     *Orchestrator
}

func newFixture(t *testing.T, scenes, balance int, mutate func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		board:    testBoard(scenes),
		balance:  credits.NewStore(balance, false, nil, zerolog.New(io.Discard)),
		registry: jobs.NewRegistry(),
		images:   &stubImageGen{},
		videos:   &stubVideoSubmitter{},
		upgrades: &upgradeRecorder{},
	}
	cfg := Config{
		Board:     f.board,
		Balance:   f.balance,
		Registry:  f.registry,
		Images:    f.images,
		Videos:    f.videos,
		OnUpgrade: f.upgrades.signal,
		Logger:    zerolog.New(io.Discard),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.orch = NewOrchestrator(cfg)
	return f
}

func TestRenderAllImagesPartialProgress(t *testing.T) {
	// 3 scenes, images cost 6 each, balance 10: scene 1 renders (balance 4),
	// scenes 2 and 3 are unaffordable but still attempted, and the batch
	// finishes with 1 of 3 images rather than zero.
	f := newFixture(t, 3, 10, nil)

	res := f.orch.RenderAllImages(context.Background())

	if res.Rendered != 1 {
		t.Fatalf("rendered = %d, want 1", res.Rendered)
	}
	if res.Halted {
		t.Fatal("batch should not halt under the continue policy")
	}
	if got := f.upgrades.scenes(); len(got) != 2 {
		t.Fatalf("upgrade signals = %v, want two (scenes 1 and 2)", got)
	}
	if f.balance.Balance() != 4 {
		t.Fatalf("balance = %d, want 4", f.balance.Balance())
	}
	scene0, _ := f.board.Scene(0)
	if !scene0.HasImage() {
		t.Fatal("scene 0 should have an image")
	}
	scene1, _ := f.board.Scene(1)
	if scene1.Message != MessageNeedCredits {
		t.Fatalf("scene 1 message = %q, want the upgrade prompt", scene1.Message)
	}
}

func TestRenderAllImagesHardStopPolicy(t *testing.T) {
	f := newFixture(t, 3, 10, func(cfg *Config) { cfg.StopOnNoFunds = true })

	res := f.orch.RenderAllImages(context.Background())

	if !res.Halted {
		t.Fatal("batch should halt when the policy requires a hard stop")
	}
	if res.Rendered != 1 || len(res.Unaffordable) != 1 {
		t.Fatalf("result = %+v, want 1 rendered and 1 unaffordable before halting", res)
	}
	if f.images.callCount() != 1 {
		t.Fatalf("image calls = %d, want 1", f.images.callCount())
	}
}

func TestRenderAllImagesSkipsResolvedScenes(t *testing.T) {
	f := newFixture(t, 3, 100, nil)
	f.board.SetImage(1, "https://cdn.example.com/existing.png")

	res := f.orch.RenderAllImages(context.Background())

	if res.Rendered != 2 || res.Skipped != 1 {
		t.Fatalf("result = %+v, want 2 rendered and 1 skipped", res)
	}
	scene1, _ := f.board.Scene(1)
	if scene1.ImageURL != "https://cdn.example.com/existing.png" {
		t.Fatal("existing artifact must not be regenerated")
	}
}

func TestRenderAllImagesFailureDoesNotHaltSiblings(t *testing.T) {
	f := newFixture(t, 3, 100, nil)
	f.images.err = errors.New("model rejected prompt: content policy")

	res := f.orch.RenderAllImages(context.Background())

	if res.Failed != 3 {
		t.Fatalf("failed = %d, want all 3 attempted", res.Failed)
	}
	scene0, _ := f.board.Scene(0)
	if scene0.Message != MessageContentPolicy {
		t.Fatalf("scene 0 message = %q, want the content policy category", scene0.Message)
	}
	if scene0.Message == f.images.err.Error() {
		t.Fatal("raw provider error must never be shown verbatim")
	}
}

func TestDuplicateSubmissionGuard(t *testing.T) {
	f := newFixture(t, 6, 1000, nil)
	f.board.SetImage(5, "https://cdn.example.com/img5.png")
	if err := f.registry.Register(5, "task-outstanding"); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := f.orch.RenderSingleVideo(context.Background(), 5)
	if !errors.Is(err, domain.ErrDuplicateJob) {
		t.Fatalf("error = %v, want ErrDuplicateJob", err)
	}
	if f.videos.callCount() != 0 {
		t.Fatal("no external request may be submitted for a scene mid-flight")
	}
	if f.balance.Balance() != 1000 {
		t.Fatal("duplicate submission must not deduct credits")
	}
	job, _ := f.registry.Lookup(5)
	if job.ExternalID != "task-outstanding" {
		t.Fatal("the original job registration must be preserved")
	}
}

func TestRenderSingleVideoSynthesizesMissingImage(t *testing.T) {
	// Image (6) + wan_2_5 video (38) = 44.
	f := newFixture(t, 1, 44, nil)

	if err := f.orch.RenderSingleVideo(context.Background(), 0); err != nil {
		t.Fatalf("RenderSingleVideo: %v", err)
	}
	if f.images.callCount() != 1 {
		t.Fatal("missing image should be synthesized first")
	}
	if f.videos.callCount() != 1 {
		t.Fatal("video should be submitted after image synthesis")
	}
	if f.balance.Balance() != 0 {
		t.Fatalf("balance = %d, want 0 (charged for both steps)", f.balance.Balance())
	}
	if _, outstanding := f.registry.Lookup(0); !outstanding {
		t.Fatal("submitted job should be registered")
	}
	scene, _ := f.board.Scene(0)
	if scene.Status != domain.SceneStatusRendering {
		t.Fatalf("scene status = %q, want rendering", scene.Status)
	}
}

func TestRenderSingleVideoUnaffordableAfterImage(t *testing.T) {
	f := newFixture(t, 1, 10, nil)

	err := f.orch.RenderSingleVideo(context.Background(), 0)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}
	// The image was affordable and stays; its deduction is not reversed.
	if f.balance.Balance() != 4 {
		t.Fatalf("balance = %d, want 4", f.balance.Balance())
	}
	if got := f.upgrades.scenes(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("upgrade signals = %v, want scene 0", got)
	}
	if f.videos.callCount() != 0 {
		t.Fatal("unaffordable video must not be submitted")
	}
}

func TestRenderSingleVideoPriorityMultiplier(t *testing.T) {
	// High priority wan_2_5: ceil(38 x 1.5) = 57. Plus image 6 = 63.
	f := newFixture(t, 1, 63, func(cfg *Config) { cfg.Multiplier = domain.PriorityHigh })

	if err := f.orch.RenderSingleVideo(context.Background(), 0); err != nil {
		t.Fatalf("RenderSingleVideo: %v", err)
	}
	if f.balance.Balance() != 0 {
		t.Fatalf("balance = %d, want 0", f.balance.Balance())
	}
}

func TestRenderAllVideosSkipsSettledAndOutstanding(t *testing.T) {
	f := newFixture(t, 3, 1000, nil)
	for i := 0; i < 3; i++ {
		f.board.SetImage(i, fmt.Sprintf("https://cdn.example.com/img%d.png", i))
	}
	f.board.SetVideo(0, "https://cdn.example.com/v0.mp4")
	if err := f.registry.Register(1, "task-running"); err != nil {
		t.Fatalf("register: %v", err)
	}

	res := f.orch.RenderAllVideos(context.Background())

	if res.Rendered != 1 || res.Skipped != 2 {
		t.Fatalf("result = %+v, want 1 rendered and 2 skipped", res)
	}
	if f.videos.callCount() != 1 {
		t.Fatalf("submissions = %d, want 1", f.videos.callCount())
	}
}

func TestRenderAllVideosSubmissionFailureIsolated(t *testing.T) {
	f := newFixture(t, 2, 1000, nil)
	for i := 0; i < 2; i++ {
		f.board.SetImage(i, fmt.Sprintf("https://cdn.example.com/img%d.png", i))
	}
	f.videos.err = errors.New("503 queue at capacity")

	res := f.orch.RenderAllVideos(context.Background())

	if res.Failed != 2 {
		t.Fatalf("failed = %d, want both scenes attempted", res.Failed)
	}
	scene0, _ := f.board.Scene(0)
	if scene0.Message != MessageQueueBusy {
		t.Fatalf("scene 0 message = %q, want the queue busy category", scene0.Message)
	}
}

// gatedVideoSubmitter parks the first caller inside Submit so overlapping
// render requests genuinely race the duplicate-submission guard.
type gatedVideoSubmitter struct {
	stubVideoSubmitter
	entered chan struct{}
	release chan struct{}
}

func (g *gatedVideoSubmitter) Submit(ctx context.Context, req video.SubmitRequest) (*video.Submission, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.stubVideoSubmitter.Submit(ctx, req)
}

func TestConcurrentSingleVideoSubmitsOnce(t *testing.T) {
	f := newFixture(t, 1, 1000, nil)
	f.board.SetImage(0, "https://cdn.example.com/img0.png")
	gated := &gatedVideoSubmitter{entered: make(chan struct{}, 2), release: make(chan struct{})}
	orch := NewOrchestrator(Config{
		Board:    f.board,
		Balance:  f.balance,
		Registry: f.registry,
		Images:   f.images,
		Videos:   gated,
		Logger:   zerolog.New(io.Discard),
	})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- orch.RenderSingleVideo(context.Background(), 0) }()
	}
	<-gated.entered
	close(gated.release)

	var submitted, duplicates int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			submitted++
		case errors.Is(err, domain.ErrDuplicateJob):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if submitted != 1 || duplicates != 1 {
		t.Fatalf("submitted = %d, duplicates = %d, want exactly one of each", submitted, duplicates)
	}
	if got := gated.callCount(); got != 1 {
		t.Fatalf("external submissions = %d, want 1", got)
	}
	if f.balance.Balance() != 962 {
		t.Fatalf("balance = %d, want the scene charged once (962)", f.balance.Balance())
	}
	if f.registry.Len() != 1 {
		t.Fatalf("outstanding jobs = %d, want 1", f.registry.Len())
	}
}

func TestConcurrentImagePassesChargeOnce(t *testing.T) {
	f := newFixture(t, 2, 1000, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.orch.RenderAllImages(context.Background())
		}()
	}
	wg.Wait()

	if got := f.images.callCount(); got != 2 {
		t.Fatalf("image generations = %d, want one per scene", got)
	}
	if f.balance.Balance() != 988 {
		t.Fatalf("balance = %d, want each scene charged exactly once", f.balance.Balance())
	}
}

func TestPipelineThroughPoller(t *testing.T) {
	f := newFixture(t, 1, 44, nil)
	provider := video.NewSyntheticProvider()
	provider.PollsUntil = 1
	f.orch = NewOrchestrator(Config{
		Board:     f.board,
		Balance:   f.balance,
		Registry:  f.registry,
		Images:    f.images,
		Videos:    provider,
		OnUpgrade: f.upgrades.signal,
		Logger:    zerolog.New(io.Discard),
	})

	if err := f.orch.RenderSingleVideo(context.Background(), 0); err != nil {
		t.Fatalf("RenderSingleVideo: %v", err)
	}

	poller := jobs.NewPoller(f.registry, provider, time.Second, 10*time.Minute, f.board.ApplyJob, zerolog.New(io.Discard))
	poller.Sweep(context.Background())

	scene, _ := f.board.Scene(0)
	if !scene.HasVideo() {
		t.Fatalf("scene = %+v, want a resolved video artifact", scene)
	}
	if scene.Status != domain.SceneStatusComplete {
		t.Fatalf("scene status = %q, want complete", scene.Status)
	}
	if f.registry.Len() != 0 {
		t.Fatal("resolved job should leave the outstanding set")
	}
}
