package render

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storyreel-server/internal/credits"
	"storyreel-server/internal/domain"
	"storyreel-server/internal/jobs"
	"storyreel-server/internal/providers/image"
	"storyreel-server/internal/providers/video"
)

// UpgradeSignal is raised toward the presentation layer when a paid step is
// unaffordable. The core only raises the signal; it renders nothing.
type UpgradeSignal func(scene int, needed int)

// Config wires an Orchestrator. Balance, Registry, Images and Videos are
// required; everything else has defaults.
type Config struct {
	Board     *Board
	Balance   *credits.Store
	Registry  *jobs.Registry
	Images    image.Generator
	Videos    video.Submitter
	OnUpgrade UpgradeSignal
	Logger    zerolog.Logger

	ImageModel string
	VideoModel string
	// Priority multiplier applied to video base costs, ceil-rounded.
	Multiplier float64
	// When true an unaffordable scene halts the rest of the batch instead
	// of skipping to the next scene. Default is to continue, maximizing
	// partial completion.
	StopOnNoFunds bool
	// Region annotates spend records for ledger auditing.
	Region string

	DurationSeconds int
	FPS             int
	Resolution      string
	Quality         string
	Mode            string
}

// BatchResult summarizes one pass over the storyboard.
type BatchResult struct {
	Rendered     int
	Skipped      int
	Failed       int
	Unaffordable []int
	Halted       bool
}

// Orchestrator drives each scene through image generation then video
// generation, consulting the balance store before every paid step and the
// job registry before every submission. Affordability is re-checked
// immediately before each spend; there is deliberately no up-front
// "can afford the whole batch" pass, because concurrent spends may change
// the balance between scenes.
type Orchestrator struct {
	cfg    Config
	logger zerolog.Logger

	// mu serializes render passes. The duplicate-submission and has-image
	// checks are check-then-act against the registry and the board; two
	// overlapping requests for the same scene must not both pass them, or
	// the scene is charged and submitted twice.
	mu sync.Mutex
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.ImageModel == "" {
		cfg.ImageModel = domain.DefaultImageModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = domain.DefaultVideoModel
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = domain.PriorityStandard
	}
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = 5
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 24
	}
	if cfg.Resolution == "" {
		cfg.Resolution = "1080P"
	}
	return &Orchestrator{cfg: cfg, logger: cfg.Logger}
}

// Board exposes the storyboard state the orchestrator mutates.
func (o *Orchestrator) Board() *Board {
	return o.cfg.Board
}

// RenderAllImages iterates scenes in order and synthesizes an image for each
// scene that lacks one. Unaffordable scenes raise the upgrade signal and,
// under the default policy, the batch moves on to the next scene.
func (o *Orchestrator) RenderAllImages(ctx context.Context) BatchResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	var res BatchResult
	for i := 0; i < o.cfg.Board.Len(); i++ {
		if err := ctx.Err(); err != nil {
			res.Halted = true
			return res
		}
		scene, _ := o.cfg.Board.Scene(i)
		if scene.HasImage() {
			res.Skipped++
			continue
		}
		_, err := o.ensureImage(ctx, i)
		switch {
		case err == nil:
			res.Rendered++
		case errors.Is(err, domain.ErrInsufficientBalance):
			res.Unaffordable = append(res.Unaffordable, i)
			if o.cfg.StopOnNoFunds {
				res.Halted = true
				return res
			}
		default:
			res.Failed++
		}
	}
	return res
}

// RenderAllVideos iterates scenes in order and submits video generation for
// each scene that has neither a finished video nor an outstanding job. A
// missing image artifact is synthesized first at its own cost.
func (o *Orchestrator) RenderAllVideos(ctx context.Context) BatchResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	var res BatchResult
	for i := 0; i < o.cfg.Board.Len(); i++ {
		if err := ctx.Err(); err != nil {
			res.Halted = true
			return res
		}
		err := o.submitVideo(ctx, i)
		switch {
		case err == nil:
			res.Rendered++
		case errors.Is(err, errSceneSettled), errors.Is(err, domain.ErrDuplicateJob):
			res.Skipped++
		case errors.Is(err, domain.ErrInsufficientBalance):
			res.Unaffordable = append(res.Unaffordable, i)
			if o.cfg.StopOnNoFunds {
				res.Halted = true
				return res
			}
		default:
			res.Failed++
		}
	}
	return res
}

// RenderSingleVideo runs the cost/afford/submit/register sequence for one
// scene, guarded by the same duplicate-submission check as the batch path.
func (o *Orchestrator) RenderSingleVideo(ctx context.Context, scene int) error {
	if scene < 0 || scene >= o.cfg.Board.Len() {
		return domain.ErrNotFound
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	err := o.submitVideo(ctx, scene)
	if errors.Is(err, errSceneSettled) {
		return nil
	}
	return err
}

// errSceneSettled marks scenes that need no work: video already produced.
var errSceneSettled = errors.New("scene already settled")

func (o *Orchestrator) submitVideo(ctx context.Context, i int) error {
	scene, ok := o.cfg.Board.Scene(i)
	if !ok {
		return domain.ErrNotFound
	}
	if scene.HasVideo() {
		return errSceneSettled
	}
	// No duplicate submission for a scene mid-flight.
	if _, outstanding := o.cfg.Registry.Lookup(i); outstanding {
		return domain.ErrDuplicateJob
	}

	imageURL := scene.ImageURL
	if imageURL == "" {
		url, err := o.ensureImage(ctx, i)
		if err != nil {
			return err
		}
		imageURL = url
	}

	cost, err := domain.VideoCost(o.cfg.VideoModel, o.cfg.Multiplier)
	if err != nil {
		return err
	}
	rec := &domain.SpendRecord{
		Amount:     cost,
		Model:      o.cfg.VideoModel,
		BaseCost:   domain.VideoBaseCost(o.cfg.VideoModel),
		Multiplier: o.cfg.Multiplier,
		Scene:      i,
		Region:     o.cfg.Region,
	}
	if !o.cfg.Balance.CheckAndDeduct(cost, rec) {
		o.raiseUpgrade(i, cost)
		return domain.ErrInsufficientBalance
	}

	sb := o.cfg.Board.Snapshot()
	submission, err := o.cfg.Videos.Submit(ctx, video.SubmitRequest{
		Prompt:          scene.Prompt,
		SourceImageURL:  imageURL,
		Model:           o.cfg.VideoModel,
		Style:           sb.Style,
		Mode:            o.cfg.Mode,
		Quality:         o.cfg.Quality,
		DurationSeconds: o.cfg.DurationSeconds,
		FPS:             o.cfg.FPS,
		Resolution:      o.cfg.Resolution,
		IdentityAnchor:  sb.IdentityAnchor,
		RequestID:       uuid.NewString(),
	})
	if err != nil {
		o.logger.Error().Err(err).Int("scene", i).Msg("render: video submission failed")
		o.cfg.Board.MarkFailed(i, FriendlyMessage(err.Error()))
		return err
	}

	if err := o.cfg.Registry.Register(i, submission.JobID); err != nil {
		// Lost a race against another submission path for the same scene.
		o.logger.Warn().Int("scene", i).Str("job_id", submission.JobID).Msg("render: job already registered")
		return err
	}
	o.cfg.Board.MarkRendering(i)
	o.logger.Info().Int("scene", i).Str("job_id", submission.JobID).Int("cost", cost).Msg("render: video job submitted")
	return nil
}

// ensureImage charges for and produces the scene's image artifact. The
// deduction happens synchronously before the provider call; a failed call
// marks the scene failed without halting siblings and without reversing
// the deduction (the ledger treats it as consumed work).
func (o *Orchestrator) ensureImage(ctx context.Context, i int) (string, error) {
	scene, ok := o.cfg.Board.Scene(i)
	if !ok {
		return "", domain.ErrNotFound
	}
	if scene.HasImage() {
		return scene.ImageURL, nil
	}

	cost, err := domain.ImageCost(o.cfg.ImageModel)
	if err != nil {
		return "", err
	}
	rec := &domain.SpendRecord{
		Amount:     cost,
		Model:      o.cfg.ImageModel,
		BaseCost:   cost,
		Multiplier: 1.0,
		Scene:      i,
		Region:     o.cfg.Region,
	}
	if !o.cfg.Balance.CheckAndDeduct(cost, rec) {
		o.raiseUpgrade(i, cost)
		return "", domain.ErrInsufficientBalance
	}

	sb := o.cfg.Board.Snapshot()
	asset, err := o.cfg.Images.Generate(ctx, image.GenerateRequest{
		Prompt:         scene.Prompt,
		Model:          o.cfg.ImageModel,
		Style:          sb.Style,
		AspectRatio:    sb.AspectRatio,
		IdentityAnchor: sb.IdentityAnchor,
		RequestID:      uuid.NewString(),
		Locale:         "",
	})
	if err != nil {
		o.logger.Error().Err(err).Int("scene", i).Msg("render: image generation failed")
		o.cfg.Board.MarkFailed(i, FriendlyMessage(err.Error()))
		return "", err
	}
	o.cfg.Board.SetImage(i, asset.URL)
	o.logger.Info().Int("scene", i).Int("cost", cost).Msg("render: image generated")
	return asset.URL, nil
}

func (o *Orchestrator) raiseUpgrade(scene, needed int) {
	o.logger.Info().Int("scene", scene).Int("needed", needed).Msg("render: insufficient balance, upgrade required")
	o.cfg.Board.MarkFailed(scene, MessageNeedCredits)
	if o.cfg.OnUpgrade != nil {
		o.cfg.OnUpgrade(scene, needed)
	}
}
