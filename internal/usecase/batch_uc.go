// File: internal/usecase/batch_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
	"stock-metadata-generator/internal/infra/logging"
	"stock-metadata-generator/internal/infra/metrics"
	"stock-metadata-generator/internal/infra/worker"
)

const DefaultConcurrency = 6

var errNotClaimable = errors.New("item not claimable")

// Compile-time check
var _ BatchUseCase = (*batchUC)(nil)

// ProviderResolver maps a provider id to its wrapped adapter. An empty id
// selects the default.
type ProviderResolver interface {
	Provider(p model.Provider) (adapter.MetadataProvider, error)
	Default() model.Provider
}

// Submitter queues background work; *worker.Pool satisfies it.
type Submitter interface {
	Submit(task worker.Task) error
}

type RunRequest struct {
	Provider    model.Provider           `json:"provider"`
	Platforms   []model.Platform         `json:"platforms"`
	Concurrency int                      `json:"concurrency"`
	Settings    model.GenerationSettings `json:"settings"`
}

type RunSummary struct {
	RunID      string        `json:"run_id"`
	Kind       string        `json:"kind"`
	Provider   string        `json:"provider"`
	Total      int           `json:"total"`
	Skipped    int           `json:"skipped"`
	Completed  int           `json:"completed"`
	Failed     int           `json:"failed"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	InProgress bool          `json:"in_progress"`
}

type BatchUseCase interface {
	// Start checks preconditions, then runs the batch in the background.
	Start(ctx context.Context, req RunRequest) (runID string, err error)
	// Run checks preconditions and runs the batch to completion.
	Run(ctx context.Context, req RunRequest) (RunSummary, error)
	// Regenerate redoes every selected platform of one item and blocks.
	Regenerate(ctx context.Context, id string, req RunRequest) error
	// StartRegenerate is Regenerate in the background.
	StartRegenerate(ctx context.Context, id string, req RunRequest) error
	// Current reports the active run, or the last finished one.
	Current() (RunSummary, bool)
}

type batchUC struct {
	store     *ItemStore
	providers ProviderResolver
	creds     *CredentialRegistry
	catalog   *model.Catalog
	jobs      Submitter
	defConc   int
	log       *zerolog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	last    *RunSummary
}

func NewBatchUseCase(store *ItemStore, providers ProviderResolver, creds *CredentialRegistry, catalog *model.Catalog, jobs Submitter, defaultConcurrency int, log *zerolog.Logger) *batchUC {
	if defaultConcurrency <= 0 {
		defaultConcurrency = DefaultConcurrency
	}
	return &batchUC{
		store:     store,
		providers: providers,
		creds:     creds,
		catalog:   catalog,
		jobs:      jobs,
		defConc:   defaultConcurrency,
		log:       log,
	}
}

// runPlan is a validated RunRequest.
type runPlan struct {
	provider    model.Provider
	ai          adapter.MetadataProvider
	pool        *CredentialPool
	platforms   []model.PlatformConfig
	concurrency int
	settings    model.GenerationSettings
}

// prepare runs every precondition check before any work is dispatched.
func (b *batchUC) prepare(req RunRequest) (*runPlan, error) {
	if len(req.Platforms) == 0 {
		return nil, domain.ErrNoPlatforms
	}
	plan := &runPlan{settings: req.Settings, concurrency: req.Concurrency}
	seen := map[model.Platform]bool{}
	for _, p := range req.Platforms {
		pc, ok := b.catalog.Get(p)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, p)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		plan.platforms = append(plan.platforms, pc)
	}
	if err := req.Settings.Validate(); err != nil {
		return nil, err
	}

	plan.provider = req.Provider
	if plan.provider == "" {
		plan.provider = b.providers.Default()
	}
	ai, err := b.providers.Provider(plan.provider)
	if err != nil {
		return nil, err
	}
	pool, err := b.creds.Pool(plan.provider)
	if err != nil {
		return nil, err
	}
	if pool.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", plan.provider, domain.ErrNoCredential)
	}
	plan.ai, plan.pool = ai, pool
	if plan.concurrency <= 0 {
		plan.concurrency = b.defConc
	}
	return plan, nil
}

func (b *batchUC) Start(ctx context.Context, req RunRequest) (string, error) {
	if b.jobs == nil {
		return "", errors.New("batch: no background executor configured")
	}
	plan, err := b.prepare(req)
	if err != nil {
		return "", err
	}
	if !b.running.CompareAndSwap(false, true) {
		return "", domain.ErrRunInProgress
	}
	runID := ulid.Make().String()
	b.begin(runID, "batch", plan)
	err = b.jobs.Submit(func(ctx context.Context) error {
		defer b.running.Store(false)
		b.execute(ctx, runID, plan)
		return nil
	})
	if err != nil {
		b.running.Store(false)
		b.abandon(runID)
		return "", err
	}
	return runID, nil
}

func (b *batchUC) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	plan, err := b.prepare(req)
	if err != nil {
		return RunSummary{}, err
	}
	if !b.running.CompareAndSwap(false, true) {
		return RunSummary{}, domain.ErrRunInProgress
	}
	defer b.running.Store(false)
	runID := ulid.Make().String()
	b.begin(runID, "batch", plan)
	return b.execute(ctx, runID, plan), nil
}

// execute walks the item snapshot in chunks. Item failures are recorded on
// the item and never stop the run.
func (b *batchUC) execute(ctx context.Context, runID string, plan *runPlan) RunSummary {
	ctx = logging.WithRunID(ctx, runID)
	log := logging.With(ctx, b.log)
	defer logging.TraceDuration(log, "BatchUC.execute")()
	items := b.store.Snapshot()
	rotation := plan.pool.NewRotation()
	started := time.Now()
	metrics.IncRun("batch")
	log.Info().Str("provider", string(plan.provider)).Int("items", len(items)).
		Int("platforms", len(plan.platforms)).Int("concurrency", plan.concurrency).Msg("batch run started")

	var skipped, completed, failed atomic.Int64
	worker.RunChunked(ctx, len(items), plan.concurrency, func(ctx context.Context, i int) {
		it, ok := b.claim(items[i].ID)
		if !ok {
			skipped.Add(1)
			metrics.IncBatchItem("skipped")
			return
		}
		draw := func() (string, error) {
			key, _, err := rotation.Next()
			return key, err
		}
		// resume: slots filled by an earlier pass are kept
		todo := make([]model.PlatformConfig, 0, len(plan.platforms))
		for _, pc := range plan.platforms {
			if it.PlatformMetadata[pc.ID] == nil {
				todo = append(todo, pc)
			}
		}
		if b.processItem(ctx, it, plan, todo, draw) {
			completed.Add(1)
		} else {
			failed.Add(1)
		}
	})

	sum := RunSummary{
		RunID:     runID,
		Kind:      "batch",
		Provider:  string(plan.provider),
		Total:     len(items),
		Skipped:   int(skipped.Load()),
		Completed: int(completed.Load()),
		Failed:    int(failed.Load()),
		StartedAt: started,
		Duration:  time.Since(started),
	}
	metrics.ObserveRunDuration(sum.Duration)
	b.finish(sum)
	log.Info().Int("completed", sum.Completed).Int("failed", sum.Failed).Int("skipped", sum.Skipped).
		Int64("duration_ms", sum.Duration.Milliseconds()).Msg("batch run finished")
	return sum
}

// claim re-reads the live item when its turn comes and marks it processing.
// Items completed or taken by a regeneration since the run started are not
// claimed.
func (b *batchUC) claim(id string) (model.WorkItem, bool) {
	var live model.WorkItem
	err := b.store.Modify(id, func(w model.WorkItem) (model.WorkItem, error) {
		if w.Status == model.StatusComplete || w.Status == model.StatusProcessing {
			return w, errNotClaimable
		}
		w = model.MarkProcessing()(w)
		live = w.Clone()
		return w, nil
	})
	return live, err == nil
}

// processItem runs the platforms sequentially for one item, merging each
// result as soon as it arrives. It reports whether the item completed.
func (b *batchUC) processItem(ctx context.Context, it model.WorkItem, plan *runPlan, platforms []model.PlatformConfig, draw func() (string, error)) bool {
	ctx = logging.WithItemID(ctx, it.ID)
	log := logging.With(ctx, b.log)

	for _, pc := range platforms {
		key, err := draw()
		if err != nil {
			b.fail(it.ID, err, log)
			return false
		}
		start := time.Now()
		md, err := plan.ai.Generate(ctx, adapter.GenerateRequest{
			Credential: key,
			Primary:    it.PrimaryFile,
			Preview:    it.PreviewFile,
			Platform:   pc,
			Settings:   plan.settings,
		})
		metrics.ObserveGeneration(string(plan.provider), string(pc.ID), time.Since(start), err == nil)
		if err != nil {
			log.Warn().Err(err).Str("platform", string(pc.ID)).Msg("generation failed")
			b.fail(it.ID, err, log)
			return false
		}
		if err := b.store.Update(it.ID, model.MergeMetadata(pc.ID, md)); err != nil {
			return false
		}
	}
	if err := b.store.Update(it.ID, model.MarkComplete()); err != nil {
		return false
	}
	metrics.IncBatchItem("complete")
	log.Debug().Msg("item complete")
	return true
}

func (b *batchUC) fail(id string, err error, log *zerolog.Logger) {
	metrics.IncBatchItem("error")
	if uerr := b.store.Update(id, model.MarkError(errorMessage(err))); uerr != nil {
		log.Debug().Err(uerr).Msg("item vanished before error could be recorded")
	}
}

func (b *batchUC) Regenerate(ctx context.Context, id string, req RunRequest) error {
	plan, key, err := b.prepareRegeneration(id, req)
	if err != nil {
		return err
	}
	b.regenerate(ctx, id, plan, key)
	return nil
}

func (b *batchUC) StartRegenerate(ctx context.Context, id string, req RunRequest) error {
	if b.jobs == nil {
		return errors.New("batch: no background executor configured")
	}
	plan, key, err := b.prepareRegeneration(id, req)
	if err != nil {
		return err
	}
	err = b.jobs.Submit(func(ctx context.Context) error {
		b.regenerate(ctx, id, plan, key)
		return nil
	})
	if err != nil {
		b.fail(id, err, b.log)
	}
	return err
}

// prepareRegeneration validates, draws the single credential for the whole
// attempt and resets the item to processing.
func (b *batchUC) prepareRegeneration(id string, req RunRequest) (*runPlan, string, error) {
	plan, err := b.prepare(req)
	if err != nil {
		return nil, "", err
	}
	key, err := plan.pool.Random()
	if err != nil {
		return nil, "", err
	}
	ids := make([]model.Platform, len(plan.platforms))
	for i, pc := range plan.platforms {
		ids[i] = pc.ID
	}
	err = b.store.Modify(id, func(w model.WorkItem) (model.WorkItem, error) {
		if w.Status == model.StatusProcessing {
			return w, fmt.Errorf("%w: item %s is being processed", domain.ErrRunInProgress, id)
		}
		return model.ResetForRegeneration(ids)(w), nil
	})
	if err != nil {
		return nil, "", err
	}
	return plan, key, nil
}

func (b *batchUC) regenerate(ctx context.Context, id string, plan *runPlan, key string) {
	metrics.IncRun("regenerate")
	it, err := b.store.Get(id)
	if err != nil {
		return
	}
	ctx = logging.WithRunID(ctx, ulid.Make().String())
	b.processItem(ctx, it, plan, plan.platforms, func() (string, error) { return key, nil })
}

func (b *batchUC) Current() (RunSummary, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return RunSummary{}, false
	}
	return *b.last, true
}

func (b *batchUC) begin(runID, kind string, plan *runPlan) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &RunSummary{RunID: runID, Kind: kind, Provider: string(plan.provider), Total: b.store.Len(), StartedAt: time.Now(), InProgress: true}
}

func (b *batchUC) finish(sum RunSummary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &sum
}

func (b *batchUC) abandon(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last != nil && b.last.RunID == runID {
		b.last = nil
	}
}

// errorMessage prefers the provider-supplied text.
func errorMessage(err error) string {
	var pe *adapter.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "metadata generation failed"
}
