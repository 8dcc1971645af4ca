package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"parafile/internal/catalog"
	"parafile/internal/classify"
	"parafile/internal/config"
	"parafile/internal/extract"
	"parafile/internal/logging"
	"parafile/internal/organize"
	"parafile/internal/queue"
	"parafile/internal/stability"
)

// Extractor converts a document into plain text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Classifier assigns a category and variable values to document text.
type Classifier interface {
	Classify(ctx context.Context, text string, cat *catalog.Catalog) (classify.Result, error)
}

// Placer relocates a file into its category folder.
type Placer interface {
	Place(ctx context.Context, src, dir, base, ext string) (string, int, error)
}

// Gate blocks until a file stops changing.
type Gate interface {
	Wait(ctx context.Context, path string) (int64, error)
}

// Manager coordinates queue processing across a pool of workers.
type Manager struct {
	cfg    *config.Config
	cat    *catalog.Catalog
	store  *queue.Store
	logger *slog.Logger

	gate       Gate
	extractor  Extractor
	classifier Classifier
	mover      Placer

	pollInterval time.Duration

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inflight map[string]struct{}
}

// Option configures optional Manager behavior, mainly for tests.
type Option func(*Manager)

// WithGate overrides the stability gate.
func WithGate(gate Gate) Option {
	return func(m *Manager) {
		if gate != nil {
			m.gate = gate
		}
	}
}

// WithExtractor overrides the text extractor.
func WithExtractor(extractor Extractor) Option {
	return func(m *Manager) {
		if extractor != nil {
			m.extractor = extractor
		}
	}
}

// WithClassifier overrides the classifier.
func WithClassifier(classifier Classifier) Option {
	return func(m *Manager) {
		if classifier != nil {
			m.classifier = classifier
		}
	}
}

// WithMover overrides the mover.
func WithMover(mover Placer) Option {
	return func(m *Manager) {
		if mover != nil {
			m.mover = mover
		}
	}
}

// NewManager constructs a pipeline manager with production components built
// from the configuration. The catalog must already be validated.
func NewManager(cfg *config.Config, cat *catalog.Catalog, store *queue.Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:    cfg,
		cat:    cat,
		store:  store,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		gate: stability.New(
			time.Duration(cfg.Workflow.StabilityPollMS)*time.Millisecond,
			cfg.Workflow.StabilityChecks,
			time.Duration(cfg.Workflow.StabilityTimeoutSeconds)*time.Second,
		),
		extractor: extract.New(),
		classifier: classify.NewClient(classify.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, classify.WithRetryMaxAttempts(cfg.Workflow.ClassifyMaxAttempts)),
		mover: organize.NewMover(
			cfg.Workflow.MoveMaxAttempts,
			time.Duration(cfg.Workflow.MoveRetryDelayMS)*time.Millisecond,
			organize.WithLogger(logging.NewComponentLogger(logger, "organize")),
		),
		pollInterval: time.Duration(cfg.Workflow.QueuePollSeconds) * time.Second,
		inflight:     make(map[string]struct{}),
	}
	if m.pollInterval <= 0 {
		m.pollInterval = time.Second
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start resets stranded in-flight items and launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("pipeline already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	if recovered, err := m.store.RecoverInFlight(ctx); err != nil {
		m.logger.Warn("failed to recover stranded items", logging.Error(err))
	} else if recovered > 0 {
		m.logger.Info("recovered stranded items", logging.Int64("count", recovered))
	}

	// Preflight: a failing classifier endpoint is worth a warning at
	// startup, but items still fall back to General so we keep running.
	if checker, ok := m.classifier.(interface{ HealthCheck(context.Context) error }); ok {
		checkCtx, cancelCheck := context.WithTimeout(ctx, 15*time.Second)
		if err := checker.HealthCheck(checkCtx); err != nil {
			m.logger.Warn("classifier health check failed", logging.Error(err))
		}
		cancelCheck()
	}

	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx)
	}
	return nil
}

// Stop cancels polling and waits for in-flight items to reach terminal
// states. Items mid-stage finish their run; only the polling loop observes
// the cancellation.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := m.claimNext(ctx)
		if err != nil {
			m.logger.Error("failed to fetch next queue item", logging.Error(err))
			m.waitOrShutdown(ctx)
			continue
		}
		if item == nil {
			m.waitOrShutdown(ctx)
			continue
		}

		// Drain semantics: the item already claimed finishes even while
		// shutting down, bounded by the stage timeouts.
		m.processItem(context.WithoutCancel(ctx), item)
	}
}

// claimNext atomically picks the oldest pending item: the fetch and the
// status flip to stabilizing happen under one lock so two workers never
// claim the same row, and a path already in flight is left alone.
func (m *Manager) claimNext(ctx context.Context) (*queue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, err := m.store.NextPending(ctx)
	if err != nil || item == nil {
		return nil, err
	}
	if _, busy := m.inflight[item.SourcePath]; busy {
		return nil, nil
	}

	item.Status = queue.StatusStabilizing
	if err := m.store.Update(ctx, item); err != nil {
		return nil, err
	}
	m.inflight[item.SourcePath] = struct{}{}
	return item, nil
}

func (m *Manager) release(path string) {
	m.mu.Lock()
	delete(m.inflight, path)
	m.mu.Unlock()
}

func (m *Manager) waitOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
