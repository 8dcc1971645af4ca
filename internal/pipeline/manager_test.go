package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"parafile/internal/catalog"
	"parafile/internal/classify"
	"parafile/internal/config"
	"parafile/internal/logging"
	"parafile/internal/pipeline"
	"parafile/internal/queue"
	"parafile/internal/services"
	"parafile/internal/testsupport"
)

type fakeGate struct {
	err error
}

func (g *fakeGate) Wait(ctx context.Context, path string) (int64, error) {
	if g.err != nil {
		return 0, g.err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, services.Wrap(services.ErrSourceMissing, "stabilizing", "stat file", "", err)
	}
	return info.Size(), nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) Extract(ctx context.Context, path string) (string, error) {
	return e.text, e.err
}

type fakeClassifier struct {
	result classify.Result
	err    error
	calls  int
}

func (c *fakeClassifier) Classify(ctx context.Context, text string, cat *catalog.Catalog) (classify.Result, error) {
	c.calls++
	if c.err != nil {
		return classify.Result{Attempts: 1}, c.err
	}
	result := c.result
	result.Attempts = 1
	return result, nil
}

func newTestManager(t *testing.T, cfg *config.Config, store *queue.Store, opts ...pipeline.Option) *pipeline.Manager {
	t.Helper()
	cat, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("cfg.Catalog: %v", err)
	}
	base := []pipeline.Option{
		pipeline.WithGate(&fakeGate{}),
		pipeline.WithExtractor(&fakeExtractor{text: "Invoice from Acme dated 2026-01-15"}),
		pipeline.WithClassifier(&fakeClassifier{result: classify.Result{
			Category:  "Invoices",
			Variables: map[string]string{"vendor": "Acme", "date": "2026-01-15"},
		}}),
	}
	return pipeline.NewManager(cfg, cat, store, logging.NewNop(), append(base, opts...)...)
}

func TestRunOnceOrganizesDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newTestManager(t, cfg, store)

	src := filepath.Join(cfg.Paths.WatchedFolder, "scan0001.pdf")
	testsupport.WriteFile(t, src, 512)

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", item.Status, item.ErrorMessage)
	}
	want := filepath.Join(cfg.Paths.WatchedFolder, "Invoices", "Acme - 2026-01-15.pdf")
	if item.FinalPath != want {
		t.Fatalf("unexpected final path %q, want %q", item.FinalPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("source should have been moved")
	}
	if item.Category != "Invoices" || item.RenderedName != "Acme - 2026-01-15" {
		t.Fatalf("unexpected item fields: %#v", item)
	}
}

func TestRunOnceCollidingNamesStayDistinct(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newTestManager(t, cfg, store)

	var finals []string
	for _, name := range []string{"a.pdf", "b.pdf"} {
		src := filepath.Join(cfg.Paths.WatchedFolder, name)
		testsupport.WriteFile(t, src, 64)
		item, err := mgr.RunOnce(context.Background(), src)
		if err != nil {
			t.Fatalf("RunOnce returned error: %v", err)
		}
		if item.Status != queue.StatusCompleted {
			t.Fatalf("expected completed, got %s", item.Status)
		}
		finals = append(finals, item.FinalPath)
	}
	if finals[0] == finals[1] {
		t.Fatalf("colliding rendered names produced the same path %q", finals[0])
	}
	if finals[1] != filepath.Join(cfg.Paths.WatchedFolder, "Invoices", "Acme - 2026-01-15 (1).pdf") {
		t.Fatalf("unexpected second path %q", finals[1])
	}
}

func TestClassifierFailureFallsBackToGeneral(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newTestManager(t, cfg, store,
		pipeline.WithClassifier(&fakeClassifier{err: errors.New("model unreachable")}))

	src := filepath.Join(cfg.Paths.WatchedFolder, "mystery.pdf")
	testsupport.WriteFile(t, src, 64)

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", item.Status, item.ErrorMessage)
	}
	want := filepath.Join(cfg.Paths.WatchedFolder, "General", "mystery.pdf")
	if item.FinalPath != want {
		t.Fatalf("unexpected final path %q, want %q", item.FinalPath, want)
	}
	// A classifier that gives up on the first request must not be recorded
	// as having exhausted the attempt budget.
	if item.ClassifyAttempts != 1 {
		t.Fatalf("expected the single failed attempt recorded, got %d", item.ClassifyAttempts)
	}
}

func TestExtractionFailureIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	extractErr := services.Wrap(services.ErrExtraction, "extract", "read pdf", "corrupt file", nil)
	mgr := newTestManager(t, cfg, store, pipeline.WithExtractor(&fakeExtractor{err: extractErr}))

	src := filepath.Join(cfg.Paths.WatchedFolder, "corrupt.pdf")
	testsupport.WriteFile(t, src, 64)

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if item.Status != queue.StatusFailed || item.ErrorKind != queue.KindExtraction {
		t.Fatalf("expected extraction failure, got %s/%s", item.Status, item.ErrorKind)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("failed file must remain in place")
	}
}

func TestUnstableFileIsNeverExtracted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	unstable := services.Wrap(services.ErrUnstable, "stabilizing", "wait", "kept changing", nil)
	extractor := &fakeExtractor{text: "should never be read"}
	mgr := newTestManager(t, cfg, store,
		pipeline.WithGate(&fakeGate{err: unstable}),
		pipeline.WithExtractor(extractor))

	src := filepath.Join(cfg.Paths.WatchedFolder, "growing.pdf")
	testsupport.WriteFile(t, src, 64)

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if item.Status != queue.StatusFailed || item.ErrorKind != queue.KindUnstable {
		t.Fatalf("expected unstable failure, got %s/%s", item.Status, item.ErrorKind)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("unstable file must remain in place")
	}
}

func TestVanishedSourceIsSkipped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	// The file exists at intake but disappears before the move.
	src := filepath.Join(cfg.Paths.WatchedFolder, "fleeting.pdf")
	testsupport.WriteFile(t, src, 64)

	removing := &fakeExtractor{text: "content"}
	mgr := newTestManager(t, cfg, store, pipeline.WithExtractor(removing),
		pipeline.WithClassifier(&fakeClassifier{result: classify.Result{Category: "Invoices"}}),
		pipeline.WithMover(removeThenMove{t: t, src: src}))

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if item.Status != queue.StatusSkipped || item.ErrorKind != queue.KindSourceMissing {
		t.Fatalf("expected skipped/source_missing, got %s/%s", item.Status, item.ErrorKind)
	}
}

type removeThenMove struct {
	t   *testing.T
	src string
}

func (r removeThenMove) Place(ctx context.Context, src, dir, base, ext string) (string, int, error) {
	if err := os.Remove(r.src); err != nil {
		r.t.Fatalf("remove source: %v", err)
	}
	return "", 1, services.Wrap(services.ErrSourceMissing, "moving", "stat source", "source file no longer exists", nil)
}

func TestIntakeSingleFlight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newTestManager(t, cfg, store)

	src := filepath.Join(cfg.Paths.WatchedFolder, "burst.pdf")
	testsupport.WriteFile(t, src, 64)

	mgr.Intake(src)
	mgr.Intake(src)
	mgr.Intake(src)

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one queued item, got %d", len(items))
	}
}

func TestIntakeIgnoresUnchangedProcessedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newTestManager(t, cfg, store)

	src := filepath.Join(cfg.Paths.WatchedFolder, "seen.pdf")
	testsupport.WriteFile(t, src, 64)

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", item.Status)
	}

	// Same path reappears with the same size: no new work.
	testsupport.WriteFile(t, src, 64)
	mgr.Intake(src)
	items, err := store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no pending items, got %d", len(items))
	}

	// A different size means new content: queue it again.
	testsupport.WriteFile(t, src, 128)
	mgr.Intake(src)
	items, err = store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one pending item, got %d", len(items))
	}
}

func TestWorkerPoolProcessesQueuedItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newTestManager(t, cfg, store)

	src := filepath.Join(cfg.Paths.WatchedFolder, "queued.pdf")
	testsupport.WriteFile(t, src, 64)
	mgr.Intake(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer mgr.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		items, err := store.List(context.Background(), queue.StatusCompleted)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(items) == 1 {
			if items[0].FinalPath == "" {
				t.Fatal("completed item missing final path")
			}
			break
		}
		if time.Now().After(deadline) {
			all, _ := store.List(context.Background())
			t.Fatalf("timed out waiting for completion; queue: %#v", all)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRunOnceRenamesInPlaceWhenOrganizationDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOrganizationDisabled())
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newTestManager(t, cfg, store)

	src := filepath.Join(cfg.Paths.WatchedFolder, "scan.pdf")
	testsupport.WriteFile(t, src, 128)

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", item.Status, item.ErrorMessage)
	}
	want := filepath.Join(cfg.Paths.WatchedFolder, "Acme - 2026-01-15.pdf")
	if item.FinalPath != want {
		t.Fatalf("unexpected final path %q, want %q", item.FinalPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WatchedFolder, "Invoices")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("no category folder should be created with organization disabled")
	}
}

func TestRunOnceAlreadyNamedFileStaysPut(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOrganizationDisabled())
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newTestManager(t, cfg, store)

	src := filepath.Join(cfg.Paths.WatchedFolder, "Acme - 2026-01-15.pdf")
	testsupport.WriteFile(t, src, 128)

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if item.Status != queue.StatusCompleted || item.FinalPath != src {
		t.Fatalf("expected no-op rename onto itself, got %#v", item)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WatchedFolder, "Acme - 2026-01-15 (1).pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("file must not collide with itself")
	}
}

func TestIntakeIgnoresOwnOrganizedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOrganizationDisabled())
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newTestManager(t, cfg, store)

	src := filepath.Join(cfg.Paths.WatchedFolder, "scan.pdf")
	testsupport.WriteFile(t, src, 128)

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	// The rename triggers a watcher event for the new name; intake must
	// recognize it as our own output.
	mgr.Intake(item.FinalPath)

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %#v", items)
	}
}

func TestEmptyDocumentGoesToGeneralWithoutClassifier(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	classifier := &fakeClassifier{}
	mgr := newTestManager(t, cfg, store,
		pipeline.WithExtractor(&fakeExtractor{text: "   "}),
		pipeline.WithClassifier(classifier),
	)

	src := filepath.Join(cfg.Paths.WatchedFolder, "blank.pdf")
	testsupport.WriteFile(t, src, 32)

	item, err := mgr.RunOnce(context.Background(), src)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if item.Status != queue.StatusCompleted || item.Category != "General" {
		t.Fatalf("expected General completion, got %#v", item)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier should not be called for empty text, got %d calls", classifier.calls)
	}
	want := filepath.Join(cfg.Paths.WatchedFolder, "General", "blank.pdf")
	if item.FinalPath != want {
		t.Fatalf("unexpected final path %q, want %q", item.FinalPath, want)
	}
}
