package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"parafile/internal/catalog"
	"parafile/internal/classify"
	"parafile/internal/logging"
	"parafile/internal/naming"
	"parafile/internal/queue"
	"parafile/internal/services"
)

// Intake receives debounced paths from the watcher. It only consults the
// store and enqueues, so the watcher goroutine never waits on pipeline work.
// A path already terminally processed this session with an unchanged size is
// a no-op, as is a path with a live queue item.
func (m *Manager) Intake(path string) {
	ctx := context.Background()

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	seen, err := m.store.HasTerminalForPathSize(ctx, path, info.Size())
	if err != nil {
		m.logger.Error("intake lookup failed", logging.String(logging.FieldSourcePath, path), logging.Error(err))
		return
	}
	if seen {
		m.logger.Debug("ignoring unchanged file",
			logging.String(logging.FieldSourcePath, path),
			logging.Int64("size", info.Size()))
		return
	}

	organized, err := m.store.HasCompletedFinalPath(ctx, path, info.Size())
	if err != nil {
		m.logger.Error("intake lookup failed", logging.String(logging.FieldSourcePath, path), logging.Error(err))
		return
	}
	if organized {
		m.logger.Debug("ignoring own organized output", logging.String(logging.FieldSourcePath, path))
		return
	}

	item, err := m.store.Enqueue(ctx, path, info.Size())
	if err != nil {
		if errors.Is(err, queue.ErrDuplicatePath) {
			m.logger.Debug("path already in flight", logging.String(logging.FieldSourcePath, path))
			return
		}
		m.logger.Error("enqueue failed", logging.String(logging.FieldSourcePath, path), logging.Error(err))
		return
	}
	m.logger.Info("queued document",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldSourcePath, path))
}

// RunOnce processes a single file synchronously, bypassing the watcher. It
// is the backend of the one-shot CLI command.
func (m *Manager) RunOnce(ctx context.Context, path string) (*queue.Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceMissing, "intake", "stat file", "", err)
	}
	item, err := m.store.Enqueue(ctx, path, info.Size())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	item.Status = queue.StatusStabilizing
	updateErr := m.store.Update(ctx, item)
	if updateErr == nil {
		m.inflight[item.SourcePath] = struct{}{}
	}
	m.mu.Unlock()
	if updateErr != nil {
		return nil, updateErr
	}

	m.processItem(ctx, item)
	return m.store.GetByID(ctx, item.ID)
}

// processItem drives one claimed item through every stage to a terminal
// status. The claim on the item's path is released at the end.
func (m *Manager) processItem(ctx context.Context, item *queue.Item) {
	defer m.release(item.SourcePath)

	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithSourcePath(ctx, item.SourcePath)
	logger := logging.WithContext(ctx, m.logger)

	started := time.Now()
	logger.Info("processing document", logging.String(logging.FieldStage, string(item.Status)))

	// Stability.
	size, err := m.gate.Wait(ctx, item.SourcePath)
	if err != nil {
		m.finishFailure(ctx, logger, item, err)
		return
	}
	item.SizeAtDispatch = size

	// Extraction.
	if !m.advance(ctx, logger, item, queue.StatusExtracting) {
		return
	}
	text, err := m.extractor.Extract(ctx, item.SourcePath)
	if err != nil {
		m.finishFailure(ctx, logger, item, err)
		return
	}

	// Classification, with a fallback instead of a failure: an unreachable
	// or exhausted classifier sends the file to General under its original
	// name so documents keep flowing.
	if !m.advance(ctx, logger, item, queue.StatusClassifying) {
		return
	}
	result, fallback := m.classifyWithFallback(ctx, logger, item, text)

	// Naming.
	if !m.advance(ctx, logger, item, queue.StatusNaming) {
		return
	}
	category, base, err := m.renderName(item, result, fallback)
	if err != nil {
		m.finishFailure(ctx, logger, item, err)
		return
	}
	item.Category = category.Name
	item.RenderedName = base

	// Moving.
	if !m.advance(ctx, logger, item, queue.StatusMoving) {
		return
	}
	// Organization disabled means rename in place: the file keeps its spot
	// in the watched folder and only gains its rendered name.
	destDir := m.cfg.Paths.WatchedFolder
	if m.cfg.EnableOrganization {
		destDir = filepath.Join(destDir, category.Name)
	}
	finalPath, attempts, err := m.mover.Place(ctx, item.SourcePath, destDir, base, item.Extension)
	item.MoveAttempts = attempts
	if err != nil {
		m.finishFailure(ctx, logger, item, err)
		return
	}

	item.SetMoved(finalPath)
	if err := m.store.Update(ctx, item); err != nil {
		logger.Error("failed to persist outcome", logging.Error(err))
		return
	}
	logger.Info("document organized",
		logging.String("category", item.Category),
		logging.String("destination", finalPath),
		logging.Duration("elapsed", time.Since(started)))
}

func (m *Manager) classifyWithFallback(ctx context.Context, logger *slog.Logger, item *queue.Item, text string) (classify.Result, bool) {
	if strings.TrimSpace(text) == "" {
		logger.Info("document has no extractable text, using General")
		return classify.Result{Category: catalog.GeneralCategory}, true
	}

	result, err := m.classifier.Classify(ctx, text, m.cat)
	item.ClassifyAttempts = result.Attempts
	if err != nil {
		logger.Warn("classification failed, falling back to General", logging.Error(err))
		return classify.Result{Category: catalog.GeneralCategory}, true
	}
	return result, false
}

// renderName picks the destination category and base name. A classification
// fallback keeps the original stem; otherwise the category's pattern is
// rendered with the extracted variables.
func (m *Manager) renderName(item *queue.Item, result classify.Result, fallback bool) (catalog.Category, string, error) {
	category, ok := m.cat.Lookup(result.Category)
	if !ok {
		category = m.cat.Fallback()
	}

	if fallback {
		base := naming.Sanitize(item.OriginalName)
		if base == "" {
			base = naming.UnknownValue
		}
		return m.cat.Fallback(), base, nil
	}

	base, err := naming.Render(category.NamingPattern, result.Variables, item.OriginalName)
	if err != nil {
		return category, "", services.Wrap(services.ErrValidation, "naming", "render pattern", "", err)
	}
	return category, base, nil
}

func (m *Manager) advance(ctx context.Context, logger *slog.Logger, item *queue.Item, status queue.Status) bool {
	item.Status = status
	if err := m.store.Update(ctx, item); err != nil {
		logger.Error("failed to persist stage transition", logging.Error(err))
		return false
	}
	return true
}

func (m *Manager) finishFailure(ctx context.Context, logger *slog.Logger, item *queue.Item, err error) {
	kind := services.FailureKind(err)
	if services.FailureStatus(err) == queue.StatusSkipped {
		item.SetSkipped(kind, err.Error())
		logger.Warn("document skipped",
			logging.String("error_kind", string(kind)),
			logging.Error(err))
	} else {
		item.SetFailed(kind, err.Error())
		logger.Error("document failed",
			logging.String("error_kind", string(kind)),
			logging.Error(err))
	}
	if updateErr := m.store.Update(ctx, item); updateErr != nil {
		logger.Error("failed to persist outcome", logging.Error(updateErr))
	}
}
