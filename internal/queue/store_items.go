package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicatePath indicates the path already has a live (non-terminal) item.
var ErrDuplicatePath = errors.New("path already queued")

// Enqueue inserts a pending item for a detected file. A path with an item
// that has not yet reached a terminal status is rejected so a burst of
// filesystem events produces at most one in-flight item per path.
func (s *Store) Enqueue(ctx context.Context, sourcePath string, size int64) (*Item, error) {
	ctx = ensureContext(ctx)

	live, err := s.hasLiveForPath(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	if live {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, sourcePath)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	stem, ext := SplitSourcePath(sourcePath)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            source_path, original_name, extension, size_at_dispatch,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sourcePath,
		stem,
		ext,
		size,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items
         SET source_path = ?, original_name = ?, extension = ?, size_at_dispatch = ?,
             status = ?, category = ?, rendered_name = ?, final_path = ?,
             error_kind = ?, error_message = ?, classify_attempts = ?, move_attempts = ?,
             updated_at = ?
         WHERE id = ?`,
		item.SourcePath,
		item.OriginalName,
		item.Extension,
		item.SizeAtDispatch,
		item.Status,
		item.Category,
		item.RenderedName,
		item.FinalPath,
		string(item.ErrorKind),
		item.ErrorMessage,
		item.ClassifyAttempts,
		item.MoveAttempts,
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// NextPending returns the oldest pending item, or nil when the queue is idle.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY created_at, id LIMIT 1`,
		StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return item, nil
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) hasLiveForPath(ctx context.Context, sourcePath string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM queue_items WHERE source_path = ? AND status NOT IN (?, ?, ?)`,
		sourcePath,
		StatusCompleted,
		StatusSkipped,
		StatusFailed,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check live path: %w", err)
	}
	return count > 0, nil
}

// HasTerminalForPathSize reports whether the path already reached a terminal
// outcome with the same size. The watcher uses this to ignore redundant
// events for a file that has not changed since it was last handled.
func (s *Store) HasTerminalForPathSize(ctx context.Context, sourcePath string, size int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM queue_items
         WHERE source_path = ? AND size_at_dispatch = ? AND status IN (?, ?, ?)`,
		sourcePath,
		size,
		StatusCompleted,
		StatusSkipped,
		StatusFailed,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check terminal path: %w", err)
	}
	return count > 0, nil
}

// HasCompletedFinalPath reports whether an unmodified completed output
// already lives at the path. With rename-in-place the organized file stays
// inside the watched folder, so the triggered event must not re-enqueue it.
func (s *Store) HasCompletedFinalPath(ctx context.Context, path string, size int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM queue_items
         WHERE final_path = ? AND size_at_dispatch = ? AND status = ?`,
		path,
		size,
		StatusCompleted,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check final path: %w", err)
	}
	return count > 0, nil
}
