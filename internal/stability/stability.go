// Package stability gates dispatched files until they stop changing, so the
// pipeline never reads a document that is still being written or copied.
package stability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"parafile/internal/services"
)

// Gate waits for a file's size and modification time to hold steady across
// consecutive readings before declaring it safe to read.
type Gate struct {
	poll    time.Duration
	checks  int
	timeout time.Duration
}

// New constructs a Gate. checks values below 1 are clamped to 1.
func New(poll time.Duration, checks int, timeout time.Duration) *Gate {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	if checks < 1 {
		checks = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Gate{poll: poll, checks: checks, timeout: timeout}
}

type reading struct {
	size    int64
	modTime time.Time
}

// Wait blocks until the file at path produced the required number of
// consecutive identical size/mtime readings. It returns the settled size.
// A file that keeps changing past the timeout yields ErrUnstable; a file
// that vanishes mid-wait yields ErrSourceMissing.
func (g *Gate) Wait(ctx context.Context, path string) (int64, error) {
	deadline := time.Now().Add(g.timeout)

	var (
		last   reading
		stable int
	)

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return 0, services.Wrap(services.ErrSourceMissing, "stabilizing", "stat file",
					"file vanished while waiting for stability", err)
			}
			return 0, services.Wrap(services.ErrTransientIO, "stabilizing", "stat file", "", err)
		}

		current := reading{size: info.Size(), modTime: info.ModTime()}
		if stable > 0 && current == last {
			stable++
		} else {
			stable = 1
		}
		last = current

		if stable >= g.checks {
			return current.size, nil
		}

		if time.Now().After(deadline) {
			return 0, services.Wrap(services.ErrUnstable, "stabilizing", "wait",
				fmt.Sprintf("file kept changing for %s", g.timeout), nil)
		}

		timer := time.NewTimer(g.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
}
