// Package organize owns the destination folder tree: it resolves naming
// conflicts and relocates files into their category folders. It is the only
// writer to the destination tree, so the check-then-move sequence needs no
// separate lock; the single-process invariant is a stated precondition.
package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"parafile/internal/logging"
	"parafile/internal/retry"
	"parafile/internal/services"
)

const defaultRetryDelay = 2 * time.Second

// Mover relocates files with bounded retries for transient failures such as
// destination locks or permission hiccups.
type Mover struct {
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
	sleeper     func(time.Duration)
}

// Option customizes the Mover.
type Option func(*Mover)

// WithLogger attaches a logger for retry visibility.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mover) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(m *Mover) {
		m.sleeper = sleeper
	}
}

// NewMover constructs a Mover. maxAttempts values below 1 are clamped to 1.
func NewMover(maxAttempts int, retryDelay time.Duration, opts ...Option) *Mover {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	m := &Mover{
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResolveTarget returns the first free path among base.ext, base (1).ext,
// base (2).ext, ... inside dir. ext includes the leading dot (may be empty).
func ResolveTarget(dir, base, ext string) (string, error) {
	const maxCandidates = 10000
	for n := 0; n <= maxCandidates; n++ {
		name := base + ext
		if n > 0 {
			name = fmt.Sprintf("%s (%d)%s", base, n, ext)
		}
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %q in %s", base+ext, dir)
}

// Place moves src into dir under the rendered base name, appending the
// extension unchanged and disambiguating collisions. It returns the final
// destination path and the number of attempts used. A source that vanished
// before the move yields ErrSourceMissing; transient failures are retried
// with a fixed delay and surface as ErrTransientIO after exhaustion.
func (m *Mover) Place(ctx context.Context, src, dir, base, ext string) (string, int, error) {
	var target string
	policy := retry.Policy{
		MaxAttempts: m.maxAttempts,
		Delay: func(_ int, err error) (time.Duration, bool) {
			if errors.Is(err, services.ErrSourceMissing) {
				return 0, false
			}
			return m.retryDelay, true
		},
		Sleeper: m.sleeper,
		OnRetry: func(attempt int, _ time.Duration, err error) {
			m.logger.Warn("move attempt failed, retrying",
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", m.maxAttempts),
				logging.Error(err))
		},
	}
	attempts, err := policy.Do(ctx, func(context.Context) error {
		if _, statErr := os.Stat(src); statErr != nil {
			if errors.Is(statErr, os.ErrNotExist) {
				return services.Wrap(services.ErrSourceMissing, "moving", "stat source",
					"source file no longer exists", statErr)
			}
			return statErr
		}
		placed, moveErr := m.moveOnce(src, dir, base, ext)
		if moveErr != nil {
			return moveErr
		}
		target = placed
		return nil
	})
	if err == nil {
		return target, attempts, nil
	}
	if errors.Is(err, services.ErrSourceMissing) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", attempts, err
	}
	return "", attempts, services.Wrap(services.ErrTransientIO, "moving", "relocate file",
		fmt.Sprintf("failed after %d attempts", attempts), err)
}

func (m *Mover) moveOnce(src, dir, base, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure category dir: %w", err)
	}

	// Rename-in-place: when the source already sits at the desired path,
	// conflict counting would collide the file with itself.
	if filepath.Join(dir, base+ext) == src {
		return src, nil
	}

	target, err := ResolveTarget(dir, base, ext)
	if err != nil {
		return "", fmt.Errorf("resolve target: %w", err)
	}

	renameErr := os.Rename(src, target)
	if renameErr == nil {
		return target, nil
	}

	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if copyErr := copyFileVerified(src, target); copyErr != nil {
			return "", fmt.Errorf("cross-device copy: %w", copyErr)
		}
		if err := os.Remove(src); err != nil {
			m.logger.Warn("failed to remove source after cross-device copy", logging.Error(err))
		}
		return target, nil
	}
	return "", renameErr
}
