package stability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"parafile/internal/services"
	"parafile/internal/testsupport"
)

func TestWaitSettledFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "done.pdf")
	testsupport.WriteFile(t, path, 1024)

	gate := New(5*time.Millisecond, 3, time.Second)
	size, err := gate.Wait(context.Background(), path)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if size != 1024 {
		t.Fatalf("expected size 1024, got %d", size)
	}
}

func TestWaitGrowingFileTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growing.pdf")
	testsupport.WriteFile(t, path, 1)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		for {
			select {
			case <-stop:
				return
			case <-time.After(2 * time.Millisecond):
				_, _ = f.Write([]byte("more"))
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
	})

	gate := New(5*time.Millisecond, 3, 100*time.Millisecond)
	_, err := gate.Wait(context.Background(), path)
	if !errors.Is(err, services.ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}
}

func TestWaitVanishedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pdf")

	gate := New(5*time.Millisecond, 2, time.Second)
	_, err := gate.Wait(context.Background(), path)
	if !errors.Is(err, services.ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	testsupport.WriteFile(t, path, 16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gate := New(5*time.Millisecond, 3, time.Second)
	if _, err := gate.Wait(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
