package services

import (
	"errors"
	"fmt"
	"strings"

	"parafile/internal/queue"
)

var (
	// ErrUnstable marks files that never stopped changing within the stability budget.
	ErrUnstable = errors.New("file never stabilized")
	// ErrExtraction marks unreadable or unsupported document content. Never retried.
	ErrExtraction = errors.New("extraction error")
	// ErrClassification marks classifier failures after retry exhaustion.
	ErrClassification = errors.New("classification error")
	// ErrTransientIO marks move failures caused by locks or permissions.
	ErrTransientIO = errors.New("transient io error")
	// ErrSourceMissing marks a source file that vanished before relocation.
	ErrSourceMissing = errors.New("source file missing")
	// ErrConfiguration marks invalid configuration detected at session start.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks invalid stage inputs.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later outcome classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransientIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the terminal queue status the pipeline
// should persist after the stage fails.
func FailureStatus(err error) queue.Status {
	if errors.Is(err, ErrSourceMissing) {
		return queue.StatusSkipped
	}
	return queue.StatusFailed
}

// FailureKind maps a stage error to the outcome kind recorded on the item.
func FailureKind(err error) queue.ErrorKind {
	switch {
	case errors.Is(err, ErrUnstable):
		return queue.KindUnstable
	case errors.Is(err, ErrExtraction):
		return queue.KindExtraction
	case errors.Is(err, ErrClassification):
		return queue.KindClassification
	case errors.Is(err, ErrSourceMissing):
		return queue.KindSourceMissing
	case errors.Is(err, ErrConfiguration):
		return queue.KindConfiguration
	case errors.Is(err, ErrValidation):
		return queue.KindValidation
	default:
		return queue.KindTransientIO
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
