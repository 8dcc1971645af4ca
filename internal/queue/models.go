package queue

import (
	"path/filepath"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item. It mirrors the pipeline
// state machine: a pending item advances through the processing statuses in
// order and ends in exactly one terminal status.
type Status string

const (
	StatusPending     Status = "pending"
	StatusStabilizing Status = "stabilizing"
	StatusExtracting  Status = "extracting"
	StatusClassifying Status = "classifying"
	StatusNaming      Status = "naming"
	StatusMoving      Status = "moving"
	StatusCompleted   Status = "completed"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusStabilizing,
	StatusExtracting,
	StatusClassifying,
	StatusNaming,
	StatusMoving,
	StatusCompleted,
	StatusSkipped,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusStabilizing: {},
	StatusExtracting:  {},
	StatusClassifying: {},
	StatusNaming:      {},
	StatusMoving:      {},
}

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusSkipped:   {},
	StatusFailed:    {},
}

// ErrorKind labels the failure class recorded on a terminal item.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindUnstable       ErrorKind = "unstable"
	KindExtraction     ErrorKind = "extraction"
	KindClassification ErrorKind = "classification"
	KindTransientIO    ErrorKind = "transient_io"
	KindSourceMissing  ErrorKind = "source_missing"
	KindConfiguration  ErrorKind = "configuration"
	KindValidation     ErrorKind = "validation"
)

// Item represents one detected file persisted in SQLite. A row is created
// when the debouncer dispatches a path and reaches exactly one terminal
// status; terminal rows double as the session's processing history.
type Item struct {
	ID               int64
	SourcePath       string
	OriginalName     string
	Extension        string
	SizeAtDispatch   int64
	Status           Status
	Category         string
	RenderedName     string
	FinalPath        string
	ErrorKind        ErrorKind
	ErrorMessage     string
	ClassifyAttempts int
	MoveAttempts     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Skipped    int
	Failed     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsTerminal returns true when the item reached a terminal outcome.
func (i Item) IsTerminal() bool {
	return IsTerminalStatus(i.Status)
}

// IsTerminalStatus reports whether a status is terminal.
func IsTerminalStatus(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// SetMoved records the successful relocation outcome.
func (i *Item) SetMoved(finalPath string) {
	i.Status = StatusCompleted
	i.FinalPath = finalPath
	i.ErrorKind = KindNone
	i.ErrorMessage = ""
}

// SetSkipped records a skipped outcome with its reason.
func (i *Item) SetSkipped(kind ErrorKind, reason string) {
	i.Status = StatusSkipped
	i.ErrorKind = kind
	i.ErrorMessage = reason
}

// SetFailed records a failed outcome with its kind and message.
func (i *Item) SetFailed(kind ErrorKind, message string) {
	i.Status = StatusFailed
	i.ErrorKind = kind
	i.ErrorMessage = message
}

// SplitSourcePath derives the original stem and lowercase extension from a path.
func SplitSourcePath(path string) (stem, ext string) {
	base := filepath.Base(path)
	ext = strings.ToLower(filepath.Ext(base))
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	return stem, ext
}
