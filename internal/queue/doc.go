// Package queue persists pending files and their terminal outcomes in
// SQLite. The pipeline owns all writes; the CLI reads it for status views.
package queue
