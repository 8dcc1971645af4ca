// Package classify provides an OpenRouter chat client that assigns a
// category and fills naming variables for extracted document text.
//
// The client sends the document text together with the configured category
// and variable descriptions, requesting JSON output of the shape
// {"category": "...", "variables": {"name": "value"}}. Responses naming an
// undeclared category fall back to the catalog's General category, and
// undeclared variables are dropped.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff, honoring Retry-After when present. Context
// cancellation aborts retries immediately. When every attempt fails the
// caller is expected to fall back to the General category rather than fail
// the document.
package classify
