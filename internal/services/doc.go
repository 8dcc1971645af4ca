// Package services carries cross-cutting helpers shared by the pipeline
// stages: sentinel error markers with stage-aware wrapping, and context
// annotations used for structured logging.
package services
