// Package pipeline orchestrates queued documents through the processing
// stages: stability wait, text extraction, classification, name rendering,
// and relocation into the category folder.
//
// A worker pool polls the queue store for pending items. Each path is
// processed by at most one worker at a time (an in-memory claim table plus
// the store's refusal of duplicate live rows), stages run in strict order
// per item, and every item ends in exactly one terminal status. Event
// intake never blocks on pipeline work; it only enqueues.
package pipeline
