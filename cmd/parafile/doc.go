// Package main hosts the parafile CLI entrypoint and command graph.
//
// The Cobra-based command tree covers running the organizer daemon in the
// foreground, inspecting daemon and queue state, queue maintenance, one-shot
// document processing, and configuration scaffolding. It centralizes
// configuration resolution and queue store access so subcommands can focus
// on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
