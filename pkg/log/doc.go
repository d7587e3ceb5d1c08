// Package log provides structured protocol event capture for VaultLink.
//
// This package defines the Logger interface and Event types for
// recording connection-layer events: commands going out, responses and
// pushes coming in, channel state changes, signaling exchanges, and
// errors. It is separate from operational logging (slog) - protocol
// capture yields a machine-readable trace for debugging a session after
// the fact.
//
// # Basic Usage
//
// Components accept a Logger; pass nil or NoopLogger to disable capture:
//
//	// For development: mirror events to the console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For later analysis: write a binary trace file
//	cfg.Logger, _ = log.NewFileLogger("session.vlog")
//
//	// Both at once
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events (.vlog extension).
// Reader iterates a file, optionally filtered. Events never contain
// vault content: command payloads and response bodies are recorded by
// name, type, and size only.
package log
