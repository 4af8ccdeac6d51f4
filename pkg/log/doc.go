// Package log provides structured protocol capture for the Z-Wave stack.
//
// This package defines the Logger interface and Event types for recording
// what happens on the serial link and inside the membership handshake. It
// is separate from operational logging (slog): protocol capture is a
// complete machine-readable trace that can be replayed and analysed with
// the zwave-log tool.
//
// # Basic Usage
//
//	// During development: print events through slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// In production: write a binary capture file
//	logger, _ := log.NewFileLogger("/var/log/zwave/controller.zlog")
//
//	// Both
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at four layers:
//   - Transport: raw serial frames (FrameEvent) and ACK/NAK/CAN (ControlEvent)
//   - SerialAPI: decoded command and callback frames (CommandEvent, StatusEvent)
//   - Handshake: phase transitions, diagnostics and lifecycle events (HandshakeEvent)
//   - Session: session, port and watchdog state (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with the .zlog
// extension.
package log
