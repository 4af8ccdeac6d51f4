// Package connection keeps the controller's serial port open.
//
// A Link opens the port, wraps it in a transport.Conn and forwards the
// connection's status frames onto one stable channel. When the port fails
// (USB stick unplugged, device reset) the Link reopens it with exponential
// backoff and resumes forwarding:
//
//	delay(n) = min(Initial * Multiplier^n, Max) + random(0, delay * Jitter)
//
// Defaults are 500ms initial, doubling, capped at 30s, with 20% jitter.
// The backoff resets after every successful open.
//
// Frames that were in flight when the port dropped are lost; the session's
// handshake watchdog covers an inclusion or exclusion that never completes.
package connection
