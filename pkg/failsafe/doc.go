// Package failsafe implements the handshake watchdog.
//
// The controller never times out an inclusion or exclusion on its own: once
// started it keeps listening until told to stop. A Timer is armed when a
// Start action is sent and disarmed when the handshake reaches Done or
// Failed, or when a Stop action is sent. If it expires first, the owner
// issues the matching Stop and ignores further callbacks for that
// operation until the next Start.
//
// # Duration
//
// Configurable range: 5 seconds to 10 minutes (default: 60 seconds).
//
// # Timer Behavior
//
//   - Arm starts the countdown, or restarts it if already armed
//   - Disarm cancels the countdown and clears an expiry
//   - Expiry fires the OnExpire callback once per Arm
package failsafe
