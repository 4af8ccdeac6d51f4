// Package session runs inclusion and exclusion against a controller.
//
// A Session owns one handshake.Tracker and one processing goroutine. The
// goroutine drains the transport's status frames in order, feeds them to
// the tracker and delivers the resulting events to registered handlers
// before taking the next frame. Actions submitted with DoAction are
// encoded, tagged with a callback id and sent; a Start action first resets
// its operation on the processing goroutine so the tracker never has two
// writers.
//
// Each operation has a watchdog (failsafe.Timer). If a handshake does not
// finish in time the session sends the matching Stop, emits
// EventHandshakeTimeout and ignores that operation's callbacks until the
// next Start.
//
// Included nodes are kept in a registry that is saved to a
// persistence.NetworkStateStore when one is configured.
package session
