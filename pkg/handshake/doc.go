// Package handshake interprets the controller's asynchronous status
// callbacks during inclusion and exclusion.
//
// A Tracker keeps one Phase per operation. Each RawStatusFrame is mapped
// through a closed status table to a phase, the node id is validated for
// node-carrying phases, and the result is returned as an Outcome that may
// carry a lifecycle Event:
//
//	inclusion: LearnReady -> NodeFound -> AddingSlave|AddingController -> ProtocolDone -> Done
//	exclusion: LearnReady -> NodeFound -> RemovingSlave|RemovingController -> Done
//
// Either operation may report Failed at any point. Done and Failed return
// the operation to Idle. Inclusion and exclusion are tracked independently.
//
// Unrecognized status bytes and placeholder node ids are reported as
// diagnostics, never as errors.
//
// A Tracker is not safe for concurrent use. It is meant to be owned by a
// single goroutine that feeds it frames in arrival order.
package handshake
