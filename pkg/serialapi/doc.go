// Package serialapi defines the Z-Wave serial API types used for network
// membership management.
//
// The controller firmware is driven by command frames: a function
// identifier, a frame type (request or response) and a payload. While an
// inclusion or exclusion is running, the controller reports progress with
// callback requests carrying the same function identifier and a status
// byte.
//
// # Function Identifiers
//
// Only the two membership functions are modelled here:
//   - AddNodeToNetwork (0x4A): inclusion
//   - RemoveNodeFromNetwork (0x4B): exclusion
//
// # Callback Layout
//
// A membership callback payload is laid out as:
//
//	[callbackID, status, nodeID, infoLen, info...]
//
// ParseStatusFrame splits it into a RawStatusFrame whose Extra bytes start
// right after the status byte, so the node id is Extra[NodeIDOffset].
//
// # Node Identifiers
//
// Valid node ids are 1 through 232. Controllers report 0 (or other
// out-of-range values) as a placeholder in early handshake phases.
//
// Struct fields carry CBOR integer-key tags so the types can be embedded
// directly in protocol log events.
package serialapi
