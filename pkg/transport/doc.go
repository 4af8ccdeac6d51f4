// Package transport implements the Z-Wave serial API link layer.
//
// # Frame Format
//
// The host and the controller exchange single-byte control frames and
// variable-length data frames:
//
//	ACK  0x06   frame received
//	NAK  0x15   frame rejected (bad checksum)
//	CAN  0x18   collision; resend
//
//	┌─────┬─────┬──────┬──────┬──────────┬──────────┐
//	│ SOF │ LEN │ TYPE │ FUNC │ DATA ... │ CHECKSUM │
//	└─────┴─────┴──────┴──────┴──────────┴──────────┘
//
// SOF is 0x01. LEN counts TYPE, FUNC, DATA and CHECKSUM, so
// LEN = 3 + len(DATA). CHECKSUM is 0xFF XOR-ed with every byte from LEN
// through the last DATA byte.
//
// # Delivery
//
// Every data frame must be acknowledged. Conn.Send retransmits on NAK, CAN
// or ACK timeout, up to MaxAttempts times, waiting 100ms + n*1s before
// attempt n+1. The read loop ACKs each valid inbound data frame, NAKs frames
// with a bad checksum, and publishes membership callbacks in arrival order
// on Frames.
package transport
