package log

import "encoding/hex"

// hexBytes renders b as lowercase hex for text sinks.
func hexBytes(b []byte) string {
	return hex.EncodeToString(b)
}

// Summary returns a one-line description of the event payload, used by
// console sinks and the zwave-log viewer.
func Summary(event Event) string {
	switch {
	case event.Frame != nil:
		s := "frame " + hexBytes(event.Frame.Data)
		if event.Frame.Truncated {
			s += "..."
		}
		return s
	case event.Control != nil:
		return event.Control.Type.String()
	case event.Command != nil:
		return "command " + event.Command.Frame.String()
	case event.Status != nil:
		return "status " + event.Status.Frame.String()
	case event.Handshake != nil:
		h := event.Handshake
		s := h.Operation + " " + h.From + " -> " + h.To + " " + h.Diagnostic
		if h.Lifecycle != "" {
			s += " " + h.Lifecycle
		}
		return s
	case event.StateChange != nil:
		s := event.StateChange.Entity.String() + " " + event.StateChange.OldState + " -> " + event.StateChange.NewState
		if event.StateChange.Reason != "" {
			s += " (" + event.StateChange.Reason + ")"
		}
		return s
	case event.Error != nil:
		return "error: " + event.Error.Message
	default:
		return ""
	}
}
