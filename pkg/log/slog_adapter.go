package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event as a single "protocol" record.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Port != "" {
		attrs = append(attrs, slog.String("port", event.Port))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.String("frame", hexBytes(event.Frame.Data)),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Control != nil:
		attrs = append(attrs, slog.String("ctrl_type", event.Control.Type.String()))
		if event.Control.Attempt > 0 {
			attrs = append(attrs, slog.Int("attempt", event.Control.Attempt))
		}
	case event.Command != nil:
		attrs = append(attrs,
			slog.String("function", event.Command.Frame.Function.String()),
			slog.String("payload", hexBytes(event.Command.Frame.Payload)),
			slog.Int("callback_id", int(event.Command.CallbackID)),
		)
		if event.Command.Action != "" {
			attrs = append(attrs, slog.String("action", event.Command.Action))
		}
	case event.Status != nil:
		attrs = append(attrs,
			slog.String("function", event.Status.Frame.Function.String()),
			slog.Int("callback_id", int(event.Status.Frame.CallbackID)),
			slog.Int("status", int(event.Status.Frame.Status)),
			slog.String("extra", hexBytes(event.Status.Frame.Extra)),
		)
	case event.Handshake != nil:
		h := event.Handshake
		attrs = append(attrs,
			slog.String("operation", h.Operation),
			slog.String("from", h.From),
			slog.String("to", h.To),
			slog.Int("status", int(h.Status)),
			slog.String("diagnostic", h.Diagnostic),
		)
		if h.NodeID != 0 {
			attrs = append(attrs, slog.Int("node_id", int(h.NodeID)))
		}
		if h.Lifecycle != "" {
			attrs = append(attrs, slog.String("lifecycle", h.Lifecycle))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
