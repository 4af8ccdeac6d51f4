package log

import (
	"github.com/rs/zerolog"
)

// ZerologAdapter writes protocol events to a zerolog.Logger at Debug level.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a ZerologAdapter writing to logger.
func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

// Log writes the event as a single "protocol" record.
func (a *ZerologAdapter) Log(event Event) {
	e := a.logger.Debug().
		Str("session_id", event.SessionID).
		Str("direction", event.Direction.String()).
		Str("layer", event.Layer.String()).
		Str("category", event.Category.String())
	if event.Port != "" {
		e = e.Str("port", event.Port)
	}

	if h := event.Handshake; h != nil {
		e = e.Str("operation", h.Operation).
			Str("from", h.From).
			Str("to", h.To).
			Uint8("status", h.Status).
			Str("diagnostic", h.Diagnostic)
		if h.NodeID != 0 {
			e = e.Uint8("node_id", h.NodeID)
		}
		if h.Lifecycle != "" {
			e = e.Str("lifecycle", h.Lifecycle)
		}
	} else if s := Summary(event); s != "" {
		e = e.Str("detail", s)
	}

	e.Msg("protocol")
}

var _ Logger = (*ZerologAdapter)(nil)
