package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/homenode/zwave-go/pkg/log"
)

// RunView prints matching events in human-readable form.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}

// formatEvent writes a header line and type-specific details.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timestampLayout)

	layer := event.Layer.String()
	if event.Category == log.CategoryControl {
		layer = "CTRL"
	}

	fmt.Fprintf(w, "%s [sess:%s] %-3s %s %s\n",
		ts, shortenSessionID(event.SessionID), event.Direction.String(), layer, eventType(event))
	if event.Port != "" {
		fmt.Fprintf(w, "  Port: %s\n", event.Port)
	}

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Control != nil:
		if event.Control.Attempt > 0 {
			fmt.Fprintf(w, "  Attempt: %d\n", event.Control.Attempt)
		}
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.Status != nil:
		formatStatusDetails(w, event.Status)
	case event.Handshake != nil:
		formatHandshakeDetails(w, event.Handshake)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatCommandDetails(w io.Writer, cmd *log.CommandEvent) {
	if cmd.Action != "" {
		fmt.Fprintf(w, "  Action: %s\n", cmd.Action)
	}
	fmt.Fprintf(w, "  Function: %s (0x%02X)\n", cmd.Frame.Function.String(), uint8(cmd.Frame.Function))
	fmt.Fprintf(w, "  Payload: %s\n", hex.EncodeToString(cmd.Frame.Payload))
	if cmd.CallbackID != 0 {
		fmt.Fprintf(w, "  CallbackID: %d\n", cmd.CallbackID)
	}
}

func formatStatusDetails(w io.Writer, st *log.StatusEvent) {
	f := st.Frame
	fmt.Fprintf(w, "  Function: %s (0x%02X)\n", f.Function.String(), uint8(f.Function))
	fmt.Fprintf(w, "  CallbackID: %d  Status: %d\n", f.CallbackID, f.Status)
	if len(f.Extra) > 0 {
		fmt.Fprintf(w, "  Extra: %s\n", hex.EncodeToString(f.Extra))
	}
}

func formatHandshakeDetails(w io.Writer, h *log.HandshakeEvent) {
	fmt.Fprintf(w, "  Operation: %s  Status: %d\n", h.Operation, h.Status)
	if h.From != "" || h.To != "" {
		fmt.Fprintf(w, "  %s -> %s\n", h.From, h.To)
	}
	if h.NodeID != 0 {
		fmt.Fprintf(w, "  Node: %d\n", h.NodeID)
	}
	fmt.Fprintf(w, "  Diagnostic: %s\n", h.Diagnostic)
	if h.Lifecycle != "" {
		fmt.Fprintf(w, "  Lifecycle: %s\n", h.Lifecycle)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}
