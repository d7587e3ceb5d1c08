package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger. Useful during
// development when you want to watch the session on the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter that writes to the given
// slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("transport", event.Transport.String()),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Command != nil:
		attrs = append(attrs,
			slog.String("command", event.Command.Name),
		)
		if event.Command.CorrelationID != "" {
			attrs = append(attrs, slog.String("corr_id", event.Command.CorrelationID))
		}
		if event.Command.Size > 0 {
			attrs = append(attrs, slog.Int("size", event.Command.Size))
		}
	case event.Response != nil:
		attrs = append(attrs,
			slog.String("resp_type", event.Response.Type),
			slog.Bool("push", event.Response.Push),
		)
		if event.Response.CorrelationID != "" {
			attrs = append(attrs, slog.String("corr_id", event.Response.CorrelationID))
		}
		if event.Response.Size > 0 {
			attrs = append(attrs, slog.Int("size", event.Response.Size))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Signal != nil:
		attrs = append(attrs, slog.String("signal_type", event.Signal.Type))
		if event.Signal.Peer != "" {
			attrs = append(attrs, slog.String("peer", event.Signal.Peer))
		}
	case event.Error != nil:
		attrs = append(attrs, slog.String("error_msg", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
