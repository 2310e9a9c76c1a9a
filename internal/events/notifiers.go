package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes every event to a structured logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Info().
		Str("event_id", event.ID.String()).
		Str("topic", event.Topic).
		Str("register_id", event.AggregateID.String()).
		RawJSON("payload", event.Payload).
		Msg("register_event")
	return nil
}
