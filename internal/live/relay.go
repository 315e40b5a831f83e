package live

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"example.com/feedboard/internal/events"
)

// Reader exposes the minimal kafka.Reader interface needed by the relay.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Relay pulls feed events from Kafka and publishes them to the Hub, so every
// API instance streams entries posted through any instance.
type Relay struct {
	reader Reader
	hub    *Hub
	logger zerolog.Logger
}

// NewRelay constructs a Relay.
func NewRelay(reader Reader, hub *Hub, logger zerolog.Logger) *Relay {
	return &Relay{reader: reader, hub: hub, logger: logger}
}

// Run starts a blocking loop that relays Kafka messages until the context is
// cancelled. Malformed messages are committed and counted, never retried.
func (r *Relay) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			r.logger.Error().Err(err).Msg("relay fetch failed")
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			r.logger.Error().Err(decodeErr).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("relay decode failed")
			decodeErrorCounter.WithLabelValues(msg.Topic).Inc()
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := r.reader.CommitMessages(ctx, msg); commitErr != nil {
				r.logger.Error().Err(commitErr).Msg("relay commit after decode failure")
			}
			continue
		}

		r.hub.Publish(event)

		if commitErr := r.reader.CommitMessages(ctx, msg); commitErr != nil {
			r.logger.Error().Err(commitErr).Msg("relay commit failed")
		} else {
			recordRelayed(msg.Topic, msg.Time)
		}
	}
}

func decodeMessage(msg kafka.Message) (events.EntryCreated, error) {
	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return events.EntryCreated{}, errors.New("missing event_type header")
	}
	if string(eventType) != events.EventTypeEntryCreated {
		return events.EntryCreated{}, errors.New("unexpected event_type: " + string(eventType))
	}

	var event events.EntryCreated
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return events.EntryCreated{}, err
	}
	if event.EntryID == "" {
		return events.EntryCreated{}, errors.New("event missing entry_id")
	}
	return event, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
