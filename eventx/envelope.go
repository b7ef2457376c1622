package eventx

import (
	"encoding/json"
	"time"
)

// Envelope is the queue form of an event. Consumers can route on Type and
// Subject before they decide how to decode Data.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Source     string          `json:"source"`
	Version    string          `json:"version"`
	Subject    string          `json:"subject,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func serializationFailed(err error, id, eventType string) error {
	return ErrorRegistry.New(ErrSerializationFailed).
		WithCause(err).
		WithDetail("event_id", id).
		WithDetail("event_type", eventType)
}

// Seal wraps an event for the wire
func Seal(e Event) ([]byte, error) {
	data, err := json.Marshal(e.Payload())
	if err != nil {
		return nil, serializationFailed(err, e.ID(), e.Type())
	}
	body, err := json.Marshal(Envelope{
		ID:         e.ID(),
		Type:       e.Type(),
		OccurredAt: e.OccurredAt(),
		Source:     e.Source(),
		Version:    e.Version(),
		Subject:    e.Subject(),
		Data:       data,
	})
	if err != nil {
		return nil, serializationFailed(err, e.ID(), e.Type())
	}
	return body, nil
}

// Peek reads the envelope without decoding the payload
func Peek(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, serializationFailed(err, "", "")
	}
	return env, nil
}

// Open decodes a sealed event whose payload is a T
func Open[T any](body []byte) (TypedEvent[T], error) {
	env, err := Peek(body)
	if err != nil {
		return nil, err
	}
	var data T
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, serializationFailed(err, env.ID, env.Type)
	}
	return &event[T]{
		header:     header{source: env.Source, version: env.Version, subject: env.Subject},
		id:         env.ID,
		eventType:  env.Type,
		occurredAt: env.OccurredAt,
		data:       data,
	}, nil
}
