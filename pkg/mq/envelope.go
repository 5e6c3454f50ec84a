package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Version    int             `json:"version"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func NewEnvelope(event string, v any) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Event:      event,
		Version:    1,
		OccurredAt: time.Now().UTC(),
		Data:       b,
	}, nil
}

// Decode unwraps a message body into its envelope and typed payload.
func Decode[T any](body []byte) (Envelope, T, error) {
	var (
		env Envelope
		t   T
	)
	if err := json.Unmarshal(body, &env); err != nil {
		return env, t, fmt.Errorf("decode envelope failed: %w", err)
	}
	if len(env.Data) == 0 {
		return env, t, fmt.Errorf("decode %s: empty data", env.Event)
	}
	if err := json.Unmarshal(env.Data, &t); err != nil {
		return env, t, fmt.Errorf("decode %s payload failed: %w", env.Event, err)
	}
	return env, t, nil
}
