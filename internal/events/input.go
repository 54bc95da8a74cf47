package events

import (
	"encoding/json"
	"time"
)

// Optional records whether a JSON field was present and, if so, its value.
// A present null leaves Value nil with Set true, which lets a partial update
// tell "clear this field" apart from "leave it alone".
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// EventInput is the request body for creating or updating an event. Any owner
// supplied by the client is not part of the schema and is ignored.
type EventInput struct {
	Name      Optional[string]    `json:"name"`
	Address   Optional[string]    `json:"address"`
	Lat       Optional[float64]   `json:"lat"`
	Lon       Optional[float64]   `json:"lon"`
	StartedAt Optional[time.Time] `json:"started_at"`
	EndedAt   Optional[time.Time] `json:"ended_at"`
}

// AttendanceInput is the request body for RSVPing to an event.
type AttendanceInput struct {
	Event struct {
		ID int64 `json:"id"`
	} `json:"event"`
}
