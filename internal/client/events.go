package client

import (
	"context"
	"net/http"
	"time"

	"github.com/humon/server/internal/geo"
)

type Ref struct {
	ID int64 `json:"id"`
}

type Event struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Owner     Ref        `json:"owner"`
}

// Point returns the event's coordinate, e.g. for placing a map annotation.
func (e Event) Point() geo.Point {
	return geo.Point{Lat: e.Lat, Lon: e.Lon}
}

// NewEvent is the body of a create request.
type NewEvent struct {
	Name      string     `json:"name"`
	Address   string     `json:"address,omitempty"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// EventPatch changes only the non-nil fields.
type EventPatch struct {
	Name      *string    `json:"name,omitempty"`
	Address   *string    `json:"address,omitempty"`
	Lat       *float64   `json:"lat,omitempty"`
	Lon       *float64   `json:"lon,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type Attendance struct {
	ID    int64 `json:"id"`
	Event Ref   `json:"event"`
	User  Ref   `json:"user"`
}

// Region is a visible map area: a center and the latitude span it shows.
type Region struct {
	Center        geo.Point
	LatitudeDelta float64
}

// RadiusKm approximates the search radius covering the region.
func (r Region) RadiusKm() float64 {
	return geo.RadiusFromLatitudeSpan(r.LatitudeDelta)
}

// CreateEvent creates an event owned by the session's user and returns its id.
func (c *Client) CreateEvent(ctx context.Context, s Session, e NewEvent) (int64, error) {
	var out Ref
	if err := c.authorized(ctx, s, http.MethodPost, "/v1/events", e, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) Event(ctx context.Context, s Session, id int64) (Event, error) {
	var out Event
	if err := c.authorized(ctx, s, http.MethodGet, eventPath(id), nil, &out); err != nil {
		return Event{}, err
	}
	return out, nil
}

// UpdateEvent applies patch. Only the owner may update an event; others get
// an APIError with status 403.
func (c *Client) UpdateEvent(ctx context.Context, s Session, id int64, patch EventPatch) error {
	return c.authorized(ctx, s, http.MethodPatch, eventPath(id), patch, nil)
}

// NearbyEvents lists events inside the region, nearest first. No events is an
// empty slice with a nil error.
func (c *Client) NearbyEvents(ctx context.Context, s Session, region Region) ([]Event, error) {
	return c.EventsWithin(ctx, s, region.Center, region.RadiusKm())
}

// EventsWithin lists events within radiusKm of center, nearest first.
func (c *Client) EventsWithin(ctx context.Context, s Session, center geo.Point, radiusKm float64) ([]Event, error) {
	out := make([]Event, 0)
	if err := c.authorized(ctx, s, http.MethodGet, nearestPath(center.Lat, center.Lon, radiusKm), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]Event, 0)
	}
	return out, nil
}

// Attend records the session's user as attending the event. Repeating the
// call returns the same attendance.
func (c *Client) Attend(ctx context.Context, s Session, eventID int64) (Attendance, error) {
	body := struct {
		Event Ref `json:"event"`
	}{Event: Ref{ID: eventID}}

	var out Attendance
	if err := c.authorized(ctx, s, http.MethodPost, "/v1/attendances", body, &out); err != nil {
		return Attendance{}, err
	}
	return out, nil
}
