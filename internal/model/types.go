package model

import (
	"time"
)

// User is an identity issued to a single device
type User struct {
	ID          int64     `db:"id"`
	DeviceToken string    `db:"device_token"`
	AuthToken   string    `db:"auth_token"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Event is a located happening owned by the user who created it
type Event struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Address   string     `db:"address"`
	Lat       float64    `db:"lat"`
	Lon       float64    `db:"lon"`
	StartedAt time.Time  `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
	OwnerID   int64      `db:"user_id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// OwnedBy reports whether the user is the event's owner
func (e Event) OwnedBy(u User) bool {
	return u.ID != 0 && e.OwnerID == u.ID
}

// Attendance links a user to an event they RSVP'd to. Unique per (EventID, UserID).
type Attendance struct {
	ID        int64     `db:"id"`
	EventID   int64     `db:"event_id"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}
