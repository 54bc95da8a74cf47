// Package repotest provides an in-memory implementation of the repo interfaces
// for handler, service and client tests that do not need PostgreSQL.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/humon/server/internal/geo"
	"github.com/humon/server/internal/model"
	"github.com/humon/server/internal/repo"
)

// Store keeps users, events and attendances in memory. Unique constraints are
// enforced under a single mutex, mirroring the database indexes.
type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	users       map[int64]model.User
	events      map[int64]model.Event
	attendances map[int64]model.Attendance
	nextID      int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[int64]model.User),
		events:      make(map[int64]model.Event),
		attendances: make(map[int64]model.Attendance),
	}
}

func (s *Store) Users() repo.UserRepo             { return userStore{s} }
func (s *Store) Events() repo.EventRepo           { return eventStore{s} }
func (s *Store) Attendances() repo.AttendanceRepo { return attendanceStore{s} }

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// EventCount returns the number of stored events.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// AttendanceCount returns the number of stored attendances across all events.
func (s *Store) AttendanceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attendances)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type userStore struct{ s *Store }

func (u userStore) GetByID(_ context.Context, id int64) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("repotest.GetByID: %w", repo.ErrNotFound)
	}
	return user, nil
}

func (u userStore) GetByAuthToken(_ context.Context, authToken string) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if user.AuthToken == authToken {
			return user, nil
		}
	}
	return model.User{}, fmt.Errorf("repotest.GetByAuthToken: %w", repo.ErrNotFound)
}

func (u userStore) GetOrCreateByDeviceToken(_ context.Context, deviceToken, authToken string) (model.User, bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if user.DeviceToken == deviceToken {
			return user, false, nil
		}
	}
	for _, user := range u.s.users {
		if user.AuthToken == authToken {
			return model.User{}, false, fmt.Errorf("repotest.GetOrCreateByDeviceToken: duplicate auth token")
		}
	}
	now := u.s.now()
	user := model.User{
		ID:          u.s.id(),
		DeviceToken: deviceToken,
		AuthToken:   authToken,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	u.s.users[user.ID] = user
	return user, true, nil
}

func (u userStore) RotateAuthToken(_ context.Context, id int64, authToken string) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("repotest.RotateAuthToken: %w", repo.ErrNotFound)
	}
	user.AuthToken = authToken
	user.UpdatedAt = u.s.now()
	u.s.users[id] = user
	return user, nil
}

type eventStore struct{ s *Store }

func (e eventStore) Create(_ context.Context, event model.Event) (model.Event, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if _, ok := e.s.users[event.OwnerID]; !ok {
		return model.Event{}, fmt.Errorf("repotest.Event.Create: owner: %w", repo.ErrNotFound)
	}
	now := e.s.now()
	event.ID = e.s.id()
	event.CreatedAt = now
	event.UpdatedAt = now
	e.s.events[event.ID] = event
	return event, nil
}

func (e eventStore) GetByID(_ context.Context, id int64) (model.Event, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	event, ok := e.s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("repotest.Event.GetByID: %w", repo.ErrNotFound)
	}
	return event, nil
}

func (e eventStore) Update(_ context.Context, event model.Event) (model.Event, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	stored, ok := e.s.events[event.ID]
	if !ok || stored.OwnerID != event.OwnerID {
		return model.Event{}, fmt.Errorf("repotest.Event.Update: %w", repo.ErrNotFound)
	}
	event.CreatedAt = stored.CreatedAt
	event.UpdatedAt = e.s.now()
	e.s.events[event.ID] = event
	return event, nil
}

func (e eventStore) ListInBox(_ context.Context, box geo.Box) ([]model.Event, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	events := make([]model.Event, 0)
	for _, event := range e.s.events {
		if box.Contains(geo.Point{Lat: event.Lat, Lon: event.Lon}) {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

type attendanceStore struct{ s *Store }

func (a attendanceStore) Create(_ context.Context, eventID, userID int64) (model.Attendance, bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, ok := a.s.events[eventID]; !ok {
		return model.Attendance{}, false, fmt.Errorf("repotest.Attendance.Create: event: %w", repo.ErrNotFound)
	}
	if _, ok := a.s.users[userID]; !ok {
		return model.Attendance{}, false, fmt.Errorf("repotest.Attendance.Create: user: %w", repo.ErrNotFound)
	}
	for _, existing := range a.s.attendances {
		if existing.EventID == eventID && existing.UserID == userID {
			return existing, false, nil
		}
	}
	attendance := model.Attendance{
		ID:        a.s.id(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: a.s.now(),
	}
	a.s.attendances[attendance.ID] = attendance
	return attendance, true, nil
}

func (a attendanceStore) CountForEvent(_ context.Context, eventID int64) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	var n int
	for _, attendance := range a.s.attendances {
		if attendance.EventID == eventID {
			n++
		}
	}
	return n, nil
}
