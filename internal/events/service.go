// Package events manages events, the proximity query over them and the
// attendances users record against them.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/humon/server/internal/geo"
	"github.com/humon/server/internal/lib/logger/sl"
	"github.com/humon/server/internal/metrics"
	"github.com/humon/server/internal/model"
	"github.com/humon/server/internal/repo"
)

type Service struct {
	log         *slog.Logger
	events      repo.EventRepo
	attendances repo.AttendanceRepo
	metrics     *metrics.Metrics
	validate    *validator.Validate
}

func NewService(log *slog.Logger, events repo.EventRepo, attendances repo.AttendanceRepo, m *metrics.Metrics) *Service {
	return &Service{
		log:         log,
		events:      events,
		attendances: attendances,
		metrics:     m,
		validate:    newValidator(),
	}
}

// Create stores a new event owned by owner. Nothing is stored unless every
// field passes validation.
func (s *Service) Create(ctx context.Context, owner model.User, in EventInput) (model.Event, error) {
	const op = "events.Create"

	var fields eventFields
	fields.apply(in)
	if err := check(s.validate, fields); err != nil {
		s.metrics.EventWrites.WithLabelValues("create", "invalid").Inc()
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	event, err := s.events.Create(ctx, fields.event(0, owner.ID))
	if err != nil {
		s.metrics.EventWrites.WithLabelValues("create", "error").Inc()
		s.log.Error("failed to create event", slog.String("op", op), sl.Err(err))
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.EventWrites.WithLabelValues("create", "ok").Inc()
	s.log.Info("event created",
		slog.String("op", op),
		slog.Int64("event_id", event.ID),
		slog.Int64("user_id", owner.ID),
	)
	return event, nil
}

func (s *Service) Get(ctx context.Context, id int64) (model.Event, error) {
	const op = "events.Get"

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Event{}, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return event, nil
}

// Update applies the fields present in in to the event. Only the owner may
// update; the merged result must pass the same validation as Create.
func (s *Service) Update(ctx context.Context, actor model.User, id int64, in EventInput) (model.Event, error) {
	const op = "events.Update"
	log := s.log.With(slog.String("op", op), slog.Int64("event_id", id))

	existing, err := s.Get(ctx, id)
	if err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	if !existing.OwnedBy(actor) {
		s.metrics.EventWrites.WithLabelValues("update", "forbidden").Inc()
		log.Warn("non-owner update rejected", slog.Int64("user_id", actor.ID))
		return model.Event{}, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	fields := fieldsFromEvent(existing)
	fields.apply(in)
	if err := check(s.validate, fields); err != nil {
		s.metrics.EventWrites.WithLabelValues("update", "invalid").Inc()
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.events.Update(ctx, fields.event(existing.ID, existing.OwnerID))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Event{}, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		s.metrics.EventWrites.WithLabelValues("update", "error").Inc()
		log.Error("failed to update event", sl.Err(err))
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.EventWrites.WithLabelValues("update", "ok").Inc()
	return updated, nil
}

// Nearest returns the events within the query radius, nearest first. No
// matches is an empty, non-nil slice.
func (s *Service) Nearest(ctx context.Context, p NearestParams) ([]model.Event, error) {
	const op = "events.Nearest"

	if err := check(s.validate, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	center := geo.Point{Lat: *p.Lat, Lon: *p.Lon}

	candidates, err := s.events.ListInBox(ctx, geo.BoundingBox(center, *p.Radius))
	if err != nil {
		s.log.Error("failed to list events", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ranked := geo.Nearest(center, *p.Radius, candidates, func(e model.Event) geo.Point {
		return geo.Point{Lat: e.Lat, Lon: e.Lon}
	})
	out := make([]model.Event, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Item)
	}
	return out, nil
}

// Attend records that user plans to attend the event. Repeating the call
// returns the existing attendance with created false.
func (s *Service) Attend(ctx context.Context, user model.User, eventID int64) (model.Attendance, bool, error) {
	const op = "events.Attend"

	if eventID <= 0 {
		return model.Attendance{}, false, fmt.Errorf("%s: %w", op, &ValidationError{
			Errors: []string{"Event can't be blank"},
		})
	}
	if _, err := s.Get(ctx, eventID); err != nil {
		return model.Attendance{}, false, fmt.Errorf("%s: %w", op, err)
	}

	attendance, created, err := s.attendances.Create(ctx, eventID, user.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Attendance{}, false, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		s.log.Error("failed to record attendance", slog.String("op", op), sl.Err(err))
		return model.Attendance{}, false, fmt.Errorf("%s: %w", op, err)
	}

	if created {
		s.metrics.Attendances.WithLabelValues("created").Inc()
		s.log.Info("attendance recorded",
			slog.String("op", op),
			slog.Int64("event_id", eventID),
			slog.Int64("user_id", user.ID),
		)
	} else {
		s.metrics.Attendances.WithLabelValues("existing").Inc()
	}
	return attendance, created, nil
}
