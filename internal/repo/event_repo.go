package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/humon/server/internal/geo"
	"github.com/humon/server/internal/model"
)

// EventRepo defines the interface for event repository operations
type EventRepo interface {
	Create(ctx context.Context, event model.Event) (model.Event, error)
	GetByID(ctx context.Context, id int64) (model.Event, error)
	// Update rewrites the mutable fields of an event owned by event.OwnerID.
	// It returns ErrNotFound when no such (id, owner) row exists.
	Update(ctx context.Context, event model.Event) (model.Event, error)
	// ListInBox returns events whose coordinate lies in box, ordered by id.
	ListInBox(ctx context.Context, box geo.Box) ([]model.Event, error)
}

type eventRepo struct {
	db *sqlx.DB
}

// NewEventRepo creates a new EventRepo instance
func NewEventRepo(db *sqlx.DB) EventRepo {
	return &eventRepo{db: db}
}

const eventColumns = `id, name, address, lat, lon, started_at, ended_at, user_id, created_at, updated_at`

func (r *eventRepo) Create(ctx context.Context, event model.Event) (model.Event, error) {
	const op = "repo.event.Create"

	rows, err := r.db.NamedQueryContext(ctx, `
		INSERT INTO events (name, address, lat, lon, started_at, ended_at, user_id)
		VALUES (:name, :address, :lat, :lon, :started_at, :ended_at, :user_id)
		RETURNING `+eventColumns, event)
	if err != nil {
		if isPQCode(err, pqForeignKeyViolation) {
			return model.Event{}, fmt.Errorf("%s: owner: %w", op, ErrNotFound)
		}
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var created model.Event
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.Event{}, fmt.Errorf("%s: %w", op, err)
		}
		return model.Event{}, fmt.Errorf("%s: insert returned no row", op)
	}
	if err := rows.StructScan(&created); err != nil {
		return model.Event{}, fmt.Errorf("%s: scan: %w", op, err)
	}
	return created, nil
}

func (r *eventRepo) GetByID(ctx context.Context, id int64) (model.Event, error) {
	const op = "repo.event.GetByID"

	var event model.Event
	err := r.db.GetContext(ctx, &event, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return event, nil
}

func (r *eventRepo) Update(ctx context.Context, event model.Event) (model.Event, error) {
	const op = "repo.event.Update"

	var updated model.Event
	err := r.db.GetContext(ctx, &updated, `
		UPDATE events
		SET name = $3, address = $4, lat = $5, lon = $6, started_at = $7, ended_at = $8, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+eventColumns,
		event.ID, event.OwnerID, event.Name, event.Address, event.Lat, event.Lon, event.StartedAt, event.EndedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (r *eventRepo) ListInBox(ctx context.Context, box geo.Box) ([]model.Event, error) {
	const op = "repo.event.ListInBox"

	var events []model.Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT `+eventColumns+`
		FROM events
		WHERE lat BETWEEN $1 AND $2
		  AND lon BETWEEN $3 AND $4
		ORDER BY id`,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if events == nil {
		events = make([]model.Event, 0)
	}
	return events, nil
}
