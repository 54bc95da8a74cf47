package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/humon/server/internal/model"
)

// AttendanceRepo defines the interface for attendance repository operations
type AttendanceRepo interface {
	// Create records that userID attends eventID. A second call for the same pair
	// returns the existing row with created=false; the unique index on
	// (event_id, user_id) makes this safe under concurrent requests.
	Create(ctx context.Context, eventID, userID int64) (attendance model.Attendance, created bool, err error)
	CountForEvent(ctx context.Context, eventID int64) (int, error)
}

type attendanceRepo struct {
	db *sqlx.DB
}

// NewAttendanceRepo creates a new AttendanceRepo instance
func NewAttendanceRepo(db *sqlx.DB) AttendanceRepo {
	return &attendanceRepo{db: db}
}

const attendanceColumns = `id, event_id, user_id, created_at`

func (r *attendanceRepo) Create(ctx context.Context, eventID, userID int64) (model.Attendance, bool, error) {
	const op = "repo.attendance.Create"

	var attendance model.Attendance
	err := r.db.GetContext(ctx, &attendance, `
		INSERT INTO attendances (event_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (event_id, user_id) DO NOTHING
		RETURNING `+attendanceColumns, eventID, userID)
	if err == nil {
		return attendance, true, nil
	}
	if isPQCode(err, pqForeignKeyViolation) {
		return model.Attendance{}, false, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Attendance{}, false, fmt.Errorf("%s: insert: %w", op, err)
	}

	err = r.db.GetContext(ctx, &attendance, `
		SELECT `+attendanceColumns+` FROM attendances
		WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return model.Attendance{}, false, fmt.Errorf("%s: select: %w", op, err)
	}
	return attendance, false, nil
}

func (r *attendanceRepo) CountForEvent(ctx context.Context, eventID int64) (int, error) {
	const op = "repo.attendance.CountForEvent"

	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM attendances WHERE event_id = $1`, eventID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
