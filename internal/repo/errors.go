package repo

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("record not found")
)

const pqForeignKeyViolation = "23503"

func isPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
