package db

import (
	"strings"

	"github.com/meridian-news/meridian-ml/errors"
)

// ErrDatabaseClosed marks work attempted after the cache database closed,
// typically a cache write racing shutdown.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or the
// database/sql error for a closed pool, which the driver does not wrap.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
