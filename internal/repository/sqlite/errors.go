package sqlite

import (
	"errors"
	"strings"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/marketplace-api/internal/apperror"
)

// translateUnique turns a UNIQUE constraint violation on users.username or
// users.email into apperror.Taken for that field. Any other error is
// returned unchanged.
func translateUnique(err error) error {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	// Extended result codes keep the primary code in the low byte.
	if sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}

	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return apperror.Taken("username")
	case strings.Contains(msg, "users.email"):
		return apperror.Taken("email")
	case strings.Contains(msg, "items.slug"):
		return apperror.Taken("slug")
	}
	return err
}
