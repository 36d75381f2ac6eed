package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/user-hobbies/internal/apperror"
)

// mapError classifies a driver error into the apperror taxonomy.
//
// op names the failed operation ("sqlstore: inserting user") and becomes the
// error message. The driver error is kept as the cause so it shows up in logs,
// but handlers never send it to clients.
//
// Errors that are already classified pass through untouched. sql.ErrNoRows is
// NOT handled here: each caller decides what "no row" means for its operation.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	if isConstraintViolation(err) {
		return apperror.Constraint(op, err)
	}
	return apperror.Persistence(op, err)
}

// isConstraintViolation reports whether err is a UNIQUE, FOREIGN KEY, NOT NULL
// or CHECK failure on either supported driver.
func isConstraintViolation(err error) bool {
	// SQLite extended result codes keep the primary code in the low byte,
	// e.g. SQLITE_CONSTRAINT_UNIQUE (2067) & 0xff == SQLITE_CONSTRAINT (19).
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}

	// Postgres SQLSTATE class 23 is "integrity constraint violation".
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}

	return false
}

// opf builds the "sqlstore: <operation>" message passed to mapError.
func opf(format string, args ...any) string {
	return "sqlstore: " + fmt.Sprintf(format, args...)
}
