package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUntranslatable is returned at materialization when part of a query
	// has no SQL form: closure predicates or orderings, collection fields and
	// nested paths
	ErrUntranslatable = errors.New("query could not be translated to SQL")

	// ErrInvalidQuery is returned when the database rejects a generated
	// statement or one of its arguments
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNoColumns is returned for entity types without any mappable column
	ErrNoColumns = errors.New("entity type has no columns")
)

func untranslatable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUntranslatable, fmt.Sprintf(format, args...))
}

// convertDBError maps driver errors onto package errors
func convertDBError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "22"): // data_exception
			return fmt.Errorf("%w: %s", ErrInvalidQuery, pgErr.Message)
		case strings.HasPrefix(pgErr.Code, "42"): // syntax_error_or_access_rule_violation
			return fmt.Errorf("%w: %s (%s)", ErrInvalidQuery, pgErr.Message, pgErr.Code)
		}
	}

	return err
}
