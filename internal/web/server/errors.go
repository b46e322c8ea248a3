package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/pawbazaar/querykit/internal/orm/coerce"
	"github.com/pawbazaar/querykit/internal/orm/filter"
	"github.com/pawbazaar/querykit/internal/orm/query"
	"github.com/pawbazaar/querykit/internal/orm/relationships"
	"github.com/pawbazaar/querykit/internal/orm/sorting"
	"github.com/pawbazaar/querykit/internal/orm/store/sqlstore"
	webquery "github.com/pawbazaar/querykit/internal/web/query"
)

var (
	errNotFound = errors.New("listing not found")
	errInternal = errors.New("an unexpected error occurred")
	errTimeout  = errors.New("the query took too long")
)

// clientErrors maps the errors a caller can cause to their response codes
var clientErrors = []struct {
	target error
	code   string
}{
	{webquery.ErrInvalidParameter, "invalid_parameter"},
	{sorting.ErrInvalidPage, "invalid_page"},
	{coerce.ErrCoercion, "invalid_filter_value"},
	{filter.ErrUnsupportedOperator, "unsupported_operator"},
	{query.ErrUnknownScope, "unknown_scope"},
	{relationships.ErrUnknownRelationship, "unknown_include"},
	{sqlstore.ErrUntranslatable, "unsupported_query"},
	{sqlstore.ErrInvalidQuery, "invalid_query"},
}

// classify returns the status and code for err. Unknown errors are server
// errors.
func classify(err error) (int, string) {
	for _, ce := range clientErrors {
		if errors.Is(err, ce.target) {
			return http.StatusBadRequest, ce.code
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}
