package pg

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// FormatDBError renders a query failure for the model. Structured server
// errors include the where-clause context and hint when the server sent them.
func FormatDBError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		out := fmt.Sprintf("Failed to execute query: %s", pgErr.Message)
		if pgErr.Where != "" {
			out += fmt.Sprintf(", where: %s", pgErr.Where)
		}
		if pgErr.Hint != "" {
			out += fmt.Sprintf(", hint: %s", pgErr.Hint)
		}
		return out
	}
	return fmt.Sprintf("Failed to execute query: %s", err)
}
