package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	apperrors "user-events-service/pkg/errors"
)

// classify turns a store failure into a pipeline error. Errors that already
// carry a kind pass through untouched.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return apperrors.NewTransportError(message+": store operation timed out", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewTransportError(message+": operation cancelled", err)
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, driver.ErrBadConn):
		return apperrors.NewTransportError(message+": store connection lost", err)
	}

	return apperrors.NewTransportError(message, err)
}

// storeFields returns log fields describing a store error.
func storeFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields = append(fields,
			zap.String("sqlstate", pgErr.Code),
			zap.String("constraint", pgErr.ConstraintName),
		)
	}
	return fields
}
