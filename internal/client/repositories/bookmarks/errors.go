package bookmarks

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapError folds driver errors into the common sentinels: SQLSTATE 42501 and
// class 28 become ErrUnauthorized; check violations (23514) become
// ErrValidation; connection failures, class 08 and deadlines become
// ErrUnavailable. Anything else is wrapped unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrNoSession) || errors.Is(err, common.ErrValidation) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501", len(pgErr.Code) == 5 && pgErr.Code[:2] == "28":
			return fmt.Errorf("%w: %s", common.ErrUnauthorized, pgErr.Message)
		case pgErr.Code == "23514":
			return fmt.Errorf("%w: %s", common.ErrValidation, pgErr.ConstraintName)
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "08":
			return fmt.Errorf("%w: %s", common.ErrUnavailable, pgErr.Message)
		}
		return fmt.Errorf("db error: %w", err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	return fmt.Errorf("db error: %w", err)
}
