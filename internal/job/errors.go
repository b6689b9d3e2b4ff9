package job

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"dwh/internal/dds"
	"dwh/internal/normalize"
)

// ErrSkip marks a message that can never be processed. It is acknowledged
// and the batch continues.
var ErrSkip = errors.New("skip message")

// Skip wraps err so that IsSkip reports true.
func Skip(err error) error { return fmt.Errorf("%w: %w", ErrSkip, err) }

func IsSkip(err error) bool { return errors.Is(err, ErrSkip) }

// IsConnectivity reports errors after which the current batch must stop:
// the warehouse connection is unusable or the batch was cancelled.
func IsConnectivity(err error) bool {
	var netErr net.Error
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr)
}

// classify turns input validation failures into skips.
func classify(err error) error {
	if err == nil || IsSkip(err) {
		return err
	}
	if errors.Is(err, normalize.ErrInvalidEvent) ||
		errors.Is(err, normalize.ErrUnexpectedType) ||
		errors.Is(err, dds.ErrInvalidOrder) {
		return Skip(err)
	}
	return err
}
