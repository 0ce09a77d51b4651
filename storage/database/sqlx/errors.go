package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"

	"github.com/pkg/errors"

	"github.com/tmalela/elimisha/core"
)

// queryErr wraps a query execution error. A dead connection cannot be
// recovered from within a request; it becomes a shutdown error so the server
// stops gracefully instead of failing every request that follows.
func queryErr(err error, msg string) error {
	switch errors.Cause(err) {
	case driver.ErrBadConn, sql.ErrConnDone:
		return core.NewShutdownError(msg + ": " + err.Error())
	}
	return errors.Wrap(err, msg)
}
