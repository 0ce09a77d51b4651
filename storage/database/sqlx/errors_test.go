package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"testing"

	"github.com/pkg/errors"

	"github.com/tmalela/elimisha/core"
)

func Test_queryErr(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantShutdown bool
	}{
		{name: "bad connection", err: driver.ErrBadConn, wantShutdown: true},
		{name: "closed connection", err: sql.ErrConnDone, wantShutdown: true},
		{name: "wrapped bad connection", err: errors.Wrap(driver.ErrBadConn, "pinging"), wantShutdown: true},
		{name: "ordinary error", err: io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := queryErr(tt.err, "getting account")
			if got := core.IsShutdown(err); got != tt.wantShutdown {
				t.Errorf("IsShutdown() = %v, want %v; err %v", got, tt.wantShutdown, err)
			}
		})
	}
}
