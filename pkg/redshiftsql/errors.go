package redshiftsql

import (
	"fmt"

	"github.com/pingcap/errors"
	"github.com/sparkify/dwhetl/pkg/catalog"
)

// ErrConnect is returned when the cluster can not be reached.
var ErrConnect = errors.Normalize("failed to connect to Redshift at %s:%d: %v",
	errors.RFCCodeText("DWH:Warehouse:ErrConnect"))

// StatementError is returned when the warehouse rejects a statement.
type StatementError struct {
	Kind  catalog.Kind
	Name  string
	Table string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s statement %s on table %s failed: %v", e.Kind, e.Name, e.Table, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}
