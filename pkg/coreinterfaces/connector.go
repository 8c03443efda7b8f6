package coreinterfaces

import (
	"context"
	"time"

	"github.com/sparkify/dwhetl/pkg/catalog"
)

/// Connector is the interface for the Data Warehouse connection.
/// Every statement of a run goes through one Connector, one statement at a time.

type Connector interface {
	// ExecStatement executes the statement in its own transaction and commits it
	ExecStatement(ctx context.Context, stmt catalog.Statement) error
	// CountRows returns the number of rows in table
	CountRows(ctx context.Context, table string) (int64, error)
	// Close closes the connection to the Data Warehouse
	Close() error
}

/// StatementObserver is notified around every executed statement.

type StatementObserver interface {
	OnStatementStart(stmt catalog.Statement)
	OnStatementDone(stmt catalog.Statement, elapsed time.Duration, err error)
}
