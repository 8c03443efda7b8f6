package coreinterfaces

import (
	"context"
	"database/sql"
)

/// Config is the interface for warehouse configuration

type Config interface {
	// OpenDB opens and verifies a connection to the warehouse
	OpenDB(ctx context.Context) (*sql.DB, error)
}
