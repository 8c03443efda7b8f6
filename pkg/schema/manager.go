// Package schema resets the warehouse tables of a full refresh.
package schema

import (
	"context"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/sparkify/dwhetl/pkg/catalog"
	"github.com/sparkify/dwhetl/pkg/coreinterfaces"
	"go.uber.org/zap"
)

// Manager drops and recreates every table of the catalog. Prior data is lost.
type Manager struct {
	conn    coreinterfaces.Connector
	catalog *catalog.Catalog
}

func NewManager(conn coreinterfaces.Connector, c *catalog.Catalog) *Manager {
	return &Manager{conn: conn, catalog: c}
}

// ResetSchema drops every table, then creates every table. The first failing
// statement stops the reset; statements already run stay committed.
func (m *Manager) ResetSchema(ctx context.Context) error {
	if err := m.DropTables(ctx); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(m.CreateTables(ctx))
}

func (m *Manager) DropTables(ctx context.Context) error {
	if err := execAll(ctx, m.conn, m.catalog.Drop); err != nil {
		return errors.Annotate(err, "failed to drop tables")
	}
	log.Info("Dropped tables (if they existed)", zap.Int("count", len(m.catalog.Drop)))
	return nil
}

func (m *Manager) CreateTables(ctx context.Context) error {
	if err := execAll(ctx, m.conn, m.catalog.Create); err != nil {
		return errors.Annotate(err, "failed to create tables")
	}
	log.Info("Created tables", zap.Int("count", len(m.catalog.Create)))
	return nil
}

func execAll(ctx context.Context, conn coreinterfaces.Connector, stmts []catalog.Statement) error {
	for _, stmt := range stmts {
		if err := conn.ExecStatement(ctx, stmt); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
