// Package etl loads the staging tables from S3 and transforms them into the
// star schema.
package etl

import (
	"context"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/sparkify/dwhetl/pkg/catalog"
	"github.com/sparkify/dwhetl/pkg/coreinterfaces"
	"github.com/sparkify/dwhetl/pkg/metrics"
	"go.uber.org/zap"
)

type Runner struct {
	conn    coreinterfaces.Connector
	catalog *catalog.Catalog
	metrics *metrics.Metrics
}

// NewRunner returns a Runner. m may be nil.
func NewRunner(conn coreinterfaces.Connector, c *catalog.Catalog, m *metrics.Metrics) *Runner {
	return &Runner{conn: conn, catalog: c, metrics: m}
}

// Run loads the staging tables, then fills the star schema from them.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.LoadStaging(ctx); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(r.TransformAndInsert(ctx))
}

// LoadStaging copies the event log, then the song catalog, into staging tables.
func (r *Runner) LoadStaging(ctx context.Context) error {
	for _, stmt := range r.catalog.Load {
		if err := r.conn.ExecStatement(ctx, stmt); err != nil {
			return errors.Annotate(err, "failed to load staging tables")
		}
	}
	log.Info("Loaded staging tables", zap.Int("count", len(r.catalog.Load)))
	return nil
}

// TransformAndInsert fills the dimension tables, then the fact table.
func (r *Runner) TransformAndInsert(ctx context.Context) error {
	for _, stmt := range r.catalog.Insert {
		if err := r.conn.ExecStatement(ctx, stmt); err != nil {
			return errors.Annotate(err, "failed to insert data into tables")
		}
	}
	log.Info("Inserted data into tables", zap.Int("count", len(r.catalog.Insert)))
	return nil
}

// Report counts the rows of every star schema table.
func (r *Runner) Report(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(catalog.StarSchemaTables))
	for _, table := range catalog.StarSchemaTables {
		n, err := r.conn.CountRows(ctx, table)
		if err != nil {
			return nil, errors.Trace(err)
		}
		counts[table] = n
		r.metrics.SetTableRows(table, n)
		log.Info("Table row count", zap.String("table", table), zap.Int64("rows", n))
	}
	return counts, nil
}
