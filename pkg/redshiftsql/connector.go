package redshiftsql

import (
	"context"
	"database/sql"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/sparkify/dwhetl/pkg/catalog"
	"github.com/sparkify/dwhetl/pkg/coreinterfaces"
	"github.com/sparkify/dwhetl/pkg/metrics"
	"go.uber.org/zap"
)

type RedshiftConnector struct {
	// db is the connection to redshift.
	db        *sql.DB
	metrics   *metrics.Metrics
	observers []coreinterfaces.StatementObserver
}

type Option func(*RedshiftConnector)

func WithMetrics(m *metrics.Metrics) Option {
	return func(rc *RedshiftConnector) {
		rc.metrics = m
	}
}

func WithObserver(o coreinterfaces.StatementObserver) Option {
	return func(rc *RedshiftConnector) {
		rc.observers = append(rc.observers, o)
	}
}

func NewRedshiftConnector(db *sql.DB, opts ...Option) *RedshiftConnector {
	rc := &RedshiftConnector{db: db}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

func (rc *RedshiftConnector) ExecStatement(ctx context.Context, stmt catalog.Statement) error {
	log.Info("Executing statement", zap.String("name", stmt.Name), zap.String("kind", string(stmt.Kind)))
	log.Debug("Statement text", zap.String("name", stmt.Name), zap.String("query", stmt.Text))
	for _, o := range rc.observers {
		o.OnStatementStart(stmt)
	}

	start := time.Now()
	err := execInTx(ctx, rc.db, stmt.Text)
	elapsed := time.Since(start)

	rc.metrics.ObserveStatement(string(stmt.Kind), elapsed, err)
	for _, o := range rc.observers {
		o.OnStatementDone(stmt, elapsed, err)
	}
	if err != nil {
		log.Error("Failed to execute statement",
			zap.String("name", stmt.Name), zap.String("query", stmt.Text), zap.Error(err))
		return errors.Trace(&StatementError{
			Kind:  stmt.Kind,
			Name:  stmt.Name,
			Table: stmt.Table,
			Err:   err,
		})
	}
	log.Info("Successfully executed statement",
		zap.String("name", stmt.Name), zap.Duration("elapsed", elapsed))
	return nil
}

func (rc *RedshiftConnector) CountRows(ctx context.Context, table string) (int64, error) {
	return CountRows(ctx, rc.db, table)
}

func (rc *RedshiftConnector) Close() error {
	return rc.db.Close()
}
