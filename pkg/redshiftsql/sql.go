package redshiftsql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

func CreateSchema(ctx context.Context, db *sql.DB, schemaName string) error {
	schema := pq.QuoteIdentifier(schemaName)
	query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)
	log.Info("Creating schema in Redshift if not exists", zap.String("query", query))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return errors.Annotatef(err, "failed to create schema %s", schemaName)
	}
	query = fmt.Sprintf("SET search_path TO %s", schema)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return errors.Annotatef(err, "failed to set search_path to %s", schemaName)
	}
	return nil
}

func CountRows(ctx context.Context, db *sql.DB, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(table))
	var n int64
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errors.Annotatef(err, "failed to count rows of %s", table)
	}
	return n, nil
}

// execInTx runs query in its own transaction, so every statement is committed
// before the next one starts.
func execInTx(ctx context.Context, db *sql.DB, query string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Annotate(err, "failed to begin transaction")
	}
	if _, err := tx.ExecContext(ctx, query); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn("Failed to rollback transaction", zap.Error(rbErr))
		}
		return errors.Trace(err)
	}
	if err := tx.Commit(); err != nil {
		return errors.Annotate(err, "failed to commit transaction")
	}
	return nil
}
