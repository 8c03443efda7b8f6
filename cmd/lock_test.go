package cmd

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sparkify/dwhetl/pkg/apiservice"
	"github.com/sparkify/dwhetl/pkg/catalog"
	"github.com/sparkify/dwhetl/pkg/metrics"
	"github.com/sparkify/dwhetl/pkg/owner"
	ownerconfig "github.com/sparkify/dwhetl/pkg/owner/config"
	"github.com/stretchr/testify/require"
)

type mockDBConfig struct {
	db *sql.DB
}

func (c mockDBConfig) OpenDB(context.Context) (*sql.DB, error) { return c.db, nil }

const (
	bootstrapTable  = `CREATE TABLE IF NOT EXISTS "dwhetl_owner" (id INT PRIMARY KEY, who VARCHAR(255), lease_expire TIMESTAMP)`
	bootstrapRow    = `INSERT INTO "dwhetl_owner" (id, who, lease_expire) SELECT 1, '', CAST($1 AS TIMESTAMP) WHERE NOT EXISTS (SELECT 1 FROM "dwhetl_owner" WHERE id = 1)`
	campaignOwner   = `UPDATE "dwhetl_owner" SET who = $1, lease_expire = $2 WHERE id = 1 AND lease_expire < $3`
	releaseOwner    = `UPDATE "dwhetl_owner" SET who = '', lease_expire = $1 WHERE id = 1 AND who = $2`
	selectLeaseHold = `SELECT who FROM "dwhetl_owner" WHERE id = 1 AND lease_expire >= $1`
)

func runLockedWithMock(t *testing.T, conn *fakeConnector, prepare func(sqlmock.Sqlmock)) error {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	mock.ExpectExec(bootstrapTable).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(bootstrapRow).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	prepare(mock)
	mock.ExpectClose()

	src := testSource()
	cat, err := catalog.New(&src)
	require.NoError(t, err)
	opts := RunOptions{Lock: true, Owner: ownerconfig.OwnerConfig{Who: "a:1"}}
	err = runLocked(context.Background(), mockDBConfig{db}, conn, cat, metrics.NewMetrics(), apiservice.NewAPIInfo(cat), opts)
	require.NoError(t, mock.ExpectationsWereMet())
	return err
}

func TestRunLockedHoldsLeaseAroundStages(t *testing.T) {
	conn := &fakeConnector{}
	err := runLockedWithMock(t, conn, func(mock sqlmock.Sqlmock) {
		mock.ExpectExec(campaignOwner).
			WithArgs("a:1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(releaseOwner).
			WithArgs(sqlmock.AnyArg(), "a:1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	})
	require.NoError(t, err)
	require.Len(t, conn.executed, 21)
}

func TestRunLockedFailsWhenLeaseHeld(t *testing.T) {
	conn := &fakeConnector{}
	err := runLockedWithMock(t, conn, func(mock sqlmock.Sqlmock) {
		mock.ExpectExec(campaignOwner).
			WithArgs("a:1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(selectLeaseHold).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"who"}).AddRow("b:2"))
	})
	require.True(t, owner.ErrOwnerHeld.Equal(err), "%v", err)
	require.Empty(t, conn.executed)
}
