package meta

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pingcap/errors"
	"gitlab.com/tymonx/go-formatter/formatter"
)

type Backend interface {
	// Bootstrap creates the lease table and its single row.
	Bootstrap(ctx context.Context) error

	// GetOwner returns the current lease holder, empty when nobody holds it.
	GetOwner(ctx context.Context) (string, error)

	// TryCampaignOwner takes the lease if it is free or expired.
	TryCampaignOwner(ctx context.Context, who string, lease time.Duration) (bool, error)

	// RenewOwnerLease extends the lease if who still holds it.
	RenewOwnerLease(ctx context.Context, who string, lease time.Duration) (bool, error)

	// ReleaseOwner gives the lease up if who holds it.
	ReleaseOwner(ctx context.Context, who string) error
}

var epoch = time.Unix(0, 0).UTC()

// RedshiftBackend keeps the lease in a one row table of the warehouse itself.
// Redshift does not enforce primary keys, so the row is only inserted when
// missing. Expiry times are computed on the client.
type RedshiftBackend struct {
	db      *sql.DB
	queries map[string]string
	now     func() time.Time
}

const (
	createTableQuery = "CREATE TABLE IF NOT EXISTS {table} (id INT PRIMARY KEY, who VARCHAR(255), lease_expire TIMESTAMP)"
	insertRowQuery   = "INSERT INTO {table} (id, who, lease_expire) SELECT 1, '', CAST($1 AS TIMESTAMP) WHERE NOT EXISTS (SELECT 1 FROM {table} WHERE id = 1)"
	getOwnerQuery    = "SELECT who FROM {table} WHERE id = 1 AND lease_expire >= $1"
	campaignQuery    = "UPDATE {table} SET who = $1, lease_expire = $2 WHERE id = 1 AND lease_expire < $3"
	renewQuery       = "UPDATE {table} SET lease_expire = $1 WHERE id = 1 AND who = $2"
	releaseQuery     = "UPDATE {table} SET who = '', lease_expire = $1 WHERE id = 1 AND who = $2"
)

// NewRedshiftBackend renders every query for table once.
func NewRedshiftBackend(db *sql.DB, table string) (*RedshiftBackend, error) {
	named := formatter.Named{"table": pq.QuoteIdentifier(table)}
	queries := make(map[string]string, 6)
	for _, q := range []string{createTableQuery, insertRowQuery, getOwnerQuery, campaignQuery, renewQuery, releaseQuery} {
		s, err := formatter.Format(q, named)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to render owner query for %s", table)
		}
		queries[q] = s
	}
	return &RedshiftBackend{
		db:      db,
		queries: queries,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (b *RedshiftBackend) Bootstrap(ctx context.Context) error {
	// owner {
	//	id INT PRIMARY KEY,
	//	who VARCHAR(255),
	//	lease_expire TIMESTAMP,
	// }
	// There is just one row in the owner table which id is 1.
	_, err := b.db.ExecContext(ctx, b.queries[createTableQuery])
	if err != nil {
		return errors.Trace(err)
	}
	_, err = b.db.ExecContext(ctx, b.queries[insertRowQuery], epoch)
	return errors.Trace(err)
}

func (b *RedshiftBackend) GetOwner(ctx context.Context) (string, error) {
	var who string
	err := b.db.QueryRowContext(ctx, b.queries[getOwnerQuery], b.now()).Scan(&who)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Trace(err)
	}
	return who, nil
}

func (b *RedshiftBackend) TryCampaignOwner(ctx context.Context, who string, lease time.Duration) (bool, error) {
	now := b.now()
	return b.update(ctx, b.queries[campaignQuery], who, now.Add(lease), now)
}

func (b *RedshiftBackend) RenewOwnerLease(ctx context.Context, who string, lease time.Duration) (bool, error) {
	return b.update(ctx, b.queries[renewQuery], b.now().Add(lease), who)
}

func (b *RedshiftBackend) ReleaseOwner(ctx context.Context, who string) error {
	_, err := b.update(ctx, b.queries[releaseQuery], epoch, who)
	return errors.Trace(err)
}

func (b *RedshiftBackend) update(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Trace(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Trace(err)
	}
	return affected > 0, nil
}
