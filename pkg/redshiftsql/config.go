package redshiftsql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/sparkify/dwhetl/config"
	"go.uber.org/zap"
)

type RedshiftConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	Database string
	Schema   string
	SSLMode  string
}

func NewRedshiftConfig(cluster *config.ClusterConfig) *RedshiftConfig {
	return &RedshiftConfig{
		Host:     cluster.Host,
		Port:     cluster.Port,
		User:     cluster.User,
		Pass:     cluster.Password,
		Database: cluster.Database,
		Schema:   cluster.Schema,
		SSLMode:  cluster.SSLMode,
	}
}

// DSN returns a lib/pq connection string.
func (config *RedshiftConfig) DSN() string {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(config.Host), config.Port, quoteDSNValue(config.User),
		quoteDSNValue(config.Pass), quoteDSNValue(config.Database), quoteDSNValue(sslMode))
}

// OpenDB opens a connection to Redshift.
// A run is strictly sequential, so the pool holds a single connection and the
// search path set here stays in effect for every statement.
func (config *RedshiftConfig) OpenDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, ErrConnect.GenWithStackByArgs(config.Host, config.Port, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	// make sure the connection is available
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, ErrConnect.GenWithStackByArgs(config.Host, config.Port, err)
	}
	if config.Schema != "" {
		if err := CreateSchema(ctx, db, config.Schema); err != nil {
			db.Close()
			return nil, errors.Trace(err)
		}
	}
	log.Info("Redshift connection established",
		zap.String("host", config.Host), zap.Int("port", config.Port), zap.String("database", config.Database))
	return db, nil
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
