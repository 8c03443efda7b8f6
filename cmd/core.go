package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sparkify/dwhetl/config"
	"github.com/sparkify/dwhetl/pkg/apiservice"
	"github.com/sparkify/dwhetl/pkg/catalog"
	"github.com/sparkify/dwhetl/pkg/coreinterfaces"
	"github.com/sparkify/dwhetl/pkg/etl"
	"github.com/sparkify/dwhetl/pkg/metrics"
	"github.com/sparkify/dwhetl/pkg/owner"
	ownerconfig "github.com/sparkify/dwhetl/pkg/owner/config"
	"github.com/sparkify/dwhetl/pkg/owner/meta"
	"github.com/sparkify/dwhetl/pkg/preflight"
	"github.com/sparkify/dwhetl/pkg/redshiftsql"
	"github.com/sparkify/dwhetl/pkg/schema"
	"github.com/thediveo/enumflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Stage enumflag.Flag

const (
	StageAll Stage = iota
	StageSchema
	StageETL
)

var StageIds = map[Stage][]string{
	StageAll:    {"all"},
	StageSchema: {"schema", "create-tables"},
	StageETL:    {"etl"},
}

const (
	metricsJob      = "dwhetl"
	shutdownTimeout = 5 * time.Second
)

// o => preflight => drop tables => create tables => copy staging => insert star schema => report
//
//	^                 ^                            ^                                         ^
//	|                 |                            |                                         |
//	+-- optional -----+------- stage schema -------+---------------- stage etl --------------+
type RunOptions struct {
	Stage       Stage
	Preflight   bool
	Report      bool
	StatusAddr  string
	PushGateway string

	// Lock serializes runs against the same cluster with a lease row.
	Lock  bool
	Owner ownerconfig.OwnerConfig
}

// Run executes one full refresh. The catalog is built before any connection is
// opened so that configuration errors never touch the warehouse.
func Run(ctx context.Context, cfg *config.Config, opts RunOptions) error {
	cat, err := catalog.New(&cfg.Source)
	if err != nil {
		return errors.Annotate(err, "failed to build statement catalog")
	}

	runID := uuid.NewString()
	if opts.Lock && opts.Owner.Who == "" {
		opts.Owner.Who = defaultOwnerID(runID)
	}
	log.Info("Starting run",
		zap.String("run-id", runID),
		zap.Strings("stage", StageIds[opts.Stage]),
		zap.Int("statements", len(cat.Names())))

	m := metrics.NewMetrics()
	registry := prometheus.NewRegistry()
	m.RegisterTo(registry)
	info := apiservice.NewAPIInfo(cat)

	if opts.StatusAddr != "" {
		stop, err := startStatusServer(opts.StatusAddr, apiservice.New(info, registry))
		if err != nil {
			return errors.Trace(err)
		}
		defer stop()
	}

	err = run(ctx, cfg, cat, m, info, opts)
	if err != nil {
		info.SetFatalError(err)
	} else {
		info.SetStage(apiservice.RunStageFinished)
		m.MarkSuccess(time.Now())
	}

	if opts.PushGateway != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if pushErr := metrics.Push(pushCtx, opts.PushGateway, metricsJob, registry); pushErr != nil {
			log.Warn("Failed to push metrics", zap.Error(pushErr))
		}
	}
	return errors.Trace(err)
}

func run(
	ctx context.Context,
	cfg *config.Config,
	cat *catalog.Catalog,
	m *metrics.Metrics,
	info *apiservice.APIInfo,
	opts RunOptions,
) error {
	if opts.Preflight && opts.Stage != StageSchema {
		info.SetStage(apiservice.RunStagePreflight)
		client, err := preflight.NewS3Client(cfg.Source.Region)
		if err != nil {
			return errors.Trace(err)
		}
		if err := preflight.NewChecker(client).CheckSources(ctx, &cfg.Source); err != nil {
			return errors.Annotate(err, "preflight check failed")
		}
	}

	var dbConfig coreinterfaces.Config = redshiftsql.NewRedshiftConfig(&cfg.Cluster)
	db, err := dbConfig.OpenDB(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	log.Debug("Connected to Redshift")
	conn := redshiftsql.NewRedshiftConnector(db, redshiftsql.WithMetrics(m), redshiftsql.WithObserver(info))
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("Failed to close connection", zap.Error(err))
			return
		}
		log.Debug("Closed connection to Redshift")
	}()

	if !opts.Lock {
		return errors.Trace(runStages(ctx, conn, cat, m, info, opts))
	}
	return errors.Trace(runLocked(ctx, dbConfig, conn, cat, m, info, opts))
}

// runLocked holds the owner lease for the whole run. The lease lives on a
// second connection so renewals never queue behind a long COPY.
func runLocked(
	ctx context.Context,
	dbConfig coreinterfaces.Config,
	conn coreinterfaces.Connector,
	cat *catalog.Catalog,
	m *metrics.Metrics,
	info *apiservice.APIInfo,
	opts RunOptions,
) error {
	lockDB, err := dbConfig.OpenDB(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer lockDB.Close()

	ownerCfg := opts.Owner.WithDefaults()
	backend, err := meta.NewRedshiftBackend(lockDB, ownerCfg.Table)
	if err != nil {
		return errors.Trace(err)
	}
	campaign := owner.NewCampaign(ownerCfg, backend)
	if err := campaign.Acquire(ctx); err != nil {
		return errors.Trace(err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := campaign.Release(releaseCtx); err != nil {
			log.Warn("Failed to release owner lease", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, egCtx := errgroup.WithContext(ctx)
	campaign.Start(eg, egCtx)
	eg.Go(func() error {
		defer cancel()
		return runStages(egCtx, conn, cat, m, info, opts)
	})
	return errors.Trace(eg.Wait())
}

// defaultOwnerID names the lease holder after the host, the process and the run.
func defaultOwnerID(runID string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d/%s", host, os.Getpid(), runID)
}

func runStages(
	ctx context.Context,
	conn coreinterfaces.Connector,
	cat *catalog.Catalog,
	m *metrics.Metrics,
	info *apiservice.APIInfo,
	opts RunOptions,
) error {
	if opts.Stage != StageETL {
		info.SetStage(apiservice.RunStageSchema)
		if err := schema.NewManager(conn, cat).ResetSchema(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	if opts.Stage == StageSchema {
		return nil
	}

	runner := etl.NewRunner(conn, cat, m)
	info.SetStage(apiservice.RunStageLoad)
	if err := runner.LoadStaging(ctx); err != nil {
		return errors.Trace(err)
	}
	info.SetStage(apiservice.RunStageTransform)
	if err := runner.TransformAndInsert(ctx); err != nil {
		return errors.Trace(err)
	}
	if opts.Report {
		info.SetStage(apiservice.RunStageReport)
		if _, err := runner.Report(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func startStatusServer(addr string, service *apiservice.APIService) (func(), error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to listen on %s", addr)
	}
	go func() {
		if err := service.Serve(l); err != nil {
			log.Error("API service stopped", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := service.Shutdown(ctx); err != nil {
			log.Warn("Failed to shut down API service", zap.Error(err))
		}
	}, nil
}
