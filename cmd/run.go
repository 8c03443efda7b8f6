package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/sparkify/dwhetl/config"
	"github.com/sparkify/dwhetl/pkg/logutil"
	ownerconfig "github.com/sparkify/dwhetl/pkg/owner/config"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag"
	"go.uber.org/zap"
)

func NewRunCmd() *cobra.Command {
	var (
		configFile string
		envFile    string
		debug      bool
		logFile    string
		logLevel   string
		opts       RunOptions
	)

	run := func(ctx context.Context) error {
		if envFile != "" {
			if err := config.LoadEnvFile(envFile); err != nil {
				return errors.Trace(err)
			}
		}
		cfg, err := config.Load(configFile)
		if err != nil {
			return errors.Trace(err)
		}
		return Run(ctx, cfg, opts)
	}

	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Rebuild the star schema in Redshift from the staged S3 event and song data",
		SilenceUsage: true,
		RunE: func(c *cobra.Command, _ []string) error {
			if debug {
				logLevel = "debug"
			}
			// init logger
			err := logutil.InitLogger(&logutil.Config{
				Level: logLevel,
				File:  logFile,
			})
			if err != nil {
				return errors.Trace(err)
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err = run(ctx); err != nil {
				log.Error("Error running ETL", zap.Error(err))
				return err
			}
			log.Info("ETL finished")
			return nil
		},
	}

	cmd.PersistentFlags().BoolP("help", "", false, "help for this command")
	cmd.Flags().Var(enumflag.New(&opts.Stage, "stage", StageIds, enumflag.EnumCaseInsensitive), "stage", "stages to run: all, schema, etl")
	cmd.Flags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "path of the dwh.cfg file")
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the config, values become DWH_<SECTION>_<KEY> overrides")
	cmd.Flags().BoolVar(&debug, "debug", false, "log every statement text, same as --log.level=debug")
	cmd.Flags().BoolVar(&opts.Preflight, "preflight", false, "check that the S3 sources exist before connecting")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "log row counts of the star schema tables after the run")
	cmd.Flags().StringVar(&opts.StatusAddr, "status.addr", "", "serve /info and /metrics on this address while running")
	cmd.Flags().StringVar(&opts.PushGateway, "metrics.pushgateway", "", "push run metrics to this Prometheus pushgateway when done")
	cmd.Flags().BoolVar(&opts.Lock, "lock", false, "hold an owner lease in the warehouse so concurrent runs fail fast")
	cmd.Flags().StringVar(&opts.Owner.Table, "lock.table", ownerconfig.DefaultTable, "table holding the owner lease")
	cmd.Flags().DurationVar(&opts.Owner.LeaseDuration, "lock.lease", ownerconfig.DefaultLeaseDuration, "owner lease duration")
	cmd.Flags().DurationVar(&opts.Owner.LeaseRenewInterval, "lock.renew-interval", ownerconfig.DefaultLeaseRenewInterval, "owner lease renew interval")
	cmd.Flags().StringVar(&logFile, "log.file", "", "log file path")
	cmd.Flags().StringVar(&logLevel, "log.level", logutil.DefaultLogLevel, "log level")

	return cmd
}
