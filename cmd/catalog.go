package cmd

import (
	"fmt"
	"io"

	"github.com/pingcap/errors"
	"github.com/sparkify/dwhetl/config"
	"github.com/sparkify/dwhetl/pkg/catalog"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag"
	"gopkg.in/yaml.v3"
)

type PhaseFilter enumflag.Flag

const (
	PhaseAll PhaseFilter = iota
	PhaseDrop
	PhaseCreate
	PhaseLoad
	PhaseInsert
)

var PhaseFilterIds = map[PhaseFilter][]string{
	PhaseAll:    {"all"},
	PhaseDrop:   {string(catalog.KindDrop)},
	PhaseCreate: {string(catalog.KindCreate)},
	PhaseLoad:   {string(catalog.KindLoad), "copy"},
	PhaseInsert: {string(catalog.KindInsert)},
}

var phaseKinds = map[PhaseFilter]catalog.Kind{
	PhaseDrop:   catalog.KindDrop,
	PhaseCreate: catalog.KindCreate,
	PhaseLoad:   catalog.KindLoad,
	PhaseInsert: catalog.KindInsert,
}

func NewCatalogCmd() *cobra.Command {
	var (
		configFile string
		envFile    string
		name       string
		phase      PhaseFilter
	)

	cmd := &cobra.Command{
		Use:          "catalog",
		Short:        "Print the rendered statements of a full refresh without running them",
		SilenceUsage: true,
		RunE: func(c *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := config.LoadEnvFile(envFile); err != nil {
					return errors.Trace(err)
				}
			}
			cfg, err := config.Load(configFile)
			if err != nil {
				return errors.Trace(err)
			}
			cat, err := catalog.New(&cfg.Source)
			if err != nil {
				return errors.Trace(err)
			}
			if name != "" {
				stmt, ok := cat.Lookup(name)
				if !ok {
					return errors.Errorf("no statement named %q", name)
				}
				_, err = fmt.Fprintln(c.OutOrStdout(), stmt.Text)
				return errors.Trace(err)
			}
			return writeCatalog(c.OutOrStdout(), cat, phase)
		},
	}

	cmd.PersistentFlags().BoolP("help", "", false, "help for this command")
	cmd.Flags().Var(enumflag.New(&phase, "phase", PhaseFilterIds, enumflag.EnumCaseInsensitive), "phase", "phase to print: all, drop, create, load, insert")
	cmd.Flags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "path of the dwh.cfg file")
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the config")
	cmd.Flags().StringVar(&name, "name", "", "print only the query of the named statement")

	return cmd
}

func writeCatalog(w io.Writer, cat *catalog.Catalog, phase PhaseFilter) error {
	phases := cat.Phases()
	if phase != PhaseAll {
		kind := phaseKinds[phase]
		phases = []catalog.Phase{{Kind: kind, Statements: cat.Statements(kind)}}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(phases); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(enc.Close())
}
