package main

import (
	"fmt"
	"os"

	"github.com/sparkify/dwhetl/cmd"
	"github.com/sparkify/dwhetl/version"
	"github.com/spf13/cobra"
)

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:                "dwhetl",
		Short:              "Rebuild the Sparkify star schema in Redshift from JSON logs staged in S3",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			switch args[0] {
			case "--help", "-h":
				return cmd.Help()
			case "--version", "-v":
				fmt.Println(version.NewBuildInfo())
				return nil
			default:
				return fmt.Errorf("unknown flag: %s\nRun `dwhetl --help` for usage.", args[0])
			}
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Print the version of dwhetl")

	rootCmd.AddCommand(
		cmd.NewRunCmd(),
		cmd.NewCatalogCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
