// Command renoir runs one process's share of a renoir pipeline: the
// replicas of a single named layer, wired per the runtime config of
// spec §6 and driven to completion via the scheduler.
package main

import (
	"fmt"
	"os"

	"github.com/chinifabio/renoir-go/errs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var logger *zap.Logger
		if l, lerr := zap.NewProduction(); lerr == nil {
			logger = l
		} else {
			logger = zap.NewNop()
		}
		logger.Error("renoir exited with an error", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errs.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var layerName string

	root := &cobra.Command{
		Use:           "renoir",
		Short:         "Run a replica group of a renoir streaming pipeline layer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return errs.New(errs.CodeConfiguration, "--config is required")
			}
			if layerName == "" {
				return errs.New(errs.CodeConfiguration, "--layer is required")
			}
			return runLayer(configPath, layerName, args)
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "path to the runtime config file (YAML/TOML/JSON)")
	root.Flags().StringVar(&layerName, "layer", "", "name of the layer this process runs, as declared in the config's layers table")

	return root
}
