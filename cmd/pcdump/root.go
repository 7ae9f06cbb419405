package main

import (
	"github.com/rawbytedev/recast/internal/config"
	"github.com/rawbytedev/recast/internal/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app carries state shared by all subcommands once flags are parsed.
type app struct {
	configFile string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pcdump",
		Short: "pcdump - write and inspect fixed-size packet dumps",
		Long: `pcdump stores 8-byte packet records in a flat, optionally zstd-compressed file
and reads them back as one contiguous slice. Records are classified by their tag byte
and status records are inspected in place without copying.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file path")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level")

	root.AddCommand(newGenCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newConfigCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	l, err := log.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = l
	return nil
}
