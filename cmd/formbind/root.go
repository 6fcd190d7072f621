package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/config"
	"github.com/goliatone/go-formbind/pkg/logging"
)

// app carries what every command needs once the root pre-run resolved it.
type app struct {
	prompter Prompter
	cfg      *config.Config
	logger   *zap.Logger

	configFile string
	logLevel   string
	mode       string
	noColor    bool
}

func newApp() *app {
	return &app{prompter: surveyPrompter{}}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "formbind",
		Short: "Inspect form binding and inactive-field reconciliation",
		Long: `formbind runs reconciliation scenarios: a form bound with initial values,
the fields a user is editing, and freshly fetched external values. It prints
the values the form ends up with and which paths were overwritten.`,
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./formbind.yaml when present)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.mode, "mode", "", "deployment mode: interactive or static")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newReconcileCmd(a))
	root.AddCommand(newExpandCmd(a))
	root.AddCommand(newFieldsCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.noColor {
		color.NoColor = true
	}

	var opts []config.LoadOption
	if a.configFile != "" {
		opts = append(opts, config.WithFile(a.configFile))
	}
	if cmd.Flags().Changed("log-level") {
		opts = append(opts, config.WithOverride("log_level", a.logLevel))
	}
	if cmd.Flags().Changed("mode") {
		opts = append(opts, config.WithOverride("mode", a.mode))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LogLevel, logging.Format(cfg.LogFormat))
	if err != nil {
		return err
	}
	a.logger = logger.Named("formbind")
	a.logger.Debug("configuration loaded",
		zap.String("mode", string(cfg.Mode)),
		zap.Bool("dedupe", cfg.Reconcile.Dedupe),
		zap.Bool("sanitize", cfg.Reconcile.Sanitize),
	)
	return nil
}
