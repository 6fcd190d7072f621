package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	formbind "github.com/goliatone/go-formbind"
	"github.com/goliatone/go-formbind/internal/scenario"
	"github.com/goliatone/go-formbind/pkg/engines/memory"
	"github.com/goliatone/go-formbind/pkg/values"
)

type reconcileOptions struct {
	file        string
	active      []string
	interactive bool
	dedupe      bool
	sanitize    bool
	metrics     bool
	output      string
}

func newReconcileCmd(a *app) *cobra.Command {
	opts := &reconcileOptions{}
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a scenario and print the reconciled form values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReconcile(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "scenario file (JSON or YAML)")
	flags.StringSliceVar(&opts.active, "active", nil, "concrete paths under edit, overrides the scenario")
	flags.BoolVar(&opts.interactive, "interactive", false, "choose the active paths with a prompt")
	flags.BoolVar(&opts.dedupe, "dedupe", false, "collapse duplicate concrete paths")
	flags.BoolVar(&opts.sanitize, "sanitize", false, "strip markup from external string values")
	flags.BoolVar(&opts.metrics, "metrics", false, "print reconciliation metrics after the summary")
	flags.StringVarP(&opts.output, "output", "o", formatYAML, "values output format: json or yaml")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) runReconcile(cmd *cobra.Command, opts *reconcileOptions) error {
	ctx := cmd.Context()
	sc, err := scenario.LoadFile(ctx, opts.file)
	if err != nil {
		return err
	}

	active := sc.Active
	if cmd.Flags().Changed("active") {
		active = opts.active
	}
	if opts.interactive {
		if active, err = a.chooseActive(cmd, sc, active); err != nil {
			return err
		}
	}

	cfg := *a.cfg
	if cmd.Flags().Changed("dedupe") {
		cfg.Reconcile.Dedupe = opts.dedupe
	}
	if cmd.Flags().Changed("sanitize") {
		cfg.Reconcile.Sanitize = opts.sanitize
	}

	if cmd.Flags().Changed("metrics") {
		cfg.Reconcile.Metrics = opts.metrics
	}
	// The CLI reports on a private registry instead of the default one.
	var registry *prometheus.Registry
	if cfg.Reconcile.Metrics {
		registry = prometheus.NewRegistry()
		cfg.Reconcile.Metrics = false
	}

	engine := memory.New(memory.WithLogger(a.logger))
	options := []formbind.Option{
		formbind.WithEngine(engine),
		formbind.WithLogger(a.logger),
		formbind.WithConfig(&cfg),
	}
	if registry != nil {
		options = append(options, formbind.WithMetrics(registry))
	}
	controller := formbind.New(options...)
	defer controller.Close()

	bindCfg := sc.BinderConfig()
	// Mount first, as a component does before its fetch resolves.
	if _, err := controller.Render(ctx, bindCfg, values.Value{}); err != nil {
		return err
	}
	if live, ok := engine.Get(sc.ID); ok {
		for _, path := range active {
			live.SetActive(path, true)
		}
	} else {
		a.logger.Info("no live form, values are static", zap.String("mode", string(cfg.Mode)))
	}

	result, err := controller.Render(ctx, bindCfg, sc.External)
	if err != nil {
		return err
	}
	if err := encode(cmd.OutOrStdout(), opts.output, result.Values.Any()); err != nil {
		return err
	}
	printSummary(cmd.ErrOrStderr(), result.Reconcile)
	if registry != nil {
		return writeMetrics(cmd.ErrOrStderr(), registry)
	}
	return nil
}

func (a *app) chooseActive(cmd *cobra.Command, sc *scenario.Scenario, current []string) ([]string, error) {
	options := sc.ConcretePaths()
	if len(options) == 0 {
		return nil, fmt.Errorf("formbind: scenario %q has no form values to choose from", sc.ID)
	}
	var defaults []int
	for _, path := range current {
		for i, option := range options {
			if option == path {
				defaults = append(defaults, i)
			}
		}
	}
	picked, err := a.prompter.MultiSelect(cmd.Context(), SelectConfig{
		Message:  "Which fields is the user editing?",
		Options:  options,
		Defaults: defaults,
		Help:     "Active fields keep their local value during reconciliation.",
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(picked))
	for _, idx := range picked {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
		}
	}
	return out, nil
}
