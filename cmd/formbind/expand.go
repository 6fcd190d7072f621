package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbind/internal/scenario"
	"github.com/goliatone/go-formbind/pkg/engines/memory"
	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/form"
	"github.com/goliatone/go-formbind/pkg/reconcile"
)

type expansion struct {
	Pattern string         `json:"pattern" yaml:"pattern"`
	Paths   []expandedPath `json:"paths" yaml:"paths"`
}

type expandedPath struct {
	Path   string `json:"path" yaml:"path"`
	Active bool   `json:"active,omitempty" yaml:"active,omitempty"`
}

func newExpandCmd(a *app) *cobra.Command {
	var (
		file   string
		dedupe bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Show how a scenario's field patterns expand against its form values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := scenario.LoadFile(cmd.Context(), file)
			if err != nil {
				return err
			}
			engine := memory.New(memory.WithLogger(a.logger))
			handle, err := engine.CreateForm(form.Config{
				ID:            sc.ID,
				Label:         sc.Label,
				InitialValues: sc.Values,
				Fields:        sc.Fields,
				HiddenFields:  sc.HiddenFields(),
			})
			if err != nil {
				return err
			}
			defer engine.RemoveForm(handle.ID())
			live, _ := engine.Get(handle.ID())
			for _, path := range sc.Active {
				live.SetActive(path, true)
			}

			plan := reconcile.NewPlan(live, dedupe || a.cfg.Reconcile.Dedupe)
			activeSet := make(map[string]struct{}, len(plan.Active))
			for _, path := range plan.Active {
				activeSet[path] = struct{}{}
			}
			expansions := make([]expansion, 0, len(plan.Patterns))
			for _, pattern := range plan.Patterns {
				exp := expansion{Pattern: pattern, Paths: []expandedPath{}}
				for _, path := range fieldpath.Expand(pattern, live.Values()) {
					_, isActive := activeSet[path]
					exp.Paths = append(exp.Paths, expandedPath{Path: path, Active: isActive})
				}
				expansions = append(expansions, exp)
			}

			if output != formatText {
				return encode(cmd.OutOrStdout(), output, expansions)
			}
			w := cmd.OutOrStdout()
			for _, exp := range expansions {
				headerColor.Fprintln(w, exp.Pattern)
				if len(exp.Paths) == 0 {
					missingColor.Fprintln(w, "  (no paths)")
				}
				for _, path := range exp.Paths {
					if path.Active {
						activeColor.Fprintf(w, "  %s (active)\n", path.Path)
						continue
					}
					fmt.Fprintf(w, "  %s\n", path.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "scenario file (JSON or YAML)")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "collapse duplicate concrete paths")
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, json or yaml")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
