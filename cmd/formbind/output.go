package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbind/pkg/reconcile"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("formbind: unknown output format %q", format)
	}
}

var (
	writtenColor = color.New(color.FgGreen)
	activeColor  = color.New(color.FgYellow)
	missingColor = color.New(color.FgHiBlack)
	headerColor  = color.New(color.FgCyan, color.Bold)
)

func printSummary(w io.Writer, result reconcile.Result) {
	if result.Skipped {
		headerColor.Fprintf(w, "reconciliation skipped: %s\n", result.Reason)
		return
	}
	for _, path := range result.Written {
		writtenColor.Fprintf(w, "  written  %s\n", path)
	}
	for _, path := range result.Active {
		activeColor.Fprintf(w, "  active   %s\n", path)
	}
	for _, path := range result.Missing {
		missingColor.Fprintf(w, "  missing  %s\n", path)
	}
	headerColor.Fprintf(w, "%d patterns, %d paths: %d written, %d active, %d missing\n",
		len(result.Patterns), len(result.Paths), len(result.Written), len(result.Active), len(result.Missing))
}

// writeMetrics prints every family gathered from g in the Prometheus text
// exposition format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("formbind: gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("formbind: write metrics: %w", err)
		}
	}
	return nil
}
