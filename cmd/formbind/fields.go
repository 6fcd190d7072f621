package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/schema"
)

func newFieldsCmd(a *app) *cobra.Command {
	var (
		file     string
		name     string
		validate bool
		output   string
	)
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Print the field patterns an OpenAPI component schema declares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := schema.Load(cmd.Context(), schema.SourceFromFile(file), schema.LoadOptions{Validate: validate})
			if err != nil {
				return err
			}
			if name == "" {
				for _, n := range doc.SchemaNames() {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}
			fields, err := doc.Fields(name)
			if err != nil {
				return err
			}
			a.logger.Debug("schema converted", zap.String("schema", name), zap.Int("fields", len(fields)))

			if output != formatText {
				return encode(cmd.OutOrStdout(), output, fields)
			}
			w := cmd.OutOrStdout()
			model.Walk(fields, func(pattern string, field model.Field, hidden bool) {
				if hidden {
					missingColor.Fprintf(w, "%s (hidden)\n", pattern)
					return
				}
				fmt.Fprintf(w, "%s\t%s\n", pattern, field.Type)
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "openapi", "", "OpenAPI document (JSON or YAML)")
	cmd.Flags().StringVar(&name, "schema", "", "component schema name; lists schemas when empty")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the document before converting")
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, json or yaml")
	_ = cmd.MarkFlagRequired("openapi")
	return cmd
}
