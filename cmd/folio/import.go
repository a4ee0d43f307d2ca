package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/folio/pkg/importer"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|url>",
		Short: "Load seed documents from a JSON or YAML fixture",
		Long: `Imports documents grouped by collection:

  {"collections": {"projects": [{"id": "p1", "title": "Shop"}]}}

Plain strings are stored as legacy values unless the document carries
"lang": "en" or "fr", in which case they become bilingual objects. A
document whose id already exists is merged: missing languages and keys are
added, existing text is kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fixture, err := importer.Load(ctx, args[0])
			if err != nil {
				return err
			}

			st, plan, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := importer.New(st, plan, a.logger).Import(ctx, fixture)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}
