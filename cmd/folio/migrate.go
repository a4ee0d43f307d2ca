package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/folio/pkg/i18n"
	"github.com/hazyhaar/folio/pkg/migrate"
)

type runFlags struct {
	collections []string
	dryRun      bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.collections, "collection", "c", nil, "collection to process, repeatable or comma-separated (default: all)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "count the documents that would change without writing them")
}

func (f *runFlags) options() migrate.Options {
	return migrate.Options{Collections: f.collections, DryRun: f.dryRun}
}

func newLocalizeCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "localize",
		Short: "Convert legacy string fields to bilingual {en, fr} objects",
		Long: `Converts every planned field still holding a plain string into
{"en": <string>, "fr": ""}. Documents already localized are not touched,
so the command is safe to re-run.

Example:
  folio localize --collection projects,users --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *migrate.Engine) error {
				res, err := eng.MigrateAll(cmd.Context(), flags.options())
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newRollbackCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert bilingual fields to their English string",
		Long: `Replaces every planned {en, fr} object with its English text.
French content is lost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *migrate.Engine) error {
				res, err := eng.RollbackAll(cmd.Context(), flags.options())
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Count unmigrated and localized documents per collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *migrate.Engine) error {
				report, err := eng.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("status failed: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newTestCmd(a *app) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "test <field>",
		Short: "Show how a field value reads in a language",
		Long: `Reads a field value the way the public site does. The argument is
JSON ({"en":"Hello","fr":""}, "text", null) or, when it is not valid JSON,
taken as plain text.

Example:
  folio test '{"en":"Hello","fr":""}' --lang fr`,
		Args: cobra.ExactArgs(1),
		// Pure computation: no configuration or store needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			l, ok := i18n.ParseLanguage(lang)
			if !ok {
				return fmt.Errorf("unsupported language %q (want en or fr)", lang)
			}
			return printJSON(cmd.OutOrStdout(), i18n.Inspect(parseFieldArg(args[0]), l))
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "language tag (en, fr, fr-CA...)")
	return cmd
}

func parseFieldArg(s string) any {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err == nil {
		return v
	}
	return s
}
