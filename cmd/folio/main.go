// CLAUDE:SUMMARY folio CLI: serve the API and MCP tools, run localization migrations and rollbacks, report status, import seed fixtures.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/folio/pkg/config"
	"github.com/hazyhaar/folio/pkg/fieldplan"
	"github.com/hazyhaar/folio/pkg/migrate"
	"github.com/hazyhaar/folio/pkg/store"
)

const version = "0.3.0"

// app carries what every subcommand needs once the root pre-run has loaded
// configuration.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	// SIGINT/SIGTERM cancel the command context: serve shuts down
	// gracefully, migrations stop between collections.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "folio",
		Short: "folio - bilingual portfolio content service",
		Long: `folio stores portfolio documents (projects, technologies, contacts,
users, experiences, studies) with every human-readable field in English
and French.

Documents written before localization hold plain strings; "folio localize"
converts them in place to {"en": ..., "fr": ...} objects and can be re-run
safely. "folio rollback" reverts to the English text.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = config.NewLogger(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (default $CONFIG_PATH or ./config.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newLocalizeCmd(a),
		newRollbackCmd(a),
		newStatusCmd(a),
		newTestCmd(a),
		newImportCmd(a),
	)
	return root
}

// openStore opens the document store and field plan from configuration.
// The caller closes the store.
func (a *app) openStore(ctx context.Context) (*store.Store, *fieldplan.Plan, error) {
	plan, err := fieldplan.LoadFile(a.cfg.Plan.File)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(ctx, a.cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return st, plan, nil
}

// withEngine runs fn against a migration engine over the configured store.
func (a *app) withEngine(ctx context.Context, fn func(*migrate.Engine) error) error {
	st, plan, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(migrate.NewEngine(st, plan, a.logger))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
