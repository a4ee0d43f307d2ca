package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/folio/pkg/api"
	"github.com/hazyhaar/folio/pkg/chassis"
	"github.com/hazyhaar/folio/pkg/content"
	"github.com/hazyhaar/folio/pkg/mcpquic"
	"github.com/hazyhaar/folio/pkg/migrate"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	st, plan, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := migrate.NewEngine(st, plan, a.logger)
	contents := content.NewService(st, plan, a.logger)

	routerCfg := api.Config{
		Engine:  engine,
		Content: contents,
		Store:   st,
		Logger:  a.logger,
	}
	chassisCfg := chassis.Config{
		Addr:     a.cfg.Server.Addr,
		CertFile: a.cfg.Server.CertFile,
		KeyFile:  a.cfg.Server.KeyFile,
		DevTLS:   a.cfg.Server.DevTLS,
		HTTP3:    a.cfg.Server.HTTP3,
		Logger:   a.logger,
	}
	// One MCP server backs both /mcp (streamable HTTP) and, with TLS,
	// MCP sessions over QUIC on the same port.
	if !a.cfg.MCP.Disabled {
		mcpSrv := server.NewMCPServer("folio", version, server.WithToolCapabilities(false))
		api.RegisterMCPTools(mcpSrv, engine, a.logger)
		routerCfg.MCP = server.NewStreamableHTTPServer(mcpSrv)
		if a.cfg.Server.TLS() {
			chassisCfg.MCP = mcpquic.NewHandler(mcpSrv, a.logger)
		}
	}
	chassisCfg.Handler = api.NewRouter(routerCfg)

	srv, err := chassis.New(chassisCfg)
	if err != nil {
		return fmt.Errorf("chassis: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return err
	}
	a.logger.Info("folio listening", "addr", srv.Addr().String(), "store", a.cfg.Store.Path, "mcp", !a.cfg.MCP.Disabled)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return g.Wait()
}
