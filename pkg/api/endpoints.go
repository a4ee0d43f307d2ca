package api

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/folio/pkg/i18n"
	"github.com/hazyhaar/folio/pkg/kit"
	"github.com/hazyhaar/folio/pkg/migrate"
)

// instrument wraps an endpoint the same way for every transport.
func instrument(logger *slog.Logger, name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(logger, name), kit.Recover())(ep)
}

// Shared request/response types used by both HTTP and MCP transports.

type runReq struct {
	Collections []string `json:"collections,omitempty"`
	DryRun      bool     `json:"dryRun,omitempty"`
}

func (r *runReq) options() migrate.Options {
	if r == nil {
		return migrate.Options{}
	}
	return migrate.Options{DryRun: r.DryRun, Collections: r.Collections}
}

type testLocalizationReq struct {
	Field    any    `json:"field"`
	Language string `json:"language"`
}

// runResponse is the migration result plus its total under totalKey and a
// success flag.
func runResponse(res *migrate.Result, totalKey string) map[string]any {
	out := res.Map()
	out[totalKey] = res.Total()
	out["success"] = res.Success()
	return out
}

// Endpoints over the migration engine, shared by HTTP handlers and MCP tools.

func localizeEndpoint(eng *migrate.Engine) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, _ := request.(*runReq)
		res, err := eng.MigrateAll(ctx, req.options())
		if err != nil {
			return nil, err
		}
		return runResponse(res, "totalMigrated"), nil
	}
}

func rollbackEndpoint(eng *migrate.Engine) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, _ := request.(*runReq)
		res, err := eng.RollbackAll(ctx, req.options())
		if err != nil {
			return nil, err
		}
		return runResponse(res, "totalRolledBack"), nil
	}
}

func statusEndpoint(eng *migrate.Engine) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		return eng.Status(ctx)
	}
}

// testLocalizationEndpoint reads a field the way the public site would.
// An unrecognized language falls back to English.
func testLocalizationEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*testLocalizationReq)
		lang, _ := i18n.ParseLanguage(req.Language)
		return i18n.Inspect(req.Field, lang), nil
	}
}
