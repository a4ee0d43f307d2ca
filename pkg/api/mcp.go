package api

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/folio/pkg/kit"
	"github.com/hazyhaar/folio/pkg/migrate"
)

// RegisterMCPTools registers the four migration MCP tools on the server.
// They dispatch to the same endpoints as the /migration HTTP routes.
func RegisterMCPTools(srv *server.MCPServer, eng *migrate.Engine, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	runArgs := []mcp.ToolOption{
		mcp.WithString("collections", mcp.Description("Comma-separated collections to process (default: all, e.g. projects,users)")),
		mcp.WithBoolean("dry_run", mcp.Description("Count the documents that would change without writing them")),
	}

	kit.RegisterMCPTool(srv,
		mcp.NewTool("localize_fields", append([]mcp.ToolOption{
			mcp.WithDescription("Convert legacy single-language string fields of every portfolio collection to bilingual {en, fr} objects. Safe to re-run."),
		}, runArgs...)...),
		instrument(logger, "localize_fields", localizeEndpoint(eng)),
		decodeRunArgs,
	)

	kit.RegisterMCPTool(srv,
		mcp.NewTool("rollback_localized_fields", append([]mcp.ToolOption{
			mcp.WithDescription("Revert bilingual {en, fr} fields to plain strings holding the English text. French text is lost."),
		}, runArgs...)...),
		instrument(logger, "rollback_localized_fields", rollbackEndpoint(eng)),
		decodeRunArgs,
	)

	kit.RegisterMCPTool(srv,
		mcp.NewTool("migration_status",
			mcp.WithDescription("Count documents per collection: total, still unmigrated, and already localized."),
		),
		instrument(logger, "migration_status", statusEndpoint(eng)),
		func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			return &kit.MCPDecodeResult{Request: nil}, nil
		},
	)

	kit.RegisterMCPTool(srv,
		mcp.NewTool("test_localization",
			mcp.WithDescription("Show how a stored field value reads in a language: text with fallback, available languages, and whether the language has its own content."),
			mcp.WithString("field", mcp.Required(), mcp.Description(`Field value: plain text, or JSON such as {"en":"Hello","fr":""}`)),
			mcp.WithString("language", mcp.Description("Language tag (en, fr, fr-CA...). Default en")),
		),
		instrument(logger, "test_localization", testLocalizationEndpoint()),
		func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			args := req.GetArguments()
			lang, _ := args["language"].(string)
			return &kit.MCPDecodeResult{Request: &testLocalizationReq{
				Field:    decodeFieldArg(args["field"]),
				Language: lang,
			}}, nil
		},
	)
}

func decodeRunArgs(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	args := req.GetArguments()
	r := &runReq{}
	if v, _ := args["collections"].(string); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				r.Collections = append(r.Collections, name)
			}
		}
	}
	r.DryRun, _ = args["dry_run"].(bool)
	return &kit.MCPDecodeResult{Request: r}, nil
}

// decodeFieldArg accepts a field either as a JSON value or as JSON text.
// Text that is not a JSON object or array is taken literally.
func decodeFieldArg(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}
	return s
}
