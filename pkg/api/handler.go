package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hazyhaar/folio/pkg/content"
	"github.com/hazyhaar/folio/pkg/kit"
	"github.com/hazyhaar/folio/pkg/migrate"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config wires the router to its services.
type Config struct {
	Engine  *migrate.Engine
	Content *content.Service
	Store   Pinger       // health check, optional
	MCP     http.Handler // mounted at /mcp when set
	Logger  *slog.Logger
}

// NewRouter returns an http.Handler with all folio API routes.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		localize: instrument(logger, "localize_fields", localizeEndpoint(cfg.Engine)),
		rollback: instrument(logger, "rollback_localized_fields", rollbackEndpoint(cfg.Engine)),
		status:   instrument(logger, "migration_status", statusEndpoint(cfg.Engine)),
		test:     instrument(logger, "test_localization", testLocalizationEndpoint()),
		engine:   cfg.Engine,
		content:  cfg.Content,
		store:    cfg.Store,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(cors)

	r.Route("/migration", func(r chi.Router) {
		r.Post("/localize-fields", h.handleLocalize)
		r.Post("/rollback-localized-fields", h.handleRollback)
		r.Get("/status", h.handleStatus)
		r.Post("/test-localization", h.handleTestLocalization)
	})

	r.Get("/v1/health", h.handleHealth)
	r.Route("/v1/{collection}", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})

	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
	}
	return r
}

type handler struct {
	localize kit.Endpoint
	rollback kit.Endpoint
	status   kit.Endpoint
	test     kit.Endpoint
	engine   *migrate.Engine
	content  *content.Service
	store    Pinger
	logger   *slog.Logger
}

// --- migration ---

func (h *handler) handleLocalize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRunReq(w, r)
	if !ok {
		return
	}
	resp, err := h.localize(r.Context(), req)
	if err != nil {
		writeRunError(w, "Migration failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleRollback(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRunReq(w, r)
	if !ok {
		return
	}
	resp, err := h.rollback(r.Context(), req)
	if err != nil {
		writeRunError(w, "Rollback failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.status(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Status failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleTestLocalization(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req testLocalizationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.test(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status      string   `json:"status"`
	Collections []string `json:"collections"`
	Error       string   `json:"error,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Collections: h.engine.Collections()}
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			resp.Status, resp.Error = "unavailable", err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

// decodeRunReq reads the optional run options from the JSON body and the
// query string (?collection=projects&collection=users, ?dry_run=true).
func decodeRunReq(w http.ResponseWriter, r *http.Request) (*runReq, bool) {
	req := &runReq{}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}

	q := r.URL.Query()
	for _, v := range q["collection"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				req.Collections = append(req.Collections, name)
			}
		}
	}
	if v := q.Get("dry_run"); v != "" {
		dry, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dry_run value")
			return nil, false
		}
		req.DryRun = dry
	}
	return req, true
}

func writeRunError(w http.ResponseWriter, prefix string, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, migrate.ErrUnknownCollection) {
		code = http.StatusBadRequest
	}
	writeError(w, code, prefix+": "+err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestID tags each request with an X-Request-ID, reusing the client's.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
