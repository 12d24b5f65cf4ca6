package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/code-context-engine/internal/config"
	"github.com/kirillkom/code-context-engine/internal/core/domain"
	"github.com/kirillkom/code-context-engine/internal/core/ports"
	"github.com/kirillkom/code-context-engine/internal/core/usecase"
)

const (
	serviceName      = "context-api"
	backpressureWait = 250 * time.Millisecond
)

type Metrics interface {
	Handler() http.Handler
	Middleware(service string, next http.Handler) http.Handler
}

type Options struct {
	Metrics Metrics
	// Health reports readiness of downstream collaborators. Nil means always healthy.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

type Router struct {
	cfg     config.Config
	builder ports.ContextBuilder
	packets ports.PacketReader
	opts    Options
	logger  *slog.Logger
}

func NewRouter(cfg config.Config, builder ports.ContextBuilder, packets ports.PacketReader, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:     cfg,
		builder: builder,
		packets: packets,
		opts:    opts,
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/context", rt.buildContext)
	mux.HandleFunc("GET /v1/context/last", rt.lastContext)
	mux.HandleFunc("GET /v1/context/{packet_id}", rt.getContext)
	if rt.opts.Metrics != nil {
		mux.Handle("GET /metrics", rt.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.OpenAPIValidation {
		validator, err := newOpenAPIValidator()
		if err != nil {
			rt.logger.Error("openapi_validator_disabled", "error", err)
		} else {
			handler = validator.middleware(handler)
		}
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.opts.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type contextRequest struct {
	Query      string `json:"query"`
	MaxChunks  int    `json:"max_chunks"`
	IncludeRaw bool   `json:"include_raw"`
	Format     string `json:"format"`
}

func (rt *Router) buildContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	switch format {
	case "":
		format = "json"
	case "json", "markdown", "prompt":
	default:
		writeJSONError(w, http.StatusBadRequest, "format must be json, markdown or prompt")
		return
	}

	ctx := r.Context()
	if rt.cfg.APIRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.cfg.APIRequestTimeout)
		defer cancel()
	}

	packet, err := rt.builder.BuildContext(ctx, req.Query, domain.QueryOptions{BaseK: req.MaxChunks})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	status := statusForPacket(packet)
	switch format {
	case "markdown":
		writeText(w, status, "text/markdown; charset=utf-8", usecase.RenderMarkdown(packet, ""))
	case "prompt":
		writeText(w, status, "text/plain; charset=utf-8", usecase.FormatPrompt(packet))
	default:
		writeJSON(w, status, presentPacket(packet, req.IncludeRaw))
	}
}

func (rt *Router) lastContext(w http.ResponseWriter, r *http.Request) {
	packet, err := rt.packets.Last(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentPacket(packet, includeRaw(r)))
}

func (rt *Router) getContext(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("packet_id"))
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "packet id is required")
		return
	}
	packet, err := rt.packets.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentPacket(packet, includeRaw(r)))
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSONError(w, status, err.Error())
}

// presentPacket drops per-block detail unless the caller asked for it.
func presentPacket(packet *domain.ContextPacket, withBlocks bool) *domain.ContextPacket {
	if packet == nil || withBlocks || len(packet.Blocks) == 0 {
		return packet
	}
	out := *packet
	out.Blocks = nil
	return &out
}

func includeRaw(r *http.Request) bool {
	v := strings.ToLower(r.URL.Query().Get("include_raw"))
	return v == "1" || v == "true"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeText(w http.ResponseWriter, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
