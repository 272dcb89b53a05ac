package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"balancer-gateway/internal/envelope"
	"balancer-gateway/internal/replication"
	"balancer-gateway/internal/statsview"
	"balancer-gateway/pkg/apperror"
	"balancer-gateway/pkg/metrics"
	"balancer-gateway/pkg/telemetry"
)

// reservedPaths are never treated as proxy traffic (spec §6); this module
// carries no documentation server, so they resolve to a plain 404 rather
// than a fabricated docs endpoint.
var reservedPaths = map[string]bool{
	"/docs":         true,
	"/openapi.json": true,
	"/redoc":        true,
}

// Handler is the HTTP entry point: it routes /stats to the EMA view,
// rejects the reserved documentation paths, and treats everything else as
// proxy traffic driven by the Orchestrator.
type Handler struct {
	orchestrator *Orchestrator
	stats        *statsview.View
	log          *slog.Logger
}

// NewHandler wires an http.Handler around an Orchestrator and a stats view.
func NewHandler(orchestrator *Orchestrator, stats *statsview.View, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{orchestrator: orchestrator, stats: stats, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/stats":
		h.serveStats(w, r)
	case reservedPaths[r.URL.Path]:
		http.NotFound(w, r)
	default:
		h.serveProxy(w, r)
	}
}

func (h *Handler) serveStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.stats.Snapshot()); err != nil {
		h.log.Warn("failed to encode /stats response", "error", err)
	}
}

// requestIDHeader is the correlation id every proxied request carries in
// its response, echoing a caller-supplied value or minting one, the same
// way the teacher's services thread a request id through pkg/logger.
const requestIDHeader = "X-Request-Id"

func (h *Handler) serveProxy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)
	log := h.log.With("request_id", requestID)

	ctx, span := telemetry.StartSpan(r.Context(), "proxy.serve")
	defer span.End()
	span.SetAttributes(telemetry.RequestAttributes(r.Method, r.URL.Path)...)

	brs, err := envelope.Parse(r.Header)
	if err != nil {
		h.writeError(ctx, w, log, start, "", "", err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(ctx, w, log, start, brs.BalancerStrategy, brs.CompletionStrategy,
			apperror.Wrap(err, apperror.CodeInvalidEnvelope, "failed to read request body"))
		return
	}

	cmd := replication.Command{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header,
		Body:   body,
	}

	outcome, err := h.orchestrator.Handle(ctx, cmd, brs)
	if err != nil {
		h.writeError(ctx, w, log, start, brs.BalancerStrategy, outcome.CompletionPolicy, err)
		return
	}

	span.SetAttributes(telemetry.OutcomeAttributes(outcome.Strategy, outcome.CompletionPolicy, outcome.Fanout, outcome.Result.WinnerNodeID)...)
	span.SetStatus(codes.Ok, "")

	for key, values := range outcome.Result.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(outcome.Result.Status)
	if _, err := w.Write(outcome.Result.Body); err != nil {
		log.Warn("failed to write proxied response body", "error", err)
	}

	metrics.Get().RecordProxyRequest(outcome.Strategy, outcome.CompletionPolicy, http.StatusText(outcome.Result.Status), time.Since(start))
}

// writeError maps err to its HTTP status via apperror.HTTPStatusFor,
// records the span and the proxy-request metric, and writes a short JSON
// detail body to the client.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, log *slog.Logger, start time.Time, strategy, completionPolicy string, err error) {
	status := apperror.HTTPStatusFor(err)
	telemetry.SetError(ctx, err)

	log.Warn("proxy request failed", "error", err, "status", status)
	metrics.Get().RecordProxyRequest(strategy, completionPolicy, http.StatusText(status), time.Since(start))

	body := map[string]any{
		"error": err.Error(),
		"code":  string(apperror.Code(err)),
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		if msgs, ok := appErr.Details["errors"].([]string); ok {
			body["errors"] = msgs
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
