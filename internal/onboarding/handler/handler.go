package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"clerk/internal/onboarding"
	"clerk/internal/reconcile"
	"clerk/pkg/platform/httputil"
	"clerk/pkg/requestcontext"
)

// Service defines the onboarding operations exposed over HTTP.
type Service interface {
	Evaluate(ctx context.Context, clientID string, record reconcile.ClientRecord) (*onboarding.Result, error)
	EvaluateSnapshot(ctx context.Context, id string) (*onboarding.Result, error)
	NextClient(ctx context.Context) (*onboarding.ClientView, error)
}

// Handler wires onboarding endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an onboarding handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts onboarding endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/next-client", h.HandleNextClient)
	r.Post("/decision/evaluate", h.HandleEvaluate)
	r.Get("/clients/{id}/decision", h.HandleClientDecision)
}

// HandleEvaluate handles POST /decision/evaluate.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, err := httputil.DecodeJSON[EvaluateRequest](w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid evaluate request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Evaluate(ctx, req.ClientID, req.Record())
	if err != nil {
		h.fail(ctx, w, "decision evaluation failed", req.ClientID, err)
		return
	}

	h.logger.InfoContext(ctx, "decision evaluated",
		"request_id", requestID,
		"client_id", req.ClientID,
		"decision", result.Decision,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	h.respond(ctx, w, result)
}

// HandleClientDecision handles GET /clients/{id}/decision.
func (h *Handler) HandleClientDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	result, err := h.service.EvaluateSnapshot(ctx, id)
	if err != nil {
		h.fail(ctx, w, "snapshot evaluation failed", id, err)
		return
	}
	h.respond(ctx, w, result)
}

// HandleNextClient handles GET /next-client: a random stored client's fields
// together with its report and decision.
func (h *Handler) HandleNextClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.service.NextClient(ctx)
	if err != nil {
		h.fail(ctx, w, "next client failed", "", err)
		return
	}
	body, err := FromClientView(view)
	if err != nil {
		h.fail(ctx, w, "encode client view failed", view.Snapshot.ID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, result *onboarding.Result) {
	body, err := FromResult(result)
	if err != nil {
		h.fail(ctx, w, "encode result failed", result.ClientID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg, clientID string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"client_id", clientID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
