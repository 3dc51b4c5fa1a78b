package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nameguard/internal/verification"
	"nameguard/pkg/platform/httputil"
	"nameguard/pkg/requestcontext"
)

// Service defines the interface for name verification.
type Service interface {
	Verify(ctx context.Context, target, candidate string) (*verification.Result, error)
}

// Handler wires name verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/names/verify", h.HandleVerify)
}

// HandleVerify handles POST /v1/names/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req.TargetName, req.CandidateName)
	if err != nil {
		// The service already logged the failure with its subject hash.
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verify request served",
		"request_id", requestID,
		"source", result.Source,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result, requestID))
}
