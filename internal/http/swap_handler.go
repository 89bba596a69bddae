package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/filter"
)

type swapService interface {
	Get(ctx context.Context, viewer application.Principal, swapID string) (application.SwapView, error)
	List(ctx context.Context, params application.ListSwapsParams) (filter.Page[application.SwapView], error)
	Stats(ctx context.Context, viewer application.Principal) (application.SwapStats, error)
	RecordSession(ctx context.Context, principal application.Principal, swapID string) (application.Swap, error)
	Complete(ctx context.Context, params application.CompleteSwapParams) (application.Swap, error)
	Cancel(ctx context.Context, principal application.Principal, swapID, reason string) (application.Swap, error)
}

// SwapHandler serves swaps from the caller's perspective.
type SwapHandler struct {
	service   swapService
	responder responder
	logger    *slog.Logger
}

func NewSwapHandler(service swapService, logger *slog.Logger) *SwapHandler {
	base := defaultLogger(logger)
	return &SwapHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SwapHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	query := r.URL.Query()
	page, err := parsePage(query)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.List(r.Context(), application.ListSwapsParams{
		Viewer: principalFrom(r),
		Status: application.SwapStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		Query:  query.Get("q"),
		Page:   page,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPageResponse(result))
}

func (h *SwapHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	stats, err := h.service.Stats(r.Context(), principalFrom(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, stats)
}

func (h *SwapHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	view, err := h.service.Get(r.Context(), principalFrom(r), pathID(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, view)
}

// RecordSession counts one more completed session on the swap.
func (h *SwapHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	swap, err := h.service.RecordSession(r.Context(), principalFrom(r), pathID(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, swap)
}

func (h *SwapHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req completeSwapBody
	if err := decodeBody(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	swapID := pathID(r)
	swap, err := h.service.Complete(r.Context(), application.CompleteSwapParams{
		Principal: principalFrom(r),
		SwapID:    swapID,
		Rating:    req.Rating,
		Feedback:  req.Feedback,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "SwapHandler", "Complete", "swap_id", swapID).
		InfoContext(r.Context(), "swap completed", "rated", req.Rating != nil)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, swap)
}

func (h *SwapHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req cancelSwapBody
	if err := decodeBody(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	swap, err := h.service.Cancel(r.Context(), principalFrom(r), pathID(r), req.Reason)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, swap)
}

type completeSwapBody struct {
	Rating   *int   `json:"rating"`
	Feedback string `json:"feedback"`
}

type cancelSwapBody struct {
	Reason string `json:"reason"`
}
