package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/filter"
)

type requestService interface {
	Create(ctx context.Context, params application.CreateRequestParams) (application.SwapRequest, error)
	Accept(ctx context.Context, params application.AcceptRequestParams) (application.AcceptResult, error)
	Reject(ctx context.Context, principal application.Principal, requestID string) (application.SwapRequest, error)
	List(ctx context.Context, params application.ListRequestsParams) (filter.Page[application.RequestView], error)
	Stats(ctx context.Context, viewer application.Principal) (application.RequestStats, error)
}

// RequestHandler serves the caller's incoming and outgoing swap requests.
type RequestHandler struct {
	service   requestService
	responder responder
}

func NewRequestHandler(service requestService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{service: service, responder: newResponder(logger)}
}

func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.service.List(r.Context(), application.ListRequestsParams{
		Viewer:    principalFrom(r),
		Direction: application.Direction(strings.ToLower(strings.TrimSpace(query.Get("direction")))),
		Status:    application.RequestStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		Query:     query.Get("q"),
		Page:      page,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPageResponse(result))
}

func (h *RequestHandler) Stats(w http.ResponseWriter, r *http.Request) {
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

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req swapRequestBody
	if err := decodeBody(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal := principalFrom(r)
	request, err := h.service.Create(r.Context(), application.CreateRequestParams{
		Principal: principal,
		Input: application.RequestInput{
			RequesterID:  principal.UserID,
			RecipientID:  strings.TrimSpace(req.RecipientID),
			OfferedSkill: req.OfferedSkill,
			WantedSkill:  req.WantedSkill,
			Message:      req.Message,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, request)
}

func (h *RequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req acceptRequestBody
	if err := decodeBody(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.Accept(r.Context(), application.AcceptRequestParams{
		Principal:     principalFrom(r),
		RequestID:     pathID(r),
		TotalSessions: req.TotalSessions,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	request, err := h.service.Reject(r.Context(), principalFrom(r), pathID(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, request)
}

type swapRequestBody struct {
	RecipientID  string `json:"recipientId"`
	OfferedSkill string `json:"offeredSkill"`
	WantedSkill  string `json:"wantedSkill"`
	Message      string `json:"message"`
}

type acceptRequestBody struct {
	TotalSessions int `json:"totalSessions"`
}
