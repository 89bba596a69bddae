package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/filter"
)

type listingService interface {
	Advertise(ctx context.Context, params application.AdvertiseParams) (application.SkillListing, error)
	Withdraw(ctx context.Context, principal application.Principal, listingID string) (application.SkillListing, error)
	Browse(ctx context.Context, params application.BrowseListingsParams) (filter.Page[application.ListingView], error)
}

// ListingHandler serves the skill listing board.
type ListingHandler struct {
	service   listingService
	responder responder
	logger    *slog.Logger
}

func NewListingHandler(service listingService, logger *slog.Logger) *ListingHandler {
	base := defaultLogger(logger)
	return &ListingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ListingHandler) Browse(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.service.Browse(r.Context(), application.BrowseListingsParams{
		Viewer:       principalFrom(r),
		Query:        query.Get("q"),
		Skill:        query.Get("skill"),
		Location:     query.Get("location"),
		Availability: query.Get("availability"),
		Page:         page,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPageResponse(result))
}

func (h *ListingHandler) Advertise(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req listingRequest
	if err := decodeBody(w, r, &req); err != nil {
		handlerLogger(r.Context(), h.logger, "ListingHandler", "Advertise", "error_kind", "bad_request").
			WarnContext(r.Context(), "failed to decode listing", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	listing, err := h.service.Advertise(r.Context(), application.AdvertiseParams{
		Principal: principalFrom(r),
		Input: application.ListingInput{
			SkillOffered: strings.TrimSpace(req.SkillOffered),
			SkillWanted:  strings.TrimSpace(req.SkillWanted),
			Description:  req.Description,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listing)
}

func (h *ListingHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	if _, err := h.service.Withdraw(r.Context(), principalFrom(r), pathID(r)); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type listingRequest struct {
	SkillOffered string `json:"skillOffered"`
	SkillWanted  string `json:"skillWanted"`
	Description  string `json:"description"`
}
