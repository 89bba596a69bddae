package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/filter"
)

type userService interface {
	Register(ctx context.Context, params application.RegisterUserParams) (application.User, error)
	UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.User, error)
	Get(ctx context.Context, viewer application.Principal, userID string) (application.UserView, error)
	Connect(ctx context.Context, principal application.Principal, targetID string) (application.UserView, error)
	Disconnect(ctx context.Context, principal application.Principal, targetID string) (application.UserView, error)
	SetOnline(ctx context.Context, principal application.Principal, online bool) (application.User, error)
	Browse(ctx context.Context, params application.BrowseUsersParams) (filter.Page[application.UserView], error)
}

// UserHandler serves the caller's profile and the member directory.
type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// Me returns the caller's own profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	principal := principalFrom(r)
	view, err := h.service.Get(r.Context(), principal, principal.UserID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, view)
}

// Register creates the caller's profile.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req profileRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode profile", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.Register(r.Context(), application.RegisterUserParams{
		Principal: principalFrom(r),
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Register", "user_id", user.ID).InfoContext(r.Context(), "profile registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, user)
}

// UpdateMe replaces the caller's editable profile fields.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req profileRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.log(r.Context(), "UpdateMe", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode profile", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), application.UpdateProfileParams{
		Principal: principalFrom(r),
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, user)
}

// SetPresence toggles the caller's online flag.
func (h *UserHandler) SetPresence(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req presenceRequest
	if err := decodeBody(w, r, &req); err != nil || req.Online == nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.SetOnline(r.Context(), principalFrom(r), *req.Online)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, user)
}

// Browse pages through other members using the directory filters.
func (h *UserHandler) Browse(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.service.Browse(r.Context(), application.BrowseUsersParams{
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

// Get returns one member as seen by the caller.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
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

// Connect links the caller with the member in the path.
func (h *UserHandler) Connect(w http.ResponseWriter, r *http.Request) {
	h.link(w, r, "Connect", true)
}

// Disconnect removes the link between the caller and the member in the path.
func (h *UserHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.link(w, r, "Disconnect", false)
}

func (h *UserHandler) link(w http.ResponseWriter, r *http.Request, operation string, connect bool) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	targetID := pathID(r)
	var (
		view application.UserView
		err  error
	)
	if connect {
		view, err = h.service.Connect(r.Context(), principalFrom(r), targetID)
	} else {
		view, err = h.service.Disconnect(r.Context(), principalFrom(r), targetID)
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), operation, "target_id", targetID).InfoContext(r.Context(), "connection updated", "connected", view.Connected)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, view)
}

type profileRequest struct {
	DisplayName   string   `json:"displayName"`
	Location      string   `json:"location"`
	Bio           string   `json:"bio"`
	SkillsOffered []string `json:"skillsOffered"`
	SkillsWanted  []string `json:"skillsWanted"`
	Availability  string   `json:"availability"`
	TimeZone      string   `json:"timeZone"`
}

func (r profileRequest) toInput() application.ProfileInput {
	return application.ProfileInput{
		DisplayName:   strings.TrimSpace(r.DisplayName),
		Location:      strings.TrimSpace(r.Location),
		Bio:           r.Bio,
		SkillsOffered: append([]string(nil), r.SkillsOffered...),
		SkillsWanted:  append([]string(nil), r.SkillsWanted...),
		Availability:  strings.TrimSpace(r.Availability),
		TimeZone:      strings.TrimSpace(r.TimeZone),
	}
}

type presenceRequest struct {
	Online *bool `json:"online"`
}
