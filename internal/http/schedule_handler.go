package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/skillswap/internal/application"
)

type scheduleService interface {
	ScheduleSession(ctx context.Context, params application.ScheduleSessionParams) (application.ScheduleEvent, error)
	ScheduleSeries(ctx context.Context, params application.ScheduleSeriesParams) ([]application.ScheduleEvent, error)
	EventsForDate(ctx context.Context, viewer application.Principal, date string) ([]application.EventView, error)
	Upcoming(ctx context.Context, viewer application.Principal, limit int) ([]application.EventView, error)
	History(ctx context.Context, viewer application.Principal, limit int) ([]application.EventView, error)
	MarkCompleted(ctx context.Context, principal application.Principal, eventID string) (application.ScheduleEvent, error)
	CancelEvent(ctx context.Context, principal application.Principal, eventID string) (application.ScheduleEvent, error)
}

// ScheduleHandler serves the caller's calendar of sessions.
type ScheduleHandler struct {
	service   scheduleService
	responder responder
	location  *time.Location
	now       func() time.Time
}

// NewScheduleHandler builds the calendar handler. loc names the zone used to
// pick "today" when a day view is requested without a date.
func NewScheduleHandler(service scheduleService, loc *time.Location, logger *slog.Logger) *ScheduleHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleHandler{service: service, responder: newResponder(logger), location: loc, now: time.Now}
}

// Day lists the caller's sessions on ?date=, defaulting to today.
func (h *ScheduleHandler) Day(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = h.now().In(h.location).Format(time.DateOnly)
	}

	views, err := h.service.EventsForDate(r.Context(), principalFrom(r), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dayResponse{Date: date, Items: nonNil(views)})
}

func (h *ScheduleHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	h.list(w, r, h.service.Upcoming)
}

func (h *ScheduleHandler) History(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	h.list(w, r, h.service.History)
}

func (h *ScheduleHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, application.Principal, int) ([]application.EventView, error)) {
	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	views, err := fetch(r.Context(), principalFrom(r), limit)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toListResponse(views))
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req sessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.ScheduleSession(r.Context(), application.ScheduleSessionParams{
		Principal: principalFrom(r),
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, event)
}

// CreateSeries books a recurring run of sessions in one all-or-nothing commit.
func (h *ScheduleHandler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	var req seriesRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	events, err := h.service.ScheduleSeries(r.Context(), application.ScheduleSeriesParams{
		Principal: principalFrom(r),
		Input:     req.sessionRequest.toInput(),
		Frequency: req.Frequency,
		Interval:  req.Interval,
		Weekdays:  req.Weekdays,
		Until:     req.Until,
		Count:     req.Count,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toListResponse(events))
}

func (h *ScheduleHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	h.finish(w, r, h.service.MarkCompleted)
}

func (h *ScheduleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	h.finish(w, r, h.service.CancelEvent)
}

func (h *ScheduleHandler) finish(w http.ResponseWriter, r *http.Request, apply func(context.Context, application.Principal, string) (application.ScheduleEvent, error)) {
	event, err := apply(r.Context(), principalFrom(r), pathID(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, event)
}

type sessionRequest struct {
	SwapID          string `json:"swapId"`
	PartnerID       string `json:"partnerId"`
	Skill           string `json:"skill"`
	Title           string `json:"title"`
	Kind            string `json:"kind"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"durationMinutes"`
	Location        string `json:"location"`
}

func (r sessionRequest) toInput() application.SessionInput {
	return application.SessionInput{
		SwapID:          strings.TrimSpace(r.SwapID),
		PartnerID:       strings.TrimSpace(r.PartnerID),
		Skill:           strings.TrimSpace(r.Skill),
		Title:           strings.TrimSpace(r.Title),
		Kind:            strings.TrimSpace(r.Kind),
		Date:            strings.TrimSpace(r.Date),
		Time:            strings.TrimSpace(r.Time),
		DurationMinutes: r.DurationMinutes,
		Location:        strings.TrimSpace(r.Location),
	}
}

type seriesRequest struct {
	sessionRequest
	Frequency string   `json:"frequency"`
	Interval  int      `json:"interval"`
	Weekdays  []string `json:"weekdays"`
	Until     string   `json:"until"`
	Count     int      `json:"count"`
}

type dayResponse struct {
	Date  string                  `json:"date"`
	Items []application.EventView `json:"items"`
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
