package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/skillswap/internal/recurrence"
	"github.com/example/skillswap/internal/scheduler"
)

// ScheduleService assigns sessions to swaps, refuses double-booked slots and
// derives the calendar views of a user.
type ScheduleService struct {
	deps Dependencies
}

// NewScheduleService constructs a schedule service with the provided dependencies.
func NewScheduleService(deps Dependencies) *ScheduleService {
	return &ScheduleService{deps: deps.withDefaults()}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.deps.Logger, "ScheduleService", operation, attrs...)
}

// sessionPlan is a validated session request resolved against the store.
type sessionPlan struct {
	swap      *Swap
	ownerID   string
	partnerID string
	title     string
	skill     string
	kind      SessionKind
	date      string
	clock     string
	duration  int
	location  LocationMode
}

// ScheduleSession creates one upcoming session after checking both
// participants are free at (date, time).
func (s *ScheduleService) ScheduleSession(ctx context.Context, params ScheduleSessionParams) (event ScheduleEvent, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ScheduleSession",
		"principal_id", params.Principal.UserID,
		"swap_id", params.Input.SwapID,
		"date", params.Input.Date,
		"time", params.Input.Time,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to schedule session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "session scheduled")
	}()

	var plan sessionPlan
	plan, err = s.plan(ctx, params.Principal, params.Input)
	if err != nil {
		return
	}

	var events []ScheduleEvent
	events, err = s.commit(ctx, logger, params.Principal, plan, recurrence.Occurrence{})
	if err != nil {
		return
	}
	event = events[0]
	return
}

// ScheduleSeries creates Count weekly sessions starting at Input.Date. Every
// slot is checked first and nothing is written when any of them collides.
func (s *ScheduleService) ScheduleSeries(ctx context.Context, params ScheduleSeriesParams) (events []ScheduleEvent, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ScheduleSeries",
		"principal_id", params.Principal.UserID,
		"swap_id", params.Input.SwapID,
		"count", params.Count,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to schedule series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("scheduled", len(events)).InfoContext(ctx, "session series scheduled")
	}()

	loc := s.deps.Settings.Location
	vErr := &ValidationError{}
	if params.Count < 0 || params.Count > recurrence.MaxOccurrences {
		vErr.add("count", fmt.Sprintf("count must be between 1 and %d", recurrence.MaxOccurrences))
	}
	if params.Interval < 0 {
		vErr.add("interval", "interval must not be negative")
	}
	frequency, ok := recurrence.ParseFrequency(params.Frequency)
	if !ok {
		vErr.add("frequency", "frequency must be weekly or daily")
	}
	weekdays := make([]time.Weekday, 0, len(params.Weekdays))
	for _, name := range params.Weekdays {
		day, ok := recurrence.ParseWeekday(name)
		if !ok {
			vErr.add("weekdays", fmt.Sprintf("unknown weekday %q", name))
			continue
		}
		weekdays = append(weekdays, day)
	}
	var until *time.Time
	if value := strings.TrimSpace(params.Until); value != "" {
		day, perr := time.ParseInLocation(time.DateOnly, value, loc)
		if perr != nil {
			vErr.add("until", "until must be formatted YYYY-MM-DD")
		} else {
			until = &day
		}
	} else if params.Count == 0 {
		vErr.add("count", "count or until is required")
	}

	var plan sessionPlan
	plan, err = s.plan(ctx, params.Principal, params.Input)
	var planErr *ValidationError
	if errors.As(err, &planErr) {
		vErr.merge(planErr)
		err = nil
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err != nil {
		return
	}

	var startsOn time.Time
	startsOn, err = time.ParseInLocation(time.DateOnly, plan.date, loc)
	if err != nil {
		return
	}
	if until != nil && until.Before(startsOn) {
		err = newValidationError("until", "until must not precede the first session")
		return
	}

	// Days already past are skipped; they still count towards Count.
	var today time.Time
	today, err = time.ParseInLocation(time.DateOnly, scheduler.Today(s.deps.Now(), loc), loc)
	if err != nil {
		return
	}
	var occurrences []recurrence.Occurrence
	occurrences, err = recurrence.NewEngine(loc).GenerateOccurrences(recurrence.Rule{
		SeriesID:  s.deps.IDGenerator(),
		Frequency: frequency,
		Interval:  params.Interval,
		Weekdays:  weekdays,
		StartsOn:  startsOn,
		EndsOn:    until,
		Count:     params.Count,
	}, recurrence.GenerateOptions{RangeStart: &today})
	if errors.Is(err, recurrence.ErrTooManyOccurrences) {
		err = newValidationError("until", fmt.Sprintf("series must not exceed %d sessions", recurrence.MaxOccurrences))
		return
	}
	if err != nil {
		return
	}
	if len(occurrences) == 0 {
		err = newValidationError("date", "series has no sessions on or after today")
		return
	}
	if plan.swap != nil {
		remaining := plan.swap.TotalSessions - plan.swap.SessionsCompleted
		if len(occurrences) > remaining {
			err = newValidationError("count", fmt.Sprintf("swap has %d sessions remaining", remaining))
			return
		}
	}

	events, err = s.commit(ctx, logger, params.Principal, plan, occurrences...)
	return
}

// plan validates input and resolves the swap or partner it refers to.
func (s *ScheduleService) plan(ctx context.Context, principal Principal, input SessionInput) (sessionPlan, error) {
	vErr := &ValidationError{}
	plan := sessionPlan{
		ownerID:  principal.UserID,
		title:    strings.TrimSpace(input.Title),
		skill:    strings.TrimSpace(input.Skill),
		duration: input.DurationMinutes,
	}

	if input.DurationMinutes <= 0 {
		vErr.add("durationMinutes", "duration must be positive")
	}
	if date, err := scheduler.NormalizeDate(input.Date); err != nil {
		vErr.add("date", "date must be formatted YYYY-MM-DD")
	} else {
		plan.date = date
	}
	if clock, err := scheduler.NormalizeTime(input.Time); err != nil {
		vErr.add("time", "time must be formatted HH:MM or h:MM AM/PM")
	} else {
		plan.clock = clock
	}
	switch kind := SessionKind(strings.ToLower(strings.TrimSpace(input.Kind))); kind {
	case "":
		plan.kind = SessionTeaching
	case SessionTeaching, SessionLearning:
		plan.kind = kind
	default:
		vErr.add("kind", "kind must be teaching or learning")
	}
	switch location := LocationMode(strings.ToLower(strings.TrimSpace(input.Location))); location {
	case "":
		plan.location = LocationOnline
	case LocationOnline, LocationInPerson:
		plan.location = location
	default:
		vErr.add("location", "location must be online or in-person")
	}
	if input.SwapID == "" && input.PartnerID == "" {
		vErr.add("swapId", "swap or partner is required")
	}
	if input.SwapID == "" && plan.ownerID == "" {
		vErr.add("partnerId", "standalone sessions need an identified owner")
	}
	if input.SwapID == "" && input.PartnerID != "" && input.PartnerID == plan.ownerID {
		vErr.add("partnerId", "cannot schedule a session with yourself")
	}
	if input.SwapID == "" && plan.skill == "" {
		vErr.add("skill", "skill is required for standalone sessions")
	}
	if vErr.HasErrors() {
		return sessionPlan{}, vErr
	}

	store := s.deps.Store
	if input.SwapID != "" {
		swap, err := store.Swap(ctx, input.SwapID)
		if err != nil {
			return sessionPlan{}, err
		}
		if plan.ownerID == "" {
			plan.ownerID = swap.OwnerID
		}
		if !swap.HasParticipant(plan.ownerID) {
			return sessionPlan{}, ErrUnauthorized
		}
		if swap.Status != SwapActive {
			return sessionPlan{}, &InvalidTransitionError{Kind: KindSwap, ID: swap.ID, From: string(swap.Status), Operation: "schedule session for"}
		}
		plan.swap = &swap
		plan.partnerID = swap.CounterpartOf(plan.ownerID)
		if plan.skill == "" {
			view := swapView(swap, plan.ownerID, nil)
			if plan.kind == SessionTeaching {
				plan.skill = view.MySkill
			} else {
				plan.skill = view.PartnerSkill
			}
		}
	} else {
		if _, err := store.User(ctx, plan.ownerID); err != nil {
			return sessionPlan{}, err
		}
		if _, err := store.User(ctx, input.PartnerID); err != nil {
			return sessionPlan{}, err
		}
		plan.partnerID = input.PartnerID
	}

	if plan.title == "" {
		plan.title = plan.skill + " session"
	}
	return plan, nil
}

// commit writes one event per date under both participants' locks.
// commit books one event per occurrence. A zero occurrence books plan.date
// outside any series.
func (s *ScheduleService) commit(ctx context.Context, logger *slog.Logger, principal Principal, plan sessionPlan, occurrences ...recurrence.Occurrence) ([]ScheduleEvent, error) {
	store := s.deps.Store
	now := s.deps.Now()

	created := make([]ScheduleEvent, 0, len(occurrences))
	for _, o := range occurrences {
		date := plan.date
		if !o.Date.IsZero() {
			date = o.DateString()
		}
		event := ScheduleEvent{
			ID:              s.deps.IDGenerator(),
			SeriesID:        o.SeriesID,
			OwnerID:         plan.ownerID,
			PartnerID:       plan.partnerID,
			Title:           plan.title,
			Skill:           plan.skill,
			Date:            date,
			Time:            plan.clock,
			DurationMinutes: plan.duration,
			Kind:            plan.kind,
			Location:        plan.location,
			Status:          EventUpcoming,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if plan.swap != nil {
			event.SwapID = plan.swap.ID
		}
		created = append(created, event)
	}

	conflictErr, err := func() (*ConflictError, error) {
		unlock := store.Lock(plan.ownerID, plan.partnerID)
		defer unlock()

		if plan.swap != nil {
			current, err := store.Swap(ctx, plan.swap.ID)
			if err != nil {
				return nil, err
			}
			if current.Status != SwapActive {
				return nil, &InvalidTransitionError{Kind: KindSwap, ID: current.ID, From: string(current.Status), Operation: "schedule session for"}
			}
		}

		existing, err := store.Events(ctx)
		if err != nil {
			return nil, err
		}
		if conflicts := scheduler.DetectBatchConflicts(toSlots(existing), toSlots(created)); len(conflicts) > 0 {
			logger.WarnContext(ctx, "slot already booked", "conflicting_users", scheduler.Participants(conflicts))
			return newConflictError(conflicts), nil
		}

		entities := make([]storable, 0, len(created))
		for _, event := range created {
			entities = append(entities, event)
		}
		return nil, store.Upsert(ctx, entities...)
	}()
	if err != nil {
		return nil, err
	}
	if conflictErr != nil {
		publishEvents(ctx, s.deps.Events, logger, Event{
			Type:       EventSessionConflict,
			OccurredAt: now,
			ActorID:    principal.UserID,
			Recipients: []string{plan.ownerID},
			Payload:    conflictErr.Conflicts,
		})
		return nil, conflictErr
	}

	events := make([]Event, 0, len(created))
	for _, event := range created {
		events = append(events, Event{
			Type:       EventSessionScheduled,
			OccurredAt: now,
			ActorID:    principal.UserID,
			EntityID:   event.ID,
			Recipients: event.Participants(),
			Payload:    event,
		})
	}
	publishEvents(ctx, s.deps.Events, logger, events...)
	return created, nil
}

// MarkCompleted moves an upcoming session to completed.
func (s *ScheduleService) MarkCompleted(ctx context.Context, principal Principal, eventID string) (ScheduleEvent, error) {
	return s.finish(ctx, principal, eventID, EventCompleted, "complete", EventSessionCompleted)
}

// CancelEvent moves an upcoming session to cancelled, freeing its slot.
func (s *ScheduleService) CancelEvent(ctx context.Context, principal Principal, eventID string) (ScheduleEvent, error) {
	return s.finish(ctx, principal, eventID, EventCancelled, "cancel", EventSessionCancelled)
}

func (s *ScheduleService) finish(ctx context.Context, principal Principal, eventID string, to EventStatus, operation string, eventType EventType) (event ScheduleEvent, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Finish",
		"principal_id", principal.UserID,
		"event_id", eventID,
		"to_status", string(to),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session updated")
	}()

	store := s.deps.Store
	event, err = store.Event(ctx, eventID)
	if err != nil {
		return
	}

	err = func() error {
		unlock := store.Lock(event.OwnerID, event.PartnerID)
		defer unlock()

		current, err := store.Event(ctx, eventID)
		if err != nil {
			return err
		}
		if !principal.IsZero() && !current.HasParticipant(principal.UserID) {
			return ErrUnauthorized
		}
		if current.Status != EventUpcoming {
			return &InvalidTransitionError{Kind: KindEvent, ID: current.ID, From: string(current.Status), Operation: operation}
		}
		current.Status = to
		current.UpdatedAt = s.deps.Now()
		if err := store.Upsert(ctx, current); err != nil {
			return err
		}
		event = current
		return nil
	}()
	if err != nil {
		event = ScheduleEvent{}
		return
	}

	publishEvents(ctx, s.deps.Events, logger, Event{
		Type:       eventType,
		OccurredAt: event.UpdatedAt,
		ActorID:    principal.UserID,
		EntityID:   event.ID,
		Recipients: event.Participants(),
		Payload:    event,
	})
	return
}

// EventsForDate returns the viewer's sessions on one calendar day ordered by time.
func (s *ScheduleService) EventsForDate(ctx context.Context, viewer Principal, date string) ([]EventView, error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	day, err := scheduler.NormalizeDate(date)
	if err != nil {
		return nil, newValidationError("date", "date must be formatted YYYY-MM-DD")
	}

	views, err := s.viewsFor(ctx, viewer.UserID, func(e ScheduleEvent, _ string) bool {
		return e.Date == day
	})
	if err != nil {
		return nil, err
	}
	sortChronologically(views)
	return views, nil
}

// Upcoming returns upcoming sessions dated today or later in the viewer's
// zone, soonest first, truncated to limit. Limit <= 0 selects the default.
func (s *ScheduleService) Upcoming(ctx context.Context, viewer Principal, limit int) ([]EventView, error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.deps.Settings.UpcomingLimit
	}

	views, err := s.viewsFor(ctx, viewer.UserID, func(e ScheduleEvent, today string) bool {
		return e.Status == EventUpcoming && e.Date >= today
	})
	if err != nil {
		return nil, err
	}
	sortChronologically(views)
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// History returns finished sessions and sessions dated before today, newest first.
func (s *ScheduleService) History(ctx context.Context, viewer Principal, limit int) ([]EventView, error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}

	views, err := s.viewsFor(ctx, viewer.UserID, func(e ScheduleEvent, today string) bool {
		return e.Status != EventUpcoming || e.Date < today
	})
	if err != nil {
		return nil, err
	}
	sortChronologically(views)
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

func (s *ScheduleService) viewsFor(ctx context.Context, viewerID string, keep func(e ScheduleEvent, today string) bool) ([]EventView, error) {
	store := s.deps.Store
	viewer, err := store.User(ctx, viewerID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	loc := s.deps.locationFor(viewer)
	today := scheduler.Today(s.deps.Now(), loc)

	events, err := store.Events(ctx)
	if err != nil {
		return nil, err
	}
	names, err := store.userNames(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]EventView, 0)
	for _, e := range events {
		if !e.HasParticipant(viewerID) || !keep(e, today) {
			continue
		}
		views = append(views, eventView(e, viewerID, today, loc, names))
	}
	return views, nil
}

func eventView(e ScheduleEvent, viewerID, today string, loc *time.Location, names map[string]string) EventView {
	view := EventView{
		ScheduleEvent: e,
		PartnerID:     e.PartnerID,
		Kind:          e.Kind,
		DisplayTime:   scheduler.FormatClock(e.Time),
		IsToday:       e.Date == today,
	}
	if start, err := scheduler.Start(e.Date, e.Time, loc); err == nil {
		view.StartsAt = start
	}
	if viewerID == e.PartnerID {
		view.PartnerID = e.OwnerID
		view.Kind = e.Kind.Opposite()
	}
	view.PartnerName = names[view.PartnerID]
	return view
}

func sortChronologically(views []EventView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
}

func toSlots(events []ScheduleEvent) []scheduler.Slot {
	slots := make([]scheduler.Slot, 0, len(events))
	for _, e := range events {
		slots = append(slots, scheduler.Slot{
			EventID:      e.ID,
			Participants: e.Participants(),
			Date:         e.Date,
			Time:         e.Time,
			Cancelled:    e.Status == EventCancelled,
		})
	}
	return slots
}

func newConflictError(conflicts []scheduler.Conflict) *ConflictError {
	out := &ConflictError{
		Date:      conflicts[0].Date,
		Time:      conflicts[0].Time,
		Conflicts: make([]SlotConflict, 0, len(conflicts)),
	}
	for _, c := range conflicts {
		out.Conflicts = append(out.Conflicts, SlotConflict{
			EventID: c.WithEventID,
			UserID:  c.Participant,
			Date:    c.Date,
			Time:    c.Time,
		})
	}
	return out
}
