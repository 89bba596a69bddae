package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/example/skillswap/internal/filter"
)

// SwapService drives an active swap through session progress to completion
// or cancellation. Both terminal states are final.
type SwapService struct {
	deps Dependencies
}

// NewSwapService constructs a swap service with the provided dependencies.
func NewSwapService(deps Dependencies) *SwapService {
	return &SwapService{deps: deps.withDefaults()}
}

func (s *SwapService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.deps.Logger, "SwapService", operation, attrs...)
}

// RecordSession increments the completed session counter. Reaching the total
// does not complete the swap; callers complete explicitly to attach a rating.
func (s *SwapService) RecordSession(ctx context.Context, principal Principal, swapID string) (swap Swap, err error) {
	if s == nil {
		err = fmt.Errorf("SwapService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RecordSession",
		"principal_id", principal.UserID,
		"swap_id", swapID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("sessions_completed", swap.SessionsCompleted, "total_sessions", swap.TotalSessions).InfoContext(ctx, "session recorded")
	}()

	err = s.transition(ctx, principal, swapID, "record session", func(current Swap) ([]storable, error) {
		if current.SessionsCompleted >= current.TotalSessions {
			return nil, &InvariantViolationError{
				Kind:   KindSwap,
				ID:     current.ID,
				Detail: fmt.Sprintf("all %d sessions already recorded", current.TotalSessions),
			}
		}
		current.SessionsCompleted++
		current.UpdatedAt = s.deps.Now()
		swap = current
		return []storable{current}, nil
	})
	if err != nil {
		swap = Swap{}
		return
	}

	publishEvents(ctx, s.deps.Events, logger, Event{
		Type:       EventSwapProgressed,
		OccurredAt: swap.UpdatedAt,
		ActorID:    principal.UserID,
		EntityID:   swap.ID,
		Recipients: []string{swap.OwnerID, swap.PartnerID},
		Payload:    swap,
	})
	return
}

// Complete finishes an active swap. In the same commit it credits both users
// with a completed swap, folds the rating into the rated user's aggregate and
// marks the originating request completed.
func (s *SwapService) Complete(ctx context.Context, params CompleteSwapParams) (swap Swap, err error) {
	if s == nil {
		err = fmt.Errorf("SwapService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Complete",
		"principal_id", params.Principal.UserID,
		"swap_id", params.SwapID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete swap", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "swap completed")
	}()

	store := s.deps.Store
	err = s.transition(ctx, params.Principal, params.SwapID, "complete", func(current Swap) ([]storable, error) {
		if params.Rating != nil && (*params.Rating < 1 || *params.Rating > 5) {
			return nil, newValidationError("rating", "rating must be between 1 and 5")
		}

		owner, err := store.User(ctx, current.OwnerID)
		if err != nil {
			return nil, err
		}
		partner, err := store.User(ctx, current.PartnerID)
		if err != nil {
			return nil, err
		}

		now := s.deps.Now()
		current.Status = SwapCompleted
		current.CompletedDate = timePtr(now)
		current.Feedback = strings.TrimSpace(params.Feedback)
		current.UpdatedAt = now
		if params.Rating != nil {
			rating := *params.Rating
			current.Rating = &rating
		}

		owner.CompletedSwaps++
		partner.CompletedSwaps++
		if current.Rating != nil {
			// The completing participant rates the other one.
			if params.Principal.UserID == current.PartnerID {
				foldRating(&owner, *current.Rating)
			} else {
				foldRating(&partner, *current.Rating)
			}
		}
		owner.UpdatedAt = now
		partner.UpdatedAt = now

		entities := []storable{current, owner, partner}
		request, err := store.Request(ctx, current.RequestID)
		switch {
		case err == nil:
			if request.Status == RequestAccepted {
				request.Status = RequestCompleted
				entities = append(entities, request)
			}
		case errors.Is(err, ErrNotFound):
		default:
			return nil, err
		}

		swap = current
		return entities, nil
	})
	if err != nil {
		swap = Swap{}
		return
	}

	publishEvents(ctx, s.deps.Events, logger, Event{
		Type:       EventSwapCompleted,
		OccurredAt: *swap.CompletedDate,
		ActorID:    params.Principal.UserID,
		EntityID:   swap.ID,
		Recipients: []string{swap.OwnerID, swap.PartnerID},
		Payload:    swap,
	})
	return
}

// Cancel ends an active swap and cancels its upcoming sessions in the same commit.
func (s *SwapService) Cancel(ctx context.Context, principal Principal, swapID, reason string) (swap Swap, err error) {
	if s == nil {
		err = fmt.Errorf("SwapService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Cancel",
		"principal_id", principal.UserID,
		"swap_id", swapID,
	)
	var cancelled []ScheduleEvent
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel swap", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("cancelled_sessions", len(cancelled)).InfoContext(ctx, "swap cancelled")
	}()

	store := s.deps.Store
	err = s.transition(ctx, principal, swapID, "cancel", func(current Swap) ([]storable, error) {
		events, err := store.Events(ctx)
		if err != nil {
			return nil, err
		}

		now := s.deps.Now()
		current.Status = SwapCancelled
		current.CancelReason = strings.TrimSpace(reason)
		current.UpdatedAt = now

		entities := []storable{current}
		for _, event := range events {
			if event.SwapID != current.ID || event.Status != EventUpcoming {
				continue
			}
			event.Status = EventCancelled
			event.UpdatedAt = now
			cancelled = append(cancelled, event)
			entities = append(entities, event)
		}
		swap = current
		return entities, nil
	})
	if err != nil {
		swap = Swap{}
		cancelled = nil
		return
	}

	events := []Event{{
		Type:       EventSwapCancelled,
		OccurredAt: swap.UpdatedAt,
		ActorID:    principal.UserID,
		EntityID:   swap.ID,
		Recipients: []string{swap.OwnerID, swap.PartnerID},
		Payload:    swap,
	}}
	for _, event := range cancelled {
		events = append(events, Event{
			Type:       EventSessionCancelled,
			OccurredAt: event.UpdatedAt,
			ActorID:    principal.UserID,
			EntityID:   event.ID,
			Recipients: event.Participants(),
			Payload:    event,
		})
	}
	publishEvents(ctx, s.deps.Events, logger, events...)
	return
}

// transition runs an active-only swap mutation under both participants' locks.
func (s *SwapService) transition(ctx context.Context, principal Principal, swapID, operation string, apply func(Swap) ([]storable, error)) error {
	store := s.deps.Store
	swap, err := store.Swap(ctx, swapID)
	if err != nil {
		return err
	}

	unlock := store.Lock(swap.OwnerID, swap.PartnerID)
	defer unlock()

	swap, err = store.Swap(ctx, swapID)
	if err != nil {
		return err
	}
	if !principal.IsZero() && !swap.HasParticipant(principal.UserID) {
		return ErrUnauthorized
	}
	if swap.Status != SwapActive {
		return &InvalidTransitionError{Kind: KindSwap, ID: swap.ID, From: string(swap.Status), Operation: operation}
	}

	entities, err := apply(swap)
	if err != nil {
		return err
	}
	return store.Upsert(ctx, entities...)
}

// Get returns a swap from the viewer's perspective.
func (s *SwapService) Get(ctx context.Context, viewer Principal, swapID string) (SwapView, error) {
	if s == nil {
		return SwapView{}, fmt.Errorf("SwapService is nil")
	}
	if err := requireViewer(viewer); err != nil {
		return SwapView{}, err
	}

	store := s.deps.Store
	swap, err := store.Swap(ctx, swapID)
	if err != nil {
		return SwapView{}, err
	}
	if !swap.HasParticipant(viewer.UserID) {
		return SwapView{}, ErrUnauthorized
	}
	names, err := store.userNames(ctx)
	if err != nil {
		return SwapView{}, err
	}
	return swapView(swap, viewer.UserID, names), nil
}

// List returns a page of the viewer's swaps.
func (s *SwapService) List(ctx context.Context, params ListSwapsParams) (page filter.Page[SwapView], err error) {
	if s == nil {
		err = fmt.Errorf("SwapService is nil")
		return
	}
	if err = requireViewer(params.Viewer); err != nil {
		return
	}
	if params.Status != "" && !params.Status.Valid() {
		err = newValidationError("status", "unknown swap status")
		return
	}

	logger := s.loggerWith(ctx, "List", "principal_id", params.Viewer.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list swaps", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var views []SwapView
	views, err = s.viewsFor(ctx, params.Viewer.UserID)
	if err != nil {
		return
	}

	page, err = paginate(views, s.deps.pageRequest(params.Page),
		filter.Equals("status", string(params.Status), func(v SwapView) string { return string(v.Status) }),
		filter.Contains("query", params.Query, func(v SwapView) []string {
			return []string{v.PartnerName, v.MySkill, v.PartnerSkill}
		}),
	)
	return
}

// Stats counts the viewer's swaps by status and averages the ratings given on them.
func (s *SwapService) Stats(ctx context.Context, viewer Principal) (SwapStats, error) {
	if s == nil {
		return SwapStats{}, fmt.Errorf("SwapService is nil")
	}
	if err := requireViewer(viewer); err != nil {
		return SwapStats{}, err
	}

	views, err := s.viewsFor(ctx, viewer.UserID)
	if err != nil {
		return SwapStats{}, err
	}

	var (
		stats SwapStats
		total int
	)
	for _, v := range views {
		switch v.Status {
		case SwapActive:
			stats.Active++
		case SwapCompleted:
			stats.Completed++
		case SwapCancelled:
			stats.Cancelled++
		}
		if v.Rating != nil {
			stats.RatedCount++
			total += *v.Rating
		}
	}
	if stats.RatedCount > 0 {
		stats.AverageRating = roundRating(float64(total) / float64(stats.RatedCount))
	}
	return stats, nil
}

func (s *SwapService) viewsFor(ctx context.Context, viewerID string) ([]SwapView, error) {
	store := s.deps.Store
	swaps, err := store.Swaps(ctx)
	if err != nil {
		return nil, err
	}
	names, err := store.userNames(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]SwapView, 0, len(swaps))
	for _, swap := range swaps {
		if swap.HasParticipant(viewerID) {
			views = append(views, swapView(swap, viewerID, names))
		}
	}
	return views, nil
}

func swapView(swap Swap, viewerID string, names map[string]string) SwapView {
	view := SwapView{
		Swap:         swap,
		PartnerID:    swap.PartnerID,
		MySkill:      swap.MySkill,
		PartnerSkill: swap.PartnerSkill,
	}
	if viewerID == swap.PartnerID {
		view.PartnerID = swap.OwnerID
		view.MySkill, view.PartnerSkill = swap.PartnerSkill, swap.MySkill
	}
	view.PartnerName = names[view.PartnerID]
	return view
}

func foldRating(user *User, rating int) {
	sum := user.Rating*float64(user.RatingCount) + float64(rating)
	user.RatingCount++
	user.Rating = sum / float64(user.RatingCount)
}

func roundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
