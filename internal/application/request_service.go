package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/skillswap/internal/filter"
)

// RequestService drives the swap request lifecycle: pending, then accepted
// or rejected, and finally completed once the spawned swap completes.
type RequestService struct {
	deps Dependencies
}

// NewRequestService constructs a request service with the provided dependencies.
func NewRequestService(deps Dependencies) *RequestService {
	return &RequestService{deps: deps.withDefaults()}
}

func (s *RequestService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.deps.Logger, "RequestService", operation, attrs...)
}

// Create validates input and persists a pending request.
func (s *RequestService) Create(ctx context.Context, params CreateRequestParams) (request SwapRequest, err error) {
	if s == nil {
		err = fmt.Errorf("RequestService is nil")
		return
	}

	input := params.Input
	if input.RequesterID == "" {
		input.RequesterID = params.Principal.UserID
	}

	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.UserID,
		"requester_id", input.RequesterID,
		"recipient_id", input.RecipientID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create swap request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("request_id", request.ID).InfoContext(ctx, "swap request created")
	}()

	if !params.Principal.IsZero() && params.Principal.UserID != input.RequesterID {
		err = ErrUnauthorized
		return
	}

	vErr := validateRequestInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	store := s.deps.Store
	if _, err = store.User(ctx, input.RequesterID); err != nil {
		return
	}
	if _, err = store.User(ctx, input.RecipientID); err != nil {
		return
	}

	request = SwapRequest{
		ID:           s.deps.IDGenerator(),
		RequesterID:  input.RequesterID,
		RecipientID:  input.RecipientID,
		OfferedSkill: strings.TrimSpace(input.OfferedSkill),
		WantedSkill:  strings.TrimSpace(input.WantedSkill),
		Message:      strings.TrimSpace(input.Message),
		Status:       RequestPending,
		CreatedAt:    s.deps.Now(),
	}
	if err = store.Upsert(ctx, request); err != nil {
		return
	}

	publishEvents(ctx, s.deps.Events, logger, Event{
		Type:       EventRequestCreated,
		OccurredAt: request.CreatedAt,
		ActorID:    request.RequesterID,
		EntityID:   request.ID,
		Recipients: []string{request.RequesterID, request.RecipientID},
		Payload:    request,
	})
	return
}

// Accept moves a pending request to accepted and creates its swap in the same commit.
func (s *RequestService) Accept(ctx context.Context, params AcceptRequestParams) (result AcceptResult, err error) {
	if s == nil {
		err = fmt.Errorf("RequestService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Accept",
		"principal_id", params.Principal.UserID,
		"request_id", params.RequestID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to accept swap request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("swap_id", result.Swap.ID).InfoContext(ctx, "swap request accepted")
	}()

	totalSessions := params.TotalSessions
	if totalSessions < 0 {
		err = newValidationError("totalSessions", "total sessions must be at least 1")
		return
	}
	if totalSessions == 0 {
		totalSessions = 1
	}

	err = s.decide(ctx, params.Principal, params.RequestID, "accept", func(request SwapRequest) ([]storable, error) {
		now := s.deps.Now()
		swap := Swap{
			ID:            s.deps.IDGenerator(),
			RequestID:     request.ID,
			OwnerID:       request.RequesterID,
			PartnerID:     request.RecipientID,
			MySkill:       request.OfferedSkill,
			PartnerSkill:  request.WantedSkill,
			Status:        SwapActive,
			StartDate:     now,
			TotalSessions: totalSessions,
			UpdatedAt:     now,
		}
		request.Status = RequestAccepted
		request.SwapID = swap.ID
		request.DecidedAt = timePtr(now)

		result = AcceptResult{Request: request, Swap: swap}
		return []storable{request, swap}, nil
	})
	if err != nil {
		result = AcceptResult{}
		return
	}

	publishEvents(ctx, s.deps.Events, logger, Event{
		Type:       EventRequestAccepted,
		OccurredAt: *result.Request.DecidedAt,
		ActorID:    result.Request.RecipientID,
		EntityID:   result.Request.ID,
		Recipients: []string{result.Request.RequesterID, result.Request.RecipientID},
		Payload:    result,
	})
	return
}

// Reject moves a pending request to rejected. No swap is created.
func (s *RequestService) Reject(ctx context.Context, principal Principal, requestID string) (request SwapRequest, err error) {
	if s == nil {
		err = fmt.Errorf("RequestService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Reject",
		"principal_id", principal.UserID,
		"request_id", requestID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reject swap request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "swap request rejected")
	}()

	err = s.decide(ctx, principal, requestID, "reject", func(current SwapRequest) ([]storable, error) {
		current.Status = RequestRejected
		current.DecidedAt = timePtr(s.deps.Now())
		request = current
		return []storable{current}, nil
	})
	if err != nil {
		request = SwapRequest{}
		return
	}

	publishEvents(ctx, s.deps.Events, logger, Event{
		Type:       EventRequestRejected,
		OccurredAt: *request.DecidedAt,
		ActorID:    request.RecipientID,
		EntityID:   request.ID,
		Recipients: []string{request.RequesterID, request.RecipientID},
		Payload:    request,
	})
	return
}

// decide runs a pending-only transition under both participants' locks.
func (s *RequestService) decide(ctx context.Context, principal Principal, requestID, operation string, apply func(SwapRequest) ([]storable, error)) error {
	store := s.deps.Store
	request, err := store.Request(ctx, requestID)
	if err != nil {
		return err
	}

	unlock := store.Lock(request.RequesterID, request.RecipientID)
	defer unlock()

	// Re-read under the lock; a concurrent decision may have landed.
	request, err = store.Request(ctx, requestID)
	if err != nil {
		return err
	}
	if !principal.IsZero() && principal.UserID != request.RecipientID {
		return ErrUnauthorized
	}
	if request.Status != RequestPending {
		return &InvalidTransitionError{Kind: KindRequest, ID: request.ID, From: string(request.Status), Operation: operation}
	}

	entities, err := apply(request)
	if err != nil {
		return err
	}
	return store.Upsert(ctx, entities...)
}

// List returns a page of the viewer's requests with direction derived for the viewer.
func (s *RequestService) List(ctx context.Context, params ListRequestsParams) (page filter.Page[RequestView], err error) {
	if s == nil {
		err = fmt.Errorf("RequestService is nil")
		return
	}
	if err = requireViewer(params.Viewer); err != nil {
		return
	}
	if params.Status != "" && !params.Status.Valid() {
		err = newValidationError("status", "unknown request status")
		return
	}
	if params.Direction != "" && params.Direction != DirectionIncoming && params.Direction != DirectionOutgoing {
		err = newValidationError("direction", "direction must be incoming or outgoing")
		return
	}

	logger := s.loggerWith(ctx, "List", "principal_id", params.Viewer.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list swap requests", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(page.Items), "total_matches", page.TotalMatches).DebugContext(ctx, "swap requests listed")
	}()

	var views []RequestView
	views, err = s.viewsFor(ctx, params.Viewer.UserID)
	if err != nil {
		return
	}

	page, err = paginate(views, s.deps.pageRequest(params.Page),
		filter.Equals("direction", string(params.Direction), func(v RequestView) string { return string(v.Direction) }),
		filter.Equals("status", string(params.Status), func(v RequestView) string { return string(v.Status) }),
		filter.Contains("query", params.Query, func(v RequestView) []string {
			return []string{v.CounterpartName, v.OfferedSkill, v.WantedSkill, v.Message}
		}),
	)
	return
}

// Stats counts the viewer's requests by direction and status.
func (s *RequestService) Stats(ctx context.Context, viewer Principal) (RequestStats, error) {
	if s == nil {
		return RequestStats{}, fmt.Errorf("RequestService is nil")
	}
	if err := requireViewer(viewer); err != nil {
		return RequestStats{}, err
	}

	views, err := s.viewsFor(ctx, viewer.UserID)
	if err != nil {
		return RequestStats{}, err
	}

	var stats RequestStats
	for _, v := range views {
		switch v.Status {
		case RequestPending:
			if v.Direction == DirectionIncoming {
				stats.PendingIncoming++
			} else {
				stats.PendingOutgoing++
			}
		case RequestAccepted:
			stats.Accepted++
		case RequestRejected:
			stats.Rejected++
		case RequestCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

func (s *RequestService) viewsFor(ctx context.Context, viewerID string) ([]RequestView, error) {
	store := s.deps.Store
	requests, err := store.Requests(ctx)
	if err != nil {
		return nil, err
	}
	names, err := store.userNames(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]RequestView, 0, len(requests))
	for _, r := range requests {
		if r.RequesterID != viewerID && r.RecipientID != viewerID {
			continue
		}
		view := RequestView{SwapRequest: r, Direction: r.DirectionFor(viewerID)}
		if view.Direction == DirectionIncoming {
			view.CounterpartID = r.RequesterID
		} else {
			view.CounterpartID = r.RecipientID
		}
		view.CounterpartName = names[view.CounterpartID]
		views = append(views, view)
	}
	return views, nil
}

func validateRequestInput(input RequestInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.RequesterID) == "" {
		vErr.add("requesterId", "requester is required")
	}
	if strings.TrimSpace(input.RecipientID) == "" {
		vErr.add("recipientId", "recipient is required")
	} else if input.RecipientID == input.RequesterID {
		vErr.add("recipientId", "cannot send a swap request to yourself")
	}
	if strings.TrimSpace(input.OfferedSkill) == "" {
		vErr.add("offeredSkill", "offered skill is required")
	}
	if strings.TrimSpace(input.WantedSkill) == "" {
		vErr.add("wantedSkill", "wanted skill is required")
	}
	if strings.TrimSpace(input.Message) == "" {
		vErr.add("message", "message is required")
	}

	return vErr
}
