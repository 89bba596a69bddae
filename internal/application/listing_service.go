package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/skillswap/internal/filter"
)

// ListingService publishes skill offers and serves the browse view over them.
type ListingService struct {
	deps Dependencies
}

// NewListingService constructs a listing service with the provided dependencies.
func NewListingService(deps Dependencies) *ListingService {
	return &ListingService{deps: deps.withDefaults()}
}

func (s *ListingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.deps.Logger, "ListingService", operation, attrs...)
}

// Advertise publishes a listing owned by the principal.
func (s *ListingService) Advertise(ctx context.Context, params AdvertiseParams) (listing SkillListing, err error) {
	if s == nil {
		err = fmt.Errorf("ListingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Advertise", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to advertise skill", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("listing_id", listing.ID).InfoContext(ctx, "skill advertised")
	}()

	if err = requireViewer(params.Principal); err != nil {
		return
	}
	offered := strings.TrimSpace(params.Input.SkillOffered)
	if offered == "" {
		err = newValidationError("skillOffered", "offered skill is required")
		return
	}
	if _, err = s.deps.Store.User(ctx, params.Principal.UserID); err != nil {
		return
	}

	listing = SkillListing{
		ID:           s.deps.IDGenerator(),
		UserID:       params.Principal.UserID,
		SkillOffered: offered,
		SkillWanted:  strings.TrimSpace(params.Input.SkillWanted),
		Description:  strings.TrimSpace(params.Input.Description),
		CreatedAt:    s.deps.Now(),
	}
	if err = s.deps.Store.Upsert(ctx, listing); err != nil {
		listing = SkillListing{}
	}
	return
}

// Withdraw hides a listing from browsing. Only the owner may withdraw it.
func (s *ListingService) Withdraw(ctx context.Context, principal Principal, listingID string) (listing SkillListing, err error) {
	if s == nil {
		err = fmt.Errorf("ListingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Withdraw",
		"principal_id", principal.UserID,
		"listing_id", listingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to withdraw listing", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "listing withdrawn")
	}()

	store := s.deps.Store
	listing, err = store.Listing(ctx, listingID)
	if err != nil {
		return
	}

	unlock := store.Lock(listing.UserID)
	defer unlock()

	listing, err = store.Listing(ctx, listingID)
	if err != nil {
		return
	}
	if !principal.IsZero() && principal.UserID != listing.UserID {
		listing = SkillListing{}
		err = ErrUnauthorized
		return
	}
	if listing.WithdrawnAt != nil {
		err = &InvalidTransitionError{Kind: KindListing, ID: listing.ID, From: "withdrawn", Operation: "withdraw"}
		listing = SkillListing{}
		return
	}
	listing.WithdrawnAt = timePtr(s.deps.Now())
	if err = store.Upsert(ctx, listing); err != nil {
		listing = SkillListing{}
	}
	return
}

// Browse returns a page of live listings joined with their owners' profiles.
// The viewer's own listings are excluded.
func (s *ListingService) Browse(ctx context.Context, params BrowseListingsParams) (page filter.Page[ListingView], err error) {
	if s == nil {
		err = fmt.Errorf("ListingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Browse", "principal_id", params.Viewer.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to browse listings", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	availability := strings.TrimSpace(params.Availability)
	if availability != "" {
		if _, ok := ParseAvailability(availability); !ok {
			err = newValidationError("availability", "unknown availability")
			return
		}
	}

	store := s.deps.Store
	var listings []SkillListing
	listings, err = store.Listings(ctx)
	if err != nil {
		return
	}
	var users []User
	users, err = store.Users(ctx)
	if err != nil {
		return
	}
	owners := make(map[string]User, len(users))
	for _, u := range users {
		owners[u.ID] = u
	}

	views := make([]ListingView, 0, len(listings))
	for _, l := range listings {
		if l.WithdrawnAt != nil || (params.Viewer.UserID != "" && l.UserID == params.Viewer.UserID) {
			continue
		}
		owner := owners[l.UserID]
		views = append(views, ListingView{
			SkillListing: l,
			UserName:     owner.DisplayName,
			Location:     owner.Location,
			Availability: owner.Availability,
			Rating:       owner.Rating,
			ReviewCount:  owner.RatingCount,
			Online:       owner.Online,
		})
	}

	page, err = paginate(views, s.deps.pageRequest(params.Page),
		filter.Contains("query", params.Query, func(v ListingView) []string {
			return []string{v.UserName, v.SkillOffered, v.SkillWanted}
		}),
		filter.Contains("skill", params.Skill, func(v ListingView) []string { return []string{v.SkillOffered} }),
		filter.Contains("location", params.Location, func(v ListingView) []string { return []string{v.Location} }),
		filter.Equals("availability", availability, func(v ListingView) string { return string(v.Availability) }),
	)
	return
}
