package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/skillswap/internal/application"
)

var (
	userCounter    uint64
	listingCounter uint64
	requestCounter uint64
	swapCounter    uint64
	eventCounter   uint64
)

// referenceTime is a Monday morning so day based scenarios read naturally.
var referenceTime = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Seed writes the supplied entities into the store in one atomic upsert.
// Accepted values are UserFixture, ListingFixture, RequestFixture,
// SwapFixture and EventFixture.
func Seed(ctx context.Context, store *application.EntityStore, fixtures ...any) error {
	for _, fixture := range fixtures {
		var err error
		switch f := fixture.(type) {
		case UserFixture:
			err = store.Upsert(ctx, f.Application())
		case ListingFixture:
			err = store.Upsert(ctx, f.Application())
		case RequestFixture:
			err = store.Upsert(ctx, f.Application())
		case SwapFixture:
			err = store.Upsert(ctx, f.Application())
		case EventFixture:
			err = store.Upsert(ctx, f.Application())
		default:
			err = fmt.Errorf("testfixtures: unsupported fixture %T", fixture)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic member profile.
type UserFixture struct {
	ID            string
	DisplayName   string
	Location      string
	Bio           string
	SkillsOffered []string
	SkillsWanted  []string
	Availability  application.Availability
	Rating        float64
	RatingCount   int
	Online        bool
	Connections   []string
	TimeZone      string
	CreatedAt     time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		ID:            fmt.Sprintf("user-%03d", idx),
		DisplayName:   fmt.Sprintf("Member %03d", idx),
		Location:      "Berlin",
		SkillsOffered: []string{"React"},
		SkillsWanted:  []string{"Python"},
		Availability:  application.AvailabilityEvenings,
		CreatedAt:     referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserDisplayName overrides the generated display name.
func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) {
		f.DisplayName = name
	}
}

// WithUserLocation overrides the location.
func WithUserLocation(location string) UserOption {
	return func(f *UserFixture) {
		f.Location = location
	}
}

// WithUserSkills replaces the offered and wanted skill tags.
func WithUserSkills(offered, wanted []string) UserOption {
	return func(f *UserFixture) {
		f.SkillsOffered = offered
		f.SkillsWanted = wanted
	}
}

// WithUserAvailability overrides the availability category.
func WithUserAvailability(availability application.Availability) UserOption {
	return func(f *UserFixture) {
		f.Availability = availability
	}
}

// WithUserRating sets the aggregate rating.
func WithUserRating(rating float64, count int) UserOption {
	return func(f *UserFixture) {
		f.Rating = rating
		f.RatingCount = count
	}
}

// WithUserOnline marks the user online.
func WithUserOnline() UserOption {
	return func(f *UserFixture) {
		f.Online = true
	}
}

// WithUserConnections sets the connected user ids.
func WithUserConnections(ids ...string) UserOption {
	return func(f *UserFixture) {
		f.Connections = ids
	}
}

// WithUserTimeZone sets the IANA zone used for the user's calendar.
func WithUserTimeZone(zone string) UserOption {
	return func(f *UserFixture) {
		f.TimeZone = zone
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:            f.ID,
		DisplayName:   f.DisplayName,
		Location:      f.Location,
		Bio:           f.Bio,
		SkillsOffered: append([]string(nil), f.SkillsOffered...),
		SkillsWanted:  append([]string(nil), f.SkillsWanted...),
		Availability:  f.Availability,
		Rating:        f.Rating,
		RatingCount:   f.RatingCount,
		Online:        f.Online,
		Connections:   append([]string(nil), f.Connections...),
		TimeZone:      f.TimeZone,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.CreatedAt,
	}
}

// Principal returns the identity the fixture acts as.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, DisplayName: f.DisplayName}
}

// Input returns the profile fields accepted by Register and UpdateProfile.
func (f UserFixture) Input() application.ProfileInput {
	return application.ProfileInput{
		DisplayName:   f.DisplayName,
		Location:      f.Location,
		Bio:           f.Bio,
		SkillsOffered: append([]string(nil), f.SkillsOffered...),
		SkillsWanted:  append([]string(nil), f.SkillsWanted...),
		Availability:  string(f.Availability),
		TimeZone:      f.TimeZone,
	}
}

// ----------------------------- Listing fixtures -----------------------------

// ListingFixture represents an advertised skill.
type ListingFixture struct {
	ID           string
	UserID       string
	SkillOffered string
	SkillWanted  string
	Description  string
	CreatedAt    time.Time
}

// ListingOption configures the generated listing fixture.
type ListingOption func(*ListingFixture)

// NewListingFixture returns a listing owned by ownerID.
func NewListingFixture(ownerID string, opts ...ListingOption) ListingFixture {
	idx := atomic.AddUint64(&listingCounter, 1)
	fixture := ListingFixture{
		ID:           fmt.Sprintf("listing-%03d", idx),
		UserID:       ownerID,
		SkillOffered: "React",
		SkillWanted:  "Python",
		Description:  fmt.Sprintf("Listing %03d", idx),
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithListingID overrides the generated listing ID.
func WithListingID(id string) ListingOption {
	return func(f *ListingFixture) {
		f.ID = id
	}
}

// WithListingSkills sets the offered and wanted skill.
func WithListingSkills(offered, wanted string) ListingOption {
	return func(f *ListingFixture) {
		f.SkillOffered = offered
		f.SkillWanted = wanted
	}
}

// Application returns the fixture as an application.SkillListing value.
func (f ListingFixture) Application() application.SkillListing {
	return application.SkillListing{
		ID:           f.ID,
		UserID:       f.UserID,
		SkillOffered: f.SkillOffered,
		SkillWanted:  f.SkillWanted,
		Description:  f.Description,
		CreatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Request fixtures -----------------------------

// RequestFixture represents a swap request between two members.
type RequestFixture struct {
	ID           string
	RequesterID  string
	RecipientID  string
	OfferedSkill string
	WantedSkill  string
	Message      string
	Status       application.RequestStatus
	SwapID       string
	CreatedAt    time.Time
}

// RequestOption configures the generated request fixture.
type RequestOption func(*RequestFixture)

// NewRequestFixture returns a pending request from requesterID to recipientID.
func NewRequestFixture(requesterID, recipientID string, opts ...RequestOption) RequestFixture {
	idx := atomic.AddUint64(&requestCounter, 1)
	fixture := RequestFixture{
		ID:           fmt.Sprintf("request-%03d", idx),
		RequesterID:  requesterID,
		RecipientID:  recipientID,
		OfferedSkill: "React",
		WantedSkill:  "Python",
		Message:      "Let's swap",
		Status:       application.RequestPending,
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRequestID overrides the generated request ID.
func WithRequestID(id string) RequestOption {
	return func(f *RequestFixture) {
		f.ID = id
	}
}

// WithRequestStatus sets the request status.
func WithRequestStatus(status application.RequestStatus) RequestOption {
	return func(f *RequestFixture) {
		f.Status = status
	}
}

// WithRequestSwap links the request to the swap it spawned.
func WithRequestSwap(swapID string) RequestOption {
	return func(f *RequestFixture) {
		f.SwapID = swapID
		f.Status = application.RequestAccepted
	}
}

// Application returns the fixture as an application.SwapRequest value.
func (f RequestFixture) Application() application.SwapRequest {
	request := application.SwapRequest{
		ID:           f.ID,
		RequesterID:  f.RequesterID,
		RecipientID:  f.RecipientID,
		OfferedSkill: f.OfferedSkill,
		WantedSkill:  f.WantedSkill,
		Message:      f.Message,
		Status:       f.Status,
		SwapID:       f.SwapID,
		CreatedAt:    f.CreatedAt,
	}
	if f.Status != application.RequestPending {
		decided := f.CreatedAt.Add(time.Minute)
		request.DecidedAt = &decided
	}
	return request
}

// ----------------------------- Swap fixtures -----------------------------

// SwapFixture represents a swap between an owner and a partner.
type SwapFixture struct {
	ID                string
	RequestID         string
	OwnerID           string
	PartnerID         string
	MySkill           string
	PartnerSkill      string
	Status            application.SwapStatus
	SessionsCompleted int
	TotalSessions     int
	StartDate         time.Time
}

// SwapOption configures the generated swap fixture.
type SwapOption func(*SwapFixture)

// NewSwapFixture returns an active single-session swap.
func NewSwapFixture(ownerID, partnerID string, opts ...SwapOption) SwapFixture {
	idx := atomic.AddUint64(&swapCounter, 1)
	fixture := SwapFixture{
		ID:            fmt.Sprintf("swap-%03d", idx),
		OwnerID:       ownerID,
		PartnerID:     partnerID,
		MySkill:       "React",
		PartnerSkill:  "Python",
		Status:        application.SwapActive,
		TotalSessions: 1,
		StartDate:     referenceTime.AddDate(0, 0, -int(idx)),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSwapID overrides the generated swap ID.
func WithSwapID(id string) SwapOption {
	return func(f *SwapFixture) {
		f.ID = id
	}
}

// WithSwapRequest links the swap to its originating request.
func WithSwapRequest(requestID string) SwapOption {
	return func(f *SwapFixture) {
		f.RequestID = requestID
	}
}

// WithSwapSessions sets completed and total session counts.
func WithSwapSessions(completed, total int) SwapOption {
	return func(f *SwapFixture) {
		f.SessionsCompleted = completed
		f.TotalSessions = total
	}
}

// WithSwapStatus sets the swap status.
func WithSwapStatus(status application.SwapStatus) SwapOption {
	return func(f *SwapFixture) {
		f.Status = status
	}
}

// Application returns the fixture as an application.Swap value.
func (f SwapFixture) Application() application.Swap {
	return application.Swap{
		ID:                f.ID,
		RequestID:         f.RequestID,
		OwnerID:           f.OwnerID,
		PartnerID:         f.PartnerID,
		MySkill:           f.MySkill,
		PartnerSkill:      f.PartnerSkill,
		Status:            f.Status,
		StartDate:         f.StartDate,
		SessionsCompleted: f.SessionsCompleted,
		TotalSessions:     f.TotalSessions,
		UpdatedAt:         f.StartDate,
	}
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a scheduled session.
type EventFixture struct {
	ID              string
	SwapID          string
	OwnerID         string
	PartnerID       string
	Skill           string
	Date            string
	Time            string
	DurationMinutes int
	Kind            application.SessionKind
	Status          application.EventStatus
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns an upcoming hour-long teaching session on the
// reference day at 14:00.
func NewEventFixture(ownerID, partnerID string, opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		ID:              fmt.Sprintf("event-%03d", idx),
		OwnerID:         ownerID,
		PartnerID:       partnerID,
		Skill:           "React",
		Date:            referenceTime.Format(time.DateOnly),
		Time:            "14:00",
		DurationMinutes: 60,
		Kind:            application.SessionTeaching,
		Status:          application.EventUpcoming,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventSwap links the event to a swap.
func WithEventSwap(swapID string) EventOption {
	return func(f *EventFixture) {
		f.SwapID = swapID
	}
}

// WithEventSlot sets the date (YYYY-MM-DD) and time (HH:MM).
func WithEventSlot(date, clock string) EventOption {
	return func(f *EventFixture) {
		f.Date = date
		f.Time = clock
	}
}

// WithEventStatus sets the event status.
func WithEventStatus(status application.EventStatus) EventOption {
	return func(f *EventFixture) {
		f.Status = status
	}
}

// Application returns the fixture as an application.ScheduleEvent value.
func (f EventFixture) Application() application.ScheduleEvent {
	return application.ScheduleEvent{
		ID:              f.ID,
		SwapID:          f.SwapID,
		OwnerID:         f.OwnerID,
		PartnerID:       f.PartnerID,
		Title:           f.Skill + " session",
		Skill:           f.Skill,
		Date:            f.Date,
		Time:            f.Time,
		DurationMinutes: f.DurationMinutes,
		Kind:            f.Kind,
		Location:        application.LocationOnline,
		Status:          f.Status,
		CreatedAt:       referenceTime,
		UpdatedAt:       referenceTime,
	}
}
