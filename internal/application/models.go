package application

import (
	"strings"
	"time"

	"github.com/example/skillswap/internal/filter"
)

// Principal represents the already-resolved identity invoking a service method.
// The zero Principal is a trusted internal caller and bypasses ownership checks.
type Principal struct {
	UserID      string
	DisplayName string
}

// IsZero reports whether the principal carries no identity.
func (p Principal) IsZero() bool {
	return p.UserID == ""
}

// Availability is the closed set of availability categories.
type Availability string

const (
	AvailabilityWeekdays Availability = "weekdays"
	AvailabilityWeekends Availability = "weekends"
	AvailabilityEvenings Availability = "evenings"
	AvailabilityFlexible Availability = "flexible"
)

// ParseAvailability accepts any casing of a known category.
func ParseAvailability(value string) (Availability, bool) {
	switch a := Availability(strings.ToLower(strings.TrimSpace(value))); a {
	case AvailabilityWeekdays, AvailabilityWeekends, AvailabilityEvenings, AvailabilityFlexible:
		return a, true
	}
	return "", false
}

// RequestStatus is the lifecycle state of a swap request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestRejected, RequestCompleted:
		return true
	}
	return false
}

// Direction is a swap request's orientation relative to a viewer.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// SwapStatus is the lifecycle state of a swap.
type SwapStatus string

const (
	SwapActive    SwapStatus = "active"
	SwapCompleted SwapStatus = "completed"
	SwapCancelled SwapStatus = "cancelled"
)

// Valid reports whether s is a known swap status.
func (s SwapStatus) Valid() bool {
	switch s {
	case SwapActive, SwapCompleted, SwapCancelled:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of a scheduled session.
type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// SessionKind describes whether the event owner teaches or learns.
type SessionKind string

const (
	SessionTeaching SessionKind = "teaching"
	SessionLearning SessionKind = "learning"
)

// Opposite returns the kind seen from the other participant.
func (k SessionKind) Opposite() SessionKind {
	if k == SessionTeaching {
		return SessionLearning
	}
	return SessionTeaching
}

// LocationMode is where a session takes place.
type LocationMode string

const (
	LocationOnline   LocationMode = "online"
	LocationInPerson LocationMode = "in-person"
)

// User is a member profile.
type User struct {
	ID             string       `json:"id"`
	DisplayName    string       `json:"displayName"`
	Location       string       `json:"location"`
	Bio            string       `json:"bio"`
	SkillsOffered  []string     `json:"skillsOffered"`
	SkillsWanted   []string     `json:"skillsWanted"`
	Availability   Availability `json:"availability"`
	Rating         float64      `json:"rating"`
	RatingCount    int          `json:"ratingCount"`
	CompletedSwaps int          `json:"completedSwaps"`
	Online         bool         `json:"online"`
	Connections    []string     `json:"connections"`
	TimeZone       string       `json:"timeZone,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// ConnectedTo reports whether the user has a connection with otherID.
func (u User) ConnectedTo(otherID string) bool {
	for _, id := range u.Connections {
		if id == otherID {
			return true
		}
	}
	return false
}

// UserView is a user as seen by a viewer.
type UserView struct {
	User
	Connected bool `json:"connected"`
}

// ProfileInput captures caller provided profile fields.
type ProfileInput struct {
	DisplayName   string
	Location      string
	Bio           string
	SkillsOffered []string
	SkillsWanted  []string
	Availability  string
	TimeZone      string
}

// RegisterUserParams wraps the data required to create a profile for a principal.
type RegisterUserParams struct {
	Principal Principal
	Input     ProfileInput
}

// UpdateProfileParams wraps the data required to edit the caller's profile.
type UpdateProfileParams struct {
	Principal Principal
	Input     ProfileInput
}

// BrowseUsersParams selects a page of members other than the viewer.
type BrowseUsersParams struct {
	Viewer       Principal
	Query        string
	Skill        string
	Location     string
	Availability string
	Page         filter.PageRequest
}

// SkillListing is an advertised skill offer.
type SkillListing struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	SkillOffered string     `json:"skillOffered"`
	SkillWanted  string     `json:"skillWanted"`
	Description  string     `json:"description"`
	CreatedAt    time.Time  `json:"createdAt"`
	WithdrawnAt  *time.Time `json:"withdrawnAt,omitempty"`
}

// ListingView joins a listing with its owner's public profile fields.
type ListingView struct {
	SkillListing
	UserName     string       `json:"userName"`
	Location     string       `json:"location"`
	Availability Availability `json:"availability"`
	Rating       float64      `json:"rating"`
	ReviewCount  int          `json:"reviewCount"`
	Online       bool         `json:"isOnline"`
}

// ListingInput captures caller provided listing fields.
type ListingInput struct {
	SkillOffered string
	SkillWanted  string
	Description  string
}

// AdvertiseParams wraps the data required to publish a listing.
type AdvertiseParams struct {
	Principal Principal
	Input     ListingInput
}

// BrowseListingsParams selects a page of listings.
type BrowseListingsParams struct {
	Viewer       Principal
	Query        string
	Skill        string
	Location     string
	Availability string
	Page         filter.PageRequest
}

// SwapRequest is a proposal to start a swap.
type SwapRequest struct {
	ID           string        `json:"id"`
	RequesterID  string        `json:"requesterId"`
	RecipientID  string        `json:"recipientId"`
	OfferedSkill string        `json:"offeredSkill"`
	WantedSkill  string        `json:"wantedSkill"`
	Message      string        `json:"message"`
	Status       RequestStatus `json:"status"`
	SwapID       string        `json:"swapId,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	DecidedAt    *time.Time    `json:"decidedAt,omitempty"`
}

// DirectionFor derives the request direction for viewerID.
func (r SwapRequest) DirectionFor(viewerID string) Direction {
	if r.RecipientID == viewerID {
		return DirectionIncoming
	}
	return DirectionOutgoing
}

// RequestView is a request as seen by one of its participants.
type RequestView struct {
	SwapRequest
	Direction       Direction `json:"direction"`
	CounterpartID   string    `json:"counterpartId"`
	CounterpartName string    `json:"counterpartName"`
}

// RequestInput captures caller provided request fields.
type RequestInput struct {
	RequesterID  string
	RecipientID  string
	OfferedSkill string
	WantedSkill  string
	Message      string
}

// CreateRequestParams wraps the data required to create a request.
type CreateRequestParams struct {
	Principal Principal
	Input     RequestInput
}

// AcceptRequestParams wraps the data required to accept a request.
// TotalSessions 0 selects the default of one session.
type AcceptRequestParams struct {
	Principal     Principal
	RequestID     string
	TotalSessions int
}

// AcceptResult carries the accepted request and the swap it spawned.
type AcceptResult struct {
	Request SwapRequest `json:"request"`
	Swap    Swap        `json:"swap"`
}

// ListRequestsParams selects a page of the viewer's requests.
type ListRequestsParams struct {
	Viewer    Principal
	Direction Direction
	Status    RequestStatus
	Query     string
	Page      filter.PageRequest
}

// RequestStats summarises a viewer's requests.
type RequestStats struct {
	PendingIncoming int `json:"pendingIncoming"`
	PendingOutgoing int `json:"pendingOutgoing"`
	Accepted        int `json:"accepted"`
	Rejected        int `json:"rejected"`
	Completed       int `json:"completed"`
}

// Swap is a bilateral skill exchange spawned by an accepted request.
// OwnerID is the requester and MySkill the skill the owner offered.
type Swap struct {
	ID                string     `json:"id"`
	RequestID         string     `json:"requestId"`
	OwnerID           string     `json:"ownerId"`
	PartnerID         string     `json:"partnerId"`
	MySkill           string     `json:"mySkill"`
	PartnerSkill      string     `json:"partnerSkill"`
	Status            SwapStatus `json:"status"`
	StartDate         time.Time  `json:"startDate"`
	CompletedDate     *time.Time `json:"completedDate,omitempty"`
	Rating            *int       `json:"rating,omitempty"`
	Feedback          string     `json:"feedback,omitempty"`
	CancelReason      string     `json:"cancelReason,omitempty"`
	SessionsCompleted int        `json:"sessionsCompleted"`
	TotalSessions     int        `json:"totalSessions"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// HasParticipant reports whether userID takes part in the swap.
func (s Swap) HasParticipant(userID string) bool {
	return s.OwnerID == userID || s.PartnerID == userID
}

// CounterpartOf returns the other participant.
func (s Swap) CounterpartOf(userID string) string {
	if s.OwnerID == userID {
		return s.PartnerID
	}
	return s.OwnerID
}

// SwapView is a swap from one participant's perspective.
type SwapView struct {
	Swap
	PartnerID    string `json:"partnerId"`
	PartnerName  string `json:"partnerName"`
	MySkill      string `json:"mySkill"`
	PartnerSkill string `json:"partnerSkill"`
}

// CompleteSwapParams wraps the data required to complete a swap.
type CompleteSwapParams struct {
	Principal Principal
	SwapID    string
	Rating    *int
	Feedback  string
}

// ListSwapsParams selects a page of the viewer's swaps.
type ListSwapsParams struct {
	Viewer Principal
	Status SwapStatus
	Query  string
	Page   filter.PageRequest
}

// SwapStats summarises a viewer's swaps.
type SwapStats struct {
	Active        int     `json:"active"`
	Completed     int     `json:"completed"`
	Cancelled     int     `json:"cancelled"`
	RatedCount    int     `json:"ratedCount"`
	AverageRating float64 `json:"averageRating"`
}

// ScheduleEvent is one calendar-bound session.
type ScheduleEvent struct {
	ID              string       `json:"id"`
	SwapID          string       `json:"swapId,omitempty"`
	SeriesID        string       `json:"seriesId,omitempty"`
	OwnerID         string       `json:"ownerId"`
	PartnerID       string       `json:"partnerId"`
	Title           string       `json:"title"`
	Skill           string       `json:"skill"`
	Date            string       `json:"date"`
	Time            string       `json:"time"`
	DurationMinutes int          `json:"durationMinutes"`
	Kind            SessionKind  `json:"kind"`
	Location        LocationMode `json:"location"`
	Status          EventStatus  `json:"status"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Participants lists both participants of the event.
func (e ScheduleEvent) Participants() []string {
	return []string{e.OwnerID, e.PartnerID}
}

// HasParticipant reports whether userID attends the event.
func (e ScheduleEvent) HasParticipant(userID string) bool {
	return e.OwnerID == userID || e.PartnerID == userID
}

// EventView is an event from one participant's perspective.
type EventView struct {
	ScheduleEvent
	PartnerID   string      `json:"partnerId"`
	PartnerName string      `json:"partnerName"`
	Kind        SessionKind `json:"kind"`
	DisplayTime string      `json:"displayTime"`
	StartsAt    time.Time   `json:"startsAt"`
	IsToday     bool        `json:"isToday"`
}

// SessionInput captures caller provided session fields. Either SwapID or
// PartnerID must be set; standalone sessions name the partner directly.
type SessionInput struct {
	SwapID          string
	PartnerID       string
	Skill           string
	Title           string
	Kind            string
	Date            string
	Time            string
	DurationMinutes int
	Location        string
}

// ScheduleSessionParams wraps the data required to schedule a session.
type ScheduleSessionParams struct {
	Principal Principal
	Input     SessionInput
}

// ScheduleSeriesParams schedules a repeating series starting at Input.Date.
//
// Frequency is "weekly" (default) or "daily" and Interval counts weeks or days
// between repetitions. Weekdays narrows the series to named days; a weekly
// series without weekdays repeats on the start date's weekday. The series ends
// after Count sessions or on Until (YYYY-MM-DD, inclusive), whichever comes
// first, and at least one of the two is required.
type ScheduleSeriesParams struct {
	Principal Principal
	Input     SessionInput
	Frequency string
	Interval  int
	Weekdays  []string
	Until     string
	Count     int
}
