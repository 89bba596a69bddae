package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/skillswap/internal/filter"
)

// UserService manages member profiles and the connections between members.
type UserService struct {
	deps Dependencies
}

// NewUserService constructs a user service with the provided dependencies.
func NewUserService(deps Dependencies) *UserService {
	return &UserService{deps: deps.withDefaults()}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.deps.Logger, "UserService", operation, attrs...)
}

// Register creates the profile of the principal. The user id is the identity
// provider's subject.
func (s *UserService) Register(ctx context.Context, params RegisterUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Register", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user registered")
	}()

	if err = requireViewer(params.Principal); err != nil {
		return
	}

	input := params.Input
	if strings.TrimSpace(input.DisplayName) == "" {
		input.DisplayName = params.Principal.DisplayName
	}
	var profile User
	profile, err = validateProfile(input)
	if err != nil {
		return
	}

	store := s.deps.Store
	unlock := store.Lock(params.Principal.UserID)
	defer unlock()

	_, err = store.User(ctx, params.Principal.UserID)
	switch {
	case err == nil:
		err = &InvalidTransitionError{Kind: KindUser, ID: params.Principal.UserID, From: "registered", Operation: "register"}
		return
	case errors.Is(err, ErrNotFound):
		err = nil
	default:
		return
	}

	now := s.deps.Now()
	profile.ID = params.Principal.UserID
	profile.Connections = []string{}
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if err = store.Upsert(ctx, profile); err != nil {
		return
	}
	user = profile
	return
}

// UpdateProfile replaces the editable profile fields of the principal.
func (s *UserService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	if err = requireViewer(params.Principal); err != nil {
		return
	}
	var profile User
	profile, err = validateProfile(params.Input)
	if err != nil {
		return
	}

	store := s.deps.Store
	unlock := store.Lock(params.Principal.UserID)
	defer unlock()

	user, err = store.User(ctx, params.Principal.UserID)
	if err != nil {
		return
	}
	user.DisplayName = profile.DisplayName
	user.Location = profile.Location
	user.Bio = profile.Bio
	user.SkillsOffered = profile.SkillsOffered
	user.SkillsWanted = profile.SkillsWanted
	user.Availability = profile.Availability
	user.TimeZone = profile.TimeZone
	user.UpdatedAt = s.deps.Now()
	if err = store.Upsert(ctx, user); err != nil {
		user = User{}
	}
	return
}

// Get returns a user as seen by the viewer.
func (s *UserService) Get(ctx context.Context, viewer Principal, userID string) (UserView, error) {
	if s == nil {
		return UserView{}, fmt.Errorf("UserService is nil")
	}
	user, err := s.deps.Store.User(ctx, userID)
	if err != nil {
		return UserView{}, err
	}
	return UserView{User: user, Connected: user.ConnectedTo(viewer.UserID)}, nil
}

// Connect links the principal and target in both directions.
func (s *UserService) Connect(ctx context.Context, principal Principal, targetID string) (UserView, error) {
	return s.link(ctx, principal, targetID, true)
}

// Disconnect removes the link between the principal and target.
func (s *UserService) Disconnect(ctx context.Context, principal Principal, targetID string) (UserView, error) {
	return s.link(ctx, principal, targetID, false)
}

func (s *UserService) link(ctx context.Context, principal Principal, targetID string, connect bool) (view UserView, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	operation, eventType := "disconnect", EventUserDisconnected
	if connect {
		operation, eventType = "connect", EventUserConnected
	}

	logger := s.loggerWith(ctx, "Link",
		"principal_id", principal.UserID,
		"target_id", targetID,
		"operation_kind", operation,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update connection", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "connection updated")
	}()

	if err = requireViewer(principal); err != nil {
		return
	}
	if targetID == principal.UserID {
		err = newValidationError("userId", "cannot connect with yourself")
		return
	}

	store := s.deps.Store
	var now time.Time
	err = func() error {
		unlock := store.Lock(principal.UserID, targetID)
		defer unlock()

		me, err := store.User(ctx, principal.UserID)
		if err != nil {
			return err
		}
		target, err := store.User(ctx, targetID)
		if err != nil {
			return err
		}
		if me.ConnectedTo(targetID) == connect {
			from := "disconnected"
			if connect {
				from = "connected"
			}
			return &InvalidTransitionError{Kind: KindUser, ID: targetID, From: from, Operation: operation}
		}

		now = s.deps.Now()
		if connect {
			me.Connections = append(me.Connections, targetID)
			target.Connections = append(target.Connections, me.ID)
		} else {
			me.Connections = without(me.Connections, targetID)
			target.Connections = without(target.Connections, me.ID)
		}
		me.UpdatedAt = now
		target.UpdatedAt = now
		if err := store.Upsert(ctx, me, target); err != nil {
			return err
		}
		view = UserView{User: target, Connected: connect}
		return nil
	}()
	if err != nil {
		view = UserView{}
		return
	}

	publishEvents(ctx, s.deps.Events, logger, Event{
		Type:       eventType,
		OccurredAt: now,
		ActorID:    principal.UserID,
		EntityID:   targetID,
		Recipients: []string{principal.UserID, targetID},
		Payload:    map[string]string{"userId": principal.UserID, "targetId": targetID},
	})
	return
}

// SetOnline records the principal's presence flag.
func (s *UserService) SetOnline(ctx context.Context, principal Principal, online bool) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if err := requireViewer(principal); err != nil {
		return User{}, err
	}

	store := s.deps.Store
	unlock := store.Lock(principal.UserID)
	defer unlock()

	user, err := store.User(ctx, principal.UserID)
	if err != nil {
		return User{}, err
	}
	if user.Online == online {
		return user, nil
	}
	user.Online = online
	user.UpdatedAt = s.deps.Now()
	if err := store.Upsert(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Browse returns a page of members other than the viewer.
func (s *UserService) Browse(ctx context.Context, params BrowseUsersParams) (page filter.Page[UserView], err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Browse", "principal_id", params.Viewer.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to browse users", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	availability := strings.TrimSpace(params.Availability)
	if availability != "" {
		if _, ok := ParseAvailability(availability); !ok {
			err = newValidationError("availability", "unknown availability")
			return
		}
	}

	var users []User
	users, err = s.deps.Store.Users(ctx)
	if err != nil {
		return
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		if u.ID == params.Viewer.UserID {
			continue
		}
		views = append(views, UserView{User: u, Connected: u.ConnectedTo(params.Viewer.UserID)})
	}

	page, err = paginate(views, s.deps.pageRequest(params.Page),
		filter.Contains("query", params.Query, func(v UserView) []string {
			return append(append([]string{v.DisplayName}, v.SkillsOffered...), v.SkillsWanted...)
		}),
		filter.Contains("skill", params.Skill, func(v UserView) []string { return v.SkillsOffered }),
		filter.Contains("location", params.Location, func(v UserView) []string { return []string{v.Location} }),
		filter.Equals("availability", availability, func(v UserView) string { return string(v.Availability) }),
	)
	return
}

// validateProfile checks input and returns the normalised profile fields.
func validateProfile(input ProfileInput) (User, error) {
	vErr := &ValidationError{}
	user := User{
		DisplayName: strings.TrimSpace(input.DisplayName),
		Location:    strings.TrimSpace(input.Location),
		Bio:         strings.TrimSpace(input.Bio),
		TimeZone:    strings.TrimSpace(input.TimeZone),
	}

	if user.DisplayName == "" {
		vErr.add("displayName", "display name is required")
	}
	if input.Availability == "" {
		user.Availability = AvailabilityFlexible
	} else if a, ok := ParseAvailability(input.Availability); ok {
		user.Availability = a
	} else {
		vErr.add("availability", "availability must be weekdays, weekends, evenings or flexible")
	}
	if offered, ok := normalizeTags(input.SkillsOffered); ok {
		user.SkillsOffered = offered
	} else {
		vErr.add("skillsOffered", "skill tags must not be blank")
	}
	if wanted, ok := normalizeTags(input.SkillsWanted); ok {
		user.SkillsWanted = wanted
	} else {
		vErr.add("skillsWanted", "skill tags must not be blank")
	}
	if user.TimeZone != "" {
		if _, err := time.LoadLocation(user.TimeZone); err != nil {
			vErr.add("timeZone", "unknown time zone")
		}
	}

	if vErr.HasErrors() {
		return User{}, vErr
	}
	return user, nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
