package application

import (
	"cmp"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/skillswap/internal/filter"
)

// Settings holds read-side defaults shared by the services.
type Settings struct {
	PageSize      int
	UpcomingLimit int
	Location      *time.Location
}

// DefaultSettings mirrors the browse screens: four cards per page and five
// upcoming sessions, evaluated in UTC.
func DefaultSettings() Settings {
	return Settings{PageSize: 4, UpcomingLimit: 5, Location: time.UTC}
}

// Dependencies are the collaborators every service is built from.
type Dependencies struct {
	Store       *EntityStore
	Events      EventPublisher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
	Settings    Settings
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Events == nil {
		d.Events = noopPublisher{}
	}
	if d.IDGenerator == nil {
		d.IDGenerator = func() string { return "" }
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	d.Logger = cmp.Or(d.Logger, slog.Default())

	defaults := DefaultSettings()
	if d.Settings.PageSize <= 0 {
		d.Settings.PageSize = defaults.PageSize
	}
	if d.Settings.UpcomingLimit <= 0 {
		d.Settings.UpcomingLimit = defaults.UpcomingLimit
	}
	if d.Settings.Location == nil {
		d.Settings.Location = defaults.Location
	}
	return d
}

// pageRequest fills unset page fields from settings.
func (d Dependencies) pageRequest(req filter.PageRequest) filter.PageRequest {
	if req.Number == 0 {
		req.Number = 1
	}
	if req.Size == 0 {
		req.Size = d.Settings.PageSize
	}
	return req
}

// locationFor returns the user's zone, falling back to the service zone.
func (d Dependencies) locationFor(user User) *time.Location {
	if user.TimeZone != "" {
		if loc, err := time.LoadLocation(user.TimeZone); err == nil {
			return loc
		}
	}
	return d.Settings.Location
}

func paginate[T any](items []T, req filter.PageRequest, predicates ...filter.Predicate[T]) (filter.Page[T], error) {
	page, err := filter.Apply(items, req, predicates...)
	if errors.Is(err, filter.ErrInvalidPage) {
		return filter.Page[T]{}, newValidationError("page", "page must be at least 1 and size must be positive")
	}
	return page, err
}

func requireViewer(p Principal) error {
	if p.IsZero() {
		return ErrUnauthorized
	}
	return nil
}

// normalizeTags trims tags and drops case-insensitive duplicates. It reports
// false when any tag is blank.
func normalizeTags(tags []string) ([]string, bool) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, false
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out, true
}

func timePtr(t time.Time) *time.Time {
	return &t
}
