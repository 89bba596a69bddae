// Package seed populates an empty deployment with demo members and skill
// listings. Everything goes through the application services so the demo
// data satisfies the same validation as real traffic.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	_ "time/tzdata"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/example/skillswap/internal/application"
)

// Skills is the tag pool demo profiles draw from.
var Skills = []string{
	"React", "Python", "Go", "Guitar", "Spanish", "Photography",
	"Cooking", "Yoga", "Figma", "SQL", "Piano", "Public Speaking",
}

var zones = []string{"Europe/Berlin", "Europe/London", "America/New_York", "Asia/Tokyo", ""}

var availabilities = []application.Availability{
	application.AvailabilityWeekdays,
	application.AvailabilityWeekends,
	application.AvailabilityEvenings,
	application.AvailabilityFlexible,
}

// Options tunes how much demo data is generated.
type Options struct {
	Users           int
	ListingsPerUser int
	// Seed makes runs reproducible; zero picks a fixed default.
	Seed int64
}

// DefaultOptions creates a dozen members with one listing each.
func DefaultOptions() Options {
	return Options{Users: 12, ListingsPerUser: 1, Seed: 42}
}

type userRegistrar interface {
	Register(ctx context.Context, params application.RegisterUserParams) (application.User, error)
}

type listingAdvertiser interface {
	Advertise(ctx context.Context, params application.AdvertiseParams) (application.SkillListing, error)
}

// Result counts what a run created.
type Result struct {
	Users    int
	Listings int
	Skipped  int
}

// Seeder generates demo data through the user and listing services.
type Seeder struct {
	users    userRegistrar
	listings listingAdvertiser
	opts     Options
	logger   *slog.Logger
}

// New builds a Seeder. Zero options fall back to DefaultOptions.
func New(users userRegistrar, listings listingAdvertiser, opts Options, logger *slog.Logger) *Seeder {
	defaults := DefaultOptions()
	if opts.Users <= 0 {
		opts.Users = defaults.Users
	}
	if opts.ListingsPerUser < 0 {
		opts.ListingsPerUser = 0
	}
	if opts.Seed == 0 {
		opts.Seed = defaults.Seed
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{users: users, listings: listings, opts: opts, logger: logger.With("component", "seed")}
}

// PrincipalID is the identity a demo member is registered under.
func PrincipalID(n int) string {
	return fmt.Sprintf("demo-%03d", n)
}

// Run registers the demo members. Members that already exist are skipped
// together with their listings, so repeated runs against a persistent store
// are harmless.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	faker := gofakeit.New(s.opts.Seed)
	var result Result

	for i := 1; i <= s.opts.Users; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		principal := application.Principal{UserID: PrincipalID(i), DisplayName: faker.Name()}
		input := profileInput(faker, principal.DisplayName)

		_, err := s.users.Register(ctx, application.RegisterUserParams{Principal: principal, Input: input})
		if errors.Is(err, application.ErrInvalidTransition) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("seed: register %s: %w", principal.UserID, err)
		}
		result.Users++

		for j := 0; j < s.opts.ListingsPerUser; j++ {
			listing := application.ListingInput{
				SkillOffered: input.SkillsOffered[j%len(input.SkillsOffered)],
				SkillWanted:  input.SkillsWanted[j%len(input.SkillsWanted)],
				Description:  faker.Sentence(10),
			}
			if _, err := s.listings.Advertise(ctx, application.AdvertiseParams{Principal: principal, Input: listing}); err != nil {
				return result, fmt.Errorf("seed: advertise for %s: %w", principal.UserID, err)
			}
			result.Listings++
		}
	}

	s.logger.InfoContext(ctx, "demo data seeded", "users", result.Users, "listings", result.Listings, "skipped", result.Skipped)
	return result, nil
}

// profileInput draws disjoint offered and wanted skills so a member never
// wants what they already teach.
func profileInput(faker *gofakeit.Faker, name string) application.ProfileInput {
	pool := append([]string(nil), Skills...)
	faker.ShuffleStrings(pool)
	offered := faker.Number(1, 3)
	wanted := faker.Number(1, 3)

	return application.ProfileInput{
		DisplayName:   name,
		Location:      faker.City(),
		Bio:           strings.TrimSpace(faker.Sentence(12)),
		SkillsOffered: pool[:offered],
		SkillsWanted:  pool[offered : offered+wanted],
		Availability:  string(availabilities[faker.Number(0, len(availabilities)-1)]),
		TimeZone:      zones[faker.Number(0, len(zones)-1)],
	}
}
