package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/notify"
	"github.com/example/skillswap/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Events      *notify.Recorder
	Settings    application.Settings
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults. Logs are
// discarded unless WithLogger is supplied.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Events:      notify.NewRecorder(),
		Settings:    application.DefaultSettings(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Events == nil {
		factory.Events = notify.NewRecorder()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithSettings overrides the read-side settings.
func WithSettings(settings application.Settings) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Settings = settings
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services bundles every application service sharing one store.
type Services struct {
	Store    *application.EntityStore
	Users    *application.UserService
	Listings *application.ListingService
	Requests *application.RequestService
	Swaps    *application.SwapService
	Schedule *application.ScheduleService
}

// Dependencies returns service dependencies over backend using the factory
// clock, identifiers and event recorder.
func (f *ServiceFactory) Dependencies(backend persistence.Backend) application.Dependencies {
	now := f.Clock.NowFunc()
	return application.Dependencies{
		Store:       application.NewEntityStore(backend, now),
		Events:      f.Events,
		IDGenerator: f.IDGenerator.NextFunc(),
		Now:         now,
		Logger:      f.Logger,
		Settings:    f.Settings,
	}
}

// NewServices builds every service over backend.
func (f *ServiceFactory) NewServices(backend persistence.Backend) Services {
	deps := f.Dependencies(backend)
	return Services{
		Store:    deps.Store,
		Users:    application.NewUserService(deps),
		Listings: application.NewListingService(deps),
		Requests: application.NewRequestService(deps),
		Swaps:    application.NewSwapService(deps),
		Schedule: application.NewScheduleService(deps),
	}
}
