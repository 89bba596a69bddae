package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/notify"
	"github.com/example/skillswap/internal/testfixtures"
)

const testSecret = "test-secret"

type apiHarness struct {
	t        *testing.T
	router   http.Handler
	factory  *testfixtures.ServiceFactory
	store    *application.EntityStore
	verifier *JWTVerifier
	hub      *notify.Hub
	healthy  error
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	factory := testfixtures.NewServiceFactory()
	hub := notify.NewHub()
	deps := factory.Dependencies(testfixtures.NewMemoryBackend(t))
	deps.Events = notify.Fanout{factory.Events, hub}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	schedule := NewScheduleHandler(application.NewScheduleService(deps), time.UTC, logger)
	schedule.now = factory.Clock.Now

	h := &apiHarness{
		t:        t,
		factory:  factory,
		store:    deps.Store,
		verifier: NewJWTVerifier(testSecret).WithClock(factory.Clock.Now),
		hub:      hub,
	}

	reg := prometheus.NewRegistry()
	h.router = NewRouter(RouterConfig{
		Users:      NewUserHandler(application.NewUserService(deps), logger),
		Listings:   NewListingHandler(application.NewListingService(deps), logger),
		Requests:   NewRequestHandler(application.NewRequestService(deps), logger),
		Swaps:      NewSwapHandler(application.NewSwapService(deps), logger),
		Schedule:   schedule,
		Events:     NewEventStreamHandler(hub, logger),
		Identity:   h.verifier,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Health:     func(context.Context) error { return h.healthy },
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{RequestMetrics(reg)},
	})
	return h
}

func (h *apiHarness) token(userID, name string) string {
	h.t.Helper()
	token, err := h.verifier.Issue(application.Principal{UserID: userID, DisplayName: name}, time.Hour)
	if err != nil {
		h.t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

// register creates a profile through the API and returns the caller's token.
func (h *apiHarness) register(userID, name string) string {
	h.t.Helper()
	token := h.token(userID, name)
	rec := h.do(http.MethodPost, "/me", token, map[string]any{
		"location":      "Berlin",
		"skillsOffered": []string{"React"},
		"skillsWanted":  []string{"Python"},
		"availability":  "evenings",
	})
	requireStatus(h.t, rec, http.StatusCreated)
	return token
}

func (h *apiHarness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

var errUnhealthy = errors.New("store unreachable")
