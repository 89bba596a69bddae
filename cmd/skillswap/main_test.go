package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/skillswap/internal/application"
	"github.com/example/skillswap/internal/config"
	httptransport "github.com/example/skillswap/internal/http"
)

const testSecret = "main-test-secret"

func testConfig() config.Config {
	return config.Config{
		HTTPPort:       0,
		StoreDriver:    config.StoreMemory,
		EventPrefix:    "skillswap-test",
		IdentitySecret: testSecret,
		Location:       time.UTC,
		PageSize:       4,
		UpcomingLimit:  5,
		LogLevel:       slog.LevelInfo,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, discardLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func serve(t *testing.T, a *app, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func issue(t *testing.T, userID string) string {
	t.Helper()
	token, err := httptransport.NewJWTVerifier(testSecret).Issue(application.Principal{UserID: userID, DisplayName: "Member " + userID}, time.Hour)
	require.NoError(t, err)
	return token
}

func TestNewAppServesProfilesOnMemoryStore(t *testing.T) {
	a := newTestApp(t, testConfig())
	token := issue(t, "alice")

	rec := serve(t, a, http.MethodPost, "/me", token, `{"displayName":"Alice","skillsOffered":["Go"],"skillsWanted":["Piano"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	user, err := a.store.User(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.DisplayName)
	assertUUIDListing(t, a, token)

	rec = serve(t, a, http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, a, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, a, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "skillswap_http_requests_total")
}

// assertUUIDListing advertises a listing and checks the generated id is a UUID.
func assertUUIDListing(t *testing.T, a *app, token string) {
	t.Helper()
	rec := serve(t, a, http.MethodPost, "/listings", token, `{"skillOffered":"Go","skillWanted":"Piano"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	listings, err := a.store.Listings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	_, err = uuid.Parse(listings[0].ID)
	assert.NoError(t, err)
}

func TestNewAppWithSQLiteAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.StoreDriver = config.StoreSQLite
	cfg.SQLiteDSN = "file:" + filepath.Join(t.TempDir(), "skillswap.db")
	cfg.RedisURL = "redis://" + mr.Addr()
	a := newTestApp(t, cfg)

	rec := serve(t, a, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, a, http.MethodPost, "/me", issue(t, "bob"), `{"displayName":"Bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	mr.Close()
	rec = serve(t, a, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewAppSeedsDemoData(t *testing.T) {
	cfg := testConfig()
	cfg.SeedDemo = true
	a := newTestApp(t, cfg)

	users, err := a.store.Users(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 12)

	listings, err := a.store.Listings(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 12)
}

func TestNewAppRejectsBadConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "redis url", mutate: func(c *config.Config) { c.RedisURL = "ftp://nowhere" }},
		{name: "unreachable redis", mutate: func(c *config.Config) { c.RedisURL = "redis://127.0.0.1:1" }},
		{name: "store driver", mutate: func(c *config.Config) { c.StoreDriver = "postgres" }},
		{name: "sqlite dsn", mutate: func(c *config.Config) { c.StoreDriver = config.StoreSQLite; c.SQLiteDSN = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			a, err := newApp(context.Background(), cfg, discardLogger(), prometheus.NewRegistry())
			require.Error(t, err)
			assert.Nil(t, a)
		})
	}
}

func TestRunReturnsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, testConfig(), discardLogger(), prometheus.NewRegistry())
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
