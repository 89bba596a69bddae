package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var allKeys = []string{
	"SKILLSWAP_ENV_FILE",
	"SKILLSWAP_HTTP_PORT",
	"SKILLSWAP_STORE_DRIVER",
	"SKILLSWAP_SQLITE_DSN",
	"SKILLSWAP_REDIS_URL",
	"SKILLSWAP_EVENT_CHANNEL_PREFIX",
	"SKILLSWAP_IDENTITY_SECRET",
	"SKILLSWAP_TIMEZONE",
	"SKILLSWAP_PAGE_SIZE",
	"SKILLSWAP_UPCOMING_LIMIT",
	"SKILLSWAP_LOG_LEVEL",
	"SKILLSWAP_SEED_DEMO",
}

// clearEnv unsets every variable for the test and restores it afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
	t.Setenv("SKILLSWAP_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		const secret = "super-secret"
		t.Setenv("SKILLSWAP_IDENTITY_SECRET", secret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.StoreDriver != StoreSQLite || cfg.SQLiteDSN != "file:skillswap.db" {
			t.Fatalf("unexpected default store: %q %q", cfg.StoreDriver, cfg.SQLiteDSN)
		}
		if cfg.IdentitySecret != secret {
			t.Fatalf("expected identity secret to be %q, got %q", secret, cfg.IdentitySecret)
		}
		if cfg.PageSize != 4 || cfg.UpcomingLimit != 5 {
			t.Fatalf("unexpected read defaults: %d %d", cfg.PageSize, cfg.UpcomingLimit)
		}
		if cfg.Location.String() != "UTC" || cfg.LogLevel != slog.LevelInfo || cfg.SeedDemo || cfg.RedisURL != "" {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
		if cfg.EventPrefix != "skillswap" {
			t.Fatalf("expected default event prefix, got %q", cfg.EventPrefix)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の環境変数が設定されていません: SKILLSWAP_IDENTITY_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SKILLSWAP_IDENTITY_SECRET", "secret")
		t.Setenv("SKILLSWAP_HTTP_PORT", "-1")
		t.Setenv("SKILLSWAP_STORE_DRIVER", "postgres")
		t.Setenv("SKILLSWAP_TIMEZONE", "Mars/Olympus")
		t.Setenv("SKILLSWAP_SEED_DEMO", "maybe")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected invalid values to be reported")
		}
		for _, key := range []string{"SKILLSWAP_HTTP_PORT", "SKILLSWAP_STORE_DRIVER", "SKILLSWAP_TIMEZONE", "SKILLSWAP_SEED_DEMO"} {
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected %s in %q", key, err.Error())
			}
		}
	})

	t.Run("parses every field", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SKILLSWAP_IDENTITY_SECRET", "secret-value")
		t.Setenv("SKILLSWAP_HTTP_PORT", "9090")
		t.Setenv("SKILLSWAP_STORE_DRIVER", "Memory")
		t.Setenv("SKILLSWAP_SQLITE_DSN", "file:/tmp/skillswap.db")
		t.Setenv("SKILLSWAP_REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("SKILLSWAP_EVENT_CHANNEL_PREFIX", "staging")
		t.Setenv("SKILLSWAP_TIMEZONE", "Asia/Tokyo")
		t.Setenv("SKILLSWAP_PAGE_SIZE", "10")
		t.Setenv("SKILLSWAP_UPCOMING_LIMIT", "3")
		t.Setenv("SKILLSWAP_LOG_LEVEL", "debug")
		t.Setenv("SKILLSWAP_SEED_DEMO", "true")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.StoreDriver != StoreMemory || cfg.SQLiteDSN != "file:/tmp/skillswap.db" {
			t.Fatalf("unexpected server settings: %+v", cfg)
		}
		if cfg.RedisURL != "redis://localhost:6379/0" || cfg.EventPrefix != "staging" {
			t.Fatalf("unexpected event settings: %+v", cfg)
		}
		if cfg.Location.String() != "Asia/Tokyo" || cfg.PageSize != 10 || cfg.UpcomingLimit != 3 {
			t.Fatalf("unexpected read settings: %+v", cfg)
		}
		if cfg.LogLevel != slog.LevelDebug || !cfg.SeedDemo {
			t.Fatalf("unexpected ambient settings: %+v", cfg)
		}
	})

	t.Run("reads dotenv file without overriding the environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "test.env")
		content := "SKILLSWAP_IDENTITY_SECRET=from-file\nSKILLSWAP_PAGE_SIZE=6\nSKILLSWAP_HTTP_PORT=7000\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("SKILLSWAP_ENV_FILE", path)
		t.Setenv("SKILLSWAP_HTTP_PORT", "9000")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.IdentitySecret != "from-file" || cfg.PageSize != 6 {
			t.Fatalf("expected values from the env file, got %+v", cfg)
		}
		if cfg.HTTPPort != 9000 {
			t.Fatalf("expected environment to win over the file, got %d", cfg.HTTPPort)
		}
	})
}
