package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/skillswap/internal/logging"
)

// Store drivers accepted by SKILLSWAP_STORE_DRIVER.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config captures environment driven configuration values for the skill swap service.
type Config struct {
	HTTPPort       int
	StoreDriver    string
	SQLiteDSN      string
	RedisURL       string
	EventPrefix    string
	IdentitySecret string
	Location       *time.Location
	PageSize       int
	UpcomingLimit  int
	LogLevel       slog.Level
	SeedDemo       bool
}

// Load parses configuration values from the current process environment.
//
// A dotenv file named by SKILLSWAP_ENV_FILE (default ".env") is read first
// when present; variables already set in the environment take precedence.
// The loader applies defaults for optional fields while validating required
// values and reporting every missing or invalid entry at once.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("SKILLSWAP_ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("環境ファイルを読み込めません: %s: %w", envFile, err)
	}

	cfg := Config{
		HTTPPort:      8080,
		StoreDriver:   StoreSQLite,
		SQLiteDSN:     "file:skillswap.db",
		EventPrefix:   "skillswap",
		Location:      time.UTC,
		PageSize:      4,
		UpcomingLimit: 5,
		LogLevel:      slog.LevelInfo,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	positiveInt := func(key string, target *int) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			invalid = append(invalid, key)
			return
		}
		*target = n
	}

	positiveInt("SKILLSWAP_HTTP_PORT", &cfg.HTTPPort)
	positiveInt("SKILLSWAP_PAGE_SIZE", &cfg.PageSize)
	positiveInt("SKILLSWAP_UPCOMING_LIMIT", &cfg.UpcomingLimit)

	if driver := strings.ToLower(strings.TrimSpace(os.Getenv("SKILLSWAP_STORE_DRIVER"))); driver != "" {
		switch driver {
		case StoreSQLite, StoreMemory:
			cfg.StoreDriver = driver
		default:
			invalid = append(invalid, "SKILLSWAP_STORE_DRIVER")
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SKILLSWAP_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("SKILLSWAP_REDIS_URL"))

	if prefix := strings.TrimSpace(os.Getenv("SKILLSWAP_EVENT_CHANNEL_PREFIX")); prefix != "" {
		cfg.EventPrefix = prefix
	}

	if secret := strings.TrimSpace(os.Getenv("SKILLSWAP_IDENTITY_SECRET")); secret == "" {
		missing = append(missing, "SKILLSWAP_IDENTITY_SECRET")
	} else {
		cfg.IdentitySecret = secret
	}

	if zone := strings.TrimSpace(os.Getenv("SKILLSWAP_TIMEZONE")); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, "SKILLSWAP_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if levelValue := os.Getenv("SKILLSWAP_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "SKILLSWAP_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if seedValue := strings.TrimSpace(os.Getenv("SKILLSWAP_SEED_DEMO")); seedValue != "" {
		seed, err := strconv.ParseBool(seedValue)
		if err != nil {
			invalid = append(invalid, "SKILLSWAP_SEED_DEMO")
		} else {
			cfg.SeedDemo = seed
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
