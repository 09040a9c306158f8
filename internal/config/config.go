package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultReportContext   = "totalActivity"
	DefaultSnapshotPrefix  = "deviceActivityReportSnapshot"
	DefaultViewStatePrefix = "deviceActivityReportViewState"
	DefaultAppGroup        = "group.default"
	DefaultStoreDir        = "~/.go-activity-report/groups"

	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Environment keys read by LoadEnv.
const (
	EnvAppGroup       = "ACTIVITY_REPORT_APP_GROUP"
	EnvLegacyAppGroup = "REACT_NATIVE_DEVICE_ACTIVITY_APP_GROUP"
	EnvStoreDir       = "ACTIVITY_REPORT_STORE_DIR"
	EnvBackend        = "ACTIVITY_REPORT_BACKEND"
	EnvRedisAddr      = "ACTIVITY_REPORT_REDIS_ADDR"
	EnvRedisDB        = "ACTIVITY_REPORT_REDIS_DB"
	EnvDefaultContext = "ACTIVITY_REPORT_DEFAULT_CONTEXT"
	EnvTimezone       = "ACTIVITY_REPORT_TIMEZONE"
	EnvLogLevel       = "ACTIVITY_REPORT_LOG_LEVEL"
)

// Config carries the per-process defaults that every component receives at
// construction time: storage namespace, key prefixes and the fallback context.
type Config struct {
	AppGroup        string `validate:"required"`
	StoreDir        string `validate:"required_if=Backend file"`
	Backend         string `validate:"oneof=file memory redis"`
	RedisAddr       string `validate:"required_if=Backend redis"`
	RedisDB         int    `validate:"gte=0"`
	DefaultContext  string `validate:"required"`
	SnapshotPrefix  string `validate:"required,nefield=ViewStatePrefix"`
	ViewStatePrefix string `validate:"required"`
	Timezone        string
	LogLevel        string `validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		AppGroup:        DefaultAppGroup,
		StoreDir:        DefaultStoreDir,
		Backend:         BackendFile,
		RedisAddr:       "localhost:6379",
		DefaultContext:  DefaultReportContext,
		SnapshotPrefix:  DefaultSnapshotPrefix,
		ViewStatePrefix: DefaultViewStatePrefix,
		Timezone:        "Local",
		LogLevel:        "info",
	}
}

// LoadEnv loads envFile (if present) into the process environment and overlays
// the recognised variables on top of Default.
func LoadEnv(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		}
	}

	cfg := Default()
	if v, ok := lookup(EnvLegacyAppGroup); ok {
		cfg.AppGroup = v
	}
	if v, ok := lookup(EnvAppGroup); ok {
		cfg.AppGroup = v
	}
	if v, ok := lookup(EnvStoreDir); ok {
		cfg.StoreDir = v
	}
	if v, ok := lookup(EnvBackend); ok {
		cfg.Backend = strings.ToLower(v)
	}
	if v, ok := lookup(EnvRedisAddr); ok {
		cfg.RedisAddr = v
	}
	if v, ok := lookup(EnvRedisDB); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvRedisDB, v, err)
		}
		cfg.RedisDB = db
	}
	if v, ok := lookup(EnvDefaultContext); ok {
		cfg.DefaultContext = v
	}
	if v, ok := lookup(EnvTimezone); ok {
		cfg.Timezone = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	return cfg, nil
}

// Validate checks the struct tags and returns the first violation in a
// readable form.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SnapshotKey and ViewStateKey build the persisted key for an already
// sanitized report context.
func (c Config) SnapshotKey(reportContext string) string {
	return c.SnapshotPrefix + "_" + reportContext
}

func (c Config) ViewStateKey(reportContext string) string {
	return c.ViewStatePrefix + "_" + reportContext
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
