package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-activity-report/internal/config"
	"github.com/penwyp/go-activity-report/internal/data/store"
	"github.com/penwyp/go-activity-report/internal/metrics"
	"github.com/penwyp/go-activity-report/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Logging related
	debug   bool
	logFile string

	// Configuration sources
	envFile string

	// Storage
	storeDir  string
	appGroup  string
	backend   string
	redisAddr string
	redisDB   int

	// Report
	reportContext string
	timezone      string

	rootCmd = &cobra.Command{
		Use:   "go-activity-report [command]",
		Short: "Screen time report state and snapshot tool",
		Long: `go-activity-report manages the state shared between an embedded screen time
report and its report extension: the view-state (context, date range and
segmentation) and the aggregated activity snapshot.

Examples:
  go-activity-report view-state set --from 1770336000 --to 1770388200
  go-activity-report aggregate --input ./exports                # Fold JSONL activity exports into a snapshot
  go-activity-report snapshot --output summary                 # Print the latest snapshot
  go-activity-report snapshot --context weekly --output json   # Print another context as JSON
  go-activity-report watch --metrics-addr :9090                # Reprint on change, serve metrics
  go-activity-report reset --all                               # Remove all stored state`,
		SilenceUsage: true,
	}
)

const (
	defaultLogFile = "~/.go-activity-report/logs/app.log"
	defaultEnvFile = ".env"
)

func init() {
	// Configuration sources
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile,
		"Environment file loaded before reading ACTIVITY_REPORT_* variables")

	// Storage
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", config.DefaultStoreDir,
		"Directory holding one subdirectory per app group (file backend)")
	rootCmd.PersistentFlags().StringVarP(&appGroup, "app-group", "g", config.DefaultAppGroup,
		"App group namespace shared by the app and its report extension")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", config.BackendFile,
		"Storage backend (file, memory, redis)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "localhost:6379",
		"Redis address for the redis backend")
	rootCmd.PersistentFlags().IntVar(&redisDB, "redis-db", 0,
		"Redis database for the redis backend")

	// Report
	rootCmd.PersistentFlags().StringVarP(&reportContext, "context", "c", "",
		"Report context (defaults to "+config.DefaultReportContext+")")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "Local",
		"Timezone setting (e.g., Asia/Shanghai, UTC)")

	// System and debugging
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", defaultLogFile,
		"Log file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the configuration in order: defaults, environment
// (including the env file), then flags set on the command line. It also
// initializes logging and the time provider.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.LoadEnv(envFile)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("store-dir") {
		cfg.StoreDir = storeDir
	}
	if flags.Changed("app-group") {
		cfg.AppGroup = appGroup
	}
	if flags.Changed("backend") {
		cfg.Backend = strings.ToLower(backend)
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr = redisAddr
	}
	if flags.Changed("redis-db") {
		cfg.RedisDB = redisDB
	}
	if flags.Changed("timezone") {
		cfg.Timezone = timezone
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	if logFile != "" {
		path := expandPath(logFile)
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return config.Config{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		if err := util.InitLogger(cfg.LogLevel, path, debug); err != nil {
			return config.Config{}, err
		}
	}
	if err := util.InitializeTimeProvider(cfg.Timezone); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore opens the configured backend and wraps it in a StateStore.
func openStore(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*store.StateStore, error) {
	var b store.Backend
	switch cfg.Backend {
	case config.BackendMemory:
		b = store.NewMemoryBackend()
	case config.BackendRedis:
		rb, err := store.NewRedisBackend(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.AppGroup)
		if err != nil {
			return nil, err
		}
		b = rb
	default:
		fb, err := store.NewFileBackend(expandPath(cfg.StoreDir), cfg.AppGroup)
		if err != nil {
			return nil, err
		}
		if err := fb.Preload(); err != nil {
			util.LogWarnf("Store preload failed: %v", err)
		}
		memoryCount, fileCount := fb.Stats()
		util.LogDebugf("Preloaded %d of %d store files from %s", memoryCount, fileCount, fb.Dir())
		b = fb
	}

	util.LogDebugf("Opened %s store for app group %s", cfg.Backend, cfg.AppGroup)
	return store.New(b, cfg, store.WithMetrics(m)), nil
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
