package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/penwyp/go-activity-report/internal/config"
	"github.com/penwyp/go-activity-report/internal/data/store"
	"github.com/penwyp/go-activity-report/internal/metrics"
	"github.com/penwyp/go-activity-report/internal/presentation/formatter"
	"github.com/penwyp/go-activity-report/internal/util"
	"github.com/spf13/cobra"
)

var (
	watchOutput      string
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reprint the snapshot whenever the extension writes a new one",
	Long: `Watches the store directory of the app group and prints the snapshot of the
report context every time it changes. Only the file backend can be watched.

With --metrics-addr, Prometheus metrics are served at /metrics.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", formatter.OutputSummary,
		"Output format (table, json, csv, summary)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "",
		"Address to serve Prometheus metrics on, e.g. :9090")
}

func runWatch(cmd *cobra.Command, args []string) error {
	out, err := formatter.New(watchOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Backend != config.BackendFile {
		return fmt.Errorf("watch requires the %s backend, got %s", config.BackendFile, cfg.Backend)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	st, err := openStore(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer st.Backend().Close()

	fb, ok := st.Backend().(*store.FileBackend)
	if !ok {
		return fmt.Errorf("watch requires the %s backend", config.BackendFile)
	}

	watcher, err := store.NewWatcher(fb.Dir())
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", fb.Dir(), err)
	}
	defer watcher.Close()

	if watchMetricsAddr != "" {
		server := startMetricsServer(watchMetricsAddr, m)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	return watchSnapshots(ctx, cmd.OutOrStdout(), st, watcher, out, st.Sanitize(reportContext))
}

// watchSnapshots prints the snapshot of reportContext once, then again for
// every change to its key, until ctx is done or the watcher closes.
func watchSnapshots(ctx context.Context, w io.Writer, st *store.StateStore, watcher *store.Watcher,
	out formatter.Formatter, reportContext string) error {
	render := func() error {
		return out.Format(w, st.GetSnapshot(ctx, reportContext))
	}
	if err := render(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if c, ok := st.ContextForKey(event.Key); !ok || c != reportContext {
				continue
			}
			util.LogDebugf("Store key %s changed (%s)", event.Key, event.Operation)
			if strings.Contains(event.Operation, "REMOVE") {
				fmt.Fprintf(w, "\nState of %s was removed\n", reportContext)
				continue
			}
			fmt.Fprintln(w)
			if err := render(); err != nil {
				return err
			}
			if fb, ok := st.Backend().(*store.FileBackend); ok {
				util.LogDebugf("Reloaded %s (cache: %s)", event.Key, fb.LastMissReason())
			}
		}
	}
}

func startMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		util.LogInfof("Serving metrics on %s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.LogErrorf("Metrics server failed: %v", err)
		}
	}()
	return server
}
