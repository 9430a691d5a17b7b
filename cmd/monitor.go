package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/suse/upscout/internal/cli"
	"github.com/suse/upscout/internal/config"
	"github.com/suse/upscout/internal/health"
	"github.com/suse/upscout/pkg/logging"
)

type monitorOptions struct {
	listen    string
	interval  time.Duration
	endpoints map[string]string
	noWatch   bool
	once      bool
}

func newMonitorCmd() *cobra.Command {
	var opts monitorOptions
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Continuously monitor Universal Proxy endpoints",
		Long: `Checks the configured endpoints every interval (2 minutes by default) and
serves their state over HTTP:

  GET /healthz  200 when every endpoint is healthy, 503 otherwise
  GET /status   per-endpoint state as JSON

Endpoints come from monitor.endpoints in the configuration and --endpoint.
The configuration file is watched and endpoint changes apply without a
restart. When run under systemd with Type=notify, readiness, reloads and
shutdown are reported to the service manager.`,
		Example: `  upscout monitor --endpoint proxy=http://10.43.12.7:8911 --interval 30s`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", "", "Status server address (default monitor.listen)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Check interval (default monitor.interval)")
	cmd.Flags().StringToStringVar(&opts.endpoints, "endpoint", nil, "Endpoint to monitor as name=url, repeatable")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not reload the configuration file on change")
	cmd.Flags().BoolVar(&opts.once, "once", false, "Run a single round, print it and exit")
	return cmd
}

func runMonitor(cmd *cobra.Command, opts monitorOptions) error {
	listen := opts.listen
	if listen == "" {
		listen = cfg.Monitor.Listen
	}
	interval := opts.interval
	if interval <= 0 {
		interval = cfg.Monitor.Interval
	}
	endpoints := mergeEndpoints(cfg.Monitor.Endpoints, opts.endpoints)
	if len(endpoints) == 0 {
		return &cli.ConfigError{Err: errors.New("no endpoints to monitor: set monitor.endpoints or use --endpoint")}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := health.NewMonitor(newChecker(cfg), interval, endpoints)
	if opts.once {
		return runMonitorOnce(ctx, cmd, monitor)
	}
	monitor.SetStatusChangeCallback(func(string, health.Status, health.Status, health.Result) {
		notifySystemd("STATUS=" + statusLine(monitor.Snapshot()))
	})

	if !opts.noWatch {
		if w := watchConfig(ctx, monitor, opts.endpoints); w != nil {
			defer w.Stop()
		}
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           newMonitorHandler(monitor),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Info("Monitor", "Serving status on http://%s", listen)
		errCh <- srv.ListenAndServe()
	}()

	monitor.Start(ctx)
	notifySystemd(daemon.SdNotifyReady)

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("status server failed: %w", err)
		}
	case <-ctx.Done():
	}

	notifySystemd(daemon.SdNotifyStopping)
	monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	logging.Info("Monitor", "Health monitor stopped")
	return serveErr
}

func runMonitorOnce(ctx context.Context, cmd *cobra.Command, monitor *health.Monitor) error {
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	states := monitor.RefreshAll(ctx)
	if err := printer.Print(states, cli.MonitorView(states)); err != nil {
		return err
	}
	if !monitor.Healthy() {
		return errors.New("one or more endpoints are unhealthy")
	}
	return nil
}

// watchConfig reloads monitor.endpoints when the configuration file
// changes. Endpoints given with --endpoint always win.
func watchConfig(ctx context.Context, monitor *health.Monitor, overrides map[string]string) *config.Watcher {
	path := flags.ConfigPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			logging.WarnErr("Monitor", err, "Configuration reload disabled")
			return nil
		}
		path = p
	}

	w := config.NewWatcher(path, config.DefaultDebounceInterval, func(c config.UpscoutConfig) {
		notifySystemd(daemon.SdNotifyReloading)
		monitor.Reload(ctx, mergeEndpoints(c.Monitor.Endpoints, overrides))
		logging.Info("Monitor", "Reloaded endpoints from %s", path)
		notifySystemd(daemon.SdNotifyReady)
	})
	if err := w.Start(); err != nil {
		logging.WarnErr("Monitor", err, "Configuration reload disabled")
		return nil
	}
	return w
}

// newMonitorHandler serves /healthz and /status for monitor.
func newMonitorHandler(monitor *health.Monitor) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !monitor.Healthy() {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"healthy":   monitor.Healthy(),
			"interval":  monitor.Interval().String(),
			"endpoints": monitor.Snapshot(),
		}); err != nil {
			logging.WarnErr("Monitor", err, "Failed to write status")
		}
	})
	return r
}

// statusLine summarizes states for the systemd STATUS field.
func statusLine(states []health.ServiceHealth) string {
	healthy := 0
	for _, s := range states {
		if s.LastStatus() == health.StatusHealthy {
			healthy++
		}
	}
	return fmt.Sprintf("%d/%d endpoints healthy", healthy, len(states))
}

func mergeEndpoints(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for name, u := range base {
		merged[name] = u
	}
	for name, u := range overrides {
		merged[name] = u
	}
	return merged
}

// notifySystemd sends state to the service manager. Outside systemd this is
// a no-op.
func notifySystemd(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logging.Debug("Monitor", "sd_notify %s failed: %v", state, err)
	}
}
