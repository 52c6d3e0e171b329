package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/experience-hoarder/internal/api"
	"github.com/JakeFAU/experience-hoarder/internal/config"
	"github.com/JakeFAU/experience-hoarder/internal/logging"
	"github.com/JakeFAU/experience-hoarder/internal/policy/ratelimit"
	collyprober "github.com/JakeFAU/experience-hoarder/internal/prober/colly"
	"github.com/JakeFAU/experience-hoarder/internal/progress"
	"github.com/JakeFAU/experience-hoarder/internal/progress/sinks"
	"github.com/JakeFAU/experience-hoarder/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newSweepCmd(reg prometheus.Registerer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Probe every code from --start down to --end",
		Long: `Runs one sweep. Codes are probed in windows of --chunk-size codes counting
down from --start; the next window starts only after every probe in the
current one has answered. --end is exclusive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, reg)
		},
	}

	f := cmd.Flags()
	f.String("start", "", "first (highest) code to probe")
	f.String("end", "AAA", "exclusive lower bound of the sweep")
	f.Int("chunk-size", 9, "codes per window")
	f.Int("max-in-flight", 0, "concurrent probes per window (0 = chunk size)")
	f.String("base-url", "", "lookup service URL; the code is sent as ?experiencecode=")
	f.String("user-agent", "experience-hoarder/0.1", "User-Agent header for lookups")
	f.Duration("timeout", 10*time.Second, "per-probe timeout")
	f.Float64("rate-per-second", 0, "lookup rate limit per host (0 = unlimited)")
	f.Int("burst", 1, "rate limiter burst")
	f.Bool("serve", false, "serve the status API while sweeping")
	f.Int("port", 8080, "status API port")
	f.Bool("dev", true, "development logging")
	f.String("log-level", "", "log level override")
	f.Bool("render", false, "render the window table to stdout")
	f.Bool("redraw", true, "clear the terminal between table frames")
	return cmd
}

func runSweep(cmd *cobra.Command, reg prometheus.Registerer) error {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("read config flag: %w", err)
	}
	cfg, err := config.Load(cfgPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.New(ratelimit.Config{
		RPS:   cfg.Probe.RatePerSecond,
		Burst: cfg.Probe.Burst,
	})
	prober, err := collyprober.New(collyprober.Config{
		BaseURL:   cfg.Probe.BaseURL,
		UserAgent: cfg.Probe.UserAgent,
		Timeout:   cfg.Probe.Timeout,
		Limiter:   limiter,
	}, logger)
	if err != nil {
		return fmt.Errorf("init prober: %w", err)
	}

	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	snapshots := sinks.NewSnapshotSink()
	sinkList := []progress.Sink{sinks.NewLogSink(logger), promSink, snapshots}
	if cfg.Render.Enabled {
		sinkList = append(sinkList, sinks.NewTableSink(cmd.OutOrStdout(), cfg.Render.Redraw))
	}
	var broadcast *sinks.BroadcastSink
	if cfg.Server.Enabled {
		broadcast = sinks.NewBroadcastSink()
		sinkList = append(sinkList, broadcast)
	}
	sink := progress.NewMulti(logger, sinkList...)
	defer func() {
		if cerr := sink.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("close progress sinks failed", zap.Error(cerr))
		}
	}()

	w, err := worker.New(worker.Config{
		Start:       cfg.Sweep.Start,
		End:         cfg.Sweep.End,
		ChunkSize:   cfg.Sweep.ChunkSize,
		MaxInFlight: cfg.Sweep.MaxInFlight,
	}, prober, sink, logger)
	if err != nil {
		return fmt.Errorf("init worker: %w", err)
	}

	if cfg.Server.Enabled {
		shutdown := startStatusServer(ctx, stop, cfg.Server.Port,
			api.NewServer(snapshots, logger, api.WithEventStream(broadcast)), logger)
		defer shutdown()
	}

	res, runErr := w.Run(ctx)
	printSummary(cmd.OutOrStdout(), res, snapshots.Latest())
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("sweep interrupted", zap.Stringer("cursor", res.Stop))
		}
		return fmt.Errorf("run sweep: %w", runErr)
	}
	return nil
}

// startStatusServer serves the status API until the returned func is called.
func startStatusServer(
	ctx context.Context,
	stop context.CancelFunc,
	port int,
	status *api.Server,
	logger *zap.Logger,
) func() {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           status.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server started", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}
}

func printSummary(out io.Writer, res worker.Result, snap sinks.Snapshot) {
	fmt.Fprintf(out, "sweep %s stopped at %s: %d windows, %d probed, %d found, %d not found in %s\n",
		res.SweepID, res.Stop, res.Windows, res.Probed, res.Found, res.NotFound, res.Duration.Round(time.Millisecond))
	if len(snap.Found) == 0 {
		return
	}
	found := make([]string, 0, len(snap.Found))
	for _, c := range snap.Found {
		found = append(found, c.String())
	}
	fmt.Fprintf(out, "found: %s\n", strings.Join(found, " "))
}
