package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/healthz"
	"github.com/dyluth/vigil/internal/logview"
	"github.com/dyluth/vigil/internal/metrics"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/internal/watch"
)

var (
	watchOutputFormat string
	watchHealthAddr   string
	watchKind         string
	watchActor        string
	watchPlace        string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor a running engine's events in real time",
	Long: `Monitor the live event stream of the instance named by VIGIL_INSTANCE.

Streams violations, reports, rumors, interrogations and verdicts as the
engine records them, via the Redis channel its event sink publishes to.

With --health-addr, also serves /healthz (Redis reachability) and /metrics
(counts of the streamed events) on that address.

Output Formats:
  default - Human-readable output with timestamps and emojis
  jsonl   - Line-delimited JSON for programmatic processing

Examples:
  # Watch all activity
  vigil watch

  # Only verdicts, with health and metrics on :8080
  vigil watch --kind=VerdictGiven --health-addr=:8080

  # Export events as JSONL
  vigil watch --output=jsonl > events.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	watchCmd.Flags().StringVar(&watchHealthAddr, "health-addr", "", "Serve /healthz and /metrics on this address")
	watchCmd.Flags().StringVar(&watchKind, "kind", "", "Filter by event kind (glob pattern)")
	watchCmd.Flags().StringVar(&watchActor, "actor", "", "Filter by actor id (exact match)")
	watchCmd.Flags().StringVar(&watchPlace, "place", "", "Filter by place id (exact match)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outputFormat, err := logview.ParseFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	h, err := loadHostEnv()
	if err != nil {
		return err
	}
	defer func() { _ = h.logger.Sync() }()

	rdb, err := h.redisClient(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	if watchHealthAddr != "" {
		server := healthz.New(watchHealthAddr, healthz.RedisChecker(rdb), reg, h.logger)
		if err := server.Start(); err != nil {
			return printer.Error("health server failed", err.Error(), []string{"Pick a free address, e.g. --health-addr=:9090"})
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				h.logger.Warn("health server shutdown failed", zap.Error(err))
			}
		}()
	}

	sub, err := watch.Subscribe(ctx, rdb, h.host.Instance)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()

	if outputFormat == logview.OutputFormatDefault {
		printer.Info("👀 Watching instance '%s' (Ctrl+C to stop)\n", h.host.Instance)
	}

	filters := &logview.FilterCriteria{KindGlob: watchKind, ActorID: watchActor, PlaceID: watchPlace}
	return watch.Stream(ctx, sub, outputFormat, filters, m, printer.Stdout)
}
