package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/logview"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/internal/replay"
	"github.com/dyluth/vigil/internal/sim"
	"github.com/dyluth/vigil/pkg/event"
)

var (
	replayFrom         string
	replayResimulate   bool
	replayStep         time.Duration
	replayTail         time.Duration
	replayOutputFormat string
)

var replayCmd = &cobra.Command{
	Use:   "replay [LOG_FILE]",
	Short: "Feed a persisted event log through a fresh engine",
	Long: `Replay a persisted event log through a fresh engine.

By default every line is recorded with the clock set to its timestamp and
nothing is ticked, so the log is reproduced as written.

With --resimulate, derived events (suspicion, reports, rumors, interrogations
and verdicts) are dropped from the input and the engine is ticked up to each
remaining event, regenerating them from the configured tuning. Actors and
places named in the log are registered first.

Output Formats:
  default - Summary and verdicts
  jsonl   - Every event the engine records, one per line

Examples:
  # Reproduce a log and list its verdicts
  vigil replay events/example.jsonl

  # Rebuild verdicts with new tuning, letting rumors settle for 30s
  vigil replay events/example.jsonl --config tuned.yml --resimulate --tail 30s

  # Resimulate what a live engine persisted to Redis
  vigil replay --from=redis --resimulate --output=jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFrom, "from", sourceFile, "Event log source: file, redis or sql")
	replayCmd.Flags().BoolVar(&replayResimulate, "resimulate", false, "Regenerate derived events instead of replaying them")
	replayCmd.Flags().DurationVar(&replayStep, "step", replay.DefaultStep, "Tick length while resimulating")
	replayCmd.Flags().DurationVar(&replayTail, "tail", 0, "Keep ticking this long after the last event (resimulate only)")
	replayCmd.Flags().StringVarP(&replayOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	outputFormat, err := logview.ParseFormat(replayOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", replayOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}
	if replayStep <= 0 {
		return printer.Error("invalid step", "--step must be positive.", []string{"Use a duration like 50ms or 1s"})
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	h, err := loadHostEnv()
	if err != nil {
		return err
	}
	defer func() { _ = h.logger.Sync() }()

	src, label, closeSrc, err := h.openSource(ctx, replayFrom, args)
	if err != nil {
		return err
	}
	defer closeSrc()

	events, err := replay.Load(ctx, src)
	if err != nil {
		return printer.ErrorWithContext(
			"failed to load event log",
			err.Error(),
			map[string]string{"source": label},
			nil,
		)
	}

	sink, err := h.openSinks(ctx)
	if err != nil {
		return fmt.Errorf("failed to open event sinks: %w", err)
	}

	eng, err := sim.New(sim.Options{
		Config:   cfg,
		Instance: h.host.Instance,
		Sink:     sink,
		Logger:   h.logger,
	})
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}

	opts := replay.Options{Step: replayStep, Tail: replayTail}
	var writeErr error
	if outputFormat == logview.OutputFormatJSONL {
		opts.OnEvent = func(e event.Event) {
			if writeErr == nil {
				writeErr = logview.FormatJSONL(printer.Stdout, []event.Event{e})
			}
		}
	}

	var result replay.Result
	if replayResimulate {
		eng.Seed(events)
		result, err = replay.Resimulate(ctx, eng, events, opts)
	} else {
		result, err = replay.Replay(ctx, eng, eng.Clock(), events, opts)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := eng.Close(closeCtx); cerr != nil {
		h.logger.Warn("event sinks did not drain", zap.Error(cerr))
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			printer.Warning("Replay interrupted\n")
		}
		return fmt.Errorf("replay failed: %w", err)
	}
	if writeErr != nil {
		return writeErr
	}

	if outputFormat == logview.OutputFormatDefault {
		printSummary(label, result, eng.Adjudications())
	}
	return nil
}

func printSummary(label string, result replay.Result, adjudications []sim.Adjudication) {
	printer.Success("Replayed %s\n", label)
	printer.Printf("  Read:     %d\n", result.Read)
	printer.Printf("  Applied:  %d\n", result.Applied)
	if result.Skipped > 0 {
		printer.Printf("  Skipped:  %d (derived)\n", result.Skipped)
	}
	if result.Deduped > 0 {
		printer.Printf("  Deduped:  %d\n", result.Deduped)
	}
	printer.Printf("  Segments: %d\n", result.Segments)
	printer.Printf("  Sim time: %s\n", result.LastAt)
	for _, g := range result.Gaps {
		printer.Warning("Sequence gap after %d (next %d)\n", g.After, g.Next)
	}

	if len(result.Verdicts) == 0 {
		printer.Println(printer.Faint("\nNo verdicts."))
		return
	}

	printer.Printf("\nVerdicts (%d):\n", len(result.Verdicts))
	if len(adjudications) > 0 {
		for _, a := range adjudications {
			printer.Printf("  [%s] %s on %s at %s (score %d): %s\n",
				a.InterrogatedAt, printer.Outcome(string(a.Verdict.Outcome)),
				orDash(a.Envelope.TargetID), orDash(a.Envelope.PlaceID), a.Bundle.Score, a.Verdict.Reason)
		}
		return
	}
	// Plain replay: verdicts come from the log itself.
	for _, v := range result.Verdicts {
		printer.Printf("  [%s] %s on %s at %s\n", v.At, v.Note, orDash(v.TargetID), orDash(v.PlaceID))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
