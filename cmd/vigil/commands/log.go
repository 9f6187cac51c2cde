package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/vigil/internal/logview"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/internal/replay"
	"github.com/dyluth/vigil/internal/resolver"
	"github.com/dyluth/vigil/internal/timespec"
)

var (
	logFrom         string
	logOutputFormat string
	logSince        string
	logUntil        string
	logKind         string
	logActor        string
	logPlace        string
	logID           string
)

var logCmd = &cobra.Command{
	Use:   "log [LOG_FILE]",
	Short: "List persisted events with filtering",
	Long: `List the events of a persisted log in simulation-time order.

Output Formats:
  default - Human-readable table with sequence, time, kind, actor and place
  jsonl   - Line-delimited JSON, one event per line

Time Filters (simulation time, e.g. 90s, 1m30s or 01:30):
  --since  - Show events at or after this time
  --until  - Show events before this time

Content Filters:
  --kind   - Filter by event kind (glob pattern: "Rumor*", "*Given")
  --actor  - Filter by actor id (exact match)
  --place  - Filter by place id (exact match)

Get Mode (--id):
  Displays the single event whose id starts with the given prefix as
  pretty-printed JSON. Prefixes need at least 6 characters.

Examples:
  # Everything in the sample log
  vigil log events/example.jsonl

  # Rumor traffic in the first two minutes
  vigil log events/example.jsonl --kind="Rumor*" --until=2m

  # Verdicts stored in Redis, as JSONL for jq
  vigil log --from=redis --kind=VerdictGiven --output=jsonl | jq .note

  # One event by short id
  vigil log events/example.jsonl --id=3f2a9c`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logFrom, "from", sourceFile, "Event log source: file, redis or sql")
	logCmd.Flags().StringVarP(&logOutputFormat, "output", "o", "default", "Output format: default or jsonl")

	// Time-based filters
	logCmd.Flags().StringVar(&logSince, "since", "", "Show events at or after this simulation time")
	logCmd.Flags().StringVar(&logUntil, "until", "", "Show events before this simulation time")

	// Content-based filters
	logCmd.Flags().StringVar(&logKind, "kind", "", "Filter by event kind (glob pattern)")
	logCmd.Flags().StringVar(&logActor, "actor", "", "Filter by actor id (exact match)")
	logCmd.Flags().StringVar(&logPlace, "place", "", "Filter by place id (exact match)")
	logCmd.Flags().StringVar(&logID, "id", "", "Show one event by id or id prefix")

	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	outputFormat, err := logview.ParseFormat(logOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", logOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	window, err := timespec.ParseRange(logSince, logUntil)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration like '1m30s', seconds like '90', or a clock time like '01:30'"},
		)
	}

	h, err := loadHostEnv()
	if err != nil {
		return err
	}
	defer func() { _ = h.logger.Sync() }()

	src, label, closeSrc, err := h.openSource(ctx, logFrom, args)
	if err != nil {
		return err
	}
	defer closeSrc()

	if logID != "" {
		return getEvent(ctx, src, label)
	}

	filters := &logview.FilterCriteria{
		Range:    window,
		KindGlob: logKind,
		ActorID:  logActor,
		PlaceID:  logPlace,
	}
	if err := logview.List(ctx, src, label, outputFormat, filters, printer.Stdout); err != nil {
		return printer.ErrorWithContext("failed to list events", err.Error(), map[string]string{"source": label}, nil)
	}
	return nil
}

func getEvent(ctx context.Context, src replay.Source, label string) error {
	err := logview.Get(ctx, src, logID, printer.Stdout)
	switch {
	case err == nil:
		return nil
	case resolver.IsNotFoundError(err):
		return printer.Error(
			fmt.Sprintf("event with ID '%s' not found", logID),
			fmt.Sprintf("No event in '%s' has that id.", label),
			[]string{"List the log to find ids:\n  vigil log --output=jsonl | jq -r .id"},
		)
	case resolver.IsAmbiguousError(err):
		fmt.Fprintln(printer.Stderr, resolver.FormatAmbiguousError(err.(*resolver.AmbiguousError)))
		return fmt.Errorf("ambiguous short ID")
	}
	return printer.ErrorWithContext("failed to get event", err.Error(), map[string]string{"source": label}, nil)
}
