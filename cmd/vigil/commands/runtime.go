package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/internal/logging"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/internal/replay"
)

// Event log sources accepted by --from.
const (
	sourceFile  = "file"
	sourceRedis = "redis"
	sourceSQL   = "sql"
)

// hostEnv holds what every command builds from the environment.
type hostEnv struct {
	host   config.Host
	logger *zap.Logger
}

func loadHostEnv() (*hostEnv, error) {
	host, err := config.LoadHost()
	if err != nil {
		return nil, printer.Error(
			"invalid environment",
			err.Error(),
			[]string{"Instance names are lowercase alphanumeric with hyphens:\n  export VIGIL_INSTANCE=town-1"},
		)
	}
	logger, err := logging.New(host.LogLevel, host.LogFormat)
	if err != nil {
		return nil, printer.Error(
			"invalid log settings",
			err.Error(),
			[]string{"VIGIL_LOG_LEVEL accepts debug, info, warn or error", "VIGIL_LOG_FORMAT accepts json or console"},
		)
	}
	return &hostEnv{host: host, logger: logger}, nil
}

// loadConfig reads --config. A missing file is only an error when the flag
// was given explicitly; otherwise the defaults apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"config": configPath},
			[]string{"Write a fresh configuration:\n  vigil init --force"},
		)
	}
	return cfg, nil
}

// redisClient connects to VIGIL_REDIS_URL and checks it answers.
func (h *hostEnv) redisClient(ctx context.Context) (*redis.Client, error) {
	if h.host.RedisURL == "" {
		return nil, printer.Error(
			"redis not configured",
			"VIGIL_REDIS_URL is not set.",
			[]string{"Point vigil at the engine's Redis:\n  export VIGIL_REDIS_URL=redis://localhost:6379/0"},
		)
	}
	opts, err := redis.ParseURL(h.host.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", h.host.RedisURL),
			map[string]string{"error": err.Error()},
			[]string{"Check that Redis is running and VIGIL_REDIS_URL is correct"},
		)
	}
	return rdb, nil
}

// openSinks builds the persistence targets configured in the environment.
// It returns a nil sink when none are.
func (h *hostEnv) openSinks(ctx context.Context) (eventlog.Sink, error) {
	var sinks []eventlog.Sink
	fail := func(err error) (eventlog.Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}

	if h.host.LogPath != "" {
		s, err := eventlog.OpenFileSink(h.host.LogPath)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if h.host.RedisURL != "" {
		s, err := eventlog.OpenRedisSink(h.host.RedisURL, h.host.Instance, eventlog.RedisSinkOptions{})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if h.host.SQLDSN != "" {
		s, err := eventlog.OpenSQLSink(ctx, h.host.SQLDriver, h.host.SQLDSN)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return eventlog.NewMultiSink(sinks...), nil
	}
}

// openSource resolves --from and the optional path argument into a source,
// a label for output, and a cleanup function.
func (h *hostEnv) openSource(ctx context.Context, from string, args []string) (replay.Source, string, func(), error) {
	noop := func() {}
	switch from {
	case sourceFile, "":
		if len(args) == 0 {
			return nil, "", noop, printer.Error(
				"event log path required",
				"Reading from a file needs the path of a JSON lines event log.",
				[]string{"Pass the log file:\n  vigil replay events/example.jsonl", "Or read another store:\n  --from=redis or --from=sql"},
			)
		}
		return replay.FileSource{Path: args[0]}, args[0], noop, nil

	case sourceRedis:
		rdb, err := h.redisClient(ctx)
		if err != nil {
			return nil, "", noop, err
		}
		return replay.RedisSource{Client: rdb, Instance: h.host.Instance}, "redis:" + h.host.Instance, func() { _ = rdb.Close() }, nil

	case sourceSQL:
		if h.host.SQLDSN == "" {
			return nil, "", noop, printer.Error(
				"sql store not configured",
				"VIGIL_SQL_DSN is not set.",
				[]string{"Set the database to read:\n  export VIGIL_SQL_DSN=events.db"},
			)
		}
		s, err := eventlog.OpenSQLSink(ctx, h.host.SQLDriver, h.host.SQLDSN)
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to open sql store: %w", err)
		}
		return s, "sql:" + h.host.SQLDriver, func() { _ = s.Close() }, nil
	}

	return nil, "", noop, printer.Error(
		"invalid source",
		fmt.Sprintf("Unknown source: %s", from),
		[]string{"Valid sources: file, redis, sql"},
	)
}
