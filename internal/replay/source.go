package replay

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/pkg/event"
)

// maxLineSize bounds a single persisted line.
const maxLineSize = 1 << 20

// Source lists persisted event lines in storage order.
type Source interface {
	Lines(ctx context.Context) ([][]byte, error)
}

// FileSource reads a JSON lines file.
type FileSource struct {
	Path string
}

// Lines returns every non-blank line of the file.
func (f FileSource) Lines(ctx context.Context) ([][]byte, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer file.Close()
	return ReadLines(ctx, file)
}

// RedisSource reads the events list an instance's RedisSink appends to.
type RedisSource struct {
	Client   *redis.Client
	Instance string
}

// Lines returns the stored lines, oldest first.
func (r RedisSource) Lines(ctx context.Context) ([][]byte, error) {
	stored, err := r.Client.LRange(ctx, eventlog.EventsKey(r.Instance), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", eventlog.EventsKey(r.Instance), err)
	}
	lines := make([][]byte, 0, len(stored))
	for _, s := range stored {
		lines = append(lines, []byte(s))
	}
	return lines, nil
}

// ReadLines splits r into non-blank lines.
func ReadLines(ctx context.Context, r io.Reader) ([][]byte, error) {
	var lines [][]byte
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return lines, nil
}

// Load decodes every line of src and orders the events by timestamp, then
// sequence number.
func Load(ctx context.Context, src Source) ([]event.Event, error) {
	lines, err := src.Lines(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]event.Event, 0, len(lines))
	for i, line := range lines {
		e, err := event.UnmarshalLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		events = append(events, e)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].At != events[j].At {
			return events[i].At < events[j].At
		}
		return events[i].Seq < events[j].Seq
	})
	return events, nil
}
