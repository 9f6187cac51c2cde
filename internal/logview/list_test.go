package logview

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/vigil/internal/replay"
	"github.com/dyluth/vigil/internal/timespec"
	"github.com/dyluth/vigil/pkg/event"
)

func fixture(t *testing.T) replay.FileSource {
	t.Helper()
	events := []event.Event{
		{ID: "e3", Seq: 3, At: 30 * time.Second, Kind: event.KindReportFiled, ActorID: "npc-1", PlaceID: "Store", Topic: "R_QUEUE"},
		{ID: "e1", Seq: 1, At: 5 * time.Second, Kind: event.KindViolationDetected, ActorID: "player", PlaceID: "Store", Topic: "R_QUEUE"},
		{ID: "e2", Seq: 2, At: 10 * time.Second, Kind: event.KindRumorShared, ActorID: "npc-2", PlaceID: "Cafe", Topic: "R_QUEUE"},
		{ID: "e4", Seq: 4, At: 60 * time.Second, Kind: event.KindRumorConfirmed, ActorID: "cam", PlaceID: "Store", Topic: "R_QUEUE"},
	}
	var b strings.Builder
	for _, e := range events {
		line, err := event.MarshalLine(e)
		require.NoError(t, err)
		b.Write(line)
		b.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return replay.FileSource{Path: path}
}

func ids(t *testing.T, jsonl string) []string {
	t.Helper()
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(jsonl), "\n") {
		if line == "" {
			continue
		}
		e, err := event.UnmarshalLine([]byte(line))
		require.NoError(t, err)
		out = append(out, e.ID)
	}
	return out
}

func TestList(t *testing.T) {
	src := fixture(t)
	ctx := context.Background()

	testCases := []struct {
		name    string
		filters *FilterCriteria
		want    []string
	}{
		{name: "no filters, chronological", want: []string{"e1", "e2", "e3", "e4"}},
		{name: "kind glob", filters: &FilterCriteria{KindGlob: "Rumor*"}, want: []string{"e2", "e4"}},
		{name: "actor", filters: &FilterCriteria{ActorID: "npc-1"}, want: []string{"e3"}},
		{name: "place", filters: &FilterCriteria{PlaceID: "Store"}, want: []string{"e1", "e3", "e4"}},
		{
			name:    "time range",
			filters: &FilterCriteria{Range: timespec.Range{Since: 10 * time.Second, HasSince: true, Until: time.Minute, HasUntil: true}},
			want:    []string{"e2", "e3"},
		},
		{name: "no match", filters: &FilterCriteria{KindGlob: "Verdict*"}, want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, List(ctx, src, "events.jsonl", OutputFormatJSONL, tc.filters, &buf))
			assert.Equal(t, tc.want, ids(t, buf.String()))
		})
	}
}

func TestList_TableOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, List(context.Background(), fixture(t), "events.jsonl", OutputFormatDefault, nil, &buf))
	assert.Contains(t, buf.String(), "4 events found")
}

func TestList_InvalidGlob(t *testing.T) {
	var buf bytes.Buffer
	err := List(context.Background(), fixture(t), "x", OutputFormatJSONL, &FilterCriteria{KindGlob: "["}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --kind pattern")
}

func TestList_MissingSource(t *testing.T) {
	var buf bytes.Buffer
	err := List(context.Background(), replay.FileSource{Path: "/nonexistent.jsonl"}, "x", OutputFormatJSONL, nil, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load events")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatDefault, f)

	f, err = ParseFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSONL, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}
