package commands

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/scaffold"
	"github.com/dyluth/vigil/pkg/event"
)

// project initializes a scratch project and returns its config and example
// log paths.
func project(t *testing.T) (cfgPath, logPath string) {
	t.Helper()
	dir := t.TempDir()
	_, _, err := run(t, "init", "--dir", dir)
	require.NoError(t, err)
	return filepath.Join(dir, config.FileName), filepath.Join(dir, scaffold.ExampleLog)
}

func TestInit_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	out, _, err := run(t, "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully initialized vigil project!")

	_, _, err = run(t, "init", "--dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project already initialized")

	_, _, err = run(t, "init", "--dir", dir, "--force")
	assert.NoError(t, err)
}

func TestReplay_Summary(t *testing.T) {
	cfgPath, logPath := project(t)

	out, _, err := run(t, "replay", logPath, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed "+logPath)
	assert.Contains(t, out, "Read:     4")
	assert.Contains(t, out, "Applied:  4")
	assert.Contains(t, out, "Segments: 1")
	assert.Contains(t, out, "No verdicts.")
}

func TestReplay_JSONL(t *testing.T) {
	cfgPath, logPath := project(t)

	out, _, err := run(t, "replay", logPath, "--config", cfgPath, "--output", "jsonl")
	require.NoError(t, err)

	var kinds []event.Kind
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		e, err := event.UnmarshalLine(scanner.Bytes())
		require.NoError(t, err)
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []event.Kind{
		event.KindEnteredZone,
		event.KindViolationDetected,
		event.KindUtterance,
		event.KindEvidenceCaptured,
	}, kinds)
}

func TestReplay_ResimulateWritesLogPath(t *testing.T) {
	cfgPath, logPath := project(t)
	outPath := filepath.Join(t.TempDir(), "resimulated.jsonl")

	t.Setenv("VIGIL_LOG_PATH", outPath)
	_, _, err := runKeepEnv(t, "replay", logPath, "--config", cfgPath, "--resimulate", "--tail", "10s")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"ViolationDetected"`)
	assert.Contains(t, string(data), `"kind":"EvidenceCaptured"`)
}

func TestReplay_Errors(t *testing.T) {
	cfgPath, logPath := project(t)

	testCases := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{name: "no path", args: []string{"replay"}, errMsg: "event log path required"},
		{name: "bad output", args: []string{"replay", logPath, "--output", "xml"}, errMsg: "invalid output format"},
		{name: "bad source", args: []string{"replay", "--from", "s3"}, errMsg: "invalid source"},
		{name: "missing explicit config", args: []string{"replay", logPath, "--config", cfgPath + ".missing"}, errMsg: "invalid configuration"},
		{name: "missing log", args: []string{"replay", logPath + ".missing", "--config", cfgPath}, errMsg: "failed to load event log"},
		{name: "redis not configured", args: []string{"replay", "--from", "redis"}, errMsg: "redis not configured"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, stderr, err := run(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
			assert.Contains(t, stderr, tc.errMsg)
		})
	}
}

func TestLog_FiltersByKind(t *testing.T) {
	_, logPath := project(t)

	out, _, err := run(t, "log", logPath, "--kind", "Violation*")
	require.NoError(t, err)
	assert.Contains(t, out, "ViolationDetected")
	assert.NotContains(t, out, "Utterance")
	assert.Contains(t, out, "1 event found")
}

func TestLog_TimeWindow(t *testing.T) {
	_, logPath := project(t)

	out, _, err := run(t, "log", logPath, "--since", "2s", "--until", "5s", "--output", "jsonl")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2, "violation at 2.5s and utterance at 4s")

	_, _, err = run(t, "log", logPath, "--since", "5s", "--until", "2s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time filter")
}

func TestLog_FromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	_, logPath := project(t)
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		_, err := mr.RPush("vigil:default:events", line)
		require.NoError(t, err)
	}

	t.Setenv("VIGIL_REDIS_URL", "redis://"+mr.Addr())
	out, _, err := runKeepEnv(t, "log", "--from", "redis")
	require.NoError(t, err)
	assert.Contains(t, out, "4 events found")
	assert.Contains(t, out, "ViolationDetected")
}

func TestLog_GetByID(t *testing.T) {
	_, logPath := project(t)

	out, _, err := run(t, "log", logPath, "--id", "example-2")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "ViolationDetected"`)

	_, stderr, err := run(t, "log", logPath, "--id", "example")
	require.Error(t, err)
	assert.Equal(t, "ambiguous short ID", err.Error())
	assert.Contains(t, stderr, "matches 4 events")

	_, _, err = run(t, "log", logPath, "--id", "missing-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
