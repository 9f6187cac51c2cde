package scaffold

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/internal/replay"
	"github.com/dyluth/vigil/pkg/event"
)

func quiet(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldOut, oldNoColor := printer.Stdout, color.NoColor
	printer.Stdout, color.NoColor = &buf, true
	t.Cleanup(func() { printer.Stdout, color.NoColor = oldOut, oldNoColor })
	return &buf
}

func TestInitialize_FreshDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, false))

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, StarterConfig(), cfg)

	events, err := replay.Load(context.Background(), replay.FileSource{Path: filepath.Join(dir, ExampleLog)})
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, event.KindViolationDetected, events[1].Kind)
	assert.Equal(t, "R_QUEUE", events[1].RuleID)
}

func TestInitialize_ForceReplacesExisting(t *testing.T) {
	out := quiet(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(configPath, []byte("version: \"0.1\"\n"), 0644))

	require.NoError(t, Initialize(dir, true))

	_, err := config.Load(configPath)
	assert.NoError(t, err, "stale config was replaced")
	assert.Contains(t, out.String(), "Removing existing vigil.yml")
}

func TestInitialize_WithoutForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, false))
	assert.NoError(t, Initialize(dir, false), "callers gate re-initialization with CheckExisting")
}

func TestCheckExisting(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(dir string)
		wantErr bool
		errMsg  []string
	}{
		{
			name:  "no existing files",
			setup: func(string) {},
		},
		{
			name: "existing vigil.yml only",
			setup: func(dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("version: '1.0'"), 0644))
			},
			wantErr: true,
			errMsg:  []string{"Found existing: vigil.yml", "vigil init --force"},
		},
		{
			name: "both files exist",
			setup: func(dir string) {
				require.NoError(t, Initialize(dir, false))
			},
			wantErr: true,
			errMsg:  []string{"Found existing files:", "  - vigil.yml", "  - " + ExampleLog},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(dir)

			err := CheckExisting(dir)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.errMsg {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestPrintSuccess(t *testing.T) {
	out := quiet(t)
	PrintSuccess()
	assert.Contains(t, out.String(), "Successfully initialized vigil project!")
	assert.Contains(t, out.String(), ExampleLog)
}
