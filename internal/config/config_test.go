package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	validConfig := `version: "1.0"
event_log:
  capacity: 128
  dedup_window: 500ms
suspicion:
  report_threshold: 40
reports:
  min_global: 0
boards:
  places:
    - id: Store
      position: [1, 0, 2]
perception:
  excluded_roles: ["player"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(validConfig), 0644))

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 128, config.EventLog.Capacity)
	assert.Equal(t, 500*time.Millisecond, config.EventLog.DedupWindow)
	assert.Equal(t, 40.0, config.Suspicion.ReportThreshold)
	assert.Equal(t, 100.0, config.Suspicion.Max, "unset fields take defaults")
	assert.Equal(t, 0.0, *config.Reports.MinGlobal, "explicit zero disables the gate")
	assert.Equal(t, []string{"player"}, config.Perception.ExcludedRoles)
	require.Len(t, config.Boards.Places, 1)
	assert.Equal(t, [3]float64{1, 0, 2}, config.Boards.Places[0].Position)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/vigil.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	invalidYAML := `version: "1.0"
event_log:
  - this is invalid
    yaml syntax
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Parse([]byte("event_log:\n  dedup_window: soon\n"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParse_EmptyDocumentIsDefault(t *testing.T) {
	config, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "1.0", c.Version)
	assert.Equal(t, 512, c.EventLog.Capacity)
	assert.Equal(t, 250*time.Millisecond, c.EventLog.DedupWindow)
	assert.Equal(t, 60.0, c.Suspicion.ReportThreshold)
	assert.Equal(t, 20*time.Second, c.Suspicion.ReportCooldown)
	assert.Equal(t, 60*time.Second, c.Reports.Window)
	assert.Equal(t, 2, c.Reports.Required)
	assert.Equal(t, 0.1, *c.Reports.MinGlobal)
	assert.Equal(t, 6*time.Second, c.Rumors.Delay)
	assert.Equal(t, 45*time.Second, c.Boards.GossipTTL)
	assert.Equal(t, 90.0, c.Perception.FovAngle)
	assert.Equal(t, []string{"player", "investigator"}, c.Perception.ExcludedRoles)
	assert.Equal(t, 40, c.Casefile.Window)
	assert.NoError(t, c.Validate())
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	config := Default()
	config.Version = "2.0"

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version: 2.0")
}

func TestValidate_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{
			name:   "threshold above max",
			mutate: func(c *Config) { c.Suspicion.ReportThreshold = 150 },
			errMsg: "must not exceed suspicion.max",
		},
		{
			name:   "min global out of range",
			mutate: func(c *Config) { v := 1.5; c.Reports.MinGlobal = &v },
			errMsg: "reports.min_global must be within [0, 1]",
		},
		{
			name:   "social pressure out of range",
			mutate: func(c *Config) { c.Reports.SocialPressure = 2 },
			errMsg: "reports.social_pressure",
		},
		{
			name:   "trust out of range",
			mutate: func(c *Config) { c.Rumors.TrustConfirmed = 1.2 },
			errMsg: "rumors.trust_confirmed",
		},
		{
			name:   "fov angle too wide",
			mutate: func(c *Config) { c.Perception.FovAngle = 400 },
			errMsg: "perception.fov_angle",
		},
		{
			name:   "near radius beyond fov radius",
			mutate: func(c *Config) { c.Perception.NearRadius = 30 },
			errMsg: "must not exceed perception.fov_radius",
		},
		{
			name:   "place without id",
			mutate: func(c *Config) { c.Boards.Places = []PlaceConfig{{}} },
			errMsg: "boards.places[0]: id is required",
		},
		{
			name: "duplicate place",
			mutate: func(c *Config) {
				c.Boards.Places = []PlaceConfig{{ID: "Store"}, {ID: "Store"}}
			},
			errMsg: "duplicate place id 'Store'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestMarshal_RoundTripsThroughParse(t *testing.T) {
	original := Default()
	original.Boards.Places = []PlaceConfig{{ID: "Cafe", Position: [3]float64{4, 0, -1}}}

	data, err := original.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "dedup_window: 250ms")

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}
