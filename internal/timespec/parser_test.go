package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		spec    string
		want    time.Duration
		wantErr bool
	}{
		{spec: "90s", want: 90 * time.Second},
		{spec: "1m30s", want: 90 * time.Second},
		{spec: "250ms", want: 250 * time.Millisecond},
		{spec: "90", want: 90 * time.Second},
		{spec: "12.5", want: 12500 * time.Millisecond},
		{spec: "01:30", want: 90 * time.Second},
		{spec: "1:00:05", want: time.Hour + 5*time.Second},
		{spec: " 2s ", want: 2 * time.Second},
		{spec: "", wantErr: true},
		{spec: "-5s", wantErr: true},
		{spec: "-3", wantErr: true},
		{spec: "1:75", wantErr: true},
		{spec: "yesterday", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.spec, func(t *testing.T) {
			got, err := Parse(tc.spec)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("10s", "1m")
	require.NoError(t, err)
	assert.False(t, r.Contains(9*time.Second))
	assert.True(t, r.Contains(10*time.Second))
	assert.True(t, r.Contains(59*time.Second))
	assert.False(t, r.Contains(time.Minute))

	open, err := ParseRange("", "")
	require.NoError(t, err)
	assert.True(t, open.Contains(0))
	assert.True(t, open.Contains(time.Hour))

	_, err = ParseRange("1m", "10s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since must be before --until")

	_, err = ParseRange("bogus", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --since")
}
