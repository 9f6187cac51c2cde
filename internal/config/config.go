package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the conventional name of the engine configuration file.
const FileName = "vigil.yml"

// Config represents the top-level vigil.yml configuration.
//
// Durations are written as Go duration strings ("250ms", "20s").
type Config struct {
	Version    string           `yaml:"version"`
	EventLog   EventLogConfig   `yaml:"event_log"`
	Suspicion  SuspicionConfig  `yaml:"suspicion"`
	Reports    ReportsConfig    `yaml:"reports"`
	Rumors     RumorsConfig     `yaml:"rumors"`
	Boards     BoardsConfig     `yaml:"boards"`
	Perception PerceptionConfig `yaml:"perception"`
	Casefile   CasefileConfig   `yaml:"casefile"`
}

// EventLogConfig tunes the in-memory event window.
type EventLogConfig struct {
	Capacity    int           `yaml:"capacity"`
	DedupWindow time.Duration `yaml:"dedup_window"`
}

// SuspicionConfig tunes the per-actor suspicion scores.
type SuspicionConfig struct {
	Max             float64       `yaml:"max"`
	DecayPerSecond  float64       `yaml:"decay_per_second"`
	ReportThreshold float64       `yaml:"report_threshold"`
	ReportCooldown  time.Duration `yaml:"report_cooldown"`
}

// ReportsConfig tunes report collection and the interrogation trigger.
type ReportsConfig struct {
	Window         time.Duration `yaml:"window"`
	Required       int           `yaml:"required"`
	SocialPressure float64       `yaml:"social_pressure"`
	MinGlobal      *float64      `yaml:"min_global,omitempty"` // nil = default, 0 disables the gate
	Cooldown       time.Duration `yaml:"cooldown"`
	AttachmentCap  int           `yaml:"attachment_cap"`
}

// RumorsConfig tunes rumor timing and trust.
type RumorsConfig struct {
	Delay          time.Duration `yaml:"delay"`
	Cooldown       time.Duration `yaml:"cooldown"`
	TalkDistance   float64       `yaml:"talk_distance"`
	ConfirmWindow  time.Duration `yaml:"confirm_window"`
	TrustShared    float64       `yaml:"trust_shared"`
	TrustConfirmed float64       `yaml:"trust_confirmed"`
	TrustDebunked  float64       `yaml:"trust_debunked"`
}

// BoardsConfig tunes the place blackboards.
type BoardsConfig struct {
	Capacity     int           `yaml:"capacity"`
	EvidenceTTL  time.Duration `yaml:"evidence_ttl"`
	ProcedureTTL time.Duration `yaml:"procedure_ttl"`
	GossipTTL    time.Duration `yaml:"gossip_ttl"`
	DefaultTTL   time.Duration `yaml:"default_ttl"`
	Places       []PlaceConfig `yaml:"places,omitempty"`
}

// PlaceConfig declares a board created when the engine starts.
type PlaceConfig struct {
	ID       string     `yaml:"id"`
	Position [3]float64 `yaml:"position"`
}

// PerceptionConfig tunes the periodic perception scan.
type PerceptionConfig struct {
	Interval         time.Duration `yaml:"interval"`
	NearRadius       float64       `yaml:"near_radius"`
	FovRadius        float64       `yaml:"fov_radius"`
	FovAngle         float64       `yaml:"fov_angle"`
	NoiseRadius      float64       `yaml:"noise_radius"`
	NoiseMinSeverity int           `yaml:"noise_min_severity"`
	NearCap          int           `yaml:"near_cap"`
	FovCap           int           `yaml:"fov_cap"`
	NoiseCap         int           `yaml:"noise_cap"`
	ExcludedRoles    []string      `yaml:"excluded_roles,omitempty"`

	MemoryCapacity      int           `yaml:"memory_capacity"`
	TopicCooldown       time.Duration `yaml:"topic_cooldown"`
	FastTopicCooldown   time.Duration `yaml:"fast_topic_cooldown"`
	SevereTopicCooldown time.Duration `yaml:"severe_topic_cooldown"`
	ActorCooldown       time.Duration `yaml:"actor_cooldown"`
	BaseDelta           float64       `yaml:"base_delta"`
}

// CasefileConfig tunes case bundling.
type CasefileConfig struct {
	Window int `yaml:"window"`
}

// Default returns a fully populated configuration with the stock tuning.
func Default() *Config {
	c := &Config{Version: "1.0"}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}

	setInt(&c.EventLog.Capacity, 512)
	setDuration(&c.EventLog.DedupWindow, 250*time.Millisecond)

	setFloat(&c.Suspicion.Max, 100)
	setFloat(&c.Suspicion.DecayPerSecond, 1)
	setFloat(&c.Suspicion.ReportThreshold, 60)
	setDuration(&c.Suspicion.ReportCooldown, 20*time.Second)

	setDuration(&c.Reports.Window, 60*time.Second)
	setInt(&c.Reports.Required, 2)
	setFloat(&c.Reports.SocialPressure, 0.6)
	if c.Reports.MinGlobal == nil {
		minGlobal := 0.1
		c.Reports.MinGlobal = &minGlobal
	}
	setDuration(&c.Reports.Cooldown, 30*time.Second)
	setInt(&c.Reports.AttachmentCap, 8)

	setDuration(&c.Rumors.Delay, 6*time.Second)
	setDuration(&c.Rumors.Cooldown, 10*time.Second)
	setFloat(&c.Rumors.TalkDistance, 4)
	setDuration(&c.Rumors.ConfirmWindow, 180*time.Second)
	setFloat(&c.Rumors.TrustShared, 0.45)
	setFloat(&c.Rumors.TrustConfirmed, 0.9)
	setFloat(&c.Rumors.TrustDebunked, 0.1)

	setInt(&c.Boards.Capacity, 32)
	setDuration(&c.Boards.EvidenceTTL, 180*time.Second)
	setDuration(&c.Boards.ProcedureTTL, 180*time.Second)
	setDuration(&c.Boards.GossipTTL, 45*time.Second)
	setDuration(&c.Boards.DefaultTTL, 60*time.Second)

	p := &c.Perception
	setDuration(&p.Interval, 500*time.Millisecond)
	setFloat(&p.NearRadius, 3)
	setFloat(&p.FovRadius, 12)
	setFloat(&p.FovAngle, 90)
	setFloat(&p.NoiseRadius, 20)
	setInt(&p.NoiseMinSeverity, 2)
	setInt(&p.NearCap, 3)
	setInt(&p.FovCap, 5)
	setInt(&p.NoiseCap, 1)
	if p.ExcludedRoles == nil {
		p.ExcludedRoles = []string{"player", "investigator"}
	}
	setInt(&p.MemoryCapacity, 5)
	setDuration(&p.TopicCooldown, 20*time.Second)
	setDuration(&p.FastTopicCooldown, 8*time.Second)
	setDuration(&p.SevereTopicCooldown, 15*time.Second)
	setDuration(&p.ActorCooldown, 6*time.Second)
	setFloat(&p.BaseDelta, 4)

	setInt(&c.Casefile.Window, 40)
}

// Validate performs strict validation on the configuration.
// It expects ApplyDefaults to have run.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.EventLog.Capacity < 1 {
		return fmt.Errorf("event_log.capacity must be >= 1, got %d", c.EventLog.Capacity)
	}

	if c.Suspicion.ReportThreshold > c.Suspicion.Max {
		return fmt.Errorf("suspicion.report_threshold (%g) must not exceed suspicion.max (%g)",
			c.Suspicion.ReportThreshold, c.Suspicion.Max)
	}

	if *c.Reports.MinGlobal < 0 || *c.Reports.MinGlobal > 1 {
		return fmt.Errorf("reports.min_global must be within [0, 1], got %g", *c.Reports.MinGlobal)
	}
	if c.Reports.SocialPressure > 1 {
		return fmt.Errorf("reports.social_pressure must be within (0, 1], got %g", c.Reports.SocialPressure)
	}

	for name, trust := range map[string]float64{
		"trust_shared":    c.Rumors.TrustShared,
		"trust_confirmed": c.Rumors.TrustConfirmed,
		"trust_debunked":  c.Rumors.TrustDebunked,
	} {
		if trust > 1 {
			return fmt.Errorf("rumors.%s must be within (0, 1], got %g", name, trust)
		}
	}

	if c.Perception.FovAngle > 360 {
		return fmt.Errorf("perception.fov_angle must be <= 360, got %g", c.Perception.FovAngle)
	}
	if c.Perception.NearRadius > c.Perception.FovRadius {
		return fmt.Errorf("perception.near_radius (%g) must not exceed perception.fov_radius (%g)",
			c.Perception.NearRadius, c.Perception.FovRadius)
	}

	seen := make(map[string]bool, len(c.Boards.Places))
	for i, place := range c.Boards.Places {
		if place.ID == "" {
			return fmt.Errorf("boards.places[%d]: id is required", i)
		}
		if seen[place.ID] {
			return fmt.Errorf("duplicate place id '%s' in boards.places", place.ID)
		}
		seen[place.ID] = true
	}

	return nil
}

// Load reads, defaults and validates vigil.yml from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to render YAML: %w", err)
	}
	return data, nil
}

func setInt(v *int, d int) {
	if *v <= 0 {
		*v = d
	}
}

func setFloat(v *float64, d float64) {
	if *v <= 0 {
		*v = d
	}
}

func setDuration(v *time.Duration, d time.Duration) {
	if *v <= 0 {
		*v = d
	}
}
