package sim

import (
	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/perception"
	"github.com/dyluth/vigil/internal/report"
	"github.com/dyluth/vigil/internal/rumor"
	"github.com/dyluth/vigil/internal/suspicion"
	"github.com/dyluth/vigil/pkg/blackboard"
	"github.com/dyluth/vigil/pkg/event"
)

func suspicionTuning(c *config.Config) suspicion.Config {
	return suspicion.Config{
		Max:             c.Suspicion.Max,
		DecayPerSecond:  c.Suspicion.DecayPerSecond,
		ReportThreshold: c.Suspicion.ReportThreshold,
		ReportCooldown:  c.Suspicion.ReportCooldown,
	}
}

func reportTuning(c *config.Config) report.Config {
	cfg := report.Config{
		Window:         c.Reports.Window,
		Required:       c.Reports.Required,
		SocialPressure: c.Reports.SocialPressure,
		MinGlobal:      -1,
		Cooldown:       c.Reports.Cooldown,
		AttachmentCap:  c.Reports.AttachmentCap,
	}
	if c.Reports.MinGlobal != nil {
		cfg.MinGlobal = *c.Reports.MinGlobal
	}
	return cfg
}

func rumorTuning(c *config.Config) rumor.Config {
	return rumor.Config{
		Delay:          c.Rumors.Delay,
		Cooldown:       c.Rumors.Cooldown,
		TalkDistance:   c.Rumors.TalkDistance,
		ConfirmWindow:  c.Rumors.ConfirmWindow,
		TrustShared:    c.Rumors.TrustShared,
		TrustConfirmed: c.Rumors.TrustConfirmed,
		TrustDebunked:  c.Rumors.TrustDebunked,
	}
}

func boardOptions(c *config.Config) blackboard.Options {
	return blackboard.Options{
		Capacity: c.Boards.Capacity,
		TTL: blackboard.TTL{
			Evidence:  c.Boards.EvidenceTTL,
			Procedure: c.Boards.ProcedureTTL,
			Gossip:    c.Boards.GossipTTL,
			Default:   c.Boards.DefaultTTL,
		},
	}
}

func perceptionTuning(c *config.Config) perception.Config {
	p := c.Perception
	return perception.Config{
		Interval:         p.Interval,
		NearRadius:       p.NearRadius,
		FovRadius:        p.FovRadius,
		FovAngle:         p.FovAngle,
		NoiseRadius:      p.NoiseRadius,
		NoiseMinSeverity: p.NoiseMinSeverity,
		NearCap:          p.NearCap,
		FovCap:           p.FovCap,
		NoiseCap:         p.NoiseCap,
		ExcludedRoles:    p.ExcludedRoles,
		Context: perception.ContextConfig{
			MemoryCapacity:      p.MemoryCapacity,
			TopicCooldown:       p.TopicCooldown,
			FastTopicCooldown:   p.FastTopicCooldown,
			SevereTopicCooldown: p.SevereTopicCooldown,
			ActorCooldown:       p.ActorCooldown,
			BaseDelta:           p.BaseDelta,
			SeenRetention:       boardOptions(c).TTL.Longest(),
		},
	}
}

func vec(p [3]float64) event.Vec3 {
	return event.Vec3{X: p[0], Y: p[1], Z: p[2]}
}
