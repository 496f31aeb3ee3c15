package cachekeys

import (
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"
)

// Class names a logical resource class with a shared TTL and tag policy.
type Class string

const (
	ClassUserSession        Class = "user_session"
	ClassUserProfile        Class = "user_profile"
	ClassPropertyBasic      Class = "property_basic"
	ClassPropertyDetailed   Class = "property_detailed"
	ClassClaimStatus        Class = "claim_status"
	ClassClaimAnalysis      Class = "claim_analysis"
	ClassAIDocumentAnalysis Class = "ai_document_analysis"
	ClassAIDamageAssessment Class = "ai_damage_assessment"
	ClassAIConsensusResult  Class = "ai_consensus_result"
	ClassHurricaneAlerts    Class = "hurricane_alerts"
	ClassFloodZones         Class = "flood_zones"
	ClassCountyData         Class = "county_data"
	ClassWeatherData        Class = "weather_data"
	ClassRateLimitWindow    Class = "rate_limit_window"
	ClassOTP                Class = "otp"
	ClassEmailVerification  Class = "email_verification"
	ClassStaticContent      Class = "static_content"
)

// FallbackTTL is used for unknown classes so a policy lookup never
// produces a non-expiring entry by accident.
const FallbackTTL = time.Hour

// Policy maps resource classes to TTLs and invalidation tags.
// Pure data: it carries no control logic of its own.
type Policy struct {
	ttls map[Class]time.Duration
	tags map[Class][]string
}

// DefaultPolicy returns the platform's default TTL table.
func DefaultPolicy() *Policy {
	return &Policy{
		ttls: map[Class]time.Duration{
			ClassUserSession:        24 * time.Hour,
			ClassUserProfile:        6 * time.Hour,
			ClassPropertyBasic:      2 * time.Hour,
			ClassPropertyDetailed:   time.Hour,
			ClassClaimStatus:        5 * time.Minute,
			ClassClaimAnalysis:      time.Hour,
			ClassAIDocumentAnalysis: 4 * time.Hour,
			ClassAIDamageAssessment: 2 * time.Hour,
			ClassAIConsensusResult:  24 * time.Hour,
			ClassHurricaneAlerts:    5 * time.Minute,
			ClassFloodZones:         7 * 24 * time.Hour,
			ClassCountyData:         24 * time.Hour,
			ClassWeatherData:        10 * time.Minute,
			ClassRateLimitWindow:    time.Hour,
			ClassOTP:                10 * time.Minute,
			ClassEmailVerification:  24 * time.Hour,
			ClassStaticContent:      7 * 24 * time.Hour,
		},
		tags: map[Class][]string{
			ClassUserSession:        {"users"},
			ClassUserProfile:        {"users"},
			ClassPropertyBasic:      {"properties"},
			ClassPropertyDetailed:   {"properties"},
			ClassClaimStatus:        {"claims"},
			ClassClaimAnalysis:      {"claims"},
			ClassAIDocumentAnalysis: {"ai"},
			ClassAIDamageAssessment: {"ai"},
			ClassAIConsensusResult:  {"ai"},
			ClassHurricaneAlerts:    {"florida"},
			ClassFloodZones:         {"florida"},
			ClassCountyData:         {"florida"},
			ClassWeatherData:        {"florida"},
			ClassStaticContent:      {"static"},
		},
	}
}

// TTL returns the configured TTL for a class, or FallbackTTL for an
// unknown class.
func (p *Policy) TTL(c Class) time.Duration {
	if ttl, ok := p.ttls[c]; ok {
		return ttl
	}
	return FallbackTTL
}

// Tags returns the invalidation tags for a class. May be empty.
func (p *Policy) Tags(c Class) []string {
	return p.tags[c]
}

// yamlOverrides is the on-disk override format: class name to TTL in
// seconds.
//
//	ttl_seconds:
//	  claim_status: 120
//	  weather_data: 300
type yamlOverrides struct {
	TTLSeconds map[string]int `yaml:"ttl_seconds"`
}

// ApplyYAML overlays TTL overrides from a YAML document onto the policy.
// Configuration problems are never fatal: unknown classes and
// non-positive TTLs are logged as warnings and the defaults kept.
func (p *Policy) ApplyYAML(r io.Reader, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	var overrides yamlOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return err
	}

	for name, seconds := range overrides.TTLSeconds {
		class := Class(name)
		if _, ok := p.ttls[class]; !ok {
			logger.Warn("ignoring TTL override for unknown cache class",
				slog.String("class", name))
			continue
		}
		if seconds <= 0 {
			logger.Warn("ignoring non-positive TTL override, keeping default",
				slog.String("class", name),
				slog.Int("seconds", seconds))
			continue
		}
		p.ttls[class] = time.Duration(seconds) * time.Second
	}

	return nil
}
