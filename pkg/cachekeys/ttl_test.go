package cachekeys_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/claimguard/cachekit/pkg/cachekeys"
)

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := cachekeys.DefaultPolicy()

	testCases := []struct {
		class cachekeys.Class
		want  time.Duration
	}{
		{cachekeys.ClassUserSession, 24 * time.Hour},
		{cachekeys.ClassUserProfile, 6 * time.Hour},
		{cachekeys.ClassPropertyBasic, 2 * time.Hour},
		{cachekeys.ClassPropertyDetailed, time.Hour},
		{cachekeys.ClassClaimStatus, 5 * time.Minute},
		{cachekeys.ClassClaimAnalysis, time.Hour},
		{cachekeys.ClassAIDocumentAnalysis, 4 * time.Hour},
		{cachekeys.ClassAIDamageAssessment, 2 * time.Hour},
		{cachekeys.ClassAIConsensusResult, 24 * time.Hour},
		{cachekeys.ClassHurricaneAlerts, 5 * time.Minute},
		{cachekeys.ClassFloodZones, 7 * 24 * time.Hour},
		{cachekeys.ClassCountyData, 24 * time.Hour},
		{cachekeys.ClassWeatherData, 10 * time.Minute},
		{cachekeys.ClassRateLimitWindow, time.Hour},
		{cachekeys.ClassOTP, 10 * time.Minute},
		{cachekeys.ClassEmailVerification, 24 * time.Hour},
		{cachekeys.ClassStaticContent, 7 * 24 * time.Hour},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.want, p.TTL(tc.class), "class %s", tc.class)
	}
}

func TestPolicy_UnknownClassFallsBack(t *testing.T) {
	t.Parallel()

	p := cachekeys.DefaultPolicy()
	require.Equal(t, cachekeys.FallbackTTL, p.TTL("no_such_class"))
	require.Empty(t, p.Tags("no_such_class"))
}

func TestPolicy_ApplyYAML(t *testing.T) {
	t.Parallel()

	t.Run("overrides known classes", func(t *testing.T) {
		t.Parallel()

		p := cachekeys.DefaultPolicy()
		doc := "ttl_seconds:\n  claim_status: 120\n  weather_data: 300\n"
		require.NoError(t, p.ApplyYAML(strings.NewReader(doc), nil))

		require.Equal(t, 2*time.Minute, p.TTL(cachekeys.ClassClaimStatus))
		require.Equal(t, 5*time.Minute, p.TTL(cachekeys.ClassWeatherData))
		// Untouched classes keep their defaults.
		require.Equal(t, 24*time.Hour, p.TTL(cachekeys.ClassUserSession))
	})

	t.Run("invalid values keep defaults", func(t *testing.T) {
		t.Parallel()

		p := cachekeys.DefaultPolicy()
		doc := "ttl_seconds:\n  claim_status: -5\n  bogus_class: 60\n"
		require.NoError(t, p.ApplyYAML(strings.NewReader(doc), nil))

		require.Equal(t, 5*time.Minute, p.TTL(cachekeys.ClassClaimStatus))
	})

	t.Run("malformed YAML returns error", func(t *testing.T) {
		t.Parallel()

		p := cachekeys.DefaultPolicy()
		require.Error(t, p.ApplyYAML(strings.NewReader("{not yaml"), nil))
	})
}
