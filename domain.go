package cachekit

import (
	"context"

	"github.com/claimguard/cachekit/pkg/cachekeys"
)

// Domain accessors pair each resource class with its key builder, TTL,
// and invalidation tags from the policy table. Read methods report
// (found, error) like Get; write methods accept any JSON-serializable
// value so callers keep their own model types.

func (s *Service) setClass(ctx context.Context, key string, v any, class cachekeys.Class) error {
	return s.SetTagged(ctx, key, v, s.policy.TTL(class), s.policy.Tags(class)...)
}

// UserSession reads a cached session for the user.
func (s *Service) UserSession(ctx context.Context, userID string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.UserSession(userID), dest)
}

// CacheUserSession stores a session under the session TTL.
func (s *Service) CacheUserSession(ctx context.Context, userID string, v any) error {
	return s.setClass(ctx, cachekeys.UserSession(userID), v, cachekeys.ClassUserSession)
}

// UserProfile reads a cached profile for the user.
func (s *Service) UserProfile(ctx context.Context, userID string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.UserProfile(userID), dest)
}

// CacheUserProfile stores a user profile.
func (s *Service) CacheUserProfile(ctx context.Context, userID string, v any) error {
	return s.setClass(ctx, cachekeys.UserProfile(userID), v, cachekeys.ClassUserProfile)
}

// Property reads cached property details.
func (s *Service) Property(ctx context.Context, propertyID string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.PropertyData(propertyID), dest)
}

// CacheProperty stores property details.
func (s *Service) CacheProperty(ctx context.Context, propertyID string, v any) error {
	return s.setClass(ctx, cachekeys.PropertyData(propertyID), v, cachekeys.ClassPropertyDetailed)
}

// PropertyList reads a user's cached property listing.
func (s *Service) PropertyList(ctx context.Context, userID string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.PropertyList(userID), dest)
}

// CachePropertyList stores a user's property listing. Listings change
// less often than details, so they carry the longer basic-data TTL.
func (s *Service) CachePropertyList(ctx context.Context, userID string, v any) error {
	return s.setClass(ctx, cachekeys.PropertyList(userID), v, cachekeys.ClassPropertyBasic)
}

// Claim reads a cached claim.
func (s *Service) Claim(ctx context.Context, claimID string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.ClaimData(claimID), dest)
}

// CacheClaim stores a claim.
func (s *Service) CacheClaim(ctx context.Context, claimID string, v any) error {
	return s.setClass(ctx, cachekeys.ClaimData(claimID), v, cachekeys.ClassClaimAnalysis)
}

// ClaimStatus reads a cached claim status. Status moves through the
// adjuster pipeline quickly, hence the short TTL on the write side.
func (s *Service) ClaimStatus(ctx context.Context, claimID string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.ClaimStatus(claimID), dest)
}

// CacheClaimStatus stores a claim status.
func (s *Service) CacheClaimStatus(ctx context.Context, claimID string, v any) error {
	return s.setClass(ctx, cachekeys.ClaimStatus(claimID), v, cachekeys.ClassClaimStatus)
}

// AIAnalysis reads a cached document analysis.
func (s *Service) AIAnalysis(ctx context.Context, documentID string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.AIAnalysis(documentID), dest)
}

// CacheAIAnalysis stores a document analysis result. AI results are
// expensive to recompute, so they get generous TTLs.
func (s *Service) CacheAIAnalysis(ctx context.Context, documentID string, v any) error {
	return s.setClass(ctx, cachekeys.AIAnalysis(documentID), v, cachekeys.ClassAIDocumentAnalysis)
}

// AIDamage reads a cached damage assessment.
func (s *Service) AIDamage(ctx context.Context, imageID string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.AIDamage(imageID), dest)
}

// CacheAIDamage stores a damage assessment.
func (s *Service) CacheAIDamage(ctx context.Context, imageID string, v any) error {
	return s.setClass(ctx, cachekeys.AIDamage(imageID), v, cachekeys.ClassAIDamageAssessment)
}

// AIConsensus reads a cached multi-model consensus result.
func (s *Service) AIConsensus(ctx context.Context, analysisID string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.AIConsensus(analysisID), dest)
}

// CacheAIConsensus stores a consensus result.
func (s *Service) CacheAIConsensus(ctx context.Context, analysisID string, v any) error {
	return s.setClass(ctx, cachekeys.AIConsensus(analysisID), v, cachekeys.ClassAIConsensusResult)
}

// FloodZone reads cached flood-zone data for an address.
func (s *Service) FloodZone(ctx context.Context, address string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.FloodZone(address), dest)
}

// CacheFloodZone stores flood-zone data. FEMA designations change
// rarely; the TTL is a week.
func (s *Service) CacheFloodZone(ctx context.Context, address string, v any) error {
	return s.setClass(ctx, cachekeys.FloodZone(address), v, cachekeys.ClassFloodZones)
}

// HurricaneAlert reads the cached hurricane alert for a county.
func (s *Service) HurricaneAlert(ctx context.Context, county string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.HurricaneAlert(county), dest)
}

// CacheHurricaneAlert stores a hurricane alert. Alerts must stay fresh
// during an active storm; the TTL is minutes, not hours.
func (s *Service) CacheHurricaneAlert(ctx context.Context, county string, v any) error {
	return s.setClass(ctx, cachekeys.HurricaneAlert(county), v, cachekeys.ClassHurricaneAlerts)
}

// County reads cached county reference data.
func (s *Service) County(ctx context.Context, countyCode string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.CountyData(countyCode), dest)
}

// CacheCounty stores county reference data.
func (s *Service) CacheCounty(ctx context.Context, countyCode string, v any) error {
	return s.setClass(ctx, cachekeys.CountyData(countyCode), v, cachekeys.ClassCountyData)
}

// Weather reads cached weather data for a ZIP code.
func (s *Service) Weather(ctx context.Context, zipCode string, dest any) (bool, error) {
	return s.Get(ctx, cachekeys.WeatherData(zipCode), dest)
}

// CacheWeather stores weather data.
func (s *Service) CacheWeather(ctx context.Context, zipCode string, v any) error {
	return s.setClass(ctx, cachekeys.WeatherData(zipCode), v, cachekeys.ClassWeatherData)
}

// InvalidateUser removes everything cached for a user: session,
// profile, and their property listing. Returns how many entries were
// removed.
func (s *Service) InvalidateUser(ctx context.Context, userID string) (int, error) {
	n, err := s.InvalidateByPattern(ctx, "user:*:"+userID)
	if err != nil {
		return n, err
	}
	if err := s.Delete(ctx, cachekeys.PropertyList(userID)); err != nil {
		return n, err
	}
	return n, nil
}

// InvalidateClaim removes every cached view of a claim.
func (s *Service) InvalidateClaim(ctx context.Context, claimID string) (int, error) {
	return s.InvalidateByPattern(ctx, "claim:*:"+claimID)
}

// InvalidateProperty removes a property's cached details.
func (s *Service) InvalidateProperty(ctx context.Context, propertyID string) error {
	return s.Delete(ctx, cachekeys.PropertyData(propertyID))
}
