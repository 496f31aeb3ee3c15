package cachekeys

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key builders for the platform's cache namespace. The formats are a
// wire contract: persisted cache state is shared with other services, so
// they must not change.

// UserSession keys an authenticated session by user ID.
func UserSession(userID string) string { return "user:session:" + userID }

// UserProfile keys a user's profile record.
func UserProfile(userID string) string { return "user:profile:" + userID }

// PropertyData keys a single property's detailed record.
func PropertyData(propertyID string) string { return "property:data:" + propertyID }

// PropertyList keys the list of properties owned by a user.
func PropertyList(userID string) string { return "property:list:" + userID }

// ClaimData keys a claim's full record.
func ClaimData(claimID string) string { return "claim:data:" + claimID }

// ClaimStatus keys a claim's current workflow status.
func ClaimStatus(claimID string) string { return "claim:status:" + claimID }

// AIAnalysis keys the document-analysis result for a claim document.
func AIAnalysis(documentID string) string { return "ai:analysis:" + documentID }

// AIDamage keys the damage-assessment result for a claim image.
func AIDamage(imageID string) string { return "ai:damage:" + imageID }

// AIConsensus keys the multi-model consensus for an analysis run.
func AIConsensus(analysisID string) string { return "ai:consensus:" + analysisID }

// FloodZone keys FEMA flood-zone data by property address.
func FloodZone(address string) string { return "florida:data:flood:" + address }

// HurricaneAlert keys active hurricane alerts by county.
func HurricaneAlert(county string) string { return "florida:hurricane:" + county }

// CountyData keys county reference data by county code.
func CountyData(countyCode string) string { return "florida:county:" + countyCode }

// WeatherData keys current weather conditions by ZIP code.
func WeatherData(zipCode string) string { return "florida:weather:" + zipCode }

// RateLimit keys a fixed-window counter for (identifier, action).
func RateLimit(action, identifier string) string {
	return "rate:" + action + ":" + identifier
}

// Hash derives a stable key segment from structured parameters, for
// callers whose inputs are too long or too irregular to embed directly
// (query strings, full addresses, parameter maps).
func Hash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:16])
}
