package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Durable keys shared across the service. The history ledger is the only
// writer of the first two; handlers go through its operations.
const (
	KeySearchHistory   = "searchHistory"
	KeyDetailedHistory = "detailedSearchHistory"
	KeyUserProfile     = "userProfile"
	KeyAppSettings     = "appSettings"
)

// Ephemeral per-session keys forming the pending handoff pair.
const (
	KeyUserSymptoms    = "userSymptoms"
	KeySymptomAnalysis = "symptomAnalysis"
)

// Store is a flat string key-value scope. Get reports absent instead of
// failing: a backend error or unreadable value is indistinguishable from "no
// value present", so callers always fall back to an empty default.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// GetJSON decodes the value under key into T. Absent keys and corrupt values
// both yield def; decode failures never propagate past this boundary.
func GetJSON[T any](ctx context.Context, s Store, key string, def T) T {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return def
	}
	return v
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}
