package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntityType names what an attention score is about.
type EntityType string

const (
	EntityClient EntityType = "client"
	EntityCoach  EntityType = "coach"
	EntityCohort EntityType = "cohort"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityClient, EntityCoach, EntityCohort:
		return true
	}
	return false
}

// Bucket is the traffic-light tier derived from a score.
type Bucket string

const (
	BucketGreen Bucket = "green"
	BucketAmber Bucket = "amber"
	BucketRed   Bucket = "red"
)

// BucketFor maps a 0-100 score to its tier: red >= 70, amber >= 40,
// green below.
func BucketFor(score int) Bucket {
	switch {
	case score >= 70:
		return BucketRed
	case score >= 40:
		return BucketAmber
	default:
		return BucketGreen
	}
}

// AttentionScore is a cached heuristic engagement-risk score. The cache is
// advisory: concurrent recomputes may overwrite each other and that is fine.
type AttentionScore struct {
	EntityType EntityType
	EntityID   uuid.UUID
	Score      int
	Bucket     Bucket
	ComputedAt time.Time
	ExpiresAt  time.Time
}

// QueueEntry is one row of the coach-review priority list.
type QueueEntry struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Score       int
	Bucket      Bucket
}

type AttentionRepository interface {
	// Get returns the cached row regardless of freshness; callers check
	// ExpiresAt themselves.
	Get(ctx context.Context, entityType EntityType, entityID uuid.UUID) (*AttentionScore, error)
	// Replace overwrites any existing row for the entity with the new score.
	Replace(ctx context.Context, score *AttentionScore) error
	Invalidate(ctx context.Context, entityType EntityType, entityID uuid.UUID) error
	// PurgeExpired deletes rows past their expiry and returns the count.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
