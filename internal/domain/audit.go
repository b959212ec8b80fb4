package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one append-only audit log row. Metadata is free-form JSON
// describing the mutation.
type AuditRecord struct {
	ID         uuid.UUID
	ActorID    uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// AuditFilter narrows audit listings. Zero values mean no filter.
type AuditFilter struct {
	ActorID    uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Limit      int
}

type AuditRepository interface {
	Insert(ctx context.Context, record *AuditRecord) error
	List(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
}
