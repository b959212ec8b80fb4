package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/metrics"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// AuditService implements domain.AuditService. Writes are best-effort: a
// failed audit insert is logged and counted, never surfaced to the mutation
// that triggered it.
type AuditService struct {
	records domain.AuditRepository
}

var _ domain.AuditService = (*AuditService)(nil)

func NewAuditService(records domain.AuditRepository) *AuditService {
	return &AuditService{records: records}
}

func (s *AuditService) Record(ctx context.Context, actorID uuid.UUID, action, entityType, entityID string, metadata map[string]any) {
	record := &domain.AuditRecord{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	}

	if err := s.records.Insert(ctx, record); err != nil {
		metrics.AuditWritesTotal.WithLabelValues("error").Inc()
		slog.Error("failed to write audit record", "action", action, "entity_type", entityType, "entity_id", entityID, "error", err)
		return
	}
	metrics.AuditWritesTotal.WithLabelValues("ok").Inc()
}

func (s *AuditService) List(ctx context.Context, actor *domain.User, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	if filter.Limit > maxAuditLimit {
		filter.Limit = maxAuditLimit
	}

	records, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, apperrors.InternalError("failed to list audit records", err)
	}
	return records, nil
}
