package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/metrics"
)

// scoreCacheTTL is how long a computed attention score stays fresh.
const scoreCacheTTL = time.Hour

// purgeInterval throttles the opportunistic purge of expired cache rows that
// piggybacks on recomputes. The hourly sweep job is the real cleaner; this
// keeps single-instance deployments tidy without it.
const purgeInterval = 10 * time.Minute

// AttentionService implements domain.AttentionService: heuristic 0-100
// engagement-risk scores for clients, coaches and cohorts, cached in the
// database for an hour. Concurrent recomputes for the same entity collapse
// into one flight.
type AttentionService struct {
	scores      domain.AttentionRepository
	entries     domain.EntryRepository
	users       domain.UserRepository
	cohorts     domain.CohortRepository
	memberships domain.MembershipRepository
	clock       clockwork.Clock

	group singleflight.Group

	mu        sync.Mutex
	lastPurge time.Time
}

var _ domain.AttentionService = (*AttentionService)(nil)

func NewAttentionService(
	scores domain.AttentionRepository,
	entries domain.EntryRepository,
	users domain.UserRepository,
	cohorts domain.CohortRepository,
	memberships domain.MembershipRepository,
	clock clockwork.Clock,
) *AttentionService {
	return &AttentionService{
		scores:      scores,
		entries:     entries,
		users:       users,
		cohorts:     cohorts,
		memberships: memberships,
		clock:       clock,
	}
}

func (s *AttentionService) Score(ctx context.Context, actor *domain.User, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error) {
	if !entityType.Valid() {
		return nil, apperrors.ValidationError("unknown attention entity type")
	}
	if err := s.authorize(ctx, actor, entityType, entityID); err != nil {
		return nil, err
	}

	score, err := s.cachedOrCompute(ctx, entityType, entityID)
	if err != nil {
		return nil, s.translateScoreError(err)
	}
	return score, nil
}

func (s *AttentionService) Refresh(ctx context.Context, actor *domain.User, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error) {
	if !entityType.Valid() {
		return nil, apperrors.ValidationError("unknown attention entity type")
	}
	if err := s.authorize(ctx, actor, entityType, entityID); err != nil {
		return nil, err
	}

	score, err := s.recompute(ctx, entityType, entityID)
	if err != nil {
		return nil, s.translateScoreError(err)
	}
	return score, nil
}

// Queue lists the actor's clients sorted by score descending, recomputing
// stale entries along the way. Admins see every client.
func (s *AttentionService) Queue(ctx context.Context, actor *domain.User, limit int) ([]domain.QueueEntry, error) {
	if err := requireRole(actor, domain.RoleCoach); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	filter := domain.UserListFilter{Role: domain.RoleClient}
	if actor.Role == domain.RoleCoach {
		filter.CoachID = actor.ID
	}
	clients, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.InternalError("failed to list clients", err)
	}

	queue := make([]domain.QueueEntry, 0, len(clients))
	for _, client := range clients {
		score, err := s.cachedOrCompute(ctx, domain.EntityClient, client.ID)
		if err != nil {
			slog.Warn("failed to score client for queue", "user_id", client.ID, "error", err)
			continue
		}
		queue = append(queue, domain.QueueEntry{
			UserID:      client.ID,
			DisplayName: client.DisplayName,
			Email:       client.Email,
			Score:       score.Score,
			Bucket:      score.Bucket,
		})
	}

	sort.SliceStable(queue, func(i, j int) bool { return queue[i].Score > queue[j].Score })
	if len(queue) > limit {
		queue = queue[:limit]
	}
	return queue, nil
}

func (s *AttentionService) authorize(ctx context.Context, actor *domain.User, entityType domain.EntityType, entityID uuid.UUID) error {
	switch entityType {
	case domain.EntityClient:
		return requireUserAccess(ctx, s.cohorts, actor, entityID)
	case domain.EntityCoach:
		if actor.ID == entityID || actor.Role == domain.RoleAdmin {
			return nil
		}
		return apperrors.ForbiddenError("Forbidden")
	case domain.EntityCohort:
		cohort, err := s.cohorts.GetByID(ctx, entityID)
		if err != nil {
			return translate(err, "Cohort not found")
		}
		return requireCohortAccess(actor, cohort)
	}
	return apperrors.ValidationError("unknown attention entity type")
}

func (s *AttentionService) cachedOrCompute(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error) {
	now := s.clock.Now().UTC()
	cached, err := s.scores.Get(ctx, entityType, entityID)
	if err == nil && cached.ExpiresAt.After(now) {
		metrics.AttentionCacheHits.Inc()
		return cached, nil
	}
	if err != nil && !errors.Is(err, domain.ErrScoreNotFound) {
		return nil, err
	}

	metrics.AttentionCacheMisses.Inc()
	return s.recompute(ctx, entityType, entityID)
}

// recompute runs the scoring heuristic and replaces the cached row. Callers
// racing on the same entity share one flight.
func (s *AttentionService) recompute(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error) {
	key := string(entityType) + ":" + entityID.String()
	result, err, _ := s.group.Do(key, func() (any, error) {
		start := s.clock.Now()

		points, err := s.computePoints(ctx, entityType, entityID)
		if err != nil {
			return nil, err
		}
		if points > 100 {
			points = 100
		}

		now := s.clock.Now().UTC()
		score := &domain.AttentionScore{
			EntityType: entityType,
			EntityID:   entityID,
			Score:      points,
			Bucket:     domain.BucketFor(points),
			ComputedAt: now,
			ExpiresAt:  now.Add(scoreCacheTTL),
		}
		if err := s.scores.Replace(ctx, score); err != nil {
			return nil, fmt.Errorf("failed to store attention score: %w", err)
		}

		metrics.AttentionRecomputeDuration.WithLabelValues(string(entityType)).Observe(s.clock.Since(start).Seconds())
		s.maybePurge(ctx, now)
		return score, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.AttentionScore), nil
}

func (s *AttentionService) computePoints(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (int, error) {
	switch entityType {
	case domain.EntityClient:
		return s.clientPoints(ctx, entityID)
	case domain.EntityCoach:
		return s.coachPoints(ctx, entityID)
	case domain.EntityCohort:
		return s.cohortPoints(ctx, entityID)
	}
	return 0, fmt.Errorf("unknown entity type %q", entityType)
}

// clientPoints scores a client's engagement risk from check-in recency,
// two-week volume against their weekly target, the current week's deficit
// and membership health.
func (s *AttentionService) clientPoints(ctx context.Context, userID uuid.UUID) (int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now().UTC()
	today := midnightUTC(now)
	points := 0

	last, err := s.entries.LastEntryDate(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load last entry date: %w", err)
	}
	daysSince := domain.BackfillDays + 1
	if last != nil {
		daysSince = int(today.Sub(midnightUTC(*last)).Hours() / 24)
	}
	switch {
	case daysSince >= 7:
		points += 40
	case daysSince >= 4:
		points += 25
	case daysSince >= 2:
		points += 10
	}

	target := user.CheckinTarget
	if target < 1 {
		target = domain.DefaultCheckinTarget
	}

	count14, err := s.entries.CountSince(ctx, userID, today.AddDate(0, 0, -14))
	if err != nil {
		return 0, fmt.Errorf("failed to count recent entries: %w", err)
	}
	expected14 := 2 * target
	switch {
	case count14 == 0:
		points += 30
	case count14 < expected14/2:
		points += 15
	}

	countWeek, err := s.entries.CountSince(ctx, userID, startOfISOWeek(today))
	if err != nil {
		return 0, fmt.Errorf("failed to count weekly entries: %w", err)
	}
	// Pro-rate the weekly target by how far into the week we are, so Monday
	// mornings do not flag everyone.
	elapsedDays := int(today.Sub(startOfISOWeek(today)).Hours()/24) + 1
	expectedSoFar := target * elapsedDays / 7
	if missed := expectedSoFar - countWeek; missed > 0 {
		deficit := missed * 5
		if deficit > 20 {
			deficit = 20
		}
		points += deficit
	}

	memberships, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list memberships: %w", err)
	}
	hasActive, hasPastDue := false, false
	for _, m := range memberships {
		switch m.Status {
		case domain.MembershipActive:
			hasActive = true
		case domain.MembershipPastDue:
			hasPastDue = true
		}
	}
	switch {
	case hasPastDue:
		points += 10
	case !hasActive:
		points += 5
	}

	return points, nil
}

// coachPoints scores a coach by how much of their client roster is red and
// how large that roster is.
func (s *AttentionService) coachPoints(ctx context.Context, coachID uuid.UUID) (int, error) {
	clients, err := s.users.List(ctx, domain.UserListFilter{Role: domain.RoleClient, CoachID: coachID})
	if err != nil {
		return 0, fmt.Errorf("failed to list coach clients: %w", err)
	}
	if len(clients) == 0 {
		return 0, nil
	}

	red := 0
	for _, client := range clients {
		score, err := s.clientScoreForAggregate(ctx, client.ID)
		if err != nil {
			slog.Warn("failed to score client for coach aggregate", "user_id", client.ID, "error", err)
			continue
		}
		if score.Bucket == domain.BucketRed {
			red++
		}
	}

	points := 0
	switch frac := float64(red) / float64(len(clients)); {
	case frac >= 0.5:
		points += 50
	case frac >= 0.25:
		points += 30
	case frac >= 0.1:
		points += 15
	}

	switch load := len(clients); {
	case load > 30:
		points += 20
	case load > 20:
		points += 10
	}
	return points, nil
}

// cohortPoints scores a cohort from its members' average score, collective
// silence and how new the cohort is.
func (s *AttentionService) cohortPoints(ctx context.Context, cohortID uuid.UUID) (int, error) {
	cohort, err := s.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return 0, err
	}
	memberIDs, err := s.cohorts.MemberIDs(ctx, cohortID)
	if err != nil {
		return 0, fmt.Errorf("failed to list cohort members: %w", err)
	}

	now := s.clock.Now().UTC()
	points := 0

	if len(memberIDs) > 0 {
		total, scored := 0, 0
		for _, memberID := range memberIDs {
			score, err := s.clientScoreForAggregate(ctx, memberID)
			if err != nil {
				slog.Warn("failed to score member for cohort aggregate", "user_id", memberID, "error", err)
				continue
			}
			total += score.Score
			scored++
		}
		if scored > 0 {
			switch avg := total / scored; {
			case avg >= 60:
				points += 50
			case avg >= 40:
				points += 25
			}
		}

		lastDates, err := s.entries.LastEntryDates(ctx, memberIDs)
		if err != nil {
			return 0, fmt.Errorf("failed to load member entry dates: %w", err)
		}
		newest := time.Time{}
		for _, d := range lastDates {
			if d.After(newest) {
				newest = d
			}
		}
		if newest.Before(now.AddDate(0, 0, -3)) {
			points += 20
		}
	}

	if now.Before(cohort.StartsOn.AddDate(0, 0, 14)) && !now.Before(cohort.StartsOn) {
		points += 10
	}
	return points, nil
}

// clientScoreForAggregate reads the cached client score without recomputing
// on freshness alone, falling back to a recompute only when nothing is
// cached. Aggregates tolerate slightly stale inputs; recomputing every
// member on every cohort read would stampede the entries table.
func (s *AttentionService) clientScoreForAggregate(ctx context.Context, userID uuid.UUID) (*domain.AttentionScore, error) {
	cached, err := s.scores.Get(ctx, domain.EntityClient, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrScoreNotFound) {
		return nil, err
	}
	return s.recompute(ctx, domain.EntityClient, userID)
}

// maybePurge deletes expired cache rows at most once per purgeInterval.
func (s *AttentionService) maybePurge(ctx context.Context, now time.Time) {
	s.mu.Lock()
	due := now.Sub(s.lastPurge) >= purgeInterval
	if due {
		s.lastPurge = now
	}
	s.mu.Unlock()
	if !due {
		return
	}

	purged, err := s.scores.PurgeExpired(ctx, now)
	if err != nil {
		slog.Warn("opportunistic attention cache purge failed", "error", err)
		return
	}
	metrics.AttentionRowsPurged.WithLabelValues("opportunistic").Add(float64(purged))
}

func (s *AttentionService) translateScoreError(err error) error {
	return translate(err, "Not found")
}

// startOfISOWeek returns midnight UTC on the Monday of t's week.
func startOfISOWeek(t time.Time) time.Time {
	t = midnightUTC(t)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, 1-weekday)
}
