package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

// Response shapes. Domain structs carry internals (provider tokens, audit
// helpers) that must never leak, so every resource has an explicit JSON view.

type userResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	Role          string    `json:"role"`
	CheckinTarget int       `json:"checkin_target"`
	Timezone      string    `json:"timezone"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

func userResponseFrom(u *domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		Role:          string(u.Role),
		CheckinTarget: u.CheckinTarget,
		Timezone:      u.Timezone,
		Active:        u.Active,
		CreatedAt:     u.CreatedAt,
	}
}

func userResponsesFrom(users []domain.User) []userResponse {
	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = userResponseFrom(&users[i])
	}
	return out
}

type cohortResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CoachID     uuid.UUID `json:"coach_id"`
	StartsOn    time.Time `json:"starts_on"`
	EndsOn      time.Time `json:"ends_on"`
	CreatedAt   time.Time `json:"created_at"`
}

func cohortResponseFrom(c *domain.Cohort) cohortResponse {
	return cohortResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CoachID:     c.CoachID,
		StartsOn:    c.StartsOn,
		EndsOn:      c.EndsOn,
		CreatedAt:   c.CreatedAt,
	}
}

type rosterEntryResponse struct {
	UserID        uuid.UUID  `json:"user_id"`
	DisplayName   string     `json:"display_name"`
	Email         string     `json:"email"`
	JoinedAt      time.Time  `json:"joined_at"`
	LastEntryDate *time.Time `json:"last_entry_date,omitempty"`
	Bucket        string     `json:"bucket,omitempty"`
}

type entryResponse struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	EntryDate  string    `json:"entry_date"`
	WeightKg   *float64  `json:"weight_kg,omitempty"`
	Steps      *int      `json:"steps,omitempty"`
	SleepHours *float64  `json:"sleep_hours,omitempty"`
	Energy     *int      `json:"energy,omitempty"`
	Mood       *int      `json:"mood,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const entryDateLayout = "2006-01-02"

func entryResponseFrom(e *domain.Entry) entryResponse {
	return entryResponse{
		ID:         e.ID,
		UserID:     e.UserID,
		EntryDate:  e.EntryDate.Format(entryDateLayout),
		WeightKg:   e.WeightKg,
		Steps:      e.Steps,
		SleepHours: e.SleepHours,
		Energy:     e.Energy,
		Mood:       e.Mood,
		Notes:      e.Notes,
		UpdatedAt:  e.UpdatedAt,
	}
}

type sessionResponse struct {
	ID              uuid.UUID  `json:"id"`
	CoachID         uuid.UUID  `json:"coach_id"`
	CohortID        *uuid.UUID `json:"cohort_id,omitempty"`
	Title           string     `json:"title"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	Capacity        int        `json:"capacity"`
	CalendarEventID string     `json:"calendar_event_id,omitempty"`
}

func sessionResponseFrom(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		CoachID:         s.CoachID,
		CohortID:        s.CohortID,
		Title:           s.Title,
		StartsAt:        s.StartsAt,
		EndsAt:          s.EndsAt,
		Capacity:        s.Capacity,
		CalendarEventID: s.CalendarEventID,
	}
}

type registrationResponse struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Status    string    `json:"status"`
	Position  *int      `json:"position,omitempty"`
}

func registrationResponseFrom(r *domain.Registration) registrationResponse {
	return registrationResponse{
		ID:        r.ID,
		SessionID: r.SessionID,
		UserID:    r.UserID,
		Status:    string(r.Status),
		Position:  r.Position,
	}
}

type planResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Kind            string    `json:"kind"`
	PriceCents      int       `json:"price_cents"`
	Currency        string    `json:"currency"`
	SessionsPerWeek *int      `json:"sessions_per_week,omitempty"`
	SessionCount    *int      `json:"session_count,omitempty"`
	DurationDays    *int      `json:"duration_days,omitempty"`
	Active          bool      `json:"active"`
}

func planResponseFrom(p *domain.Plan) planResponse {
	return planResponse{
		ID:              p.ID,
		Name:            p.Name,
		Kind:            string(p.Kind),
		PriceCents:      p.PriceCents,
		Currency:        p.Currency,
		SessionsPerWeek: p.SessionsPerWeek,
		SessionCount:    p.SessionCount,
		DurationDays:    p.DurationDays,
		Active:          p.Active,
	}
}

type membershipResponse struct {
	ID                uuid.UUID  `json:"id"`
	PlanID            uuid.UUID  `json:"plan_id"`
	PlanName          string     `json:"plan_name"`
	PlanKind          string     `json:"plan_kind"`
	Status            string     `json:"status"`
	RemainingSessions *int       `json:"remaining_sessions,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
}

func membershipResponseFrom(m *domain.MembershipWithPlan) membershipResponse {
	return membershipResponse{
		ID:                m.ID,
		PlanID:            m.PlanID,
		PlanName:          m.PlanName,
		PlanKind:          string(m.PlanKind),
		Status:            string(m.Status),
		RemainingSessions: m.RemainingSessions,
		ExpiresAt:         m.ExpiresAt,
		StartedAt:         m.StartedAt,
		CancelledAt:       m.CancelledAt,
	}
}

type invoiceResponse struct {
	ID                uuid.UUID `json:"id"`
	ProviderInvoiceID string    `json:"provider_invoice_id"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	IssuedAt          time.Time `json:"issued_at"`
}

func invoiceResponseFrom(inv *domain.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:                inv.ID,
		ProviderInvoiceID: inv.ProviderInvoiceID,
		AmountCents:       inv.AmountCents,
		Currency:          inv.Currency,
		Status:            string(inv.Status),
		IssuedAt:          inv.IssuedAt,
	}
}

type scoreResponse struct {
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	Score      int       `json:"score"`
	Bucket     string    `json:"bucket"`
	ComputedAt time.Time `json:"computed_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func scoreResponseFrom(s *domain.AttentionScore) scoreResponse {
	return scoreResponse{
		EntityType: string(s.EntityType),
		EntityID:   s.EntityID,
		Score:      s.Score,
		Bucket:     string(s.Bucket),
		ComputedAt: s.ComputedAt,
		ExpiresAt:  s.ExpiresAt,
	}
}

type questionResponse struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	Kind     string    `json:"kind"`
	Options  []string  `json:"options,omitempty"`
	ScaleMin int       `json:"scale_min,omitempty"`
	ScaleMax int       `json:"scale_max,omitempty"`
	Position int       `json:"position"`
}

type questionnaireResponse struct {
	ID        uuid.UUID          `json:"id"`
	CohortID  uuid.UUID          `json:"cohort_id"`
	Title     string             `json:"title"`
	Active    bool               `json:"active"`
	Questions []questionResponse `json:"questions"`
}

func questionnaireResponseFrom(q *domain.Questionnaire) questionnaireResponse {
	questions := make([]questionResponse, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = questionResponse{
			ID:       question.ID,
			Prompt:   question.Prompt,
			Kind:     string(question.Kind),
			Options:  question.Options,
			ScaleMin: question.ScaleMin,
			ScaleMax: question.ScaleMax,
			Position: question.Position,
		}
	}
	return questionnaireResponse{
		ID:        q.ID,
		CohortID:  q.CohortID,
		Title:     q.Title,
		Active:    q.Active,
		Questions: questions,
	}
}

func questionnaireResponsesFrom(qs []domain.Questionnaire) []questionnaireResponse {
	out := make([]questionnaireResponse, len(qs))
	for i := range qs {
		out[i] = questionnaireResponseFrom(&qs[i])
	}
	return out
}

type answerResponse struct {
	QuestionID uuid.UUID `json:"question_id"`
	Value      string    `json:"value"`
}

type submissionResponse struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	Answers     []answerResponse `json:"answers"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

func submissionResponseFrom(r *domain.Response) submissionResponse {
	answers := make([]answerResponse, len(r.Answers))
	for i, a := range r.Answers {
		answers[i] = answerResponse{QuestionID: a.QuestionID, Value: a.Value}
	}
	return submissionResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		Answers:     answers,
		SubmittedAt: r.SubmittedAt,
	}
}

type auditResponse struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// --- Param helpers ---

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid UUID").WithField(name, c.Param(name))
	}
	return id, nil
}
