package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type QuestionKind string

const (
	QuestionText   QuestionKind = "text"
	QuestionScale  QuestionKind = "scale"
	QuestionChoice QuestionKind = "choice"
)

func (k QuestionKind) Valid() bool {
	switch k {
	case QuestionText, QuestionScale, QuestionChoice:
		return true
	}
	return false
}

// Question is one prompt inside a questionnaire. Options is set for choice
// questions; ScaleMin/ScaleMax bound scale answers.
type Question struct {
	ID       uuid.UUID
	Prompt   string
	Kind     QuestionKind
	Options  []string
	ScaleMin int
	ScaleMax int
	Position int
}

// Questionnaire is an ordered bundle of questions assigned to a cohort.
type Questionnaire struct {
	ID        uuid.UUID
	CohortID  uuid.UUID
	Title     string
	Questions []Question
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Answer holds one response value keyed by question. Scale answers carry the
// numeric value as its decimal string form.
type Answer struct {
	QuestionID uuid.UUID
	Value      string
}

// Response is a user's submission for a questionnaire. One per user per
// bundle; resubmitting overwrites answers and bumps SubmittedAt.
type Response struct {
	ID              uuid.UUID
	QuestionnaireID uuid.UUID
	UserID          uuid.UUID
	Answers         []Answer
	SubmittedAt     time.Time
}

// CompletionStats summarizes how much of a cohort answered a bundle.
type CompletionStats struct {
	MemberCount   int
	ResponseCount int
}

type QuestionnaireRepository interface {
	Create(ctx context.Context, q *Questionnaire) error
	GetByID(ctx context.Context, questionnaireID uuid.UUID) (*Questionnaire, error)
	ListByCohort(ctx context.Context, cohortID uuid.UUID, activeOnly bool) ([]Questionnaire, error)
	Update(ctx context.Context, q *Questionnaire) error
	Delete(ctx context.Context, questionnaireID uuid.UUID) error

	// UpsertResponse overwrites any previous submission by the same user.
	UpsertResponse(ctx context.Context, response *Response) (*Response, error)
	GetResponse(ctx context.Context, questionnaireID, userID uuid.UUID) (*Response, error)
	ListResponses(ctx context.Context, questionnaireID uuid.UUID) ([]Response, error)
	CompletionStats(ctx context.Context, questionnaireID uuid.UUID) (*CompletionStats, error)
}
