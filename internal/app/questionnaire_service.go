package app

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

// QuestionnaireService implements domain.QuestionnaireService.
type QuestionnaireService struct {
	questionnaires domain.QuestionnaireRepository
	cohorts        domain.CohortRepository
	clock          clockwork.Clock
}

var _ domain.QuestionnaireService = (*QuestionnaireService)(nil)

func NewQuestionnaireService(questionnaires domain.QuestionnaireRepository, cohorts domain.CohortRepository, clock clockwork.Clock) *QuestionnaireService {
	return &QuestionnaireService{questionnaires: questionnaires, cohorts: cohorts, clock: clock}
}

func (s *QuestionnaireService) CreateQuestionnaire(ctx context.Context, actor *domain.User, q *domain.Questionnaire) (*domain.Questionnaire, error) {
	cohort, err := s.cohorts.GetByID(ctx, q.CohortID)
	if err != nil {
		return nil, translate(err, "Cohort not found")
	}
	if err := requireCohortAccess(actor, cohort); err != nil {
		return nil, err
	}
	if err := validateQuestionnaire(q); err != nil {
		return nil, err
	}
	q.Active = true

	if err := s.questionnaires.Create(ctx, q); err != nil {
		return nil, apperrors.InternalError("failed to create questionnaire", err)
	}
	return q, nil
}

func (s *QuestionnaireService) GetQuestionnaire(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID) (*domain.Questionnaire, error) {
	q, err := s.questionnaires.GetByID(ctx, questionnaireID)
	if err != nil {
		return nil, translate(err, "Questionnaire not found")
	}
	if err := s.requireRead(ctx, actor, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionnaireService) ListForCohort(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.Questionnaire, error) {
	cohort, err := s.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return nil, translate(err, "Cohort not found")
	}

	activeOnly := true
	if requireCohortAccess(actor, cohort) == nil {
		activeOnly = false
	} else {
		member, err := s.cohorts.IsMember(ctx, cohortID, actor.ID)
		if err != nil {
			return nil, apperrors.InternalError("failed to check cohort membership", err)
		}
		if !member {
			return nil, apperrors.ForbiddenError("Forbidden")
		}
	}

	list, err := s.questionnaires.ListByCohort(ctx, cohortID, activeOnly)
	if err != nil {
		return nil, apperrors.InternalError("failed to list questionnaires", err)
	}
	return list, nil
}

// ListAssigned returns the active questionnaires of every cohort the actor
// belongs to.
func (s *QuestionnaireService) ListAssigned(ctx context.Context, actor *domain.User) ([]domain.Questionnaire, error) {
	cohorts, err := s.cohorts.ListForMember(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list cohorts", err)
	}

	var assigned []domain.Questionnaire
	for _, cohort := range cohorts {
		list, err := s.questionnaires.ListByCohort(ctx, cohort.ID, true)
		if err != nil {
			return nil, apperrors.InternalError("failed to list questionnaires", err)
		}
		assigned = append(assigned, list...)
	}
	return assigned, nil
}

func (s *QuestionnaireService) UpdateQuestionnaire(ctx context.Context, actor *domain.User, q *domain.Questionnaire) (*domain.Questionnaire, error) {
	existing, err := s.questionnaires.GetByID(ctx, q.ID)
	if err != nil {
		return nil, translate(err, "Questionnaire not found")
	}
	cohort, err := s.cohorts.GetByID(ctx, existing.CohortID)
	if err != nil {
		return nil, translate(err, "Cohort not found")
	}
	if err := requireCohortAccess(actor, cohort); err != nil {
		return nil, err
	}

	// The cohort assignment is immutable; moving a bundle would orphan its
	// responses.
	q.CohortID = existing.CohortID
	if err := validateQuestionnaire(q); err != nil {
		return nil, err
	}

	if err := s.questionnaires.Update(ctx, q); err != nil {
		return nil, translate(err, "Questionnaire not found")
	}
	return q, nil
}

func (s *QuestionnaireService) DeleteQuestionnaire(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID) error {
	q, err := s.questionnaires.GetByID(ctx, questionnaireID)
	if err != nil {
		return translate(err, "Questionnaire not found")
	}
	cohort, err := s.cohorts.GetByID(ctx, q.CohortID)
	if err != nil {
		return translate(err, "Cohort not found")
	}
	if err := requireCohortAccess(actor, cohort); err != nil {
		return err
	}

	if err := s.questionnaires.Delete(ctx, questionnaireID); err != nil {
		return translate(err, "Questionnaire not found")
	}
	return nil
}

func (s *QuestionnaireService) SubmitResponse(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID, answers []domain.Answer) (*domain.Response, error) {
	q, err := s.questionnaires.GetByID(ctx, questionnaireID)
	if err != nil {
		return nil, translate(err, "Questionnaire not found")
	}
	if !q.Active {
		return nil, apperrors.ConflictError("questionnaire is no longer accepting responses")
	}

	member, err := s.cohorts.IsMember(ctx, q.CohortID, actor.ID)
	if err != nil {
		return nil, apperrors.InternalError("failed to check cohort membership", err)
	}
	if !member {
		return nil, apperrors.ForbiddenError("only cohort members can respond to this questionnaire")
	}

	if err := validateAnswers(q, answers); err != nil {
		return nil, err
	}

	response := &domain.Response{
		QuestionnaireID: questionnaireID,
		UserID:          actor.ID,
		Answers:         answers,
		SubmittedAt:     s.clock.Now().UTC(),
	}
	stored, err := s.questionnaires.UpsertResponse(ctx, response)
	if err != nil {
		return nil, apperrors.InternalError("failed to save response", err)
	}
	return stored, nil
}

func (s *QuestionnaireService) ListResponses(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID) ([]domain.Response, *domain.CompletionStats, error) {
	q, err := s.questionnaires.GetByID(ctx, questionnaireID)
	if err != nil {
		return nil, nil, translate(err, "Questionnaire not found")
	}
	cohort, err := s.cohorts.GetByID(ctx, q.CohortID)
	if err != nil {
		return nil, nil, translate(err, "Cohort not found")
	}
	if err := requireCohortAccess(actor, cohort); err != nil {
		return nil, nil, err
	}

	responses, err := s.questionnaires.ListResponses(ctx, questionnaireID)
	if err != nil {
		return nil, nil, apperrors.InternalError("failed to list responses", err)
	}
	stats, err := s.questionnaires.CompletionStats(ctx, questionnaireID)
	if err != nil {
		return nil, nil, apperrors.InternalError("failed to load completion stats", err)
	}
	return responses, stats, nil
}

// requireRead allows the cohort's coach, admins and cohort members.
func (s *QuestionnaireService) requireRead(ctx context.Context, actor *domain.User, q *domain.Questionnaire) error {
	cohort, err := s.cohorts.GetByID(ctx, q.CohortID)
	if err != nil {
		return translate(err, "Cohort not found")
	}
	if requireCohortAccess(actor, cohort) == nil {
		return nil
	}
	member, err := s.cohorts.IsMember(ctx, q.CohortID, actor.ID)
	if err != nil {
		return apperrors.InternalError("failed to check cohort membership", err)
	}
	if !member {
		return apperrors.ForbiddenError("Forbidden")
	}
	return nil
}

func validateQuestionnaire(q *domain.Questionnaire) error {
	if q.Title == "" {
		return apperrors.ValidationError("questionnaire title cannot be empty")
	}
	if len(q.Questions) == 0 {
		return apperrors.ValidationError("questionnaire needs at least one question")
	}
	for i, question := range q.Questions {
		if question.Prompt == "" {
			return apperrors.ValidationError(fmt.Sprintf("question %d has an empty prompt", i+1))
		}
		if !question.Kind.Valid() {
			return apperrors.ValidationError(fmt.Sprintf("question %d has an unknown kind", i+1))
		}
		switch question.Kind {
		case domain.QuestionChoice:
			if len(question.Options) < 2 {
				return apperrors.ValidationError(fmt.Sprintf("question %d needs at least two options", i+1))
			}
		case domain.QuestionScale:
			if question.ScaleMax <= question.ScaleMin {
				return apperrors.ValidationError(fmt.Sprintf("question %d needs a scale max above its min", i+1))
			}
		}
	}
	return nil
}

func validateAnswers(q *domain.Questionnaire, answers []domain.Answer) error {
	questionsByID := make(map[uuid.UUID]domain.Question, len(q.Questions))
	for _, question := range q.Questions {
		questionsByID[question.ID] = question
	}

	seen := make(map[uuid.UUID]bool, len(answers))
	for _, answer := range answers {
		question, ok := questionsByID[answer.QuestionID]
		if !ok {
			return apperrors.ValidationError("answer references an unknown question")
		}
		if seen[answer.QuestionID] {
			return apperrors.ValidationError("duplicate answer for the same question")
		}
		seen[answer.QuestionID] = true

		switch question.Kind {
		case domain.QuestionScale:
			value, err := strconv.Atoi(answer.Value)
			if err != nil || value < question.ScaleMin || value > question.ScaleMax {
				return apperrors.ValidationError(fmt.Sprintf("scale answer must be a number between %d and %d", question.ScaleMin, question.ScaleMax))
			}
		case domain.QuestionChoice:
			if !slices.Contains(question.Options, answer.Value) {
				return apperrors.ValidationError("choice answer must be one of the question's options")
			}
		}
	}

	// Every question must be answered; partial submissions are rejected so
	// completion stats mean something.
	if len(seen) != len(q.Questions) {
		return apperrors.ValidationError("all questions must be answered")
	}
	return nil
}
