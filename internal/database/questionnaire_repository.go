package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strenly/coachpulse/internal/domain"
)

// QuestionnaireRepo implements domain.QuestionnaireRepository backed by
// PostgreSQL. Questions and answers live as JSONB documents on their parent
// rows; they have no lifecycle of their own.
type QuestionnaireRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionnaireRepo(pool *pgxpool.Pool) *QuestionnaireRepo {
	return &QuestionnaireRepo{pool: pool}
}

func (r *QuestionnaireRepo) scanQuestionnaire(row pgx.Row) (*domain.Questionnaire, error) {
	var q domain.Questionnaire
	var questions []byte
	err := row.Scan(&q.ID, &q.CohortID, &q.Title, &questions, &q.Active, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionnaireNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	return &q, nil
}

func (r *QuestionnaireRepo) Create(ctx context.Context, q *domain.Questionnaire) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO questionnaires (cohort_id, title, questions, active, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, q.CohortID, q.Title, questions, q.Active).
		Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create questionnaire: %w", err)
	}
	return nil
}

func (r *QuestionnaireRepo) GetByID(ctx context.Context, questionnaireID uuid.UUID) (*domain.Questionnaire, error) {
	return r.scanQuestionnaire(r.pool.QueryRow(ctx, `
		SELECT id, cohort_id, title, questions, active, created_at, updated_at
		FROM questionnaires WHERE id = $1
	`, questionnaireID))
}

func (r *QuestionnaireRepo) ListByCohort(ctx context.Context, cohortID uuid.UUID, activeOnly bool) ([]domain.Questionnaire, error) {
	query := `
		SELECT id, cohort_id, title, questions, active, created_at, updated_at
		FROM questionnaires WHERE cohort_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, cohortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Questionnaire
	for rows.Next() {
		var q domain.Questionnaire
		var questions []byte
		if err := rows.Scan(&q.ID, &q.CohortID, &q.Title, &questions, &q.Active, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(questions, &q.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode questions: %w", err)
		}
		result = append(result, q)
	}
	return result, rows.Err()
}

func (r *QuestionnaireRepo) Update(ctx context.Context, q *domain.Questionnaire) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE questionnaires
		SET title = $2, questions = $3::jsonb, active = $4, updated_at = NOW()
		WHERE id = $1
	`, q.ID, q.Title, questions, q.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionnaireNotFound
	}
	return nil
}

func (r *QuestionnaireRepo) Delete(ctx context.Context, questionnaireID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questionnaires WHERE id = $1`, questionnaireID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionnaireNotFound
	}
	return nil
}

func (r *QuestionnaireRepo) UpsertResponse(ctx context.Context, response *domain.Response) (*domain.Response, error) {
	answers, err := json.Marshal(response.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	stored := &domain.Response{}
	var storedAnswers []byte
	err = r.pool.QueryRow(ctx, `
		INSERT INTO questionnaire_responses (questionnaire_id, user_id, answers, submitted_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (questionnaire_id, user_id) DO UPDATE SET
			answers = EXCLUDED.answers,
			submitted_at = NOW()
		RETURNING id, questionnaire_id, user_id, answers, submitted_at
	`, response.QuestionnaireID, response.UserID, answers).Scan(
		&stored.ID, &stored.QuestionnaireID, &stored.UserID, &storedAnswers, &stored.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert response: %w", err)
	}
	if err := json.Unmarshal(storedAnswers, &stored.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	return stored, nil
}

func (r *QuestionnaireRepo) GetResponse(ctx context.Context, questionnaireID, userID uuid.UUID) (*domain.Response, error) {
	var resp domain.Response
	var answers []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, questionnaire_id, user_id, answers, submitted_at
		FROM questionnaire_responses
		WHERE questionnaire_id = $1 AND user_id = $2
	`, questionnaireID, userID).Scan(
		&resp.ID, &resp.QuestionnaireID, &resp.UserID, &answers, &resp.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrResponseNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &resp.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	return &resp, nil
}

func (r *QuestionnaireRepo) ListResponses(ctx context.Context, questionnaireID uuid.UUID) ([]domain.Response, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, questionnaire_id, user_id, answers, submitted_at
		FROM questionnaire_responses
		WHERE questionnaire_id = $1
		ORDER BY submitted_at DESC
	`, questionnaireID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []domain.Response
	for rows.Next() {
		var resp domain.Response
		var answers []byte
		if err := rows.Scan(&resp.ID, &resp.QuestionnaireID, &resp.UserID, &answers, &resp.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answers, &resp.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers: %w", err)
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func (r *QuestionnaireRepo) CompletionStats(ctx context.Context, questionnaireID uuid.UUID) (*domain.CompletionStats, error) {
	var stats domain.CompletionStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM cohort_members cm WHERE cm.cohort_id = q.cohort_id),
			(SELECT COUNT(*) FROM questionnaire_responses r WHERE r.questionnaire_id = q.id)
		FROM questionnaires q
		WHERE q.id = $1
	`, questionnaireID).Scan(&stats.MemberCount, &stats.ResponseCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionnaireNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
