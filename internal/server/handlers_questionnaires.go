package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/validation"
)

type questionRequest struct {
	Prompt   string   `json:"prompt" validate:"required,min=1,max=1000"`
	Kind     string   `json:"kind" validate:"required,oneof=text scale choice"`
	Options  []string `json:"options"`
	ScaleMin int      `json:"scale_min"`
	ScaleMax int      `json:"scale_max"`
}

type createQuestionnaireRequest struct {
	CohortID  uuid.UUID         `json:"cohort_id" validate:"required"`
	Title     string            `json:"title" validate:"required,min=1,max=300"`
	Questions []questionRequest `json:"questions" validate:"required,min=1,dive"`
}

func (r *createQuestionnaireRequest) toDomain() *domain.Questionnaire {
	questions := make([]domain.Question, len(r.Questions))
	for i, q := range r.Questions {
		questions[i] = domain.Question{
			ID:       uuid.New(),
			Prompt:   q.Prompt,
			Kind:     domain.QuestionKind(q.Kind),
			Options:  q.Options,
			ScaleMin: q.ScaleMin,
			ScaleMax: q.ScaleMax,
			Position: i + 1,
		}
	}
	return &domain.Questionnaire{
		CohortID:  r.CohortID,
		Title:     r.Title,
		Questions: questions,
	}
}

func (s *Server) handleCreateQuestionnaire(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createQuestionnaireRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	created, err := s.services.Questionnaires.CreateQuestionnaire(c.Request().Context(), actor, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, questionnaireResponseFrom(created))
}

func (s *Server) handleListAssignedQuestionnaires(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	questionnaires, err := s.services.Questionnaires.ListAssigned(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, questionnaireResponsesFrom(questionnaires))
}

func (s *Server) handleListCohortQuestionnaires(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	questionnaires, err := s.services.Questionnaires.ListForCohort(c.Request().Context(), actor, cohortID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, questionnaireResponsesFrom(questionnaires))
}

func (s *Server) handleGetQuestionnaire(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	questionnaireID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	questionnaire, err := s.services.Questionnaires.GetQuestionnaire(c.Request().Context(), actor, questionnaireID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, questionnaireResponseFrom(questionnaire))
}

type updateQuestionnaireRequest struct {
	Title     string            `json:"title" validate:"required,min=1,max=300"`
	Active    bool              `json:"active"`
	Questions []questionRequest `json:"questions" validate:"required,min=1,dive"`
}

func (s *Server) handleUpdateQuestionnaire(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	questionnaireID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req updateQuestionnaireRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	questions := make([]domain.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = domain.Question{
			ID:       uuid.New(),
			Prompt:   q.Prompt,
			Kind:     domain.QuestionKind(q.Kind),
			Options:  q.Options,
			ScaleMin: q.ScaleMin,
			ScaleMax: q.ScaleMax,
			Position: i + 1,
		}
	}

	updated, err := s.services.Questionnaires.UpdateQuestionnaire(c.Request().Context(), actor, &domain.Questionnaire{
		ID:        questionnaireID,
		Title:     req.Title,
		Active:    req.Active,
		Questions: questions,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, questionnaireResponseFrom(updated))
}

func (s *Server) handleDeleteQuestionnaire(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	questionnaireID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.services.Questionnaires.DeleteQuestionnaire(c.Request().Context(), actor, questionnaireID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type submitResponseRequest struct {
	Answers []struct {
		QuestionID uuid.UUID `json:"question_id" validate:"required"`
		Value      string    `json:"value" validate:"max=4000"`
	} `json:"answers" validate:"required,min=1,dive"`
}

func (s *Server) handleSubmitResponse(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	questionnaireID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req submitResponseRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	answers := make([]domain.Answer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = domain.Answer{QuestionID: a.QuestionID, Value: a.Value}
	}

	response, err := s.services.Questionnaires.SubmitResponse(c.Request().Context(), actor, questionnaireID, answers)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, submissionResponseFrom(response))
}

func (s *Server) handleListResponses(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	questionnaireID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	responses, stats, err := s.services.Questionnaires.ListResponses(c.Request().Context(), actor, questionnaireID)
	if err != nil {
		return err
	}

	out := make([]submissionResponse, len(responses))
	for i := range responses {
		out[i] = submissionResponseFrom(&responses[i])
	}
	return c.JSON(http.StatusOK, map[string]any{
		"responses": out,
		"completion": map[string]int{
			"member_count":   stats.MemberCount,
			"response_count": stats.ResponseCount,
		},
	})
}
