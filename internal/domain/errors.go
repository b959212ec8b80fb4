package domain

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrCohortNotFound        = errors.New("cohort not found")
	ErrEntryNotFound         = errors.New("entry not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrPlanNotFound          = errors.New("plan not found")
	ErrMembershipNotFound    = errors.New("membership not found")
	ErrInvoiceNotFound       = errors.New("invoice not found")
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	ErrResponseNotFound      = errors.New("response not found")
	ErrScoreNotFound         = errors.New("attention score not found")

	ErrDuplicateMember       = errors.New("user is already a member of this cohort")
	ErrDuplicateRegistration = errors.New("user already has a registration for this session")
	ErrSessionStarted        = errors.New("session has already started")
	ErrNoActiveMembership    = errors.New("no active membership")
	ErrAllowanceExhausted    = errors.New("membership allowance exhausted")
	ErrNotCohortMember       = errors.New("user is not a member of the cohort")
)
