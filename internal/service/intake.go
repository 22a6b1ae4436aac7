// Package service contains the business rules: application intake and
// validation, the staff review workflow, the repo-action ledger, and the
// ledger-guarded provisioner. Services depend on repository interfaces and
// return apperror values; they know nothing about HTTP or SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mwalsh/jamreg/internal/apperror"
	"github.com/mwalsh/jamreg/internal/identity"
	"github.com/mwalsh/jamreg/internal/model"
	"github.com/mwalsh/jamreg/internal/repository"
)

const (
	MaxHandleLength     = 255
	MaxGameHandleLength = 16
	MaxEmailLength      = 255
)

// Messages surfaced to applicants. Wording is part of the API contract with
// the registration frontend.
const (
	msgDuplicate         = "An application/registration entry already exists for this user."
	msgParticipantClosed = "Sorry, participant registrations have closed."
	msgJudgeClosed       = "Sorry, judge applications have closed."
	msgEligibility       = "Sorry, you do not meet the minimum requirements for a judge."
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Eligibility supplies the public-repository count used as the judge
// admission signal.
type Eligibility interface {
	RepositoryCount(ctx context.Context, username string) (int, error)
}

// ParticipantForm is the participant registration input. StreamHandle is
// optional; nil means the applicant declined to provide one.
type ParticipantForm struct {
	DBOHandle    string
	StreamHandle *string
}

// JudgeForm is the judge application input. Every field is required.
type JudgeForm struct {
	DBOHandle    string
	IRCHandle    string
	GameHandle   string
	ContactEmail string
}

// IntakeService validates and persists applications.
type IntakeService struct {
	apps            repository.ApplicationRepository
	eligibility     Eligibility
	participantOpen bool
	judgeOpen       bool
	logger          *slog.Logger
}

func NewIntakeService(
	apps repository.ApplicationRepository,
	eligibility Eligibility,
	participantOpen, judgeOpen bool,
	logger *slog.Logger,
) *IntakeService {
	return &IntakeService{
		apps:            apps,
		eligibility:     eligibility,
		participantOpen: participantOpen,
		judgeOpen:       judgeOpen,
		logger:          logger,
	}
}

// SubmitParticipant validates a participant registration and persists it.
// Every rule is evaluated before returning, so the caller gets the full set
// of violations in one error.
func (s *IntakeService) SubmitParticipant(ctx context.Context, who identity.Identity, form ParticipantForm) (*model.Application, error) {
	fields := apperror.FieldErrors{}
	var causes []error

	if !s.participantOpen {
		fields.Add("registration", msgParticipantClosed)
		causes = append(causes, apperror.ErrRegistrationClosed)
	}

	if err := s.checkDuplicate(ctx, who.GitHubID, fields, &causes); err != nil {
		return nil, err
	}

	checkHandle(fields, "dboHandle", form.DBOHandle, true)
	if form.StreamHandle != nil && len(*form.StreamHandle) > MaxHandleLength {
		fields.Add("streamHandle", fmt.Sprintf("The stream handle may not be longer than %d characters.", MaxHandleLength))
	}

	if len(fields) > 0 {
		return nil, apperror.Validation(fields, causes...)
	}

	app := &model.Application{
		GitHubID:     who.GitHubID,
		Username:     who.Username,
		Emails:       who.Emails,
		IsJudge:      false,
		DBOHandle:    strings.TrimSpace(form.DBOHandle),
		StreamHandle: form.StreamHandle,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "participant registered",
		slog.String("applicationId", app.ID),
		slog.String("username", app.Username))

	return app, nil
}

// SubmitJudge validates a judge application and persists it. On top of the
// field rules, applicants must own at least one public repository.
func (s *IntakeService) SubmitJudge(ctx context.Context, who identity.Identity, form JudgeForm) (*model.Application, error) {
	fields := apperror.FieldErrors{}
	var causes []error

	if !s.judgeOpen {
		fields.Add("registration", msgJudgeClosed)
		causes = append(causes, apperror.ErrRegistrationClosed)
	}

	if err := s.checkDuplicate(ctx, who.GitHubID, fields, &causes); err != nil {
		return nil, err
	}

	checkHandle(fields, "dboHandle", form.DBOHandle, true)
	checkHandle(fields, "ircHandle", form.IRCHandle, true)

	switch {
	case strings.TrimSpace(form.GameHandle) == "":
		fields.Add("gameHandle", "The game handle field is required.")
	case len(form.GameHandle) > MaxGameHandleLength:
		fields.Add("gameHandle", fmt.Sprintf("The game handle may not be longer than %d characters.", MaxGameHandleLength))
	}

	switch {
	case strings.TrimSpace(form.ContactEmail) == "":
		fields.Add("contactEmail", "The contact email field is required.")
	case len(form.ContactEmail) > MaxEmailLength:
		fields.Add("contactEmail", fmt.Sprintf("The contact email may not be longer than %d characters.", MaxEmailLength))
	case !emailPattern.MatchString(form.ContactEmail):
		fields.Add("contactEmail", "The contact email must be a valid email address.")
	}

	count, err := s.eligibility.RepositoryCount(ctx, who.Username)
	if err != nil {
		return nil, fmt.Errorf("checking judge eligibility for %s: %w", who.Username, err)
	}
	if count == 0 {
		fields.Add("eligibility", msgEligibility)
		causes = append(causes, apperror.ErrEligibility)
	}

	if len(fields) > 0 {
		return nil, apperror.Validation(fields, causes...)
	}

	app := &model.Application{
		GitHubID:     who.GitHubID,
		Username:     who.Username,
		Emails:       who.Emails,
		IsJudge:      true,
		DBOHandle:    strings.TrimSpace(form.DBOHandle),
		IRCHandle:    strings.TrimSpace(form.IRCHandle),
		GameHandle:   strings.TrimSpace(form.GameHandle),
		ContactEmail: strings.TrimSpace(form.ContactEmail),
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "judge application received",
		slog.String("applicationId", app.ID),
		slog.String("username", app.Username))

	return app, nil
}

// checkDuplicate records the duplicate violation when an application already
// exists for the GitHub account. The UNIQUE constraint in storage remains the
// authority under concurrent submits; this pre-check only lets the duplicate
// message aggregate with the other field errors.
func (s *IntakeService) checkDuplicate(ctx context.Context, ghID int64, fields apperror.FieldErrors, causes *[]error) error {
	_, err := s.apps.GetByGitHubID(ctx, ghID)
	switch {
	case err == nil:
		fields.Add("duplicate", msgDuplicate)
		*causes = append(*causes, apperror.ErrDuplicateApplication)
		return nil
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("checking for existing application: %w", err)
	}
}

func checkHandle(fields apperror.FieldErrors, field, value string, required bool) {
	name := fieldLabel(field)
	switch {
	case required && strings.TrimSpace(value) == "":
		fields.Add(field, fmt.Sprintf("The %s field is required.", name))
	case len(value) > MaxHandleLength:
		fields.Add(field, fmt.Sprintf("The %s may not be longer than %d characters.", name, MaxHandleLength))
	}
}

func fieldLabel(field string) string {
	switch field {
	case "dboHandle":
		return "dbo handle"
	case "ircHandle":
		return "irc handle"
	default:
		return field
	}
}
