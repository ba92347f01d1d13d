package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/soaringjerry/Tally/internal/models"
)

// ResponseStore abstracts persistence operations required by ResponseService.
type ResponseStore interface {
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	SaveResponse(ctx context.Context, r *models.Response) error
	ListResponses(ctx context.Context, surveyID string) ([]*models.Response, error)
}

// ResponseListener is told about every stored response.
type ResponseListener interface {
	ResponseSaved(r *models.Response)
}

// SubmitRequest transports the sanitized handler input into the service layer.
type SubmitRequest struct {
	SurveyID  string
	UserEmail string
	Answers   []models.Answer
	// TimeExpired marks an auto-submission after the time limit ran out. Answers are
	// stored as given without validation; the identity gate still applies.
	TimeExpired bool
}

// ResponseService hosts the submission workflow.
type ResponseService struct {
	store       ResponseStore
	emailDomain string
	listener    ResponseListener
	now         func() time.Time
	idGenerator func() string
}

// NewResponseService constructs a service bound to the provided persistence interface.
// emailDomain is the suffix respondent emails must carry on non-anonymous surveys; an
// empty value accepts any non-empty email.
func NewResponseService(store ResponseStore, emailDomain string) *ResponseService {
	return &ResponseService{
		store:       store,
		emailDomain: strings.TrimSpace(emailDomain),
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: func() string { return shortID(16) },
	}
}

// WithListener registers l to receive stored responses.
func (s *ResponseService) WithListener(l ResponseListener) *ResponseService {
	s.listener = l
	return s
}

// EmailDomain returns the configured identity suffix.
func (s *ResponseService) EmailDomain() string { return s.emailDomain }

// Submit runs the identity gate, then shape and required-answer checks unless the
// request is time-expired, and stores the response.
func (s *ResponseService) Submit(ctx context.Context, req SubmitRequest) (*models.Response, error) {
	if s.store == nil {
		return nil, errors.New("response service store is nil")
	}
	survey, err := s.store.GetSurvey(ctx, req.SurveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	now := s.now()
	if survey.Expired(now) {
		return nil, ErrSurveyClosed
	}
	email, err := CheckIdentity(survey, req.UserEmail, s.emailDomain)
	if err != nil {
		return nil, err
	}

	answers := req.Answers
	if !req.TimeExpired {
		if err := CheckShapes(survey, answers); err != nil {
			return nil, err
		}
		if verdicts := Validate(survey, answers, ValidateOptions{}); !verdicts.Valid() {
			return nil, &ValidationError{Verdicts: verdicts}
		}
		answers = completeAnswers(survey, answers)
	} else {
		answers = append([]models.Answer(nil), answers...)
	}
	if answers == nil {
		answers = []models.Answer{}
	}

	resp := &models.Response{
		ID:          s.idGenerator(),
		SurveyID:    survey.ID,
		UserEmail:   email,
		Answers:     answers,
		SubmittedAt: now,
		TimeExpired: req.TimeExpired,
	}
	if err := s.store.SaveResponse(ctx, resp); err != nil {
		return nil, err
	}
	if s.listener != nil {
		s.listener.ResponseSaved(resp)
	}
	return resp, nil
}

// ListResponses returns a survey's responses, newest first.
func (s *ResponseService) ListResponses(ctx context.Context, surveyID string) ([]*models.Response, error) {
	survey, err := s.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	out, err := s.store.ListResponses(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.Response{}
	}
	return out, nil
}

// CheckIdentity applies the respondent identity rule. Anonymous surveys never keep an
// email; other surveys need a non-empty email ending in domain (case-insensitive) when
// a domain is configured.
func CheckIdentity(survey *models.Survey, email, domain string) (string, error) {
	if survey.IsAnonymous {
		return "", nil
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrIdentityRequired
	}
	if domain != "" && !strings.HasSuffix(strings.ToLower(email), strings.ToLower(domain)) {
		return "", ErrIdentityRequired
	}
	if len(email) == len(domain) {
		return "", ErrIdentityRequired
	}
	return email, nil
}

// completeAnswers orders answers by schema and fills unanswered questions with an
// absent value so the stored response has exactly one answer per question.
func completeAnswers(survey *models.Survey, answers []models.Answer) []models.Answer {
	byID := make(map[string]models.Value, len(answers))
	for _, a := range answers {
		if _, ok := byID[a.QuestionID]; !ok {
			byID[a.QuestionID] = a.Value
		}
	}
	out := make([]models.Answer, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		out = append(out, models.Answer{QuestionID: q.ID, Value: byID[q.ID]})
	}
	return out
}
