package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soaringjerry/Tally/internal/models"
)

const (
	MaxTitleLength       = 50
	MaxDescriptionLength = 250
)

type SurveyStore interface {
	CreateSurvey(ctx context.Context, s *models.Survey) error
	UpdateSurvey(ctx context.Context, s *models.Survey) (bool, error)
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	ListSurveys(ctx context.Context) ([]*models.Survey, error)
	// DeleteSurvey removes the survey and all of its responses in one step and
	// reports how many responses went with it.
	DeleteSurvey(ctx context.Context, id string) (int, bool, error)
}

type SurveyService struct {
	store       SurveyStore
	now         func() time.Time
	idGenerator func() string
}

func NewSurveyService(store SurveyStore) *SurveyService {
	return &SurveyService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: func() string { return shortID(12) },
	}
}

// CreateSurvey validates the draft, assigns survey and question ids and stores it.
func (s *SurveyService) CreateSurvey(ctx context.Context, draft *models.Survey) (*models.Survey, error) {
	if draft == nil {
		return nil, NewInvalidError("survey required")
	}
	sv := cloneSurvey(draft)
	sv.ID = s.idGenerator()
	sv.CreatedAt = s.now()
	s.assignQuestionIDs(sv)
	if err := ValidateSurvey(sv); err != nil {
		return nil, err
	}
	if err := s.store.CreateSurvey(ctx, sv); err != nil {
		return nil, err
	}
	return sv, nil
}

// UpdateSurvey replaces the survey wholesale. Questions keep the ids they arrive with
// and new questions get fresh ones; creation time cannot change.
func (s *SurveyService) UpdateSurvey(ctx context.Context, id string, draft *models.Survey) (*models.Survey, error) {
	if draft == nil {
		return nil, NewInvalidError("survey required")
	}
	cur, err := s.store.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, ErrSurveyNotFound
	}
	sv := cloneSurvey(draft)
	sv.ID = cur.ID
	sv.CreatedAt = cur.CreatedAt
	s.assignQuestionIDs(sv)
	if err := ValidateSurvey(sv); err != nil {
		return nil, err
	}
	ok, err := s.store.UpdateSurvey(ctx, sv)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSurveyNotFound
	}
	return sv, nil
}

func (s *SurveyService) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewInvalidError("survey id required")
	}
	sv, err := s.store.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, ErrSurveyNotFound
	}
	return sv, nil
}

// ListSurveys returns every survey, newest first.
func (s *SurveyService) ListSurveys(ctx context.Context) ([]*models.Survey, error) {
	out, err := s.store.ListSurveys(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.Survey{}
	}
	return out, nil
}

// DeleteSurvey removes a survey and its responses, returning the number of responses
// removed.
func (s *SurveyService) DeleteSurvey(ctx context.Context, id string) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, NewInvalidError("survey id required")
	}
	removed, ok, err := s.store.DeleteSurvey(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrSurveyNotFound
	}
	return removed, nil
}

func (s *SurveyService) assignQuestionIDs(sv *models.Survey) {
	for i := range sv.Questions {
		if strings.TrimSpace(sv.Questions[i].ID) == "" {
			sv.Questions[i].ID = "q_" + shortID(8)
		}
	}
}

// ValidateSurvey checks the structural rules a stored survey must satisfy.
func ValidateSurvey(sv *models.Survey) error {
	title := strings.TrimSpace(sv.Title)
	if title == "" {
		return NewInvalidError("title required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return NewInvalidError(fmt.Sprintf("title exceeds %d characters", MaxTitleLength))
	}
	if utf8.RuneCountInString(sv.Description) > MaxDescriptionLength {
		return NewInvalidError(fmt.Sprintf("description exceeds %d characters", MaxDescriptionLength))
	}
	if sv.TimeLimit < 0 {
		return NewInvalidError("timeLimit must not be negative")
	}
	if sv.ExpiresAt != nil && !sv.CreatedAt.IsZero() && !sv.ExpiresAt.After(sv.CreatedAt) {
		return NewInvalidError("expiresAt must be after createdAt")
	}
	seen := make(map[string]bool, len(sv.Questions))
	for i, q := range sv.Questions {
		if seen[q.ID] {
			return NewInvalidError(fmt.Sprintf("duplicate question id %q", q.ID))
		}
		seen[q.ID] = true
		if err := validateQuestion(q); err != nil {
			return NewInvalidError(fmt.Sprintf("question %d: %s", i+1, err.Error()))
		}
	}
	return nil
}

func validateQuestion(q models.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("text required")
	}
	attrs, ok := q.Type.Attributes()
	if !ok {
		return fmt.Errorf("unknown type %q", q.Type)
	}
	if attrs.Options {
		if countNonBlank(q.Options) == 0 {
			return fmt.Errorf("%s requires options", q.Type)
		}
	} else if len(q.Options) > 0 {
		return fmt.Errorf("%s does not take options", q.Type)
	}
	if attrs.Grid {
		if countNonBlank(q.Rows) == 0 || countNonBlank(q.Columns) == 0 {
			return fmt.Errorf("%s requires rows and columns", q.Type)
		}
	} else if len(q.Rows) > 0 || len(q.Columns) > 0 {
		return fmt.Errorf("%s does not take rows or columns", q.Type)
	}
	return nil
}

func countNonBlank(ss []string) int {
	n := 0
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

func cloneSurvey(in *models.Survey) *models.Survey {
	out := *in
	out.Title = strings.TrimSpace(in.Title)
	out.Questions = make([]models.Question, len(in.Questions))
	for i, q := range in.Questions {
		q.Options = append([]string(nil), q.Options...)
		q.Rows = append([]string(nil), q.Rows...)
		q.Columns = append([]string(nil), q.Columns...)
		out.Questions[i] = q
	}
	if in.ExpiresAt != nil {
		t := *in.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}
