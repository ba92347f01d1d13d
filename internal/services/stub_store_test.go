package services

import (
	"context"
	"sort"

	"github.com/soaringjerry/Tally/internal/models"
)

// stubStore is an in-memory store satisfying every service store interface.
type stubStore struct {
	surveys   map[string]*models.Survey
	responses []*models.Response
	saveErr   error
}

func newStubStore() *stubStore {
	return &stubStore{surveys: map[string]*models.Survey{}}
}

func (s *stubStore) CreateSurvey(_ context.Context, sv *models.Survey) error {
	copy := *sv
	s.surveys[sv.ID] = &copy
	return nil
}

func (s *stubStore) UpdateSurvey(_ context.Context, sv *models.Survey) (bool, error) {
	if _, ok := s.surveys[sv.ID]; !ok {
		return false, nil
	}
	copy := *sv
	s.surveys[sv.ID] = &copy
	return true, nil
}

func (s *stubStore) GetSurvey(_ context.Context, id string) (*models.Survey, error) {
	if sv, ok := s.surveys[id]; ok {
		copy := *sv
		return &copy, nil
	}
	return nil, nil
}

func (s *stubStore) ListSurveys(context.Context) ([]*models.Survey, error) {
	out := []*models.Survey{}
	for _, sv := range s.surveys {
		copy := *sv
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *stubStore) DeleteSurvey(_ context.Context, id string) (int, bool, error) {
	if _, ok := s.surveys[id]; !ok {
		return 0, false, nil
	}
	delete(s.surveys, id)
	kept := s.responses[:0]
	removed := 0
	for _, r := range s.responses {
		if r.SurveyID == id {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.responses = kept
	return removed, true, nil
}

func (s *stubStore) SaveResponse(_ context.Context, r *models.Response) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	copy := *r
	s.responses = append(s.responses, &copy)
	return nil
}

func (s *stubStore) ListResponses(_ context.Context, surveyID string) ([]*models.Response, error) {
	out := []*models.Response{}
	for i := len(s.responses) - 1; i >= 0; i-- {
		if r := s.responses[i]; r.SurveyID == surveyID {
			copy := *r
			out = append(out, &copy)
		}
	}
	return out, nil
}
