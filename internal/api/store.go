package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/soaringjerry/Tally/internal/models"
	"github.com/soaringjerry/Tally/internal/services"
)

// MemoryStore keeps surveys and responses in process. Values are deep-copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	surveys   map[string]*models.Survey
	responses map[string][]*models.Response // by survey id, insertion order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		surveys:   map[string]*models.Survey{},
		responses: map[string][]*models.Response{},
	}
}

func (s *MemoryStore) CreateSurvey(_ context.Context, sv *models.Survey) error {
	cp, err := copyOf(sv)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.surveys[sv.ID]; dup {
		return fmt.Errorf("survey %s already exists", sv.ID)
	}
	s.surveys[sv.ID] = cp
	return nil
}

func (s *MemoryStore) UpdateSurvey(_ context.Context, sv *models.Survey) (bool, error) {
	cp, err := copyOf(sv)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[sv.ID]; !ok {
		return false, nil
	}
	s.surveys[sv.ID] = cp
	return true, nil
}

func (s *MemoryStore) GetSurvey(_ context.Context, id string) (*models.Survey, error) {
	s.mu.RLock()
	sv := s.surveys[id]
	s.mu.RUnlock()
	if sv == nil {
		return nil, nil
	}
	return copyOf(sv)
}

func (s *MemoryStore) ListSurveys(_ context.Context) ([]*models.Survey, error) {
	s.mu.RLock()
	out := make([]*models.Survey, 0, len(s.surveys))
	for _, sv := range s.surveys {
		out = append(out, sv)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	for i, sv := range out {
		cp, err := copyOf(sv)
		if err != nil {
			return nil, err
		}
		out[i] = cp
	}
	return out, nil
}

func (s *MemoryStore) DeleteSurvey(_ context.Context, id string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[id]; !ok {
		return 0, false, nil
	}
	n := len(s.responses[id])
	delete(s.surveys, id)
	delete(s.responses, id)
	return n, true, nil
}

func (s *MemoryStore) SaveResponse(_ context.Context, r *models.Response) error {
	cp, err := copyOf(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[r.SurveyID]; !ok {
		return services.ErrSurveyNotFound
	}
	s.responses[r.SurveyID] = append(s.responses[r.SurveyID], cp)
	return nil
}

// ListResponses returns the survey's responses newest first.
func (s *MemoryStore) ListResponses(_ context.Context, surveyID string) ([]*models.Response, error) {
	s.mu.RLock()
	src := s.responses[surveyID]
	out := make([]*models.Response, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	for i, r := range out {
		cp, err := copyOf(r)
		if err != nil {
			return nil, err
		}
		out[i] = cp
	}
	return out, nil
}

// copyOf deep-copies through the wire format, which is also what the SQL stores persist.
func copyOf[T any](v *T) (*T, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
