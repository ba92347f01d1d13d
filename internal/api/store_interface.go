package api

import (
	"context"

	"github.com/soaringjerry/Tally/internal/models"
	"github.com/soaringjerry/Tally/internal/services"
)

// Store is the persistence surface the HTTP layer needs. The memory store below and
// the SQL stores in internal/db implement it.
type Store interface {
	CreateSurvey(ctx context.Context, s *models.Survey) error
	UpdateSurvey(ctx context.Context, s *models.Survey) (bool, error)
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	ListSurveys(ctx context.Context) ([]*models.Survey, error)
	DeleteSurvey(ctx context.Context, id string) (int, bool, error)

	SaveResponse(ctx context.Context, r *models.Response) error
	ListResponses(ctx context.Context, surveyID string) ([]*models.Response, error)
}

var (
	_ Store                  = (*MemoryStore)(nil)
	_ services.SurveyStore   = Store(nil)
	_ services.ResponseStore = Store(nil)
	_ services.SurveyReader  = Store(nil)
)
