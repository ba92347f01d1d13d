package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/soaringjerry/Tally/internal/models"
	"github.com/soaringjerry/Tally/internal/services"
)

const (
	TypeSnapshot = "snapshot"
	TypeResponse = "response"
)

// ResultsUpdate is pushed to reviewers whenever the statistics change.
type ResultsUpdate struct {
	SurveyID       string                   `json:"surveyId"`
	TotalResponses int                      `json:"totalResponses"`
	Questions      []services.QuestionStats `json:"questions"`
}

// LiveFeed recomputes a survey's frequency tables after every stored response and
// broadcasts them on the hub.
type LiveFeed struct {
	hub     *Hub
	store   services.SurveyReader
	timeout time.Duration
}

func NewLiveFeed(hub *Hub, store services.SurveyReader) *LiveFeed {
	return &LiveFeed{hub: hub, store: store, timeout: 5 * time.Second}
}

// ResponseSaved implements services.ResponseListener.
func (f *LiveFeed) ResponseSaved(r *models.Response) {
	if f.hub.Subscribers(r.SurveyID) == 0 {
		return
	}
	go f.publish(r.SurveyID)
}

func (f *LiveFeed) publish(surveyID string) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	update, err := f.Snapshot(ctx, surveyID)
	if err != nil {
		log.Printf("live: snapshot %s: %v", surveyID, err)
		return
	}
	f.hub.Broadcast(surveyID, WSMessage{Type: TypeResponse, Data: update})
}

// Snapshot computes the current statistics for surveyID.
func (f *LiveFeed) Snapshot(ctx context.Context, surveyID string) (*ResultsUpdate, error) {
	survey, err := f.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, services.ErrSurveyNotFound
	}
	rs, err := f.store.ListResponses(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	agg, _ := services.Aggregate(survey, rs, services.ExpansionState{})
	return &ResultsUpdate{SurveyID: surveyID, TotalResponses: agg.TotalResponses, Questions: agg.Questions}, nil
}

// Serve streams updates for surveyID to the requesting client, starting with a
// snapshot.
func (f *LiveFeed) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, surveyID string) error {
	snap, err := f.Snapshot(ctx, surveyID)
	if err != nil {
		return err
	}
	f.hub.Serve(w, r, surveyID, &WSMessage{Type: TypeSnapshot, Data: snap})
	return nil
}
