package services

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/soaringjerry/Tally/internal/models"
)

type AnalyticsService struct {
	store SurveyReader
}

type AnalyticsTimeseries struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AnalyticsSummary is the reviewer's statistics view of one survey.
type AnalyticsSummary struct {
	*Aggregation
	Timeseries []AnalyticsTimeseries `json:"timeseries"`
	// Alpha is the internal consistency of the numeric questions over respondents
	// who answered all of them; N counts those respondents.
	Alpha     float64        `json:"alpha"`
	N         int            `json:"n"`
	Expansion ExpansionState `json:"expansion"`
}

func NewAnalyticsService(store SurveyReader) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Summary aggregates every response of a survey. state is the caller's expansion state
// and comes back updated in the summary.
func (s *AnalyticsService) Summary(ctx context.Context, surveyID string, state ExpansionState) (*AnalyticsSummary, error) {
	survey, err := s.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	responses, err := s.store.ListResponses(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	return Summarize(survey, responses, state), nil
}

// Summarize is Summary over an already loaded snapshot.
func Summarize(survey *models.Survey, responses []*models.Response, state ExpansionState) *AnalyticsSummary {
	agg, state := Aggregate(survey, responses, state)
	matrix := buildAlphaMatrix(survey, responses)
	return &AnalyticsSummary{
		Aggregation: agg,
		Timeseries:  buildTimeseries(responses),
		Alpha:       ReliabilityAlpha(matrix),
		N:           len(matrix),
		Expansion:   state,
	}
}

// buildAlphaMatrix keeps respondents with a numeric answer to every scale and rating
// question, in schema order.
func buildAlphaMatrix(survey *models.Survey, responses []*models.Response) [][]float64 {
	var qs []models.Question
	for _, q := range survey.Questions {
		if q.Type.Numeric() {
			qs = append(qs, q)
		}
	}
	if len(qs) < 2 {
		return nil
	}
	matrix := make([][]float64, 0, len(responses))
	for _, r := range compactResponses(responses) {
		row := make([]float64, 0, len(qs))
		for _, q := range qs {
			v, ok := r.Answer(q.ID)
			if !ok || v.Kind() != models.ValueScalar {
				break
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v.Text()), 64)
			if err != nil {
				break
			}
			row = append(row, f)
		}
		if len(row) == len(qs) {
			matrix = append(matrix, row)
		}
	}
	return matrix
}

func buildTimeseries(responses []*models.Response) []AnalyticsTimeseries {
	counts := map[string]int{}
	for _, r := range compactResponses(responses) {
		counts[r.SubmittedAt.UTC().Format("2006-01-02")]++
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]AnalyticsTimeseries, 0, len(days))
	for _, d := range days {
		out = append(out, AnalyticsTimeseries{Date: d, Count: counts[d]})
	}
	return out
}
