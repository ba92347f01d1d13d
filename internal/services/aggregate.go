package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/Tally/internal/models"
)

// scaleLabels seed every scale question regardless of its anchor labels.
var scaleLabels = []string{"1", "2", "3", "4", "5"}

type FrequencyEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FrequencyTable counts answers per normalized label. Entries keep the seeded order
// (declared options) with unseeded labels appended in first-seen order.
type FrequencyTable struct {
	Entries []FrequencyEntry `json:"entries"`
	index   map[string]int
}

func newFrequencyTable(seed []string) FrequencyTable {
	t := FrequencyTable{Entries: make([]FrequencyEntry, 0, len(seed)), index: make(map[string]int, len(seed))}
	for _, label := range seed {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, dup := t.index[label]; dup {
			continue
		}
		t.index[label] = len(t.Entries)
		t.Entries = append(t.Entries, FrequencyEntry{Label: label})
	}
	return t
}

// add counts one occurrence; it reports whether the label was counted.
func (t *FrequencyTable) add(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" || label == NoAnswer {
		return false
	}
	if i, ok := t.index[label]; ok {
		t.Entries[i].Count++
		return true
	}
	t.index[label] = len(t.Entries)
	t.Entries = append(t.Entries, FrequencyEntry{Label: label, Count: 1})
	return true
}

// Count returns the tally for label, 0 if unknown.
func (t FrequencyTable) Count(label string) int {
	for _, e := range t.Entries {
		if e.Label == label {
			return e.Count
		}
	}
	return 0
}

// Map returns the table as a plain map.
func (t FrequencyTable) Map() map[string]int {
	out := make(map[string]int, len(t.Entries))
	for _, e := range t.Entries {
		out[e.Label] = e.Count
	}
	return out
}

// Labels returns the labels in display order.
func (t FrequencyTable) Labels() []string {
	out := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		out = append(out, e.Label)
	}
	return out
}

// NumericSummary describes numerically parseable answers to scale and rating questions.
type NumericSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type QuestionStats struct {
	QuestionID string              `json:"questionId"`
	Text       string              `json:"text"`
	Type       models.QuestionType `json:"type"`
	Table      FrequencyTable      `json:"frequencies"`
	Answered   int                 `json:"answered"`
	Numeric    *NumericSummary     `json:"numeric,omitempty"`
}

// RespondentGroup clusters responses under one respondent key.
type RespondentGroup struct {
	Key       string `json:"key"`
	Positions []int  `json:"positions"` // 0-based indexes into the input slice
	Expanded  bool   `json:"expanded"`
}

// FormattedRow is one response rendered for display, keyed by question id.
type FormattedRow struct {
	ResponseID    string            `json:"responseId"`
	RespondentKey string            `json:"respondentKey"`
	SubmittedAt   time.Time         `json:"submittedAt"`
	Cells         map[string]string `json:"cells"`
}

type Aggregation struct {
	SurveyID       string            `json:"surveyId"`
	TotalResponses int               `json:"totalResponses"`
	Questions      []QuestionStats   `json:"questions"`
	Respondents    []RespondentGroup `json:"respondents"`
	Rows           []FormattedRow    `json:"rows"`
}

// ExpansionState is caller-owned display state for the respondent list. The zero value
// means "not yet initialized"; the first aggregation that sees respondents expands the
// lexicographically first key and later aggregations leave the state alone.
type ExpansionState struct {
	Initialized bool            `json:"initialized"`
	Expanded    map[string]bool `json:"expanded,omitempty"`
}

func (s ExpansionState) IsExpanded(key string) bool { return s.Expanded[key] }

// Toggle returns a copy of s with key flipped.
func (s ExpansionState) Toggle(key string) ExpansionState {
	out := ExpansionState{Initialized: true, Expanded: make(map[string]bool, len(s.Expanded)+1)}
	for k, v := range s.Expanded {
		if v {
			out.Expanded[k] = true
		}
	}
	if out.Expanded[key] {
		delete(out.Expanded, key)
	} else {
		out.Expanded[key] = true
	}
	return out
}

// Aggregate recomputes every statistic from the snapshot. It never fails: missing
// surveys or responses give empty aggregates and answers to questions the survey no
// longer declares are ignored.
func Aggregate(survey *models.Survey, responses []*models.Response, state ExpansionState) (*Aggregation, ExpansionState) {
	out := &Aggregation{Questions: []QuestionStats{}, Respondents: []RespondentGroup{}, Rows: []FormattedRow{}}
	if survey == nil {
		return out, state
	}
	out.SurveyID = survey.ID
	responses = compactResponses(responses)
	out.TotalResponses = len(responses)

	for _, q := range survey.Questions {
		if !q.Type.Tabulated() {
			continue
		}
		out.Questions = append(out.Questions, questionStats(q, responses))
	}

	groups := GroupRespondents(survey, responses)
	if !state.Initialized && len(groups) > 0 {
		state = ExpansionState{Initialized: true, Expanded: map[string]bool{groups[0].Key: true}}
	}
	for i := range groups {
		groups[i].Expanded = state.IsExpanded(groups[i].Key)
	}
	out.Respondents = groups
	out.Rows = FormatRows(survey, responses)
	return out, state
}

// FrequencyTableFor tallies answers to q. Answers whose shape does not match the
// question type are skipped.
func FrequencyTableFor(q models.Question, responses []*models.Response) FrequencyTable {
	return questionStats(q, responses).Table
}

func questionStats(q models.Question, responses []*models.Response) QuestionStats {
	st := QuestionStats{QuestionID: q.ID, Text: q.Text, Type: q.Type, Table: newFrequencyTable(seedLabels(q))}
	expected := models.ExpectedValueShape(q)
	var nums []float64
	for _, r := range responses {
		v, ok := r.Answer(q.ID)
		if !ok {
			continue
		}
		shape, present := v.Shape()
		if !present || shape != expected {
			continue
		}
		counted := false
		switch shape {
		case models.ShapeScalar:
			if st.Table.add(v.Text()) {
				counted = true
				if q.Type.Numeric() {
					if f, err := strconv.ParseFloat(strings.TrimSpace(v.Text()), 64); err == nil {
						nums = append(nums, f)
					}
				}
			}
		case models.ShapeList:
			for _, item := range v.Items() {
				if st.Table.add(item) {
					counted = true
				}
			}
		}
		if counted {
			st.Answered++
		}
	}
	if q.Type.Numeric() {
		st.Numeric = summarize(nums)
	}
	return st
}

// seedLabels returns the labels a frequency table starts with. Scale options are the
// min/max anchor captions rather than answer values, so scales seed 1..5 instead.
func seedLabels(q models.Question) []string {
	if q.Type == models.TypeScale {
		return scaleLabels
	}
	return q.Options
}

func summarize(nums []float64) *NumericSummary {
	s := &NumericSummary{Count: len(nums)}
	if len(nums) == 0 {
		return s
	}
	s.Min, s.Max = nums[0], nums[0]
	sum := 0.0
	for _, n := range nums {
		sum += n
		if n < s.Min {
			s.Min = n
		}
		if n > s.Max {
			s.Max = n
		}
	}
	s.Mean = sum / float64(len(nums))
	return s
}

// RespondentKey is the grouping identity of the response at 0-based position i.
// Anonymous surveys and responses without an email get an ordinal label so anonymous
// entries never merge.
func RespondentKey(survey *models.Survey, r *models.Response, i int) string {
	email := strings.TrimSpace(r.UserEmail)
	if survey.IsAnonymous || email == "" {
		return "Response #" + strconv.Itoa(i+1)
	}
	return email
}

// GroupRespondents partitions responses by respondent key, sorted by key.
func GroupRespondents(survey *models.Survey, responses []*models.Response) []RespondentGroup {
	byKey := map[string][]int{}
	for i, r := range responses {
		key := RespondentKey(survey, r, i)
		byKey[key] = append(byKey[key], i)
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]RespondentGroup, 0, len(keys))
	for _, k := range keys {
		out = append(out, RespondentGroup{Key: k, Positions: byKey[k]})
	}
	return out
}

// FormatRows renders each response against the current schema. Questions without an
// answer show NoAnswer; answers to undeclared questions are left out.
func FormatRows(survey *models.Survey, responses []*models.Response) []FormattedRow {
	out := make([]FormattedRow, 0, len(responses))
	for i, r := range responses {
		row := FormattedRow{
			ResponseID:    r.ID,
			RespondentKey: RespondentKey(survey, r, i),
			SubmittedAt:   r.SubmittedAt,
			Cells:         make(map[string]string, len(survey.Questions)),
		}
		for _, q := range survey.Questions {
			row.Cells[q.ID] = formatCell(q, r)
		}
		out = append(out, row)
	}
	return out
}

func compactResponses(rs []*models.Response) []*models.Response {
	out := make([]*models.Response, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
