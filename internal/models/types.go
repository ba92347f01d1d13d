package models

import "time"

// Survey is an ordered questionnaire. Question order drives presentation and export
// column order.
type Survey struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
	TimeLimit   int        `json:"timeLimit"` // minutes; 0 means unbounded
	IsAnonymous bool       `json:"isAnonymous"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Question is one entry of a survey. Options apply to choice, scale and rating types;
// Rows and Columns apply to grid types only.
type Question struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Description string       `json:"description,omitempty"`
	Type        QuestionType `json:"type"`
	Required    bool         `json:"required"`
	Options     []string     `json:"options,omitempty"`
	Rows        []string     `json:"rows,omitempty"`
	Columns     []string     `json:"columns,omitempty"`
}

// Answer pairs a question id with a value whose shape follows the question type.
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      Value  `json:"value"`
}

// Response is one submitted answer set. It is immutable once stored.
type Response struct {
	ID          string    `json:"id"`
	SurveyID    string    `json:"surveyId"`
	UserEmail   string    `json:"userEmail,omitempty"`
	Answers     []Answer  `json:"answers"`
	SubmittedAt time.Time `json:"submittedAt"`
	TimeExpired bool      `json:"timeExpired,omitempty"`
}

// Question looks up a question by id.
func (s *Survey) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Expired reports whether the survey stopped accepting responses at now.
func (s *Survey) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Answer returns the first answer recorded for questionID.
func (r *Response) Answer(questionID string) (Value, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a.Value, true
		}
	}
	return Value{}, false
}
