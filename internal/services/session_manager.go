package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/soaringjerry/Tally/internal/models"
)

// closedSessionRetention is how long a finished session still answers with its outcome.
const closedSessionRetention = time.Hour

// Submitter stores a submission; ResponseService implements it.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*models.Response, error)
}

type SurveyGetter interface {
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
}

// SessionInfo is the public view of a respondent session.
type SessionInfo struct {
	ID        string     `json:"id"`
	SurveyID  string     `json:"surveyId"`
	StartedAt time.Time  `json:"startedAt"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Closed    bool       `json:"closed"`
}

type submitResult struct {
	resp *models.Response
	err  error
}

type submitCall struct {
	ctx     context.Context
	email   string
	answers []models.Answer
	reply   chan submitResult
}

type session struct {
	id        string
	surveyID  string
	startedAt time.Time
	deadline  time.Time // zero when unbounded

	submits chan submitCall
	done    chan struct{}

	mu       sync.Mutex
	email    string
	draft    []models.Answer
	outcome  submitResult
	closedAt time.Time
}

func (s *session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := SessionInfo{ID: s.id, SurveyID: s.surveyID, StartedAt: s.startedAt, Closed: !s.closedAt.IsZero()}
	if !s.deadline.IsZero() {
		d := s.deadline
		out.Deadline = &d
	}
	return out
}

// SessionManager runs one goroutine per respondent session. User submits and the
// deadline timer feed the same select loop, so at most one submission per session is
// ever accepted.
type SessionManager struct {
	submitter   Submitter
	surveys     SurveyGetter
	now         func() time.Time
	idGenerator func() string
	after       func(d time.Duration) (<-chan time.Time, func() bool)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionManager(submitter Submitter, surveys SurveyGetter) *SessionManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionManager{
		submitter:   submitter,
		surveys:     surveys,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: func() string { return shortID(16) },
		after: func(d time.Duration) (<-chan time.Time, func() bool) {
			t := time.NewTimer(d)
			return t.C, t.Stop
		},
		ctx:      ctx,
		cancel:   cancel,
		sessions: map[string]*session{},
	}
}

// Start opens a session for surveyID. Surveys with a time limit get a deadline after
// which the current draft is submitted automatically.
func (m *SessionManager) Start(ctx context.Context, surveyID, email string) (SessionInfo, error) {
	survey, err := m.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return SessionInfo{}, err
	}
	if survey == nil {
		return SessionInfo{}, ErrSurveyNotFound
	}
	now := m.now()
	if survey.Expired(now) {
		return SessionInfo{}, ErrSurveyClosed
	}
	s := &session{
		id:        m.idGenerator(),
		surveyID:  survey.ID,
		startedAt: now,
		email:     strings.TrimSpace(email),
		submits:   make(chan submitCall),
		done:      make(chan struct{}),
	}
	var expire <-chan time.Time
	stop := func() bool { return false }
	if survey.TimeLimit > 0 {
		limit := time.Duration(survey.TimeLimit) * time.Minute
		s.deadline = now.Add(limit)
		expire, stop = m.after(limit)
	}

	m.mu.Lock()
	m.pruneLocked(now)
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(s, expire, stop)
	return s.info(), nil
}

func (m *SessionManager) run(s *session, expire <-chan time.Time, stop func() bool) {
	defer m.wg.Done()
	defer stop()
	for {
		select {
		case call := <-s.submits:
			email := call.email
			if email == "" {
				email = s.currentEmail()
			}
			expired := !s.deadline.IsZero() && !m.now().Before(s.deadline)
			resp, err := m.submitter.Submit(call.ctx, SubmitRequest{
				SurveyID:    s.surveyID,
				UserEmail:   email,
				Answers:     call.answers,
				TimeExpired: expired,
			})
			outcome := submitResult{resp: resp, err: err}
			if err == nil || expired {
				m.close(s, outcome)
				call.reply <- outcome
				return
			}
			call.reply <- outcome
		case <-expire:
			email, draft := s.snapshot()
			resp, err := m.submitter.Submit(m.ctx, SubmitRequest{
				SurveyID:    s.surveyID,
				UserEmail:   email,
				Answers:     draft,
				TimeExpired: true,
			})
			if err != nil {
				log.Printf("session %s: auto-submit failed: %v", s.id, err)
			} else {
				log.Printf("session %s: time limit reached, auto-submitted response %s", s.id, resp.ID)
			}
			m.close(s, submitResult{resp: resp, err: err})
			return
		case <-m.ctx.Done():
			m.close(s, submitResult{err: ErrSessionClosed})
			return
		}
	}
}

func (m *SessionManager) close(s *session, outcome submitResult) {
	s.mu.Lock()
	s.outcome = outcome
	s.closedAt = m.now()
	s.mu.Unlock()
	close(s.done)
}

func (s *session) currentEmail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

func (s *session) snapshot() (string, []models.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email, append([]models.Answer(nil), s.draft...)
}

func (m *SessionManager) lookup(id string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, NewNotFoundError("session not found")
	}
	return s, nil
}

// SaveDraft replaces the answers that an expiry will submit. A non-empty email also
// replaces the session email.
func (m *SessionManager) SaveDraft(id, email string, answers []models.Answer) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closedAt.IsZero() {
		return ErrSessionClosed
	}
	s.draft = append([]models.Answer(nil), answers...)
	if email = strings.TrimSpace(email); email != "" {
		s.email = email
	}
	return nil
}

// Submit hands a user submission to the session loop. A rejected submission leaves
// the session open; once any submission is accepted further calls get
// ErrSessionClosed.
func (m *SessionManager) Submit(ctx context.Context, id, email string, answers []models.Answer) (*models.Response, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	call := submitCall{ctx: ctx, email: strings.TrimSpace(email), answers: answers, reply: make(chan submitResult, 1)}
	select {
	case s.submits <- call:
	case <-s.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-call.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until the session closes and returns the accepted response, or the
// error of the closing attempt.
func (m *SessionManager) Wait(ctx context.Context, id string) (*models.Response, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome.resp, s.outcome.err
}

// Session returns the current view of a session.
func (m *SessionManager) Session(id string) (SessionInfo, error) {
	s, err := m.lookup(id)
	if err != nil {
		return SessionInfo{}, err
	}
	return s.info(), nil
}

func (m *SessionManager) pruneLocked(now time.Time) {
	for id, s := range m.sessions {
		s.mu.Lock()
		stale := !s.closedAt.IsZero() && now.Sub(s.closedAt) > closedSessionRetention
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
		}
	}
}

// Close stops every open session without submitting and waits for their loops.
func (m *SessionManager) Close() {
	m.cancel()
	m.wg.Wait()
}

// IsSessionClosed reports whether err means the session no longer accepts input.
func IsSessionClosed(err error) bool { return errors.Is(err, ErrSessionClosed) }
