package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soaringjerry/Tally/internal/models"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sessionFixture struct {
	store   *stubStore
	clock   *manualClock
	fire    chan time.Time
	stopped chan struct{}
	mgr     *SessionManager
}

func newSessionFixture(t *testing.T, limit int) *sessionFixture {
	t.Helper()
	st := newStubStore()
	sv := requiredSurvey()
	sv.TimeLimit = limit
	_ = st.CreateSurvey(context.Background(), sv)
	clock := &manualClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewResponseService(st, "")
	svc.now = clock.Now
	f := &sessionFixture{store: st, clock: clock, fire: make(chan time.Time, 1), stopped: make(chan struct{}, 1)}
	mgr := NewSessionManager(svc, st)
	mgr.now = clock.Now
	mgr.after = func(time.Duration) (<-chan time.Time, func() bool) {
		return f.fire, func() bool { f.stopped <- struct{}{}; return true }
	}
	f.mgr = mgr
	t.Cleanup(mgr.Close)
	return f
}

func fullAnswers() []models.Answer {
	return []models.Answer{
		{QuestionID: "name", Value: models.Text("Ada")},
		{QuestionID: "langs", Value: models.List("Go")},
		{QuestionID: "grid", Value: models.RowChoices(map[string][]string{"r1": {"c1"}, "r2": {"c2"}})},
		{QuestionID: "radio", Value: models.RowChoice(map[string]string{"r1": "c1"})},
	}
}

func TestSessionUserSubmitWinsAndStopsTimer(t *testing.T) {
	f := newSessionFixture(t, 10)
	ctx := context.Background()
	info, err := f.mgr.Start(ctx, "s1", "ada@x")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if info.Deadline == nil || !info.Deadline.Equal(f.clock.Now().Add(10*time.Minute)) {
		t.Fatalf("deadline = %v", info.Deadline)
	}

	if _, err := f.mgr.Submit(ctx, info.ID, "", fullAnswers()[:1]); err == nil {
		t.Fatalf("incomplete user submit accepted")
	}
	resp, err := f.mgr.Submit(ctx, info.ID, "", fullAnswers())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.TimeExpired || resp.UserEmail != "ada@x" {
		t.Fatalf("response = %+v", resp)
	}
	select {
	case <-f.stopped:
	case <-time.After(time.Second):
		t.Fatalf("timer was not stopped after submit")
	}
	f.fire <- time.Now()
	if _, err := f.mgr.Submit(ctx, info.ID, "", fullAnswers()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("second submit err = %v, want ErrSessionClosed", err)
	}
	if err := f.mgr.SaveDraft(info.ID, "", nil); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("draft after close err = %v", err)
	}
	if len(f.store.responses) != 1 {
		t.Fatalf("stored %d responses, want exactly 1", len(f.store.responses))
	}
}

func TestSessionExpirySubmitsDraft(t *testing.T) {
	f := newSessionFixture(t, 1)
	ctx := context.Background()
	info, err := f.mgr.Start(ctx, "s1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	draft := []models.Answer{{QuestionID: "name", Value: models.Text("half done")}}
	if err := f.mgr.SaveDraft(info.ID, "late@x", draft); err != nil {
		t.Fatalf("draft: %v", err)
	}
	f.clock.Advance(time.Minute)
	f.fire <- f.clock.Now()

	resp, err := f.mgr.Wait(ctx, info.ID)
	if err != nil {
		t.Fatalf("auto-submit: %v", err)
	}
	if !resp.TimeExpired || resp.UserEmail != "late@x" || len(resp.Answers) != 1 {
		t.Fatalf("auto response = %+v", resp)
	}
	if _, err := f.mgr.Submit(ctx, info.ID, "", fullAnswers()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("user submit after expiry err = %v", err)
	}
	if s, _ := f.mgr.Session(info.ID); !s.Closed {
		t.Fatalf("session not marked closed")
	}
}

func TestSessionLateUserSubmitIsTimeExpired(t *testing.T) {
	f := newSessionFixture(t, 1)
	ctx := context.Background()
	info, _ := f.mgr.Start(ctx, "s1", "a@x")
	f.clock.Advance(2 * time.Minute)
	resp, err := f.mgr.Submit(ctx, info.ID, "", nil)
	if err != nil {
		t.Fatalf("late submit: %v", err)
	}
	if !resp.TimeExpired {
		t.Fatalf("late submit should take the time-expired path")
	}
}

func TestSessionErrors(t *testing.T) {
	f := newSessionFixture(t, 0)
	ctx := context.Background()
	if _, err := f.mgr.Start(ctx, "missing", ""); !errors.Is(err, ErrSurveyNotFound) {
		t.Fatalf("err = %v", err)
	}
	info, _ := f.mgr.Start(ctx, "s1", "")
	if info.Deadline != nil {
		t.Fatalf("unbounded survey got a deadline")
	}
	if _, err := f.mgr.Submit(ctx, "bogus", "", nil); err == nil {
		t.Fatalf("unknown session accepted")
	}
	if _, err := f.mgr.Submit(ctx, info.ID, "", fullAnswers()); !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("err = %v, want identity required", err)
	}
	f.mgr.Close()
	if _, err := f.mgr.Wait(ctx, info.ID); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("wait after close err = %v", err)
	}
}
