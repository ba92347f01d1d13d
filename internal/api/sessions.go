package api

import (
	"net/http"
	"time"

	"github.com/soaringjerry/Tally/internal/middleware"
	"github.com/soaringjerry/Tally/internal/models"
	"github.com/soaringjerry/Tally/internal/services"
	"github.com/soaringjerry/Tally/internal/utils"
)

// openSessionTTL bounds tokens for sessions without a deadline; timed sessions get a
// grace period past the deadline so a late submit still reaches the session.
const (
	openSessionTTL = 24 * time.Hour
	sessionGrace   = time.Hour
)

type sessionAnswers struct {
	UserEmail string          `json:"userEmail"`
	Answers   []models.Answer `json:"answers"`
}

// POST /api/sessions {surveyId, userEmail?} -> {token, session}
func (rt *Router) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SurveyID  string `json:"surveyId"`
		UserEmail string `json:"userEmail"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	info, err := rt.sessions.Start(r.Context(), req.SurveyID, req.UserEmail)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ttl := openSessionTTL
	if info.Deadline != nil {
		ttl = time.Until(*info.Deadline) + sessionGrace
	}
	token, err := middleware.SignSessionToken(info.ID, info.SurveyID, ttl)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "session": info, "deadline": info.Deadline})
}

// GET /api/sessions/current
func (rt *Router) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	id, _, _ := middleware.SessionFromContext(r.Context())
	info, err := rt.sessions.Session(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// PUT /api/sessions/draft {userEmail?, answers}
func (rt *Router) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	id, _, _ := middleware.SessionFromContext(r.Context())
	var req sessionAnswers
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := rt.sessions.SaveDraft(id, req.UserEmail, req.Answers); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// POST /api/sessions/submit {userEmail?, answers}
func (rt *Router) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	id, _, _ := middleware.SessionFromContext(r.Context())
	var req sessionAnswers
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := rt.sessions.Submit(r.Context(), id, req.UserEmail, req.Answers)
	if err != nil {
		if services.IsSessionClosed(err) {
			if prev, werr := rt.sessions.Wait(r.Context(), id); werr == nil && prev != nil {
				locale := middleware.LocaleFromContext(r.Context())
				writeJSON(w, http.StatusConflict, map[string]any{
					"error":    string(services.ErrorClosed),
					"message":  utils.T(locale, "error.closed"),
					"response": prev,
				})
				return
			}
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
