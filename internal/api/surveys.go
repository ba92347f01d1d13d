package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/soaringjerry/Tally/internal/middleware"
	"github.com/soaringjerry/Tally/internal/models"
	"github.com/soaringjerry/Tally/internal/services"
	"github.com/soaringjerry/Tally/internal/utils"
)

// GET /health
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"status": utils.T(locale, "health.ok")})
}

// POST /api/auth/login {key}
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := rt.auth.Login(req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/surveys
func (rt *Router) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	var draft models.Survey
	if !decodeJSON(w, r, &draft) {
		return
	}
	sv, err := rt.surveys.CreateSurvey(r.Context(), &draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sv)
}

// GET /api/surveys
func (rt *Router) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	list, err := rt.surveys.ListSurveys(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"surveys": list})
}

// GET /api/surveys/{id}
func (rt *Router) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := rt.surveys.GetSurvey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

// PUT /api/surveys/{id}
func (rt *Router) handleUpdateSurvey(w http.ResponseWriter, r *http.Request) {
	var draft models.Survey
	if !decodeJSON(w, r, &draft) {
		return
	}
	sv, err := rt.surveys.UpdateSurvey(r.Context(), chi.URLParam(r, "id"), &draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

// DELETE /api/surveys/{id}
func (rt *Router) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := rt.surveys.DeleteSurvey(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.hub.CloseSurvey(id)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removedResponses": removed})
}

// GET /api/surveys/{id}/pages?per_page=
func (rt *Router) handlePages(w http.ResponseWriter, r *http.Request) {
	sv, err := rt.surveys.GetSurvey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	writeJSON(w, http.StatusOK, map[string]any{"surveyId": sv.ID, "pages": services.Pages(sv, perPage)})
}

// POST /api/surveys/{id}/validate {answers, partial?, page?, perPage?}
// Validation is advisory: nothing is stored and the verdicts are recomputed each call.
func (rt *Router) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers []models.Answer `json:"answers"`
		Partial []string        `json:"partial"`
		Page    *int            `json:"page"`
		PerPage int             `json:"perPage"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sv, err := rt.surveys.GetSurvey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var verdicts services.VerdictMap
	if req.Page != nil {
		verdicts, err = services.ValidatePage(sv, req.Answers, req.PerPage, *req.Page)
		if err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		verdicts = services.Validate(sv, req.Answers, services.ValidateOptions{Partial: req.Partial})
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": verdicts.Valid(), "verdicts": verdicts})
}
