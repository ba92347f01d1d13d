package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soaringjerry/Tally/internal/models"
	"github.com/soaringjerry/Tally/internal/services"
)

type submitRequest struct {
	SurveyID    string          `json:"surveyId"`
	UserEmail   string          `json:"userEmail"`
	Answers     []models.Answer `json:"answers"`
	TimeExpired bool            `json:"timeExpired"`
}

// POST /api/responses
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := rt.responses.Submit(r.Context(), services.SubmitRequest{
		SurveyID:    req.SurveyID,
		UserEmail:   req.UserEmail,
		Answers:     req.Answers,
		TimeExpired: req.TimeExpired,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GET /api/responses/survey/{id}
func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	list, err := rt.responses.ListResponses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
