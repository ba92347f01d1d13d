package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/soaringjerry/Tally/internal/services"
)

const qrSize = 256

// GET /api/surveys/{id}/stats?expanded=key&expanded=key2
// The respondent expansion state belongs to the caller. Sending any expanded
// parameter, even empty, marks it initialized so the first key is not auto-expanded.
func (rt *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := services.ExpansionState{}
	if q.Has("expanded") {
		state.Initialized = true
		state.Expanded = map[string]bool{}
		for _, k := range q["expanded"] {
			if k != "" {
				state.Expanded[k] = true
			}
		}
	}
	summary, err := rt.analytics.Summary(r.Context(), chi.URLParam(r, "id"), state)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /api/surveys/{id}/export?format=csv|long|xlsx|pdf|json
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := rt.exports.Export(r.Context(), services.ExportParams{
		SurveyID: chi.URLParam(r, "id"),
		Format:   r.URL.Query().Get("format"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	_, _ = w.Write(res.Data)
}

// GET /api/surveys/{id}/live (websocket)
func (rt *Router) handleLive(w http.ResponseWriter, r *http.Request) {
	if err := rt.live.Serve(r.Context(), w, r, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
	}
}

// shareURL is the public address respondents open for a survey.
func (rt *Router) shareURL(r *http.Request, id string) string {
	base := rt.opts.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/survey/" + url.PathEscape(id)
}

// GET /api/surveys/{id}/link
func (rt *Router) handleLink(w http.ResponseWriter, r *http.Request) {
	sv, err := rt.surveys.GetSurvey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"surveyId": sv.ID, "url": rt.shareURL(r, sv.ID)})
}

// GET /api/surveys/{id}/qr
func (rt *Router) handleQR(w http.ResponseWriter, r *http.Request) {
	sv, err := rt.surveys.GetSurvey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	png, err := qrcode.Encode(rt.shareURL(r, sv.ID), qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
