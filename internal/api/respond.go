package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/soaringjerry/Tally/internal/middleware"
	"github.com/soaringjerry/Tally/internal/services"
	"github.com/soaringjerry/Tally/internal/utils"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error    string              `json:"error"`
	Message  string              `json:"message"`
	Detail   string              `json:"detail,omitempty"`
	Verdicts services.VerdictMap `json:"verdicts,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid, services.ErrorValidation:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorIdentityRequired, services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict, services.ErrorClosed:
		return http.StatusConflict
	case services.ErrorSchemaMismatch:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError renders service errors with a localized message; anything else is logged
// and reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	se, ok := services.AsServiceError(err)
	if !ok {
		log.Printf("api: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: utils.T(locale, "error.internal")})
		return
	}
	body := errorBody{Error: string(se.Code), Message: utils.T(locale, "error."+string(se.Code)), Detail: err.Error()}
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		body.Verdicts = ve.Verdicts
	}
	writeJSON(w, statusFor(se.Code), body)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, services.NewInvalidError("malformed JSON body: "+err.Error()))
		return false
	}
	return true
}
