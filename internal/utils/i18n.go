package utils

// Minimal server-side i18n for fixed keys.
// UI strings should live in the frontend; server provides only essentials.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":               "ok",
		"error.invalid":           "The request is invalid.",
		"error.forbidden":         "You are not allowed to do that.",
		"error.not_found":         "Not found.",
		"error.conflict":          "The request conflicts with the current state.",
		"error.unauthorized":      "Authentication required.",
		"error.identity_required": "Please enter your institutional email to submit.",
		"error.schema_mismatch":   "An answer does not match its question.",
		"error.validation_failed": "Please answer all required questions.",
		"error.closed":            "This survey is no longer accepting responses.",
		"error.internal":          "Something went wrong.",
	},
	"es": {
		"health.ok":               "bien",
		"error.invalid":           "La solicitud no es válida.",
		"error.forbidden":         "No tiene permiso para hacer eso.",
		"error.not_found":         "No encontrado.",
		"error.conflict":          "La solicitud entra en conflicto con el estado actual.",
		"error.unauthorized":      "Se requiere autenticación.",
		"error.identity_required": "Ingrese su correo institucional para enviar.",
		"error.schema_mismatch":   "Una respuesta no coincide con su pregunta.",
		"error.validation_failed": "Responda todas las preguntas obligatorias.",
		"error.closed":            "Esta encuesta ya no acepta respuestas.",
		"error.internal":          "Algo salió mal.",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}
