package utils

import (
	"sort"
	"strconv"
	"strings"
)

// SupportedLocales are the locales the server has messages for.
var SupportedLocales = []string{"en", "es"}

// DetermineLocale resolves a locale from an explicit query param, then the
// Accept-Language header by q-value, then def. Regional tags fall back to their base
// language (es-MX -> es).
func DetermineLocale(queryLang, acceptLang string, supported []string, def string) string {
	sup := make(map[string]bool, len(supported))
	for _, s := range supported {
		sup[strings.ToLower(s)] = true
	}
	pick := func(lang string) (string, bool) {
		l := strings.ToLower(strings.TrimSpace(lang))
		if l == "" {
			return "", false
		}
		if sup[l] {
			return l, true
		}
		if base, _, ok := strings.Cut(l, "-"); ok && sup[base] {
			return base, true
		}
		return "", false
	}

	if v, ok := pick(queryLang); ok {
		return v
	}
	for _, tag := range parseAcceptLanguage(acceptLang) {
		if v, ok := pick(tag); ok {
			return v
		}
	}
	if v, ok := pick(def); ok {
		return v
	}
	if len(supported) > 0 {
		return strings.ToLower(supported[0])
	}
	return "en"
}

// parseAcceptLanguage returns the header's tags by descending q, keeping header order
// for ties and dropping q=0 entries.
func parseAcceptLanguage(header string) []string {
	type cand struct {
		tag string
		q   float64
	}
	var cands []cand
	for _, part := range strings.Split(header, ",") {
		tag, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		tag = strings.TrimSpace(tag)
		if tag == "" || tag == "*" {
			continue
		}
		q := 1.0
		for _, p := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok || strings.TrimSpace(k) != "q" {
				continue
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				q = f
			}
		}
		if q <= 0 {
			continue
		}
		cands = append(cands, cand{tag: tag, q: q})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].q > cands[j].q })
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.tag
	}
	return out
}
