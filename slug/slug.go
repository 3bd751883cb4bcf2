package slug

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultID id di fallback quando il titolo non produce nessuno slug
const DefaultID = "card"

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	separators   = regexp.MustCompile(`[\s-]+`)
)

// Make genera uno slug id da un titolo
// Es: "La Porta Segreta!" -> "la_porta_segreta"
func Make(title string, maxLen int) string {
	s := strings.ToLower(title)
	s = invalidChars.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
		s = strings.Trim(s, "_")
	}

	if s == "" {
		return DefaultID
	}
	return s
}

// Disambiguate rende unico un id aggiungendo un suffisso numerico
// Es: "intro" già preso -> "intro_1", "intro_2", ...
func Disambiguate(id string, taken map[string]bool) string {
	if !taken[id] {
		return id
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", id, i)
		if !taken[candidate] {
			return candidate
		}
	}
}
