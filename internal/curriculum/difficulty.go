package curriculum

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// ParseDifficulty maps free-form input ("Hard", " EASY ") to a known
// difficulty. The second return value is false for anything unrecognised.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(folder.String(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy, true
	case DifficultyMedium:
		return DifficultyMedium, true
	case DifficultyHard:
		return DifficultyHard, true
	}
	return Difficulty(strings.TrimSpace(s)), false
}

// Normalize returns d in canonical form when it is recognised, and d
// unchanged otherwise.
func (d Difficulty) Normalize() Difficulty {
	parsed, _ := ParseDifficulty(string(d))
	return parsed
}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	_, ok := ParseDifficulty(string(d))
	return ok
}

// cleanName trims a display name and puts it in NFC form so that names
// typed on different platforms compare equal.
func cleanName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
