package curriculum

import "testing"

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in     string
		want   Difficulty
		wantOK bool
	}{
		{"easy", DifficultyEasy, true},
		{"Hard", DifficultyHard, true},
		{" MEDIUM ", DifficultyMedium, true},
		{"", "", false},
		{"expert", "expert", false},
		{" beginner ", "beginner", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDifficulty(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseDifficulty(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDifficulty_NormalizeAndValid(t *testing.T) {
	if got := Difficulty("EASY").Normalize(); got != DifficultyEasy {
		t.Errorf("Normalize(EASY) = %q, want easy", got)
	}
	if got := Difficulty("unknown").Normalize(); got != "unknown" {
		t.Errorf("Normalize(unknown) = %q, want unchanged", got)
	}
	if !Difficulty("Hard").Valid() {
		t.Error("Hard should be valid")
	}
	if Difficulty("").Valid() {
		t.Error("empty difficulty should not be valid")
	}
}

func TestCleanName(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	if got := cleanName("  Cafe\u0301 "); got != "Caf\u00e9" {
		t.Errorf("cleanName() = %q, want NFC form", got)
	}
}
