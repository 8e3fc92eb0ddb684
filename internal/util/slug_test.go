package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Spring Comic", "spring-comic"},
		{"spring_comic", "spring-comic"},
		{"SPRING-COMIC!", "spring-comic"},
		{"  multi   word ", "multi-word"},
		{"--leading--", "leading"},
		{"a/b", "a-b"},
		{"🐉 Dragons!", "dragons"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
