package evidence

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPassage_Snippet(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"collapses newlines", "line one\nline two\n\tline three", 0, "line one line two line three"},
		{"truncates", strings.Repeat("a", 30), 10, "aaaaaaaaaa"},
		{"truncates multi-byte text on rune boundaries", strings.Repeat("é", 200), 10, strings.Repeat("é", 10)},
		{"short text untouched", "short", 220, "short"},
		{"trims", "  padded  ", 220, "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Passage{DocID: "d", Location: "l", Text: tt.text}
			if got := p.Snippet(tt.max); got != tt.want {
				t.Errorf("Snippet(%d) = %q, want %q", tt.max, got, tt.want)
			}
		})
	}
}

func TestPassage_Snippet_ValidUTF8(t *testing.T) {
	p := Passage{DocID: "d", Location: "l", Text: strings.Repeat("é", 200)}
	got := p.Snippet(219)
	if !utf8.ValidString(got) {
		t.Errorf("Snippet(219) = %q, must be valid UTF-8", got)
	}
	if want := strings.Repeat("é", 200); got != want {
		t.Errorf("Snippet(219) = %q, want %q", got, want)
	}
}

func TestPassage_Snippet_NewlineFree(t *testing.T) {
	p := Passage{Text: "a\nb\r\nc\td"}
	got := p.Snippet(220)
	if strings.ContainsAny(got, "\n\r\t") {
		t.Errorf("Snippet() = %q, must be newline-free", got)
	}
}
