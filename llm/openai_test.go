package llm

import "testing"

func TestFirstLine(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{"plain citation", "Mosiah 2:17", "Mosiah 2:17"},
		{"surrounding whitespace", "  John 3:16  \n", "John 3:16"},
		{"quoted", `"2 Nephi 2:25"`, "2 Nephi 2:25"},
		{"leading blank lines", "\n\nAlma 32:21\nextra prose", "Alma 32:21"},
		{"empty", "   \n  \n", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FirstLine(tc.reply); got != tc.want {
				t.Errorf("FirstLine(%q) = %q, want %q", tc.reply, got, tc.want)
			}
		})
	}
}

func TestNewOpenAISuggesterRequiresKey(t *testing.T) {
	if _, err := NewOpenAISuggester("", "", 0); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
