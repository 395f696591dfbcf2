// Package scripture parses, normalizes, and compares scripture citations.
package scripture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Reference is a canonical scripture reference: one book, one chapter, and an
// inclusive verse interval. Single-verse references have End == Start.
type Reference struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// ParseError reports a citation that could not be parsed or normalized.
// Malformed input is always rejected, never guessed at.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid citation %q: %s", e.Input, e.Reason)
}

// citationGrammar is the participle grammar for human citations.
// Examples: "2 Nephi 2:25", "2 Ne. 2:25-27", "Song of Solomon 2:1", "John 3:16".
type citationGrammar struct {
	BookNum  *string  `parser:"@Int?"`
	BookName []string `parser:"@Word+"`
	Chapter  int      `parser:"@Int"`
	Start    int      `parser:"':' @Int"`
	End      *int     `parser:"(Dash @Int)?"`
}

// citationLexer tokenizes citations. Word allows interior periods and
// apostrophes so abbreviations like "Ne." survive as one token; Dash accepts
// hyphen, en-dash, and em-dash as equivalent range separators.
var citationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Word", Pattern: `[A-Za-z][A-Za-z.']*`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Dash", Pattern: `[-–—]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var citationParser = participle.MustBuild[citationGrammar](
	participle.Lexer(citationLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a free-text citation into a canonical Reference.
// The book name is resolved against the canon table (case- and
// punctuation-insensitive); unrecognized books and non-positive or inverted
// verse fields are rejected with a ParseError.
func Parse(s string) (Reference, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Reference{}, &ParseError{Input: s, Reason: "empty citation"}
	}
	// "D&C 4:2" reads as "D and C 4:2".
	trimmed = strings.ReplaceAll(trimmed, "&", " and ")

	parsed, err := citationParser.ParseString("", trimmed)
	if err != nil {
		return Reference{}, &ParseError{Input: s, Reason: fmt.Sprintf("expected <book> <chapter>:<verse>[-<verse>]: %v", err)}
	}

	bookParts := make([]string, 0, len(parsed.BookName)+1)
	if parsed.BookNum != nil {
		bookParts = append(bookParts, *parsed.BookNum)
	}
	bookParts = append(bookParts, parsed.BookName...)
	rawBook := strings.Join(bookParts, " ")

	canonical, ok := CanonicalBook(rawBook)
	if !ok {
		return Reference{}, &ParseError{Input: s, Reason: fmt.Sprintf("unrecognized book %q", rawBook)}
	}

	ref := Reference{
		Book:    canonical,
		Chapter: parsed.Chapter,
		Start:   parsed.Start,
		End:     parsed.Start,
	}
	if parsed.End != nil {
		ref.End = *parsed.End
	}

	if ref.Chapter < 1 {
		return Reference{}, &ParseError{Input: s, Reason: "chapter must be positive"}
	}
	if ref.Start < 1 {
		return Reference{}, &ParseError{Input: s, Reason: "verse must be positive"}
	}
	if ref.End < ref.Start {
		return Reference{}, &ParseError{Input: s, Reason: fmt.Sprintf("range end %d precedes start %d", ref.End, ref.Start)}
	}
	return ref, nil
}

// String renders the canonical citation form, e.g. "2 Nephi 2:25-27".
// Parsing the result yields an equal Reference (round-trip stable).
func (r Reference) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(r.Chapter))
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(r.Start))
	if r.End > r.Start {
		sb.WriteByte('-')
		sb.WriteString(strconv.Itoa(r.End))
	}
	return sb.String()
}

// Key returns a normalized comparison key for the reference.
func (r Reference) Key() string {
	return fmt.Sprintf("%s %d:%d-%d", normalizeBookKey(r.Book), r.Chapter, r.Start, r.End)
}

// IsZero reports whether the reference is the zero value.
func (r Reference) IsZero() bool {
	return r.Book == "" && r.Chapter == 0 && r.Start == 0 && r.End == 0
}
