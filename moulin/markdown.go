package moulin

import (
	"regexp"
	"strings"
)

var (
	runsOfBlank = regexp.MustCompile(`\n{3,}`)
	// A bullet line: optional indentation, then either "•" (spaces after it
	// optional) or "- ". Indentation is consumed so the final whole-text trim
	// can never expose a form this step would rewrite on a second pass —
	// Normalize must stay idempotent for arbitrary input.
	bulletLead = regexp.MustCompile(`(?m)^[ \t]*(?:•[ \t]*|- )`)
)

// Normalize canonicalizes extracted text into its final Markdown shape.
// Steps, in order: strip carriage returns, collapse runs of three or more
// newlines to exactly two, rewrite line-leading "•" or "- " bullets to a
// canonical "- ", trim surrounding whitespace. Pure and idempotent:
// Normalize(Normalize(x)) == Normalize(x).
//
// The dispatcher applies it exactly once to every strategy's raw output;
// strategies never call it themselves.
func Normalize(text string) string {
	s := strings.ReplaceAll(text, "\r", "")
	s = runsOfBlank.ReplaceAllString(s, "\n\n")
	s = bulletLead.ReplaceAllString(s, "- ")
	return strings.TrimSpace(s)
}
