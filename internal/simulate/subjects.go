package simulate

import (
	"regexp"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

var comparatorPattern = regexp.MustCompile(`(?i)\s+(?:vs\.?|versus|compared\s+to|against)\s+`)

// SplitSubjects breaks a free-text query into the subjects being compared.
// "bamboo fiber vs cotton" yields ["bamboo fiber", "cotton"]; a query with no
// comparator yields the whole query as a single subject. Results are
// deterministic for a given query.
func SplitSubjects(query string) []string {
	parts := comparatorPattern.Split(strings.TrimSpace(query), -1)

	subjects := make([]string, 0, len(parts))
	for _, part := range parts {
		subject := extractSubject(part)
		if subject != "" {
			subjects = append(subjects, subject)
		}
	}
	return subjects
}

// extractSubject reduces one side of a comparison to its noun phrase, so that
// "the recycled aluminum can" becomes "recycled aluminum can". Falls back to
// the trimmed input when tagging fails or finds no nouns.
func extractSubject(part string) string {
	trimmed := strings.TrimSpace(strings.Trim(part, ".,;:!?\"'"))
	if trimmed == "" {
		return ""
	}

	doc, err := prose.NewDocument(trimmed,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return trimmed
	}

	var words []string
	for _, tok := range doc.Tokens() {
		switch {
		case strings.HasPrefix(tok.Tag, "NN"), strings.HasPrefix(tok.Tag, "JJ"), tok.Tag == "VBN":
			words = append(words, tok.Text)
		}
	}
	if len(words) == 0 {
		return trimmed
	}
	return strings.Join(words, " ")
}
