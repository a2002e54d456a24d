// Package textnorm turns raw text into the canonical token stream the feature
// extractor is trained on. The same function runs at training and inference
// time; any change here invalidates every trained artifact.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"truthlens/internal/lexicon"
)

var (
	// a URL runs to the next whitespace rune as unicode.IsSpace defines it
	urlPattern = regexp.MustCompile(`(?:http|www)[^\s\x{0B}\x{85}\p{Z}]+`)
	tagPattern = regexp.MustCompile(`<[^>]+>`)
)

// MinTokenLen is the shortest token kept.
const MinTokenLen = 3

// Normalize lower-cases text, strips URLs and HTML tags, replaces anything that
// is not a-z or whitespace with a space, splits on whitespace and drops short
// tokens and stop words.
func Normalize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	s := strings.ToLower(text)
	s = urlPattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(s, "")
	// removing a tag can splice "ht<b>tp..." into a URL
	s = urlPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) < MinTokenLen || lexicon.IsStopWord(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Join renders tokens as a single space-separated string.
func Join(tokens []string) string {
	return strings.Join(tokens, " ")
}

