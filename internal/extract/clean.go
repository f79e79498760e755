package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	disallowedRe = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?;:()\-'"“”‘’]`)
	spaceRe      = regexp.MustCompile(`\s+`)
	wordRe       = regexp.MustCompile(`\S+`)
)

// Clean normalises extracted text for chunking: symbols outside basic
// punctuation become spaces and whitespace runs collapse to a single space.
func Clean(text string) string {
	text = disallowedRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// TextStats describes extracted text.
type TextStats struct {
	Characters int
	Words      int
}

// Stats counts characters (runes) and whitespace-separated words.
func Stats(text string) TextStats {
	return TextStats{
		Characters: utf8.RuneCountInString(text),
		Words:      len(wordRe.FindAllStringIndex(text, -1)),
	}
}
