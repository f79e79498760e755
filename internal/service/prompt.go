package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
)

// DefaultMaxContextChars bounds the context section of a prompt.
const DefaultMaxContextChars = 6000

const contextSeparator = "\n\n"

const promptTemplate = `You are a helpful assistant that answers questions about the user's documents.

Guidelines:
- Answer using only the information provided in the context below.
- If the context does not contain the answer, say that you don't know.
- Be concise, and quote the documents when it helps.

Context from documents:
%s

Question: %s`

// BuildPrompt renders the instruction template with the retrieved chunks in
// rank order followed by the query. Whole chunks are added while they fit in
// maxChars; a first chunk that alone exceeds the budget is cut. It returns the
// results whose text made it into the prompt.
func BuildPrompt(query string, results []domain.SearchResult, maxChars int) (string, []domain.SearchResult) {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	var b strings.Builder
	var used []domain.SearchResult
	size := 0
	for _, r := range results {
		text := r.Chunk.Text
		n := utf8.RuneCountInString(text)
		if len(used) > 0 {
			n += utf8.RuneCountInString(contextSeparator)
		}
		if size+n > maxChars {
			if len(used) == 0 {
				b.WriteString(truncateRunes(text, maxChars))
				used = append(used, r)
			}
			break
		}
		if len(used) > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(text)
		size += n
		used = append(used, r)
	}
	return fmt.Sprintf(promptTemplate, b.String(), query), used
}

// Sources returns the distinct filenames of results in first-appearance order.
func Sources(results []domain.SearchResult) []string {
	seen := make(map[string]struct{}, len(results))
	out := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Chunk.Filename]; ok {
			continue
		}
		seen[r.Chunk.Filename] = struct{}{}
		out = append(out, r.Chunk.Filename)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
