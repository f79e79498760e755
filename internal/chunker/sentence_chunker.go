package chunker

import (
	"regexp"
	"strings"

	"docrag/internal/domain"
)

// Ensure SentenceChunker implements the interface.
var _ domain.Chunker = (*SentenceChunker)(nil)

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Chunk groups sentences of text into chunks. A trailing fragment without
// terminal punctuation becomes its own sentence instead of being dropped.
func (c *SentenceChunker) Chunk(filename, text string) []domain.Chunk {
	sentences := c.sentences(text)
	if len(sentences) == 0 {
		return nil
	}
	var chunks []domain.Chunk
	i := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, domain.Chunk{
			Filename: filename,
			Index:    len(chunks),
			Text:     strings.Join(sentences[i:end], " "),
		})
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks
}

func (c *SentenceChunker) sentences(text string) []string {
	var out []string
	consumed := 0
	for _, loc := range c.splitter.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		consumed = loc[1]
	}
	if rest := strings.TrimSpace(text[consumed:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
