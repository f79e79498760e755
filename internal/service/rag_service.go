package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docrag/internal/domain"
	"docrag/internal/llm"
	"docrag/internal/logger"
)

// Default query settings.
const (
	DefaultTopK              = 5
	DefaultMinScore          = -1.0
	DefaultEmbedTimeout      = 30 * time.Second
	DefaultGenerationTimeout = 60 * time.Second
)

// Canned answers that never reach the LLM.
const (
	NoDocumentsAnswer = "I don't have any documents loaded yet to answer your question.\n\n" +
		"Add some PDF or Word documents first, then ask your question again."
	NoRelevantAnswer = "I couldn't find relevant information in the loaded documents to answer your question.\n\n" +
		"Try rephrasing the question with different keywords, or add documents that cover the topic."
)

// errorPrefix marks answers that report a failure instead of answering.
const errorPrefix = "Error: "

// Retriever is the read side of the vector store.
type Retriever interface {
	Search(query []float32, k int) ([]domain.SearchResult, error)
	Len() int
}

// QueryOptions tunes retrieval and generation.
type QueryOptions struct {
	TopK              int
	MaxContextChars   int
	MinScore          float64
	EmbedTimeout      time.Duration
	GenerationTimeout time.Duration
}

func (o *QueryOptions) applyDefaults() {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxContextChars <= 0 {
		o.MaxContextChars = DefaultMaxContextChars
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = DefaultEmbedTimeout
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = DefaultGenerationTimeout
	}
}

// RAGService answers questions from the stored documents. It holds no store
// lock across embedding or generation calls.
type RAGService struct {
	embedder domain.Embedder
	store    Retriever
	llm      llm.LLM
	opts     QueryOptions
	now      func() time.Time
}

// NewRAGService creates the query orchestrator; zero options take defaults.
func NewRAGService(embedder domain.Embedder, store Retriever, model llm.LLM, opts QueryOptions) *RAGService {
	opts.applyDefaults()
	return &RAGService{embedder: embedder, store: store, llm: model, opts: opts, now: time.Now}
}

// Ask returns the answer for query.
func (s *RAGService) Ask(ctx context.Context, query string) domain.Answer {
	return s.Query(ctx, query).Answer
}

// Query runs one turn of the orchestration state machine. The returned turn
// is always terminal and always carries a well-formed answer.
func (s *RAGService) Query(ctx context.Context, query string) (turn domain.ConversationTurn) {
	turn = domain.ConversationTurn{
		ID:        uuid.NewString(),
		Query:     query,
		State:     domain.StateReceivedQuery,
		StartedAt: s.now(),
	}
	defer func() {
		turn.Duration = s.now().Sub(turn.StartedAt)
		logger.Info("turn %s finished in %s: state=%s sources=%d", turn.ID, turn.Duration.Round(time.Millisecond), turn.State, len(turn.Answer.Sources))
	}()
	logger.Debug("turn %s: %s", turn.ID, turn.State)

	if strings.TrimSpace(query) == "" {
		s.fail(&turn, fmt.Errorf("%w: empty query", domain.ErrInvalidInput), "the question is empty.")
		return turn
	}

	if s.store.Len() == 0 {
		s.answer(&turn, domain.Answer{Text: NoDocumentsAnswer, Sources: []string{}})
		return turn
	}

	ectx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	qv, err := s.embedder.Embed(ectx, query)
	cancel()
	if err != nil {
		s.fail(&turn, fmt.Errorf("%w: embed query: %w", domain.ErrRetrievalUnavailable, err),
			"the document index could not be searched right now. Please try again later.")
		return turn
	}
	s.advance(&turn, domain.StateEmbedded)

	results, err := s.store.Search(qv, s.opts.TopK)
	if err != nil {
		s.fail(&turn, fmt.Errorf("%w: search: %w", domain.ErrRetrievalUnavailable, err),
			"the document index could not be searched right now. Please try again later.")
		return turn
	}
	results = filterByScore(results, s.opts.MinScore)
	turn.Evidence = results
	s.advance(&turn, domain.StateRetrieved)

	if len(results) == 0 {
		s.answer(&turn, domain.Answer{Text: NoRelevantAnswer, Sources: []string{}})
		return turn
	}
	prompt, used := BuildPrompt(query, results, s.opts.MaxContextChars)
	s.advance(&turn, domain.StatePromptBuilt)

	gctx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	res := s.llm.Generate(gctx, prompt)
	cancel()
	if !res.OK() {
		s.fail(&turn, fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, res.Err()),
			fmt.Sprintf("the language model could not produce an answer (%s). Please try again later.", res.Kind()))
		return turn
	}
	s.answer(&turn, domain.Answer{Text: res.Text(), Sources: Sources(used)})
	return turn
}

// Suggestions returns starter questions suited to the store contents.
func (s *RAGService) Suggestions() []string {
	if s.store.Len() == 0 {
		return []string{
			"Add some documents first to get started!",
			"Try ingesting PDF or Word files with content you'd like to explore.",
		}
	}
	return []string{
		"What is the main topic discussed in the documents?",
		"Can you summarize the key points?",
		"What are the important details mentioned?",
		"Are there any specific procedures or steps outlined?",
		"What conclusions or recommendations are made?",
	}
}

func (s *RAGService) advance(turn *domain.ConversationTurn, next domain.TurnState) {
	turn.State = next
	logger.Debug("turn %s: %s", turn.ID, next)
}

func (s *RAGService) answer(turn *domain.ConversationTurn, a domain.Answer) {
	turn.Answer = a
	s.advance(turn, domain.StateAnswered)
}

func (s *RAGService) fail(turn *domain.ConversationTurn, err error, message string) {
	turn.Answer = domain.Answer{
		Text:      errorPrefix + message,
		Sources:   []string{},
		Failed:    true,
		ErrorKind: domain.ErrorKind(err),
	}
	turn.Evidence = nil
	logger.Warn("turn %s failed in %s: %v", turn.ID, turn.State, err)
	s.advance(turn, domain.StateFailed)
}

// IsErrorAnswer reports whether text is a marked failure message.
func IsErrorAnswer(text string) bool { return strings.HasPrefix(text, errorPrefix) }

func filterByScore(results []domain.SearchResult, minScore float64) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= minScore {
			out = append(out, r)
		}
	}
	return out
}
