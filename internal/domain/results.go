package domain

import "time"

// IngestStatus is the per-file outcome of an ingestion attempt.
type IngestStatus string

const (
	StatusProcessed IngestStatus = "processed"
	StatusSkipped   IngestStatus = "skipped"
	StatusError     IngestStatus = "error"
)

// IngestOutcome reports what happened to a single file.
type IngestOutcome struct {
	Filename   string       `json:"filename"`
	Status     IngestStatus `json:"status"`
	ChunkCount int          `json:"chunk_count"`
	Reason     string       `json:"reason,omitempty"`
	Warning    string       `json:"warning,omitempty"`
}

// IngestReport aggregates the outcomes of a batch ingestion.
type IngestReport struct {
	Processed   []IngestOutcome `json:"processed"`
	Skipped     []string        `json:"skipped"`
	Errors      []IngestOutcome `json:"errors"`
	TotalChunks int             `json:"total_chunks"`
}

// NewIngestReport returns a report with non-nil, empty lists.
func NewIngestReport() IngestReport {
	return IngestReport{
		Processed: []IngestOutcome{},
		Skipped:   []string{},
		Errors:    []IngestOutcome{},
	}
}

// Add records an outcome in the matching list.
func (r *IngestReport) Add(o IngestOutcome) {
	switch o.Status {
	case StatusProcessed:
		r.Processed = append(r.Processed, o)
		r.TotalChunks += o.ChunkCount
	case StatusSkipped:
		r.Skipped = append(r.Skipped, o.Filename)
	default:
		r.Errors = append(r.Errors, o)
	}
}

// Answer is the caller-visible result of a query.
type Answer struct {
	Text      string   `json:"answer"`
	Sources   []string `json:"sources"`
	Failed    bool     `json:"failed,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
}

// TurnState is a state of the query orchestration state machine.
type TurnState string

const (
	StateReceivedQuery TurnState = "ReceivedQuery"
	StateEmbedded      TurnState = "Embedded"
	StateRetrieved     TurnState = "Retrieved"
	StatePromptBuilt   TurnState = "PromptBuilt"
	StateAnswered      TurnState = "Answered"
	StateFailed        TurnState = "Failed"
)

// Terminal reports whether no further transition is possible.
func (s TurnState) Terminal() bool {
	return s == StateAnswered || s == StateFailed
}

// ConversationTurn is one query/answer exchange. It is never persisted.
type ConversationTurn struct {
	ID        string
	Query     string
	Evidence  []SearchResult
	Answer    Answer
	State     TurnState
	StartedAt time.Time
	Duration  time.Duration
}
