// Package llm defines the language model port and its typed result.
package llm

import (
	"context"
	"fmt"
)

// Kind classifies a failed generation.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
	KindBadResponse Kind = "bad_response"
	KindEmpty       Kind = "empty"
)

// Result is either an answer text or a classified failure, never both.
type Result struct {
	text   string
	kind   Kind
	detail string
}

// Answer returns a successful result.
func Answer(text string) Result { return Result{text: text} }

// Failure returns a failed result of the given kind.
func Failure(kind Kind, detail string) Result { return Result{kind: kind, detail: detail} }

// OK reports whether the result carries an answer.
func (r Result) OK() bool { return r.kind == "" }

// Text returns the answer text; empty on failure.
func (r Result) Text() string { return r.text }

// Kind returns the failure kind; empty on success.
func (r Result) Kind() Kind { return r.kind }

// Detail returns the failure description.
func (r Result) Detail() string { return r.detail }

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("llm %s: %s", r.kind, r.detail)
}

// LLM generates an answer for a fully built prompt.
// Implementations must not panic and report every failure through Result.
type LLM interface {
	Name() string
	Generate(ctx context.Context, prompt string) Result
}
