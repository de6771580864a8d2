package llm

import (
	"context"
	"iter"
)

// Turn is one completed exchange.
type Turn struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// History is the ordered conversation so far.
type History []Turn

// With returns a new history with t appended; h is left untouched.
func (h History) With(t Turn) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, t)
}

// State is an opaque continuation handle produced by a Model. The chat loop
// only threads it forward or replaces it with EmptyState.
type State struct {
	v any
}

// EmptyState starts a fresh decoder context.
var EmptyState = State{}

// NewState wraps a backend-specific value.
func NewState(v any) State { return State{v: v} }

// Empty reports whether s carries no continuation.
func (s State) Empty() bool { return s.v == nil }

// Value returns the backend-specific value. Only the Model that produced
// the state should call it.
func (s State) Value() any { return s.v }

// Params are the decoding parameters passed with every request.
type Params struct {
	TopP        float32
	Temperature float32
	MaxTokens   int
	// ReturnState asks the model to hand back an updated State with every Step.
	ReturnState bool
}

// DefaultParams is nucleus threshold 1.0 with near-greedy temperature.
func DefaultParams() Params {
	return Params{TopP: 1.0, Temperature: 0.01, MaxTokens: 2048, ReturnState: true}
}

// Step is one element of a streamed response. Text is the full response
// generated so far, not only the newest fragment.
type Step struct {
	Text    string
	History History
	State   State
}

// Model streams chat responses.
type Model interface {
	// StreamChat generates a response to query given history. Each Step
	// carries the cumulative text, the history extended with the current
	// (query, text) pair and the continuation state. Breaking out of the
	// range stops generation. An error ends the sequence.
	StreamChat(ctx context.Context, tok Tokenizer, query string, history History, params Params, state State) iter.Seq2[Step, error]
	Close() error
}

// Tokenizer turns text into token ids.
type Tokenizer interface {
	Encode(text string) ([]int, error)
}

// Backend is the model runtime: the loaders for both strategies and the
// tokenizer loader.
type Backend interface {
	Name() string
	// LoadBase loads a checkpoint from path.
	LoadBase(ctx context.Context, path string) (Model, error)
	// LoadAdapter loads the adapter at path on top of its base checkpoint and
	// reports the base model identifier to load the tokenizer from.
	LoadAdapter(ctx context.Context, path string) (Model, string, error)
	// LoadTokenizer loads the tokenizer identified by a path or model id.
	LoadTokenizer(ctx context.Context, id string) (Tokenizer, error)
}
