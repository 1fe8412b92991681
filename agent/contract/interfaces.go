package contract

import "context"

// GenerateOptions tune a single collaborator call. Zero values fall back to
// the client's configured defaults.
type GenerateOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// TextGenerator is the LLM collaborator. Implementations are configured to
// bias toward emitting a single JSON object. A transport failure returns
// ("", err); callers treat that the same as malformed output.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Classifier determines the format and intent of raw input. Collaborator
// failures are folded into the returned record, never raised.
type Classifier interface {
	Classify(ctx context.Context, raw string) (Format, Intent, Record)
}

// Extractor turns raw content of one format into a structured record.
// Failures are folded into the record with an action tag steering the
// conversation to manual review.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, raw string) Record
}

// ActionRouter maps a record's action tag to a downstream call and persists
// the outcome. The returned error covers persistence only; routing itself
// never fails.
type ActionRouter interface {
	Route(ctx context.Context, conversationID string, rec Record) (Record, error)
}
