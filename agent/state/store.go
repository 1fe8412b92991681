package state

import (
	"context"
	"errors"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
)

var (
	ErrInvalidConversation = errors.New("conversation id is empty")
	ErrEmptyStage          = errors.New("stage name is empty")
)

const (
	metadataKeyPrefix  = "input_metadata"
	extractedKeyPrefix = "extracted_data"

	// MetadataTimestampField is written by the store on every metadata save
	// as float seconds since epoch.
	MetadataTimestampField = "timestamp"
)

// Context is the full accumulated state of one conversation: its input
// metadata plus every stage's extracted record, keyed by stage name. A
// stage value that fails to parse back as JSON is surfaced as the raw
// string rather than failing retrieval.
type Context struct {
	InputMetadata map[string]any `json:"input_metadata"`
	ExtractedData map[string]any `json:"extracted_data"`
}

// Store is the per-conversation persistence contract used by the
// orchestrator and the action router.
type Store interface {
	SaveInputMetadata(ctx context.Context, conversationID string, metadata map[string]string) error
	SaveExtractedData(ctx context.Context, conversationID, stage string, data contractx.Record) error
	GetConversationContext(ctx context.Context, conversationID string) (*Context, error)
	ClearContext(ctx context.Context, conversationID string) error

	// Ping verifies connectivity. Call it once at startup; an unreachable
	// store must refuse to start the process.
	Ping(ctx context.Context) error
}
