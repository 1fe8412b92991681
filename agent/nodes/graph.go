// Package nodes holds the pipeline steps the orchestrator composes into
// its processing graph. Each node takes the accumulated GraphState,
// performs one stage, and hands the state on; per-stage failures are
// folded into persisted records so the run always reaches the end.
package nodes

import (
	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
	statex "github.com/flowbit-ai/intake-agent/agent/state"
)

// GraphInput starts one orchestration run.
type GraphInput struct {
	SourceType string
	Content    string
}

// GraphState is threaded through the pipeline nodes.
type GraphState struct {
	ConversationID string
	SourceType     string
	RawContent     string

	Format contractx.Format
	Intent contractx.Intent

	ExtractionStage string
	Extraction      contractx.Record

	Outcome contractx.Record

	Context *statex.Context
}

// GraphOutput is the terminal result: the full accumulated conversation
// context plus the id it lives under.
type GraphOutput struct {
	ConversationID string
	Context        *statex.Context
}
