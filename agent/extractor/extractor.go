// Package extractor holds the format-specific agents that turn raw
// content into structured records via the LLM collaborator. One type per
// format behind the contract.Extractor interface, selected through a
// Registry keyed by classified format.
package extractor

import (
	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
)

// SkippedStageName is the stage key used when no extractor is registered
// for a classified format.
const SkippedStageName = "Agent: None"

// Registry maps a classified format to its extractor. Formats without an
// entry are skipped by the orchestrator, not treated as errors.
type Registry map[contractx.Format]contractx.Extractor

// NewRegistry wires the default extractor per supported format.
func NewRegistry(generator contractx.TextGenerator) Registry {
	return Registry{
		contractx.FormatEmail: NewEmailAgent(generator),
		contractx.FormatJSON:  NewJSONAgent(generator),
		contractx.FormatPDF:   NewPDFAgent(generator),
	}
}

// SkippedRecord is the synthetic record persisted when a conversation's
// format has no registered extractor.
func SkippedRecord(format contractx.Format, intent contractx.Intent) contractx.Record {
	return contractx.Record{
		"status":            "skipped_specialized_agent",
		"message":           "No specific agent for this format.",
		"classified_format": string(format),
		"classified_intent": string(intent),
	}
}
