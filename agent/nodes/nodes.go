package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	classifierx "github.com/flowbit-ai/intake-agent/agent/classifier"
	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
	"github.com/flowbit-ai/intake-agent/agent/extractor"
	statex "github.com/flowbit-ai/intake-agent/agent/state"
)

const (
	// RawInputStageName labels the stage holding the untouched input body.
	RawInputStageName = "RawInput"

	rawPreviewRunes = 200
)

// ValidateRequest rejects blank input and stamps a fresh conversation id.
func ValidateRequest(in GraphInput, newID func() string) (*GraphState, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: input content is empty", contractx.ErrValidation)
	}
	st := &GraphState{
		ConversationID: newID(),
		SourceType:     in.SourceType,
		RawContent:     in.Content,
	}
	log.Info().
		Str("conversation_id", st.ConversationID).
		Str("source_type", st.SourceType).
		Msg("processing input")
	return st, nil
}

// SaveInputMetadata persists the hash fields describing the raw input and
// the RawInput stage blob carrying the full content.
func SaveInputMetadata(ctx context.Context, st *GraphState, store statex.Store) (*GraphState, error) {
	meta := map[string]string{
		"source_type":         st.SourceType,
		"raw_content_preview": previewOf(st.RawContent),
	}
	if err := store.SaveInputMetadata(ctx, st.ConversationID, meta); err != nil {
		return nil, fmt.Errorf("save input metadata: %w", err)
	}
	raw := contractx.Record{"content": st.RawContent}
	if err := store.SaveExtractedData(ctx, st.ConversationID, RawInputStageName, raw); err != nil {
		return nil, fmt.Errorf("save raw input stage: %w", err)
	}
	return st, nil
}

// Classify runs the classifier and persists its verdict.
func Classify(ctx context.Context, st *GraphState, store statex.Store, classifier contractx.Classifier) (*GraphState, error) {
	format, intent, raw := classifier.Classify(ctx, st.RawContent)
	st.Format = format
	st.Intent = intent

	rec := contractx.Record{
		"format":     string(format),
		"intent":     string(intent),
		"raw_output": map[string]any(raw),
	}
	if err := store.SaveExtractedData(ctx, st.ConversationID, classifierx.StageName, rec); err != nil {
		return nil, fmt.Errorf("save classifier stage: %w", err)
	}
	log.Info().
		Str("conversation_id", st.ConversationID).
		Str("format", string(format)).
		Str("intent", string(intent)).
		Msg("input classified")
	return st, nil
}

// DispatchExtractor selects the specialist for the classified format.
// Formats without a registered specialist get the skip record instead.
func DispatchExtractor(ctx context.Context, st *GraphState, store statex.Store, registry extractor.Registry) (*GraphState, error) {
	spec, ok := registry[st.Format]
	if !ok {
		st.ExtractionStage = extractor.SkippedStageName
		st.Extraction = extractor.SkippedRecord(st.Format, st.Intent)
	} else {
		st.ExtractionStage = spec.Name()
		st.Extraction = spec.Extract(ctx, st.RawContent)
	}
	if err := store.SaveExtractedData(ctx, st.ConversationID, st.ExtractionStage, st.Extraction); err != nil {
		return nil, fmt.Errorf("save extraction stage: %w", err)
	}
	return st, nil
}

// RouteAction forwards the extraction to the action router when it carries
// an action tag. Records without one short-circuit to an in-memory skip
// outcome that is intentionally not persisted.
func RouteAction(ctx context.Context, st *GraphState, router contractx.ActionRouter) (*GraphState, error) {
	if !st.Extraction.HasActionType() {
		st.Outcome = contractx.Record{
			"action_triggered": "No Action",
			"action_status":    "skipped",
			"reason":           "Extracted data did not contain an action type.",
		}
		return st, nil
	}
	outcome, err := router.Route(ctx, st.ConversationID, st.Extraction)
	if err != nil {
		return nil, fmt.Errorf("route action: %w", err)
	}
	st.Outcome = outcome
	return st, nil
}

// FinalizeContext reads back everything accumulated for the conversation.
func FinalizeContext(ctx context.Context, st *GraphState, store statex.Store) (GraphOutput, error) {
	cc, err := store.GetConversationContext(ctx, st.ConversationID)
	if err != nil {
		return GraphOutput{}, fmt.Errorf("load conversation context: %w", err)
	}
	st.Context = cc
	return GraphOutput{ConversationID: st.ConversationID, Context: cc}, nil
}

func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= rawPreviewRunes {
		return content
	}
	return string(runes[:rawPreviewRunes])
}
