package extractor

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
	llmx "github.com/flowbit-ai/intake-agent/pkg/llm"
)

//go:embed template/json.txt
var jsonPromptRaw string

// requiredFlowbitFields are the schema fields the collaborator reports on
// through required_fields_status and missing_fields.
var requiredFlowbitFields = []string{"document_id", "document_type", "summary"}

const jsonTemperature = 0.2

// JSONAgent re-formats arbitrary JSON payloads into the FlowBit schema
// and flags missing fields and anomalies.
type JSONAgent struct {
	generator contractx.TextGenerator
}

var _ contractx.Extractor = (*JSONAgent)(nil)

func NewJSONAgent(generator contractx.TextGenerator) *JSONAgent {
	return &JSONAgent{generator: generator}
}

func (a *JSONAgent) Name() string { return "JSONAgent" }

func (a *JSONAgent) Extract(ctx context.Context, raw string) contractx.Record {
	if strings.TrimSpace(raw) == "" {
		return contractx.Record{
			"error":                 "Empty JSON input provided",
			contractx.ActionTypeKey: "Flag Invalid Input",
		}
	}

	// The raw input is validated strictly: malformed customer payloads are
	// flagged, not repaired, and never reach the collaborator.
	var input any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		log.Warn().Err(err).Msg("json agent: invalid input")
		return contractx.Record{
			"error":                 "Invalid JSON input",
			"details":               err.Error(),
			"original_input":        raw,
			contractx.ActionTypeKey: "Flag Invalid Input",
		}
	}

	normalized, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return contractx.Record{
			"error":                 "Unexpected error during extraction",
			"details":               err.Error(),
			contractx.ActionTypeKey: "Flag Processing Error",
		}
	}

	prompt := strings.NewReplacer(
		"{{required_fields}}", strings.Join(requiredFlowbitFields, ", "),
		"{{arbitrary_input_json}}", string(normalized),
	).Replace(strings.TrimSpace(jsonPromptRaw))

	response, genErr := a.generator.Generate(ctx, prompt, contractx.GenerateOptions{
		Temperature: jsonTemperature,
	})
	if genErr != nil {
		log.Warn().Err(genErr).Msg("json agent: collaborator call failed")
		return malformedLLMRecord(response)
	}

	rec, decErr := llmx.DecodeObject(response)
	if decErr != nil {
		log.Warn().Err(decErr).Msg("json agent: malformed collaborator output")
		return malformedLLMRecord(response)
	}

	// Required-field reporting is delegated to the collaborator via
	// required_fields_status/missing_fields; the record passes through.
	return rec
}
