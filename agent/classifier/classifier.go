// Package classifier determines the format and business intent of raw
// input before the orchestrator dispatches it to a format extractor.
package classifier

import (
	"context"
	_ "embed"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
	llmx "github.com/flowbit-ai/intake-agent/pkg/llm"
)

//go:embed template/classifier.txt
var promptRaw string

const (
	// StageName keys the classifier's record in a conversation's
	// extracted-data mapping.
	StageName = "ClassifierAgent"

	classifyTemperature = 0.1
)

// Option customizes an Agent.
type Option func(*Agent)

// WithModel overrides the collaborator's default model for classification.
func WithModel(model string) Option {
	return func(a *Agent) {
		a.model = strings.TrimSpace(model)
	}
}

// Agent classifies raw input via one collaborator call per request.
type Agent struct {
	generator contractx.TextGenerator
	model     string
}

var _ contractx.Classifier = (*Agent)(nil)

func New(generator contractx.TextGenerator, opts ...Option) *Agent {
	a := &Agent{generator: generator}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Classify returns the input's format and intent together with the raw
// classification record. Empty input short-circuits without a
// collaborator call; malformed or out-of-set collaborator output is
// downgraded, never raised.
func (a *Agent) Classify(ctx context.Context, raw string) (contractx.Format, contractx.Intent, contractx.Record) {
	if strings.TrimSpace(raw) == "" {
		return contractx.FormatOther, contractx.IntentOther, contractx.Record{"error": "Empty input"}
	}

	prompt := buildPrompt(raw)
	response, err := a.generator.Generate(ctx, prompt, contractx.GenerateOptions{
		Model:       a.model,
		Temperature: classifyTemperature,
	})
	if err != nil {
		log.Warn().Err(err).Msg("classifier: collaborator call failed")
		return contractx.FormatUnknown, contractx.IntentUnknown, contractx.Record{
			"error":        "Collaborator call failed",
			"raw_response": response,
		}
	}

	rec, err := llmx.DecodeObject(response)
	if err != nil {
		log.Warn().Err(err).Msg("classifier: malformed collaborator output")
		return contractx.FormatUnknown, contractx.IntentUnknown, contractx.Record{
			"error":        "Malformed JSON from LLM",
			"raw_response": response,
		}
	}

	formatVal, formatOK := rec["format"].(string)
	intentVal, intentOK := rec["intent"].(string)
	if !formatOK || !intentOK {
		log.Warn().Str("response", response).Msg("classifier: response missing format or intent")
		return contractx.FormatUnknown, contractx.IntentUnknown, contractx.Record{
			"error":        "LLM response missing 'format' or 'intent' keys",
			"raw_response": response,
		}
	}

	format := contractx.CoerceFormat(formatVal)
	if format == contractx.FormatUnknown {
		log.Warn().Str("format", formatVal).Msg("classifier: out-of-set format downgraded")
	}
	intent := contractx.CoerceIntent(intentVal)
	if string(intent) != intentVal {
		log.Warn().Str("intent", intentVal).Msg("classifier: out-of-set intent downgraded")
	}

	return format, intent, rec
}

func buildPrompt(raw string) string {
	return strings.NewReplacer(
		"{{available_formats}}", quoteJoinFormats(contractx.ClassifiableFormats),
		"{{available_intents}}", quoteJoinIntents(contractx.ClassifiableIntents),
		"{{raw_input}}", raw,
	).Replace(strings.TrimSpace(promptRaw))
}

func quoteJoinFormats(formats []contractx.Format) string {
	parts := make([]string, 0, len(formats))
	for _, f := range formats {
		parts = append(parts, `"`+string(f)+`"`)
	}
	return strings.Join(parts, ", ")
}

func quoteJoinIntents(intents []contractx.Intent) string {
	parts := make([]string, 0, len(intents))
	for _, i := range intents {
		parts = append(parts, `"`+string(i)+`"`)
	}
	return strings.Join(parts, ", ")
}
