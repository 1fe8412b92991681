package extractor

import (
	"context"
	_ "embed"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
	llmx "github.com/flowbit-ai/intake-agent/pkg/llm"
)

//go:embed template/email.txt
var emailPromptRaw string

// emailRequiredKeys must all be present in a successful extraction.
var emailRequiredKeys = []string{
	"sender_name", "sender_email", "subject", "issue_summary",
	"urgency", "tone", contractx.ActionTypeKey,
}

// EmailAgent extracts structured fields, tone, and urgency from raw email
// content.
type EmailAgent struct {
	generator contractx.TextGenerator
}

var _ contractx.Extractor = (*EmailAgent)(nil)

func NewEmailAgent(generator contractx.TextGenerator) *EmailAgent {
	return &EmailAgent{generator: generator}
}

func (a *EmailAgent) Name() string { return "EmailAgent" }

func (a *EmailAgent) Extract(ctx context.Context, raw string) contractx.Record {
	if strings.TrimSpace(raw) == "" {
		return contractx.Record{
			"error":                 "Empty email content provided",
			contractx.ActionTypeKey: "Review Manually",
		}
	}

	prompt := strings.NewReplacer(
		"{{available_urgencies}}", quoteJoinUrgencies(contractx.EmailUrgencies),
		"{{available_tones}}", quoteJoinTones(contractx.EmailTones),
		"{{raw_email_content}}", raw,
	).Replace(strings.TrimSpace(emailPromptRaw))

	response, err := a.generator.Generate(ctx, prompt, contractx.GenerateOptions{})
	if err != nil {
		log.Warn().Err(err).Msg("email agent: collaborator call failed")
		return malformedLLMRecord(response)
	}

	rec, err := llmx.DecodeObject(response)
	if err != nil {
		log.Warn().Err(err).Msg("email agent: malformed collaborator output")
		return malformedLLMRecord(response)
	}

	for _, key := range emailRequiredKeys {
		if _, ok := rec[key]; !ok {
			log.Warn().Str("key", key).Msg("email agent: required key missing from response")
			return contractx.Record{
				"error":                 "Missing required field in LLM response: " + key,
				"raw_llm_response":      response,
				contractx.ActionTypeKey: "Flag Processing Error",
			}
		}
	}

	// Hallucinated enum values are silently downgraded to the defaults.
	rec["tone"] = string(contractx.CoerceTone(rec.StringOr("tone", "")))
	rec["urgency"] = string(contractx.CoerceUrgency(rec.StringOr("urgency", "")))

	log.Info().
		Str("tone", rec.StringOr("tone", "")).
		Str("urgency", rec.StringOr("urgency", "")).
		Str("action", rec.ActionType()).
		Msg("email agent: processed")
	return rec
}

func malformedLLMRecord(response string) contractx.Record {
	return contractx.Record{
		"error":                 "Malformed JSON from LLM",
		"raw_llm_response":      response,
		contractx.ActionTypeKey: "Flag LLM Output Error",
	}
}

func quoteJoinTones(tones []contractx.Tone) string {
	parts := make([]string, 0, len(tones))
	for _, t := range tones {
		parts = append(parts, `"`+string(t)+`"`)
	}
	return strings.Join(parts, ", ")
}

func quoteJoinUrgencies(urgencies []contractx.Urgency) string {
	parts := make([]string, 0, len(urgencies))
	for _, u := range urgencies {
		parts = append(parts, `"`+string(u)+`"`)
	}
	return strings.Join(parts, ", ")
}
