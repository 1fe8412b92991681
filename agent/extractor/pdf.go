package extractor

import (
	"context"
	_ "embed"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
	llmx "github.com/flowbit-ai/intake-agent/pkg/llm"
)

//go:embed template/pdf.txt
var pdfPromptRaw string

var (
	pdfDocumentTypes      = []string{"invoice", "policy", "report", "other"}
	pdfRegulatoryKeywords = []string{
		"GDPR", "FDA", "HIPAA", "SOX", "PCI DSS", "ISO 27001", "NIST", "CCPA", "DPA",
	}

	pdfRequiredKeys = []string{"document_type", "document_id", "summary", contractx.ActionTypeKey}
)

const pdfTemperature = 0.2

// PDFAgent analyzes plain text extracted from PDF documents: document
// type, invoice amounts, and regulatory keyword mentions.
type PDFAgent struct {
	generator contractx.TextGenerator
}

var _ contractx.Extractor = (*PDFAgent)(nil)

func NewPDFAgent(generator contractx.TextGenerator) *PDFAgent {
	return &PDFAgent{generator: generator}
}

func (a *PDFAgent) Name() string { return "PDFAgent" }

func (a *PDFAgent) Extract(ctx context.Context, raw string) contractx.Record {
	if strings.TrimSpace(raw) == "" {
		return contractx.Record{
			"error":                 "Empty or unreadable PDF content provided to agent",
			contractx.ActionTypeKey: "Flag Unreadable Document",
		}
	}

	prompt := strings.NewReplacer(
		"{{document_types}}", quoteJoin(pdfDocumentTypes),
		"{{regulatory_keywords}}", quoteJoin(pdfRegulatoryKeywords),
		"{{pdf_text_content}}", strings.TrimSpace(raw),
	).Replace(strings.TrimSpace(pdfPromptRaw))

	response, err := a.generator.Generate(ctx, prompt, contractx.GenerateOptions{
		Temperature: pdfTemperature,
	})
	if err != nil {
		log.Warn().Err(err).Msg("pdf agent: collaborator call failed")
		return malformedLLMRecord(response)
	}

	rec, err := llmx.DecodeObject(response)
	if err != nil {
		log.Warn().Err(err).Msg("pdf agent: malformed collaborator output")
		return malformedLLMRecord(response)
	}

	for _, key := range pdfRequiredKeys {
		if _, ok := rec[key]; !ok {
			log.Warn().Str("key", key).Msg("pdf agent: required key missing from response")
			return contractx.Record{
				"error":                 "Unexpected response structure: missing required keys.",
				"raw_llm_response":      response,
				contractx.ActionTypeKey: "Flag Processing Error",
			}
		}
	}

	return rec
}

func quoteJoin(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, `"`+v+`"`)
	}
	return strings.Join(parts, ", ")
}
