package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, _ contractx.GenerateOptions) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestNewRegistryCoversSpecializedFormats(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(&fakeGenerator{})
	for _, format := range []contractx.Format{contractx.FormatEmail, contractx.FormatJSON, contractx.FormatPDF} {
		spec, ok := registry[format]
		if !ok {
			t.Fatalf("no extractor registered for %s", format)
		}
		if spec.Name() == "" {
			t.Fatalf("extractor for %s has empty name", format)
		}
	}
	if _, ok := registry[contractx.FormatOther]; ok {
		t.Fatal("unexpected extractor registered for Other")
	}
}

func TestSkippedRecord(t *testing.T) {
	t.Parallel()

	rec := SkippedRecord(contractx.FormatOther, contractx.IntentComplaint)
	if rec["status"] != "skipped_specialized_agent" {
		t.Fatalf("status = %v", rec["status"])
	}
	if rec["classified_format"] != "Other" || rec["classified_intent"] != "Complaint" {
		t.Fatalf("record = %#v", rec)
	}
	if rec.HasActionType() {
		t.Fatal("skip record must not carry an action type")
	}
}

func TestEmailAgentEmptyInput(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	rec := NewEmailAgent(gen).Extract(context.Background(), "  ")
	if rec["error"] != "Empty email content provided" {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec.ActionType() != "Review Manually" {
		t.Fatalf("action = %q, want Review Manually", rec.ActionType())
	}
	if gen.calls != 0 {
		t.Fatal("collaborator called for empty input")
	}
}

func TestEmailAgentHappyPathCoercesToneAndUrgency(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{
		"sender_name": "Ana Ruiz",
		"sender_email": "ana@example.com",
		"subject": "Late delivery",
		"issue_summary": "Order 19 arrived two weeks late.",
		"urgency": "Catastrophic",
		"tone": "Furious",
		"potential_action_type": "Escalate to CRM"
	}`}
	rec := NewEmailAgent(gen).Extract(context.Background(), "From: ana@example.com ...")

	if rec["urgency"] != "Low" {
		t.Fatalf("urgency = %v, want coerced Low", rec["urgency"])
	}
	if rec["tone"] != "Neutral" {
		t.Fatalf("tone = %v, want coerced Neutral", rec["tone"])
	}
	if rec.ActionType() != "Escalate to CRM" {
		t.Fatalf("action = %q", rec.ActionType())
	}
	if !strings.Contains(gen.prompts[0], "From: ana@example.com") {
		t.Fatal("email content not interpolated into prompt")
	}
}

func TestEmailAgentMalformedResponse(t *testing.T) {
	t.Parallel()

	rec := NewEmailAgent(&fakeGenerator{response: "sorry, cannot help"}).Extract(context.Background(), "some email")
	if rec["error"] != "Malformed JSON from LLM" {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec.ActionType() != "Flag LLM Output Error" {
		t.Fatalf("action = %q", rec.ActionType())
	}
	if rec["raw_llm_response"] != "sorry, cannot help" {
		t.Fatalf("raw_llm_response = %v", rec["raw_llm_response"])
	}
}

func TestEmailAgentCollaboratorError(t *testing.T) {
	t.Parallel()

	rec := NewEmailAgent(&fakeGenerator{err: errors.New("timeout")}).Extract(context.Background(), "some email")
	if rec["error"] != "Malformed JSON from LLM" {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec.ActionType() != "Flag LLM Output Error" {
		t.Fatalf("action = %q", rec.ActionType())
	}
}

func TestEmailAgentMissingRequiredField(t *testing.T) {
	t.Parallel()

	rec := NewEmailAgent(&fakeGenerator{response: `{
		"sender_name": "Ana",
		"sender_email": "ana@example.com",
		"subject": "Hi",
		"issue_summary": "All good",
		"urgency": "Low",
		"tone": "Polite"
	}`}).Extract(context.Background(), "some email")

	if rec["error"] != "Missing required field in LLM response: potential_action_type" {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec.ActionType() != "Flag Processing Error" {
		t.Fatalf("action = %q", rec.ActionType())
	}
}

func TestJSONAgentEmptyInput(t *testing.T) {
	t.Parallel()

	rec := NewJSONAgent(&fakeGenerator{}).Extract(context.Background(), "")
	if rec["error"] != "Empty JSON input provided" {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec.ActionType() != "Flag Invalid Input" {
		t.Fatalf("action = %q", rec.ActionType())
	}
}

func TestJSONAgentInvalidInputSkipsCollaborator(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	rec := NewJSONAgent(gen).Extract(context.Background(), `{"a": 1,}`)

	if rec["error"] != "Invalid JSON input" {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec.ActionType() != "Flag Invalid Input" {
		t.Fatalf("action = %q", rec.ActionType())
	}
	if rec["original_input"] != `{"a": 1,}` {
		t.Fatalf("original_input = %v", rec["original_input"])
	}
	if gen.calls != 0 {
		t.Fatal("collaborator called for invalid input")
	}
}

func TestJSONAgentPassesRecordThrough(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{
		"document_id": "INV-77",
		"document_type": "invoice",
		"summary": "Invoice for Q3 services",
		"missing_fields": [],
		"anomalies": ["duplicate line item"],
		"potential_action_type": "Flag for Review"
	}`}
	rec := NewJSONAgent(gen).Extract(context.Background(), `{"id": "INV-77", "lines": [1, 1]}`)

	if rec["document_id"] != "INV-77" {
		t.Fatalf("document_id = %v", rec["document_id"])
	}
	if rec.ActionType() != "Flag for Review" {
		t.Fatalf("action = %q", rec.ActionType())
	}
	if !strings.Contains(gen.prompts[0], `"INV-77"`) {
		t.Fatal("normalized input not interpolated into prompt")
	}
}

func TestPDFAgentEmptyInput(t *testing.T) {
	t.Parallel()

	rec := NewPDFAgent(&fakeGenerator{}).Extract(context.Background(), " \n ")
	if rec["error"] != "Empty or unreadable PDF content provided to agent" {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec.ActionType() != "Flag Unreadable Document" {
		t.Fatalf("action = %q", rec.ActionType())
	}
}

func TestPDFAgentHappyPath(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{
		"document_type": "invoice",
		"document_id": "INV-2024-003",
		"summary": "Invoice over ten thousand euro",
		"total_amount": 12500.0,
		"currency": "EUR",
		"potential_action_type": "Flag Invoice for Review"
	}`}
	rec := NewPDFAgent(gen).Extract(context.Background(), "INVOICE INV-2024-003 total 12,500 EUR")

	if rec["document_id"] != "INV-2024-003" {
		t.Fatalf("document_id = %v", rec["document_id"])
	}
	if rec.ActionType() != "Flag Invoice for Review" {
		t.Fatalf("action = %q", rec.ActionType())
	}
	for _, want := range []string{`"GDPR"`, `"invoice"`, "INV-2024-003"} {
		if !strings.Contains(gen.prompts[0], want) {
			t.Fatalf("prompt missing %s", want)
		}
	}
}

func TestPDFAgentMissingRequiredKeys(t *testing.T) {
	t.Parallel()

	rec := NewPDFAgent(&fakeGenerator{response: `{"document_type": "report"}`}).
		Extract(context.Background(), "Quarterly report text")

	if rec["error"] != "Unexpected response structure: missing required keys." {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec.ActionType() != "Flag Processing Error" {
		t.Fatalf("action = %q", rec.ActionType())
	}
}

func TestPDFAgentMarkdownFencedResponse(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: "```json\n{\"document_type\": \"policy\", \"document_id\": \"POL-9\", \"summary\": \"GDPR policy\", \"identified_regulatory_keywords\": [\"GDPR\"], \"potential_action_type\": \"Flag Compliance Document\"}\n```"}
	rec := NewPDFAgent(gen).Extract(context.Background(), "Policy mentioning GDPR")

	if rec["document_id"] != "POL-9" {
		t.Fatalf("document_id = %v", rec["document_id"])
	}
	if rec.ActionType() != "Flag Compliance Document" {
		t.Fatalf("action = %q", rec.ActionType())
	}
}
