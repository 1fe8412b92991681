package classifier

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

func TestClassifyEmptyInputSkipsCollaborator(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	agent := New(gen)

	format, intent, rec := agent.Classify(context.Background(), "   \n\t ")
	if format != contractx.FormatOther || intent != contractx.IntentOther {
		t.Fatalf("Classify() = (%s, %s), want (Other, Other)", format, intent)
	}
	if rec["error"] != "Empty input" {
		t.Fatalf("error = %v", rec["error"])
	}
	if gen.calls != 0 {
		t.Fatalf("collaborator called %d times for empty input", gen.calls)
	}
}

func TestClassifyHappyPath(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{"format": "Email", "intent": "Complaint"}`}
	agent := New(gen)

	format, intent, rec := agent.Classify(context.Background(), "Dear team, I am unhappy")
	if format != contractx.FormatEmail {
		t.Fatalf("format = %s, want Email", format)
	}
	if intent != contractx.IntentComplaint {
		t.Fatalf("intent = %s, want Complaint", intent)
	}
	if rec["format"] != "Email" {
		t.Fatalf("raw record = %#v", rec)
	}
	if !strings.Contains(gen.prompts[0], "Dear team, I am unhappy") {
		t.Fatal("raw input not interpolated into prompt")
	}
}

func TestClassifyCoercesOutOfSetValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		response   string
		wantFormat contractx.Format
		wantIntent contractx.Intent
	}{
		{
			name:       "unknown format",
			response:   `{"format": "Spreadsheet", "intent": "RFQ"}`,
			wantFormat: contractx.FormatUnknown,
			wantIntent: contractx.IntentRFQ,
		},
		{
			name:       "unknown intent",
			response:   `{"format": "JSON", "intent": "Telepathy"}`,
			wantFormat: contractx.FormatJSON,
			wantIntent: contractx.IntentOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			agent := New(&fakeGenerator{response: tt.response})
			format, intent, _ := agent.Classify(context.Background(), "some document")
			if format != tt.wantFormat {
				t.Fatalf("format = %s, want %s", format, tt.wantFormat)
			}
			if intent != tt.wantIntent {
				t.Fatalf("intent = %s, want %s", intent, tt.wantIntent)
			}
		})
	}
}

func TestClassifyCollaboratorError(t *testing.T) {
	t.Parallel()

	agent := New(&fakeGenerator{err: errors.New("boom")})
	format, intent, rec := agent.Classify(context.Background(), "content")
	if format != contractx.FormatUnknown || intent != contractx.IntentUnknown {
		t.Fatalf("Classify() = (%s, %s), want (Unknown, Unknown)", format, intent)
	}
	if rec["error"] != "Collaborator call failed" {
		t.Fatalf("error = %v", rec["error"])
	}
}

func TestClassifyMalformedResponse(t *testing.T) {
	t.Parallel()

	agent := New(&fakeGenerator{response: "definitely not json"})
	format, intent, rec := agent.Classify(context.Background(), "content")
	if format != contractx.FormatUnknown || intent != contractx.IntentUnknown {
		t.Fatalf("Classify() = (%s, %s), want (Unknown, Unknown)", format, intent)
	}
	if rec["error"] != "Malformed JSON from LLM" {
		t.Fatalf("error = %v", rec["error"])
	}
	if rec["raw_response"] != "definitely not json" {
		t.Fatalf("raw_response = %v", rec["raw_response"])
	}
}

func TestClassifyMissingKeys(t *testing.T) {
	t.Parallel()

	agent := New(&fakeGenerator{response: `{"format": "Email"}`})
	format, intent, rec := agent.Classify(context.Background(), "content")
	if format != contractx.FormatUnknown || intent != contractx.IntentUnknown {
		t.Fatalf("Classify() = (%s, %s), want (Unknown, Unknown)", format, intent)
	}
	if rec["error"] != "LLM response missing 'format' or 'intent' keys" {
		t.Fatalf("error = %v", rec["error"])
	}
}

func TestBuildPromptInterpolatesEnums(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt("payload")
	for _, want := range []string{`"Email"`, `"JSON"`, `"PDF"`, `"RFQ"`, `"Fraud Risk"`, "payload"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %s", want)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Fatal("unreplaced placeholder in prompt")
	}
}
