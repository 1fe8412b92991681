package contract

import "testing"

func TestCoerceFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Format
	}{
		{"Email", FormatEmail},
		{"JSON", FormatJSON},
		{"PDF", FormatPDF},
		{"email", FormatUnknown},
		{"Spreadsheet", FormatUnknown},
		{"", FormatUnknown},
	}
	for _, tt := range tests {
		if got := CoerceFormat(tt.in); got != tt.want {
			t.Errorf("CoerceFormat(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCoerceIntent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Intent
	}{
		{"RFQ", IntentRFQ},
		{"Fraud Risk", IntentFraudRisk},
		{"Other", IntentOther},
		{"Telepathy", IntentOther},
		{"", IntentOther},
	}
	for _, tt := range tests {
		if got := CoerceIntent(tt.in); got != tt.want {
			t.Errorf("CoerceIntent(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCoerceToneAndUrgency(t *testing.T) {
	t.Parallel()

	if got := CoerceTone("Threatening"); got != ToneThreatening {
		t.Errorf("CoerceTone(Threatening) = %s", got)
	}
	if got := CoerceTone("Furious"); got != ToneNeutral {
		t.Errorf("CoerceTone(Furious) = %s, want Neutral", got)
	}
	if got := CoerceUrgency("Medium"); got != UrgencyMedium {
		t.Errorf("CoerceUrgency(Medium) = %s", got)
	}
	if got := CoerceUrgency("Catastrophic"); got != UrgencyLow {
		t.Errorf("CoerceUrgency(Catastrophic) = %s, want Low", got)
	}
}

func TestRecordActionType(t *testing.T) {
	t.Parallel()

	// HasActionType reports key presence, not value validity: a record
	// with a blank or non-string tag still reaches the router, which then
	// persists the skip decision.
	tests := []struct {
		name    string
		rec     Record
		want    string
		wantHas bool
	}{
		{"present", Record{ActionTypeKey: "Escalate to CRM"}, "Escalate to CRM", true},
		{"padded", Record{ActionTypeKey: "  Log Document  "}, "Log Document", true},
		{"missing", Record{"error": "x"}, "", false},
		{"empty", Record{ActionTypeKey: ""}, "", true},
		{"whitespace", Record{ActionTypeKey: "   "}, "", true},
		{"non-string", Record{ActionTypeKey: 42}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.rec.ActionType(); got != tt.want {
				t.Fatalf("ActionType() = %q, want %q", got, tt.want)
			}
			if got := tt.rec.HasActionType(); got != tt.wantHas {
				t.Fatalf("HasActionType() = %v, want %v", got, tt.wantHas)
			}
		})
	}
}

func TestRecordFallbacks(t *testing.T) {
	t.Parallel()

	rec := Record{"summary": "short", "count": 3}
	if got := rec.StringOr("summary", "N/A"); got != "short" {
		t.Fatalf("StringOr(summary) = %q", got)
	}
	if got := rec.StringOr("count", "N/A"); got != "N/A" {
		t.Fatalf("StringOr(count) = %q, want fallback for non-string", got)
	}
	if got := rec.StringOr("missing", "N/A"); got != "N/A" {
		t.Fatalf("StringOr(missing) = %q", got)
	}
	if got := rec.ValueOr("count", nil); got != 3 {
		t.Fatalf("ValueOr(count) = %v", got)
	}
	if got := rec.ValueOr("missing", "fallback"); got != "fallback" {
		t.Fatalf("ValueOr(missing) = %v", got)
	}
}
