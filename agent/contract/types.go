package contract

import "strings"

// Format is the classified shape of a raw input document.
type Format string

const (
	FormatEmail   Format = "Email"
	FormatJSON    Format = "JSON"
	FormatPDF     Format = "PDF"
	FormatOther   Format = "Other"
	FormatUnknown Format = "Unknown"
)

// ClassifiableFormats are the formats the classifier may legitimately emit.
var ClassifiableFormats = []Format{FormatEmail, FormatJSON, FormatPDF}

// CoerceFormat downgrades out-of-set collaborator output to FormatUnknown
// instead of propagating a hallucinated value.
func CoerceFormat(s string) Format {
	for _, f := range ClassifiableFormats {
		if Format(s) == f {
			return f
		}
	}
	return FormatUnknown
}

// Intent is the classified business intent of a raw input document.
type Intent string

const (
	IntentRFQ        Intent = "RFQ"
	IntentComplaint  Intent = "Complaint"
	IntentInvoice    Intent = "Invoice"
	IntentRegulation Intent = "Regulation"
	IntentFraudRisk  Intent = "Fraud Risk"
	IntentOther      Intent = "Other"

	// IntentUnknown is reserved for malformed collaborator output; the
	// classifier never emits it for well-formed responses.
	IntentUnknown Intent = "Unknown"
)

var ClassifiableIntents = []Intent{
	IntentRFQ, IntentComplaint, IntentInvoice, IntentRegulation, IntentFraudRisk, IntentOther,
}

func CoerceIntent(s string) Intent {
	for _, i := range ClassifiableIntents {
		if Intent(s) == i {
			return i
		}
	}
	return IntentOther
}

// Tone of an email as judged by the extractor's collaborator.
type Tone string

const (
	ToneEscalation  Tone = "Escalation"
	TonePolite      Tone = "Polite"
	ToneThreatening Tone = "Threatening"
	ToneNeutral     Tone = "Neutral"
	ToneInformative Tone = "Informative"
	ToneQuestion    Tone = "Question"
)

var EmailTones = []Tone{
	ToneEscalation, TonePolite, ToneThreatening, ToneNeutral, ToneInformative, ToneQuestion,
}

func CoerceTone(s string) Tone {
	for _, t := range EmailTones {
		if Tone(s) == t {
			return t
		}
	}
	return ToneNeutral
}

// Urgency of an email as judged by the extractor's collaborator.
type Urgency string

const (
	UrgencyHigh   Urgency = "High"
	UrgencyMedium Urgency = "Medium"
	UrgencyLow    Urgency = "Low"
)

var EmailUrgencies = []Urgency{UrgencyHigh, UrgencyMedium, UrgencyLow}

func CoerceUrgency(s string) Urgency {
	for _, u := range EmailUrgencies {
		if Urgency(s) == u {
			return u
		}
	}
	return UrgencyLow
}

// ActionTypeKey is the record field the router dispatches on.
const ActionTypeKey = "potential_action_type"

// Record is the structured JSON object a pipeline stage produces. Beyond
// the optional "error" and "potential_action_type" fields its contents are
// format-specific and opaque to the router.
type Record map[string]any

// ActionType returns the suggested follow-up action tag, or "" when the
// record carries none or its value is not a string.
func (r Record) ActionType() string {
	v, ok := r[ActionTypeKey]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// HasActionType reports whether the record carries the action tag key at
// all, regardless of its value.
func (r Record) HasActionType() bool {
	_, ok := r[ActionTypeKey]
	return ok
}

// StringOr returns the record's string value for key, or fallback when the
// key is absent or not a string.
func (r Record) StringOr(key, fallback string) string {
	s, ok := r[key].(string)
	if !ok {
		return fallback
	}
	return s
}

// ValueOr returns the record's value for key, or fallback when absent.
func (r Record) ValueOr(key string, fallback any) any {
	v, ok := r[key]
	if !ok {
		return fallback
	}
	return v
}
