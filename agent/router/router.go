// Package router maps a record's suggested action tag to a downstream
// call and persists the outcome per conversation. Dispatch is a closed
// lookup table from tag to (endpoint, payload builder, result label) with
// an explicit fallback entry, so the mapping stays exhaustive and
// directly testable.
package router

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
	statex "github.com/flowbit-ai/intake-agent/agent/state"
)

const (
	// OutcomeStageName keys a routed action's outcome in the
	// conversation's extracted-data mapping.
	OutcomeStageName = "ActionRouter_Outcome"

	// DecisionStageName keys the persisted skip decision when a record
	// carries an empty action tag.
	DecisionStageName = "ActionRouter_Decision"
)

// Known action tags.
const (
	ActionEscalateCRM       = "Escalate to CRM"
	ActionLogAndClose       = "Log and Close"
	ActionFlagForReview     = "Flag for Review"
	ActionEscalateFraud     = "Escalate Fraud Alert"
	ActionReviewInvoice     = "Review High Value Invoice"
	ActionFlagCompliance    = "Flag Compliance Document"
	ActionLogDocument       = "Log Document"
	ActionNeedsClarify      = "Needs Clarification"
	ActionFlagInvalidInput  = "Flag Invalid Input"
	ActionFlagLLMOutput     = "Flag LLM Output Error"
	ActionFlagProcessing    = "Flag Processing Error"
	ActionReviewManually    = "Review Manually"
	ActionFlagUnreadableDoc = "Flag Unreadable Document"
)

type payloadBuilder func(conversationID, actionType string, rec contractx.Record) map[string]any

type route struct {
	endpoint string
	label    string
	build    payloadBuilder
}

// routes is the closed dispatch table. Tags outside it fall through to
// fallbackRoute, never to an error.
var routes = map[string]route{
	ActionEscalateCRM: {
		endpoint: "/crm/escalate_issue",
		label:    "CRM Escalation",
		build: func(id, _ string, rec contractx.Record) map[string]any {
			return map[string]any{
				"conversation_id": id,
				"issue_summary":   rec.StringOr("issue_summary", "N/A"),
				"sender_info":     rec.ValueOr("sender_info", rec.StringOr("sender_email", "N/A")),
				"urgency":         rec.StringOr("urgency", "High"),
				"extracted_data":  rec,
			}
		},
	},
	ActionLogAndClose: {
		endpoint: "/log_system/close_ticket",
		label:    "Log & Close Ticket",
		build: func(id, _ string, rec contractx.Record) map[string]any {
			return map[string]any{
				"conversation_id": id,
				"summary":         rec.StringOr("issue_summary", "Routine request/info"),
				"status":          "closed_by_automation",
				"extracted_data":  rec,
			}
		},
	},
	ActionFlagForReview: {
		endpoint: "/alert_system/flag_review",
		label:    "Manual Review Flag",
		build: func(id, _ string, rec contractx.Record) map[string]any {
			return map[string]any{
				"conversation_id": id,
				"reason":          "Data anomaly or missing critical fields detected",
				"anomalies":       rec.ValueOr("anomalies", []any{}),
				"missing_fields":  rec.ValueOr("missing_fields", []any{}),
				"extracted_data":  rec,
			}
		},
	},
	ActionEscalateFraud: {
		endpoint: "/risk_management/fraud_alert",
		label:    "Fraud Alert Escalation",
		build: func(id, _ string, rec contractx.Record) map[string]any {
			return map[string]any{
				"conversation_id": id,
				"risk_level":      "High",
				"details":         rec.ValueOr("anomalies", []any{"Potential fraud indicators detected."}),
				"extracted_data":  rec,
			}
		},
	},
	ActionReviewInvoice: {
		endpoint: "/finance_system/review_invoice",
		label:    "High Value Invoice Review",
		build: func(id, _ string, rec contractx.Record) map[string]any {
			return map[string]any{
				"conversation_id": id,
				"invoice_id":      rec.StringOr("document_id", "N/A"),
				"total_amount":    rec.ValueOr("total_amount", "N/A"),
				"currency":        rec.StringOr("currency", "N/A"),
				"extracted_data":  rec,
			}
		},
	},
	ActionFlagCompliance: {
		endpoint: "/compliance_system/flag_document",
		label:    "Compliance Document Flag",
		build: func(id, _ string, rec contractx.Record) map[string]any {
			return map[string]any{
				"conversation_id":     id,
				"document_id":         rec.StringOr("document_id", "N/A"),
				"regulatory_keywords": rec.ValueOr("identified_regulatory_keywords", []any{}),
				"summary":             rec.StringOr("summary", "Compliance-related document."),
				"extracted_data":      rec,
			}
		},
	},
	ActionLogDocument: {
		endpoint: "/document_management/log_document",
		label:    "Log Document",
		build: func(id, _ string, rec contractx.Record) map[string]any {
			return map[string]any{
				"conversation_id": id,
				"document_id":     rec.StringOr("document_id", "N/A"),
				"document_type":   rec.StringOr("document_type", "N/A"),
				"summary":         rec.StringOr("summary", "General document log."),
				"extracted_data":  rec,
			}
		},
	},
	ActionNeedsClarify:      manualReviewRoute,
	ActionFlagInvalidInput:  manualReviewRoute,
	ActionFlagLLMOutput:     manualReviewRoute,
	ActionFlagProcessing:    manualReviewRoute,
	ActionReviewManually:    manualReviewRoute,
	ActionFlagUnreadableDoc: manualReviewRoute,
}

// manualReviewRoute handles the family of error/clarification tags: the
// tag itself becomes the task reason.
var manualReviewRoute = route{
	endpoint: "/manual_review/create_task",
	label:    "Manual Review Task",
	build: func(id, actionType string, rec contractx.Record) map[string]any {
		return map[string]any{
			"conversation_id": id,
			"reason":          actionType,
			"details":         rec.StringOr("error", "Reason provided by agent."),
			"extracted_data":  rec,
		}
	},
}

// fallbackRoute catches tags outside the closed set.
var fallbackRoute = route{
	endpoint: "/manual_review/create_task",
	label:    "Unrecognized Action Manual Review",
	build: func(id, actionType string, rec contractx.Record) map[string]any {
		return map[string]any{
			"conversation_id": id,
			"reason":          "Unrecognized action type",
			"details":         fmt.Sprintf("Agent suggested: %s. Full agent output: %v", actionType, map[string]any(rec)),
			"extracted_data":  rec,
		}
	},
}

// Router dispatches extraction records to downstream actions and
// persists each outcome.
type Router struct {
	store   statex.Store
	gateway Gateway
}

var _ contractx.ActionRouter = (*Router)(nil)

func New(store statex.Store, gateway Gateway) *Router {
	if gateway == nil {
		gateway = NewSimulatedGateway()
	}
	return &Router{store: store, gateway: gateway}
}

// Route inspects the record's action tag, performs exactly one downstream
// call for recognized or fallback tags, and persists the outcome. An
// empty tag skips the call and persists the decision instead. The
// returned error covers persistence only.
func (r *Router) Route(ctx context.Context, conversationID string, rec contractx.Record) (contractx.Record, error) {
	actionType := rec.ActionType()
	if actionType == "" {
		log.Warn().Str("conversation_id", conversationID).Msg("no action tag in record, skipping routing")
		decision := contractx.Record{
			"action_triggered": "No Action",
			"action_status":    "skipped",
			"action_response":  map[string]any{},
			"reason":           fmt.Sprintf("No specific action type suggested or recognized: %v", rec.ValueOr(contractx.ActionTypeKey, nil)),
		}
		if err := r.store.SaveExtractedData(ctx, conversationID, DecisionStageName, decision); err != nil {
			return decision, err
		}
		return decision, nil
	}

	rt, ok := routes[actionType]
	if !ok {
		log.Warn().
			Str("conversation_id", conversationID).
			Str("action_type", actionType).
			Msg("unrecognized action type, defaulting to manual review")
		rt = fallbackRoute
	}

	payload := rt.build(conversationID, actionType, rec)
	response := r.gateway.Post(ctx, rt.endpoint, payload)

	outcome := contractx.Record{
		"action_triggered": rt.label,
		"action_status":    statusOf(response),
		"action_endpoint":  rt.endpoint,
		"action_payload":   payload,
		"action_response":  response,
	}

	if err := r.store.SaveExtractedData(ctx, conversationID, OutcomeStageName, outcome); err != nil {
		return outcome, err
	}

	log.Info().
		Str("conversation_id", conversationID).
		Str("action", rt.label).
		Str("endpoint", rt.endpoint).
		Msg("action routed")
	return outcome, nil
}

func statusOf(response map[string]any) string {
	s, ok := response["status"].(string)
	if !ok {
		return "unknown"
	}
	return s
}
