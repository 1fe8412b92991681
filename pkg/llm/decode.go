package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
)

// DecodeObject parses a collaborator response into a Record. Models
// occasionally wrap the object in a markdown fence or emit near-JSON
// (trailing commas, single quotes); fences are stripped and jsonrepair is
// tried as a fallback before giving up. Anything that still fails, or
// that is valid JSON but not an object, is an ErrSchemaViolation — the
// caller turns that into a structured error record.
func DecodeObject(raw string) (contractx.Record, error) {
	s := stripFences(strings.TrimSpace(raw))
	if s == "" {
		return nil, fmt.Errorf("%w: empty response", contractx.ErrSchemaViolation)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(s)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
		}
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
		}
	}
	if out == nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", contractx.ErrSchemaViolation)
	}
	return contractx.Record(out), nil
}

// stripFences removes a single surrounding markdown code fence, with or
// without a language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	inner := strings.TrimPrefix(s, "```")
	if idx := strings.Index(inner, "\n"); idx >= 0 {
		first := strings.TrimSpace(inner[:idx])
		if first == "" || first == "json" || first == "JSON" {
			inner = inner[idx+1:]
		}
	}
	inner = strings.TrimSpace(inner)
	inner = strings.TrimSuffix(inner, "```")
	return strings.TrimSpace(inner)
}
