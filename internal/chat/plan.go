package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	planTypeSQL   = "sql"
	planTypeFinal = "final"
)

// Plan is the parsed first-step model output: either a SQL candidate or a
// direct final answer. Any shape beyond these two is a parse failure, not a
// third variant.
type Plan struct {
	Type   string `json:"type"`
	SQL    string `json:"sql,omitempty"`
	Answer string `json:"answer,omitempty"`
}

func (p Plan) IsFinal() bool {
	return p.Type == planTypeFinal
}

// ParsePlan decodes the model's planning response. Markdown code fences are
// stripped first because some models wrap JSON in them regardless of the
// prompt contract.
func ParsePlan(raw string) (Plan, error) {
	text := stripCodeFence(raw)
	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	switch plan.Type {
	case planTypeSQL:
		if strings.TrimSpace(plan.SQL) == "" {
			return Plan{}, fmt.Errorf("plan type %q is missing sql", planTypeSQL)
		}
	case planTypeFinal:
		if strings.TrimSpace(plan.Answer) == "" {
			return Plan{}, fmt.Errorf("plan type %q is missing answer", planTypeFinal)
		}
	default:
		return Plan{}, fmt.Errorf("unknown plan type %q", plan.Type)
	}
	return plan, nil
}

func stripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
