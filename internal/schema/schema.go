// Package schema validates and parses the structured JSON replies the
// pipeline requests from the model. Replies are checked against JSON
// Schemas before use; small local models break JSON often enough that
// the validation verdict also accepts a plain-text fallback.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const intentSchema = `{
	"type": "object",
	"properties": {
		"task_type": {"type": "string"},
		"needs_context": {"type": "boolean"},
		"target": {"type": "string"}
	},
	"required": ["task_type"]
}`

const contextSchema = `{
	"type": "object",
	"properties": {
		"files": {"type": "array", "items": {"type": "string"}},
		"notes": {"type": "string"}
	},
	"required": ["files"]
}`

const verdictSchema = `{
	"type": "object",
	"properties": {
		"verdict": {"type": "string", "enum": ["acceptable", "needs_refinement"]},
		"reason": {"type": "string"}
	},
	"required": ["verdict"]
}`

// Intent is the parsed intent-analysis reply.
type Intent struct {
	TaskType     string `json:"task_type"`
	NeedsContext bool   `json:"needs_context"`
	Target       string `json:"target"`
}

// ContextSpec is the parsed context-gathering reply.
type ContextSpec struct {
	Files []string `json:"files"`
	Notes string   `json:"notes"`
}

// Verdict values.
const (
	VerdictAcceptable      = "acceptable"
	VerdictNeedsRefinement = "needs_refinement"
)

// Verdict is the parsed validation reply.
type Verdict struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

// ParseIntent validates and parses an intent reply.
func ParseIntent(raw string) (*Intent, error) {
	doc, err := validate(intentSchema, raw)
	if err != nil {
		return nil, err
	}
	var in Intent
	if err := json.Unmarshal([]byte(doc), &in); err != nil {
		return nil, fmt.Errorf("failed to parse intent: %w", err)
	}
	in.TaskType = strings.ToLower(strings.TrimSpace(in.TaskType))
	return &in, nil
}

// ParseContextSpec validates and parses a context-gathering reply.
func ParseContextSpec(raw string) (*ContextSpec, error) {
	doc, err := validate(contextSchema, raw)
	if err != nil {
		return nil, err
	}
	var cs ContextSpec
	if err := json.Unmarshal([]byte(doc), &cs); err != nil {
		return nil, fmt.Errorf("failed to parse context spec: %w", err)
	}
	return &cs, nil
}

// ParseVerdict parses a validation reply. JSON is validated against the
// schema; when the reply is not JSON at all, the first line is scanned
// for the verdict keywords instead.
func ParseVerdict(raw string) (*Verdict, error) {
	if doc, err := validate(verdictSchema, raw); err == nil {
		var v Verdict
		if err := json.Unmarshal([]byte(doc), &v); err == nil {
			v.Verdict = strings.ToLower(strings.TrimSpace(v.Verdict))
			return &v, nil
		}
	}

	// Text fallback: ACCEPTABLE / NEEDS_REFINEMENT: <reason>. Negated
	// acceptance ("not acceptable", "unacceptable") reads as a rejection,
	// never as acceptance.
	lower := strings.ToLower(raw)
	rejected := strings.Contains(lower, VerdictNeedsRefinement) ||
		strings.Contains(lower, "needs refinement") ||
		strings.Contains(lower, "not acceptable") ||
		strings.Contains(lower, "unacceptable")
	if rejected {
		reason := raw
		if i := strings.IndexAny(raw, ":"); i >= 0 && i+1 < len(raw) {
			reason = strings.TrimSpace(raw[i+1:])
		}
		return &Verdict{Verdict: VerdictNeedsRefinement, Reason: firstLine(reason)}, nil
	}
	if strings.Contains(lower, VerdictAcceptable) {
		return &Verdict{Verdict: VerdictAcceptable}, nil
	}
	return nil, fmt.Errorf("unrecognized validation verdict: %q", firstLine(raw))
}

// validate extracts the JSON object embedded in raw (models wrap JSON in
// prose and fences routinely) and checks it against the schema.
func validate(schemaJSON, raw string) (string, error) {
	doc := extractJSON(raw)
	if doc == "" {
		return "", fmt.Errorf("no JSON object in response")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewStringLoader(doc),
	)
	if err != nil {
		return "", fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return "", fmt.Errorf("response does not match schema: %s", strings.Join(msgs, "; "))
	}
	return doc, nil
}

// extractJSON returns the outermost {...} span of raw, or "".
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}
