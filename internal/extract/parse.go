package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

// recoverFn tries one way of decoding a structured record from response text.
type recoverFn func(text string) (map[string]any, bool)

// recoveryChain is tried in order; the first success wins.
var recoveryChain = []recoverFn{
	decodeDirect,
	decodeBraceSpan,
}

// ParseResponse recovers a JSON object from raw model output. It tolerates
// code fences and prose around the object. ok is false when nothing usable
// was found; this is not an error.
func ParseResponse(raw string) (map[string]any, bool) {
	text := stripCodeFences(raw)
	for _, fn := range recoveryChain {
		if m, ok := fn(text); ok {
			return m, true
		}
	}
	return nil, false
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func decodeDirect(text string) (map[string]any, bool) {
	return decodeObject(text)
}

// decodeBraceSpan decodes the span from the first '{' to the last '}'.
func decodeBraceSpan(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeObject(text[start : end+1])
}

func decodeObject(text string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

// RepairExtraction fills the top-level fields of a decoded record. A missing
// or blank company becomes fallbackCompany, a missing or non-list signals
// field becomes empty, and non-object signal entries are dropped.
func RepairExtraction(data map[string]any, fallbackCompany string) esg.CompanyExtraction {
	out := esg.CompanyExtraction{Company: fallbackCompany, Signals: []map[string]any{}}
	switch c := data["company"].(type) {
	case string:
		if strings.TrimSpace(c) != "" {
			out.Company = c
		}
	case nil:
	default:
		out.Company = fmt.Sprint(c)
	}
	list, _ := data["signals"].([]any)
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out.Signals = append(out.Signals, m)
		}
	}
	return out
}
