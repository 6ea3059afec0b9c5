package scorecard

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

// timeHorizonAliases are misspellings seen in model output, in lookup order.
var timeHorizonAliases = []string{"timehorizon", "timeinhorizon"}

// NormalizeSignal fills every field of a raw signal with a well-typed value.
// Absent or null fields take their defaults. Enum membership and severity
// range are passed through unchecked.
func NormalizeSignal(raw map[string]any) esg.NormalizedSignal {
	th, ok := present(raw, "time_horizon")
	if !ok {
		for _, alias := range timeHorizonAliases {
			if v, found := present(raw, alias); found {
				th, ok = v, true
				break
			}
		}
	}

	out := esg.NormalizedSignal{
		TopicID:          stringField(raw, "topic_id", esg.DefaultTopicID),
		SignalType:       stringField(raw, "signal_type", esg.DefaultSignalType),
		Summary:          stringField(raw, "summary", ""),
		FinancialChannel: stringList(raw["financial_channel"]),
		Severity:         severity(raw["severity"]),
		TimeHorizon:      esg.DefaultTimeHorizon,
		Evidence:         evidenceList(raw["evidence"]),
	}
	if ok {
		out.TimeHorizon = asString(th)
	}
	return out
}

// NormalizeAll normalizes a company's signals in order.
func NormalizeAll(raw []map[string]any) []esg.NormalizedSignal {
	out := make([]esg.NormalizedSignal, 0, len(raw))
	for _, s := range raw {
		if s == nil {
			continue
		}
		out = append(out, NormalizeSignal(s))
	}
	return out
}

// SignalMap converts a normalized signal back to its mapping form.
func SignalMap(s esg.NormalizedSignal) map[string]any {
	channels := make([]any, len(s.FinancialChannel))
	for i, c := range s.FinancialChannel {
		channels[i] = c
	}
	evidence := make([]any, len(s.Evidence))
	for i, e := range s.Evidence {
		var page any
		if e.Page != nil {
			page = float64(*e.Page)
		}
		evidence[i] = map[string]any{"quote": e.Quote, "source_file": e.SourceFile, "page": page}
	}
	return map[string]any{
		"topic_id":          s.TopicID,
		"signal_type":       s.SignalType,
		"summary":           s.Summary,
		"financial_channel": channels,
		"severity":          s.Severity,
		"time_horizon":      s.TimeHorizon,
		"evidence":          evidence,
	}
}

func present(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func stringField(m map[string]any, key, def string) string {
	v, ok := present(m, key)
	if !ok {
		return def
	}
	return asString(v)
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// stringList accepts a list or a single bare string.
func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, asString(item))
		}
	case []string:
		out = append(out, t...)
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func severity(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return esg.DefaultSeverity
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return esg.DefaultSeverity
		}
		f = n
	default:
		return esg.DefaultSeverity
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return esg.DefaultSeverity
	}
	return f
}

// evidenceList keeps mapping entries only.
func evidenceList(v any) []esg.Evidence {
	out := []esg.Evidence{}
	list, _ := v.([]any)
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, esg.Evidence{
			Quote:      stringField(m, "quote", ""),
			SourceFile: stringField(m, "source_file", ""),
			Page:       pageNumber(m["page"]),
		})
	}
	return out
}

func pageNumber(v any) *int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		if t < 1 {
			return nil
		}
		return &t
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil || n < 1 {
			return nil
		}
		return &n
	default:
		return nil
	}
	if f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}
