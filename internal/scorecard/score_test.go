package scorecard

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

func sig(stype string, sev float64) esg.NormalizedSignal {
	return NormalizeSignal(map[string]any{"signal_type": stype, "severity": sev, "summary": stype + " summary"})
}

func TestScoreTopicEmptyIsNeutral(t *testing.T) {
	got := ScoreTopic(nil)
	if got.Score != 3.0 || got.Rationale != NeutralRationale || got.KeyEvidence != "" {
		t.Fatalf("unexpected neutral score %+v", got)
	}
}

func TestScoreTopicRiskAndCommitment(t *testing.T) {
	got := ScoreTopic([]esg.NormalizedSignal{sig("risk", 5), sig("commitment", 5)})
	if got.Score != 2.5 {
		t.Fatalf("score=%v want 2.5", got.Score)
	}
	if got.Rationale != "risk: risk summary | commitment: commitment summary" {
		t.Fatalf("rationale=%q", got.Rationale)
	}
}

func TestScoreTopicLowSeverityControversy(t *testing.T) {
	got := ScoreTopic([]esg.NormalizedSignal{sig("controversy", 1)})
	if got.Score != 3.9 {
		t.Fatalf("score=%v want 3.9", got.Score)
	}
}

func TestScoreTopicConsidersFirstSixOnly(t *testing.T) {
	six := make([]esg.NormalizedSignal, 6)
	for i := range six {
		six[i] = sig("risk", 5)
	}
	seven := append(append([]esg.NormalizedSignal(nil), six...), sig("risk", 5))
	if a, b := ScoreTopic(six), ScoreTopic(seven); !reflect.DeepEqual(a, b) {
		t.Fatalf("six=%+v seven=%+v", a, b)
	}
	// A trailing opportunity must also be ignored.
	withTail := append(append([]esg.NormalizedSignal(nil), six...), sig("opportunity", 5))
	if ScoreTopic(withTail).Score != ScoreTopic(six).Score {
		t.Fatal("seventh signal changed the score")
	}
}

func TestScoreTopicStaysInBounds(t *testing.T) {
	for _, tc := range []struct {
		signals []esg.NormalizedSignal
		want    float64
	}{
		{[]esg.NormalizedSignal{sig("risk", 50)}, 1.0},
		{[]esg.NormalizedSignal{sig("opportunity", 50)}, 5.0},
		{[]esg.NormalizedSignal{sig("risk", -40)}, 5.0},
		{[]esg.NormalizedSignal{sig("metric", -40)}, 1.0},
	} {
		got := ScoreTopic(tc.signals).Score
		if got != tc.want {
			t.Errorf("score=%v want=%v", got, tc.want)
		}
	}
}

func TestScoreTopicRoundsBinaryValue(t *testing.T) {
	for _, tc := range []struct {
		name    string
		signals []esg.NormalizedSignal
		want    float64
	}{
		{"single risk 4", []esg.NormalizedSignal{sig("risk", 4)}, 2.5},
		{"risk 1 and risk 2", []esg.NormalizedSignal{sig("risk", 1), sig("risk", 2)}, 4.3},
		{"risk 1 and risk 4", []esg.NormalizedSignal{sig("risk", 1), sig("risk", 4)}, 3.4},
		{"controversy 2", []esg.NormalizedSignal{sig("controversy", 2)}, 3.5},
	} {
		if got := ScoreTopic(tc.signals).Score; got != tc.want {
			t.Errorf("%s: score=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestScoreTopicUnknownTypeCountsAsPositive(t *testing.T) {
	got := ScoreTopic([]esg.NormalizedSignal{sig("Rumor", 4)})
	if got.Score != 3.2 {
		t.Fatalf("score=%v want 3.2", got.Score)
	}
	if !strings.HasPrefix(got.Rationale, "rumor: ") {
		t.Fatalf("signal type should be lowercased: %q", got.Rationale)
	}
	upper := ScoreTopic([]esg.NormalizedSignal{sig("RISK", 5)})
	if upper.Score != 2.1 {
		t.Fatalf("uppercase risk score=%v want 2.1", upper.Score)
	}
}

func TestScoreTopicEvidenceDigest(t *testing.T) {
	long := strings.Repeat("q", 300)
	signals := NormalizeAll([]map[string]any{
		{"signal_type": "risk", "severity": 4.0, "evidence": []any{
			map[string]any{"quote": "Emissions rose 12%", "source_file": "acme.pdf", "page": 12.0},
			map[string]any{"quote": "ignored second quote", "source_file": "acme.pdf", "page": 13.0},
		}},
		{"signal_type": "metric", "evidence": []any{map[string]any{"quote": "no source"}}},
		{"signal_type": "metric", "evidence": []any{map[string]any{"quote": long, "source_file": "b.pdf"}}},
	})
	got := ScoreTopic(signals).KeyEvidence
	want := `"Emissions rose 12%" (acme.pdf p12) ; "` + strings.Repeat("q", 180) + `" (b.pdf p)`
	if got != want {
		t.Fatalf("evidence=%q\nwant=%q", got, want)
	}
}

func TestScoreTopicTruncatesRationale(t *testing.T) {
	var signals []esg.NormalizedSignal
	for i := 0; i < 6; i++ {
		s := sig("metric", 3)
		s.Summary = strings.Repeat("é", 400)
		signals = append(signals, s)
	}
	got := ScoreTopic(signals)
	if n := len([]rune(got.Rationale)); n != 900 {
		t.Fatalf("rationale runes=%d want 900", n)
	}
}

func TestScoreTopicRoundsBeforeClamp(t *testing.T) {
	// 3.0 - 2*0.45 + 1*0.20 = 2.3
	got := ScoreTopic([]esg.NormalizedSignal{sig("risk", 5), sig("metric", 4)}).Score
	if math.Abs(got-2.3) > 1e-9 {
		t.Fatalf("score=%v want 2.3", got)
	}
}
