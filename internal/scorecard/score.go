package scorecard

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

const (
	NeutralScore     = 3.0
	NeutralRationale = "No extracted signals for this topic (default neutral)."

	maxScoredSignals = 6
	negativeWeight   = 0.45
	positiveWeight   = 0.20
	minScore         = 1.0
	maxScore         = 5.0

	quoteCap     = 180
	rationaleCap = 900
	evidenceCap  = 900

	rationaleSep = " | "
	evidenceSep  = " ; "
)

// TopicScore is the scored outcome of one topic group.
type TopicScore struct {
	Score       float64
	Rationale   string
	KeyEvidence string
}

// ScoreTopic scores the signals of one topic. Only the first six signals
// count. Risks and controversies pull below 3.0 by severity; every other
// signal type pushes above it at a smaller weight.
func ScoreTopic(signals []esg.NormalizedSignal) TopicScore {
	if len(signals) == 0 {
		return TopicScore{Score: NeutralScore, Rationale: NeutralRationale}
	}
	if len(signals) > maxScoredSignals {
		signals = signals[:maxScoredSignals]
	}

	score := NeutralScore
	rationale := make([]string, 0, len(signals))
	var evidence []string
	for _, s := range signals {
		stype := strings.ToLower(s.SignalType)
		delta := s.Severity - NeutralScore
		// Explicit conversions keep the product from being fused into the add.
		if stype == esg.SignalRisk || stype == esg.SignalControversy {
			score -= float64(delta * negativeWeight)
		} else {
			score += float64(delta * positiveWeight)
		}
		rationale = append(rationale, strings.TrimSpace(stype+": "+s.Summary))

		if len(s.Evidence) > 0 {
			e := s.Evidence[0]
			quote := truncateRunes(e.Quote, quoteCap)
			if quote != "" && e.SourceFile != "" {
				evidence = append(evidence, fmt.Sprintf("\"%s\" (%s p%s)", quote, e.SourceFile, pageLabel(e.Page)))
			}
		}
	}

	return TopicScore{
		Score:       clamp(roundTenth(score), minScore, maxScore),
		Rationale:   truncateRunes(strings.Join(rationale, rationaleSep), rationaleCap),
		KeyEvidence: truncateRunes(strings.Join(evidence, evidenceSep), evidenceCap),
	}
}

func pageLabel(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// roundTenth rounds the exact binary value of v to one decimal place, so
// 2.5499999999999998 becomes 2.5 and exact halves go to even.
func roundTenth(v float64) float64 {
	r, err := strconv.ParseFloat(FormatScore(v), 64)
	if err != nil {
		return v
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
