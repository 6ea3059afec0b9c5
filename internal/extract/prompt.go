package extract

import (
	"fmt"
	"strings"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

const materialityContext = `Financially material means the issue can affect:
- revenue
- costs
- capex
- regulatory exposure
- reputation
- supply constraints
- cost of capital`

const strictRules = `STRICT RULES:
- Return ONLY valid JSON.
- Do NOT include markdown.
- Do NOT include backticks.
- Do NOT include explanations.
- Do NOT write anything before or after JSON.
- Do NOT use "..." anywhere.
- If no real signals are found, return:
  %s
- Otherwise extract between %d and %d real signals.`

const signalRules = `Each signal must:
- Be based ONLY on the provided EXCERPTS
- Include a short direct quote in evidence
- Use the correct source_file and page number
- Assign severity from 1 (low) to 5 (high)`

const formatTemplate = `FORMAT EXACTLY:

{
  "company": %q,
  "signals": [
    {
      "topic_id": "climate_energy",
      "signal_type": "risk",
      "summary": "Clear 1-2 sentence description of the signal.",
      "financial_channel": ["regulatory"],
      "severity": 4,
      "time_horizon": "1-3y",
      "evidence": [
        {
          "quote": "Short direct quote from excerpt",
          "source_file": "file.pdf",
          "page": 12
        }
      ]
    }
  ]
}`

const (
	MinSignals = 3
	MaxSignals = 8
)

// NullResult is the sentinel the model is told to return when it finds nothing.
func NullResult(company string) string {
	return fmt.Sprintf(`{"company":%q,"signals":[]}`, company)
}

// BuildPrompt renders the extraction instructions for one company around the
// already ranked and tagged excerpts.
func BuildPrompt(company, excerpts string) string {
	var b strings.Builder
	b.WriteString("You are an investment research assistant.\n\n")
	fmt.Fprintf(&b, "TASK:\nExtract financially material ESG signals from the EXCERPTS for company %s.\n\n", company)
	b.WriteString(materialityContext)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, strictRules, NullResult(company), MinSignals, MaxSignals)
	b.WriteString("\n\n")
	writeVocabulary(&b, "topic_id", esg.TopicIDs)
	writeVocabulary(&b, "signal_type", esg.SignalTypes)
	writeVocabulary(&b, "financial_channel", esg.FinancialChannels)
	writeVocabulary(&b, "time_horizon", esg.TimeHorizons)
	b.WriteString(signalRules)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, formatTemplate, company)
	b.WriteString("\n\nEXCERPTS:\n")
	b.WriteString(excerpts)
	return strings.TrimSpace(b.String())
}

func writeVocabulary(b *strings.Builder, field string, values []string) {
	fmt.Fprintf(b, "Allowed %s values:\n", field)
	for _, v := range values {
		fmt.Fprintf(b, "- %s\n", v)
	}
	b.WriteString("\n")
}
