package scorecard

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/esg"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// BuildMarkdown renders the scorecard as a markdown report, one section per
// company in row order.
func BuildMarkdown(rows []esg.ScorecardRow, generated time.Time) string {
	var b strings.Builder
	b.WriteString("# ESG Scorecard\n\n")
	fmt.Fprintf(&b, "Generated %s.\n\n", generated.UTC().Format(time.RFC3339))

	if len(rows) == 0 {
		b.WriteString("No rows were produced. Check that the signals directory contains extractions with topic ids.\n")
		return b.String()
	}

	companies, groups := groupRows(rows)
	b.WriteString("## Summary\n\n")
	b.WriteString("| Company | Topics | Mean score | Weakest topic |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, c := range companies {
		g := groups[c]
		weakest := g[0]
		sum := 0.0
		for _, r := range g {
			sum += r.Score
			if r.Score < weakest.Score {
				weakest = r
			}
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s (%s) |\n",
			cell(c), len(g), FormatScore(sum/float64(len(g))), cell(weakest.TopicName), FormatScore(weakest.Score))
	}
	b.WriteString("\n")

	for _, c := range companies {
		fmt.Fprintf(&b, "## %s\n\n", c)
		b.WriteString("| Topic | Score | Rationale |\n")
		b.WriteString("|---|---|---|\n")
		for _, r := range groups[c] {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(r.TopicName), FormatScore(r.Score), cell(r.Rationale))
		}
		b.WriteString("\n")
		var evidence []string
		for _, r := range groups[c] {
			if r.KeyEvidence != "" {
				evidence = append(evidence, fmt.Sprintf("- **%s**: %s", r.TopicName, r.KeyEvidence))
			}
		}
		if len(evidence) > 0 {
			b.WriteString("### Key evidence\n\n")
			b.WriteString(strings.Join(evidence, "\n"))
			b.WriteString("\n\n")
		}
	}

	b.WriteString("## How Scores Work\n\n")
	b.WriteString("Each topic starts at 3.0. Up to six extracted signals are considered in order. ")
	b.WriteString("Risks and controversies subtract 0.45 per severity point above 3; ")
	b.WriteString("other signal types add 0.20 per severity point above 3. ")
	b.WriteString("The result is rounded to one decimal and kept within 1.0 to 5.0.\n")
	return b.String()
}

func groupRows(rows []esg.ScorecardRow) ([]string, map[string][]esg.ScorecardRow) {
	var order []string
	groups := map[string][]esg.ScorecardRow{}
	for _, r := range rows {
		if _, ok := groups[r.Company]; !ok {
			order = append(order, r.Company)
		}
		groups[r.Company] = append(groups[r.Company], r)
	}
	return order, groups
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func cell(s string) string {
	return cellEscaper.Replace(s)
}

// RenderHTML converts a markdown report into a standalone HTML document.
func RenderHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(reportTitle(markdown)) + "</title>" +
		"<style>" + reportCSS + "</style></head><body><div class='report-html'>" +
		applyPrintLayoutHooks(content.String()) +
		"</div></body></html>", nil
}

func reportTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return "ESG Scorecard"
}

var (
	reMethodHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*How Scores Work\s*</h2>`)
	reScoreCell     = regexp.MustCompile(`<td>([1-5]\.[0-9])</td>`)
)

// applyPrintLayoutHooks puts the methodology on its own page and tags score
// cells so they can be colored by band.
func applyPrintLayoutHooks(contentHTML string) string {
	out := reMethodHeading.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">How Scores Work</h2>`)
	return reScoreCell.ReplaceAllStringFunc(out, func(m string) string {
		v := reScoreCell.FindStringSubmatch(m)[1]
		return `<td class="score score-` + scoreBand(v) + `">` + v + `</td>`
	})
}

func scoreBand(v string) string {
	switch {
	case v < "2.5":
		return "low"
	case v >= "3.5":
		return "high"
	default:
		return "mid"
	}
}

const reportCSS = `html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;color:#1c1917;background:#fff;padding:0.6rem;}
.report-html{max-width:1000px;margin:0 auto;}
.report-html h1{border-bottom:3px solid #166534;padding-bottom:0.3rem;}
.report-html table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.8rem;}
.report-html th,.report-html td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
.report-html thead th{background:#f1f5f9;font-weight:700;}
.report-html td.score{font-weight:700;text-align:center;white-space:nowrap;}
.report-html td.score-low{background:#fee2e2;}
.report-html td.score-mid{background:#fef9c3;}
.report-html td.score-high{background:#dcfce7;}
h2[data-page-break-before="true"]{break-before:page;page-break-before:always;}
@media print{ @page{size:auto;margin:12mm;} body{padding:0;} .report-html{max-width:none;} }`
