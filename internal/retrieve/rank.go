package retrieve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

// ESGKeywords is the general vocabulary used to pick excerpts for extraction.
var ESGKeywords = []string{
	"emission", "emissions", "scope", "carbon", "renewable", "energy", "climate", "data center",
	"privacy", "gdpr", "ccpa", "breach", "cyber", "security",
	"ai", "algorithm", "model", "governance", "responsible ai",
	"supplier", "supply chain", "labor", "human rights", "audit", "sourcing",
	"antitrust", "investigation", "lawsuit", "fine", "regulator",
	"assurance", "disclosure", "target", "metrics",
}

// Scored pairs a chunk with its keyword relevance.
type Scored struct {
	Chunk esg.ChunkRecord
	Score int
}

// Relevance counts non-overlapping, case-insensitive occurrences of every
// keyword in text. Empty keywords never match.
func Relevance(text string, keywords []string) int {
	lower := strings.ToLower(text)
	total := 0
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		total += strings.Count(lower, kw)
	}
	return total
}

// RankScored drops chunks without any keyword hit, orders the rest by
// descending relevance keeping input order for ties, and keeps at most limit.
// A non-positive limit keeps every relevant chunk.
func RankScored(chunks []esg.ChunkRecord, keywords []string, limit int) []Scored {
	out := make([]Scored, 0, len(chunks))
	for _, c := range chunks {
		if s := Relevance(c.ChunkText, keywords); s > 0 {
			out = append(out, Scored{Chunk: c, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Rank is RankScored without the scores.
func Rank(chunks []esg.ChunkRecord, keywords []string, limit int) []esg.ChunkRecord {
	scored := RankScored(chunks, keywords, limit)
	out := make([]esg.ChunkRecord, len(scored))
	for i, s := range scored {
		out[i] = s.Chunk
	}
	return out
}

// CompanyExcerpts renders the top chunks of one company as prompt excerpts,
// each tagged with its source and truncated to charCap runes. It returns ""
// when nothing is relevant.
func CompanyExcerpts(chunks []esg.ChunkRecord, keywords []string, limit, charCap int) string {
	ranked := Rank(chunks, keywords, limit)
	parts := make([]string, 0, len(ranked))
	for _, c := range ranked {
		parts = append(parts, fmt.Sprintf("[%s p%d] %s", c.SourceFile, c.Page, truncateRunes(c.ChunkText, charCap)))
	}
	return strings.Join(parts, "\n\n")
}

// GroupByCompany splits chunks per company, keeping input order within each
// company. Companies are returned in ascending order.
func GroupByCompany(chunks []esg.ChunkRecord) ([]string, map[string][]esg.ChunkRecord) {
	groups := map[string][]esg.ChunkRecord{}
	for _, c := range chunks {
		groups[c.Company] = append(groups[c.Company], c)
	}
	companies := make([]string, 0, len(groups))
	for name := range groups {
		companies = append(companies, name)
	}
	sort.Strings(companies)
	return companies, groups
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
