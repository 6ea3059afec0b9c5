package ingest

import "github.com/joelkehle/esg-scorecard/internal/esg"

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// ChunkText splits text into windows of at most size runes. Consecutive
// windows share overlap runes. The caller guarantees 0 <= overlap < size.
func ChunkText(text string, size, overlap int) []string {
	r := []rune(text)
	n := len(r)
	var out []string
	for start := 0; start < n; {
		end := min(start+size, n)
		out = append(out, string(r[start:end]))
		if end == n {
			break
		}
		start = max(0, end-overlap)
	}
	return out
}

// MakeChunks chunks every page in order. Chunk ids are assigned from a single
// counter across all pages.
func MakeChunks(pages []esg.PageRecord, size, overlap int) []esg.ChunkRecord {
	var out []esg.ChunkRecord
	id := 0
	for _, p := range pages {
		for _, text := range ChunkText(p.Text, size, overlap) {
			out = append(out, esg.ChunkRecord{
				Company:    p.Company,
				SourceFile: p.SourceFile,
				Page:       p.Page,
				ChunkID:    id,
				ChunkText:  text,
			})
			id++
		}
	}
	return out
}
