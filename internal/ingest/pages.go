// Package ingest turns raw disclosure documents into page and chunk records.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/joelkehle/esg-scorecard/internal/esg"
	"github.com/ledongthuc/pdf"
)

const DefaultMinPageChars = 30

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace runs into single spaces.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// PDFPages returns the plain text of every page, in page order. Pages whose
// text cannot be extracted come back empty.
func PDFPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// HTMLText returns the visible body text of an HTML document.
func HTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, head").Remove()
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var parts []string
	collectText(root, &parts)
	return strings.Join(parts, " "), nil
}

// collectText gathers text nodes separately so adjacent block elements do
// not run together.
func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			if t := strings.TrimSpace(s.Text()); t != "" {
				*parts = append(*parts, t)
			}
			return
		}
		collectText(s, parts)
	})
}

// Source is a raw document with the company it belongs to.
type Source struct {
	Company string
	Path    string
}

// FindSources lists the PDF and HTML documents under rawDir in path order.
// A document's company is the name of its parent directory.
func FindSources(rawDir string) ([]Source, error) {
	var out []Source
	err := filepath.WalkDir(rawDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || documentKind(path) == "" {
			return nil
		}
		out = append(out, Source{Company: filepath.Base(filepath.Dir(path)), Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk raw dir: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func documentKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".html", ".htm":
		return "html"
	default:
		return ""
	}
}

// LoadPages reads one document into page records, dropping pages with fewer
// than minChars characters after cleaning. HTML documents are a single page.
func LoadPages(src Source, minChars int) ([]esg.PageRecord, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, err
	}
	var raw []string
	switch documentKind(src.Path) {
	case "pdf":
		raw, err = PDFPages(data)
	case "html":
		var text string
		text, err = HTMLText(bytes.NewReader(data))
		raw = []string{text}
	default:
		return nil, fmt.Errorf("unsupported document %s", src.Path)
	}
	if err != nil {
		return nil, err
	}

	name := filepath.Base(src.Path)
	var out []esg.PageRecord
	for i, text := range raw {
		text = CleanText(text)
		if len([]rune(text)) < minChars {
			continue
		}
		out = append(out, esg.PageRecord{Company: src.Company, SourceFile: name, Page: i + 1, Text: text})
	}
	return out, nil
}

// ParseDir loads every document under rawDir. Documents that fail to parse
// are logged and skipped.
func ParseDir(rawDir string, minChars int) ([]esg.PageRecord, error) {
	if minChars <= 0 {
		minChars = DefaultMinPageChars
	}
	sources, err := FindSources(rawDir)
	if err != nil {
		return nil, err
	}
	var pages []esg.PageRecord
	for _, src := range sources {
		got, err := LoadPages(src, minChars)
		if err != nil {
			log.Printf("esg-ingest skip_document path=%s err=%q", src.Path, err.Error())
			continue
		}
		log.Printf("esg-ingest document_parsed company=%q file=%s pages=%d", src.Company, filepath.Base(src.Path), len(got))
		pages = append(pages, got...)
	}
	return pages, nil
}
