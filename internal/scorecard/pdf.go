package scorecard

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFRenderer turns a markdown report into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

// PaperSize is a page size in inches, portrait orientation.
type PaperSize struct {
	Width, Height float64
}

// PaperSizes lists the paper names accepted by PDFOptions.
var PaperSizes = map[string]PaperSize{
	"a4":     {8.27, 11.69},
	"a3":     {11.69, 16.54},
	"letter": {8.5, 11},
	"legal":  {8.5, 14},
}

const (
	DefaultPDFPaper   = "a4"
	DefaultPDFTimeout = 30 * time.Second
)

// PDFOptions controls page layout and the browser budget of a render.
type PDFOptions struct {
	Paper      string
	Portrait   bool
	Timeout    time.Duration
	ChromePath string
}

// ChromiumPDFRenderer prints the HTML report with a headless Chromium.
type ChromiumPDFRenderer struct {
	chromePath string
	timeout    time.Duration
	paper      PaperSize
	landscape  bool
}

// NewChromiumPDFRenderer fills unset options with A4 landscape, a 30s budget
// and the detected browser binary.
func NewChromiumPDFRenderer(opts PDFOptions) (*ChromiumPDFRenderer, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Paper))
	if name == "" {
		name = DefaultPDFPaper
	}
	paper, ok := PaperSizes[name]
	if !ok {
		return nil, fmt.Errorf("unknown paper size %q", opts.Paper)
	}
	r := &ChromiumPDFRenderer{
		chromePath: opts.ChromePath,
		timeout:    opts.Timeout,
		paper:      paper,
		landscape:  !opts.Portrait,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultPDFTimeout
	}
	if r.chromePath == "" {
		r.chromePath = detectChromePath()
	}
	return r, nil
}

// printParams lays out the report; Chromium swaps width and height itself
// for landscape pages.
func (r *ChromiumPDFRenderer) printParams() *page.PrintToPDFParams {
	footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
		`ESG Scorecard | Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(`<div></div>`).
		WithFooterTemplate(footer).
		WithLandscape(r.landscape).
		WithPaperWidth(r.paper.Width).
		WithPaperHeight(r.paper.Height).
		WithMarginTop(0.5).
		WithMarginBottom(0.75).
		WithMarginLeft(0.45).
		WithMarginRight(0.45)
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	htmlDoc, err := RenderHTML(markdown)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := r.printParams().Do(ctx)
			pdf = out
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}

func detectChromePath() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, p := range []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
