package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/model"
)

// ImageSource supplies the media bytes behind a shape's image reference.
// *vsdx.Reader satisfies it.
type ImageSource interface {
	Image(ref string) (data []byte, mime string, err error)
}

// Enricher defaults.
const (
	DefaultThreshold   = 0.8
	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
)

// Enricher appends recognized image text to the labels of image-carrying
// shapes. Recognition failures never fail the run; affected shapes keep
// their labels and the diagram collects a diagnostic per skipped shape.
type Enricher struct {
	engine      Engine
	threshold   float64
	concurrency int
	timeout     time.Duration
	maxDim      int
	languages   []string
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithThreshold sets the minimum confidence for accepting a result.
func WithThreshold(threshold float64) EnricherOption {
	return func(e *Enricher) { e.threshold = threshold }
}

// WithConcurrency bounds how many recognitions run at once.
func WithConcurrency(n int) EnricherOption {
	return func(e *Enricher) { e.concurrency = n }
}

// WithTimeout bounds each individual recognition.
func WithTimeout(d time.Duration) EnricherOption {
	return func(e *Enricher) { e.timeout = d }
}

// WithMaxDimension bounds the longer image side before submission.
func WithMaxDimension(px int) EnricherOption {
	return func(e *Enricher) { e.maxDim = px }
}

// WithLanguages sets language hints passed to the engine.
func WithLanguages(langs ...string) EnricherOption {
	return func(e *Enricher) { e.languages = langs }
}

// NewEnricher builds an Enricher around engine.
func NewEnricher(engine Engine, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		engine:      engine,
		threshold:   DefaultThreshold,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		maxDim:      DefaultMaxDimension,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}
	return e
}

type enrichTarget struct {
	pageID int
	shape  *model.Shape
}

type enrichOutcome struct {
	text string
	diag *model.Diagnostic
}

// Enrich recognizes every image-carrying shape of the diagram and appends
// accepted text to the shape labels. Work runs concurrently in a bounded
// pool, each submission under its own timeout, and results apply in
// document order so repeated runs produce identical diagrams. The only
// returned error is the context's.
func (e *Enricher) Enrich(ctx context.Context, d *model.Diagram, src ImageSource) error {
	if e.engine == nil {
		return nil
	}

	var targets []enrichTarget
	for _, page := range d.Pages {
		for _, shape := range page.Shapes {
			if shape.HasImage() {
				targets = append(targets, enrichTarget{pageID: page.ID, shape: shape})
			}
		}
	}
	if len(targets) == 0 {
		return nil
	}

	outcomes := make([]enrichOutcome, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, tg := range targets {
		g.Go(func() error {
			outcomes[i] = e.recognizeShape(gctx, tg, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, tg := range targets {
		o := outcomes[i]
		if o.diag != nil {
			d.AddDiagnostic(*o.diag)
			continue
		}
		tg.shape.Label = appendRecognizedText(tg.shape.Label, o.text)
	}
	return nil
}

func (e *Enricher) recognizeShape(ctx context.Context, tg enrichTarget, src ImageSource) enrichOutcome {
	shape := tg.shape

	data, mime, err := src.Image(shape.ImageRef)
	if err != nil {
		return e.skipped(tg, "media %s is unreadable: %v", shape.ImageRef, err)
	}

	prepared, err := PrepareImage(data, mime, e.maxDim)
	if err != nil {
		if errors.Is(err, errors.ErrCodeUnsupportedFormat) {
			return e.skipped(tg, "media %s has no decoder (%s)", shape.ImageRef, mime)
		}
		return e.skipped(tg, "media %s is undecodable: %v", shape.ImageRef, err)
	}

	sctx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	res, err := e.engine.Recognize(sctx, Input{
		ID:        fmt.Sprintf("page%d-shape%d", tg.pageID, shape.ID),
		Bytes:     prepared,
		MIME:      "image/png",
		Languages: e.languages,
	})
	if err != nil {
		return e.unavailable(tg, "recognition failed: %v", err)
	}
	if res.Confidence < e.threshold {
		return e.unavailable(tg, "confidence %.2f below threshold %.2f", res.Confidence, e.threshold)
	}

	return enrichOutcome{text: strings.TrimSpace(res.Text)}
}

func (e *Enricher) skipped(tg enrichTarget, format string, args ...any) enrichOutcome {
	diag := model.NewDiagnostic(model.DiagEnrichmentSkipped, format, args...).
		WithPage(tg.pageID).WithShape(tg.shape.ID)
	return enrichOutcome{diag: &diag}
}

func (e *Enricher) unavailable(tg enrichTarget, format string, args ...any) enrichOutcome {
	diag := model.NewDiagnostic(model.DiagEnrichmentUnavailable, format, args...).
		WithPage(tg.pageID).WithShape(tg.shape.ID)
	return enrichOutcome{diag: &diag}
}

// appendRecognizedText joins recognized text onto an existing label with
// the stable [OCR: ...] delimiter. Empty recognitions leave the label
// untouched.
func appendRecognizedText(label, text string) string {
	if text == "" {
		return label
	}
	if label == "" {
		return fmt.Sprintf("[OCR: %s]", text)
	}
	return fmt.Sprintf("%s\n[OCR: %s]", label, text)
}
