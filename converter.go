package visio

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/FransAris/visio-to-xml/dot"
	"github.com/FransAris/visio-to-xml/drawio"
	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/mermaid"
	"github.com/FransAris/visio-to-xml/model"
	"github.com/FransAris/visio-to-xml/ocr"
	"github.com/FransAris/visio-to-xml/vsdx"
)

// Converter provides a fluent interface for converting Visio drawings.
// Each configuration method returns a new Converter instance, making it
// safe for concurrent use and allowing method chaining.
type Converter struct {
	// Source; filename is read lazily, data wins when both are set
	filename string
	data     []byte

	// Configuration
	options ConvertOptions

	// Accumulated error (fail-fast)
	err error
}

// clone creates a shallow copy of the Converter with a deep copy of options.
// This ensures immutability - each chain method returns a new instance.
func (c *Converter) clone() *Converter {
	return &Converter{
		filename: c.filename,
		data:     c.data,
		options:  c.options.clone(),
		err:      c.err,
	}
}

// Pages restricts conversion to specific pages (1-indexed).
// Pages can be called multiple times; duplicates are ignored and output
// always follows document order.
//
// Example:
//
//	out, err := visio.Open("flow.vsdx").Pages(1, 3).DrawIO(ctx)
func (c *Converter) Pages(pages ...int) *Converter {
	newConv := c.clone()
	newConv.options.pages = append(newConv.options.pages, pages...)
	return newConv
}

// PageRange restricts conversion to a range of pages (1-indexed, inclusive).
//
// Example:
//
//	out, err := visio.Open("flow.vsdx").PageRange(2, 4).Mermaid(ctx)
func (c *Converter) PageRange(start, end int) *Converter {
	newConv := c.clone()
	for i := start; i <= end; i++ {
		newConv.options.pages = append(newConv.options.pages, i)
	}
	return newConv
}

// WithEngine enables label enrichment for image-bearing shapes using the
// given recognition engine. Without an engine, labels stay as parsed.
//
// Example:
//
//	engine := ocr.NewVisionEngine(apiURL, apiKey)
//	d, err := visio.Open("scan.vsdx").WithEngine(engine).Diagram(ctx)
func (c *Converter) WithEngine(engine ocr.Engine) *Converter {
	newConv := c.clone()
	newConv.options.engine = engine
	return newConv
}

// Threshold sets the minimum confidence for recognized text to be applied
// to a shape label. Results below the threshold are recorded as
// diagnostics instead.
//
// Example:
//
//	d, err := visio.Open("scan.vsdx").WithEngine(engine).Threshold(0.6).Diagram(ctx)
func (c *Converter) Threshold(threshold float64) *Converter {
	newConv := c.clone()
	newConv.options.threshold = threshold
	return newConv
}

// Languages sets the language hints passed to the recognition engine.
//
// Example:
//
//	d, err := visio.Open("scan.vsdx").WithEngine(engine).Languages("eng", "deu").Diagram(ctx)
func (c *Converter) Languages(langs ...string) *Converter {
	newConv := c.clone()
	newConv.options.languages = append([]string(nil), langs...)
	return newConv
}

// Concurrency sets how many images are recognized in parallel.
func (c *Converter) Concurrency(n int) *Converter {
	newConv := c.clone()
	newConv.options.concurrency = n
	return newConv
}

// RecognitionTimeout bounds how long a single image recognition may take.
func (c *Converter) RecognitionTimeout(d time.Duration) *Converter {
	newConv := c.clone()
	newConv.options.timeout = d
	return newConv
}

// MaxImageSize sets the maximum image dimension in pixels before images
// are downscaled for recognition.
func (c *Converter) MaxImageSize(px int) *Converter {
	newConv := c.clone()
	newConv.options.maxImageSize = px
	return newConv
}

// Scale sets the pixels-per-inch factor for draw.io output.
//
// Example:
//
//	out, err := visio.Open("flow.vsdx").Scale(72).DrawIO(ctx)
func (c *Converter) Scale(pixelsPerInch float64) *Converter {
	newConv := c.clone()
	newConv.options.scale = pixelsPerInch
	return newConv
}

// Direction sets the flow direction for Mermaid output, e.g. "TD" or "LR".
//
// Example:
//
//	text, err := visio.Open("flow.vsdx").Direction("LR").Mermaid(ctx)
func (c *Converter) Direction(dir string) *Converter {
	newConv := c.clone()
	newConv.options.direction = dir
	return newConv
}

// Detailed includes shape ids and master names in DOT node labels.
//
// Example:
//
//	out, err := visio.Open("flow.vsdx").Detailed().DOT(ctx)
func (c *Converter) Detailed() *Converter {
	newConv := c.clone()
	newConv.options.detailed = true
	return newConv
}

// WithLogger attaches a logger used for progress reporting during
// conversion. Without one, conversion is silent.
func (c *Converter) WithLogger(logger *log.Logger) *Converter {
	newConv := c.clone()
	newConv.options.logger = logger
	return newConv
}

// Diagram parses the drawing and returns the resolved in-memory diagram:
// pages, shapes with inherited geometry and text, and connections. When a
// recognition engine is configured, image-bearing shape labels are
// enriched before the diagram is returned.
//
// Example:
//
//	d, err := visio.Open("flow.vsdx").Diagram(ctx)
//	for _, page := range d.Pages {
//	    fmt.Println(page.Name, len(page.Shapes))
//	}
func (c *Converter) Diagram(ctx context.Context) (*model.Diagram, error) {
	return c.run(ctx)
}

// DrawIO converts the drawing to draw.io mxfile XML.
//
// Example:
//
//	out, err := visio.Open("flow.vsdx").DrawIO(ctx)
//	os.WriteFile("flow.drawio", out, 0o644)
func (c *Converter) DrawIO(ctx context.Context) ([]byte, error) {
	d, err := c.run(ctx)
	if err != nil {
		return nil, err
	}
	var opts []drawio.Option
	if c.options.scale > 0 {
		opts = append(opts, drawio.WithScale(c.options.scale))
	}
	return drawio.Marshal(d, opts...)
}

// Mermaid converts the drawing to Mermaid flowchart text.
//
// Example:
//
//	text, err := visio.Open("flow.vsdx").Mermaid(ctx)
func (c *Converter) Mermaid(ctx context.Context) ([]byte, error) {
	d, err := c.run(ctx)
	if err != nil {
		return nil, err
	}
	var opts []mermaid.Option
	if c.options.direction != "" {
		opts = append(opts, mermaid.WithDirection(c.options.direction))
	}
	return mermaid.Marshal(d, opts...)
}

// DOT converts the drawing to Graphviz DOT text with pinned node
// positions.
//
// Example:
//
//	out, err := visio.Open("flow.vsdx").DOT(ctx)
func (c *Converter) DOT(ctx context.Context) ([]byte, error) {
	d, err := c.run(ctx)
	if err != nil {
		return nil, err
	}
	var opts []dot.Option
	if c.options.detailed {
		opts = append(opts, dot.WithDetails())
	}
	return dot.Marshal(d, opts...)
}

// SVG converts the drawing to an SVG rendering of its DOT form.
//
// Example:
//
//	out, err := visio.Open("flow.vsdx").SVG(ctx)
//	os.WriteFile("flow.svg", out, 0o644)
func (c *Converter) SVG(ctx context.Context) ([]byte, error) {
	dotBytes, err := c.DOT(ctx)
	if err != nil {
		return nil, err
	}
	return dot.RenderSVG(ctx, dotBytes)
}

// PageCount returns the number of pages in the drawing without running
// enrichment.
//
// Example:
//
//	n, err := visio.Open("flow.vsdx").PageCount()
func (c *Converter) PageCount() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	if err := c.ensureData(); err != nil {
		return 0, err
	}
	r, err := vsdx.NewReader(c.data)
	if err != nil {
		return 0, err
	}
	return r.Diagram().PageCount(), nil
}

// run executes the conversion pipeline: read, parse, select pages, and
// enrich. Each terminal operation parses fresh so repeated calls on the
// same Converter never apply enrichment twice.
func (c *Converter) run(ctx context.Context) (*model.Diagram, error) {
	if c.err != nil {
		return nil, c.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.ensureData(); err != nil {
		return nil, err
	}

	r, err := vsdx.NewReader(c.data)
	if err != nil {
		return nil, err
	}
	d := r.Diagram()
	if c.filename != "" {
		d.Metadata.Source = filepath.Base(c.filename)
	}
	if logger := c.options.logger; logger != nil {
		logger.Debug("parsed drawing",
			"source", d.Metadata.Source,
			"pages", d.PageCount(),
			"shapes", d.ShapeCount(),
			"connections", d.ConnectionCount())
	}

	d, err = c.selectPages(d)
	if err != nil {
		return nil, err
	}

	if c.options.engine != nil {
		if err := c.enrich(ctx, d, r); err != nil {
			return nil, err
		}
		if logger := c.options.logger; logger != nil {
			logger.Debug("enrichment complete", "diagnostics", len(d.Diagnostics))
		}
	}
	return d, nil
}

// ensureData reads the source file if the package bytes are not in
// memory yet.
func (c *Converter) ensureData() error {
	if c.data != nil {
		return nil
	}
	if c.filename == "" {
		return errors.New(errors.ErrCodeInvalidInput, "no input specified")
	}
	data, err := os.ReadFile(c.filename)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "read %s", c.filename)
	}
	c.data = data
	return nil
}

// selectPages applies the configured page selection, returning a diagram
// holding only the requested pages in document order. With no selection
// the parsed diagram is returned unchanged.
func (c *Converter) selectPages(d *model.Diagram) (*model.Diagram, error) {
	if len(c.options.pages) == 0 {
		return d, nil
	}
	indices, err := resolvePages(c.options.pages, d.PageCount())
	if err != nil {
		return nil, err
	}
	out := model.NewDiagram()
	out.Metadata = d.Metadata
	out.Diagnostics = d.Diagnostics
	for _, i := range indices {
		out.AddPage(d.Pages[i])
	}
	return out, nil
}

// resolvePages converts 1-indexed page numbers to 0-indexed and validates
// them against the page count. Duplicates collapse and the result is
// sorted into document order.
func resolvePages(pages []int, pageCount int) ([]int, error) {
	seen := make(map[int]bool)
	var indices []int
	for _, p := range pages {
		if p < 1 || p > pageCount {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"page %d out of range (1-%d)", p, pageCount)
		}
		zeroIndexed := p - 1
		if !seen[zeroIndexed] {
			seen[zeroIndexed] = true
			indices = append(indices, zeroIndexed)
		}
	}
	sort.Ints(indices)
	return indices, nil
}

// enrich runs the configured recognition engine over the diagram, using
// the parsed package as the image source.
func (c *Converter) enrich(ctx context.Context, d *model.Diagram, src ocr.ImageSource) error {
	opts := []ocr.EnricherOption{
		ocr.WithThreshold(c.options.threshold),
		ocr.WithConcurrency(c.options.concurrency),
		ocr.WithTimeout(c.options.timeout),
		ocr.WithMaxDimension(c.options.maxImageSize),
	}
	if len(c.options.languages) > 0 {
		opts = append(opts, ocr.WithLanguages(c.options.languages...))
	}
	return ocr.NewEnricher(c.options.engine, opts...).Enrich(ctx, d, src)
}
