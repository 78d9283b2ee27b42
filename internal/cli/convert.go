package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	visio "github.com/FransAris/visio-to-xml"
	"github.com/FransAris/visio-to-xml/dot"
	"github.com/FransAris/visio-to-xml/drawio"
	"github.com/FransAris/visio-to-xml/format"
	"github.com/FransAris/visio-to-xml/internal/config"
	"github.com/FransAris/visio-to-xml/mermaid"
	"github.com/FransAris/visio-to-xml/model"
	"github.com/FransAris/visio-to-xml/ocr"
)

// convertOpts holds the command-line flags for the convert command.
// Zero values mean "use the configured default".
type convertOpts struct {
	output    string  // output directory, "-" for stdout
	format    string  // drawio, mermaid, dot, or all
	svg       bool    // also render an SVG via graphviz
	pages     string  // page selection like "1,3,5-7"
	noOCR     bool    // disable recognition for this run
	engine    string  // override the configured recognition engine
	threshold float64 // override the configured confidence threshold, -1 = keep
}

// newConvertCmd creates the convert command.
func newConvertCmd(root *rootOpts) *cobra.Command {
	opts := convertOpts{threshold: -1}

	cmd := &cobra.Command{
		Use:   "convert <drawing>",
		Short: "Convert a Visio drawing to editable diagram formats",
		Long: `Convert a Visio drawing to editable diagram formats.

The drawing is parsed into pages, shapes, and connections, master
inheritance is resolved, and the result is emitted in the requested
formats. When a recognition engine is configured, text found inside
embedded images is appended to shape labels.

Examples:
  visio2xml convert flow.vsdx                         # draw.io file into ./output
  visio2xml convert flow.vsdx --format all --svg      # every format plus SVG
  visio2xml convert flow.vsdx --format mermaid -o -   # Mermaid text to stdout
  visio2xml convert flow.vsdx --pages 1,3-5           # selected pages only
  visio2xml convert flow.vsdx --no-ocr                # skip image recognition`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), root, &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output directory, or "-" for stdout`)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: drawio, mermaid, dot, or all")
	cmd.Flags().BoolVar(&opts.svg, "svg", false, "also render an SVG via graphviz")
	cmd.Flags().StringVarP(&opts.pages, "pages", "p", "", `pages to convert, e.g. "1,3,5-7"`)
	cmd.Flags().BoolVar(&opts.noOCR, "no-ocr", false, "disable image text recognition")
	cmd.Flags().StringVar(&opts.engine, "ocr-engine", "", "recognition engine: vision or tesseract")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", -1, "minimum recognition confidence in [0,1]")

	return cmd
}

func runConvert(ctx context.Context, root *rootOpts, opts *convertOpts, input string) error {
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}

	toStdout := opts.output == "-"
	formats := expandFormats(cfg.Output.Format, opts.svg)
	if toStdout && len(formats) > 1 {
		return fmt.Errorf("cannot write %d formats to stdout, pick one", len(formats))
	}

	if err := checkDrawing(input); err != nil {
		return err
	}

	pages, err := parsePageList(opts.pages)
	if err != nil {
		return err
	}

	conv := newConverter(input, cfg, buildEngine(cfg, logger), logger)
	if len(pages) > 0 {
		conv = conv.Pages(pages...)
	}

	logger.Infof("Converting %s", input)
	prog := newProgress(logger)
	d, err := conv.Diagram(ctx)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Parsed %d pages with %d shapes", d.PageCount(), d.ShapeCount()))

	if toStdout {
		out, err := emit(ctx, d, formats[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	written, err := writeOutputs(ctx, d, formats, cfg.Output.Dir, input)
	if err != nil {
		return err
	}

	reportDiagnostics(d.Diagnostics, logger)
	printSuccess("Converted %s", filepath.Base(input))
	printStats(d.PageCount(), d.ShapeCount(), d.ConnectionCount())
	for _, path := range written {
		printFile(path)
	}
	if len(d.Diagnostics) > 0 {
		printNextStep("Inspect diagnostics", "visio2xml info "+input+" --diagnostics")
	}
	return nil
}

// apply folds flag overrides into the loaded configuration.
func (o *convertOpts) apply(cfg *config.Config) error {
	if o.format != "" {
		f := strings.ToLower(o.format)
		if !config.ValidFormats[f] {
			return fmt.Errorf("unknown format %q (valid: drawio, mermaid, dot, all)", o.format)
		}
		cfg.Output.Format = f
	}
	if o.output != "" && o.output != "-" {
		cfg.Output.Dir = o.output
	}
	if o.noOCR {
		cfg.OCR.Enabled = false
	}
	if o.engine != "" {
		e := strings.ToLower(o.engine)
		if !config.ValidEngines[e] {
			return fmt.Errorf("unknown engine %q (valid: vision, tesseract)", o.engine)
		}
		cfg.OCR.Engine = e
	}
	if o.threshold >= 0 {
		if o.threshold > 1 {
			return fmt.Errorf("threshold %v out of range [0, 1]", o.threshold)
		}
		cfg.OCR.ConfidenceThreshold = o.threshold
	}
	return nil
}

// newConverter builds a configured converter for input. A nil engine
// means no label enrichment.
func newConverter(input string, cfg *config.Config, engine ocr.Engine, logger *log.Logger) *visio.Converter {
	return visio.Open(input).
		WithLogger(logger).
		WithEngine(engine).
		Threshold(cfg.OCR.ConfidenceThreshold).
		Languages(cfg.OCR.Languages...).
		Concurrency(cfg.OCR.Concurrency).
		RecognitionTimeout(cfg.OCR.Timeout.Duration).
		MaxImageSize(cfg.OCR.MaxImageSize)
}

// checkDrawing verifies that input exists and is an OPC Visio drawing.
// Legacy binary drawings get a pointed message since they are a common
// tripwire.
func checkDrawing(input string) error {
	detected, err := detectDrawing(input)
	if err != nil {
		return err
	}
	if detected == format.VSD {
		return fmt.Errorf("%s is a legacy binary drawing; resave it as .vsdx in Visio first", input)
	}
	if !detected.Openable() {
		return fmt.Errorf("%s is not a Visio drawing", input)
	}
	return nil
}

// detectDrawing sniffs the file format from content.
func detectDrawing(path string) (format.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return format.Unknown, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return format.Unknown, err
	}
	return format.DetectFromReader(f, st.Size())
}

// parsePageList parses a selection like "1,3,5-7" into 1-indexed page
// numbers. An empty selection returns nil, meaning all pages.
func parsePageList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || start > end {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
			for p := start; p <= end; p++ {
				pages = append(pages, p)
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", part)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// expandFormats resolves the requested format into a list of emitters.
func expandFormats(requested string, svg bool) []string {
	var formats []string
	if requested == "all" {
		formats = []string{"drawio", "mermaid", "dot"}
	} else {
		formats = []string{requested}
	}
	if svg {
		formats = append(formats, "svg")
	}
	return formats
}

// emit renders d in the given output format.
func emit(ctx context.Context, d *model.Diagram, f string) ([]byte, error) {
	switch f {
	case "drawio":
		return drawio.Marshal(d)
	case "mermaid":
		return mermaid.Marshal(d)
	case "dot":
		return dot.Marshal(d)
	case "svg":
		out, err := dot.Marshal(d)
		if err != nil {
			return nil, err
		}
		return dot.RenderSVG(ctx, out)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

// extFor maps an output format to its file extension.
func extFor(f string) string {
	switch f {
	case "drawio":
		return ".drawio"
	case "mermaid":
		return ".mmd"
	case "dot":
		return ".dot"
	case "svg":
		return ".svg"
	}
	return "." + f
}

// writeOutputs emits d in every requested format into dir, named after
// the input file, and returns the written paths.
func writeOutputs(ctx context.Context, d *model.Diagram, formats []string, dir, input string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	var written []string
	for _, f := range formats {
		out, err := emit(ctx, d, f)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, stem+extFor(f))
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// reportDiagnostics surfaces parse and enrichment diagnostics without
// failing the conversion. Details go to the debug log.
func reportDiagnostics(diags []model.Diagnostic, logger *log.Logger) {
	if len(diags) == 0 {
		return
	}
	if len(diags) == 1 {
		printWarning("1 diagnostic recorded, run with -v for details")
	} else {
		printWarning("%d diagnostics recorded, run with -v for details", len(diags))
	}
	for _, diag := range diags {
		logger.Debug("diagnostic", "code", diag.Code, "msg", diag.Message)
	}
}
