package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/FransAris/visio-to-xml/format"
	"github.com/FransAris/visio-to-xml/internal/config"
	"github.com/FransAris/visio-to-xml/ocr"
)

// batchOpts holds the command-line flags for the batch command.
type batchOpts struct {
	convertOpts
	recursive bool
	jobs      int
	plain     bool // plain log lines instead of the live progress view
}

// newBatchCmd creates the batch command.
func newBatchCmd(root *rootOpts) *cobra.Command {
	opts := batchOpts{convertOpts: convertOpts{threshold: -1}, jobs: 4}

	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Convert every Visio drawing under a directory",
		Long: `Convert every Visio drawing under a directory.

Drawings are found by extension, converted in parallel, and written to
the output directory mirroring the source layout. A drawing that fails
to convert is reported and skipped; the rest of the batch continues.

Examples:
  visio2xml batch ./drawings
  visio2xml batch ./drawings --recursive --jobs 8
  visio2xml batch ./drawings --format all --no-ocr`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), root, &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: drawio, mermaid, dot, or all")
	cmd.Flags().BoolVar(&opts.svg, "svg", false, "also render an SVG via graphviz")
	cmd.Flags().BoolVar(&opts.noOCR, "no-ocr", false, "disable image text recognition")
	cmd.Flags().StringVar(&opts.engine, "ocr-engine", "", "recognition engine: vision or tesseract")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", -1, "minimum recognition confidence in [0,1]")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", opts.jobs, "number of drawings converted in parallel")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "plain log output instead of the live view")

	return cmd
}

// fileResult is the outcome of converting one drawing.
type fileResult struct {
	path    string
	err     error
	pages   int
	shapes  int
	diags   int
	outputs []string
}

func runBatch(ctx context.Context, root *rootOpts, opts *batchOpts, dir string) error {
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	if opts.output == "-" {
		return fmt.Errorf("batch cannot write to stdout, pass an output directory")
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}
	if opts.jobs < 1 {
		opts.jobs = 1
	}

	files, err := collectDrawings(dir, opts.recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		printInfo("No Visio drawings found in %s", dir)
		return nil
	}
	logger.Infof("Found %d drawings in %s", len(files), dir)

	engine := buildEngine(cfg, logger)
	formats := expandFormats(cfg.Output.Format, opts.svg)

	convert := func(ctx context.Context, input string) fileResult {
		return convertOne(ctx, input, dir, cfg, engine, logger, formats)
	}

	var results []fileResult
	if opts.plain || !isatty.IsTerminal(os.Stderr.Fd()) {
		results = runBatchPlain(ctx, files, opts.jobs, convert, logger)
	} else {
		results = runBatchLive(ctx, files, opts.jobs, convert)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return summarizeBatch(results)
}

// collectDrawings finds openable Visio drawings under dir by extension.
func collectDrawings(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if format.Detect(path).Openable() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// convertOne converts a single drawing, mirroring its position under root
// into the output directory.
func convertOne(ctx context.Context, input, rootDir string, cfg *config.Config, engine ocr.Engine, logger *log.Logger, formats []string) fileResult {
	res := fileResult{path: input}

	rel, err := filepath.Rel(rootDir, input)
	if err != nil {
		rel = filepath.Base(input)
	}
	outDir := filepath.Join(cfg.Output.Dir, filepath.Dir(rel))

	d, err := newConverter(input, cfg, engine, logger).Diagram(ctx)
	if err != nil {
		res.err = err
		return res
	}
	res.pages = d.PageCount()
	res.shapes = d.ShapeCount()
	res.diags = len(d.Diagnostics)
	res.outputs, res.err = writeOutputs(ctx, d, formats, outDir, input)
	return res
}

// runBatchPool converts files with at most jobs workers, reporting each
// result as it lands. Results keep the order of files.
func runBatchPool(ctx context.Context, files []string, jobs int, convert func(context.Context, string) fileResult, report func(fileResult)) []fileResult {
	results := make([]fileResult, len(files))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, f := range files {
		g.Go(func() error {
			r := convert(ctx, f)
			results[i] = r
			report(r)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runBatchPlain reports per-file progress as log lines.
func runBatchPlain(ctx context.Context, files []string, jobs int, convert func(context.Context, string) fileResult, logger *log.Logger) []fileResult {
	return runBatchPool(ctx, files, jobs, convert, func(r fileResult) {
		if r.err != nil {
			logger.Errorf("Failed %s: %v", r.path, r.err)
			return
		}
		logger.Infof("Converted %s (%d pages, %d shapes)", r.path, r.pages, r.shapes)
	})
}

// runBatchLive reports progress through an interactive terminal view.
// Ctrl+C cancels the remaining conversions.
func runBatchLive(ctx context.Context, files []string, jobs int, convert func(context.Context, string) fileResult) []fileResult {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newBatchModel(len(files), cancel), tea.WithOutput(os.Stderr))

	var results []fileResult
	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		results = runBatchPool(ctx, files, jobs, convert, func(r fileResult) {
			p.Send(batchMsg{result: r})
		})
		p.Send(batchDoneMsg{})
	}()

	// The final model is not inspected; results carry everything.
	if _, err := p.Run(); err != nil {
		cancel()
	}
	<-poolDone
	return results
}

// summarizeBatch prints the batch outcome and fails when nothing converted.
func summarizeBatch(results []fileResult) error {
	ok := 0
	diags := 0
	var failures []fileResult
	for _, r := range results {
		if r.err != nil {
			failures = append(failures, r)
			continue
		}
		ok++
		diags += r.diags
	}

	printNewline()
	if len(failures) == 0 {
		printSuccess("Converted %d drawings", ok)
	} else {
		printWarning("Converted %d of %d drawings", ok, len(results))
		for _, f := range failures {
			printError("%s: %v", f.path, f.err)
		}
	}
	if diags > 0 {
		printDetail("%d diagnostics across the batch, inspect files with visio2xml info", diags)
	}

	if ok == 0 && len(failures) > 0 {
		return fmt.Errorf("all %d conversions failed", len(failures))
	}
	return nil
}

// =============================================================================
// Live progress view
// =============================================================================

// batchMsg reports one finished file to the progress view.
type batchMsg struct {
	result fileResult
}

// batchDoneMsg ends the progress view.
type batchDoneMsg struct{}

// batchTickMsg advances the spinner animation.
type batchTickMsg struct{}

// batchModel is the bubbletea model for batch progress.
type batchModel struct {
	total      int
	done       int
	failed     int
	frame      int
	last       fileResult
	cancelling bool
	cancel     context.CancelFunc
}

// newBatchModel creates a progress model for total files.
func newBatchModel(total int, cancel context.CancelFunc) batchModel {
	return batchModel{total: total, cancel: cancel}
}

func (m batchModel) Init() tea.Cmd {
	return batchTick()
}

func batchTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg { return batchTickMsg{} })
}

func (m batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancelling = true
			m.cancel()
		}
	case batchTickMsg:
		m.frame++
		return m, batchTick()
	case batchMsg:
		m.done++
		if msg.result.err != nil {
			m.failed++
		}
		m.last = msg.result
	case batchDoneMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m batchModel) View() string {
	frame := styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)])
	line := fmt.Sprintf("%s %s %d/%d", frame, StyleDim.Render("Converting"), m.done, m.total)
	if m.failed > 0 {
		line += "  " + StyleWarning.Render(fmt.Sprintf("%d failed", m.failed))
	}
	if m.cancelling {
		line += "  " + StyleDim.Render("cancelling...")
	}
	if m.last.path != "" {
		status := iconSuccess
		if m.last.err != nil {
			status = iconError
		}
		line += "\n  " + StyleDim.Render(status+" "+filepath.Base(m.last.path))
	}
	return line + "\n"
}
