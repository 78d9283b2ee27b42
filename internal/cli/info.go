package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/FransAris/visio-to-xml/format"
	"github.com/FransAris/visio-to-xml/model"
	"github.com/FransAris/visio-to-xml/vsdx"
)

// newInfoCmd creates the info command.
func newInfoCmd(root *rootOpts) *cobra.Command {
	var showDiagnostics bool

	cmd := &cobra.Command{
		Use:   "info <drawing>",
		Short: "Inspect a Visio drawing without converting it",
		Long: `Inspect a Visio drawing without converting it.

Prints the detected format, document metadata, and per-page shape and
connection counts.

Examples:
  visio2xml info flow.vsdx
  visio2xml info flow.vsdx --diagnostics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0], showDiagnostics)
		},
	}

	cmd.Flags().BoolVar(&showDiagnostics, "diagnostics", false, "list every parse diagnostic")

	return cmd
}

func runInfo(input string, showDiagnostics bool) error {
	detected, err := detectDrawing(input)
	if err != nil {
		return err
	}

	printKeyValue("File", input)
	printKeyValue("Format", detected.String())
	if !detected.Openable() {
		if detected == format.VSD {
			printWarning("Legacy binary drawing, resave it as .vsdx in Visio to convert")
		} else {
			printWarning("Not a Visio drawing")
		}
		return nil
	}

	r, err := vsdx.Open(input)
	if err != nil {
		return err
	}
	d := r.Diagram()

	if d.Metadata.Title != "" {
		printKeyValue("Title", d.Metadata.Title)
	}
	if d.Metadata.Creator != "" {
		printKeyValue("Creator", d.Metadata.Creator)
	}
	if d.Metadata.Language != "" {
		printKeyValue("Language", d.Metadata.Language)
	}
	printKeyValue("Masters", strconv.Itoa(r.Masters().Count()))
	printKeyValue("Media", strconv.Itoa(len(r.MediaParts())))

	printNewline()
	fmt.Println(pageTable(d))
	printStats(d.PageCount(), d.ShapeCount(), d.ConnectionCount())

	if n := len(d.Diagnostics); n > 0 {
		printNewline()
		if showDiagnostics {
			printWarning("%d diagnostics", n)
			for _, diag := range d.Diagnostics {
				printDetail("%s", diagnosticLine(diag))
			}
		} else {
			printWarning("%d diagnostics, run with --diagnostics to list them", n)
		}
	}
	return nil
}

// pageTable renders a per-page summary table.
func pageTable(d *model.Diagram) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, d.PageCount())
	for _, page := range d.Pages {
		rows = append(rows, []string{
			strconv.Itoa(page.Index + 1),
			page.Name,
			fmt.Sprintf("%g × %g in", page.Width, page.Height),
			strconv.Itoa(len(page.Shapes)),
			strconv.Itoa(len(page.Connections)),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Page", "Size", "Shapes", "Connections").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 1 {
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		}).
		String()
}

// diagnosticLine renders one diagnostic with its context.
func diagnosticLine(diag model.Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", diag.Code, diag.Message)
	if diag.Page != model.NoContext {
		fmt.Fprintf(&b, " (page %d", diag.Page)
		if diag.Shape != model.NoContext {
			fmt.Fprintf(&b, ", shape %d", diag.Shape)
		}
		b.WriteString(")")
	} else if diag.Part != "" {
		fmt.Fprintf(&b, " (%s)", diag.Part)
	}
	return b.String()
}
