// Package dot emits a resolved diagram as Graphviz DOT text with pinned
// node positions, and renders that text to SVG.
//
// Every node carries pos/width/height attributes taken from the resolved
// geometry, so rendering with the neato engine reproduces the original
// layout instead of computing a new one. Multi-page diagrams become one
// cluster subgraph per page.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/model"
)

// pointsPerInch converts resolved inch coordinates to the point units
// graphviz expects in pos attributes.
const pointsPerInch = 72.0

// Marshaler converts a diagram to DOT text.
type Marshaler struct {
	details bool
}

// Option configures the marshaler
type Option func(*Marshaler)

// WithDetails includes shape ids and master names in node labels.
// Without it, only the shape label is shown.
func WithDetails() Option {
	return func(m *Marshaler) {
		m.details = true
	}
}

// Marshal converts a diagram to Graphviz DOT. The resulting text can be
// rendered with [RenderSVG] or any graphviz installation.
func Marshal(d *model.Diagram, opts ...Option) ([]byte, error) {
	if d == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil diagram")
	}

	m := &Marshaler{}
	for _, opt := range opts {
		opt(m)
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fixedsize=true];\n")
	buf.WriteString("\n")

	for _, page := range d.Pages {
		m.writePage(&buf, page, len(d.Pages) > 1)
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func (m *Marshaler) writePage(buf *bytes.Buffer, page *model.Page, cluster bool) {
	indent := "  "
	if cluster {
		fmt.Fprintf(buf, "  subgraph cluster_%d {\n", page.Index)
		fmt.Fprintf(buf, "    label=%q;\n", page.Name)
		indent = "    "
	}

	for _, s := range page.Shapes {
		if s.IsConnector() {
			continue
		}
		fmt.Fprintf(buf, "%s%q [%s];\n", indent, nodeID(page, s.ID), strings.Join(m.nodeAttrs(s), ", "))
	}
	for _, c := range page.Connections {
		m.writeEdge(buf, indent, page, c)
	}

	if cluster {
		buf.WriteString("  }\n")
	}
}

// nodeAttrs renders one node's attribute list: label, pinned position,
// resolved extent, and a role-specific shape and fill.
func (m *Marshaler) nodeAttrs(s *model.Shape) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", m.nodeLabel(s)),
		fmt.Sprintf("pos=%q", posAttr(s.X+s.Width/2, s.Y+s.Height/2)),
		fmt.Sprintf("width=%s", fmtNum(s.Width)),
		fmt.Sprintf("height=%s", fmtNum(s.Height)),
	}
	switch s.Role() {
	case model.RoleProcess:
		attrs = append(attrs, `fillcolor="#dae8fc"`)
	case model.RoleDecision:
		attrs = append(attrs, "shape=diamond", `fillcolor="#fff2cc"`)
	case model.RoleTerminal:
		attrs = append(attrs, "shape=ellipse", `fillcolor="#d5e8d4"`)
	case model.RoleImage:
		attrs = append(attrs, "shape=note")
	default:
		attrs = append(attrs, `fillcolor="#f8cecc"`)
	}
	return attrs
}

func (m *Marshaler) nodeLabel(s *model.Shape) string {
	label := s.Label
	if label == "" {
		label = fmt.Sprintf("Shape %d", s.ID)
	}
	if !m.details {
		return label
	}

	parts := []string{fmt.Sprintf("id: %d", s.ID)}
	if s.MasterName != "" {
		parts = append(parts, fmt.Sprintf("master: %s", s.MasterName))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

// writeEdge renders one connection. A dangling end gets a placeholder
// node pinned at the literal endpoint coordinates so the edge stays
// visible where the connector actually ended.
func (m *Marshaler) writeEdge(buf *bytes.Buffer, indent string, page *model.Page, c *model.Connection) {
	src := m.endID(buf, indent, page, c, c.Source, "s")
	dst := m.endID(buf, indent, page, c, c.Target, "t")

	if c.Label != "" {
		fmt.Fprintf(buf, "%s%q -> %q [label=%q];\n", indent, src, dst, c.Label)
		return
	}
	fmt.Fprintf(buf, "%s%q -> %q;\n", indent, src, dst)
}

func (m *Marshaler) endID(buf *bytes.Buffer, indent string, page *model.Page, c *model.Connection, e model.Endpoint, side string) string {
	if e.Resolved {
		if s := page.Shape(e.ShapeID); s != nil && !s.IsConnector() {
			return nodeID(page, e.ShapeID)
		}
	}
	id := fmt.Sprintf("d%d_%d%s", page.Index, c.ID, side)
	fmt.Fprintf(buf, "%s%q [label=\"?\", shape=plain, pos=%q];\n", indent, id, posAttr(e.X, e.Y))
	return id
}

func nodeID(page *model.Page, shapeID int) string {
	return fmt.Sprintf("n%d_%d", page.Index, shapeID)
}

func posAttr(x, y float64) string {
	return fmt.Sprintf("%s,%s!", fmtNum(x*pointsPerInch), fmtNum(y*pointsPerInch))
}

func fmtNum(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders DOT text to SVG. The layout attribute embedded by
// Marshal selects the neato engine, which honors the pinned positions.
func RenderSVG(ctx context.Context, dot []byte) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEmit, err, "initializing graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEmit, err, "parsing dot")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEmit, err, "rendering svg")
	}
	return buf.Bytes(), nil
}
