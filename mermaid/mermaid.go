// Package mermaid emits a resolved diagram as Mermaid flowchart text.
//
// Each page becomes one flowchart block; multi-page diagrams separate
// blocks with a "---" divider and title each block with the page name.
// Shapes become nodes whose bracket syntax follows their flowchart role,
// connections become arrows. A dangling connection end is rendered as a
// "((?))" placeholder node instead of being dropped.
package mermaid

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/model"
)

// DefaultDirection is the flow direction of emitted charts.
const DefaultDirection = "TD"

// maxLabelLen bounds node and edge label length for readability. Longer
// labels are cut to 47 characters plus an ellipsis.
const maxLabelLen = 50

// Marshaler converts a diagram to Mermaid text.
type Marshaler struct {
	direction string
}

// Option configures the marshaler
type Option func(*Marshaler)

// WithDirection sets the chart direction, e.g. "TD" or "LR" (default: TD)
func WithDirection(dir string) Option {
	return func(m *Marshaler) {
		if dir != "" {
			m.direction = dir
		}
	}
}

// Marshal converts a diagram to Mermaid flowchart text.
func Marshal(d *model.Diagram, opts ...Option) ([]byte, error) {
	if d == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil diagram")
	}

	m := &Marshaler{direction: DefaultDirection}
	for _, opt := range opts {
		opt(m)
	}

	var buf bytes.Buffer
	for i, page := range d.Pages {
		if i > 0 {
			buf.WriteString("\n---\n\n")
		}
		if len(d.Pages) > 1 {
			fmt.Fprintf(&buf, "## %s\n\n", page.Name)
		}
		m.writePage(&buf, page)
	}
	return buf.Bytes(), nil
}

// writePage emits one flowchart block: the chart header, a node per
// non-connector shape, then an arrow per connection.
func (m *Marshaler) writePage(buf *bytes.Buffer, page *model.Page) {
	fmt.Fprintf(buf, "%s %s\n", chartKind(page), m.direction)

	nodes := make(map[int]bool)
	for _, s := range page.Shapes {
		if s.IsConnector() {
			continue
		}
		nodes[s.ID] = true
		fmt.Fprintf(buf, "    %s\n", nodeDef(s))
	}
	for _, c := range page.Connections {
		fmt.Fprintf(buf, "    %s\n", edgeDef(c, nodes))
	}
}

// chartKind picks the block header. Pages with connections but no
// decision shapes read naturally as a plain graph; everything else is a
// flowchart.
func chartKind(page *model.Page) string {
	for _, s := range page.Shapes {
		if !s.IsConnector() && s.Role() == model.RoleDecision {
			return "flowchart"
		}
	}
	if len(page.Connections) > 0 {
		return "graph"
	}
	return "flowchart"
}

// nodeDef renders one node, bracket syntax by role: {} for decisions,
// () for terminals, [[]] for images, [] otherwise.
func nodeDef(s *model.Shape) string {
	text := sanitizeLabel(s.Label)
	if text == "" {
		text = fmt.Sprintf("Shape %d", s.ID)
	}
	left, right := brackets(s.Role())
	return fmt.Sprintf("n%d%s\"%s\"%s", s.ID, left, text, right)
}

func brackets(r model.Role) (string, string) {
	switch r {
	case model.RoleDecision:
		return "{", "}"
	case model.RoleTerminal:
		return "(", ")"
	case model.RoleImage:
		return "[[", "]]"
	default:
		return "[", "]"
	}
}

// edgeDef renders one arrow. Ends that resolved to an emitted node are
// referenced by node id; anything else becomes a placeholder node unique
// to this connection end.
func edgeDef(c *model.Connection, nodes map[int]bool) string {
	src := endRef(c.Source, c.ID, "s", nodes)
	dst := endRef(c.Target, c.ID, "t", nodes)

	arrow := "-->"
	if label := sanitizeLabel(c.Label); label != "" {
		arrow = fmt.Sprintf("-->|%s|", strings.ReplaceAll(label, "|", "/"))
	}
	return fmt.Sprintf("%s %s %s", src, arrow, dst)
}

func endRef(e model.Endpoint, connID int, side string, nodes map[int]bool) string {
	if e.Resolved && nodes[e.ShapeID] {
		return fmt.Sprintf("n%d", e.ShapeID)
	}
	return fmt.Sprintf("d%d%s((?))", connID, side)
}

// sanitizeLabel makes a label safe for Mermaid syntax: double quotes
// become single quotes, line breaks collapse into spaces, and overlong
// text is truncated.
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxLabelLen {
		s = string(r[:maxLabelLen-3]) + "..."
	}
	return s
}
