// Package drawio emits a resolved diagram as draw.io mxfile XML.
//
// Each page becomes one diagram element holding an mxGraphModel. Shapes
// become vertex mxCells styled by their flowchart role, connections
// become edge mxCells. Dangling connection ends are kept as explicit
// sourcePoint/targetPoint coordinates so the edge survives even when an
// endpoint never resolved to a shape.
//
// Visio measures in inches from the bottom-left corner; draw.io uses
// pixels from the top-left. Marshal converts between the two, scaling
// by a configurable pixels-per-inch factor.
package drawio

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/model"
)

// mxfile document attributes. The fixed modification timestamp keeps
// output byte-identical across runs of the same input.
const (
	fileHost     = "app.diagrams.net"
	fileModified = "2024-01-01T00:00:00.000Z"
	fileAgent    = "visio-to-xml"
	fileVersion  = "1.0"
)

// Page box used when a page reports no usable size (A4 portrait in
// draw.io pixels).
const (
	fallbackPageWidth  = 827
	fallbackPageHeight = 1169
)

// DefaultScale is the pixels-per-inch factor applied to all geometry.
const DefaultScale = 100.0

// Shape styles by flowchart role.
const (
	baseStyle     = "rounded=0;whiteSpace=wrap;html=1;"
	processStyle  = baseStyle + "fillColor=#dae8fc;strokeColor=#6c8ebf;"
	decisionStyle = baseStyle + "rhombus;fillColor=#fff2cc;strokeColor=#d6b656;"
	terminalStyle = baseStyle + "ellipse;fillColor=#d5e8d4;strokeColor=#82b366;"
	imageStyle    = baseStyle + "shape=image;imageAspect=0;aspect=fixed;"
	defaultStyle  = baseStyle + "fillColor=#f8cecc;strokeColor=#b85450;"

	edgeStyle = "edgeStyle=orthogonalEdgeStyle;rounded=0;orthogonalLoop=1;jettySize=auto;html=1;"
)

// Marshaler converts a diagram to mxfile XML.
type Marshaler struct {
	scale float64
}

// Option configures the marshaler
type Option func(*Marshaler)

// WithScale sets the pixels-per-inch factor (default: 100)
func WithScale(pixelsPerInch float64) Option {
	return func(m *Marshaler) {
		if pixelsPerInch > 0 {
			m.scale = pixelsPerInch
		}
	}
}

// Marshal converts a diagram to draw.io mxfile XML. Output is
// deterministic for a fixed diagram: diagram IDs and the file etag are
// derived from the source name and page identity, never random.
func Marshal(d *model.Diagram, opts ...Option) ([]byte, error) {
	if d == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil diagram")
	}

	m := &Marshaler{scale: DefaultScale}
	for _, opt := range opts {
		opt(m)
	}

	file := mxFileXML{
		Host:     fileHost,
		Modified: fileModified,
		Agent:    fileAgent,
		Version:  fileVersion,
		Etag:     stableUUID("etag", d.Metadata.Source),
	}
	for _, page := range d.Pages {
		file.Diagrams = append(file.Diagrams, m.convertPage(d, page))
	}

	out, err := xml.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEmit, err, "marshaling mxfile")
	}
	return append([]byte(xml.Header), out...), nil
}

// convertPage builds one diagram element: bootstrap cells 0 and 1, a
// vertex per non-connector shape, an edge per connection.
func (m *Marshaler) convertPage(d *model.Diagram, page *model.Page) diagramXML {
	pageW, pageH := m.pageBox(page)

	graph := mxGraphModelXML{
		Dx:         "1422",
		Dy:         "794",
		Grid:       "1",
		GridSize:   "10",
		Guides:     "1",
		Tooltips:   "1",
		Connect:    "1",
		Arrows:     "1",
		Fold:       "1",
		Page:       "1",
		PageScale:  "1",
		PageWidth:  strconv.Itoa(pageW),
		PageHeight: strconv.Itoa(pageH),
		Math:       "0",
		Shadow:     "0",
	}
	graph.Root.Cells = []mxCellXML{
		{ID: "0"},
		{ID: "1", Parent: "0"},
	}

	// Cell IDs start at 2; 0 and 1 are reserved by the format.
	nextID := 2
	cellOf := make(map[int]string)
	for _, s := range page.Shapes {
		if s.IsConnector() {
			continue
		}
		id := strconv.Itoa(nextID)
		nextID++
		cellOf[s.ID] = id
		graph.Root.Cells = append(graph.Root.Cells, m.vertexCell(id, s, page.Height))
	}
	for _, c := range page.Connections {
		id := strconv.Itoa(nextID)
		nextID++
		graph.Root.Cells = append(graph.Root.Cells, m.edgeCell(id, c, cellOf, page.Height))
	}

	return diagramXML{
		ID:    stableUUID("page", fmt.Sprintf("%s#%d:%s", d.Metadata.Source, page.Index, page.Name)),
		Name:  page.Name,
		Graph: graph,
	}
}

func (m *Marshaler) pageBox(page *model.Page) (int, int) {
	if page.Width <= 0 || page.Height <= 0 {
		return fallbackPageWidth, fallbackPageHeight
	}
	return int(math.Round(page.Width * m.scale)), int(math.Round(page.Height * m.scale))
}

func (m *Marshaler) vertexCell(id string, s *model.Shape, pageHeight float64) mxCellXML {
	label := s.Label
	return mxCellXML{
		ID:     id,
		Value:  &label,
		Style:  m.vertexStyle(s),
		Vertex: "1",
		Parent: "1",
		Geometry: &mxGeometryXML{
			X:      m.fmtNum(s.X * m.scale),
			Y:      m.fmtNum((pageHeight - s.Y - s.Height) * m.scale),
			Width:  m.fmtNum(s.Width * m.scale),
			Height: m.fmtNum(s.Height * m.scale),
			As:     "geometry",
		},
	}
}

// vertexStyle picks the role style and appends a rotation when the shape
// is rotated. draw.io rotation is clockwise degrees, Visio angles are
// counterclockwise radians.
func (m *Marshaler) vertexStyle(s *model.Shape) string {
	var style string
	switch s.Role() {
	case model.RoleProcess:
		style = processStyle
	case model.RoleDecision:
		style = decisionStyle
	case model.RoleTerminal:
		style = terminalStyle
	case model.RoleImage:
		style = imageStyle
	default:
		style = defaultStyle
	}
	if s.Angle != 0 {
		style += fmt.Sprintf("rotation=%s;", m.fmtNum(-s.Angle*180/math.Pi))
	}
	return style
}

// edgeCell emits one connection. Resolved ends reference the target's
// cell; dangling ends keep their literal coordinates as fixed points so
// draw.io renders the edge unattached at that position.
func (m *Marshaler) edgeCell(id string, c *model.Connection, cellOf map[int]string, pageHeight float64) mxCellXML {
	cell := mxCellXML{
		ID:     id,
		Style:  edgeStyle,
		Edge:   "1",
		Parent: "1",
		Geometry: &mxGeometryXML{
			Relative: "1",
			As:       "geometry",
		},
	}
	if c.Label != "" {
		label := c.Label
		cell.Value = &label
	}

	if ref, ok := cellOf[c.Source.ShapeID]; c.Source.Resolved && ok {
		cell.Source = ref
	} else {
		cell.Geometry.Points = append(cell.Geometry.Points, m.endPoint(c.Source, "sourcePoint", pageHeight))
	}
	if ref, ok := cellOf[c.Target.ShapeID]; c.Target.Resolved && ok {
		cell.Target = ref
	} else {
		cell.Geometry.Points = append(cell.Geometry.Points, m.endPoint(c.Target, "targetPoint", pageHeight))
	}
	return cell
}

func (m *Marshaler) endPoint(e model.Endpoint, as string, pageHeight float64) mxPointXML {
	return mxPointXML{
		X:  m.fmtNum(e.X * m.scale),
		Y:  m.fmtNum((pageHeight - e.Y) * m.scale),
		As: as,
	}
}

// fmtNum renders a coordinate with at most two decimal places, dropping
// trailing zeros so grid-aligned values stay integers.
func (m *Marshaler) fmtNum(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// stableUUID derives a deterministic SHA-1 UUID from a namespace tag and
// a seed string.
func stableUUID(kind, seed string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fileAgent+"/"+kind+"/"+seed)).String()
}
