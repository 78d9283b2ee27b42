package vsdx

import (
	"math"
	"strconv"
	"strings"

	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/model"
)

// Built-in defaults used when neither the shape nor its master defines a
// cell.
const (
	defaultWidth      = 1.0
	defaultHeight     = 0.75
	defaultPageWidth  = 8.5
	defaultPageHeight = 11.0
)

// lineEnds holds a connector's begin and end points in absolute page
// coordinates, used for dangling endpoints.
type lineEnds struct {
	begin    model.Point
	end      model.Point
	hasBegin bool
	hasEnd   bool
}

// pageBuilder carries the state of one page while its shape tree is
// resolved.
type pageBuilder struct {
	pkg     *Package
	part    string
	masters *MasterResolver
	page    *model.Page
	ends    map[int]lineEnds
	diags   *[]model.Diagnostic
}

// buildPage resolves one page's shape tree into model shapes in document
// order, parents before children. The returned builder and connect records
// feed connection resolution.
func buildPage(pkg *Package, masters *MasterResolver, meta pageXML, part string, diags *[]model.Diagnostic) (*pageBuilder, []connectXML, error) {
	data, err := pkg.Part(part)
	if err != nil {
		return nil, nil, err
	}
	var contents pageContentsXML
	if err := decodePart(data, &contents, part, diags); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeCorruptArchive, err, "parsing page contents").WithPart(part)
	}

	width := sheetFloat(meta.PageSheet, "PageWidth", defaultPageWidth)
	height := sheetFloat(meta.PageSheet, "PageHeight", defaultPageHeight)
	page := model.NewPage(meta.ID, meta.displayName(), width, height)

	// Drawing scale maps drawing units onto page units; identity in the
	// common case of both cells at 1.
	root := model.Identity()
	drawingScale := sheetFloat(meta.PageSheet, "DrawingScale", 1)
	pageScale := sheetFloat(meta.PageSheet, "PageScale", 1)
	if drawingScale != 0 && drawingScale != pageScale {
		k := pageScale / drawingScale
		root = model.Scale(k, k)
	}

	b := &pageBuilder{
		pkg:     pkg,
		part:    part,
		masters: masters,
		page:    page,
		ends:    make(map[int]lineEnds),
		diags:   diags,
	}
	for _, s := range contents.Shapes {
		b.walkShape(s, model.NoParent, root, 0)
	}
	return b, contents.Connects, nil
}

// walkShape resolves one shape and recurses into its children. The local
// transform places the shape's pin in parent coordinates with rotation
// about the pin; composing it with the parent's absolute matrix yields
// absolute page coordinates.
func (b *pageBuilder) walkShape(s shapeXML, parentID int, parentMatrix model.Matrix, parentAngle float64) {
	var m *Master
	if s.Master != "" {
		var ok bool
		m, ok = b.masters.Get(s.Master)
		if !ok {
			*b.diags = append(*b.diags, model.NewDiagnostic(model.DiagUnresolvedMaster,
				"shape references master %s which is not in the master index", s.Master).
				WithPart(b.part).WithPage(b.page.ID).WithShape(s.ID))
		}
	}

	pinX := resolveCellFloat(s, m, "PinX", 0)
	pinY := resolveCellFloat(s, m, "PinY", 0)
	locPinX := resolveCellFloat(s, m, "LocPinX", 0)
	locPinY := resolveCellFloat(s, m, "LocPinY", 0)
	width := resolveCellFloat(s, m, "Width", defaultWidth)
	height := resolveCellFloat(s, m, "Height", defaultHeight)
	angle := resolveCellFloat(s, m, "Angle", 0)

	local := model.Translate(-locPinX, -locPinY).
		Multiply(model.Rotate(angle)).
		Multiply(model.Translate(pinX, pinY))
	abs := local.Multiply(parentMatrix)

	pin := parentMatrix.Transform(model.Point{X: pinX, Y: pinY})
	sx, sy := matrixScale(parentMatrix)

	shape := &model.Shape{
		ID:     s.ID,
		Name:   s.displayName(),
		Master: s.Master,
		Kind:   classifyShape(s, m),
		X:      pin.X,
		Y:      pin.Y,
		Width:  width * sx,
		Height: height * sy,
		Angle:  parentAngle + angle,
		Parent: parentID,
		Style: model.Style{
			FillColor:  resolveCell(s, m, "FillForegnd", ""),
			LineColor:  resolveCell(s, m, "LineColor", ""),
			LineWeight: resolveCell(s, m, "LineWeight", ""),
		},
	}
	if m != nil {
		shape.MasterName = m.Name
	}
	if s.Text != nil {
		shape.Label = strings.TrimSpace(s.Text.Value)
	} else if m != nil {
		shape.Label = m.Text
	}
	if s.ForeignData != nil && s.ForeignData.Rel != nil && s.ForeignData.Rel.ID != "" {
		if target, err := b.pkg.relTarget(b.part, s.ForeignData.Rel.ID); err == nil {
			shape.ImageRef = target
		}
	}

	b.page.AddShape(shape)
	if parentID != model.NoParent {
		if parent := b.page.Shape(parentID); parent != nil {
			parent.Children = append(parent.Children, s.ID)
		}
	}

	b.recordLineEnds(s, m, parentMatrix)

	for _, child := range s.Shapes {
		b.walkShape(child, s.ID, abs, parentAngle+angle)
	}
}

// recordLineEnds keeps a shape's begin/end cells, transformed to absolute
// coordinates. Connect records may later mark any shape a connector, so
// every shape carrying the 1-D cells is recorded.
func (b *pageBuilder) recordLineEnds(s shapeXML, m *Master, parentMatrix model.Matrix) {
	var le lineEnds
	bx, by := resolveCell(s, m, "BeginX", ""), resolveCell(s, m, "BeginY", "")
	if bx != "" && by != "" {
		le.begin = parentMatrix.Transform(model.Point{X: parseFloatOr(bx, 0), Y: parseFloatOr(by, 0)})
		le.hasBegin = true
	}
	ex, ey := resolveCell(s, m, "EndX", ""), resolveCell(s, m, "EndY", "")
	if ex != "" && ey != "" {
		le.end = parentMatrix.Transform(model.Point{X: parseFloatOr(ex, 0), Y: parseFloatOr(ey, 0)})
		le.hasEnd = true
	}
	if le.hasBegin || le.hasEnd {
		b.ends[s.ID] = le
	}
}

// classifyShape decides the shape kind. Connector signals win over group
// nesting; everything else is a plain shape.
func classifyShape(s shapeXML, m *Master) model.Kind {
	if isConnectorShape(s, m) {
		return model.KindConnector
	}
	if len(s.Shapes) > 0 || s.Type == "Group" {
		return model.KindGroup
	}
	return model.KindShape
}

// isConnectorShape detects connectors: a connector master, the well-known
// dynamic connector master ID when the index is absent, a Type attribute
// mentioning connect, or the 1-D flag.
func isConnectorShape(s shapeXML, m *Master) bool {
	if m != nil && m.IsConnector {
		return true
	}
	if m == nil && s.Master == "2" {
		return true
	}
	if strings.Contains(strings.ToLower(s.Type), "connect") {
		return true
	}
	return resolveCell(s, m, "OneD", "") == "1"
}

// resolveCell returns the first non-empty value along shape-local cell,
// master effective cell, built-in default.
func resolveCell(s shapeXML, m *Master, name, def string) string {
	if v := s.cell(name); v != "" {
		return v
	}
	if v := m.Cell(name); v != "" {
		return v
	}
	return def
}

func resolveCellFloat(s shapeXML, m *Master, name string, def float64) float64 {
	v := resolveCell(s, m, name, "")
	if v == "" {
		return def
	}
	return parseFloatOr(v, def)
}

func sheetFloat(sheet *pageSheetXML, name string, def float64) float64 {
	v := sheet.cell(name)
	if v == "" {
		return def
	}
	return parseFloatOr(v, def)
}

func parseFloatOr(v string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// matrixScale extracts the axis scale factors of an affine matrix.
func matrixScale(m model.Matrix) (float64, float64) {
	return math.Hypot(m[0], m[1]), math.Hypot(m[2], m[3])
}
