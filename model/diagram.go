package model

// Diagram represents a complete parsed Visio drawing
type Diagram struct {
	Metadata    Metadata
	Pages       []*Page
	Diagnostics []Diagnostic
}

// Metadata contains drawing-level information
type Metadata struct {
	Title    string
	Creator  string
	Source   string // original file name, when known
	Language string
}

// NewDiagram creates a new empty diagram
func NewDiagram() *Diagram {
	return &Diagram{
		Pages:       make([]*Page, 0),
		Diagnostics: make([]Diagnostic, 0),
	}
}

// AddPage adds a page to the diagram
func (d *Diagram) AddPage(page *Page) {
	page.Index = len(d.Pages)
	d.Pages = append(d.Pages, page)
}

// GetPage returns a page by index (0-indexed)
func (d *Diagram) GetPage(index int) *Page {
	if index < 0 || index >= len(d.Pages) {
		return nil
	}
	return d.Pages[index]
}

// PageCount returns the total number of pages
func (d *Diagram) PageCount() int {
	return len(d.Pages)
}

// ShapeCount returns the total number of shapes across all pages
func (d *Diagram) ShapeCount() int {
	n := 0
	for _, page := range d.Pages {
		n += len(page.Shapes)
	}
	return n
}

// ConnectionCount returns the total number of connections across all pages
func (d *Diagram) ConnectionCount() int {
	n := 0
	for _, page := range d.Pages {
		n += len(page.Connections)
	}
	return n
}

// Page represents a single drawing page with resolved content
type Page struct {
	ID     int     // page ID from the page index part
	Index  int     // 0-indexed position in the diagram
	Name   string  // display name
	Width  float64 // page width in inches
	Height float64 // page height in inches

	// Shapes in document order. Group members follow their group, so a
	// parent always precedes its children.
	Shapes []*Shape

	// Connections derived from the page's connect records, one per
	// connector shape, in document order.
	Connections []*Connection

	byID map[int]*Shape
}

// NewPage creates a new page with given dimensions
func NewPage(id int, name string, width, height float64) *Page {
	return &Page{
		ID:          id,
		Name:        name,
		Width:       width,
		Height:      height,
		Shapes:      make([]*Shape, 0),
		Connections: make([]*Connection, 0),
		byID:        make(map[int]*Shape),
	}
}

// AddShape appends a shape and indexes it by ID
func (p *Page) AddShape(s *Shape) {
	p.Shapes = append(p.Shapes, s)
	p.byID[s.ID] = s
}

// Shape returns the shape with the given ID, or nil if absent
func (p *Page) Shape(id int) *Shape {
	return p.byID[id]
}

// AddConnection appends a connection
func (p *Page) AddConnection(c *Connection) {
	p.Connections = append(p.Connections, c)
}

// Bounds returns the union of all shape bounds, or the page box when the
// page has no shapes
func (p *Page) Bounds() BBox {
	if len(p.Shapes) == 0 {
		return NewBBox(0, 0, p.Width, p.Height)
	}
	b := p.Shapes[0].Bounds()
	for _, s := range p.Shapes[1:] {
		b = b.Union(s.Bounds())
	}
	return b
}

// Kind classifies a resolved shape
type Kind int

const (
	KindShape Kind = iota
	KindGroup
	KindConnector
)

// String returns a human-readable kind name
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindConnector:
		return "connector"
	default:
		return "shape"
	}
}

// NoParent marks a top-level shape's Parent field
const NoParent = -1

// Shape is a fully resolved shape: master inheritance applied and group
// transforms composed into absolute page coordinates
type Shape struct {
	ID         int
	Name       string // shape name (NameU preferred)
	Master     string // master ID reference as written, "" when none
	MasterName string // resolved master name, "" when unresolved
	Kind       Kind

	Label string // concatenated text runs, line breaks preserved

	X      float64 // absolute pin X in inches
	Y      float64 // absolute pin Y in inches
	Width  float64 // resolved width in inches
	Height float64 // resolved height in inches
	Angle  float64 // absolute rotation in radians

	Style Style

	ImageRef string // package part of the embedded image, "" when none

	Parent   int   // parent shape ID, NoParent for top-level shapes
	Children []int // child shape IDs in document order
}

// Style holds the resolved visual attributes of a shape
type Style struct {
	FillColor  string
	LineColor  string
	LineWeight string
}

// Bounds returns the axis-aligned box of the shape, ignoring rotation.
// X and Y anchor the bottom-left corner, matching the resolved position
func (s *Shape) Bounds() BBox {
	return NewBBox(s.X, s.Y, s.Width, s.Height)
}

// IsConnector reports whether the shape was classified as a connector
func (s *Shape) IsConnector() bool {
	return s.Kind == KindConnector
}

// IsGroup reports whether the shape contains child shapes
func (s *Shape) IsGroup() bool {
	return s.Kind == KindGroup
}

// HasImage reports whether the shape embeds an image part
func (s *Shape) HasImage() bool {
	return s.ImageRef != ""
}

// Endpoint is one end of a connection. A resolved endpoint references a
// shape on the same page; a dangling endpoint keeps only its literal
// coordinate.
type Endpoint struct {
	ShapeID  int     // referenced shape ID, meaningful only when Resolved
	Resolved bool    // whether ShapeID names an existing shape
	X        float64 // endpoint X in absolute page coordinates
	Y        float64 // endpoint Y in absolute page coordinates
}

// Connection links two endpoints through a connector shape
type Connection struct {
	ID     int // connector shape ID
	Source Endpoint
	Target Endpoint
	Label  string // connector text, "" when unlabeled
}

// Dangling reports whether either endpoint failed to resolve
func (c *Connection) Dangling() bool {
	return !c.Source.Resolved || !c.Target.Resolved
}

// SelfLoop reports whether both endpoints resolve to the same shape
func (c *Connection) SelfLoop() bool {
	return c.Source.Resolved && c.Target.Resolved && c.Source.ShapeID == c.Target.ShapeID
}
