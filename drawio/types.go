package drawio

import "encoding/xml"

// mxFileXML is the mxfile document root.
type mxFileXML struct {
	XMLName  xml.Name     `xml:"mxfile"`
	Host     string       `xml:"host,attr"`
	Modified string       `xml:"modified,attr"`
	Agent    string       `xml:"agent,attr"`
	Version  string       `xml:"version,attr"`
	Etag     string       `xml:"etag,attr"`
	Diagrams []diagramXML `xml:"diagram"`
}

// diagramXML is one page of the file.
type diagramXML struct {
	ID    string          `xml:"id,attr"`
	Name  string          `xml:"name,attr"`
	Graph mxGraphModelXML `xml:"mxGraphModel"`
}

type mxGraphModelXML struct {
	Dx         string    `xml:"dx,attr"`
	Dy         string    `xml:"dy,attr"`
	Grid       string    `xml:"grid,attr"`
	GridSize   string    `xml:"gridSize,attr"`
	Guides     string    `xml:"guides,attr"`
	Tooltips   string    `xml:"tooltips,attr"`
	Connect    string    `xml:"connect,attr"`
	Arrows     string    `xml:"arrows,attr"`
	Fold       string    `xml:"fold,attr"`
	Page       string    `xml:"page,attr"`
	PageScale  string    `xml:"pageScale,attr"`
	PageWidth  string    `xml:"pageWidth,attr"`
	PageHeight string    `xml:"pageHeight,attr"`
	Math       string    `xml:"math,attr"`
	Shadow     string    `xml:"shadow,attr"`
	Root       mxRootXML `xml:"root"`
}

type mxRootXML struct {
	Cells []mxCellXML `xml:"mxCell"`
}

// mxCellXML is a vertex, an edge, or one of the two bootstrap cells.
// Value is a pointer so vertices emit value="" for unlabeled shapes
// while bootstrap cells and unlabeled edges omit the attribute.
type mxCellXML struct {
	ID       string         `xml:"id,attr"`
	Value    *string        `xml:"value,attr,omitempty"`
	Style    string         `xml:"style,attr,omitempty"`
	Vertex   string         `xml:"vertex,attr,omitempty"`
	Edge     string         `xml:"edge,attr,omitempty"`
	Parent   string         `xml:"parent,attr,omitempty"`
	Source   string         `xml:"source,attr,omitempty"`
	Target   string         `xml:"target,attr,omitempty"`
	Geometry *mxGeometryXML `xml:"mxGeometry,omitempty"`
}

// mxGeometryXML uses string coordinates so zero values survive
// marshaling (x="0" is meaningful, not empty).
type mxGeometryXML struct {
	X        string       `xml:"x,attr,omitempty"`
	Y        string       `xml:"y,attr,omitempty"`
	Width    string       `xml:"width,attr,omitempty"`
	Height   string       `xml:"height,attr,omitempty"`
	Relative string       `xml:"relative,attr,omitempty"`
	As       string       `xml:"as,attr"`
	Points   []mxPointXML `xml:"mxPoint,omitempty"`
}

type mxPointXML struct {
	X  string `xml:"x,attr"`
	Y  string `xml:"y,attr"`
	As string `xml:"as,attr"`
}
