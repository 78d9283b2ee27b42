// Package vsdx provides VSDX (Visio OOXML drawing) package parsing.
package vsdx

import (
	"encoding/xml"
	"io"
	"strings"
)

// XML namespaces used in VSDX files.
const (
	nsVisioMain     = "http://schemas.microsoft.com/office/visio/2012/main"
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsMarkupCompat  = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

// Fixed part names inside the package.
const (
	partContentTypes = "[Content_Types].xml"
	partPackageRels  = "_rels/.rels"
	partDocument     = "visio/document.xml"
	partPages        = "visio/pages/pages.xml"
	partMasters      = "visio/masters/masters.xml"
	partCoreProps    = "docProps/core.xml"
)

// contentTypesXML represents the [Content_Types].xml file structure.
type contentTypesXML struct {
	XMLName   xml.Name          `xml:"Types"`
	Defaults  []defaultTypeXML  `xml:"Default"`
	Overrides []overrideTypeXML `xml:"Override"`
}

type defaultTypeXML struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type overrideTypeXML struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// relationshipsXML represents a .rels file structure.
type relationshipsXML struct {
	XMLName       xml.Name          `xml:"Relationships"`
	Relationships []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"` // "External" targets are not package parts
}

// relXML represents a Rel element carrying an r:id reference.
type relXML struct {
	ID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

// documentXML represents the visio/document.xml file structure. The
// document part carries settings and stylesheets this parser does not
// need; decoding the envelope still verifies the part is well formed.
type documentXML struct {
	XMLName xml.Name `xml:"VisioDocument"`
}

// corePropertiesXML represents the docProps/core.xml metadata part.
type corePropertiesXML struct {
	XMLName  xml.Name `xml:"coreProperties"`
	Title    string   `xml:"title"`
	Creator  string   `xml:"creator"`
	Language string   `xml:"language"`
}

// pagesXML represents the visio/pages/pages.xml page index.
type pagesXML struct {
	XMLName xml.Name  `xml:"Pages"`
	Pages   []pageXML `xml:"Page"`
}

type pageXML struct {
	ID        int           `xml:"ID,attr"`
	Name      string        `xml:"Name,attr"`
	NameU     string        `xml:"NameU,attr"`
	PageSheet *pageSheetXML `xml:"PageSheet"`
	Rel       *relXML       `xml:"Rel"`
}

// displayName prefers the universal name, like the rest of the format does.
func (p pageXML) displayName() string {
	if p.NameU != "" {
		return p.NameU
	}
	return p.Name
}

type pageSheetXML struct {
	Cells []cellXML `xml:"Cell"`
}

func (p *pageSheetXML) cell(name string) string {
	if p == nil {
		return ""
	}
	for _, c := range p.Cells {
		if c.N == name {
			return c.V
		}
	}
	return ""
}

// cellXML represents a single ShapeSheet cell.
type cellXML struct {
	N string `xml:"N,attr"` // cell name, e.g. PinX
	V string `xml:"V,attr"` // cell value
	U string `xml:"U,attr"` // unit, informational
	F string `xml:"F,attr"` // formula, informational
}

// pageContentsXML represents a visio/pages/page*.xml part.
type pageContentsXML struct {
	XMLName  xml.Name     `xml:"PageContents"`
	Shapes   []shapeXML   `xml:"Shapes>Shape"`
	Connects []connectXML `xml:"Connects>Connect"`
}

// shapeXML represents a Shape element, possibly containing nested shapes.
type shapeXML struct {
	ID     int    `xml:"ID,attr"`
	Type   string `xml:"Type,attr"` // Shape, Group, Foreign, Guide
	Master string `xml:"Master,attr"`
	Name   string `xml:"Name,attr"`
	NameU  string `xml:"NameU,attr"`

	Cells       []cellXML       `xml:"Cell"`
	Text        *textXML        `xml:"Text"`
	ForeignData *foreignDataXML `xml:"ForeignData"`
	Shapes      []shapeXML      `xml:"Shapes>Shape"`
}

func (s shapeXML) displayName() string {
	if s.NameU != "" {
		return s.NameU
	}
	return s.Name
}

// cell returns the local value of a cell, or "" when absent.
func (s shapeXML) cell(name string) string {
	for _, c := range s.Cells {
		if c.N == name {
			return c.V
		}
	}
	return ""
}

// textXML collects the character content of a Text element. Runs are
// interleaved with formatting markers (cp, pp, fld), so the element is
// walked token by token and all character data concatenated in document
// order. Explicit line breaks are literal newlines in the content and
// survive as-is.
type textXML struct {
	Value string
}

// UnmarshalXML implements xml.Unmarshaler.
func (t *textXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		switch tk := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(tk)
		}
	}
	t.Value = sb.String()
	return nil
}

// foreignDataXML represents embedded foreign content, typically a bitmap.
type foreignDataXML struct {
	ForeignType     string  `xml:"ForeignType,attr"`
	CompressionType string  `xml:"CompressionType,attr"`
	Rel             *relXML `xml:"Rel"`
}

// connectXML represents a Connect record gluing a connector end to a shape.
type connectXML struct {
	FromSheet int    `xml:"FromSheet,attr"` // connector shape ID
	FromCell  string `xml:"FromCell,attr"`  // BeginX for the source end, EndX for the target end
	FromPart  int    `xml:"FromPart,attr"`
	ToSheet   int    `xml:"ToSheet,attr"` // glued-to shape ID
	ToCell    string `xml:"ToCell,attr"`
	ToPart    int    `xml:"ToPart,attr"`
}

// mastersXML represents the visio/masters/masters.xml master index.
type mastersXML struct {
	XMLName xml.Name    `xml:"Masters"`
	Masters []masterXML `xml:"Master"`
}

type masterXML struct {
	ID       string  `xml:"ID,attr"`
	Name     string  `xml:"Name,attr"`
	NameU    string  `xml:"NameU,attr"`
	UniqueID string  `xml:"UniqueID,attr"`
	BaseID   string  `xml:"BaseID,attr"` // lineage reference to another master's UniqueID
	Rel      *relXML `xml:"Rel"`
}

func (m masterXML) displayName() string {
	if m.NameU != "" {
		return m.NameU
	}
	return m.Name
}

// masterContentsXML represents a visio/masters/master*.xml part.
type masterContentsXML struct {
	XMLName xml.Name   `xml:"MasterContents"`
	Shapes  []shapeXML `xml:"Shapes>Shape"`
}
