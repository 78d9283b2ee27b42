package vsdx

import (
	"io"
	"os"
	"path/filepath"

	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/model"
)

// Reader provides access to a parsed VSDX drawing. All parsing happens
// when the reader is opened; the resulting diagram is deterministic for
// the same input bytes.
type Reader struct {
	pkg     *Package
	masters *MasterResolver
	diagram *model.Diagram
}

// Open opens a VSDX file and parses it into a diagram.
func Open(filename string) (*Reader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "reading %s", filename)
	}
	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	r.diagram.Metadata.Source = filepath.Base(filename)
	return r, nil
}

// OpenReader reads a VSDX package fully from r and parses it.
func OpenReader(rd io.Reader) (*Reader, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "reading input")
	}
	return NewReader(data)
}

// NewReader parses a VSDX package from raw bytes.
func NewReader(data []byte) (*Reader, error) {
	pkg, err := NewPackage(data)
	if err != nil {
		return nil, err
	}

	r := &Reader{pkg: pkg}
	if err := r.parse(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) parse() error {
	diagram := model.NewDiagram()
	var diags []model.Diagnostic

	if err := r.parseDocument(&diags); err != nil {
		return err
	}
	r.parseCoreProperties(diagram)

	masters, err := loadMasters(r.pkg, &diags)
	if err != nil {
		return err
	}
	r.masters = masters

	if err := r.parsePages(diagram, &diags); err != nil {
		return err
	}

	diagram.Diagnostics = append(diagram.Diagnostics, diags...)
	r.diagram = diagram
	return nil
}

func (r *Reader) parseDocument(diags *[]model.Diagnostic) error {
	data, err := r.pkg.Part(partDocument)
	if err != nil {
		return err
	}
	var doc documentXML
	if err := decodePart(data, &doc, partDocument, diags); err != nil {
		return errors.Wrap(errors.ErrCodeCorruptArchive, err, "parsing document").WithPart(partDocument)
	}
	return nil
}

// parseCoreProperties fills diagram metadata from the optional core
// properties part.
func (r *Reader) parseCoreProperties(diagram *model.Diagram) {
	data, err := r.pkg.Part(partCoreProps)
	if err != nil {
		return
	}
	var props corePropertiesXML
	if err := decodeXML(data, &props); err != nil {
		return
	}
	diagram.Metadata.Title = props.Title
	diagram.Metadata.Creator = props.Creator
	diagram.Metadata.Language = props.Language
}

func (r *Reader) parsePages(diagram *model.Diagram, diags *[]model.Diagnostic) error {
	data, err := r.pkg.Part(partPages)
	if err != nil {
		return err
	}
	var index pagesXML
	if err := decodePart(data, &index, partPages, diags); err != nil {
		return errors.Wrap(errors.ErrCodeCorruptArchive, err, "parsing page index").WithPart(partPages)
	}

	for _, meta := range index.Pages {
		if meta.Rel == nil || meta.Rel.ID == "" {
			return errors.New(errors.ErrCodeMalformedRels, "page %d has no content relationship", meta.ID).
				WithPart(partPages)
		}
		part, err := r.pkg.relTarget(partPages, meta.Rel.ID)
		if err != nil {
			return err
		}

		builder, connects, err := buildPage(r.pkg, r.masters, meta, part, diags)
		if err != nil {
			return err
		}
		builder.resolveConnections(connects)
		diagram.AddPage(builder.page)
	}
	return nil
}

// Diagram returns the parsed diagram.
func (r *Reader) Diagram() *model.Diagram {
	return r.diagram
}

// Package returns the underlying package for part-level access.
func (r *Reader) Package() *Package {
	return r.pkg
}

// Masters returns the master catalog.
func (r *Reader) Masters() *MasterResolver {
	return r.masters
}
