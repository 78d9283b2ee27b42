package vsdx

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/FransAris/visio-to-xml/errors"
)

// Package provides access to the parts of an opened VSDX archive. The whole
// archive is decompressed into memory up front, so parts can be read in any
// order without holding a file handle.
type Package struct {
	parts        map[string][]byte
	names        []string // sorted part names
	contentTypes *contentTypesXML
	rels         map[string]*relationshipsXML // source part name -> relationships, "" for package level
}

// NewPackage opens a VSDX package from raw bytes.
func NewPackage(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCorruptArchive, err, "not a readable zip archive")
	}

	p := &Package{
		parts: make(map[string][]byte, len(zr.File)),
		rels:  make(map[string]*relationshipsXML),
	}

	for _, f := range zr.File {
		name := normalizePartName(f.Name)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCorruptArchive, err, "opening archive entry").WithPart(name)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCorruptArchive, err, "reading archive entry").WithPart(name)
		}
		p.parts[name] = content
		p.names = append(p.names, name)
	}
	sort.Strings(p.names)

	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := p.parseContentTypes(); err != nil {
		return nil, err
	}
	if err := p.parseRelationships(); err != nil {
		return nil, err
	}

	return p, nil
}

// normalizePartName maps a zip entry name to a canonical part name.
func normalizePartName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	return path.Clean(name)
}

// validate checks that required parts exist.
func (p *Package) validate() error {
	required := []string{
		partContentTypes,
		partPackageRels,
		partDocument,
		partPages,
	}

	for _, name := range required {
		if _, ok := p.parts[name]; !ok {
			return errors.New(errors.ErrCodeMissingPart, "required part not in archive").WithPart(name)
		}
	}
	return nil
}

func (p *Package) parseContentTypes() error {
	var ct contentTypesXML
	if err := decodeXML(p.parts[partContentTypes], &ct); err != nil {
		return errors.Wrap(errors.ErrCodeCorruptArchive, err, "parsing content types").WithPart(partContentTypes)
	}
	p.contentTypes = &ct
	return nil
}

// parseRelationships parses every .rels part and validates that internal
// targets exist in the archive.
func (p *Package) parseRelationships() error {
	for _, name := range p.names {
		source, ok := relsSource(name)
		if !ok {
			continue
		}

		var rels relationshipsXML
		if err := decodeXML(p.parts[name], &rels); err != nil {
			return errors.Wrap(errors.ErrCodeMalformedRels, err, "parsing relationships").WithPart(name)
		}

		seen := make(map[string]bool, len(rels.Relationships))
		for _, rel := range rels.Relationships {
			if rel.ID == "" || rel.Target == "" {
				return errors.New(errors.ErrCodeMalformedRels, "relationship missing Id or Target").WithPart(name)
			}
			if seen[rel.ID] {
				return errors.New(errors.ErrCodeMalformedRels, "duplicate relationship id").WithPart(name).WithDetail(rel.ID)
			}
			seen[rel.ID] = true

			if rel.TargetMode == "External" {
				continue
			}
			target := resolveTarget(source, rel.Target)
			if _, ok := p.parts[target]; !ok {
				return errors.New(errors.ErrCodeMalformedRels, "relationship targets a missing part %s", target).
					WithPart(name).
					WithDetail(rel.ID)
			}
		}
		p.rels[source] = &rels
	}
	return nil
}

// relsSource maps a .rels part name to the part it describes. Returns
// ("", true) for the package-level _rels/.rels.
func relsSource(name string) (string, bool) {
	dir, base := path.Split(name)
	if dir != "_rels/" && !strings.HasSuffix(dir, "/_rels/") {
		return "", false
	}
	if !strings.HasSuffix(base, ".rels") {
		return "", false
	}
	parent := path.Dir(strings.TrimSuffix(dir, "/"))
	source := strings.TrimSuffix(base, ".rels")
	if source == "" {
		if parent == "." {
			return "", true
		}
		return "", false
	}
	if parent == "." {
		return source, true
	}
	return path.Join(parent, source), true
}

// resolveTarget resolves a relationship target against its source part.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	dir := "."
	if source != "" {
		dir = path.Dir(source)
	}
	return path.Clean(path.Join(dir, target))
}

// HasPart reports whether the package contains the named part.
func (p *Package) HasPart(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// Part returns the raw bytes of the named part.
func (p *Package) Part(name string) ([]byte, error) {
	content, ok := p.parts[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeMissingPart, "part not in archive").WithPart(name)
	}
	return content, nil
}

// PartNames returns all part names in sorted order.
func (p *Package) PartNames() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// ContentType returns the declared content type of a part, preferring an
// Override entry over the extension Default. Empty when undeclared.
func (p *Package) ContentType(name string) string {
	withSlash := "/" + name
	for _, o := range p.contentTypes.Overrides {
		if o.PartName == withSlash || o.PartName == name {
			return o.ContentType
		}
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, d := range p.contentTypes.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType
		}
	}
	return ""
}

// relTarget resolves a relationship ID declared by the given source part to
// the target part name.
func (p *Package) relTarget(source, relID string) (string, error) {
	rels, ok := p.rels[source]
	if !ok {
		return "", errors.New(errors.ErrCodeMalformedRels, "part declares no relationships").WithPart(source).WithDetail(relID)
	}
	for _, rel := range rels.Relationships {
		if rel.ID == relID {
			if rel.TargetMode == "External" {
				return "", errors.New(errors.ErrCodeMalformedRels, "relationship target is external").WithPart(source).WithDetail(relID)
			}
			return resolveTarget(source, rel.Target), nil
		}
	}
	return "", errors.New(errors.ErrCodeMalformedRels, "relationship not declared").WithPart(source).WithDetail(relID)
}

// relTargetByType returns the first relationship target of the source part
// with the given relationship type, in declaration order.
func (p *Package) relTargetByType(source, relType string) (string, bool) {
	rels, ok := p.rels[source]
	if !ok {
		return "", false
	}
	for _, rel := range rels.Relationships {
		if rel.Type == relType && rel.TargetMode != "External" {
			return resolveTarget(source, rel.Target), true
		}
	}
	return "", false
}
