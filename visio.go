// Package visio provides a fluent API for converting Visio (.vsdx)
// drawings into draw.io, Mermaid, and Graphviz DOT diagrams.
//
// Basic usage:
//
//	out, err := visio.Open("flow.vsdx").DrawIO(ctx)
//	if err != nil {
//	    // handle error
//	}
//	os.WriteFile("flow.drawio", out, 0o644)
//
// With options:
//
//	text, err := visio.Open("flow.vsdx").
//	    Pages(1, 2).
//	    Direction("LR").
//	    Mermaid(ctx)
//
// Shapes that carry embedded images can have their labels enriched by a
// recognition engine:
//
//	engine := ocr.NewVisionEngine(apiURL, apiKey)
//	d, err := visio.Open("scan.vsdx").WithEngine(engine).Diagram(ctx)
//
// For advanced use cases the lower-level vsdx package is also available.
package visio

import (
	"io"
)

// Open opens a VSDX file and returns a Converter for fluent configuration.
// The file is read lazily when a terminal operation runs.
//
// Example:
//
//	out, err := visio.Open("flow.vsdx").DrawIO(ctx)
func Open(filename string) *Converter {
	return &Converter{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromBytes creates a Converter from an in-memory VSDX package.
//
// Example:
//
//	out, err := visio.FromBytes(data).Mermaid(ctx)
func FromBytes(data []byte) *Converter {
	return &Converter{
		data:    data,
		options: defaultOptions(),
	}
}

// FromReader creates a Converter that reads the whole package from r
// before parsing. The caller keeps ownership of r.
//
// Example:
//
//	out, err := visio.FromReader(resp.Body).DOT(ctx)
func FromReader(r io.Reader) *Converter {
	data, err := io.ReadAll(r)
	return &Converter{
		data:    data,
		err:     err,
		options: defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	d := visio.Must(visio.Open("flow.vsdx").Diagram(ctx))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
