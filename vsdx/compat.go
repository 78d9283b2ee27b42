package vsdx

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"

	"github.com/FransAris/visio-to-xml/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// toUTF8 strips a UTF-8 BOM and transcodes UTF-16 parts (either byte order,
// detected by BOM) to UTF-8 so the XML decoder always sees plain UTF-8.
func toUTF8(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return data[len(utf8BOM):], nil
	}
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
	}
	return data, nil
}

// charsetReader feeds xml.Decoder.CharsetReader. Parts are transcoded to
// UTF-8 before decoding, so unicode labels pass through unchanged while
// legacy labels go through the charset registry.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "", "utf-8", "utf-16", "utf-16le", "utf-16be":
		return input, nil
	}
	return charset.NewReaderLabel(label, input)
}

// decodeXML unmarshals a part that never carries alternate content, such as
// content types and relationships.
func decodeXML(data []byte, v any) error {
	data, err := toUTF8(data)
	if err != nil {
		return err
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	return dec.Decode(v)
}

// decodePart unmarshals a drawing part, resolving mc:AlternateContent
// blocks first so v sees exactly one variant per block.
func decodePart(data []byte, v any, part string, diags *[]model.Diagnostic) error {
	data, err := toUTF8(data)
	if err != nil {
		return err
	}
	data, err = resolveAlternateContent(data, part, diags)
	if err != nil {
		return err
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	return dec.Decode(v)
}

var acMarker = []byte("AlternateContent")

// resolveAlternateContent rewrites the part so each mc:AlternateContent
// block is replaced by exactly one of its variants. A selected variant may
// itself contain nested blocks, so passes repeat until the output is
// stable.
func resolveAlternateContent(data []byte, part string, diags *[]model.Diagnostic) ([]byte, error) {
	for i := 0; i < 8 && bytes.Contains(data, acMarker); i++ {
		out, changed, err := resolveAlternateContentPass(data, part, diags)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
		data = out
	}
	return data, nil
}

func resolveAlternateContentPass(data []byte, part string, diags *[]model.Diagnostic) ([]byte, bool, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	// Prefix declarations seen so far, for resolving Requires attributes.
	prefixes := make(map[string]string)
	changed := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}

		switch tk := tok.(type) {
		case xml.StartElement:
			recordPrefixes(tk, prefixes)
			if tk.Name.Space == nsMarkupCompat && tk.Name.Local == "AlternateContent" {
				chosen, fellBack, err := selectVariant(dec, prefixes)
				if err != nil {
					return nil, false, err
				}
				if fellBack {
					*diags = append(*diags, model.NewDiagnostic(model.DiagCompatibilityFallback,
						"no alternate content variant matches the understood namespace, using first variant").WithPart(part))
				}
				for _, ct := range chosen {
					if err := enc.EncodeToken(ct); err != nil {
						return nil, false, err
					}
				}
				changed = true
				continue
			}
			if err := enc.EncodeToken(stripNamespaceDecls(tk.Copy())); err != nil {
				return nil, false, err
			}
		case xml.ProcInst:
			// The encoder refuses the xml declaration; it adds nothing
			// to an in-memory intermediate anyway.
			if tk.Target == "xml" {
				continue
			}
			if err := enc.EncodeToken(tok); err != nil {
				return nil, false, err
			}
		default:
			if err := enc.EncodeToken(tok); err != nil {
				return nil, false, err
			}
		}
	}

	if err := enc.Flush(); err != nil {
		return nil, false, err
	}
	if !changed {
		return data, false, nil
	}
	return buf.Bytes(), true, nil
}

// acVariant is one child branch of an AlternateContent block.
type acVariant struct {
	choice   bool
	fallback bool
	requires string
	tokens   []xml.Token
}

// selectVariant consumes tokens up to the end of the enclosing
// AlternateContent element and returns the tokens of the selected variant.
// The second return is true when no explicitly preferred variant existed
// and the first one was taken.
func selectVariant(dec *xml.Decoder, prefixes map[string]string) ([]xml.Token, bool, error) {
	var variants []acVariant

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, false, err
		}

		switch tk := tok.(type) {
		case xml.StartElement:
			recordPrefixes(tk, prefixes)
			if tk.Name.Space == nsMarkupCompat && (tk.Name.Local == "Choice" || tk.Name.Local == "Fallback") {
				v := acVariant{
					choice:   tk.Name.Local == "Choice",
					fallback: tk.Name.Local == "Fallback",
				}
				for _, a := range tk.Attr {
					if a.Name.Local == "Requires" {
						v.requires = a.Value
					}
				}
				inner, err := captureElement(dec, nil)
				if err != nil {
					return nil, false, err
				}
				v.tokens = inner
				variants = append(variants, v)
				continue
			}
			// A bare child outside Choice/Fallback counts as a variant
			// of its own, wrapper included.
			wrapped, err := captureElement(dec, &tk)
			if err != nil {
				return nil, false, err
			}
			variants = append(variants, acVariant{tokens: wrapped})

		case xml.EndElement:
			if tk.Name.Space == nsMarkupCompat && tk.Name.Local == "AlternateContent" {
				return chooseVariant(variants, prefixes)
			}
		}
	}
}

func chooseVariant(variants []acVariant, prefixes map[string]string) ([]xml.Token, bool, error) {
	for _, v := range variants {
		if v.choice && requiresUnderstood(v.requires, prefixes) {
			return v.tokens, false, nil
		}
	}
	if len(variants) == 0 {
		return nil, false, nil
	}
	for _, v := range variants {
		if v.fallback {
			return v.tokens, false, nil
		}
	}
	return variants[0].tokens, true, nil
}

// requiresUnderstood reports whether every prefix listed in a Requires
// attribute resolves to a namespace this parser understands.
func requiresUnderstood(requires string, prefixes map[string]string) bool {
	fields := strings.Fields(requires)
	if len(fields) == 0 {
		return false
	}
	for _, pfx := range fields {
		if prefixes[pfx] != nsVisioMain {
			return false
		}
	}
	return true
}

// captureElement consumes tokens up to the end of the current element and
// returns the inner tokens. When wrapper is non-nil, the wrapper start and
// its end element are included.
func captureElement(dec *xml.Decoder, wrapper *xml.StartElement) ([]xml.Token, error) {
	var out []xml.Token
	if wrapper != nil {
		out = append(out, stripNamespaceDecls(wrapper.Copy()))
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch tk := tok.(type) {
		case xml.StartElement:
			depth++
			out = append(out, stripNamespaceDecls(tk.Copy()))
			continue
		case xml.EndElement:
			depth--
			if depth == 0 {
				if wrapper != nil {
					out = append(out, xml.CopyToken(tok))
				}
				return out, nil
			}
		}
		out = append(out, xml.CopyToken(tok))
	}
	return out, nil
}

// recordPrefixes collects xmlns prefix declarations from a start element.
func recordPrefixes(se xml.StartElement, prefixes map[string]string) {
	for _, a := range se.Attr {
		if a.Name.Space == "xmlns" {
			prefixes[a.Name.Local] = a.Value
		}
	}
}

// stripNamespaceDecls drops xmlns declaration attributes. Names are already
// resolved to full namespace URIs, and the encoder re-declares what it
// needs; leaving the originals in produces malformed duplicates.
func stripNamespaceDecls(se xml.StartElement) xml.StartElement {
	out := se
	out.Attr = make([]xml.Attr, 0, len(se.Attr))
	for _, a := range se.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		out.Attr = append(out.Attr, a)
	}
	return out
}
