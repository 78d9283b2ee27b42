package vsdx

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"

	"github.com/FransAris/visio-to-xml/model"
)

// acShapes wraps two variants of shape 1 in an mc:AlternateContent block.
func acShapes(requires string) string {
	return `<Shapes>
  <mc:AlternateContent xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006" xmlns:v="http://schemas.microsoft.com/office/visio/2012/main" xmlns:x="http://example.com/future">
    <mc:Choice Requires="` + requires + `">
      <Shape ID="1"><Cell N="PinX" V="2"/><Text>chosen</Text></Shape>
    </mc:Choice>
    <mc:Fallback>
      <Shape ID="1"><Cell N="PinX" V="9"/><Text>fallback</Text></Shape>
    </mc:Fallback>
  </mc:AlternateContent>
</Shapes>`
}

func TestAlternateContentChoiceUnderstood(t *testing.T) {
	parts := basicParts(acShapes("v"))
	r := mustParse(t, parts)
	d := r.Diagram()

	s := d.GetPage(0).Shape(1)
	if s == nil || s.Label != "chosen" {
		t.Fatalf("shape = %+v, want the choice variant", s)
	}
	if !floatNear(s.X, 2) {
		t.Errorf("X = %v, want 2", s.X)
	}
	if d.HasDiagnostic(model.DiagCompatibilityFallback) {
		t.Errorf("diagnostics = %v, want none for an understood choice", d.Diagnostics)
	}
}

func TestAlternateContentFallback(t *testing.T) {
	parts := basicParts(acShapes("x"))
	r := mustParse(t, parts)
	d := r.Diagram()

	s := d.GetPage(0).Shape(1)
	if s == nil || s.Label != "fallback" {
		t.Fatalf("shape = %+v, want the fallback variant", s)
	}
	if !floatNear(s.X, 9) {
		t.Errorf("X = %v, want 9", s.X)
	}
	if d.HasDiagnostic(model.DiagCompatibilityFallback) {
		t.Errorf("diagnostics = %v, want none when a fallback exists", d.Diagnostics)
	}
}

func TestAlternateContentFirstVariant(t *testing.T) {
	// No understood choice and no fallback: the first variant is used
	// and the degradation is reported.
	parts := basicParts(`<Shapes>
  <mc:AlternateContent xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006" xmlns:x="http://example.com/future">
    <mc:Choice Requires="x">
      <Shape ID="1"><Cell N="PinX" V="2"/><Text>future</Text></Shape>
    </mc:Choice>
  </mc:AlternateContent>
</Shapes>`)

	r := mustParse(t, parts)
	d := r.Diagram()

	s := d.GetPage(0).Shape(1)
	if s == nil || s.Label != "future" {
		t.Fatalf("shape = %+v, want the first variant", s)
	}
	if !d.HasDiagnostic(model.DiagCompatibilityFallback) {
		t.Errorf("diagnostics = %v, want a compatibility fallback", d.Diagnostics)
	}
	diag := d.DiagnosticsFor(model.DiagCompatibilityFallback)[0]
	if diag.Part != "visio/pages/page1.xml" {
		t.Errorf("diagnostic part = %q", diag.Part)
	}
}

func TestAlternateContentEmpty(t *testing.T) {
	parts := basicParts(`<Shapes>
  <mc:AlternateContent xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006"/>
  <Shape ID="2"><Cell N="PinX" V="3"/></Shape>
</Shapes>`)

	r := mustParse(t, parts)
	d := r.Diagram()

	if s := d.GetPage(0).Shape(2); s == nil || !floatNear(s.X, 3) {
		t.Errorf("shape after empty block = %+v", s)
	}
	if d.HasDiagnostic(model.DiagCompatibilityFallback) {
		t.Errorf("diagnostics = %v, want none for an empty block", d.Diagnostics)
	}
}

func TestAlternateContentPreservesSiblings(t *testing.T) {
	parts := basicParts(`<Shapes>
  <Shape ID="1"><Cell N="PinX" V="1"/><Text>before</Text></Shape>
  <mc:AlternateContent xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006" xmlns:v="http://schemas.microsoft.com/office/visio/2012/main">
    <mc:Choice Requires="v">
      <Shape ID="2"><Cell N="PinX" V="2"/><Text>middle</Text></Shape>
    </mc:Choice>
  </mc:AlternateContent>
  <Shape ID="3"><Cell N="PinX" V="3"/><Text>line one&#10;line two</Text></Shape>
</Shapes>`)

	r := mustParse(t, parts)
	page := r.Diagram().GetPage(0)

	for id, want := range map[int]string{1: "before", 2: "middle", 3: "line one\nline two"} {
		s := page.Shape(id)
		if s == nil || s.Label != want {
			t.Errorf("shape %d = %+v, want label %q", id, s, want)
		}
	}
}

func TestResolveAlternateContentPassthrough(t *testing.T) {
	data := []byte(pageContents(`<Shapes><Shape ID="1"/></Shapes>`))

	var diags []model.Diagnostic
	got, err := resolveAlternateContent(data, "visio/pages/page1.xml", &diags)
	if err != nil {
		t.Fatalf("resolveAlternateContent: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("content without compatibility blocks was rewritten")
	}
	if len(diags) != 0 {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestToUTF8(t *testing.T) {
	utf16le := func(s string) []byte {
		b, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
		if err != nil {
			t.Fatalf("encoding fixture: %v", err)
		}
		return b
	}

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain utf-8", []byte("<a/>"), "<a/>"},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("<a/>")...), "<a/>"},
		{"utf-16 le", utf16le("<a>ü</a>"), "<a>ü</a>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toUTF8(tt.in)
			if err != nil {
				t.Fatalf("toUTF8: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("toUTF8 = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCharsetReader(t *testing.T) {
	src := strings.NewReader("abc")

	// Unicode labels pass through, the data is already UTF-8 here.
	for _, label := range []string{"", "utf-8", "UTF-16", "utf-16le", "utf-16be"} {
		r, err := charsetReader(label, src)
		if err != nil {
			t.Fatalf("charsetReader(%q): %v", label, err)
		}
		if r != io.Reader(src) {
			t.Errorf("charsetReader(%q) wrapped the reader", label)
		}
	}

	// Legacy labels decode.
	r, err := charsetReader("windows-1252", bytes.NewReader([]byte{0xE9}))
	if err != nil {
		t.Fatalf("charsetReader(windows-1252): %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(out) != "é" {
		t.Errorf("decoded %q, want é", out)
	}
}
