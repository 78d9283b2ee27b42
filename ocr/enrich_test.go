package ocr

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/model"
)

type sourceImage struct {
	data []byte
	mime string
}

// fakeSource maps image references to media bytes.
type fakeSource map[string]sourceImage

func (f fakeSource) Image(ref string) ([]byte, string, error) {
	img, ok := f[ref]
	if !ok {
		return nil, "", errors.New(errors.ErrCodeMissingPart, "no media part %s", ref)
	}
	return img.data, img.mime, nil
}

// slowEngine blocks until the context expires.
type slowEngine struct{}

func (slowEngine) Name() string { return "slow" }

func (slowEngine) Recognize(ctx context.Context, img Input) (Result, error) {
	<-ctx.Done()
	return Result{}, ctx.Err()
}

func imageDiagram(shapes ...*model.Shape) *model.Diagram {
	d := model.NewDiagram()
	page := model.NewPage(0, "Page-1", 8.5, 11)
	for _, s := range shapes {
		page.AddShape(s)
	}
	d.AddPage(page)
	return d
}

func TestEnrichAppendsText(t *testing.T) {
	d := imageDiagram(
		&model.Shape{ID: 1, Label: "Box", ImageRef: "visio/media/image1.png"},
		&model.Shape{ID: 2, Label: "Plain"},
		&model.Shape{ID: 3, ImageRef: "visio/media/image2.png"},
	)
	src := fakeSource{
		"visio/media/image1.png": {data: pngBytes(t, 4, 4), mime: "image/png"},
		"visio/media/image2.png": {data: pngBytes(t, 4, 4), mime: "image/png"},
	}
	fe := &fakeEngine{result: Result{Text: "Part 7", Confidence: 0.9}}

	if err := NewEnricher(fe).Enrich(context.Background(), d, src); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	page := d.GetPage(0)
	if got := page.Shape(1).Label; got != "Box\n[OCR: Part 7]" {
		t.Errorf("shape 1 label = %q", got)
	}
	if got := page.Shape(2).Label; got != "Plain" {
		t.Errorf("shape 2 label = %q, want untouched", got)
	}
	if got := page.Shape(3).Label; got != "[OCR: Part 7]" {
		t.Errorf("shape 3 label = %q", got)
	}

	if fe.callCount() != 2 {
		t.Errorf("engine calls = %d, want 2", fe.callCount())
	}
	if len(d.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v", d.Diagnostics)
	}
}

func TestEnrichLowConfidence(t *testing.T) {
	d := imageDiagram(&model.Shape{ID: 1, Label: "Box", ImageRef: "m"})
	src := fakeSource{"m": {data: pngBytes(t, 4, 4), mime: "image/png"}}
	fe := &fakeEngine{result: Result{Text: "guess", Confidence: 0.5}}

	if err := NewEnricher(fe).Enrich(context.Background(), d, src); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if got := d.GetPage(0).Shape(1).Label; got != "Box" {
		t.Errorf("label = %q, want untouched", got)
	}
	diags := d.DiagnosticsFor(model.DiagEnrichmentUnavailable)
	if len(diags) != 1 || diags[0].Shape != 1 {
		t.Errorf("diagnostics = %v", d.Diagnostics)
	}
}

func TestEnrichThresholdOption(t *testing.T) {
	d := imageDiagram(&model.Shape{ID: 1, ImageRef: "m"})
	src := fakeSource{"m": {data: pngBytes(t, 4, 4), mime: "image/png"}}
	fe := &fakeEngine{result: Result{Text: "ok", Confidence: 0.5}}

	if err := NewEnricher(fe, WithThreshold(0.4)).Enrich(context.Background(), d, src); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got := d.GetPage(0).Shape(1).Label; got != "[OCR: ok]" {
		t.Errorf("label = %q", got)
	}
}

func TestEnrichEngineFailure(t *testing.T) {
	d := imageDiagram(&model.Shape{ID: 1, Label: "Box", ImageRef: "m"})
	src := fakeSource{"m": {data: pngBytes(t, 4, 4), mime: "image/png"}}
	fe := &fakeEngine{err: errors.New(errors.ErrCodeOCR, "backend down")}

	if err := NewEnricher(fe).Enrich(context.Background(), d, src); err != nil {
		t.Fatalf("Enrich must not fail on engine errors: %v", err)
	}

	if got := d.GetPage(0).Shape(1).Label; got != "Box" {
		t.Errorf("label = %q", got)
	}
	if !d.HasDiagnostic(model.DiagEnrichmentUnavailable) {
		t.Errorf("diagnostics = %v", d.Diagnostics)
	}
}

func TestEnrichSkipsVectorMedia(t *testing.T) {
	d := imageDiagram(&model.Shape{ID: 1, Label: "Box", ImageRef: "m"})
	src := fakeSource{"m": {data: []byte("emf"), mime: "image/x-emf"}}
	fe := &fakeEngine{result: Result{Text: "never", Confidence: 1}}

	if err := NewEnricher(fe).Enrich(context.Background(), d, src); err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if fe.callCount() != 0 {
		t.Errorf("engine calls = %d, want 0", fe.callCount())
	}
	if got := d.GetPage(0).Shape(1).Label; got != "Box" {
		t.Errorf("label = %q", got)
	}
	if !d.HasDiagnostic(model.DiagEnrichmentSkipped) {
		t.Errorf("diagnostics = %v", d.Diagnostics)
	}
}

func TestEnrichUnreadableMedia(t *testing.T) {
	d := imageDiagram(&model.Shape{ID: 1, ImageRef: "gone"})
	fe := &fakeEngine{result: Result{Text: "never", Confidence: 1}}

	if err := NewEnricher(fe).Enrich(context.Background(), d, fakeSource{}); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if !d.HasDiagnostic(model.DiagEnrichmentSkipped) {
		t.Errorf("diagnostics = %v", d.Diagnostics)
	}
}

func TestEnrichTimeout(t *testing.T) {
	d := imageDiagram(&model.Shape{ID: 1, Label: "Box", ImageRef: "m"})
	src := fakeSource{"m": {data: pngBytes(t, 4, 4), mime: "image/png"}}

	e := NewEnricher(slowEngine{}, WithTimeout(10*time.Millisecond))
	if err := e.Enrich(context.Background(), d, src); err != nil {
		t.Fatalf("Enrich must not fail on timeouts: %v", err)
	}

	if got := d.GetPage(0).Shape(1).Label; got != "Box" {
		t.Errorf("label = %q", got)
	}
	if !d.HasDiagnostic(model.DiagEnrichmentUnavailable) {
		t.Errorf("diagnostics = %v", d.Diagnostics)
	}
}

func TestEnrichCancelledContext(t *testing.T) {
	d := imageDiagram(&model.Shape{ID: 1, Label: "Box", ImageRef: "m"})
	src := fakeSource{"m": {data: pngBytes(t, 4, 4), mime: "image/png"}}
	fe := &fakeEngine{result: Result{Text: "late", Confidence: 1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewEnricher(fe).Enrich(ctx, d, src); err == nil {
		t.Fatal("Enrich succeeded with a cancelled context")
	}
	if got := d.GetPage(0).Shape(1).Label; got != "Box" {
		t.Errorf("label = %q, want untouched after cancellation", got)
	}
}

func TestEnrichLanguageHints(t *testing.T) {
	d := imageDiagram(&model.Shape{ID: 1, ImageRef: "m"})
	src := fakeSource{"m": {data: pngBytes(t, 4, 4), mime: "image/png"}}

	var gotLangs []string
	fe := &fakeEngine{byInput: func(img Input) (Result, error) {
		gotLangs = img.Languages
		return Result{Text: "ok", Confidence: 1}, nil
	}}

	e := NewEnricher(fe, WithLanguages("eng", "deu"))
	if err := e.Enrich(context.Background(), d, src); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if !reflect.DeepEqual(gotLangs, []string{"eng", "deu"}) {
		t.Errorf("languages = %v", gotLangs)
	}
}

func TestEnrichDeterministic(t *testing.T) {
	fe := &fakeEngine{byInput: func(img Input) (Result, error) {
		return Result{Text: img.ID, Confidence: 1}, nil
	}}
	src := fakeSource{
		"a": {data: pngBytes(t, 4, 4), mime: "image/png"},
		"b": {data: pngBytes(t, 4, 4), mime: "image/png"},
		"c": {data: pngBytes(t, 4, 4), mime: "image/png"},
	}

	run := func() []string {
		d := imageDiagram(
			&model.Shape{ID: 1, ImageRef: "a"},
			&model.Shape{ID: 2, ImageRef: "b"},
			&model.Shape{ID: 3, ImageRef: "c"},
		)
		e := NewEnricher(fe, WithConcurrency(3))
		if err := e.Enrich(context.Background(), d, src); err != nil {
			t.Fatalf("Enrich: %v", err)
		}
		var labels []string
		for _, s := range d.GetPage(0).Shapes {
			labels = append(labels, s.Label)
		}
		return labels
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs differ: %v vs %v", first, second)
	}
	if first[0] != "[OCR: page0-shape1]" {
		t.Errorf("label = %q", first[0])
	}
}

func TestEnrichNilEngine(t *testing.T) {
	d := imageDiagram(&model.Shape{ID: 1, Label: "Box", ImageRef: "m"})

	if err := NewEnricher(nil).Enrich(context.Background(), d, fakeSource{}); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got := d.GetPage(0).Shape(1).Label; got != "Box" {
		t.Errorf("label = %q", got)
	}
	if len(d.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v", d.Diagnostics)
	}
}

func TestAppendRecognizedText(t *testing.T) {
	tests := []struct {
		label, text, want string
	}{
		{"", "x", "[OCR: x]"},
		{"Box", "x", "Box\n[OCR: x]"},
		{"Box", "", "Box"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := appendRecognizedText(tt.label, tt.text); got != tt.want {
			t.Errorf("appendRecognizedText(%q, %q) = %q, want %q", tt.label, tt.text, got, tt.want)
		}
	}
}
