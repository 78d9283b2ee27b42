package dot

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/model"
)

func onePage(shapes []*model.Shape, conns []*model.Connection) *model.Diagram {
	d := model.NewDiagram()
	p := model.NewPage(0, "Page-1", 8.5, 11)
	for _, s := range shapes {
		p.AddShape(s)
	}
	for _, c := range conns {
		p.AddConnection(c)
	}
	d.AddPage(p)
	return d
}

func marshalString(t *testing.T, d *model.Diagram, opts ...Option) string {
	t.Helper()
	out, err := Marshal(d, opts...)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	return string(out)
}

func TestMarshalDigraphShell(t *testing.T) {
	out := marshalString(t, onePage(nil, nil))

	if !strings.HasPrefix(out, "digraph G {\n") {
		t.Error("output missing digraph header")
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("output missing closing brace")
	}
	for _, want := range []string{
		"layout=neato;",
		`node [shape=box, style="rounded,filled", fillcolor=white, fixedsize=true];`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMarshalPositionedNode(t *testing.T) {
	d := onePage([]*model.Shape{
		{ID: 1, Label: "Box", X: 1, Y: 1, Width: 2, Height: 1, Parent: model.NoParent},
	}, nil)

	out := marshalString(t, d)
	// Box corner (1,1), extent 2x1: center (2,1.5) inches = (144,108) points.
	want := `"n0_1" [label="Box", pos="144,108!", width=2, height=1, fillcolor="#f8cecc"];`
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q, got:\n%s", want, out)
	}
}

func TestMarshalNodeRoles(t *testing.T) {
	tests := []struct {
		name  string
		shape *model.Shape
		want  []string
	}{
		{"process", &model.Shape{ID: 1, MasterName: "Process", Parent: model.NoParent}, []string{`fillcolor="#dae8fc"`}},
		{"decision", &model.Shape{ID: 1, MasterName: "Decision", Parent: model.NoParent}, []string{"shape=diamond", `fillcolor="#fff2cc"`}},
		{"terminal", &model.Shape{ID: 1, MasterName: "Start/End", Parent: model.NoParent}, []string{"shape=ellipse", `fillcolor="#d5e8d4"`}},
		{"image", &model.Shape{ID: 1, ImageRef: "visio/media/image1.png", Parent: model.NoParent}, []string{"shape=note"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := marshalString(t, onePage([]*model.Shape{tt.shape}, nil))
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q, got:\n%s", want, out)
				}
			}
		})
	}
}

func TestMarshalEdges(t *testing.T) {
	d := onePage([]*model.Shape{
		{ID: 1, Label: "A", Parent: model.NoParent},
		{ID: 3, Label: "B", Parent: model.NoParent},
	}, []*model.Connection{
		{ID: 5, Source: model.Endpoint{ShapeID: 1, Resolved: true}, Target: model.Endpoint{ShapeID: 3, Resolved: true}},
		{ID: 6, Label: "yes", Source: model.Endpoint{ShapeID: 3, Resolved: true}, Target: model.Endpoint{ShapeID: 1, Resolved: true}},
	})

	out := marshalString(t, d)
	for _, want := range []string{
		`"n0_1" -> "n0_3";`,
		`"n0_3" -> "n0_1" [label="yes"];`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
}

func TestMarshalDanglingEdge(t *testing.T) {
	d := onePage([]*model.Shape{
		{ID: 1, Label: "A", Parent: model.NoParent},
	}, []*model.Connection{
		{ID: 7, Source: model.Endpoint{ShapeID: 1, Resolved: true}, Target: model.Endpoint{X: 4, Y: 4}},
	})

	out := marshalString(t, d)
	for _, want := range []string{
		`"d0_7t" [label="?", shape=plain, pos="288,288!"];`,
		`"n0_1" -> "d0_7t";`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
}

func TestMarshalMultiPageClusters(t *testing.T) {
	d := model.NewDiagram()
	first := model.NewPage(0, "Overview", 8.5, 11)
	first.AddShape(&model.Shape{ID: 1, Label: "A", Parent: model.NoParent})
	second := model.NewPage(1, "Detail", 8.5, 11)
	second.AddShape(&model.Shape{ID: 1, Label: "B", Parent: model.NoParent})
	d.AddPage(first)
	d.AddPage(second)

	out := marshalString(t, d)
	for _, want := range []string{
		"subgraph cluster_0 {",
		`label="Overview";`,
		"subgraph cluster_1 {",
		`"n1_1" [label="B"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
}

func TestMarshalDetailedLabels(t *testing.T) {
	d := onePage([]*model.Shape{
		{ID: 1, Label: "A", MasterName: "Process", Parent: model.NoParent},
	}, nil)

	out := marshalString(t, d, WithDetails())
	if !strings.Contains(out, `label="A\nid: 1\nmaster: Process"`) {
		t.Errorf("detailed label missing, got:\n%s", out)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	d := onePage([]*model.Shape{
		{ID: 1, Label: "A", Parent: model.NoParent},
		{ID: 2, Label: "B", Parent: model.NoParent},
	}, []*model.Connection{
		{ID: 3, Source: model.Endpoint{ShapeID: 1, Resolved: true}, Target: model.Endpoint{ShapeID: 2, Resolved: true}},
	})

	first, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	second, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated marshal of the same diagram differs")
	}
}

func TestMarshalNilDiagram(t *testing.T) {
	_, err := Marshal(nil)
	if err == nil {
		t.Fatal("Marshal(nil) should fail")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error code = %v, want INVALID_INPUT", errors.GetCode(err))
	}
}

func TestRenderSVG(t *testing.T) {
	d := onePage([]*model.Shape{
		{ID: 1, Label: "A", X: 1, Y: 9, Width: 1, Height: 0.75, Parent: model.NoParent},
		{ID: 3, Label: "B", X: 4, Y: 4, Width: 1, Height: 0.75, Parent: model.NoParent},
	}, []*model.Connection{
		{ID: 5, Source: model.Endpoint{ShapeID: 1, Resolved: true}, Target: model.Endpoint{ShapeID: 3, Resolved: true}},
	})

	text, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	svg, err := RenderSVG(context.Background(), text)
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("output does not look like SVG")
	}
}
