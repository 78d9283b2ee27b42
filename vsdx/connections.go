package vsdx

import (
	"strings"

	"github.com/FransAris/visio-to-xml/model"
)

// connectorGlue accumulates the connect records of one connector shape.
type connectorGlue struct {
	source    int
	hasSource bool
	target    int
	hasTarget bool
}

// resolveConnections turns connect records into the page's edge list.
// Every connector shape yields exactly one connection in document order.
// An end without a usable record stays dangling with its literal line-end
// coordinates, and is never dropped.
func (b *pageBuilder) resolveConnections(connects []connectXML) {
	page := b.page

	// A shape participating as FromSheet is a connector even when the
	// cell heuristics missed it.
	for _, c := range connects {
		if s := page.Shape(c.FromSheet); s != nil && s.Kind != model.KindConnector {
			s.Kind = model.KindConnector
		}
	}

	glues := make(map[int]*connectorGlue)
	for _, c := range connects {
		g := glues[c.FromSheet]
		if g == nil {
			g = &connectorGlue{}
			glues[c.FromSheet] = g
		}
		// BeginX glues the source end, EndX the target end. The first
		// record per end wins.
		switch {
		case strings.HasPrefix(c.FromCell, "Begin"):
			if !g.hasSource {
				g.source, g.hasSource = c.ToSheet, true
			}
		case strings.HasPrefix(c.FromCell, "End"):
			if !g.hasTarget {
				g.target, g.hasTarget = c.ToSheet, true
			}
		}
	}

	for _, s := range page.Shapes {
		if s.Kind != model.KindConnector {
			continue
		}
		g := glues[s.ID]
		le := b.ends[s.ID]

		conn := &model.Connection{ID: s.ID, Label: s.Label}
		if g != nil && g.hasSource {
			conn.Source = b.endpoint(s.ID, "begin", g.source, le.begin, le.hasBegin)
		} else {
			conn.Source = b.danglingEndpoint(s.ID, "begin", le.begin, le.hasBegin)
		}
		if g != nil && g.hasTarget {
			conn.Target = b.endpoint(s.ID, "end", g.target, le.end, le.hasEnd)
		} else {
			conn.Target = b.danglingEndpoint(s.ID, "end", le.end, le.hasEnd)
		}
		page.AddConnection(conn)
	}
}

// endpoint resolves a glued connector end against the page's shapes. A
// reference to a shape that is not on the page degrades to dangling.
func (b *pageBuilder) endpoint(connectorID int, end string, toSheet int, lit model.Point, hasLit bool) model.Endpoint {
	if target := b.page.Shape(toSheet); target != nil {
		ep := model.Endpoint{ShapeID: toSheet, Resolved: true, X: target.X, Y: target.Y}
		if hasLit {
			ep.X, ep.Y = lit.X, lit.Y
		}
		return ep
	}

	*b.diags = append(*b.diags, model.NewDiagnostic(model.DiagDanglingEndpoint,
		"connector %d %s endpoint references shape %d which is not on the page", connectorID, end, toSheet).
		WithPart(b.part).WithPage(b.page.ID).WithShape(connectorID))

	ep := model.Endpoint{}
	if hasLit {
		ep.X, ep.Y = lit.X, lit.Y
	}
	return ep
}

// danglingEndpoint records an unglued connector end, keeping its literal
// coordinates when the line-end cells provided any.
func (b *pageBuilder) danglingEndpoint(connectorID int, end string, lit model.Point, hasLit bool) model.Endpoint {
	*b.diags = append(*b.diags, model.NewDiagnostic(model.DiagDanglingEndpoint,
		"connector %d %s endpoint has no connect record", connectorID, end).
		WithPart(b.part).WithPage(b.page.ID).WithShape(connectorID))

	ep := model.Endpoint{}
	if hasLit {
		ep.X, ep.Y = lit.X, lit.Y
	}
	return ep
}
