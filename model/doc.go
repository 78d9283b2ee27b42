// Package model provides the intermediate representation (IR) for parsed
// Visio diagrams.
//
// This package defines the user-facing data structures that represent the
// semantic structure of a drawing. Parsing a .vsdx package ultimately
// produces these types, making them the primary API for consuming diagram
// content and the single input type for every emitter.
//
// # Diagram Structure
//
// The [Diagram] type represents a complete drawing with pages and the
// diagnostics collected while parsing it:
//
//	d := model.NewDiagram()
//	d.AddPage(page)
//
// Each [Page] carries its identity, dimensions, the flattened list of
// [Shape] values in document order, and the [Connection] list derived from
// the page's connect records.
//
// # Shapes
//
// A [Shape] is fully resolved: master attribute inheritance has been
// applied, group transforms have been composed, and position, size, and
// rotation are absolute page coordinates. The [Kind] of a shape records
// whether it is a plain shape, a group, or a connector.
//
// # Connections
//
// A [Connection] links two [Endpoint] values through a connector shape.
// Endpoints that could not be resolved to a shape keep their literal
// coordinates and are marked dangling instead of being dropped.
//
// # Diagnostics
//
// Non-fatal parsing irregularities (compatibility fallbacks, unresolved
// masters, dangling endpoints, skipped enrichment) are recorded as
// [Diagnostic] values on the diagram rather than aborting the parse.
//
// # Geometry
//
// Geometric primitives support position and layout calculations:
//
//   - [BBox] - bounding box with union and containment calculations
//   - [Point] - 2D point with distance calculation
//   - [Matrix] - 2D affine transformation matrix used for group transform
//     composition
//
// Coordinates are in inches with the origin at the bottom-left of the
// page and Y increasing upward, matching the drawing file itself.
// Emitters that need top-left origin flip Y themselves.
package model
