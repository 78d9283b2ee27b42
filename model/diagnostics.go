package model

import "fmt"

// DiagnosticCode identifies a class of non-fatal parsing irregularity.
type DiagnosticCode string

// Diagnostic codes recorded during parsing and enrichment.
const (
	// DiagCompatibilityFallback is recorded when an alternate-content
	// block carried no variant for the understood schema version and a
	// fallback variant was selected instead.
	DiagCompatibilityFallback DiagnosticCode = "CompatibilityFallbackUsed"

	// DiagUnresolvedMaster is recorded when a shape references a master
	// ID that the master index does not define.
	DiagUnresolvedMaster DiagnosticCode = "UnresolvedMaster"

	// DiagDuplicateMasterID is recorded when the master index defines
	// the same ID twice. The last declaration wins.
	DiagDuplicateMasterID DiagnosticCode = "DuplicateMasterId"

	// DiagDanglingEndpoint is recorded when a connect record references
	// a shape that does not exist, or a connector end has no connect
	// record at all.
	DiagDanglingEndpoint DiagnosticCode = "DanglingEndpoint"

	// DiagEnrichmentUnavailable is recorded when OCR enrichment was
	// requested but the engine failed or was not reachable.
	DiagEnrichmentUnavailable DiagnosticCode = "EnrichmentUnavailable"

	// DiagEnrichmentSkipped is recorded when an image was skipped by
	// enrichment (unsupported format, low confidence, timeout).
	DiagEnrichmentSkipped DiagnosticCode = "EnrichmentSkipped"
)

// NoContext marks an absent page or shape reference on a diagnostic.
const NoContext = -1

// Diagnostic records a non-fatal irregularity observed while parsing or
// enriching a diagram.
type Diagnostic struct {
	Code    DiagnosticCode
	Message string
	Part    string // package part the diagnostic refers to, "" when n/a
	Page    int    // page ID, NoContext when n/a
	Shape   int    // shape ID, NoContext when n/a
}

// NewDiagnostic creates a diagnostic with no page or shape context.
func NewDiagnostic(code DiagnosticCode, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Page:    NoContext,
		Shape:   NoContext,
	}
}

// WithPart returns a copy of the diagnostic tagged with a package part.
func (d Diagnostic) WithPart(part string) Diagnostic {
	d.Part = part
	return d
}

// WithPage returns a copy of the diagnostic tagged with a page ID.
func (d Diagnostic) WithPage(id int) Diagnostic {
	d.Page = id
	return d
}

// WithShape returns a copy of the diagnostic tagged with a shape ID.
func (d Diagnostic) WithShape(id int) Diagnostic {
	d.Shape = id
	return d
}

// String renders the diagnostic for logs and CLI output.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s", d.Code, d.Message)
	if d.Part != "" {
		s += fmt.Sprintf(" [part %s]", d.Part)
	}
	if d.Page != NoContext {
		s += fmt.Sprintf(" [page %d]", d.Page)
	}
	if d.Shape != NoContext {
		s += fmt.Sprintf(" [shape %d]", d.Shape)
	}
	return s
}

// AddDiagnostic appends a diagnostic to the diagram.
func (d *Diagram) AddDiagnostic(diag Diagnostic) {
	d.Diagnostics = append(d.Diagnostics, diag)
}

// HasDiagnostic reports whether any diagnostic with the given code was
// recorded.
func (d *Diagram) HasDiagnostic(code DiagnosticCode) bool {
	for _, diag := range d.Diagnostics {
		if diag.Code == code {
			return true
		}
	}
	return false
}

// DiagnosticsFor returns all diagnostics with the given code, in the
// order they were recorded.
func (d *Diagram) DiagnosticsFor(code DiagnosticCode) []Diagnostic {
	var out []Diagnostic
	for _, diag := range d.Diagnostics {
		if diag.Code == code {
			out = append(out, diag)
		}
	}
	return out
}
