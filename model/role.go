package model

import "strings"

// Role classifies a shape by its flowchart function. Emitters use the
// role to pick rendering styles (rectangle, diamond, ellipse) without
// knowing anything about Visio stencils.
type Role int

const (
	RoleOther Role = iota
	RoleProcess
	RoleDecision
	RoleTerminal
	RoleImage
)

// String returns a human-readable role name
func (r Role) String() string {
	switch r {
	case RoleProcess:
		return "process"
	case RoleDecision:
		return "decision"
	case RoleTerminal:
		return "terminal"
	case RoleImage:
		return "image"
	default:
		return "other"
	}
}

// Role derives the flowchart role of a shape from its master name, with
// the shape's own name as fallback. Stencil names like "Process",
// "Decision" or "Start/End" carry the classification; a shape whose
// names match nothing but embeds an image is classified RoleImage.
func (s *Shape) Role() Role {
	name := strings.ToLower(s.MasterName)
	if name == "" {
		name = strings.ToLower(s.Name)
	}
	switch {
	case strings.Contains(name, "decision"), strings.Contains(name, "diamond"):
		return RoleDecision
	case strings.Contains(name, "start"), strings.Contains(name, "end"),
		strings.Contains(name, "oval"), strings.Contains(name, "terminator"):
		return RoleTerminal
	case strings.Contains(name, "process"), strings.Contains(name, "rectangle"):
		return RoleProcess
	case s.HasImage():
		return RoleImage
	}
	return RoleOther
}
