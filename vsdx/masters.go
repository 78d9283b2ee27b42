package vsdx

import (
	"sort"
	"strconv"
	"strings"

	"github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/model"
)

// Master describes one entry of the master index with its effective cells
// after base-master inheritance has been applied.
type Master struct {
	ID       string
	Name     string
	UniqueID string
	BaseID   string
	Part     string // content part name, "" when the index carries no rel

	// Cells holds the effective cell values: the master's own cells
	// layered over its base chain, nearest declaration winning.
	Cells map[string]string

	// Text is the first non-empty text along the base chain.
	Text string

	IsConnector bool
}

// Cell returns the effective value of a cell, or "" when the chain never
// defines it.
func (m *Master) Cell(name string) string {
	if m == nil {
		return ""
	}
	return m.Cells[name]
}

// MasterResolver holds the master catalog of a package.
type MasterResolver struct {
	masters map[string]*Master
}

// Get returns the master with the given ID.
func (r *MasterResolver) Get(id string) (*Master, bool) {
	m, ok := r.masters[id]
	return m, ok
}

// Count returns the number of masters in the catalog.
func (r *MasterResolver) Count() int {
	return len(r.masters)
}

// IDs returns all master IDs, numerically ordered where possible.
func (r *MasterResolver) IDs() []string {
	ids := make([]string, 0, len(r.masters))
	for id := range r.masters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.Atoi(ids[i])
		b, berr := strconv.Atoi(ids[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

// loadMasters builds the master catalog. A package without a master index
// yields an empty resolver; duplicate IDs keep the last declaration and
// record a diagnostic; a cycle in the base chain is fatal.
func loadMasters(pkg *Package, diags *[]model.Diagnostic) (*MasterResolver, error) {
	res := &MasterResolver{masters: make(map[string]*Master)}
	if !pkg.HasPart(partMasters) {
		return res, nil
	}

	data, err := pkg.Part(partMasters)
	if err != nil {
		return nil, err
	}
	var idx mastersXML
	if err := decodePart(data, &idx, partMasters, diags); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCorruptArchive, err, "parsing master index").WithPart(partMasters)
	}

	var order []string
	entries := make(map[string]masterXML)
	for _, m := range idx.Masters {
		if _, dup := entries[m.ID]; dup {
			*diags = append(*diags, model.NewDiagnostic(model.DiagDuplicateMasterID,
				"master id %s declared more than once, keeping the last declaration", m.ID).WithPart(partMasters))
		} else {
			order = append(order, m.ID)
		}
		entries[m.ID] = m
	}

	// Own cells and text per master, before inheritance.
	own := make(map[string]map[string]string)
	ownText := make(map[string]string)

	for _, id := range order {
		entry := entries[id]
		m := &Master{
			ID:       id,
			Name:     entry.displayName(),
			UniqueID: entry.UniqueID,
			BaseID:   entry.BaseID,
		}
		own[id] = make(map[string]string)

		if entry.Rel != nil && entry.Rel.ID != "" {
			if target, err := pkg.relTarget(partMasters, entry.Rel.ID); err == nil {
				m.Part = target
			}
		}
		if m.Part != "" {
			if err := loadMasterContents(pkg, m, own[id], ownText, diags); err != nil {
				return nil, err
			}
		}
		res.masters[id] = m
	}

	byUnique := make(map[string]*Master)
	for _, id := range order {
		m := res.masters[id]
		if m.UniqueID != "" {
			byUnique[m.UniqueID] = m
		}
	}

	// Apply inheritance: nearest declaration wins, base-most first.
	for _, id := range order {
		m := res.masters[id]
		chain, err := baseChain(m, byUnique)
		if err != nil {
			return nil, err
		}

		eff := make(map[string]string)
		for _, link := range chain {
			for k, v := range own[link.ID] {
				eff[k] = v
			}
		}
		m.Cells = eff

		for i := len(chain) - 1; i >= 0; i-- {
			if t := ownText[chain[i].ID]; t != "" {
				m.Text = t
				break
			}
		}

		m.IsConnector = isConnectorMaster(m)
	}

	return res, nil
}

// loadMasterContents reads the first shape of a master's content part. The
// first top-level shape defines the master's geometry, style, and text.
func loadMasterContents(pkg *Package, m *Master, cells map[string]string, ownText map[string]string, diags *[]model.Diagnostic) error {
	content, err := pkg.Part(m.Part)
	if err != nil {
		return nil
	}
	var mc masterContentsXML
	if err := decodePart(content, &mc, m.Part, diags); err != nil {
		return errors.Wrap(errors.ErrCodeCorruptArchive, err, "parsing master contents").WithPart(m.Part)
	}
	if len(mc.Shapes) == 0 {
		return nil
	}
	first := mc.Shapes[0]
	for _, c := range first.Cells {
		cells[c.N] = c.V
	}
	if first.Text != nil {
		ownText[m.ID] = strings.TrimSpace(first.Text.Value)
	}
	return nil
}

// baseChain returns the inheritance chain from base-most master to m. A
// BaseID that matches no master ends the chain; revisiting a master is a
// cycle and fatal.
func baseChain(m *Master, byUnique map[string]*Master) ([]*Master, error) {
	var chain []*Master
	visited := make(map[string]bool)

	current := m
	for current != nil {
		if visited[current.ID] {
			return nil, errors.New(errors.ErrCodeMasterCycle,
				"master inheritance cycle through id %s", current.ID).WithPart(partMasters)
		}
		visited[current.ID] = true
		chain = append([]*Master{current}, chain...)

		if current.BaseID == "" {
			break
		}
		current = byUnique[current.BaseID]
	}
	return chain, nil
}

// isConnectorMaster classifies a master as the dynamic-connector family:
// named like a connector, the well-known index ID, or a 1-D shape.
func isConnectorMaster(m *Master) bool {
	if strings.Contains(strings.ToLower(m.Name), "connector") {
		return true
	}
	if m.ID == "2" {
		return true
	}
	return m.Cells["OneD"] == "1"
}
