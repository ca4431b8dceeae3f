// Package netlist defines the input model for analog placement: modules,
// symmetry groups, and the text parser/writer for the placement file formats.
package netlist

import (
	"encoding/json"
	"sort"

	"github.com/jeannie068/analogplace/pkg/errors"
)

// Axis is the orientation of a symmetry group's axis.
type Axis int

const (
	// AxisVertical mirrors modules left-right across a vertical line.
	AxisVertical Axis = iota

	// AxisHorizontal mirrors modules top-bottom across a horizontal line.
	AxisHorizontal
)

// String returns the axis name used in input files.
func (a Axis) String() string {
	if a == AxisHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// ParseAxis converts an axis name to an Axis. Accepts the long names and
// single-letter abbreviations, case-insensitively.
func ParseAxis(s string) (Axis, error) {
	if err := errors.ValidateAxisName(s); err != nil {
		return AxisVertical, err
	}
	switch s[0] {
	case 'h', 'H':
		return AxisHorizontal, nil
	default:
		return AxisVertical, nil
	}
}

// Module is one placeable block. Name and original dimensions are fixed at
// parse time; rotation and position are mutated during solving.
type Module struct {
	Name string `json:"name"`

	// W and H are the original dimensions. Use Width/Height for the
	// effective, rotation-aware dimensions.
	W int `json:"w"`
	H int `json:"h"`

	// X, Y is the placed lower-left corner. Zero before the first pack.
	X int `json:"x"`
	Y int `json:"y"`

	// Rotated swaps the effective width and height.
	Rotated bool `json:"rotated"`
}

// NewModule creates a module with the given original dimensions.
func NewModule(name string, w, h int) *Module {
	return &Module{Name: name, W: w, H: h}
}

// Width returns the effective width under the current rotation.
func (m *Module) Width() int {
	if m.Rotated {
		return m.H
	}
	return m.W
}

// Height returns the effective height under the current rotation.
func (m *Module) Height() int {
	if m.Rotated {
		return m.W
	}
	return m.H
}

// Area returns the module area, which is invariant under rotation.
func (m *Module) Area() int64 {
	return int64(m.W) * int64(m.H)
}

// Rotate toggles the module orientation.
func (m *Module) Rotate() {
	m.Rotated = !m.Rotated
}

// SetPosition places the lower-left corner. Negative coordinates are
// clamped to zero.
func (m *Module) SetPosition(x, y int) {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	m.X = x
	m.Y = y
}

// Overlaps reports whether two placed modules intersect with positive area.
func (m *Module) Overlaps(other *Module) bool {
	if m.X+m.Width() <= other.X || other.X+other.Width() <= m.X {
		return false
	}
	if m.Y+m.Height() <= other.Y || other.Y+other.Height() <= m.Y {
		return false
	}
	return true
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	c := *m
	return &c
}

// SymmetryPair names two modules mirrored across the group axis.
type SymmetryPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Representative returns the pair member that carries the pair in the
// ASF-B*-tree. The lexicographically greater name is the representative.
func (p SymmetryPair) Representative() string {
	if p.A > p.B {
		return p.A
	}
	return p.B
}

// Mirror returns the non-representative member of the pair.
func (p SymmetryPair) Mirror() string {
	if p.A > p.B {
		return p.B
	}
	return p.A
}

// SymmetryGroup is one symmetry island: an axis, mirrored pairs, and
// self-symmetric modules centred on the axis.
type SymmetryGroup struct {
	Name          string         `json:"name"`
	Axis          Axis           `json:"axis"`
	Pairs         []SymmetryPair `json:"pairs,omitempty"`
	SelfSymmetric []string       `json:"self_symmetric,omitempty"`
}

// Size returns the number of modules in the group.
func (g *SymmetryGroup) Size() int {
	return 2*len(g.Pairs) + len(g.SelfSymmetric)
}

// Modules returns every module name in the group.
func (g *SymmetryGroup) Modules() []string {
	names := make([]string, 0, g.Size())
	for _, p := range g.Pairs {
		names = append(names, p.A, p.B)
	}
	names = append(names, g.SelfSymmetric...)
	return names
}

// Representatives returns the names that appear as ASF-B*-tree nodes:
// one per pair plus every self-symmetric module.
func (g *SymmetryGroup) Representatives() []string {
	names := make([]string, 0, len(g.Pairs)+len(g.SelfSymmetric))
	for _, p := range g.Pairs {
		names = append(names, p.Representative())
	}
	names = append(names, g.SelfSymmetric...)
	return names
}

// IsSelfSymmetric reports whether name is a self-symmetric member.
func (g *SymmetryGroup) IsSelfSymmetric(name string) bool {
	for _, s := range g.SelfSymmetric {
		if s == name {
			return true
		}
	}
	return false
}

// PairOf returns the pair containing name, if any.
func (g *SymmetryGroup) PairOf(name string) (SymmetryPair, bool) {
	for _, p := range g.Pairs {
		if p.A == name || p.B == name {
			return p, true
		}
	}
	return SymmetryPair{}, false
}

// Clone returns a deep copy of the group. The axis is mutable state (type
// conversion flips it), so snapshots need their own copy.
func (g *SymmetryGroup) Clone() *SymmetryGroup {
	c := &SymmetryGroup{Name: g.Name, Axis: g.Axis}
	c.Pairs = append(c.Pairs, g.Pairs...)
	c.SelfSymmetric = append(c.SelfSymmetric, g.SelfSymmetric...)
	return c
}

// Netlist is the parsed input: all modules plus symmetry constraints.
type Netlist struct {
	Modules map[string]*Module `json:"modules"`
	Groups  []*SymmetryGroup   `json:"groups,omitempty"`
}

// NewNetlist creates an empty netlist.
func NewNetlist() *Netlist {
	return &Netlist{Modules: make(map[string]*Module)}
}

// ModuleNames returns all module names in sorted order.
func (n *Netlist) ModuleNames() []string {
	names := make([]string, 0, len(n.Modules))
	for name := range n.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Grouped reports whether name belongs to any symmetry group.
func (n *Netlist) Grouped(name string) bool {
	for _, g := range n.Groups {
		if _, ok := g.PairOf(name); ok {
			return true
		}
		if g.IsSelfSymmetric(name) {
			return true
		}
	}
	return false
}

// FreeModules returns the names of modules outside every symmetry group,
// in sorted order.
func (n *Netlist) FreeModules() []string {
	var names []string
	for _, name := range n.ModuleNames() {
		if !n.Grouped(name) {
			names = append(names, name)
		}
	}
	return names
}

// canonicalNetlist is the deterministic serialization shape used for
// cache-key hashing. Positions and rotations are excluded so two parses of
// the same input hash identically regardless of solver state.
type canonicalNetlist struct {
	Modules []canonicalModule `json:"modules"`
	Groups  []*SymmetryGroup  `json:"groups,omitempty"`
}

type canonicalModule struct {
	Name string `json:"name"`
	W    int    `json:"w"`
	H    int    `json:"h"`
}

// Canonical returns a deterministic byte serialization of the netlist,
// suitable for content-addressed cache keys.
func (n *Netlist) Canonical() []byte {
	c := canonicalNetlist{Groups: n.Groups}
	for _, name := range n.ModuleNames() {
		m := n.Modules[name]
		c.Modules = append(c.Modules, canonicalModule{Name: m.Name, W: m.W, H: m.H})
	}
	data, _ := json.Marshal(c)
	return data
}

// Placement is a solved layout: final module geometry plus the bounding-box
// area reported by the solver.
type Placement struct {
	Modules map[string]*Module `json:"modules"`
	Area    int64              `json:"area"`
}

// Normalize shifts all modules so the minimum x and y are zero.
func (p *Placement) Normalize() {
	if len(p.Modules) == 0 {
		return
	}
	first := true
	minX, minY := 0, 0
	for _, m := range p.Modules {
		if first || m.X < minX {
			minX = m.X
		}
		if first || m.Y < minY {
			minY = m.Y
		}
		first = false
	}
	if minX == 0 && minY == 0 {
		return
	}
	for _, m := range p.Modules {
		m.X -= minX
		m.Y -= minY
	}
}

// BoundingArea computes the bounding-box area of the placed modules.
func (p *Placement) BoundingArea() int64 {
	if len(p.Modules) == 0 {
		return 0
	}
	first := true
	var minX, minY, maxX, maxY int
	for _, m := range p.Modules {
		if first || m.X < minX {
			minX = m.X
		}
		if first || m.Y < minY {
			minY = m.Y
		}
		if x := m.X + m.Width(); first || x > maxX {
			maxX = x
		}
		if y := m.Y + m.Height(); first || y > maxY {
			maxY = y
		}
		first = false
	}
	if minX >= maxX || minY >= maxY {
		return 0
	}
	return int64(maxX-minX) * int64(maxY-minY)
}

// HasOverlaps reports whether any two modules in the placement intersect.
func (p *Placement) HasOverlaps() bool {
	names := make([]string, 0, len(p.Modules))
	for name := range p.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if p.Modules[names[i]].Overlaps(p.Modules[names[j]]) {
				return true
			}
		}
	}
	return false
}
