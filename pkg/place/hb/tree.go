// Package hb implements the HB*-tree: the outer placement tree holding free
// modules as plain nodes and whole symmetry islands as hierarchy nodes. After
// packing, each island exposes its skyline as a chain of contour nodes so
// later blocks can sit on top of the island instead of beside it.
package hb

import (
	"fmt"
	"sort"

	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/place/asf"
	"github.com/jeannie068/analogplace/pkg/place/contour"
)

// NodeKind discriminates the three node variants of the HB*-tree.
type NodeKind int

const (
	// KindModule carries one free (non-symmetric) module.
	KindModule NodeKind = iota
	// KindHierarchy wraps one symmetry island and its ASF-B*-tree.
	KindHierarchy
	// KindContour stands for one skyline segment of a packed island.
	KindContour
)

func (k NodeKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindHierarchy:
		return "hierarchy"
	case KindContour:
		return "contour"
	}
	return "unknown"
}

// Node is one HB*-tree node. The payload fields used depend on Kind: module
// and hierarchy nodes carry a name, hierarchy nodes additionally an island,
// contour nodes a skyline segment (X1..X2 at height Y).
type Node struct {
	Kind   NodeKind
	Name   string
	Parent *Node
	Left   *Node
	Right  *Node

	Island *asf.Tree

	X1, X2, Y int
}

// IsLeftChild reports whether the node is its parent's left child.
func (n *Node) IsLeftChild() bool {
	return n.Parent != nil && n.Parent.Left == n
}

// Layout selects the initial tree shape.
type Layout int

const (
	// LayoutBalanced distributes nodes breadth-first, largest areas near the
	// root. Default.
	LayoutBalanced Layout = iota
	// LayoutChained strings every node along the left spine.
	LayoutChained
)

// Tree is the outer HB*-tree over a whole netlist.
type Tree struct {
	modules map[string]*netlist.Module
	groups  []*netlist.SymmetryGroup

	// groupOf maps each symmetry-group member to its group name.
	groupOf map[string]string

	root *Node
	// nodes indexes module and hierarchy nodes by name. Contour nodes are
	// structural and never looked up.
	nodes map[string]*Node

	hContour *contour.Contour
	vContour *contour.Contour

	area   int64
	packed bool
	dirty  map[*Node]bool
}

// New builds an HB*-tree for the netlist with the balanced initial layout.
func New(nl *netlist.Netlist) (*Tree, error) {
	return NewWithLayout(nl, LayoutBalanced)
}

// NewWithLayout builds an HB*-tree with an explicit initial layout. Modules
// are copied; the caller's netlist is never mutated.
func NewWithLayout(nl *netlist.Netlist, layout Layout) (*Tree, error) {
	t := &Tree{
		modules:  make(map[string]*netlist.Module, len(nl.Modules)),
		groupOf:  make(map[string]string),
		nodes:    make(map[string]*Node),
		hContour: contour.New(),
		vContour: contour.New(),
		dirty:    make(map[*Node]bool),
	}

	for name, m := range nl.Modules {
		t.modules[name] = m.Clone()
	}
	for _, g := range nl.Groups {
		if _, clash := t.modules[g.Name]; clash {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"group %q shares its name with a module", g.Name)
		}
		t.groups = append(t.groups, g.Clone())
	}

	var hierarchies []*Node
	for _, g := range t.groups {
		island, err := asf.New(g, t.modules)
		if err != nil {
			return nil, err
		}
		h := &Node{Kind: KindHierarchy, Name: g.Name, Island: island}
		t.nodes[g.Name] = h
		hierarchies = append(hierarchies, h)
		for _, name := range g.Modules() {
			t.groupOf[name] = g.Name
		}
	}

	free := t.freeModuleNodes()

	switch layout {
	case LayoutChained:
		t.buildChained(hierarchies, free)
	default:
		t.buildBalanced(hierarchies, free)
	}
	return t, nil
}

// freeModuleNodes creates module nodes for everything outside the symmetry
// groups, ordered largest area first with near-square shapes breaking ties.
func (t *Tree) freeModuleNodes() []*Node {
	var names []string
	for name := range t.modules {
		if _, grouped := t.groupOf[name]; !grouped {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	sort.SliceStable(names, func(i, j int) bool {
		a, b := t.modules[names[i]], t.modules[names[j]]
		if da := a.Area() - b.Area(); da > 100 || da < -100 {
			return a.Area() > b.Area()
		}
		return aspectSkew(a) < aspectSkew(b)
	})

	nodes := make([]*Node, 0, len(names))
	for _, name := range names {
		n := &Node{Kind: KindModule, Name: name}
		t.nodes[name] = n
		nodes = append(nodes, n)
	}
	return nodes
}

// aspectSkew measures how far from square a module is; 1.0 is square.
func aspectSkew(m *netlist.Module) float64 {
	r := float64(m.W) / float64(m.H)
	if r < 1 {
		return 1 / r
	}
	return r
}

// buildBalanced seeds the tree with the symmetry islands sorted by total
// area, inserted breadth-first, then spreads the free modules over the
// leaves.
func (t *Tree) buildBalanced(hierarchies, free []*Node) {
	sort.SliceStable(hierarchies, func(i, j int) bool {
		return t.islandArea(hierarchies[i]) > t.islandArea(hierarchies[j])
	})

	var pending []*Node
	pending = append(pending, hierarchies...)
	pending = append(pending, free...)
	if len(pending) == 0 {
		return
	}

	t.root = pending[0]
	open := []*Node{t.root}
	for _, n := range pending[1:] {
		for {
			slot := open[0]
			if slot.Left == nil {
				slot.Left = n
				n.Parent = slot
				break
			}
			if slot.Right == nil {
				slot.Right = n
				n.Parent = slot
				open = open[1:]
				break
			}
			open = open[1:]
		}
		open = append(open, n)
	}
}

// buildChained strings islands then free modules along the left spine.
func (t *Tree) buildChained(hierarchies, free []*Node) {
	var all []*Node
	all = append(all, hierarchies...)
	all = append(all, free...)
	if len(all) == 0 {
		return
	}
	t.root = all[0]
	cur := t.root
	for _, n := range all[1:] {
		cur.Left = n
		n.Parent = cur
		cur = n
	}
}

func (t *Tree) islandArea(h *Node) int64 {
	var total int64
	for _, name := range h.Island.Group().Modules() {
		total += t.modules[name].Area()
	}
	return total
}

// Root returns the tree root.
func (t *Tree) Root() *Node {
	return t.root
}

// Modules returns the live module map, grouped and free alike.
func (t *Tree) Modules() map[string]*netlist.Module {
	return t.modules
}

// Groups returns the symmetry groups in input order.
func (t *Tree) Groups() []*netlist.SymmetryGroup {
	return t.groups
}

// FindNode returns the module or hierarchy node with the given name, or nil.
// Contour nodes are not addressable by name.
func (t *Tree) FindNode(name string) *Node {
	return t.nodes[name]
}

// GroupOf returns the symmetry group name containing the module, or "".
func (t *Tree) GroupOf(name string) string {
	return t.groupOf[name]
}

// Area returns the bounding-box area as of the last pack.
func (t *Tree) Area() int64 {
	return t.area
}

// WireLength returns the wirelength term of the cost. The input format
// carries no net connectivity, so the term is zero; the weight stays in the
// cost function for inputs that gain nets later.
func (t *Tree) WireLength() int64 {
	return 0
}

// Contours returns the global horizontal and vertical skylines as of the
// last pack.
func (t *Tree) Contours() (horizontal, vertical *contour.Contour) {
	return t.hContour, t.vContour
}

// Placement snapshots the current module geometry.
func (t *Tree) Placement() *netlist.Placement {
	p := &netlist.Placement{
		Modules: make(map[string]*netlist.Module, len(t.modules)),
		Area:    t.area,
	}
	for name, m := range t.modules {
		p.Modules[name] = m.Clone()
	}
	return p
}

// IsSymmetricFeasible reports whether every island satisfies its boundary
// constraints.
func (t *Tree) IsSymmetricFeasible() bool {
	for _, g := range t.groups {
		if !t.nodes[g.Name].Island.IsSymmetricFeasible() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy sharing no mutable state with the original.
// Islands keep their tree shape and representative choices; the module map
// of the copy points into the cloned islands so both views stay consistent.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		modules:  make(map[string]*netlist.Module, len(t.modules)),
		groupOf:  make(map[string]string, len(t.groupOf)),
		nodes:    make(map[string]*Node, len(t.nodes)),
		hContour: t.hContour.Clone(),
		vContour: t.vContour.Clone(),
		area:     t.area,
		packed:   t.packed,
		dirty:    make(map[*Node]bool),
	}
	for k, v := range t.groupOf {
		c.groupOf[k] = v
	}

	c.root = c.cloneNode(t.root, nil)

	for name, m := range t.modules {
		if _, ok := c.modules[name]; !ok {
			c.modules[name] = m.Clone()
		}
	}
	for _, g := range t.groups {
		c.groups = append(c.groups, c.nodes[g.Name].Island.Group())
	}
	return c
}

func (c *Tree) cloneNode(n, parent *Node) *Node {
	if n == nil {
		return nil
	}
	cn := &Node{
		Kind:   n.Kind,
		Name:   n.Name,
		Parent: parent,
		X1:     n.X1,
		X2:     n.X2,
		Y:      n.Y,
	}
	switch n.Kind {
	case KindHierarchy:
		cn.Island = n.Island.Clone()
		c.nodes[cn.Name] = cn
		for name, m := range cn.Island.Modules() {
			c.modules[name] = m
		}
	case KindModule:
		c.nodes[cn.Name] = cn
		// Module payload copied by the caller after the walk.
	}
	cn.Left = c.cloneNode(n.Left, cn)
	cn.Right = c.cloneNode(n.Right, cn)
	return cn
}

// walk visits every node pre-order.
func (t *Tree) walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	t.walk(n.Left, visit)
	t.walk(n.Right, visit)
}

func contourNodeName(group string, i int) string {
	return fmt.Sprintf("%s.contour%d", group, i)
}
