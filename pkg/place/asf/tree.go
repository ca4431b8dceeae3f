// Package asf implements the ASF-B*-tree: a B*-tree over the representative
// modules of one symmetry group. Packing the representatives and mirroring
// them across the group axis yields a symmetry island whose constraints hold
// exactly in integer coordinates.
package asf

import (
	"sort"

	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/place/contour"
)

// Node is one B*-tree node holding a representative module name.
type Node struct {
	Name   string
	Parent *Node
	Left   *Node
	Right  *Node
}

// IsLeftChild reports whether the node is its parent's left child.
func (n *Node) IsLeftChild() bool {
	return n.Parent != nil && n.Parent.Left == n
}

// Tree is an ASF-B*-tree for a single symmetry group. Only representatives
// appear as nodes; the mirror pass generates the remaining modules.
type Tree struct {
	group   *netlist.SymmetryGroup
	modules map[string]*netlist.Module

	root  *Node
	nodes map[string]*Node

	// repOf maps every group module to its current representative. A pair's
	// representative can be flipped by ChangeRepresentative.
	repOf     map[string]string
	partnerOf map[string]string
	selfSym   map[string]bool

	hContour *contour.Contour
	vContour *contour.Contour

	// axis2 is twice the symmetry-axis coordinate. Keeping the doubled value
	// keeps every mirrored coordinate an integer.
	axis2      int
	axisLocked bool
}

// New builds an ASF-B*-tree for group using the given modules, which must
// contain every group member. Pair members must have identical dimensions.
func New(group *netlist.SymmetryGroup, modules map[string]*netlist.Module) (*Tree, error) {
	t := &Tree{
		group:     group,
		modules:   make(map[string]*netlist.Module),
		nodes:     make(map[string]*Node),
		repOf:     make(map[string]string),
		partnerOf: make(map[string]string),
		selfSym:   make(map[string]bool),
		hContour:  contour.New(),
		vContour:  contour.New(),
	}

	for _, name := range group.Modules() {
		m, ok := modules[name]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"group %q: module %q missing", group.Name, name)
		}
		t.modules[name] = m
	}

	for _, p := range group.Pairs {
		a, b := t.modules[p.A], t.modules[p.B]
		if a.W != b.W || a.H != b.H {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"group %q: pair (%s,%s) dimensions differ", group.Name, p.A, p.B)
		}
		rep := p.Representative()
		t.repOf[p.A] = rep
		t.repOf[p.B] = rep
		t.partnerOf[p.A] = p.B
		t.partnerOf[p.B] = p.A
	}
	for _, name := range group.SelfSymmetric {
		t.repOf[name] = name
		t.selfSym[name] = true
	}

	t.buildInitialTree()
	return t, nil
}

// Group returns the symmetry group this tree encodes.
func (t *Tree) Group() *netlist.SymmetryGroup {
	return t.group
}

// Modules returns the group's module map, including non-representatives.
func (t *Tree) Modules() map[string]*netlist.Module {
	return t.modules
}

// Root returns the tree root.
func (t *Tree) Root() *Node {
	return t.root
}

// FindNode returns the node carrying the named representative, or nil.
func (t *Tree) FindNode(name string) *Node {
	return t.nodes[name]
}

// IsRepresentative reports whether name currently carries its pair in the
// tree. Self-symmetric modules are always representatives.
func (t *Tree) IsRepresentative(name string) bool {
	return t.repOf[name] == name
}

// Representative returns the current representative of name, or "" if name
// is not in the group.
func (t *Tree) Representative(name string) string {
	return t.repOf[name]
}

// IsSelfSymmetric reports whether name is a self-symmetric member.
func (t *Tree) IsSelfSymmetric(name string) bool {
	return t.selfSym[name]
}

// Representatives returns the current representative names in sorted order.
func (t *Tree) Representatives() []string {
	var names []string
	for name, rep := range t.repOf {
		if name == rep {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AxisPosition2 returns twice the symmetry-axis coordinate as of the last
// pack.
func (t *Tree) AxisPosition2() int {
	return t.axis2
}

// Contours returns the island's horizontal and vertical skylines as of the
// last pack.
func (t *Tree) Contours() (horizontal, vertical *contour.Contour) {
	return t.hContour, t.vContour
}

// buildInitialTree constructs a feasible starting tree: representatives
// sorted by area, self-symmetric ones chained on the boundary branch.
func (t *Tree) buildInitialTree() {
	t.root = nil
	t.nodes = make(map[string]*Node)

	reps := t.Representatives()
	if len(reps) == 0 {
		return
	}
	sort.SliceStable(reps, func(i, j int) bool {
		return t.modules[reps[i]].Area() > t.modules[reps[j]].Area()
	})

	for _, name := range reps {
		node := &Node{Name: name}
		t.nodes[name] = node
		if t.root == nil {
			t.root = node
			continue
		}
		if t.selfSym[name] && t.group.Axis == netlist.AxisHorizontal {
			// Horizontal axis: boundary is the leftmost branch.
			cur := t.root
			for cur.Left != nil {
				cur = cur.Left
			}
			cur.Left = node
			node.Parent = cur
			continue
		}
		// Vertical-axis self-symmetric modules and plain pairs both go on
		// the rightmost branch; for pairs it is just a simple start shape.
		cur := t.root
		for cur.Right != nil {
			cur = cur.Right
		}
		cur.Right = node
		node.Parent = cur
	}
}

// Clone returns a deep copy sharing nothing with the original.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		group:      t.group.Clone(),
		modules:    make(map[string]*netlist.Module, len(t.modules)),
		nodes:      make(map[string]*Node, len(t.nodes)),
		repOf:      make(map[string]string, len(t.repOf)),
		partnerOf:  make(map[string]string, len(t.partnerOf)),
		selfSym:    make(map[string]bool, len(t.selfSym)),
		hContour:   t.hContour.Clone(),
		vContour:   t.vContour.Clone(),
		axis2:      t.axis2,
		axisLocked: t.axisLocked,
	}
	for name, m := range t.modules {
		c.modules[name] = m.Clone()
	}
	for k, v := range t.repOf {
		c.repOf[k] = v
	}
	for k, v := range t.partnerOf {
		c.partnerOf[k] = v
	}
	for k := range t.selfSym {
		c.selfSym[k] = true
	}
	c.root = c.cloneNode(t.root, nil)
	return c
}

func (c *Tree) cloneNode(n, parent *Node) *Node {
	if n == nil {
		return nil
	}
	cn := &Node{Name: n.Name, Parent: parent}
	c.nodes[n.Name] = cn
	cn.Left = c.cloneNode(n.Left, cn)
	cn.Right = c.cloneNode(n.Right, cn)
	return cn
}

// Area returns the bounding-box area of all modules in the group.
func (t *Tree) Area() int64 {
	if len(t.modules) == 0 {
		return 0
	}
	first := true
	var minX, minY, maxX, maxY int
	for _, m := range t.modules {
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
	return int64(maxX-minX) * int64(maxY-minY)
}
