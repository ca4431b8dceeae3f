package asf

import (
	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
)

// RotateModule toggles the orientation of a representative. Coordinates are
// recomputed at the next pack; the mirrored partner follows automatically.
func (t *Tree) RotateModule(name string) error {
	m, ok := t.modules[name]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "module %q not in group", name)
	}
	if !t.IsRepresentative(name) {
		return errors.New(errors.ErrCodeInvalidOperation,
			"module %q is not a representative", name)
	}
	m.Rotate()
	return nil
}

// MoveNode relocates a representative's node under a new parent. A child
// already occupying the target slot is pushed down onto the moved node's
// same-side chain so no subtree is lost.
func (t *Tree) MoveNode(name, newParentName string, asLeft bool) error {
	if !t.IsRepresentative(name) || !t.IsRepresentative(newParentName) {
		return errors.New(errors.ErrCodeInvalidOperation,
			"move requires representative nodes")
	}
	node := t.nodes[name]
	newParent := t.nodes[newParentName]
	if node == nil || newParent == nil {
		return errors.New(errors.ErrCodeNotFound, "node %q or %q not found", name, newParentName)
	}
	if node == newParent || isDescendant(newParent, node) {
		return errors.New(errors.ErrCodeInvalidOperation,
			"moving %q under %q would create a cycle", name, newParentName)
	}
	if !t.canPlace(node, newParent, asLeft) {
		return errors.New(errors.ErrCodeViolatesSymmetry,
			"moving %q under %q violates the boundary constraint", name, newParentName)
	}

	t.detach(node)

	displaced := newParent.Right
	if asLeft {
		displaced = newParent.Left
		newParent.Left = node
	} else {
		newParent.Right = node
	}
	node.Parent = newParent

	if displaced != nil {
		// Descend the same-side chain of the moved node to a free slot.
		cur := node
		for {
			next := cur.Right
			if asLeft {
				next = cur.Left
			}
			if next == nil {
				break
			}
			cur = next
		}
		if asLeft {
			cur.Left = displaced
		} else {
			cur.Right = displaced
		}
		displaced.Parent = cur
	}
	return nil
}

// SwapNodes exchanges the modules carried by two nodes. Swapping a
// self-symmetric module with a plain one is rejected: the plain module
// would land on the boundary branch and the self-symmetric one off it.
func (t *Tree) SwapNodes(name1, name2 string) error {
	if !t.IsRepresentative(name1) || !t.IsRepresentative(name2) {
		return errors.New(errors.ErrCodeInvalidOperation,
			"swap requires representative nodes")
	}
	n1, n2 := t.nodes[name1], t.nodes[name2]
	if n1 == nil || n2 == nil {
		return errors.New(errors.ErrCodeNotFound, "node %q or %q not found", name1, name2)
	}
	if t.selfSym[name1] != t.selfSym[name2] {
		return errors.New(errors.ErrCodeViolatesSymmetry,
			"cannot swap self-symmetric %q with paired %q", name1, name2)
	}

	n1.Name, n2.Name = n2.Name, n1.Name
	t.nodes[n1.Name] = n1
	t.nodes[n2.Name] = n2
	return nil
}

// ChangeRepresentative flips which member of a pair carries the pair in the
// tree, then rebuilds the tree around the new representative set.
func (t *Tree) ChangeRepresentative(name string) error {
	partner, ok := t.partnerOf[name]
	if !ok {
		return errors.New(errors.ErrCodeInvalidOperation,
			"module %q is not part of a symmetry pair", name)
	}
	oldRep := t.repOf[name]
	newRep := name
	if oldRep == name {
		newRep = partner
	}
	t.repOf[name] = newRep
	t.repOf[partner] = newRep

	t.buildInitialTree()
	return nil
}

// ConvertSymmetryType flips the group axis, rotates every module 90 degrees,
// and rebuilds the tree so boundary constraints hold for the new axis.
func (t *Tree) ConvertSymmetryType() error {
	if t.group.Axis == netlist.AxisVertical {
		t.group.Axis = netlist.AxisHorizontal
	} else {
		t.group.Axis = netlist.AxisVertical
	}
	t.axisLocked = false

	for _, m := range t.modules {
		m.Rotate()
	}

	t.buildInitialTree()
	return nil
}

// IsSymmetricFeasible verifies every self-symmetric node sits on the
// boundary branch required by the axis type.
func (t *Tree) IsSymmetricFeasible() bool {
	for name := range t.selfSym {
		node := t.nodes[name]
		if node == nil {
			continue
		}
		for cur := node; cur.Parent != nil; cur = cur.Parent {
			if t.group.Axis == netlist.AxisVertical {
				if cur.IsLeftChild() {
					return false
				}
			} else {
				if !cur.IsLeftChild() {
					return false
				}
			}
		}
	}
	return true
}

// canPlace checks the boundary constraint for attaching node under parent.
func (t *Tree) canPlace(node, parent *Node, asLeft bool) bool {
	if !t.selfSym[node.Name] {
		return true
	}
	if t.group.Axis == netlist.AxisVertical {
		if asLeft {
			return false
		}
		// Parent must itself be on the rightmost branch.
		for cur := parent; cur.Parent != nil; cur = cur.Parent {
			if cur.IsLeftChild() {
				return false
			}
		}
	} else {
		if !asLeft {
			return false
		}
		for cur := parent; cur.Parent != nil; cur = cur.Parent {
			if !cur.IsLeftChild() {
				return false
			}
		}
	}
	return true
}

// detach removes node from its parent, keeping its subtree attached to it.
// A detached root promotes nothing; callers immediately re-attach the node.
func (t *Tree) detach(node *Node) {
	p := node.Parent
	if p == nil {
		// Moving the root: promote one child chain is not meaningful here
		// because the caller re-attaches the node with its subtree intact.
		return
	}
	if p.Left == node {
		p.Left = nil
	} else if p.Right == node {
		p.Right = nil
	}
	node.Parent = nil
}

func isDescendant(candidate, ancestor *Node) bool {
	for cur := candidate; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}
