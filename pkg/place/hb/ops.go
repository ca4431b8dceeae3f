package hb

import (
	"github.com/jeannie068/analogplace/pkg/errors"
)

// RotateModule rotates a module. Symmetry-group members are rotated through
// their island so the mirrored partner follows; rotating a non-representative
// fails there. Free modules rotate in place.
func (t *Tree) RotateModule(name string) error {
	if _, ok := t.modules[name]; !ok {
		return errors.New(errors.ErrCodeNotFound, "module %q not found", name)
	}
	if group, grouped := t.groupOf[name]; grouped {
		h := t.nodes[group]
		if err := h.Island.RotateModule(name); err != nil {
			return err
		}
		t.markDirty(h)
	} else {
		t.modules[name].Rotate()
		t.markDirty(t.nodes[name])
	}
	return t.repackAffected()
}

// MoveNode relocates a module or hierarchy node under a new parent. The
// displaced child, if any, is pushed down into the moved node's subtree.
// The root cannot move; everything else refuses only cycles.
func (t *Tree) MoveNode(name, newParentName string, asLeft bool) error {
	node := t.nodes[name]
	newParent := t.nodes[newParentName]
	if node == nil || newParent == nil {
		return errors.New(errors.ErrCodeNotFound, "node %q or %q not found", name, newParentName)
	}
	if node == t.root {
		return errors.New(errors.ErrCodeInvalidOperation, "cannot move the root node")
	}
	if node == newParent || isDescendant(newParent, node) {
		return errors.New(errors.ErrCodeInvalidOperation,
			"moving %q under %q would create a cycle", name, newParentName)
	}

	oldParent := node.Parent
	if oldParent.Left == node {
		oldParent.Left = nil
	} else if oldParent.Right == node {
		oldParent.Right = nil
	}
	node.Parent = newParent

	var displaced *Node
	if asLeft {
		displaced = newParent.Left
		newParent.Left = node
	} else {
		displaced = newParent.Right
		newParent.Right = node
	}

	if displaced != nil {
		switch {
		case node.Left == nil:
			node.Left = displaced
			displaced.Parent = node
		case node.Right == nil:
			node.Right = displaced
			displaced.Parent = node
		default:
			// Both slots taken: descend the same-side chain to a free slot.
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
	}

	t.markDirty(oldParent)
	t.markDirty(node)
	return t.repackAffected()
}

// SwapNodes exchanges the payloads of two nodes, leaving the tree shape and
// both subtrees where they are. Module and hierarchy nodes swap freely.
func (t *Tree) SwapNodes(name1, name2 string) error {
	n1, n2 := t.nodes[name1], t.nodes[name2]
	if n1 == nil || n2 == nil {
		return errors.New(errors.ErrCodeNotFound, "node %q or %q not found", name1, name2)
	}
	if n1 == n2 {
		return errors.New(errors.ErrCodeInvalidOperation, "cannot swap %q with itself", name1)
	}

	n1.Kind, n2.Kind = n2.Kind, n1.Kind
	n1.Name, n2.Name = n2.Name, n1.Name
	n1.Island, n2.Island = n2.Island, n1.Island
	t.nodes[n1.Name] = n1
	t.nodes[n2.Name] = n2

	t.markDirty(n1)
	t.markDirty(n2)
	return t.repackAffected()
}

// ChangeRepresentative flips which member of a symmetry pair carries the
// pair inside the named group's island.
func (t *Tree) ChangeRepresentative(groupName, moduleName string) error {
	h := t.hierarchyNode(groupName)
	if h == nil {
		return errors.New(errors.ErrCodeNotFound, "symmetry group %q not found", groupName)
	}
	if err := h.Island.ChangeRepresentative(moduleName); err != nil {
		return err
	}
	t.markDirty(h)
	return t.repackAffected()
}

// ConvertSymmetryType flips the named group's axis, rotating its members and
// rebuilding its island tree.
func (t *Tree) ConvertSymmetryType(groupName string) error {
	h := t.hierarchyNode(groupName)
	if h == nil {
		return errors.New(errors.ErrCodeNotFound, "symmetry group %q not found", groupName)
	}
	if err := h.Island.ConvertSymmetryType(); err != nil {
		return err
	}
	t.markDirty(h)
	return t.repackAffected()
}

func (t *Tree) hierarchyNode(groupName string) *Node {
	h := t.nodes[groupName]
	if h == nil || h.Kind != KindHierarchy {
		return nil
	}
	return h
}

func isDescendant(candidate, ancestor *Node) bool {
	for cur := candidate; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}
