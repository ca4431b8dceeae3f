package asf

import (
	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/place/contour"
)

// Pack computes coordinates for every module in the group: representatives
// are placed by pre-order B*-tree traversal against the contours, the axis
// position is derived from their spans, and the mirror pass generates the
// non-representatives.
func (t *Tree) Pack() error {
	if t.root == nil {
		return errors.New(errors.ErrCodeInvalidOperation, "empty tree")
	}

	t.hContour.Clear()
	t.vContour.Clear()

	var packErr error
	t.preorder(t.root, func(n *Node) {
		if packErr != nil {
			return
		}
		packErr = t.packNode(n)
	})
	if packErr != nil {
		return packErr
	}

	t.computeAxis()
	t.centerSelfSymmetric()
	t.mirrorPairs()
	t.rebuildContours()
	return nil
}

func (t *Tree) preorder(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	t.preorder(n.Left, visit)
	t.preorder(n.Right, visit)
}

// packNode places one representative per the B*-tree rules: a left child
// abuts its parent's right edge, a right child shares the parent's x, and y
// is the skyline height under the module's span.
func (t *Tree) packNode(n *Node) error {
	m, ok := t.modules[n.Name]
	if !ok {
		return errors.New(errors.ErrCodeInternal, "module %q not in group", n.Name)
	}

	x := 0
	if n.Parent != nil {
		parent := t.modules[n.Parent.Name]
		if n.IsLeftChild() {
			x = parent.X + parent.Width()
		} else {
			x = parent.X
		}
	}
	y := t.hContour.HeightOver(x, x+m.Width())

	m.SetPosition(x, y)
	t.hContour.Add(x, x+m.Width(), y+m.Height())
	t.vContour.Add(y, y+m.Height(), x+m.Width())
	return nil
}

// computeAxis places the axis at the representatives' packed extent and
// shifts them past it: representatives occupy the half-plane beyond the
// axis, mirrors reflect back into [0, axis]. The two sides stay disjoint,
// so a pair can never reflect onto its own representative, and every
// mirrored coordinate is non-negative.
func (t *Tree) computeAxis() {
	hi := 0
	for _, name := range t.Representatives() {
		m := t.modules[name]
		end := m.Y + m.Height()
		if t.group.Axis == netlist.AxisVertical {
			end = m.X + m.Width()
		}
		if end > hi {
			hi = end
		}
	}
	for _, name := range t.Representatives() {
		m := t.modules[name]
		if t.group.Axis == netlist.AxisVertical {
			m.SetPosition(m.X+hi, m.Y)
		} else {
			m.SetPosition(m.X, m.Y+hi)
		}
	}
	t.axis2 = 2 * hi
	t.axisLocked = true
}

// centerSelfSymmetric re-centres each self-symmetric module so it straddles
// the axis. The boundary constraint packs these modules against the axis, so
// the move stays within the strip their packed footprint already covered.
func (t *Tree) centerSelfSymmetric() {
	for name := range t.selfSym {
		m := t.modules[name]
		if t.group.Axis == netlist.AxisVertical {
			m.SetPosition((t.axis2-m.Width())/2, m.Y)
		} else {
			m.SetPosition(m.X, (t.axis2-m.Height())/2)
		}
	}
}

// mirrorPairs places each non-representative as the reflection of its
// pair's representative across the axis, copying the orientation.
func (t *Tree) mirrorPairs() {
	for _, p := range t.group.Pairs {
		repName := t.repOf[p.A]
		mirName := p.A
		if mirName == repName {
			mirName = p.B
		}
		rep, mir := t.modules[repName], t.modules[mirName]

		mir.Rotated = rep.Rotated
		if t.group.Axis == netlist.AxisVertical {
			mir.SetPosition(t.axis2-(rep.X+rep.Width()), rep.Y)
		} else {
			mir.SetPosition(rep.X, t.axis2-(rep.Y+rep.Height()))
		}
	}
}

// rebuildContours recomputes both skylines from the final positions of all
// modules, mirrors included, so the island exposes its true outline.
func (t *Tree) rebuildContours() {
	t.hContour.Clear()
	t.vContour.Clear()

	box := contour.New()
	for _, m := range t.modules {
		box.Clear()
		box.Add(m.X, m.X+m.Width(), m.Y+m.Height())
		t.hContour.Merge(box)

		box.Clear()
		box.Add(m.Y, m.Y+m.Height(), m.X+m.Width())
		t.vContour.Merge(box)
	}
}
