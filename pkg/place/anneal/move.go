package anneal

import (
	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/place/hb"
)

// Op enumerates the perturbation operators.
type Op int

const (
	OpRotate Op = iota
	OpMove
	OpSwap
	OpChangeRepresentative
	OpConvertSymmetry

	numOps
)

func (o Op) String() string {
	switch o {
	case OpRotate:
		return "rotate"
	case OpMove:
		return "move"
	case OpSwap:
		return "swap"
	case OpChangeRepresentative:
		return "change_representative"
	case OpConvertSymmetry:
		return "convert_symmetry"
	}
	return "unknown"
}

// Move is one perturbation descriptor. Name1/Name2/AsLeft parameterize the
// operator; the orig* fields are filled in by Apply so Undo can put the tree
// back.
type Move struct {
	Op     Op
	Name1  string
	Name2  string
	AsLeft bool

	origParent string
	origAsLeft bool
	origRep    string
}

func (m *Move) reset() {
	*m = Move{}
}

// Apply runs the move against the tree, capturing undo state first where the
// operator needs it. A failed apply leaves the tree untouched and needs no
// undo.
func (m *Move) Apply(t *hb.Tree) error {
	switch m.Op {
	case OpRotate:
		return t.RotateModule(m.Name1)
	case OpMove:
		n := t.FindNode(m.Name1)
		if n == nil {
			return errors.New(errors.ErrCodeNotFound, "node %q not found", m.Name1)
		}
		m.origParent, m.origAsLeft = namedParent(n)
		return t.MoveNode(m.Name1, m.Name2, m.AsLeft)
	case OpSwap:
		return t.SwapNodes(m.Name1, m.Name2)
	case OpChangeRepresentative:
		h := t.FindNode(m.Name1)
		if h == nil || h.Island == nil {
			return errors.New(errors.ErrCodeNotFound, "symmetry group %q not found", m.Name1)
		}
		m.origRep = h.Island.Representative(m.Name2)
		return t.ChangeRepresentative(m.Name1, m.Name2)
	case OpConvertSymmetry:
		return t.ConvertSymmetryType(m.Name1)
	}
	return errors.New(errors.ErrCodeInternal, "unknown operator %d", int(m.Op))
}

// Undo reverses a successfully applied move. Rotate, swap, and symmetry
// conversion are their own inverses; move and representative changes restore
// the state captured by Apply. Moving back is approximate when the original
// parent was a contour node rebuilt since, or when the move displaced a child
// into the moved subtree.
func (m *Move) Undo(t *hb.Tree) error {
	switch m.Op {
	case OpRotate:
		return t.RotateModule(m.Name1)
	case OpMove:
		if m.origParent == "" {
			return errors.New(errors.ErrCodeInvalidOperation,
				"move of %q has no captured origin", m.Name1)
		}
		return t.MoveNode(m.Name1, m.origParent, m.origAsLeft)
	case OpSwap:
		// The payloads traded places, so the names now select the other node.
		return t.SwapNodes(m.Name1, m.Name2)
	case OpChangeRepresentative:
		if m.origRep == "" {
			return errors.New(errors.ErrCodeInvalidOperation,
				"representative change in %q has no captured origin", m.Name1)
		}
		return t.ChangeRepresentative(m.Name1, m.origRep)
	case OpConvertSymmetry:
		return t.ConvertSymmetryType(m.Name1)
	}
	return errors.New(errors.ErrCodeInternal, "unknown operator %d", int(m.Op))
}

// namedParent walks up from n's parent to the nearest module or hierarchy
// node, so the undo target survives contour-chain rebuilds. The reported side
// is n's side under its immediate parent.
func namedParent(n *hb.Node) (name string, asLeft bool) {
	asLeft = n.IsLeftChild()
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Kind != hb.KindContour {
			return p.Name, asLeft
		}
	}
	return "", asLeft
}

const poolBlockSize = 1024

// MovePool recycles move descriptors in fixed-size blocks so the annealing
// hot loop allocates nothing per iteration.
type MovePool struct {
	blocks [][]Move
	free   []*Move
}

// NewMovePool returns a pool with one block pre-allocated.
func NewMovePool() *MovePool {
	p := &MovePool{}
	p.grow()
	return p
}

func (p *MovePool) grow() {
	block := make([]Move, poolBlockSize)
	p.blocks = append(p.blocks, block)
	for i := range block {
		p.free = append(p.free, &block[i])
	}
}

// Get returns a zeroed move, growing the pool when the free list runs dry.
func (p *MovePool) Get() *Move {
	if len(p.free) == 0 {
		p.grow()
	}
	m := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	m.reset()
	return m
}

// Put returns a move to the free list.
func (p *MovePool) Put(m *Move) {
	if m == nil {
		return
	}
	p.free = append(p.free, m)
}

// Allocated returns the total descriptor capacity across all blocks.
func (p *MovePool) Allocated() int {
	return len(p.blocks) * poolBlockSize
}

// Available returns the number of descriptors on the free list.
func (p *MovePool) Available() int {
	return len(p.free)
}
