package hb

import (
	"sort"

	"github.com/jeannie068/analogplace/pkg/errors"
	"github.com/jeannie068/analogplace/pkg/netlist"
	"github.com/jeannie068/analogplace/pkg/place/contour"
)

// Pack computes coordinates for every module: free modules by B*-tree rules
// against the global skylines, islands packed internally then dropped onto
// the skyline as one block. Afterwards each island's outline is republished
// as contour nodes and any overlap left by stale contour references is
// repaired.
func (t *Tree) Pack() error {
	if t.root == nil {
		return errors.New(errors.ErrCodeInvalidOperation, "empty tree")
	}

	t.hContour.Clear()
	t.vContour.Clear()

	if err := t.packSubtree(t.root); err != nil {
		return err
	}

	t.refreshContourNodes()
	t.area = t.computeArea()
	t.packed = true
	t.dirty = make(map[*Node]bool)

	t.Legalize()
	return nil
}

// packSubtree packs one subtree pre-order. Contour nodes place nothing
// themselves; they only lend their segment coordinates to children.
func (t *Tree) packSubtree(n *Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindModule:
		if err := t.packModule(n); err != nil {
			return err
		}
	case KindHierarchy:
		if err := t.packHierarchy(n); err != nil {
			return err
		}
	}
	if err := t.packSubtree(n.Left); err != nil {
		return err
	}
	return t.packSubtree(n.Right)
}

// packModule places one free module: x from the parent rule, y from the
// skyline under its span.
func (t *Tree) packModule(n *Node) error {
	m, ok := t.modules[n.Name]
	if !ok {
		return errors.New(errors.ErrCodeInternal, "module %q not in tree", n.Name)
	}
	x := t.attachX(n)
	y := t.hContour.HeightOver(x, x+m.Width())
	m.SetPosition(x, y)
	t.hContour.Add(x, x+m.Width(), y+m.Height())
	t.vContour.Add(y, y+m.Height(), x+m.Width())
	return nil
}

// packHierarchy packs the island internally, then shifts the whole island so
// its bounding box lands where the B*-tree rules put it, and raises the
// global skylines under every island module.
func (t *Tree) packHierarchy(n *Node) error {
	if err := n.Island.Pack(); err != nil {
		return err
	}
	minX, minY, maxX, _ := islandBounds(n)
	w := maxX - minX

	x := t.attachX(n)
	y := t.hContour.HeightOver(x, x+w)

	dx, dy := x-minX, y-minY
	for _, m := range n.Island.Modules() {
		m.SetPosition(m.X+dx, m.Y+dy)
	}

	t.raiseContours(n)
	return nil
}

// raiseContours merges every island module into the global skylines. Merge
// keeps the point-wise maximum, so stacked island modules cannot shadow each
// other regardless of iteration order.
func (t *Tree) raiseContours(h *Node) {
	box := contour.New()
	for _, m := range h.Island.Modules() {
		box.Clear()
		box.Add(m.X, m.X+m.Width(), m.Y+m.Height())
		t.hContour.Merge(box)

		box.Clear()
		box.Add(m.Y, m.Y+m.Height(), m.X+m.Width())
		t.vContour.Merge(box)
	}
}

// attachX derives a node's x coordinate from its parent. Left children abut
// the parent's right edge, right children share the parent's left edge; for
// hierarchy parents the edges are the island bounding box, for contour
// parents the segment ends.
func (t *Tree) attachX(n *Node) int {
	p := n.Parent
	if p == nil {
		return 0
	}
	left := n.IsLeftChild()
	switch p.Kind {
	case KindModule:
		pm := t.modules[p.Name]
		if left {
			return pm.X + pm.Width()
		}
		return pm.X
	case KindHierarchy:
		minX, _, maxX, _ := islandBounds(p)
		if left {
			return maxX
		}
		return minX
	case KindContour:
		if left {
			return p.X2
		}
		return p.X1
	}
	return 0
}

// islandBounds returns the bounding box of a hierarchy node's modules.
func islandBounds(h *Node) (minX, minY, maxX, maxY int) {
	first := true
	for _, m := range h.Island.Modules() {
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
	return
}

// refreshContourNodes strips every contour node from the tree and rebuilds
// each island's chain from its packed outline: the first segment becomes the
// hierarchy node's right child, the rest hang off successive left links.
// Subtrees that were attached to removed contour nodes are reattached to the
// nearest surviving contour node.
func (t *Tree) refreshContourNodes() {
	var dangling []*Node
	t.stripContours(t.root, &dangling)
	for i := 0; i < len(dangling); i++ {
		t.stripContours(dangling[i], &dangling)
	}

	var hierarchies []*Node
	collect := func(n *Node) {
		if n.Kind == KindHierarchy {
			hierarchies = append(hierarchies, n)
		}
	}
	t.walk(t.root, collect)
	for _, d := range dangling {
		t.walk(d, collect)
	}

	for _, h := range hierarchies {
		sky := contour.New()
		for _, m := range h.Island.Modules() {
			box := contour.New()
			box.Add(m.X, m.X+m.Width(), m.Y+m.Height())
			sky.Merge(box)
		}
		var prev *Node
		for i, s := range sky.Segments() {
			c := &Node{
				Kind: KindContour,
				Name: contourNodeName(h.Name, i),
				X1:   s.Start,
				X2:   s.End,
				Y:    s.Height,
			}
			if prev == nil {
				// An existing right child of the hierarchy node is displaced
				// by the chain and reattached with the other dangling trees.
				if h.Right != nil {
					h.Right.Parent = nil
					dangling = append(dangling, h.Right)
				}
				h.Right = c
				c.Parent = h
			} else {
				prev.Left = c
				c.Parent = prev
			}
			prev = c
		}
	}

	// Chain building may displace more subtrees; the index loop picks them up.
	for i := 0; i < len(dangling); i++ {
		t.reattach(dangling[i])
	}
}

// stripContours removes every contour node reachable from n, collecting the
// non-contour subtrees that hung off them.
func (t *Tree) stripContours(n *Node, dangling *[]*Node) {
	if n == nil {
		return
	}
	if n.Left != nil && n.Left.Kind == KindContour {
		collectChain(n.Left, dangling)
		n.Left = nil
	}
	if n.Right != nil && n.Right.Kind == KindContour {
		collectChain(n.Right, dangling)
		n.Right = nil
	}
	t.stripContours(n.Left, dangling)
	t.stripContours(n.Right, dangling)
}

func collectChain(c *Node, dangling *[]*Node) {
	for _, child := range []*Node{c.Left, c.Right} {
		if child == nil {
			continue
		}
		if child.Kind == KindContour {
			collectChain(child, dangling)
			continue
		}
		child.Parent = nil
		*dangling = append(*dangling, child)
	}
	c.Left, c.Right, c.Parent = nil, nil, nil
}

// reattach hangs a dangling subtree under the nearest contour node: as its
// right child when free, otherwise under the chain's leftmost descendant.
// Without any contour node the subtree goes to the tree's leftmost leaf.
func (t *Tree) reattach(d *Node) {
	target := t.nearestContourNode()
	if target == nil {
		target = leftmostSkewed(t.root)
		if target == nil || target == d {
			t.root = d
			return
		}
		target.Left = d
		d.Parent = target
		return
	}
	if target.Right == nil {
		target.Right = d
		d.Parent = target
		return
	}
	tail := leftmostSkewed(target)
	tail.Left = d
	d.Parent = tail
}

// nearestContourNode finds a contour node breadth-first from the root.
func (t *Tree) nearestContourNode() *Node {
	if t.root == nil {
		return nil
	}
	queue := []*Node{t.root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.Kind == KindContour {
			return cur
		}
		if cur.Left != nil {
			queue = append(queue, cur.Left)
		}
		if cur.Right != nil {
			queue = append(queue, cur.Right)
		}
	}
	return nil
}

// leftmostSkewed follows left links to the end of a chain.
func leftmostSkewed(n *Node) *Node {
	if n == nil {
		return nil
	}
	for n.Left != nil {
		n = n.Left
	}
	return n
}

// computeArea returns the bounding-box area over all modules, or 0 when the
// box is degenerate.
func (t *Tree) computeArea() int64 {
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
	if first || minX >= maxX || minY >= maxY {
		return 0
	}
	return int64(maxX-minX) * int64(maxY-minY)
}

// markDirty records a modified node and its ancestors for repacking.
func (t *Tree) markDirty(n *Node) {
	for cur := n; cur != nil; cur = cur.Parent {
		t.dirty[cur] = true
	}
}

// repackAffected repacks after a perturbation. A dirty root forces a full
// pack; otherwise the maximal dirty subtrees are repacked deepest-first over
// skylines re-seeded from the untouched blocks.
func (t *Tree) repackAffected() error {
	if !t.packed || len(t.dirty) == 0 {
		return nil
	}
	if t.dirty[t.root] {
		return t.Pack()
	}

	roots := t.dirtyRoots()
	sort.SliceStable(roots, func(i, j int) bool {
		return depth(roots[i]) > depth(roots[j])
	})

	t.seedContoursExcluding(roots)
	for _, r := range roots {
		if err := t.packSubtree(r); err != nil {
			return err
		}
	}

	t.refreshContourNodes()
	t.area = t.computeArea()
	t.dirty = make(map[*Node]bool)
	t.Legalize()
	return nil
}

// dirtyRoots returns the dirty nodes whose parents are clean.
func (t *Tree) dirtyRoots() []*Node {
	var roots []*Node
	t.walk(t.root, func(n *Node) {
		if t.dirty[n] && (n.Parent == nil || !t.dirty[n.Parent]) {
			roots = append(roots, n)
		}
	})
	return roots
}

func depth(n *Node) int {
	d := 0
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		d++
	}
	return d
}

// seedContoursExcluding rebuilds the global skylines from every placed block
// outside the given subtrees.
func (t *Tree) seedContoursExcluding(excluded []*Node) {
	skip := make(map[*Node]bool, len(excluded))
	for _, r := range excluded {
		t.walk(r, func(n *Node) { skip[n] = true })
	}

	t.hContour.Clear()
	t.vContour.Clear()
	box := contour.New()
	raise := func(m *netlist.Module) {
		box.Clear()
		box.Add(m.X, m.X+m.Width(), m.Y+m.Height())
		t.hContour.Merge(box)

		box.Clear()
		box.Add(m.Y, m.Y+m.Height(), m.X+m.Width())
		t.vContour.Merge(box)
	}
	t.walk(t.root, func(n *Node) {
		if skip[n] {
			return
		}
		switch n.Kind {
		case KindModule:
			raise(t.modules[n.Name])
		case KindHierarchy:
			for _, m := range n.Island.Modules() {
				raise(m)
			}
		}
	})
}
