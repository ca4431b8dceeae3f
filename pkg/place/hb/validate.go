package hb

import "sort"

const legalizePasses = 3

// FixOverlaps scans every module pair once and separates overlapping pairs
// by shifting one module in whichever direction needs the smaller
// displacement: right of the other, or above it. The module that trails in
// that direction moves, except that a free module always yields to a
// symmetry-island member. Modules of the same symmetry island are never
// shifted apart; the island pack places them mirrored and disjoint, and a
// unilateral shift would break the mirror. Members of two different islands
// are shifted like free modules.
func (t *Tree) FixOverlaps() int {
	names := make([]string, 0, len(t.modules))
	for name := range t.modules {
		names = append(names, name)
	}
	sort.Strings(names)

	fixes := 0
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := t.modules[names[i]], t.modules[names[j]]
			if !a.Overlaps(b) {
				continue
			}
			if g := t.groupOf[names[i]]; g != "" && g == t.groupOf[names[j]] {
				continue
			}
			overlapX := min(a.X+a.Width(), b.X+b.Width()) - max(a.X, b.X)
			overlapY := min(a.Y+a.Height(), b.Y+b.Height()) - max(a.Y, b.Y)

			// Shift whichever of the two trails in the chosen direction,
			// unless only one is an island member: then the free one moves.
			moveB := a.X <= b.X
			if overlapX > overlapY {
				moveB = a.Y <= b.Y
			}
			if aGrouped, bGrouped := t.groupOf[names[i]] != "", t.groupOf[names[j]] != ""; aGrouped != bGrouped {
				moveB = aGrouped
			}
			if overlapX <= overlapY {
				if moveB {
					b.SetPosition(a.X+a.Width(), b.Y)
				} else {
					a.SetPosition(b.X+b.Width(), a.Y)
				}
			} else {
				if moveB {
					b.SetPosition(b.X, a.Y+a.Height())
				} else {
					a.SetPosition(a.X, b.Y+b.Height())
				}
			}
			fixes++
		}
	}
	return fixes
}

// Legalize repeats overlap repair until the placement is clean or the pass
// budget runs out, then refreshes the skylines and area if anything moved.
// Returns the total number of shifts applied.
func (t *Tree) Legalize() int {
	total := 0
	for pass := 0; pass < legalizePasses; pass++ {
		n := t.FixOverlaps()
		total += n
		if n == 0 {
			break
		}
	}
	if total > 0 {
		t.seedContoursExcluding(nil)
		t.area = t.computeArea()
	}
	return total
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
