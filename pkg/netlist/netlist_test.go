package netlist

import (
	"bytes"
	"testing"
)

func TestModuleDimensions(t *testing.T) {
	m := NewModule("M1", 30, 50)

	if m.Width() != 30 || m.Height() != 50 {
		t.Errorf("dimensions = %dx%d, want 30x50", m.Width(), m.Height())
	}
	if m.Area() != 1500 {
		t.Errorf("Area() = %d, want 1500", m.Area())
	}

	m.Rotate()
	if m.Width() != 50 || m.Height() != 30 {
		t.Errorf("rotated dimensions = %dx%d, want 50x30", m.Width(), m.Height())
	}
	if m.Area() != 1500 {
		t.Error("Area() should be invariant under rotation")
	}

	m.Rotate()
	if m.Rotated {
		t.Error("double rotation should restore orientation")
	}
}

func TestModuleSetPositionClamps(t *testing.T) {
	m := NewModule("M1", 10, 10)
	m.SetPosition(-5, 7)
	if m.X != 0 || m.Y != 7 {
		t.Errorf("position = (%d,%d), want (0,7)", m.X, m.Y)
	}
}

func TestModuleOverlaps(t *testing.T) {
	a := NewModule("A", 10, 10)
	b := NewModule("B", 10, 10)

	tests := []struct {
		name string
		bx   int
		by   int
		want bool
	}{
		{"identical position", 0, 0, true},
		{"partial overlap", 5, 5, true},
		{"touching edges", 10, 0, false},
		{"disjoint", 20, 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.SetPosition(tt.bx, tt.by)
			if got := a.Overlaps(b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := b.Overlaps(a); got != tt.want {
				t.Errorf("Overlaps() should be symmetric")
			}
		})
	}
}

func TestSymmetryPairRepresentative(t *testing.T) {
	p := SymmetryPair{A: "M1", B: "M2"}
	if p.Representative() != "M2" {
		t.Errorf("Representative() = %q, want M2", p.Representative())
	}
	if p.Mirror() != "M1" {
		t.Errorf("Mirror() = %q, want M1", p.Mirror())
	}

	// Order of declaration does not matter
	q := SymmetryPair{A: "M2", B: "M1"}
	if q.Representative() != "M2" || q.Mirror() != "M1" {
		t.Error("Representative() should not depend on declaration order")
	}
}

func TestSymmetryGroupAccessors(t *testing.T) {
	g := &SymmetryGroup{
		Name:          "SG1",
		Axis:          AxisVertical,
		Pairs:         []SymmetryPair{{A: "M1", B: "M2"}},
		SelfSymmetric: []string{"M3"},
	}

	if g.Size() != 3 {
		t.Errorf("Size() = %d, want 3", g.Size())
	}
	if !g.IsSelfSymmetric("M3") || g.IsSelfSymmetric("M1") {
		t.Error("IsSelfSymmetric misclassified a member")
	}

	reps := g.Representatives()
	if len(reps) != 2 || reps[0] != "M2" || reps[1] != "M3" {
		t.Errorf("Representatives() = %v, want [M2 M3]", reps)
	}

	if _, ok := g.PairOf("M1"); !ok {
		t.Error("PairOf(M1) should find the pair")
	}
	if _, ok := g.PairOf("M3"); ok {
		t.Error("PairOf(M3) should not find a pair")
	}
}

func TestParseAxis(t *testing.T) {
	tests := []struct {
		input   string
		want    Axis
		wantErr bool
	}{
		{"vertical", AxisVertical, false},
		{"Horizontal", AxisHorizontal, false},
		{"V", AxisVertical, false},
		{"h", AxisHorizontal, false},
		{"diagonal", AxisVertical, true},
		{"", AxisVertical, true},
	}
	for _, tt := range tests {
		got, err := ParseAxis(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAxis(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseAxis(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNetlistFreeModules(t *testing.T) {
	n := NewNetlist()
	n.Modules["M1"] = NewModule("M1", 10, 10)
	n.Modules["M2"] = NewModule("M2", 10, 10)
	n.Modules["M3"] = NewModule("M3", 10, 10)
	n.Groups = []*SymmetryGroup{{
		Name:  "SG1",
		Pairs: []SymmetryPair{{A: "M1", B: "M2"}},
	}}

	free := n.FreeModules()
	if len(free) != 1 || free[0] != "M3" {
		t.Errorf("FreeModules() = %v, want [M3]", free)
	}
}

func TestCanonicalIsDeterministic(t *testing.T) {
	build := func() *Netlist {
		n := NewNetlist()
		n.Modules["B"] = NewModule("B", 2, 3)
		n.Modules["A"] = NewModule("A", 1, 2)
		return n
	}

	a, b := build(), build()
	if !bytes.Equal(a.Canonical(), b.Canonical()) {
		t.Error("Canonical() should be deterministic")
	}

	// Solver state must not affect the canonical form
	b.Modules["A"].SetPosition(10, 20)
	b.Modules["A"].Rotate()
	if !bytes.Equal(a.Canonical(), b.Canonical()) {
		t.Error("Canonical() should ignore positions and rotation")
	}

	// Dimensions must affect it
	b.Modules["A"].W = 99
	if bytes.Equal(a.Canonical(), b.Canonical()) {
		t.Error("Canonical() should reflect dimension changes")
	}
}

func TestPlacementNormalize(t *testing.T) {
	p := &Placement{Modules: map[string]*Module{
		"A": {Name: "A", W: 10, H: 10, X: 5, Y: 3},
		"B": {Name: "B", W: 10, H: 10, X: 15, Y: 13},
	}}
	p.Normalize()

	if p.Modules["A"].X != 0 || p.Modules["A"].Y != 0 {
		t.Errorf("A = (%d,%d), want (0,0)", p.Modules["A"].X, p.Modules["A"].Y)
	}
	if p.Modules["B"].X != 10 || p.Modules["B"].Y != 10 {
		t.Errorf("B = (%d,%d), want (10,10)", p.Modules["B"].X, p.Modules["B"].Y)
	}
}

func TestPlacementBoundingArea(t *testing.T) {
	p := &Placement{Modules: map[string]*Module{
		"A": {Name: "A", W: 10, H: 20, X: 0, Y: 0},
		"B": {Name: "B", W: 10, H: 20, X: 10, Y: 0},
	}}
	if got := p.BoundingArea(); got != 400 {
		t.Errorf("BoundingArea() = %d, want 400", got)
	}

	empty := &Placement{Modules: map[string]*Module{}}
	if got := empty.BoundingArea(); got != 0 {
		t.Errorf("empty BoundingArea() = %d, want 0", got)
	}
}

func TestPlacementHasOverlaps(t *testing.T) {
	p := &Placement{Modules: map[string]*Module{
		"A": {Name: "A", W: 10, H: 10, X: 0, Y: 0},
		"B": {Name: "B", W: 10, H: 10, X: 10, Y: 0},
	}}
	if p.HasOverlaps() {
		t.Error("abutting modules should not overlap")
	}

	p.Modules["B"].X = 5
	if !p.HasOverlaps() {
		t.Error("intersecting modules should overlap")
	}
}
