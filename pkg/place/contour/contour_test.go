package contour

import (
	"reflect"
	"testing"
)

func TestAddAndHeightOver(t *testing.T) {
	c := New()

	if c.HeightOver(0, 10) != 0 {
		t.Error("empty contour should report height 0")
	}

	c.Add(0, 10, 5)
	if got := c.HeightOver(0, 10); got != 5 {
		t.Errorf("HeightOver = %d, want 5", got)
	}
	if got := c.HeightOver(10, 20); got != 0 {
		t.Errorf("HeightOver past the skyline = %d, want 0", got)
	}

	// Raise the middle; queries spanning it see the maximum
	c.Add(3, 7, 9)
	if got := c.HeightOver(0, 10); got != 9 {
		t.Errorf("HeightOver = %d, want 9", got)
	}
	if got := c.HeightOver(0, 3); got != 5 {
		t.Errorf("HeightOver left = %d, want 5", got)
	}
	if got := c.HeightOver(7, 10); got != 5 {
		t.Errorf("HeightOver right = %d, want 5", got)
	}
}

func TestAddClipsPartialOverlaps(t *testing.T) {
	c := New()
	c.Add(0, 10, 5)
	c.Add(5, 15, 8)

	want := []Segment{{0, 5, 5}, {5, 15, 8}}
	if got := c.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("Segments() = %v, want %v", got, want)
	}

	// Lower add also replaces: the new height applies to the whole interval
	c.Add(8, 12, 2)
	want = []Segment{{0, 5, 5}, {5, 8, 8}, {8, 12, 2}, {12, 15, 8}}
	if got := c.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("Segments() = %v, want %v", got, want)
	}
}

func TestAddCoalescesEqualHeights(t *testing.T) {
	c := New()
	c.Add(0, 5, 4)
	c.Add(5, 10, 4)

	want := []Segment{{0, 10, 4}}
	if got := c.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("Segments() = %v, want %v", got, want)
	}
}

func TestAddDegenerateIntervalIsIgnored(t *testing.T) {
	c := New()
	c.Add(5, 5, 10)
	c.Add(7, 3, 10)
	if !c.IsEmpty() {
		t.Errorf("Segments() = %v, want empty", c.Segments())
	}
}

func TestAddWithGap(t *testing.T) {
	c := New()
	c.Add(0, 5, 3)
	c.Add(10, 15, 7)

	want := []Segment{{0, 5, 3}, {10, 15, 7}}
	if got := c.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("Segments() = %v, want %v", got, want)
	}
	// The gap reads as height 0
	if got := c.HeightOver(5, 10); got != 0 {
		t.Errorf("HeightOver gap = %d, want 0", got)
	}
}

func TestMerge(t *testing.T) {
	a := New()
	a.Add(0, 10, 5)

	b := New()
	b.Add(5, 15, 8)

	a.Merge(b)
	want := []Segment{{0, 5, 5}, {5, 15, 8}}
	if got := a.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("merged = %v, want %v", got, want)
	}

	// Merging into an empty contour copies the other
	c := New()
	c.Merge(b)
	if !reflect.DeepEqual(c.Segments(), b.Segments()) {
		t.Errorf("merge into empty = %v, want %v", c.Segments(), b.Segments())
	}

	// Merging nil or empty is a no-op
	c.Merge(nil)
	c.Merge(New())
	if !reflect.DeepEqual(c.Segments(), b.Segments()) {
		t.Error("merge with empty should not change the contour")
	}
}

func TestMaxCoordinateAndHeight(t *testing.T) {
	c := New()
	if c.MaxCoordinate() != 0 || c.MaxHeight() != 0 {
		t.Error("empty contour extremes should be 0")
	}

	c.Add(0, 10, 5)
	c.Add(10, 20, 12)
	if got := c.MaxCoordinate(); got != 20 {
		t.Errorf("MaxCoordinate() = %d, want 20", got)
	}
	if got := c.MaxHeight(); got != 12 {
		t.Errorf("MaxHeight() = %d, want 12", got)
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Add(0, 10, 5)
	c.Clear()
	if !c.IsEmpty() {
		t.Error("Clear() should remove all segments")
	}
}

func TestClone(t *testing.T) {
	c := New()
	c.Add(0, 10, 5)

	d := c.Clone()
	d.Add(0, 10, 9)

	if got := c.HeightOver(0, 10); got != 5 {
		t.Errorf("original mutated through clone: height = %d, want 5", got)
	}
}

func TestPackingSequence(t *testing.T) {
	// Place three blocks the way the packer does: query then raise.
	c := New()

	// 4x3 at x=0
	if y := c.HeightOver(0, 4); y != 0 {
		t.Fatalf("first block y = %d, want 0", y)
	}
	c.Add(0, 4, 3)

	// 4x5 at x=4 (left child: abuts on the right)
	if y := c.HeightOver(4, 8); y != 0 {
		t.Fatalf("second block y = %d, want 0", y)
	}
	c.Add(4, 8, 5)

	// 6x2 at x=2 (right child: stacks over both)
	y := c.HeightOver(2, 8)
	if y != 5 {
		t.Fatalf("third block y = %d, want 5", y)
	}
	c.Add(2, 8, y+2)

	want := []Segment{{0, 2, 3}, {2, 8, 7}}
	if got := c.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("final skyline = %v, want %v", got, want)
	}
}
