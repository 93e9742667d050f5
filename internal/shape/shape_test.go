package shape

import (
	"errors"
	"testing"
)

func TestMakeRejectsNegativeExtents(t *testing.T) {
	if _, err := Make(2, -3); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Make(2,-3) err = %v, want ErrInvalidShape", err)
	}
	if _, err := Make(2, Dynamic, 4); err != nil {
		t.Errorf("Make with Dynamic should be allowed: %v", err)
	}
}

func TestElementCount(t *testing.T) {
	tests := []struct {
		extents []int
		count   int
	}{
		{[]int{}, 1}, // scalar
		{[]int{5}, 5},
		{[]int{2, 3}, 6},
		{[]int{2, 0, 4}, 0},
		{[]int{1, 1, 1}, 1},
		{[]int{3, 4, 5}, 60},
	}
	for _, tt := range tests {
		d, err := Make(tt.extents...)
		if err != nil {
			t.Fatalf("Make(%v): %v", tt.extents, err)
		}
		n, err := d.ElementCount()
		if err != nil {
			t.Fatalf("ElementCount(%v): %v", tt.extents, err)
		}
		if n != tt.count {
			t.Errorf("ElementCount(%v) = %d, want %d", tt.extents, n, tt.count)
		}
		// Zero iff some extent is zero.
		hasZero := false
		for _, e := range tt.extents {
			if e == 0 {
				hasZero = true
			}
		}
		if (n == 0) != hasZero {
			t.Errorf("ElementCount(%v) = %d, zero-ness disagrees with extents", tt.extents, n)
		}
	}
}

func TestDynamicDims(t *testing.T) {
	d, _ := Make(Dynamic, 3)
	if d.Concrete() {
		t.Error("dims with Dynamic should not be concrete")
	}
	if _, err := d.ElementCount(); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("ElementCount on dynamic dims err = %v, want ErrInvalidShape", err)
	}

	bound, err := d.Bind(4)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if !bound.Concrete() || !bound.Equal(Dims{4, 3}) {
		t.Errorf("Bind(4) = %v, want [4 3]", bound)
	}
	// Original dims are untouched.
	if d.Concrete() {
		t.Error("Bind must not mutate the receiver")
	}

	if _, err := d.Bind(); !errors.Is(err, ErrInvalidShape) {
		t.Error("Bind with too few values should fail")
	}
	if _, err := d.Bind(1, 2); !errors.Is(err, ErrInvalidShape) {
		t.Error("Bind with too many values should fail")
	}
	if _, err := d.Bind(-1); !errors.Is(err, ErrInvalidShape) {
		t.Error("Bind with negative value should fail")
	}
}

func TestDefaultStrides(t *testing.T) {
	tests := []struct {
		extents []int
		strides []int
	}{
		{[]int{}, []int{}},
		{[]int{7}, []int{1}},
		{[]int{2, 3}, []int{3, 1}},
		{[]int{2, 3, 4}, []int{12, 4, 1}},
	}
	for _, tt := range tests {
		d, _ := Make(tt.extents...)
		got := d.DefaultStrides()
		if len(got) != len(tt.strides) {
			t.Fatalf("DefaultStrides(%v) = %v, want %v", tt.extents, got, tt.strides)
		}
		for i := range got {
			if got[i] != tt.strides[i] {
				t.Errorf("DefaultStrides(%v) = %v, want %v", tt.extents, got, tt.strides)
				break
			}
		}
	}
}

func TestIsContiguous(t *testing.T) {
	d, _ := Make(2, 3)
	if !d.IsContiguous(d.DefaultStrides()) {
		t.Error("default strides should be contiguous")
	}
	// Transposed strides are not.
	if d.IsContiguous([]int{1, 2}) {
		t.Error("transposed strides should not be contiguous")
	}
	// Extent-1 axes match any stride.
	one, _ := Make(1, 3)
	if !one.IsContiguous([]int{99, 1}) {
		t.Error("stride on extent-1 axis should not matter")
	}
	if d.IsContiguous([]int{3}) {
		t.Error("rank mismatch should not be contiguous")
	}
}

func TestCheckReshape(t *testing.T) {
	d, _ := Make(2, 3)
	ok, _ := Make(3, 2)
	if err := d.CheckReshape(ok); err != nil {
		t.Errorf("reshape [2 3]->[3 2]: %v", err)
	}
	flat, _ := Make(6)
	if err := d.CheckReshape(flat); err != nil {
		t.Errorf("reshape [2 3]->[6]: %v", err)
	}
	bad, _ := Make(4, 2)
	if err := d.CheckReshape(bad); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("reshape [2 3]->[4 2] err = %v, want ErrShapeMismatch", err)
	}
}

func TestCloneAndEqual(t *testing.T) {
	d, _ := Make(2, 3)
	c := d.Clone()
	if !d.Equal(c) {
		t.Error("clone should equal source")
	}
	c[0] = 9
	if d[0] == 9 {
		t.Error("clone must not share backing with source")
	}
	if d.Equal(Dims{2}) || d.Equal(Dims{2, 4}) {
		t.Error("Equal false positives")
	}
}
