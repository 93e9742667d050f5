// Package shape describes array geometry: per-axis extents and the
// linear layout metadata (element counts, row-major strides) derived
// from them. It is pure metadata with no allocation side effects.
package shape

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape is returned for negative extents or operations on
	// dims that still carry unbound dynamic axes.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrShapeMismatch is returned when a reshape would change the total
	// element count.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrNotContiguous is returned when an operation requires default
	// row-major layout but the supplied strides differ.
	ErrNotContiguous = errors.New("not contiguous")
)

// Dynamic marks an extent that is unbound until a binding boundary
// (allocation) fills it in.
const Dynamic = -1

// Dims is an ordered sequence of per-axis extents. Rank 0 is a scalar.
type Dims []int

// Make validates extents and returns them as Dims. Extents must be
// non-negative; Dynamic is permitted and must be bound before use.
func Make(extents ...int) (Dims, error) {
	for i, e := range extents {
		if e < 0 && e != Dynamic {
			return nil, fmt.Errorf("%w: negative extent %d at axis %d", ErrInvalidShape, e, i)
		}
	}
	d := make(Dims, len(extents))
	copy(d, extents)
	return d, nil
}

// Rank returns the number of axes.
func (d Dims) Rank() int {
	return len(d)
}

// Concrete reports whether every extent is bound.
func (d Dims) Concrete() bool {
	for _, e := range d {
		if e == Dynamic {
			return false
		}
	}
	return true
}

// Bind returns a copy with the dynamic axes filled, in order, from
// values. It fails if the number of values does not match the number of
// unbound axes or any value is negative.
func (d Dims) Bind(values ...int) (Dims, error) {
	out := d.Clone()
	j := 0
	for i, e := range out {
		if e != Dynamic {
			continue
		}
		if j >= len(values) {
			return nil, fmt.Errorf("%w: %d dynamic axes, %d bind values", ErrInvalidShape, j+1, len(values))
		}
		if values[j] < 0 {
			return nil, fmt.Errorf("%w: negative bind value %d for axis %d", ErrInvalidShape, values[j], i)
		}
		out[i] = values[j]
		j++
	}
	if j != len(values) {
		return nil, fmt.Errorf("%w: %d dynamic axes, %d bind values", ErrInvalidShape, j, len(values))
	}
	return out, nil
}

// ElementCount returns the product of extents: 0 if any extent is 0,
// 1 for rank 0. It fails on unbound dynamic axes.
func (d Dims) ElementCount() (int, error) {
	n := 1
	for i, e := range d {
		if e == Dynamic {
			return 0, fmt.Errorf("%w: axis %d is dynamic", ErrInvalidShape, i)
		}
		n *= e
	}
	return n, nil
}

// Equal checks extent-wise equality.
func (d Dims) Equal(other Dims) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the dims.
func (d Dims) Clone() Dims {
	out := make(Dims, len(d))
	copy(out, d)
	return out
}

// DefaultStrides computes row-major element strides: the last axis
// varies fastest with stride 1.
func (d Dims) DefaultStrides() []int {
	strides := make([]int, len(d))
	if len(d) == 0 {
		return strides
	}
	strides[len(d)-1] = 1
	for i := len(d) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * d[i+1]
	}
	return strides
}

// IsContiguous reports whether strides equal the default row-major
// strides for these dims. Axes of extent 1 match any stride since they
// contribute nothing to addressing.
func (d Dims) IsContiguous(strides []int) bool {
	if len(strides) != len(d) {
		return false
	}
	def := d.DefaultStrides()
	for i := range d {
		if d[i] != 1 && strides[i] != def[i] {
			return false
		}
	}
	return true
}

// CheckReshape verifies that reshaping to target preserves the element
// count. Contiguity of the source layout is the caller's check.
func (d Dims) CheckReshape(target Dims) error {
	from, err := d.ElementCount()
	if err != nil {
		return err
	}
	to, err := target.ElementCount()
	if err != nil {
		return err
	}
	if from != to {
		return fmt.Errorf("%w: cannot reshape %v (%d elements) to %v (%d elements)",
			ErrShapeMismatch, d, from, target, to)
	}
	return nil
}

// String implements fmt.Stringer.
func (d Dims) String() string {
	return fmt.Sprintf("%v", []int(d))
}
