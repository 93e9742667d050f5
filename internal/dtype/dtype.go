// Package dtype defines the element types arrays can carry and the
// process-wide registry that maps canonical names to type descriptors.
package dtype

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDType is returned by registry lookups for unregistered names.
	ErrUnknownDType = errors.New("unknown dtype")

	// ErrInvalidPacking is returned when an element count does not align to
	// a block-encoded dtype's group size.
	ErrInvalidPacking = errors.New("invalid packing")
)

// DType describes one element kind: its canonical name, bit width and,
// for block-encoded kinds, the fixed group geometry. Descriptors are
// immutable singletons; compare them by pointer identity.
type DType struct {
	name       string
	bits       int // bits per element; may be sub-byte (e.g. 4 for int4)
	blockSize  int // elements per encoded block; 1 for scalar kinds
	blockBytes int // encoded bytes per block; only meaningful when blockSize > 1
}

// Scalar element kinds.
var (
	Bool       = &DType{name: "bool", bits: 8, blockSize: 1}
	Int8       = &DType{name: "int8", bits: 8, blockSize: 1}
	Int16      = &DType{name: "int16", bits: 16, blockSize: 1}
	Int32      = &DType{name: "int32", bits: 32, blockSize: 1}
	Int64      = &DType{name: "int64", bits: 64, blockSize: 1}
	Uint8      = &DType{name: "uint8", bits: 8, blockSize: 1}
	Uint16     = &DType{name: "uint16", bits: 16, blockSize: 1}
	Uint32     = &DType{name: "uint32", bits: 32, blockSize: 1}
	Uint64     = &DType{name: "uint64", bits: 64, blockSize: 1}
	Float16    = &DType{name: "float16", bits: 16, blockSize: 1}
	BFloat16   = &DType{name: "bfloat16", bits: 16, blockSize: 1}
	Float32    = &DType{name: "float32", bits: 32, blockSize: 1}
	Float64    = &DType{name: "float64", bits: 64, blockSize: 1}
	Complex64  = &DType{name: "complex64", bits: 64, blockSize: 1}
	Complex128 = &DType{name: "complex128", bits: 128, blockSize: 1}

	// Opaque is a raw byte blob with no numeric interpretation.
	Opaque = &DType{name: "opaque8", bits: 8, blockSize: 1}
)

// Sub-byte and block-quantized kinds. Block geometry follows the ggml
// quantization formats: q4_0/q8_0 pack 32 elements per block with a
// float16 scale prefix, the K-quants pack 256.
var (
	Int4 = &DType{name: "int4", bits: 4, blockSize: 1}
	Q4_0 = &DType{name: "q4_0", bits: 4, blockSize: 32, blockBytes: 2 + 16}
	Q8_0 = &DType{name: "q8_0", bits: 8, blockSize: 32, blockBytes: 2 + 32}
	Q4_K = &DType{name: "q4_k", bits: 4, blockSize: 256, blockBytes: 2 + 2 + 12 + 128}
	Q6_K = &DType{name: "q6_k", bits: 6, blockSize: 256, blockBytes: 128 + 64 + 16 + 2}
)

// NewScalar builds a descriptor for a scalar kind of the given bit
// width. Panics on an empty name or non-positive width.
func NewScalar(name string, bits int) *DType {
	if name == "" || bits <= 0 {
		panic(fmt.Sprintf("dtype: invalid scalar kind %q/%d bits", name, bits))
	}
	return &DType{name: name, bits: bits, blockSize: 1}
}

// NewBlock builds a descriptor for a block-encoded kind: blockSize
// elements encode into blockBytes bytes. Panics on invalid geometry.
func NewBlock(name string, bits, blockSize, blockBytes int) *DType {
	if name == "" || bits <= 0 || blockSize <= 1 || blockBytes <= 0 {
		panic(fmt.Sprintf("dtype: invalid block kind %q/%d bits/%d elems/%d bytes",
			name, bits, blockSize, blockBytes))
	}
	return &DType{name: name, bits: bits, blockSize: blockSize, blockBytes: blockBytes}
}

// Name returns the canonical registry name.
func (d *DType) Name() string {
	return d.name
}

// BitWidth returns the bits occupied by one element. For block kinds this
// is the nominal per-element width, not the amortized encoded width.
func (d *DType) BitWidth() int {
	return d.bits
}

// BlockSize returns the number of elements per encoded group.
// Scalar kinds return 1.
func (d *DType) BlockSize() int {
	return d.blockSize
}

// BlockBytes returns the encoded byte size of one block. Scalar kinds
// return 0.
func (d *DType) BlockBytes() int {
	if d.blockSize <= 1 {
		return 0
	}
	return d.blockBytes
}

// IsBlock reports whether the dtype is a block/group-encoded format.
func (d *DType) IsBlock() bool {
	return d.blockSize > 1
}

// IsPacked reports whether elements do not occupy a whole number of
// bytes each, either through sub-byte widths or block encoding.
func (d *DType) IsPacked() bool {
	return d.bits%8 != 0 || d.blockSize > 1
}

// ElemBytes returns the byte size of a single element for byte-aligned
// scalar kinds, and 0 for packed kinds (which have no per-element size).
func (d *DType) ElemBytes() int {
	if d.IsPacked() {
		return 0
	}
	return d.bits / 8
}

// SizeInBytes computes the exact storage footprint of count elements.
//
// Sub-byte widths round up to whole bytes (a 4-bit type over 3 elements
// occupies 2 bytes). Block-encoded kinds require count to be a multiple
// of the block size and fail with ErrInvalidPacking otherwise.
func (d *DType) SizeInBytes(count int) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("%w: negative element count %d", ErrInvalidPacking, count)
	}
	if d.blockSize > 1 {
		if count%d.blockSize != 0 {
			return 0, fmt.Errorf("%w: count %d not a multiple of %s block size %d",
				ErrInvalidPacking, count, d.name, d.blockSize)
		}
		return count / d.blockSize * d.blockBytes, nil
	}
	return (count*d.bits + 7) / 8, nil
}

// String implements fmt.Stringer.
func (d *DType) String() string {
	return d.name
}
