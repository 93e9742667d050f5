package dtype

import (
	"errors"
	"testing"
)

func TestScalarSizes(t *testing.T) {
	tests := []struct {
		dt    *DType
		count int
		bytes int
	}{
		{Float32, 6, 24},
		{Float64, 3, 24},
		{Int64, 2, 16},
		{Uint8, 7, 7},
		{Bool, 5, 5},
		{Float16, 4, 8},
		{BFloat16, 4, 8},
		{Complex128, 2, 32},
		{Float32, 0, 0},
	}

	for _, tt := range tests {
		got, err := tt.dt.SizeInBytes(tt.count)
		if err != nil {
			t.Fatalf("%s.SizeInBytes(%d): %v", tt.dt, tt.count, err)
		}
		if got != tt.bytes {
			t.Errorf("%s.SizeInBytes(%d) = %d, want %d", tt.dt, tt.count, got, tt.bytes)
		}
	}
}

func TestSubByteCeilingPacking(t *testing.T) {
	// 4-bit elements pack two per byte with ceiling rounding.
	want := map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3}
	for count, bytes := range want {
		got, err := Int4.SizeInBytes(count)
		if err != nil {
			t.Fatalf("int4.SizeInBytes(%d): %v", count, err)
		}
		if got != bytes {
			t.Errorf("int4.SizeInBytes(%d) = %d, want %d", count, got, bytes)
		}
	}
}

func TestBlockQuantSizes(t *testing.T) {
	tests := []struct {
		dt    *DType
		count int
		bytes int
	}{
		{Q4_0, 32, 18},
		{Q4_0, 64, 36},
		{Q8_0, 32, 34},
		{Q4_K, 256, 144},
		{Q6_K, 512, 420},
	}
	for _, tt := range tests {
		got, err := tt.dt.SizeInBytes(tt.count)
		if err != nil {
			t.Fatalf("%s.SizeInBytes(%d): %v", tt.dt, tt.count, err)
		}
		if got != tt.bytes {
			t.Errorf("%s.SizeInBytes(%d) = %d, want %d", tt.dt, tt.count, got, tt.bytes)
		}
	}
}

func TestBlockQuantRejectsMisalignedCounts(t *testing.T) {
	for _, count := range []int{1, 31, 33, 255} {
		if _, err := Q4_0.SizeInBytes(count); !errors.Is(err, ErrInvalidPacking) {
			t.Errorf("q4_0.SizeInBytes(%d) err = %v, want ErrInvalidPacking", count, err)
		}
	}
	if _, err := Q4_K.SizeInBytes(128); !errors.Is(err, ErrInvalidPacking) {
		t.Errorf("q4_k.SizeInBytes(128) should fail on partial block")
	}
	if _, err := Float32.SizeInBytes(-1); !errors.Is(err, ErrInvalidPacking) {
		t.Errorf("negative count should fail")
	}
}

func TestPackedPredicates(t *testing.T) {
	if Float32.IsPacked() || Float32.IsBlock() {
		t.Error("float32 should not be packed")
	}
	if !Int4.IsPacked() || Int4.IsBlock() {
		t.Error("int4 should be packed but not block-encoded")
	}
	if !Q4_K.IsPacked() || !Q4_K.IsBlock() {
		t.Error("q4_k should be packed and block-encoded")
	}
	if Float32.ElemBytes() != 4 {
		t.Errorf("float32 ElemBytes = %d, want 4", Float32.ElemBytes())
	}
	if Int4.ElemBytes() != 0 {
		t.Errorf("int4 ElemBytes = %d, want 0 (no per-element size)", Int4.ElemBytes())
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"float32", "bfloat16", "q4_0", "int4", "opaque8"} {
		dt, err := r.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if dt.Name() != name {
			t.Errorf("Lookup(%q).Name() = %q", name, dt.Name())
		}
	}

	if _, err := r.Lookup("float128"); !errors.Is(err, ErrUnknownDType) {
		t.Errorf("Lookup(float128) err = %v, want ErrUnknownDType", err)
	}
}

func TestRegistryIdentity(t *testing.T) {
	// Descriptors are singletons; both registries hand out the same pointer.
	a, _ := NewRegistry().Lookup("float32")
	b, _ := Default.Lookup("float32")
	if a != b || a != Float32 {
		t.Error("float32 descriptor is not a singleton")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register(&DType{name: "float32", bits: 32, blockSize: 1})
}

func TestRegisterCustomKind(t *testing.T) {
	r := NewRegistry()
	custom := NewBlock("u4x8", 4, 8, 4)
	r.Register(custom)

	dt, err := r.Lookup("u4x8")
	if err != nil {
		t.Fatalf("Lookup(u4x8): %v", err)
	}
	if dt != custom {
		t.Error("custom kind not returned by identity")
	}
	if n, _ := dt.SizeInBytes(16); n != 8 {
		t.Errorf("u4x8.SizeInBytes(16) = %d, want 8", n)
	}
}

func TestFloat16RoundTrip(t *testing.T) {
	vals := []float32{0, 1, -2.5, 1024, 0.5}
	raw := EncodeFloat16(vals)
	if len(raw) != len(vals)*2 {
		t.Fatalf("encoded %d bytes, want %d", len(raw), len(vals)*2)
	}
	back := DecodeFloat16(raw)
	for i := range vals {
		if back[i] != vals[i] {
			t.Errorf("float16 round trip [%d]: %v != %v", i, back[i], vals[i])
		}
	}
}

func TestBFloat16RoundTrip(t *testing.T) {
	vals := []float32{0, 1, -2, 256}
	back := DecodeBFloat16(EncodeBFloat16(vals))
	for i := range vals {
		if back[i] != vals[i] {
			t.Errorf("bfloat16 round trip [%d]: %v != %v", i, back[i], vals[i])
		}
	}
}
