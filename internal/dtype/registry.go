package dtype

import "fmt"

// Registry is an append-only table of DType descriptors keyed by
// canonical name. It is built once during startup and read-only
// afterwards; Register must not race with Lookup.
type Registry struct {
	byName map[string]*DType
}

// builtins lists every descriptor a fresh registry starts with.
var builtins = []*DType{
	Bool, Int8, Int16, Int32, Int64,
	Uint8, Uint16, Uint32, Uint64,
	Float16, BFloat16, Float32, Float64,
	Complex64, Complex128, Opaque,
	Int4, Q4_0, Q8_0, Q4_K, Q6_K,
}

// NewRegistry returns a registry pre-populated with the builtin kinds.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*DType, len(builtins))}
	for _, d := range builtins {
		r.byName[d.name] = d
	}
	return r
}

// Register adds a descriptor to the table. Registering a name twice is a
// programming error and panics, matching the append-only contract.
func (r *Registry) Register(d *DType) {
	if _, ok := r.byName[d.name]; ok {
		panic(fmt.Sprintf("dtype: %q already registered", d.name))
	}
	r.byName[d.name] = d
}

// Lookup resolves a canonical name to its descriptor.
func (r *Registry) Lookup(name string) (*DType, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDType, name)
	}
	return d, nil
}

// All returns the registered descriptors in no particular order.
func (r *Registry) All() []*DType {
	out := make([]*DType, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	return out
}

// Default is the process-wide registry, constructed once at package
// initialization. Consumers that need an isolated table (tests,
// embedders with custom kinds) should build their own with NewRegistry.
var Default = NewRegistry()
