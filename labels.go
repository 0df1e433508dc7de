package cvatyolo

// LabelRegistry assigns class indices to label names in order of first registration.
type LabelRegistry struct {
	names   []string
	indices map[string]int
}

// NewLabelRegistry returns an empty registry.
func NewLabelRegistry() *LabelRegistry {
	return &LabelRegistry{indices: make(map[string]int)}
}

// Register returns the index of name, assigning the next free index if name is new.
func (r *LabelRegistry) Register(name string) int {
	if i, ok := r.indices[name]; ok {
		return i
	}
	i := len(r.names)
	r.indices[name] = i
	r.names = append(r.names, name)
	return i
}

// Index returns the index of a registered name.
func (r *LabelRegistry) Index(name string) (int, bool) {
	i, ok := r.indices[name]
	return i, ok
}

// Names returns the registered names ordered by index.
func (r *LabelRegistry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of registered names.
func (r *LabelRegistry) Len() int {
	return len(r.names)
}
