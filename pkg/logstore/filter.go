package logstore

// Filter maps entry kinds to visibility. It is a view-layer reduction over the
// store: applying it never mutates or reorders stored entries. A kind missing
// from the map is visible.
type Filter map[Kind]bool

// NewFilter returns a filter with every kind visible.
func NewFilter() Filter {
	f := make(Filter, len(Kinds))
	for _, k := range Kinds {
		f[k] = true
	}
	return f
}

// Enabled reports whether entries of the given kind are visible.
func (f Filter) Enabled(kind Kind) bool {
	v, ok := f[kind]
	return !ok || v
}

// Toggle flips visibility for the given kind.
func (f Filter) Toggle(kind Kind) {
	f[kind] = !f.Enabled(kind)
}

// Apply returns the subset of entries whose kind is visible, in order.
func (f Filter) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Enabled(e.Kind) {
			out = append(out, e)
		}
	}
	return out
}
