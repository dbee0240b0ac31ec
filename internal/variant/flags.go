package variant

// Flags is an insertion-ordered set of flag names.
type Flags []string

// Has reports whether flag is present.
func (f Flags) Has(flag string) bool {
	for _, x := range f {
		if x == flag {
			return true
		}
	}
	return false
}

// Add appends flag unless it is already present.
func (f *Flags) Add(flag string) {
	if !f.Has(flag) {
		*f = append(*f, flag)
	}
}

// Union returns the flags of f followed by those of other not already in f.
func (f Flags) Union(other Flags) Flags {
	out := make(Flags, 0, len(f)+len(other))
	for _, x := range f {
		out.Add(x)
	}
	for _, x := range other {
		out.Add(x)
	}
	return out
}
