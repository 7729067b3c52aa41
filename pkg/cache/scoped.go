package cache

// ScopedKeyer wraps a Keyer with a prefix.
// Resolutions against different repository lists may see different
// descriptors for the same coordinate, so callers scope keys by a
// fingerprint of the repository list.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "repos:3f2a9c:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DescriptorKey generates a prefixed descriptor key.
func (k *ScopedKeyer) DescriptorKey(coord string) string {
	return k.prefix + k.inner.DescriptorKey(coord)
}
