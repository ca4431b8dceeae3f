package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when one Redis or Mongo instance backs several deployments
// that need separate cache namespaces.
//
// Example usage:
//
//	// Per-project keys
//	projKeyer := NewScopedKeyer(NewDefaultKeyer(), "proj:adc12:")
//
//	// Global keys
//	globalKeyer := NewDefaultKeyer()
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

// PlacementKey generates a prefixed key for placement caching.
func (k *ScopedKeyer) PlacementKey(inputHash string, opts PlacementKeyOpts) string {
	return k.prefix + k.inner.PlacementKey(inputHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(placementHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(placementHash, opts)
}
