package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments or
// tenants can share one backend.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "flowscope:staging:")
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

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(requestHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(requestHash, opts)
}

// SnapshotKey generates a prefixed snapshot key.
func (k *ScopedKeyer) SnapshotKey(sessionID string) string {
	return k.prefix + k.inner.SnapshotKey(sessionID)
}
