package cache

// Keyer builds cache keys.
type Keyer interface {
	// LayoutKey returns the key for a layout response computed by engine for a
	// request with the given hash.
	LayoutKey(requestHash string, opts LayoutKeyOpts) string

	// SnapshotKey returns the key under which a viewer session is persisted.
	SnapshotKey(sessionID string) string
}

// LayoutKeyOpts identify the engine configuration that produced a layout.
type LayoutKeyOpts struct {
	Engine   string `json:"engine"`
	Settings string `json:"settings,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(requestHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", requestHash, opts)
}

// SnapshotKey implements Keyer.
func (DefaultKeyer) SnapshotKey(sessionID string) string {
	return "snapshot:" + sessionID
}
