package cache

// Keyer builds cache keys.
type Keyer interface {
	// DepictionKey returns the key of the depiction of a structure.
	DepictionKey(structure string, opts DepictionKeyOpts) string
}

// DepictionKeyOpts holds the settings that change a depiction.
type DepictionKeyOpts struct {
	Engine  string `json:"engine"`  // renderer name, e.g. "neato"
	Version int    `json:"version"` // bumped when drawing style changes
}

// DefaultKeyer lays keys out as "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DepictionKey hashes the structure together with the options.
func (DefaultKeyer) DepictionKey(structure string, opts DepictionKeyOpts) string {
	return hashKey("depiction", structure, opts)
}

// ScopedKeyer prefixes every key of an inner Keyer, giving callers that
// share one backend separate namespaces.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer selects
// the default layout.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// DepictionKey returns the prefixed depiction key.
func (k *ScopedKeyer) DepictionKey(structure string, opts DepictionKeyOpts) string {
	return k.prefix + k.inner.DepictionKey(structure, opts)
}
