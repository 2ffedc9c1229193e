package cache

import "github.com/matzehuels/depresolve/pkg/artifact"

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one Redis instance.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "ci:")
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
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// HTTPKey implements Keyer.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// DescriptorKey implements Keyer.
func (k *ScopedKeyer) DescriptorKey(repoURL string, c artifact.Coordinate) string {
	return k.prefix + k.inner.DescriptorKey(repoURL, c)
}

// MetadataKey implements Keyer.
func (k *ScopedKeyer) MetadataKey(repoURL, groupID, artifactID string) string {
	return k.prefix + k.inner.MetadataKey(repoURL, groupID, artifactID)
}
