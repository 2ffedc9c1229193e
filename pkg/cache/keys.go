package cache

import "github.com/matzehuels/depresolve/pkg/artifact"

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey is the key for a raw HTTP response body.
	HTTPKey(namespace, key string) string

	// DescriptorKey is the key for the parsed descriptor of c fetched from
	// the repository at repoURL.
	DescriptorKey(repoURL string, c artifact.Coordinate) string

	// MetadataKey is the key for the version metadata of groupID:artifactID.
	MetadataKey(repoURL, groupID, artifactID string) string
}

// DefaultKeyer produces human-readable prefixes followed by a hash of the
// identifying parts.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// DescriptorKey returns "descriptor:<hash>".
func (DefaultKeyer) DescriptorKey(repoURL string, c artifact.Coordinate) string {
	return hashKey("descriptor", repoURL, c.GroupID, c.ArtifactID, c.Version)
}

// MetadataKey returns "metadata:<hash>".
func (DefaultKeyer) MetadataKey(repoURL, groupID, artifactID string) string {
	return hashKey("metadata", repoURL, groupID, artifactID)
}
