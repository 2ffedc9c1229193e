package resolve

import (
	"context"
	"errors"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/session"
	"github.com/matzehuels/depresolve/pkg/trace"
)

// DescriptorRequest asks for the declared dependencies of an artifact.
type DescriptorRequest struct {
	Artifact     artifact.Coordinate
	Repositories []repository.RemoteRepository
	Context      string
	Trace        *trace.RequestTrace
}

// DescriptorResult is a parsed artifact descriptor (a POM).
type DescriptorResult struct {
	Request DescriptorRequest

	// Artifact is the described artifact after following relocations.
	Artifact    artifact.Coordinate
	Relocations []artifact.Coordinate

	Dependencies []artifact.Dependency
	Managed      []artifact.Dependency

	// Repositories declared by the descriptor.
	Repositories []repository.RemoteRepository
	Properties   map[string]string

	// Repository is the ID of the repository that served the descriptor.
	Repository string
	Exceptions []error
}

// DescriptorReader reads artifact descriptors.
type DescriptorReader interface {
	ReadArtifactDescriptor(ctx context.Context, sess *session.Session, req DescriptorRequest) (*DescriptorResult, error)
}

// MetadataRequest asks for the version metadata of groupID:artifactID.
type MetadataRequest struct {
	GroupID    string
	ArtifactID string

	// Repository limits the query to one repository. Nil means the
	// session's remotes.
	Repository *repository.RemoteRepository
	Trace      *trace.RequestTrace
}

// MetadataResult is the metadata served by one repository.
type MetadataResult struct {
	Request     MetadataRequest
	Repository  string
	Versions    []string
	Latest      string
	Release     string
	LastUpdated string
	Exception   error
}

// IsResolved reports whether metadata was found.
func (r *MetadataResult) IsResolved() bool { return r != nil && r.Exception == nil }

// MetadataResolver fetches repository metadata. It returns one result per
// request and repository; failures are recorded on the results.
type MetadataResolver interface {
	ResolveMetadata(ctx context.Context, sess *session.Session, reqs []MetadataRequest) []*MetadataResult
}

// Version keywords understood by VersionResolver.
const (
	Latest  = "LATEST"
	Release = "RELEASE"
)

// VersionRequest asks to turn a meta version (LATEST, RELEASE) into a
// concrete version. Concrete versions resolve to themselves.
type VersionRequest struct {
	Artifact     artifact.Coordinate
	Repositories []repository.RemoteRepository
	Trace        *trace.RequestTrace
}

// VersionResult is the outcome of a VersionRequest.
type VersionResult struct {
	Request    VersionRequest
	Version    string
	Repository string
	Exceptions []error
}

// VersionResolver resolves meta versions.
type VersionResolver interface {
	ResolveVersion(ctx context.Context, sess *session.Session, req VersionRequest) (*VersionResult, error)
}

// VersionRangeRequest asks for every available version matching the range
// in Artifact.Version, e.g. "[1.0,2.0)".
type VersionRangeRequest struct {
	Artifact     artifact.Coordinate
	Repositories []repository.RemoteRepository
	Trace        *trace.RequestTrace
}

// VersionRangeResult lists the matching versions in ascending order.
type VersionRangeResult struct {
	Request  VersionRangeRequest
	Versions []string

	// Repositories maps each version to the ID of a repository serving it.
	Repositories map[string]string
	Exceptions   []error
}

// Highest returns the highest matching version.
func (r *VersionRangeResult) Highest() (string, bool) {
	if r == nil || len(r.Versions) == 0 {
		return "", false
	}
	return r.Versions[len(r.Versions)-1], true
}

// Err joins the result's exceptions.
func (r *VersionRangeResult) Err() error { return errors.Join(r.Exceptions...) }

// VersionRangeResolver expands version ranges.
type VersionRangeResolver interface {
	ResolveVersionRange(ctx context.Context, sess *session.Session, req VersionRangeRequest) (*VersionRangeResult, error)
}
