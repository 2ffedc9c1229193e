package artifact

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/matzehuels/depresolve/pkg/errors"
)

// DefaultExtension is used when a coordinate omits the extension.
const DefaultExtension = "jar"

// Coordinate identifies an artifact in a repository.
//
// The zero value is not a valid coordinate; use [Parse] or fill GroupID,
// ArtifactID and Version explicitly.
type Coordinate struct {
	GroupID    string `json:"groupId" yaml:"groupId" bson:"group_id"`
	ArtifactID string `json:"artifactId" yaml:"artifactId" bson:"artifact_id"`
	Extension  string `json:"extension,omitempty" yaml:"extension,omitempty" bson:"extension,omitempty"`
	Classifier string `json:"classifier,omitempty" yaml:"classifier,omitempty" bson:"classifier,omitempty"`
	Version    string `json:"version" yaml:"version" bson:"version"`
}

// Parse parses "g:a:v", "g:a:ext:v" or "g:a:ext:classifier:v".
func Parse(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var c Coordinate
	switch len(parts) {
	case 3:
		c = Coordinate{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}
	case 4:
		c = Coordinate{GroupID: parts[0], ArtifactID: parts[1], Extension: parts[2], Version: parts[3]}
	case 5:
		c = Coordinate{GroupID: parts[0], ArtifactID: parts[1], Extension: parts[2], Classifier: parts[3], Version: parts[4]}
	default:
		return Coordinate{}, errors.New(errors.ErrCodeInvalidCoordinate,
			"invalid coordinate %q (expected <groupId>:<artifactId>[:<extension>[:<classifier>]]:<version>)", s)
	}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level variables.
func MustParse(s string) Coordinate {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks every segment of the coordinate.
func (c Coordinate) Validate() error {
	if err := errors.ValidateCoordinatePart("groupId", c.GroupID); err != nil {
		return err
	}
	if err := errors.ValidateCoordinatePart("artifactId", c.ArtifactID); err != nil {
		return err
	}
	if c.Extension != "" {
		if err := errors.ValidateCoordinatePart("extension", c.Extension); err != nil {
			return err
		}
	}
	if c.Classifier != "" {
		if err := errors.ValidateCoordinatePart("classifier", c.Classifier); err != nil {
			return err
		}
	}
	return errors.ValidateVersion(c.Version)
}

// Ext returns the extension, falling back to [DefaultExtension].
func (c Coordinate) Ext() string {
	if c.Extension == "" {
		return DefaultExtension
	}
	return c.Extension
}

// String renders the coordinate in its shortest unambiguous form.
func (c Coordinate) String() string {
	switch {
	case c.Classifier != "":
		return fmt.Sprintf("%s:%s:%s:%s:%s", c.GroupID, c.ArtifactID, c.Ext(), c.Classifier, c.Version)
	case c.Extension != "" && c.Extension != DefaultExtension:
		return fmt.Sprintf("%s:%s:%s:%s", c.GroupID, c.ArtifactID, c.Extension, c.Version)
	default:
		return fmt.Sprintf("%s:%s:%s", c.GroupID, c.ArtifactID, c.Version)
	}
}

// Key returns the versionless identity "g:a:ext:classifier".
func (c Coordinate) Key() string {
	return c.GroupID + ":" + c.ArtifactID + ":" + c.Ext() + ":" + c.Classifier
}

// Module returns "groupId:artifactId".
func (c Coordinate) Module() string {
	return c.GroupID + ":" + c.ArtifactID
}

// WithVersion returns a copy of c with the version replaced.
func (c Coordinate) WithVersion(v string) Coordinate {
	c.Version = v
	return c
}

// WithExtension returns a copy of c with the extension replaced. The
// classifier is cleared, matching how POM descriptors are addressed.
func (c Coordinate) WithExtension(ext string) Coordinate {
	c.Extension = ext
	c.Classifier = ""
	return c
}

// IsSnapshot reports whether the version is a SNAPSHOT version.
func (c Coordinate) IsSnapshot() bool {
	return strings.HasSuffix(c.Version, "-SNAPSHOT")
}

// FileName returns "artifactId-version[-classifier].ext".
func (c Coordinate) FileName() string {
	name := c.ArtifactID + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + c.Ext()
}

// Path returns the repository-relative path in the standard Maven layout:
// group/path/artifactId/version/artifactId-version[-classifier].ext
func (c Coordinate) Path() string {
	return strings.ReplaceAll(c.GroupID, ".", "/") + "/" + c.ArtifactID + "/" + c.Version + "/" + c.FileName()
}

// PackageURL returns the purl for the coordinate, e.g.
// "pkg:maven/org.example/lib@1.0?type=jar".
func (c Coordinate) PackageURL() string {
	q := url.Values{}
	q.Set("type", c.Ext())
	if c.Classifier != "" {
		q.Set("classifier", c.Classifier)
	}
	return fmt.Sprintf("pkg:maven/%s/%s@%s?%s",
		url.PathEscape(c.GroupID), url.PathEscape(c.ArtifactID), url.PathEscape(c.Version), q.Encode())
}
