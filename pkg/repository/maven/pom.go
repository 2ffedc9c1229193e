package maven

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/matzehuels/depresolve/pkg/artifact"
	errs "github.com/matzehuels/depresolve/pkg/errors"
)

type pomProject struct {
	GroupID      string          `xml:"groupId"`
	ArtifactID   string          `xml:"artifactId"`
	Version      string          `xml:"version"`
	Packaging    string          `xml:"packaging"`
	Name         string          `xml:"name"`
	Description  string          `xml:"description"`
	URL          string          `xml:"url"`
	Parent       *pomParent      `xml:"parent"`
	Properties   properties      `xml:"properties"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`

	DependencyManagement struct {
		Dependencies []pomDependency `xml:"dependencies>dependency"`
	} `xml:"dependencyManagement"`

	Repositories []pomRepository `xml:"repositories>repository"`

	DistributionManagement struct {
		Relocation *pomRelocation `xml:"relocation"`
	} `xml:"distributionManagement"`
}

type pomParent struct {
	GroupID      string  `xml:"groupId"`
	ArtifactID   string  `xml:"artifactId"`
	Version      string  `xml:"version"`
	RelativePath *string `xml:"relativePath"`
}

type pomDependency struct {
	GroupID    string         `xml:"groupId"`
	ArtifactID string         `xml:"artifactId"`
	Version    string         `xml:"version"`
	Type       string         `xml:"type"`
	Classifier string         `xml:"classifier"`
	Scope      string         `xml:"scope"`
	Optional   string         `xml:"optional"`
	Exclusions []pomExclusion `xml:"exclusions>exclusion"`
}

type pomExclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

type pomRepository struct {
	ID  string `xml:"id"`
	URL string `xml:"url"`
}

type pomRelocation struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// properties decodes the free-form <properties> element.
type properties map[string]string

func (p *properties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	m := make(properties)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var v string
			if err := d.DecodeElement(&v, &t); err != nil {
				return err
			}
			m[t.Name.Local] = strings.TrimSpace(v)
		case xml.EndElement:
			*p = m
			return nil
		}
	}
}

func parsePOM(data []byte) (*pomProject, error) {
	var p pomProject
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&p); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse pom")
	}
	p.trim()
	return &p, nil
}

func (p *pomProject) trim() {
	p.GroupID = strings.TrimSpace(p.GroupID)
	p.ArtifactID = strings.TrimSpace(p.ArtifactID)
	p.Version = strings.TrimSpace(p.Version)
	p.Packaging = strings.TrimSpace(p.Packaging)
	if p.Parent != nil {
		p.Parent.GroupID = strings.TrimSpace(p.Parent.GroupID)
		p.Parent.ArtifactID = strings.TrimSpace(p.Parent.ArtifactID)
		p.Parent.Version = strings.TrimSpace(p.Parent.Version)
	}
}

// coordinate returns the POM's own coordinate, inheriting groupId and
// version from the parent declaration.
func (p *pomProject) coordinate() artifact.Coordinate {
	c := artifact.Coordinate{GroupID: p.GroupID, ArtifactID: p.ArtifactID, Version: p.Version, Extension: "pom"}
	if p.Parent != nil {
		if c.GroupID == "" {
			c.GroupID = p.Parent.GroupID
		}
		if c.Version == "" {
			c.Version = p.Parent.Version
		}
	}
	return c
}

func (p *pomParent) coordinate() artifact.Coordinate {
	return artifact.Coordinate{GroupID: p.GroupID, ArtifactID: p.ArtifactID, Version: p.Version, Extension: "pom"}
}

var propertyRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolator expands ${name} references.
type interpolator map[string]string

func newInterpolator(props ...map[string]string) interpolator {
	in := make(interpolator)
	for _, p := range props {
		maps.Copy(in, p)
	}
	return in
}

// expand replaces every known reference in s. References may nest; expansion
// stops after a fixed number of rounds to break reference cycles.
func (in interpolator) expand(s string) string {
	for range 8 {
		if !strings.Contains(s, "${") {
			return s
		}
		next := propertyRef.ReplaceAllStringFunc(s, func(ref string) string {
			if v, ok := in[ref[2:len(ref)-1]]; ok {
				return v
			}
			return ref
		})
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func unresolved(s string) bool { return strings.Contains(s, "${") }

// dependency converts a POM dependency to an artifact dependency after
// interpolation.
func (in interpolator) dependency(d pomDependency) (artifact.Dependency, error) {
	g := in.expand(strings.TrimSpace(d.GroupID))
	a := in.expand(strings.TrimSpace(d.ArtifactID))
	v := in.expand(strings.TrimSpace(d.Version))
	typ := in.expand(strings.TrimSpace(d.Type))
	cls := in.expand(strings.TrimSpace(d.Classifier))
	scope := in.expand(strings.TrimSpace(d.Scope))
	optional := in.expand(strings.TrimSpace(d.Optional))

	for _, s := range []string{g, a, v, typ, cls, scope} {
		if unresolved(s) {
			return artifact.Dependency{}, errs.New(errs.ErrCodeInvalidInput,
				"dependency %s:%s: unresolved property in %q", g, a, s)
		}
	}
	if g == "" || a == "" {
		return artifact.Dependency{}, errs.New(errs.ErrCodeInvalidInput, "dependency %s:%s: missing groupId or artifactId", g, a)
	}

	ext, cls := typeExtension(typ, cls)
	dep := artifact.Dependency{
		Artifact: artifact.Coordinate{GroupID: g, ArtifactID: a, Version: v, Extension: ext, Classifier: cls},
		Scope:    scope,
		Optional: strings.EqualFold(optional, "true"),
	}
	for _, e := range d.Exclusions {
		dep.Exclusions = append(dep.Exclusions, artifact.Exclusion{
			GroupID:    in.expand(strings.TrimSpace(e.GroupID)),
			ArtifactID: in.expand(strings.TrimSpace(e.ArtifactID)),
		})
	}
	return dep, nil
}

// typeExtension maps a dependency type to the file extension and default
// classifier of the referenced artifact.
func typeExtension(typ, classifier string) (string, string) {
	var ext, def string
	switch typ {
	case "", "jar", "bundle", "maven-plugin", "ejb":
	case "test-jar":
		def = "tests"
	case "ejb-client":
		def = "client"
	case "java-source":
		def = "sources"
	case "javadoc":
		def = "javadoc"
	default:
		ext = typ
	}
	if classifier == "" {
		classifier = def
	}
	return ext, classifier
}

// isImport reports whether a managed dependency imports a BOM.
func isImport(d artifact.Dependency) bool {
	return d.Scope == artifact.ScopeImport && d.Artifact.Extension == "pom"
}

func (r *pomRelocation) target(from artifact.Coordinate, in interpolator) artifact.Coordinate {
	to := from
	if g := in.expand(strings.TrimSpace(r.GroupID)); g != "" {
		to.GroupID = g
	}
	if a := in.expand(strings.TrimSpace(r.ArtifactID)); a != "" {
		to.ArtifactID = a
	}
	if v := in.expand(strings.TrimSpace(r.Version)); v != "" {
		to.Version = v
	}
	return to
}

func (p *pomProject) String() string {
	return fmt.Sprintf("%s:%s:%s", p.GroupID, p.ArtifactID, p.Version)
}
