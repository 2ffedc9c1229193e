package artifact

import (
	"maps"
	"slices"
	"strings"
)

// Scope values understood by collection and filtering.
const (
	ScopeCompile  = "compile"
	ScopeProvided = "provided"
	ScopeRuntime  = "runtime"
	ScopeTest     = "test"
	ScopeSystem   = "system"
	ScopeImport   = "import"
)

// Artifact is a coordinate bound to a file on disk.
// File is empty until the artifact has been resolved.
type Artifact struct {
	Coordinate
	File       string            `json:"file,omitempty" yaml:"file,omitempty"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// New creates an unresolved artifact for c.
func New(c Coordinate) *Artifact {
	return &Artifact{Coordinate: c}
}

// WithFile returns a copy of a bound to file.
func (a *Artifact) WithFile(file string) *Artifact {
	return &Artifact{Coordinate: a.Coordinate, File: file, Properties: maps.Clone(a.Properties)}
}

// Exclusion removes matching transitive dependencies from a subtree.
// Empty fields and "*" match anything.
type Exclusion struct {
	GroupID    string `json:"groupId" yaml:"groupId"`
	ArtifactID string `json:"artifactId" yaml:"artifactId"`
	Classifier string `json:"classifier,omitempty" yaml:"classifier,omitempty"`
	Extension  string `json:"extension,omitempty" yaml:"extension,omitempty"`
}

// Matches reports whether the exclusion applies to c.
func (e Exclusion) Matches(c Coordinate) bool {
	return wildcard(e.GroupID, c.GroupID) &&
		wildcard(e.ArtifactID, c.ArtifactID) &&
		wildcard(e.Classifier, c.Classifier) &&
		wildcard(e.Extension, c.Ext())
}

func wildcard(pattern, value string) bool {
	return pattern == "" || pattern == "*" || pattern == value
}

// Dependency is a reference from one artifact to another.
type Dependency struct {
	Artifact   Coordinate  `json:"artifact" yaml:"artifact"`
	Scope      string      `json:"scope,omitempty" yaml:"scope,omitempty"`
	Optional   bool        `json:"optional,omitempty" yaml:"optional,omitempty"`
	Exclusions []Exclusion `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
}

// NewDependency creates a compile-scope dependency on c.
func NewDependency(c Coordinate) Dependency {
	return Dependency{Artifact: c, Scope: ScopeCompile}
}

// EffectiveScope returns the scope, defaulting to compile.
func (d Dependency) EffectiveScope() string {
	if d.Scope == "" {
		return ScopeCompile
	}
	return d.Scope
}

// Excludes reports whether any exclusion on d matches c.
func (d Dependency) Excludes(c Coordinate) bool {
	return slices.ContainsFunc(d.Exclusions, func(e Exclusion) bool { return e.Matches(c) })
}

// Transitive reports whether the dependency's own dependencies should be
// followed during collection.
func (d Dependency) Transitive() bool {
	switch d.EffectiveScope() {
	case ScopeTest, ScopeProvided, ScopeSystem:
		return false
	}
	return !d.Optional
}

// String renders "coordinate (scope[, optional])".
func (d Dependency) String() string {
	var b strings.Builder
	b.WriteString(d.Artifact.String())
	b.WriteString(" (")
	b.WriteString(d.EffectiveScope())
	if d.Optional {
		b.WriteString(", optional")
	}
	b.WriteString(")")
	return b.String()
}

// DeriveScope computes the scope of a transitive dependency given the scope
// of the dependency that introduced it, following Maven's scope table.
func DeriveScope(parent, child string) string {
	if parent == "" {
		parent = ScopeCompile
	}
	if child == "" {
		child = ScopeCompile
	}
	switch {
	case parent == ScopeCompile:
		if child == ScopeCompile || child == ScopeRuntime {
			return child
		}
	case parent == ScopeRuntime:
		if child == ScopeCompile || child == ScopeRuntime {
			return ScopeRuntime
		}
	case parent == ScopeProvided || parent == ScopeTest:
		if child == ScopeCompile || child == ScopeRuntime {
			return parent
		}
	}
	return child
}
