// Package report turns a dependency resolution result into a portable
// document listing every component, the edges between them, cycles and
// failures.
//
// Reports are written as JSON or YAML and persisted by [store]:
//
//	res, _ := sys.ResolveDependencies(ctx, sess, req)
//	r := report.Build(res)
//	report.WriteJSON(r, os.Stdout)
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/depresolve/pkg/collect"
	"github.com/matzehuels/depresolve/pkg/graph"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/system"
)

// Report is the serializable form of a DependencyResult.
type Report struct {
	ID        string    `json:"id" yaml:"id" bson:"_id"`
	Root      string    `json:"root" yaml:"root" bson:"root"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" bson:"created_at"`
	Summary   Summary   `json:"summary" yaml:"summary" bson:"summary"`

	Components []Component  `json:"components" yaml:"components" bson:"components"`
	Edges      []Edge       `json:"edges,omitempty" yaml:"edges,omitempty" bson:"edges,omitempty"`
	Cycles     [][]string   `json:"cycles,omitempty" yaml:"cycles,omitempty" bson:"cycles,omitempty"`
	Unresolved []Unresolved `json:"unresolved,omitempty" yaml:"unresolved,omitempty" bson:"unresolved,omitempty"`

	CollectionErrors []string `json:"collection_errors,omitempty" yaml:"collection_errors,omitempty" bson:"collection_errors,omitempty"`
	ResolutionError  string   `json:"resolution_error,omitempty" yaml:"resolution_error,omitempty" bson:"resolution_error,omitempty"`
}

// Summary holds the headline counts of a report.
type Summary struct {
	Components int  `json:"components" yaml:"components" bson:"components"`
	Resolved   int  `json:"resolved" yaml:"resolved" bson:"resolved"`
	Unresolved int  `json:"unresolved" yaml:"unresolved" bson:"unresolved"`
	Cycles     int  `json:"cycles" yaml:"cycles" bson:"cycles"`
	Failed     bool `json:"failed" yaml:"failed" bson:"failed"`
}

// Component is one node of the dependency tree.
type Component struct {
	Ref        string `json:"ref" yaml:"ref" bson:"ref"`
	PURL       string `json:"purl" yaml:"purl" bson:"purl"`
	Scope      string `json:"scope,omitempty" yaml:"scope,omitempty" bson:"scope,omitempty"`
	Optional   bool   `json:"optional,omitempty" yaml:"optional,omitempty" bson:"optional,omitempty"`
	Depth      int    `json:"depth" yaml:"depth" bson:"depth"`
	File       string `json:"file,omitempty" yaml:"file,omitempty" bson:"file,omitempty"`
	SHA256     string `json:"sha256,omitempty" yaml:"sha256,omitempty" bson:"sha256,omitempty"`
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty" bson:"repository,omitempty"`
}

// Edge links a component to one of its dependencies.
type Edge struct {
	From string `json:"from" yaml:"from" bson:"from"`
	To   string `json:"to" yaml:"to" bson:"to"`
}

// Unresolved is a component whose artifact could not be resolved.
type Unresolved struct {
	Ref    string   `json:"ref" yaml:"ref" bson:"ref"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty" bson:"errors,omitempty"`
}

// Build creates a report for res. Components are listed in tree pre-order.
// A nil tree yields a report without components.
func Build(res *system.DependencyResult) *Report {
	r := &Report{
		ID:        uuid.NewString(),
		Root:      res.Request.String(),
		CreatedAt: time.Now().UTC(),
	}
	if n := res.Tree.RootNode(); n != nil && !n.Virtual {
		r.Root = n.Coordinate().String()
	}

	byNode := make(map[graph.NodeID]*resolve.ArtifactResult, len(res.ArtifactResults))
	for _, ar := range res.ArtifactResults {
		if ar != nil && ar.Request.Node != graph.NoNode {
			byNode[ar.Request.Node] = ar
		}
	}

	t := res.Tree
	t.Walk(func(n *graph.Node, _ []graph.NodeID) bool {
		if n.Virtual {
			return true
		}
		r.Components = append(r.Components, component(n, byNode[n.ID]))
		return true
	})
	for _, e := range t.Edges() {
		from, to := t.Node(e.From), t.Node(e.To)
		if from.Virtual {
			continue
		}
		r.Edges = append(r.Edges, Edge{From: from.Coordinate().String(), To: to.Coordinate().String()})
	}
	for _, c := range res.Cycles {
		path := make([]string, 0, len(c.Path))
		for _, id := range c.Path {
			path = append(path, t.Node(id).Coordinate().String())
		}
		r.Cycles = append(r.Cycles, path)
	}

	for _, n := range t.Unresolved() {
		u := Unresolved{Ref: n.Coordinate().String()}
		if ar, ok := byNode[n.ID]; ok {
			for _, err := range ar.Exceptions {
				u.Errors = append(u.Errors, err.Error())
			}
		}
		r.Unresolved = append(r.Unresolved, u)
	}
	for _, err := range res.CollectExceptions {
		r.CollectionErrors = append(r.CollectionErrors, err.Error())
	}
	if res.ResolveErr != nil {
		r.ResolutionError = res.ResolveErr.Error()
	}

	r.Summary = Summary{
		Components: len(r.Components),
		Resolved:   len(r.Components) - len(r.Unresolved),
		Unresolved: len(r.Unresolved),
		Cycles:     len(r.Cycles),
		Failed:     res.Failed(),
	}
	return r
}

// BuildCollect creates a report for a collection without resolution.
// Components carry no files and nothing is listed as unresolved.
func BuildCollect(res *collect.Result) *Report {
	req := res.Request
	r := Build(&system.DependencyResult{
		Request:           system.DependencyRequest{CollectRequest: &req},
		Tree:              res.Tree,
		Cycles:            res.Cycles(),
		CollectExceptions: res.Exceptions,
	})
	r.Unresolved = nil
	r.Summary.Resolved, r.Summary.Unresolved = 0, 0
	r.Summary.Failed = len(res.Exceptions) > 0
	return r
}

func component(n *graph.Node, ar *resolve.ArtifactResult) Component {
	c := n.Coordinate()
	comp := Component{
		Ref:      c.String(),
		PURL:     c.PackageURL(),
		Scope:    n.Dependency.EffectiveScope(),
		Optional: n.Dependency.Optional,
		Depth:    n.Depth,
	}
	if n.IsResolved() {
		comp.File = n.Resolved.File
		comp.SHA256, _ = fileSHA256(n.Resolved.File)
	}
	if ar != nil {
		comp.Repository = ar.Repository
	}
	return comp
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
