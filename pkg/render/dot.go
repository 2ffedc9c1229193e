package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/graph"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds the group, scope and local file to node labels.
	Detailed bool

	// HideCycles omits cycle back-edges.
	HideCycles bool
}

// ToDOT converts t to Graphviz DOT source. Nodes are emitted in tree
// pre-order so the output is stable for a given tree.
func ToDOT(t *graph.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	t.Walk(func(n *graph.Node, _ []graph.NodeID) bool {
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeName(n.ID), strings.Join(fmtAttrs(n, opts), ", "))
		return true
	})

	buf.WriteString("\n")
	for _, e := range t.Edges() {
		fmt.Fprintf(&buf, "  %s -> %s;\n", nodeName(e.From), nodeName(e.To))
	}
	if !opts.HideCycles {
		for _, e := range t.BackEdges() {
			fmt.Fprintf(&buf, "  %s -> %s [color=red, style=dashed, constraint=false];\n", nodeName(e.From), nodeName(e.To))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeName(id graph.NodeID) string {
	return "n" + strconv.Itoa(int(id))
}

func fmtLabel(n *graph.Node, detailed bool) string {
	if n.Virtual {
		return "dependencies"
	}
	c := n.Coordinate()
	label := c.ArtifactID + "\n" + c.Version
	if !detailed {
		return label
	}
	parts := []string{c.GroupID, "scope: " + n.Dependency.EffectiveScope()}
	if n.Dependency.Optional {
		parts = append(parts, "optional")
	}
	if n.IsResolved() {
		parts = append(parts, "file: "+n.Resolved.File)
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *graph.Node, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
	switch {
	case n.Virtual:
		attrs = append(attrs, "shape=plaintext", "style=\"\"")
	case !n.IsResolved():
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "render SVG")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz svg tag with one whose viewBox
// starts at the origin and whose size matches the viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
