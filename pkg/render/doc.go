// Package render draws dependency trees as Graphviz node-link diagrams.
//
// [ToDOT] produces DOT source. Resolved artifacts are solid boxes,
// unresolved ones are dashed and grey, and recorded cycles appear as red
// dashed back-edges that do not influence the ranking. [RenderSVG] lays the
// DOT out in-process with go-graphviz:
//
//	dot := render.ToDOT(res.Tree, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
package render
