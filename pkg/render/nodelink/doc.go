// Package nodelink renders a resolved dependency closure as a node-link
// diagram.
//
// [FromResult] places every selected artifact in the row of its depth and
// [ToDOT] turns the result into Graphviz DOT. [RenderSVG] lays the DOT out
// with the WebAssembly Graphviz build from github.com/goccy/go-graphviz,
// so no system installation is needed.
//
//	g, err := nodelink.FromResult(res)
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
package nodelink
