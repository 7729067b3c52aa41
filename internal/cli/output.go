package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/libresolve/pkg/render/nodelink"
	"github.com/matzehuels/libresolve/pkg/resolve"
)

// Output formats for "resolve".
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var validFormats = []string{formatText, formatJSON, formatYAML, formatDOT, formatSVG}

// validateFormat checks that format is one of validFormats.
func validateFormat(format string) error {
	if !slices.Contains(validFormats, format) {
		return fmt.Errorf("invalid format: %s (must be one of %s)", format, strings.Join(validFormats, ", "))
	}
	return nil
}

// writeResult encodes res to w in the given format.
func writeResult(ctx context.Context, w io.Writer, res *resolve.Result, format string, detailed bool) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case formatDOT, formatSVG:
		g, err := nodelink.FromResult(res)
		if err != nil {
			return err
		}
		dot := nodelink.ToDOT(g, nodelink.Options{Detailed: detailed})
		if format == formatDOT {
			_, err = io.WriteString(w, dot)
			return err
		}
		svg, err := nodelink.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	default:
		return writeText(w, res)
	}
}

// writeText prints one artifact per line: coordinate, scope, depth, where
// it came from and its path in the cache.
func writeText(w io.Writer, res *resolve.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, a := range res.Artifacts {
		origin := "cache"
		if !a.Cached() {
			origin = a.Origin
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", a.Coordinate, a.Scope, a.Depth, origin, a.Path)
	}
	return tw.Flush()
}
