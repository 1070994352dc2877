package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/voltlab/distflow/pkg/network"
)

// DotOptions configures the one-line diagram.
type DotOptions struct {
	// Root is highlighted as the feeder source when non-empty.
	Root string

	// Detailed adds segment names and lengths to edge labels.
	Detailed bool
}

// ToDOT converts a network model to Graphviz DOT: buses as nodes, line
// segments as edges from parent to child. Buses that carry load are
// drawn filled so lightly loaded laterals are easy to spot.
func ToDOT(m *network.Model, opts DotOptions) string {
	loaded := make(map[string]bool, len(m.Loads))
	for _, ld := range m.Loads {
		loaded[ld.Bus] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph feeder {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=circle, fontsize=12, fixedsize=false];\n")
	buf.WriteString("\n")

	for _, bus := range m.Nodes {
		attrs := []string{}
		if bus == opts.Root {
			attrs = append(attrs, "shape=doublecircle", "style=filled", "fillcolor=gold")
		} else if loaded[bus] {
			attrs = append(attrs, "style=filled", "fillcolor=lightblue")
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q [%s];\n", bus, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %q;\n", bus)
		}
	}

	buf.WriteString("\n")
	for _, ln := range m.Lines {
		if opts.Detailed {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", ln.From, ln.To,
				fmt.Sprintf("%s (%g)", ln.Name, ln.Length))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", ln.From, ln.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT diagram to SVG bytes using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.SVG)
}

// RenderPNG renders a DOT diagram to PNG bytes using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
