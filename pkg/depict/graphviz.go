package depict

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"
)

// Renderer turns a DOT graph into SVG markup.
type Renderer interface {
	RenderSVG(ctx context.Context, dot string) ([]byte, error)
}

// Graphviz renders with the embedded Graphviz build using the neato
// engine. Each call uses its own Graphviz instance, so a Graphviz value is
// safe for concurrent use.
type Graphviz struct{}

// RenderSVG lays out dot with neato and renders it to SVG.
func (Graphviz) RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeSVG(buf.Bytes()), nil
}

var (
	xmlPrologRe = regexp.MustCompile(`(?s)^.*?(<svg[\s>])`)
	svgTagRe    = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe   = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
	commentRe   = regexp.MustCompile(`(?s)<!--.*?-->\s*`)
)

// normalizeSVG strips the XML prolog, doctype and comments Graphviz emits
// and rewrites the root element to a plain scalable viewBox, so the markup
// can be embedded inline in HTML.
func normalizeSVG(svg []byte) []byte {
	svg = xmlPrologRe.ReplaceAll(svg, []byte("$1"))
	svg = commentRe.ReplaceAll(svg, nil)

	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return bytes.TrimSpace(svg)
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return bytes.TrimSpace(svg)
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return bytes.TrimSpace(svgTagRe.ReplaceAll(svg, []byte(root)))
}
