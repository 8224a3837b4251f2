// Package bundle turns an assembled viewer directory into one self-contained
// HTML document.
//
// [Bundler.Bundle] parses index.html with golang.org/x/net/html and inlines
// every local resource it references:
//   - script[src]: the file becomes the script body
//   - link[rel=stylesheet]: the file becomes a style element, with @import
//     rules replaced by the imported stylesheet and url() references turned
//     into data URIs
//   - img[src], link[rel~=icon]: data URIs
//
// Remote references (http, https, protocol-relative) cannot be inlined and
// fail the bundle with BUNDLE_ERROR, as do references that leave the viewer
// directory. The source directory is only read. Bundling the same directory
// twice yields identical bytes.
package bundle

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// IndexFile is the entry document of a viewer directory.
const IndexFile = "index.html"

// mimeTypes is fixed so data URIs do not depend on the host's mime database.
var mimeTypes = map[string]string{
	".css":   "text/css",
	".js":    "text/javascript",
	".json":  "application/json",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
}

var (
	cssURL      = regexp.MustCompile(`url\(\s*(?:"([^"]*)"|'([^']*)'|([^)'"\s]*))\s*\)`)
	cssImport   = regexp.MustCompile(`@import\s+(?:url\(\s*(?:"([^"]*)"|'([^']*)'|([^)'"\s]*))\s*\)|"([^"]*)"|'([^']*)')([^;]*);`)
	closeScript = regexp.MustCompile(`(?i)</(script)`)
	closeStyle  = regexp.MustCompile(`(?i)</(style)`)
)

// Bundler inlines the assets of a viewer directory.
type Bundler struct {
	Logger *log.Logger // optional
}

// Bundle reads dir/index.html and returns the self-contained document.
func (b *Bundler) Bundle(ctx context.Context, dir string) ([]byte, error) {
	logger := b.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	start := time.Now()

	fsys := os.DirFS(dir)
	src, err := fs.ReadFile(fsys, IndexFile)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeBundle, err, "read %s", filepath.Join(dir, IndexFile))
	}
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeBundle, err, "parse %s", IndexFile)
	}

	in := &inliner{ctx: ctx, fsys: fsys}
	if err := in.walk(doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeBundle, err, "render bundle")
	}
	out := buf.Bytes()

	refs, err := ExternalReferences(out)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeBundle, err, "verify bundle")
	}
	if len(refs) > 0 {
		return nil, rperrors.New(rperrors.ErrCodeBundle, "bundle still references %s", strings.Join(refs, ", "))
	}

	logger.Debug("bundle built", "dir", dir, "inlined", in.count, "bytes", len(out), "duration", time.Since(start))
	return out, nil
}

// BundleFile bundles dir and writes the document to dst. The file is written
// to a temporary name first and renamed, so dst is never left half-written.
func (b *Bundler) BundleFile(ctx context.Context, dir, dst string) error {
	data, err := b.Bundle(ctx, dir)
	if err != nil {
		return err
	}
	if parent := filepath.Dir(dst); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return rperrors.Wrap(rperrors.ErrCodeIO, err, "create %s", parent)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".rpviz-bundle-*")
	if err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "write %s", dst)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "write %s", dst)
	}
	if err := tmp.Close(); err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "write %s", dst)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "write %s", dst)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "write %s", dst)
	}
	return nil
}

type inliner struct {
	ctx   context.Context
	fsys  fs.FS
	count int
	// importing holds the stylesheets on the current @import chain.
	importing map[string]bool
}

func (in *inliner) walk(n *html.Node) error {
	if err := in.ctx.Err(); err != nil {
		return err
	}
	// Collect children first: inlining may replace the current child.
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	if n.Type == html.ElementNode {
		if err := in.element(n); err != nil {
			return err
		}
	}
	for _, c := range children {
		if err := in.walk(c); err != nil {
			return err
		}
	}
	return nil
}

func (in *inliner) element(n *html.Node) error {
	switch n.DataAtom {
	case atom.Script:
		src, ok := attr(n, "src")
		if !ok || isSelfContained(src) {
			return nil
		}
		data, err := in.read(".", src)
		if err != nil {
			return err
		}
		removeAttr(n, "src")
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: escapeScript(string(data))})
		in.count++

	case atom.Link:
		href, ok := attr(n, "href")
		if !ok {
			return nil
		}
		rels := relTokens(n)
		switch {
		case rels["stylesheet"]:
			data, err := in.read(".", href)
			if err != nil {
				return err
			}
			css, err := in.inlineCSS(path.Dir(cleanRef(href)), string(data))
			if err != nil {
				return err
			}
			style := &html.Node{Type: html.ElementNode, DataAtom: atom.Style, Data: "style"}
			if media, ok := attr(n, "media"); ok {
				style.Attr = []html.Attribute{{Key: "media", Val: media}}
			}
			style.AppendChild(&html.Node{Type: html.TextNode, Data: escapeStyle(css)})
			n.Parent.InsertBefore(style, n)
			n.Parent.RemoveChild(n)
			in.count++
		case rels["icon"], rels["apple-touch-icon"], rels["preload"]:
			uri, err := in.dataURI(".", href)
			if err != nil {
				return err
			}
			setAttr(n, "href", uri)
			in.count++
		}

	case atom.Img:
		src, ok := attr(n, "src")
		if !ok {
			return nil
		}
		uri, err := in.dataURI(".", src)
		if err != nil {
			return err
		}
		setAttr(n, "src", uri)
		in.count++

	case atom.Style:
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			css, err := in.inlineCSS(".", n.FirstChild.Data)
			if err != nil {
				return err
			}
			n.FirstChild.Data = css
		}
	}
	return nil
}

// inlineCSS replaces @import rules with the imported stylesheets and
// rewrites url() references relative to base into data URIs.
func (in *inliner) inlineCSS(base, css string) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range cssImport.FindAllStringSubmatchIndex(css, -1) {
		rest, err := in.inlineURLs(base, css[last:m[0]])
		if err != nil {
			return "", err
		}
		b.WriteString(rest)
		imported, err := in.inlineImport(base, css[m[0]:m[1]])
		if err != nil {
			return "", err
		}
		b.WriteString(imported)
		last = m[1]
	}
	rest, err := in.inlineURLs(base, css[last:])
	if err != nil {
		return "", err
	}
	b.WriteString(rest)
	return b.String(), nil
}

// inlineImport resolves one @import rule. Media conditions become an
// enclosing @media block.
func (in *inliner) inlineImport(base, rule string) (string, error) {
	sub := cssImport.FindStringSubmatch(rule)
	ref := strings.TrimSpace(sub[1] + sub[2] + sub[3] + sub[4] + sub[5])
	if !isLocal(ref) {
		if isRemote(ref) {
			return "", remoteError(ref)
		}
		return rule, nil
	}
	data, err := in.read(base, ref)
	if err != nil {
		return "", err
	}
	p := path.Join(base, cleanRef(ref))
	if in.importing == nil {
		in.importing = make(map[string]bool)
	}
	if in.importing[p] {
		return "", rperrors.New(rperrors.ErrCodeBundle, "stylesheet %s imports itself", p)
	}
	in.importing[p] = true
	css, err := in.inlineCSS(path.Dir(p), string(data))
	delete(in.importing, p)
	if err != nil {
		return "", err
	}
	in.count++
	if media := strings.TrimSpace(sub[6]); media != "" {
		return "@media " + media + " {\n" + css + "\n}", nil
	}
	return css, nil
}

func (in *inliner) inlineURLs(base, css string) (string, error) {
	var firstErr error
	out := cssURL.ReplaceAllStringFunc(css, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := cssURL.FindStringSubmatch(m)
		ref := sub[1] + sub[2] + sub[3]
		if !isLocal(ref) {
			if isRemote(ref) {
				firstErr = remoteError(ref)
			}
			return m
		}
		uri, err := in.dataURI(base, ref)
		if err != nil {
			firstErr = err
			return m
		}
		in.count++
		return `url("` + uri + `")`
	})
	return out, firstErr
}

func (in *inliner) dataURI(base, ref string) (string, error) {
	if !isLocal(ref) {
		if isRemote(ref) {
			return "", remoteError(ref)
		}
		return ref, nil
	}
	data, err := in.read(base, ref)
	if err != nil {
		return "", err
	}
	return "data:" + mimeType(cleanRef(ref)) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// read loads ref resolved against base, both relative to the viewer root.
func (in *inliner) read(base, ref string) ([]byte, error) {
	if isRemote(ref) {
		return nil, remoteError(ref)
	}
	if !isLocal(ref) {
		return nil, rperrors.New(rperrors.ErrCodeBundle, "reference %q cannot be inlined", ref)
	}
	p := path.Join(base, cleanRef(ref))
	if err := rperrors.ValidatePath(p); err != nil || !fs.ValidPath(p) {
		return nil, rperrors.New(rperrors.ErrCodeBundle, "reference %q leaves the viewer folder", ref)
	}
	data, err := fs.ReadFile(in.fsys, p)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeBundle, err, "inline %s", ref)
	}
	return data, nil
}

func remoteError(ref string) error {
	return rperrors.New(rperrors.ErrCodeBundle, "remote reference %q cannot be inlined", ref)
}

// cleanRef drops the query and fragment of a relative reference.
func cleanRef(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return strings.TrimPrefix(ref, "./")
}

func mimeType(name string) string {
	if t, ok := mimeTypes[strings.ToLower(path.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

func escapeScript(s string) string {
	s = closeScript.ReplaceAllString(s, `<\/$1`)
	return strings.ReplaceAll(s, "<!--", `<\!--`)
}

func escapeStyle(s string) string {
	return closeStyle.ReplaceAllString(s, `<\/$1`)
}
