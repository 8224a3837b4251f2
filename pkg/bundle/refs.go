package bundle

import (
	"bytes"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// resourceAttrs lists the attributes that make a browser fetch a resource.
var resourceAttrs = map[atom.Atom][]string{
	atom.Script: {"src"},
	atom.Img:    {"src", "srcset"},
	atom.Source: {"src", "srcset"},
	atom.Iframe: {"src"},
	atom.Embed:  {"src"},
	atom.Object: {"data"},
	atom.Video:  {"src", "poster"},
	atom.Audio:  {"src"},
	atom.Track:  {"src"},
	atom.Input:  {"src"},
}

// linkRels are link relations whose href is loaded with the page.
var linkRels = []string{"stylesheet", "icon", "apple-touch-icon", "preload", "modulepreload", "manifest"}

// ExternalReferences returns the resource references in an HTML document
// that point outside of it, in document order. Data URIs and fragment
// references are self-contained and not reported. Anchors (a[href]) are
// navigation, not resources, and are ignored.
func ExternalReferences(doc []byte) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}
	var refs []string
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref != "" && !isSelfContained(ref) {
			refs = append(refs, ref)
		}
	}
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, key := range resourceAttrs[n.DataAtom] {
				if v, ok := attr(n, key); ok {
					if key == "srcset" {
						for _, cand := range strings.Split(v, ",") {
							if f := strings.Fields(cand); len(f) > 0 {
								add(f[0])
							}
						}
						continue
					}
					add(v)
				}
			}
			if n.DataAtom == atom.Link {
				rels := relTokens(n)
				for _, r := range linkRels {
					if rels[r] {
						if v, ok := attr(n, "href"); ok {
							add(v)
						}
						break
					}
				}
			}
			if v, ok := attr(n, "style"); ok {
				for _, ref := range cssRefs(v) {
					add(ref)
				}
			}
			if n.DataAtom == atom.Style && n.FirstChild != nil {
				for _, ref := range cssRefs(n.FirstChild.Data) {
					add(ref)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return refs, nil
}

// cssRefs returns url() references and quoted @import targets in source
// order. The url() form of @import is found by cssURL.
func cssRefs(css string) []string {
	type ref struct {
		at  int
		val string
	}
	var found []ref
	for _, m := range cssURL.FindAllStringSubmatchIndex(css, -1) {
		found = append(found, ref{m[0], group(css, m, 1) + group(css, m, 2) + group(css, m, 3)})
	}
	for _, m := range cssImport.FindAllStringSubmatchIndex(css, -1) {
		if v := group(css, m, 4) + group(css, m, 5); v != "" {
			found = append(found, ref{m[0], v})
		}
	}
	slices.SortStableFunc(found, func(a, b ref) int { return a.at - b.at })
	out := make([]string, 0, len(found))
	for _, r := range found {
		out = append(out, r.val)
	}
	return out
}

// group returns submatch i of an index match, or "" when it did not take part.
func group(s string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}

func isSelfContained(ref string) bool {
	return strings.HasPrefix(ref, "#") || strings.HasPrefix(strings.ToLower(ref), "data:")
}

func isRemote(ref string) bool {
	l := strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "//")
}

// isLocal reports whether ref names a file relative to the document.
func isLocal(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || isSelfContained(ref) || isRemote(ref) {
		return false
	}
	if i := strings.Index(ref, ":"); i > 0 && !strings.ContainsAny(ref[:i], "/?#") {
		return false // other scheme, e.g. file: or about:
	}
	return true
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

func relTokens(n *html.Node) map[string]bool {
	v, _ := attr(n, "rel")
	out := map[string]bool{}
	for _, f := range strings.Fields(strings.ToLower(v)) {
		out[f] = true
	}
	return out
}
