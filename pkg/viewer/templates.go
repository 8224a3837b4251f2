// Package viewer materializes the HTML pathway viewer for a network.
//
// The viewer is a fixed set of static assets (index.html, a stylesheet and a
// script) plus network.json, a script file assigning the serialized network,
// the per-pathway summaries and the contextual labels to three globals. The
// session identifier is injected into index.html by replacing [Placeholder].
//
// A default template set is embedded in the binary. A custom template
// directory replaces the whole set and must contain index.html.
package viewer

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// File names inside an assembled viewer directory.
const (
	IndexFile    = "index.html"
	DocumentFile = "network.json"
)

//go:embed templates
var embedded embed.FS

// DefaultTemplates returns the embedded template set.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err) // embedded path is fixed
	}
	return sub
}

// Templates returns the template set rooted at dir, or the embedded set when
// dir is empty.
func Templates(dir string) (fs.FS, error) {
	if dir == "" {
		return DefaultTemplates(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "template folder %s", dir)
	}
	if !info.IsDir() {
		return nil, rperrors.New(rperrors.ErrCodeIO, "template folder %s is not a directory", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, IndexFile)); err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "template folder %s has no %s", dir, IndexFile)
	}
	return os.DirFS(dir), nil
}
