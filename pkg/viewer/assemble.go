package viewer

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// Assembler writes a viewer directory from a template set.
type Assembler struct {
	TemplateDir string      // custom template set; empty for the embedded one
	Logger      *log.Logger // optional
}

// Output describes an assembled viewer directory.
type Output struct {
	Dir       string
	Index     string // path of index.html
	Document  string // path of network.json
	Assets    int    // template files copied besides index.html
	Injection InjectionResult
}

// Assemble creates dir, copies the template assets into it, writes
// network.json and writes index.html with doc's session identifier injected.
//
// Failing to create dir or copy an asset is an IO_ERROR. A failed injection
// is an INJECTION_FAILED error; index.html is not written in that case and
// the returned Output still carries the injection result.
func (a *Assembler) Assemble(ctx context.Context, dir string, doc Document) (*Output, error) {
	logger := a.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	start := time.Now()

	tmpl, err := Templates(a.TemplateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "create output folder %s", dir)
	}

	out := &Output{
		Dir:      dir,
		Index:    filepath.Join(dir, IndexFile),
		Document: filepath.Join(dir, DocumentFile),
	}
	if out.Assets, err = copyAssets(ctx, tmpl, dir); err != nil {
		return nil, err
	}

	f, err := os.Create(out.Document)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "create %s", out.Document)
	}
	if err := WriteDocument(f, doc); err != nil {
		f.Close()
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "write %s", out.Document)
	}
	if err := f.Close(); err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "write %s", out.Document)
	}

	markup, err := fs.ReadFile(tmpl, IndexFile)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "read template %s", IndexFile)
	}
	out.Injection = Inject(markup, doc.ContextualInfo.UniqueID)
	if err := out.Injection.Err(); err != nil {
		logger.Error("injection failed", "status", out.Injection.Status, "replaced", out.Injection.Replaced)
		return out, err
	}
	if err := os.WriteFile(out.Index, out.Injection.Markup, 0o644); err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "write %s", out.Index)
	}

	logger.Debug("viewer assembled", "dir", dir, "assets", out.Assets, "replaced", out.Injection.Replaced, "duration", time.Since(start))
	return out, nil
}

// copyAssets copies every template file except index.html and network.json.
func copyAssets(ctx context.Context, tmpl fs.FS, dir string) (int, error) {
	n := 0
	err := fs.WalkDir(tmpl, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." || p == IndexFile || p == DocumentFile {
			return nil
		}
		dst := filepath.Join(dir, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyAsset(tmpl, p, dst); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		return n, rperrors.Wrap(rperrors.ErrCodeIO, err, "copy viewer assets")
	}
	return n, nil
}

func copyAsset(tmpl fs.FS, name, dst string) error {
	src, err := tmpl.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
