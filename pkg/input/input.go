// Package input resolves the run input into a scoped workspace of model
// files.
//
// The input is a directory of models, a tar archive (plain, gzip, bzip2 or
// zstd compressed) or a single model file. [Open] detects which, extracts
// archives into a temporary directory and lists the model files found. The
// returned [Workspace] must be closed; closing removes any temporary
// directory it created.
package input

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/sbml"
)

// Format selects how the input location is interpreted.
type Format string

const (
	FormatAuto Format = ""     // detect from the input
	FormatTar  Format = "tar"  // tar archive, optionally compressed
	FormatDir  Format = "dir"  // directory of model files
	FormatSBML Format = "sbml" // single model file
)

// ParseFormat validates a format selector. Matching is case-insensitive and
// "folder" is accepted as an alias of "dir".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FormatAuto, nil
	case "tar":
		return FormatTar, nil
	case "dir", "folder", "directory":
		return FormatDir, nil
	case "sbml", "xml":
		return FormatSBML, nil
	}
	return "", rperrors.New(rperrors.ErrCodeInputFormat, "unknown input format %q (want tar, dir or sbml)", s)
}

// Workspace is the resolved input of one run.
type Workspace struct {
	Dir    string   // directory holding the model files
	Format Format   // detected or requested format
	Models []string // model file paths, lexically sorted

	temp string
}

// Close removes the temporary directory, if one was created. It is safe to
// call more than once.
func (w *Workspace) Close() error {
	if w == nil || w.temp == "" {
		return nil
	}
	err := os.RemoveAll(w.temp)
	w.temp = ""
	return err
}

// Options controls [Open].
type Options struct {
	// TempDir is the parent of temporary workspaces. Empty uses os.TempDir.
	TempDir string
	// MaxExtractBytes bounds the total size of extracted archive members.
	// Zero means DefaultMaxExtractBytes.
	MaxExtractBytes int64
	Logger          *log.Logger
}

// DefaultMaxExtractBytes is the default extraction limit.
const DefaultMaxExtractBytes = 2 << 30

// Open resolves path according to format. On error no temporary directory
// is left behind.
func Open(ctx context.Context, path string, format Format, opts Options) (*Workspace, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.MaxExtractBytes <= 0 {
		opts.MaxExtractBytes = DefaultMaxExtractBytes
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeInputFormat, err, "input %s", path)
	}

	detected, err := detect(path, info)
	if err != nil {
		return nil, err
	}
	if format != FormatAuto && format != detected {
		return nil, rperrors.New(rperrors.ErrCodeInputFormat, "input %s is %s, not %s", path, describe(detected), describe(format))
	}

	ws := &Workspace{Format: detected}
	switch detected {
	case FormatDir:
		ws.Dir = path
	case FormatTar, FormatSBML:
		tmp, err := os.MkdirTemp(opts.TempDir, "rpviz-")
		if err != nil {
			return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "create workspace")
		}
		ws.Dir, ws.temp = tmp, tmp
		if detected == FormatTar {
			err = extractTar(ctx, path, tmp, opts.MaxExtractBytes)
		} else {
			err = copyFile(path, filepath.Join(tmp, modelName(path)))
		}
		if err != nil {
			_ = ws.Close()
			return nil, err
		}
	}

	models, err := findModels(ctx, ws.Dir)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	if len(models) == 0 {
		_ = ws.Close()
		return nil, rperrors.New(rperrors.ErrCodeInputFormat, "no model files in %s", path)
	}
	ws.Models = models
	opts.Logger.Debug("resolved input", "path", path, "format", string(detected), "models", len(models))
	return ws, nil
}

func describe(f Format) string {
	switch f {
	case FormatTar:
		return "a tar archive"
	case FormatDir:
		return "a directory"
	case FormatSBML:
		return "a model file"
	}
	return string(f)
}

// detect classifies the input from its file mode and leading bytes.
func detect(path string, info fs.FileInfo) (Format, error) {
	if info.IsDir() {
		return FormatDir, nil
	}
	if !info.Mode().IsRegular() {
		return "", rperrors.New(rperrors.ErrCodeInputFormat, "input %s is not a regular file or directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", rperrors.Wrap(rperrors.ErrCodeInputFormat, err, "input %s", path)
	}
	defer f.Close()

	if sniffTar(f) {
		return FormatTar, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", rperrors.Wrap(rperrors.ErrCodeInputFormat, err, "input %s", path)
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if looksLikeXML(head[:n]) || (sbml.Loader{}).Supports(path) {
		return FormatSBML, nil
	}
	return "", rperrors.New(rperrors.ErrCodeInputFormat, "input %s is neither a tar archive, a directory nor a model file", path)
}

func looksLikeXML(b []byte) bool {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	b = bytes.TrimLeft(b, " \t\r\n")
	return bytes.HasPrefix(b, []byte("<?xml")) || bytes.HasPrefix(b, []byte("<sbml"))
}

// findModels lists model files below dir, skipping hidden entries and
// macOS resource forks.
func findModels(ctx context.Context, dir string) ([]string, error) {
	var models []string
	loader := sbml.Loader{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if p != dir && (strings.HasPrefix(name, ".") || name == "__MACOSX") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && loader.Supports(name) {
			models = append(models, p)
		}
		return nil
	})
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "scan %s", dir)
	}
	slices.Sort(models)
	return models, nil
}

// modelName names a single staged model so the scan picks it up.
func modelName(path string) string {
	base := filepath.Base(path)
	if (sbml.Loader{}).Supports(base) {
		return base
	}
	return base + ".xml"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "open %s", src)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "copy %s", src)
	}
	if err := out.Close(); err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "close %s", dst)
	}
	return nil
}
