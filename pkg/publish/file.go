package publish

import (
	"context"
	"os"
	"path/filepath"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// FilePublisher writes documents into a local folder.
type FilePublisher struct {
	Dir string
}

// Publish writes data to Dir/name through a temporary file.
func (p *FilePublisher) Publish(ctx context.Context, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(p.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", rperrors.Wrap(rperrors.ErrCodeIO, err, "publish %s", dst)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".publish-*")
	if err != nil {
		return "", rperrors.Wrap(rperrors.ErrCodeIO, err, "publish %s", dst)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", rperrors.Wrap(rperrors.ErrCodeIO, err, "publish %s", dst)
	}
	if err := tmp.Close(); err != nil {
		return "", rperrors.Wrap(rperrors.ErrCodeIO, err, "publish %s", dst)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", rperrors.Wrap(rperrors.ErrCodeIO, err, "publish %s", dst)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", rperrors.Wrap(rperrors.ErrCodeIO, err, "publish %s", dst)
	}
	return dst, nil
}
