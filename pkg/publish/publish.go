// Package publish copies autonomous documents to their final destination.
//
// A destination is a URL:
//   - s3://bucket/prefix uploads to an S3-compatible object store
//   - file:///path or a plain path writes into a local folder
//
// The document name is appended to the destination.
package publish

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// ContentType of published documents.
const ContentType = "text/html; charset=utf-8"

// Publisher stores a named document and returns its location.
type Publisher interface {
	Publish(ctx context.Context, name string, data []byte) (string, error)
}

// Options configures [Open].
type Options struct {
	S3     S3Config // settings for s3:// destinations; the bucket comes from the URL
	Logger *log.Logger
}

// Open returns the publisher for dest.
func Open(ctx context.Context, dest string, opts Options) (Publisher, error) {
	if dest == "" {
		return nil, rperrors.New(rperrors.ErrCodeInvalidInput, "publish destination is empty")
	}
	if !strings.Contains(dest, "://") {
		return &FilePublisher{Dir: dest}, nil
	}
	u, err := url.Parse(dest)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeInvalidInput, err, "publish destination %q", dest)
	}
	switch u.Scheme {
	case "file":
		return &FilePublisher{Dir: filepath.FromSlash(u.Path)}, nil
	case "s3":
		if u.Host == "" {
			return nil, rperrors.New(rperrors.ErrCodeInvalidInput, "publish destination %q has no bucket", dest)
		}
		cfg := opts.S3
		cfg.Bucket = u.Host
		cfg.Prefix = strings.Trim(u.Path, "/")
		p, err := NewS3(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p.Logger = opts.Logger
		return p, nil
	}
	return nil, rperrors.New(rperrors.ErrCodeUnsupported, "unsupported publish scheme %q", u.Scheme)
}

// validName rejects names that would escape the destination.
func validName(name string) error {
	if err := rperrors.ValidatePath(name); err != nil {
		return rperrors.Wrap(rperrors.ErrCodeInvalidInput, err, "document name %q", name)
	}
	return nil
}
