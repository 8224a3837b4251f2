package input

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decompress wraps r according to its leading magic bytes. Uncompressed
// streams are returned as-is. The returned close function releases decoder
// resources.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)
	switch {
	case bytes.HasPrefix(head, magicGzip):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case bytes.HasPrefix(head, magicBzip2):
		return bzip2.NewReader(br), func() {}, nil
	}
	return br, func() {}, nil
}

// sniffTar reports whether r holds a tar stream, looking through any
// supported compression.
func sniffTar(r io.Reader) bool {
	dr, done, err := decompress(r)
	if err != nil {
		return false
	}
	defer done()
	hdr := make([]byte, 512)
	if _, err := io.ReadFull(dr, hdr); err != nil {
		return false
	}
	// POSIX and GNU archives carry "ustar" at offset 257.
	if bytes.HasPrefix(hdr[257:], []byte("ustar")) {
		return true
	}
	// V7 archives have no magic; accept a first header with a valid checksum.
	_, err = tar.NewReader(bytes.NewReader(hdr)).Next()
	return err == nil
}

// extractTar unpacks the archive at path into dir. Member names that are
// absolute or escape dir are rejected; links and special files are skipped.
func extractTar(ctx context.Context, path, dir string, limit int64) error {
	f, err := os.Open(path)
	if err != nil {
		return rperrors.Wrap(rperrors.ErrCodeInputFormat, err, "open archive %s", path)
	}
	defer f.Close()

	dr, done, err := decompress(f)
	if err != nil {
		return rperrors.Wrap(rperrors.ErrCodeInputFormat, err, "decompress %s", path)
	}
	defer done()

	var total int64
	tr := tar.NewReader(dr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return rperrors.Wrap(rperrors.ErrCodeInputFormat, err, "read archive %s", path)
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if name == "" || name == "." {
			continue
		}
		if err := rperrors.ValidatePath(strings.TrimSuffix(name, "/")); err != nil {
			return rperrors.Wrap(rperrors.ErrCodeInputFormat, err, "archive %s member %q", path, hdr.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return rperrors.Wrap(rperrors.ErrCodeIO, err, "create %s", target)
			}
		case tar.TypeReg:
			total += hdr.Size
			if total > limit {
				return rperrors.New(rperrors.ErrCodeInputFormat, "archive %s exceeds %d bytes when extracted", path, limit)
			}
			if err := writeMember(tr, target, hdr.Size); err != nil {
				return err
			}
		}
	}
}

func writeMember(r io.Reader, target string, size int64) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "create %s", filepath.Dir(target))
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "create %s", target)
	}
	n, err := io.Copy(out, io.LimitReader(r, size))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return rperrors.Wrap(rperrors.ErrCodeIO, err, "write %s", target)
	}
	if n != size {
		return rperrors.New(rperrors.ErrCodeInputFormat, "truncated archive member %s", filepath.Base(target))
	}
	return nil
}
