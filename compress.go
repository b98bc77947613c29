package logging

import (
	"io"
	"os"
	"strings"

	"github.com/Station-Manager/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects how retired files are compressed.
type Compression string

const (
	CompressNone Compression = "none"
	CompressGzip Compression = "gzip"
	CompressZstd Compression = "zstd"
)

// ParseCompression accepts the config spelling; empty means none.
func ParseCompression(s string) (Compression, error) {
	const op errors.Op = "logging.ParseCompression"
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case CompressGzip, CompressZstd, CompressNone:
		return c, nil
	case emptyString:
		return CompressNone, nil
	}
	return CompressNone, errors.New(op).Msgf("unknown compression %q", s)
}

// Ext is the suffix appended to a compressed file.
func (c Compression) Ext() string {
	switch c {
	case CompressGzip:
		return ".gz"
	case CompressZstd:
		return ".zst"
	}
	return emptyString
}

// compressFile writes path+ext and removes path only after the compressed
// copy is complete. A partial output is removed on failure.
func compressFile(path string, c Compression) (err error) {
	const op errors.Op = "logging.compressFile"
	if c == CompressNone || c == emptyString {
		return nil
	}

	src, err := os.Open(path)
	if err != nil {
		return errors.New(op).Err(err).Msgf("open %s: %s", path, err)
	}
	defer src.Close()

	dstPath := path + c.Ext()
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.New(op).Err(err).Msgf("create %s: %s", dstPath, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dstPath)
		}
	}()

	var enc io.WriteCloser
	switch c {
	case CompressGzip:
		enc = gzip.NewWriter(dst)
	case CompressZstd:
		zw, zerr := zstd.NewWriter(dst)
		if zerr != nil {
			_ = dst.Close()
			return errors.New(op).Err(zerr).Msgf("zstd writer: %s", zerr)
		}
		enc = zw
	default:
		_ = dst.Close()
		return errors.New(op).Msgf("unknown compression %q", c)
	}

	if _, err = io.Copy(enc, src); err != nil {
		_ = enc.Close()
		_ = dst.Close()
		return errors.New(op).Err(err).Msgf("compress %s: %s", path, err)
	}
	if err = enc.Close(); err != nil {
		_ = dst.Close()
		return errors.New(op).Err(err).Msgf("finalize %s: %s", dstPath, err)
	}
	if err = dst.Close(); err != nil {
		return errors.New(op).Err(err).Msgf("close %s: %s", dstPath, err)
	}

	_ = src.Close()
	return os.Remove(path)
}
