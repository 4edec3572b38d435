// internal/logsource/logsource.go
package logsource

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/mitchellh/go-homedir"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// stdin is swapped out in tests.
var stdin io.Reader = os.Stdin

// Pools for decompression readers; batch runs open many compressed files.
var (
	gzipReaderPool = sync.Pool{
		New: func() interface{} {
			return new(gzip.Reader)
		},
	}

	brotliReaderPool = sync.Pool{
		New: func() interface{} {
			return brotli.NewReader(nil)
		},
	}
)

var emptyReader = strings.NewReader("")

func getGzipReader(r io.Reader) (*gzip.Reader, error) {
	zr := gzipReaderPool.Get().(*gzip.Reader)
	if err := zr.Reset(r); err != nil {
		gzipReaderPool.Put(zr)
		return nil, err
	}
	return zr, nil
}

func putGzipReader(zr *gzip.Reader) {
	// Reset(nil) would try to read a header; an empty reader just yields io.EOF.
	_ = zr.Reset(emptyReader)
	gzipReaderPool.Put(zr)
}

func getBrotliReader(r io.Reader) (*brotli.Reader, error) {
	br := brotliReaderPool.Get().(*brotli.Reader)
	if err := br.Reset(r); err != nil {
		brotliReaderPool.Put(br)
		return nil, err
	}
	return br, nil
}

func putBrotliReader(br *brotli.Reader) {
	_ = br.Reset(emptyReader)
	brotliReaderPool.Put(br)
}

// closeWrapper closes the decoder and the underlying file, and returns
// pooled decoders exactly once.
type closeWrapper struct {
	io.ReadCloser
	underlying   io.Closer
	poolCallback func()
}

func (w *closeWrapper) Close() error {
	err1 := w.ReadCloser.Close()
	err2 := w.underlying.Close()
	// The decoder goes back to the pool only after it is fully closed.
	if w.poolCallback != nil {
		w.poolCallback()
		w.poolCallback = nil
	}
	return errors.Join(err1, err2)
}

// Open returns a reader for a log input. "-" is standard input, a ".gz"
// suffix is gunzipped, a ".br" suffix is brotli-decoded and anything else is
// read as plain text. The caller must Close the reader.
func Open(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return io.NopCloser(stdin), nil
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand log path %s: %w", path, err)
	}

	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open log source: %w", err)
	}

	rc, err := decode(f, strings.ToLower(filepath.Ext(expanded)))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to initialize decompression for %s: %w", path, err)
	}
	return rc, nil
}

func decode(f *os.File, ext string) (io.ReadCloser, error) {
	switch ext {
	case ".gz":
		zr, err := getGzipReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip initialization error: %w", err)
		}
		return &closeWrapper{
			ReadCloser:   zr,
			underlying:   f,
			poolCallback: func() { putGzipReader(zr) },
		}, nil

	case ".br":
		br, err := getBrotliReader(f)
		if err != nil {
			return nil, fmt.Errorf("brotli initialization error: %w", err)
		}
		// brotli.Reader has no Close.
		return &closeWrapper{
			ReadCloser:   io.NopCloser(br),
			underlying:   f,
			poolCallback: func() { putBrotliReader(br) },
		}, nil

	default:
		return f, nil
	}
}

// ReadAll opens path and returns its decoded contents as a string.
func ReadAll(path string) (string, error) {
	rc, err := Open(path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read log source %s: %w", path, err)
	}
	return string(data), nil
}
