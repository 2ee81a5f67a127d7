// Package source opens captured log buffers as plain byte streams.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Stdin is the path that selects standard input
const Stdin = "-"

// Compression identifies how a capture is wrapped
type Compression int

const (
	Auto Compression = iota // sniff the magic number
	None
	Gzip
	Zstd
	LZ4
	Snappy // framed snappy stream
	Brotli // never detected, brotli has no magic number
)

func (c Compression) String() string {
	switch c {
	case Auto:
		return "auto"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	case Snappy:
		return "snappy"
	case Brotli:
		return "brotli"
	default:
		return "none"
	}
}

// ParseCompression parses auto, none, gzip, zstd, lz4, snappy or brotli
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "none", "raw":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	case "snappy", "sz":
		return Snappy, nil
	case "brotli", "br":
		return Brotli, nil
	default:
		return Auto, fmt.Errorf("unknown compression %q", s)
	}
}

// peekSize bytes are inspected when sniffing the compression
const peekSize = 512

var (
	gzipMagic = []byte{0x1f, 0x8b, 0x08} // ID1, ID2 and CM=deflate
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}

	// Stream identifier chunk of the snappy framing format
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// Detect identifies the compression of a stream from its leading bytes
func Detect(magic []byte) Compression {
	switch {
	case bytes.HasPrefix(magic, zstdMagic):
		return Zstd
	case bytes.HasPrefix(magic, lz4Magic):
		return LZ4
	case bytes.HasPrefix(magic, gzipMagic):
		return Gzip
	case bytes.HasPrefix(magic, snappyMagic):
		return Snappy
	default:
		return None
	}
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens the capture at path, or standard input for "-". With Auto the
// compression is taken from the magic number, and a capture whose sniffed
// header does not parse is read raw.
func Open(path string, c Compression) (io.ReadCloser, error) {
	if path == Stdin {
		return Wrap(os.Stdin, c, func() error { return nil })
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	rc, err := Wrap(file, c, file.Close)
	if err != nil {
		file.Close()
		return nil, err
	}
	return rc, nil
}

// Wrap returns a reader over the decompressed bytes of r. closeFn is called
// when the returned reader is closed.
func Wrap(r io.Reader, c Compression, closeFn func() error) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	if c == Auto {
		head, err := br.Peek(peekSize)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read capture: %w", err)
		}
		c = Detect(head)
		if !headerValid(c, head) {
			c = None
		}
	}

	rc := &readCloser{Reader: br}
	switch c {
	case Gzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip capture: %w", err)
		}
		rc.Reader = gz
		rc.closers = append(rc.closers, gz.Close)
	case Zstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd capture: %w", err)
		}
		rc.Reader = dec
		rc.closers = append(rc.closers, func() error {
			dec.Close()
			return nil
		})
	case LZ4:
		rc.Reader = lz4.NewReader(br)
	case Snappy:
		rc.Reader = snappy.NewReader(br)
	case Brotli:
		rc.Reader = brotli.NewReader(br)
	}
	rc.closers = append(rc.closers, closeFn)

	return rc, nil
}

// headerValid reports whether head starts with a frame header that the
// decompressor for c accepts. A header cut short by the end of head passes.
func headerValid(c Compression, head []byte) bool {
	var err error
	switch c {
	case Gzip:
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(bytes.NewReader(head)); err == nil {
			gz.Close()
		}
	case Zstd:
		var h zstd.Header
		err = h.Decode(head)
	case LZ4:
		// A zero-length read parses the frame headers without decoding a block
		_, err = lz4.NewReader(bytes.NewReader(head)).Read(nil)
	}
	return err == nil || err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF)
}
