package cache

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Shared-tier values carry a one-byte header flagging the compression
// algorithm. The local tier never sees these frames.
const (
	flagRaw     byte = 0
	flagGzip    byte = 1
	flagDeflate byte = 2
	flagBrotli  byte = 3
)

// encodeFrame wraps a value for the shared store, compressing it when it
// exceeds the threshold. Values at or below the threshold stay raw.
func encodeFrame(val []byte, algorithm string, threshold int) ([]byte, error) {
	if len(val) <= threshold {
		return append([]byte{flagRaw}, val...), nil
	}

	var buf bytes.Buffer
	var flag byte
	var w io.WriteCloser
	switch algorithm {
	case "gzip":
		flag = flagGzip
		w = gzip.NewWriter(&buf)
	case "deflate":
		flag = flagDeflate
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("deflate writer: %w", err)
		}
		w = fw
	case "brotli":
		flag = flagBrotli
		w = brotli.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("unknown compression algorithm %q", algorithm)
	}

	if _, err := w.Write(val); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress close: %w", err)
	}

	return append([]byte{flag}, buf.Bytes()...), nil
}

// decodeFrame unwraps a shared-store value according to its header flag.
func decodeFrame(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty cache frame")
	}
	body := frame[1:]
	switch frame[0] {
	case flagRaw:
		return body, nil
	case flagGzip:
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case flagDeflate:
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		return io.ReadAll(r)
	case flagBrotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
	default:
		return nil, fmt.Errorf("unknown cache frame flag %d", frame[0])
	}
}
