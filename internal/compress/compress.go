// Package compress provides the symmetric compress/decompress operation the
// tiered cache applies at its boundary: providers only ever see compressed
// bytes, consumers only ever see uncompressed bytes.
package compress

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder

	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func getEncoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(fmt.Sprintf("could not create zstd encoder: %v", err))
		}
		encoder = enc
	})
	return encoder
}

func getDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic(fmt.Sprintf("could not create zstd decoder: %v", err))
		}
		decoder = dec
	})
	return decoder
}

// Compress returns the zstd-compressed representation of p.
func Compress(p []byte) []byte {
	return getEncoder().EncodeAll(p, make([]byte, 0, len(p)))
}

// Decompress reverses Compress. A malformed or truncated blob (e.g. a
// corrupt cache entry) returns an error rather than panicking, so the
// tiered cache can self-heal instead of crashing the invocation.
func Decompress(p []byte) ([]byte, error) {
	out, err := getDecoder().DecodeAll(p, make([]byte, 0, len(p)*2))
	if err != nil {
		return nil, fmt.Errorf("corrupt compressed entry: %w", err)
	}
	return out, nil
}

// RoundTrips reports whether Decompress(Compress(p)) reproduces p exactly;
// it states the core invariant in code (nil and empty input count as equal).
func RoundTrips(p []byte) bool {
	out, err := Decompress(Compress(p))
	if err != nil {
		return false
	}
	return bytes.Equal(out, p)
}
