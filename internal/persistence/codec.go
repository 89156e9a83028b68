package persistence

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// ErrChecksum means a stored blob does not match its recorded hash.
var ErrChecksum = errors.New("snapshot checksum mismatch")

// Pack compresses raw snapshot JSON and returns it with the hex BLAKE3 hash
// of the uncompressed bytes.
func Pack(raw []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, "", fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), Hash(raw), nil
}

// Unpack decompresses blob and checks it against hash.
func Unpack(blob []byte, hash string) ([]byte, error) {
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrMalformedSnapshot, err)
	}
	if Hash(raw) != hash {
		return nil, ErrChecksum
	}
	return raw, nil
}

// Hash returns the hex BLAKE3-256 digest of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
