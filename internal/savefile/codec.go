// Package savefile converts the compressed save container to and from the
// embedded league database file.
package savefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"rosterinjector/pkg/domain"
)

// headerByte is the first byte of every zlib stream the game writes (78 01, 78 9C, 78 DA).
const headerByte = 0x78

// Decode inflates a save container into raw database bytes.
func Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, domain.FormatError{Reason: "empty container"}
	}
	if data[0] != headerByte {
		return nil, domain.FormatError{Reason: fmt.Sprintf("unrecognized header byte %#02x", data[0])}
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, domain.FormatError{Reason: "read compressed header", Err: err}
	}
	out, err := io.ReadAll(r)
	if err != nil {
		_ = r.Close()
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, domain.FormatError{Reason: "truncated container", Err: err}
		}
		return nil, domain.FormatError{Reason: "inflate container", Err: err}
	}
	if err := r.Close(); err != nil {
		return nil, domain.FormatError{Reason: "close compressed stream", Err: err}
	}
	return out, nil
}

// Encode deflates raw database bytes at the default compression level.
func Encode(db []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(db); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("deflate database: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flush compressed stream: %w", err)
	}
	return buf.Bytes(), nil
}
