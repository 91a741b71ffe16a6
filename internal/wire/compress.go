package wire

import (
	"bytes"
	"compress/flate"
	"io"
)

// deflate compresses src at the default compression level, matching the
// packet codec's compress() contract: RFC 1951 deflate, no headers.
func deflate(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inflate decompresses src, refusing to produce more than maxOut bytes —
// the decompress() contract's "refuses any stream exceeding the remaining
// capacity" rule.
func inflate(src []byte, maxOut int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()

	limited := io.LimitReader(r, int64(maxOut)+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(out) > maxOut {
		return nil, errDecompressTooLarge
	}
	return out, nil
}
