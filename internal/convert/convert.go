// Package convert translates between the internal UTF-8 string
// representation and the two Windows code pages the client speaks on the
// wire, CP-932 (Shift-JIS) and CP-1252 (Western European).
//
// The spec this core implements treats the lookup tables behind each code
// page as an opaque external resource; golang.org/x/text supplies that
// resource here instead of a hand-rolled table.
package convert

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// Encoding identifies one of the three string encodings the wire protocol
// exchanges.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	EncodingCP932
	EncodingCP1252
)

func (e Encoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf-8"
	case EncodingCP932:
		return "cp932"
	case EncodingCP1252:
		return "cp1252"
	default:
		return "unknown"
	}
}

func codec(e Encoding) encoding.Encoding {
	switch e {
	case EncodingCP932:
		return japanese.ShiftJIS
	case EncodingCP1252:
		return charmap.Windows1252
	default:
		return nil
	}
}

// ToEncoding converts s from UTF-8 to the wire bytes of e, optionally
// appending a single NUL terminator after conversion. An unmapped codepoint
// yields an empty slice, matching the spec's conversion-error contract: the
// caller must treat an empty result as a failure.
func ToEncoding(e Encoding, s string, nullTerminate bool) []byte {
	var out []byte
	if e == EncodingUTF8 {
		out = []byte(s)
	} else {
		enc := codec(e)
		b, err := enc.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil
		}
		out = b
	}
	if nullTerminate {
		out = append(out, 0)
	}
	return out
}

// FromEncoding converts raw wire bytes of e back to a UTF-8 string. Any
// trailing NUL bytes are trimmed first, matching the null-terminated read
// path in the packet codec. An unmapped codepoint yields an empty string.
func FromEncoding(e Encoding, data []byte) string {
	data = bytes.TrimRight(data, "\x00")
	if len(data) == 0 {
		return ""
	}
	if e == EncodingUTF8 {
		return string(data)
	}
	enc := codec(e)
	out, err := enc.NewDecoder().Bytes(data)
	// x/text decoders substitute U+FFFD for unmapped bytes instead of
	// failing, so a replacement character marks a conversion error.
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return ""
	}
	return string(out)
}
