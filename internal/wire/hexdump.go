package wire

import (
	"fmt"
	"strings"
)

// hexDump renders data as the canonical 16-byte-wide hex+ASCII dump used in
// PacketError and by Buffer.HexDump/View.HexDump, one line per 16 bytes:
// an offset column, the hex bytes (space separated, gap after the eighth),
// and the printable-ASCII rendering with '.' for anything outside the
// printable range.
func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var b strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		end := offset + 16
		if end > len(data) {
			end = len(data)
		}
		line := data[offset:end]

		fmt.Fprintf(&b, "%08x  ", offset)
		for i := 0; i < 16; i++ {
			if i == 8 {
				b.WriteByte(' ')
			}
			if i < len(line) {
				fmt.Fprintf(&b, "%02x ", line[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" |")
		for _, c := range line {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}
