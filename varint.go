package varframe

import "google.golang.org/protobuf/encoding/protowire"

// MaxVarintLen is the maximum encoded length of a 64-bit varint.
const MaxVarintLen = 10

// DecodeVarint decodes a base-128 little-endian varint from the head of b.
//
// It returns the low 32 bits of the decoded value and the number of bytes
// consumed. Continuation bytes past bit 32 are still consumed so that the
// terminator is located correctly, but their value is discarded.
//
// Results:
//   - n == 0, err == nil: b holds no terminating byte yet; more input is needed.
//   - n > 0, err == nil: v is valid and n bytes were consumed.
//   - err == ErrMalformedVarint: MaxVarintLen bytes carry the continuation bit.
func DecodeVarint(b []byte) (v uint32, n int, err error) {
	var shift uint
	for i := 0; i < MaxVarintLen; i++ {
		if i >= len(b) {
			return 0, 0, nil
		}
		c := b[i]
		if shift < 32 {
			v |= uint32(c&0x7f) << shift
		}
		if c < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrMalformedVarint
}

// AppendVarint appends the varint encoding of v to dst.
func AppendVarint(dst []byte, v uint64) []byte {
	return protowire.AppendVarint(dst, v)
}

// VarintLen returns the number of bytes AppendVarint writes for v.
func VarintLen(v uint64) int {
	return protowire.SizeVarint(v)
}
