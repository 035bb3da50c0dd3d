// Package byterange implements the PDF /ByteRange value: an ordered list of
// (offset, length) pairs describing which spans of a file a signature
// covers.
package byterange

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteRange is a flat, even-length list of offsets interpreted as
// alternating (start, length) pairs.
type ByteRange []int64

// New builds a ByteRange from offset/length pairs, e.g.
// New(0, 100, 200, 50) describes two spans: [0,100) and [200,250).
func New(offsetsAndLengths ...int64) ByteRange {
	return ByteRange(offsetsAndLengths)
}

// Pair returns the half-open span covered by pair i: [start, start+length).
func (b ByteRange) Pair(i int) (start, end int64) {
	start = b[2*i]
	length := b[2*i+1]
	return start, start + length
}

// Len returns the number of (offset, length) pairs.
func (b ByteRange) Len() int {
	return len(b) / 2
}

// TotalLength sums the length half of every pair.
func (b ByteRange) TotalLength() int64 {
	var total int64
	for i := 1; i < len(b); i += 2 {
		total += b[i]
	}
	return total
}

// ToFixedWidthString renders the range as space-separated decimals,
// right-padded with spaces to exactly width characters. It fails if the
// natural rendering is already longer than width: the caller reserved a
// fixed slot in the file and the value must fit without shifting any byte.
func (b ByteRange) ToFixedWidthString(width int) (string, error) {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatInt(v, 10)
	}
	s := strings.Join(parts, " ")
	if len(s) > width {
		return "", fmt.Errorf("byterange: rendered length %d exceeds reserved width %d", len(s), width)
	}
	return s + strings.Repeat(" ", width-len(s)), nil
}

// String renders the range the way it appears inside /ByteRange[...] —
// space separated, no padding.
func (b ByteRange) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, " ")
}
