package sign

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/acrosign/pdfsigner/byterange"
	"github.com/acrosign/pdfsigner/internal/patch"
)

// byteRangeSentinelZeros is how many of the Contents placeholder's zero
// nibbles the search pattern demands, matching §4.9's "at least 51 hex
// zeros" — enough to be a practically unique byte sequence without
// requiring the full 18000-nibble placeholder in the needle.
const byteRangeSentinelZeros = 51

// ResolveByteRange locates the placeholder /ByteRange + /Contents pair
// written by AppearanceWriter inside a freshly serialized incremental
// update, computes the real four-number ByteRange those bytes now
// occupy, and rewrites the placeholder in place.
//
// The spans described by the returned byterange.ByteRange are exactly
// the bytes that get hashed into the CMS signature in C10: everything
// except the Contents hex digits and their enclosing angle brackets.
func ResolveByteRange(doc []byte) (byterange.ByteRange, []byte, error) {
	sentinel := []byte(signatureByteRangePlaceholder + "/Contents<" + strings.Repeat("0", byteRangeSentinelZeros))

	idx := patch.FindFirst(doc, sentinel)
	if idx < 0 {
		dumpOnPatternNotFound(doc, "byterange-placeholder")
		return nil, nil, fmt.Errorf("byterange: %w: placeholder sentinel not found", ErrPatternNotFound)
	}

	contentsTagStart := idx + len(signatureByteRangePlaceholder)
	contentsTag := "/Contents<"
	contentOffset := int64(contentsTagStart + len(contentsTag))
	contentLength := int64(contentsPlaceholderNibbles)

	fileLen := int64(len(doc))
	secondStart := contentOffset + contentLength + 1 // one past the closing '>'
	rng := byterange.New(0, contentOffset, secondStart, fileLen-secondStart)

	padded, err := rng.ToFixedWidthString(byteRangeFieldWidth)
	if err != nil {
		return nil, nil, fmt.Errorf("byterange: %w", err)
	}
	replacement := []byte("/ByteRange[" + padded + "]")

	if err := patch.Splice(doc, idx, replacement); err != nil {
		return nil, nil, fmt.Errorf("byterange: %w", err)
	}

	return rng, doc, nil
}

// dumpOnPatternNotFound writes doc to DebugDumpDir, when set, so a
// PatternNotFound failure can be reproduced outside the failing process.
func dumpOnPatternNotFound(doc []byte, label string) {
	if DebugDumpDir == "" {
		return
	}
	name := fmt.Sprintf("%s-%d.pdf", label, time.Now().UnixNano())
	path := filepath.Join(DebugDumpDir, name)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "sign: failed to write debug dump to %s: %v\n", path, err)
	}
}
