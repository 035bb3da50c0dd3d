package sign

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/acrosign/pdfsigner/internal/patch"
)

// PatchContents hex-encodes the CMS DER blob and splices it into the
// /Contents<...> placeholder RangeResolver left untouched. The trailing
// zero nibbles beyond the encoded blob remain as padding; PDF readers
// stop at the first matching '>', so padding after the real hex digits
// is ignored.
func PatchContents(doc []byte, cms []byte) error {
	encoded := hex.EncodeToString(cms)
	if len(encoded) > contentsPlaceholderNibbles {
		return fmt.Errorf("%w: signature is %d hex nibbles, reserved space is %d", ErrCMSTooLarge, len(encoded), contentsPlaceholderNibbles)
	}

	sentinel := []byte("/Contents<" + strings.Repeat("0", byteRangeSentinelZeros))
	idx := patch.FindFirst(doc, sentinel)
	if idx < 0 {
		dumpOnPatternNotFound(doc, "contents-placeholder")
		return fmt.Errorf("contents: %w: placeholder not found", ErrPatternNotFound)
	}

	replacement := []byte("/Contents<" + encoded)
	return patch.Splice(doc, idx, replacement)
}
