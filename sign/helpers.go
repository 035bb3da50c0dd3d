package sign

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	unicodeenc "golang.org/x/text/encoding/unicode"
)

// pdfString escapes text for embedding in a PDF literal string and
// returns it already wrapped in parentheses. Grounded on
// digitorus-pdfsign's sign/helpers.go::pdfString.
func pdfString(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, ")", "\\)")
	text = strings.ReplaceAll(text, "\r", "\\r")
	return "(" + text + ")"
}

// pdfTextString renders text as a PDF text string (§7.9.2.2 of the PDF
// spec): plain escaped literal syntax for pure ASCII, or a hex string
// holding UTF-16BE with a leading byte-order mark for anything outside
// ASCII, since PDFDocEncoding can't represent most non-Latin signer
// names. Used for /Name so a signer's display name survives round-trip
// through viewers that only honor the UTF-16BE convention.
func pdfTextString(text string) string {
	for _, r := range text {
		if r > unicode.MaxASCII {
			return pdfHexUTF16(text)
		}
	}
	return pdfString(text)
}

func pdfHexUTF16(text string) string {
	encoded, err := utf16BEWithBOM.NewEncoder().String(text)
	if err != nil {
		return pdfString(text)
	}
	return "<" + strings.ToUpper(hex.EncodeToString([]byte(encoded))) + ">"
}

var utf16BEWithBOM = unicodeenc.UTF16(unicodeenc.BigEndian, unicodeenc.UseBOM)

// pdfDateTime formats t as a PDF date string. Every signature this
// module produces is timestamped in UTC, so unlike the teacher's
// pdfDateTime (which computes a local zone offset) this always emits
// the fixed "+00'00'" offset.
func pdfDateTime(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("(D:%04d%02d%02d%02d%02d%02d+00'00')",
		u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second())
}

// leftPad pads s with zeros on the left to width characters.
func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
