package sign

import (
	"strings"
	"testing"
	"time"
)

func TestPdfStringEscapesSpecialCharacters(t *testing.T) {
	got := pdfString(`a (b) \c`)
	want := `(a \(b\) \\c)`
	if got != want {
		t.Fatalf("pdfString = %q, want %q", got, want)
	}
}

func TestPdfTextStringASCIIUsesLiteralForm(t *testing.T) {
	got := pdfTextString("Jane Doe")
	if !strings.HasPrefix(got, "(") {
		t.Fatalf("expected ASCII text to use literal-string form, got %q", got)
	}
}

func TestPdfTextStringNonASCIIUsesUTF16Hex(t *testing.T) {
	got := pdfTextString("José")
	if !strings.HasPrefix(got, "<FEFF") {
		t.Fatalf("expected UTF-16BE-with-BOM hex string, got %q", got)
	}
	if !strings.HasSuffix(got, ">") {
		t.Fatalf("expected hex string to close with >, got %q", got)
	}
}

func TestPdfDateTimeAlwaysUTC(t *testing.T) {
	got := pdfDateTime(time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 5*3600)))
	if got != "(D:20260101220405+00'00')" {
		t.Fatalf("pdfDateTime = %q", got)
	}
}
