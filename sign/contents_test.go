package sign

import (
	"bytes"
	"errors"
	"testing"
)

func TestPatchContentsSplicesHexEncodedBlob(t *testing.T) {
	doc := buildPlaceholderDoc(10, 5)
	blob := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	if err := PatchContents(doc, blob); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(doc, []byte("/Contents<deadbeef")) {
		t.Fatalf("expected hex-encoded blob spliced after /Contents<, got: %q", doc)
	}
}

func TestPatchContentsTooLarge(t *testing.T) {
	doc := buildPlaceholderDoc(10, 5)
	huge := bytes.Repeat([]byte{0xFF}, contentsPlaceholderNibbles/2+1)

	err := PatchContents(doc, huge)
	if !errors.Is(err, ErrCMSTooLarge) {
		t.Fatalf("err = %v, want wrapping ErrCMSTooLarge", err)
	}
}

func TestPatchContentsNotFound(t *testing.T) {
	err := PatchContents([]byte("no placeholder"), []byte{0x01})
	if err == nil {
		t.Fatal("expected an error when the Contents placeholder is absent")
	}
}
