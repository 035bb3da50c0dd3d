package sign

import (
	"bytes"
	"strings"
	"testing"
)

func buildPlaceholderDoc(prefixLen, suffixLen int) []byte {
	var b bytes.Buffer
	b.WriteString(strings.Repeat("x", prefixLen))
	b.WriteString(signatureByteRangePlaceholder)
	b.WriteString(contentsPlaceholder())
	b.WriteString(strings.Repeat("y", suffixLen))
	return b.Bytes()
}

func TestResolveByteRangeFindsAndRewritesPlaceholder(t *testing.T) {
	doc := buildPlaceholderDoc(37, 9)

	rng, out, err := ResolveByteRange(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(doc) {
		t.Fatalf("ResolveByteRange must not change document length: got %d want %d", len(out), len(doc))
	}
	if bytes.Contains(out, []byte(signatureByteRangePlaceholder)) {
		t.Fatal("placeholder ByteRange text was not rewritten")
	}
	if rng.Len() != 2 {
		t.Fatalf("expected 2 spans, got %d", rng.Len())
	}

	start0, end0 := rng.Pair(0)
	start1, end1 := rng.Pair(1)
	if start0 != 0 {
		t.Fatalf("first span must start at 0, got %d", start0)
	}
	if end0 >= start1 {
		t.Fatalf("spans must not overlap: first ends at %d, second starts at %d", end0, start1)
	}
	if end1 != int64(len(doc)) {
		t.Fatalf("second span must reach end of file: ends at %d, file is %d bytes", end1, len(doc))
	}

	// The covered spans must sandwich the Contents hex digits and both
	// angle brackets without including any of them.
	contentsTag := []byte("/Contents<")
	tagIdx := bytes.Index(doc, contentsTag)
	hexStart := int64(tagIdx + len(contentsTag))
	hexEnd := hexStart + contentsPlaceholderNibbles
	if end0 > hexStart {
		t.Fatalf("first span must end at or before the opening '<': ends at %d, '<' body starts at %d", end0, hexStart)
	}
	if start1 <= hexEnd {
		t.Fatalf("second span must start after the closing '>': starts at %d, body ends at %d", start1, hexEnd)
	}
}

func TestResolveByteRangeNotFound(t *testing.T) {
	_, _, err := ResolveByteRange([]byte("no placeholder here"))
	if err == nil {
		t.Fatal("expected an error when the placeholder is absent")
	}
}
