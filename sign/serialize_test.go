package sign

import (
	"bytes"
	"testing"

	pdflib "github.com/digitorus/pdf"

	"github.com/acrosign/pdfsigner/internal/testpdf"
)

func TestSerializeIncrementalUpdateChainsToPriorXref(t *testing.T) {
	prior, fieldIDs := testpdf.SignatureDocument(nil)
	_ = fieldIDs

	update := PendingUpdate{
		Objects: []StagedObject{
			{ObjID: 900, Dict: " /Type /Test"},
		},
		MaxObjID: 900,
	}

	out, err := SerializeIncrementalUpdate(prior, 1, update)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, prior) {
		t.Fatal("incremental update must append to, not replace, the prior bytes")
	}
	if !bytes.Contains(out, []byte("/Prev ")) {
		t.Fatal("trailer must chain back to the prior xref via /Prev")
	}

	r, err := pdflib.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("resulting document does not parse: %v", err)
	}
	obj := r.Trailer().Key("Root")
	if obj.IsNull() {
		t.Fatal("expected Root to still resolve after the incremental update")
	}
}

func TestPriorXrefStartRequiresFooter(t *testing.T) {
	if _, err := priorXrefStart([]byte("not a pdf")); err == nil {
		t.Fatal("expected an error without a startxref footer")
	}
}
