package sign

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	pdflib "github.com/digitorus/pdf"

	"github.com/acrosign/pdfsigner/internal/acroform"
	"github.com/acrosign/pdfsigner/internal/imagecodec"
	"github.com/acrosign/pdfsigner/internal/testpdf"
)

func onePixelPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func scanOneField(t *testing.T, doc []byte) acroform.Field {
	t.Helper()
	r, err := pdflib.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	fields, err := acroform.Scan(r)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	return fields[0]
}

func newTestContext() *Context {
	return NewContext(Signer{}, Info{Name: "Ada Lovelace", Date: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, -1)
}

func TestApplyAppearanceMissingRectangle(t *testing.T) {
	meta := acroform.EncodeFieldMeta("u1")
	doc, _ := testpdf.SignatureDocument([]testpdf.FieldSpec{{PartialName: meta, NoRect: true}})
	field := scanOneField(t, doc)

	color_, alpha, err := imagecodec.Decode(onePixelPNG(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	c := newTestContext()
	nextID := uint32(100)
	_, err = c.ApplyAppearance(field, "u1", color_, alpha, func() uint32 { id := nextID; nextID++; return id })
	if err != ErrMissingRectangle {
		t.Fatalf("err = %v, want ErrMissingRectangle", err)
	}
}

func TestApplyAppearanceStagesExpectedObjects(t *testing.T) {
	meta := acroform.EncodeFieldMeta("u1")
	doc, _ := testpdf.SignatureDocument([]testpdf.FieldSpec{{PartialName: meta, Rect: [4]float64{10, 10, 110, 60}}})
	field := scanOneField(t, doc)

	color_, alpha, err := imagecodec.Decode(onePixelPNG(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	c := newTestContext()
	nextID := uint32(100)
	staged, err := c.ApplyAppearance(field, "u1", color_, alpha, func() uint32 { id := nextID; nextID++; return id })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Color XObject, Form XObject, the annotation, the field object.
	if len(staged) != 4 {
		t.Fatalf("expected 4 staged objects, got %d", len(staged))
	}

	var sawFieldObj bool
	for _, obj := range staged {
		if obj.ObjID == field.ObjectID {
			sawFieldObj = true
			if !bytes.Contains([]byte(obj.Dict), []byte("/V ")) {
				t.Fatalf("field dict missing /V reference: %q", obj.Dict)
			}
		}
	}
	if !sawFieldObj {
		t.Fatal("staged objects do not include the field object itself")
	}

	var sawByteRange, sawContents bool
	sigDict := c.buildSignatureDict()
	byteRangeIdx := bytes.Index([]byte(sigDict), []byte("/ByteRange["))
	contentsIdx := bytes.Index([]byte(sigDict), []byte("/Contents<"))
	if byteRangeIdx == -1 {
		t.Fatal("signature dict missing /ByteRange")
	} else {
		sawByteRange = true
	}
	if contentsIdx == -1 {
		t.Fatal("signature dict missing /Contents")
	} else {
		sawContents = true
	}
	if sawByteRange && sawContents && byteRangeIdx > contentsIdx {
		t.Fatal("/ByteRange must precede /Contents in the signature dictionary")
	}

	// A second field signed by the same user must reuse the cached image
	// objects rather than allocating new ones.
	meta2 := acroform.EncodeFieldMeta("u1")
	doc2, _ := testpdf.SignatureDocument([]testpdf.FieldSpec{{PartialName: meta2, Rect: [4]float64{10, 70, 110, 120}}})
	field2 := scanOneField(t, doc2)
	staged2, err := c.ApplyAppearance(field2, "u1", color_, alpha, func() uint32 { id := nextID; nextID++; return id })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the annotation, a new Form XObject reusing the cached color
	// image, the signature, and the field: the color/alpha planes
	// themselves are not re-staged.
	if len(staged2) >= len(staged) {
		t.Fatalf("expected fewer staged objects on repeat signer, got %d vs first %d", len(staged2), len(staged))
	}
}
