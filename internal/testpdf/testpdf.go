// Package testpdf builds minimal, hand-assembled PDF byte streams for
// tests across this module — a single classic-xref-table document with a
// one-page /Pages tree and an /AcroForm carrying whatever fields the
// caller asks for. It exists purely to give unit and integration tests
// real bytes to parse with github.com/digitorus/pdf, the same way
// digitorus-pdfsign's own test fixtures under testfiles/ do, without
// needing to check binary fixtures into the tree.
package testpdf

import (
	"bytes"
	"fmt"
)

// Builder assembles a single-revision PDF, tracking object offsets so it
// can emit a correct classic xref table.
type Builder struct {
	buf     bytes.Buffer
	offsets map[int]int
	nextID  int
}

// NewBuilder starts a fresh document with the PDF header already written.
func NewBuilder() *Builder {
	b := &Builder{offsets: make(map[int]int), nextID: 1}
	b.buf.WriteString("%PDF-1.5\n%\xe2\xe3\xcf\xd3\n")
	return b
}

// Reserve allocates the next free object number without writing anything.
func (b *Builder) Reserve() int {
	id := b.nextID
	b.nextID++
	return id
}

// WriteObject writes a non-stream indirect object with the given body
// (the bytes between "<<" and ">>", exclusive).
func (b *Builder) WriteObject(id int, dict string) {
	b.offsets[id] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n<<%s>>\nendobj\n", id, dict)
}

// WriteStream writes an indirect stream object; /Length is computed and
// inserted automatically.
func (b *Builder) WriteStream(id int, dict string, body []byte) {
	b.offsets[id] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n<<%s /Length %d>>\nstream\n", id, dict, len(body))
	b.buf.Write(body)
	b.buf.WriteString("\nendstream\nendobj\n")
}

// Finish writes the classic xref table, trailer and startxref footer, and
// returns the complete document bytes.
func (b *Builder) Finish(rootID int) []byte {
	xrefStart := b.buf.Len()
	maxID := 0
	for id := range b.offsets {
		if id > maxID {
			maxID = id
		}
	}

	b.buf.WriteString("xref\n")
	fmt.Fprintf(&b.buf, "0 %d\n", maxID+1)
	b.buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= maxID; id++ {
		if off, ok := b.offsets[id]; ok {
			fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
		} else {
			b.buf.WriteString("0000000000 00000 f \n")
		}
	}

	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root %d 0 R >>\n", maxID+1, rootID)
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", xrefStart)

	return b.buf.Bytes()
}

// FieldSpec describes one AcroForm field to embed in a SignatureDocument.
type FieldSpec struct {
	// PartialName becomes the field's /T. Leave empty for an
	// already-signed field with no binding metadata to re-decode.
	PartialName string
	// Signed, if true, gives the field a /V dictionary with a populated
	// ByteRange/Contents so the scanner classifies it Signature-Signed.
	Signed bool
	// Rect is the widget annotation rectangle; required for unsigned
	// fields (AppearanceWriter needs it), optional for signed ones.
	Rect [4]float64
	// NoRect omits the /Kids annotation entirely (used to exercise
	// MissingRectangle).
	NoRect bool
}

// SignatureDocument builds a one-page PDF whose AcroForm carries exactly
// the given signature fields, each as a separate field-object +
// widget-annotation pair. It returns the complete bytes and the object ID
// assigned to each field, in input order.
func SignatureDocument(specs []FieldSpec) (doc []byte, fieldObjIDs []int) {
	b := NewBuilder()

	catalogID := b.Reserve()
	pagesID := b.Reserve()
	pageID := b.Reserve()
	contentsID := b.Reserve()
	acroFormID := b.Reserve()

	fieldIDs := make([]int, len(specs))
	widgetIDs := make([]int, len(specs))
	for i := range specs {
		fieldIDs[i] = b.Reserve()
		if !specs[i].NoRect {
			widgetIDs[i] = b.Reserve()
		}
	}

	for i, spec := range specs {
		var fieldDict bytes.Buffer
		fieldDict.WriteString(" /FT /Sig")
		if spec.PartialName != "" {
			fmt.Fprintf(&fieldDict, " /T (%s)", spec.PartialName)
		}
		if !spec.NoRect {
			fmt.Fprintf(&fieldDict, " /Kids [%d 0 R]", widgetIDs[i])
		}
		if spec.Signed {
			r := spec.Rect
			fmt.Fprintf(&fieldDict,
				" /V << /Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached /ByteRange [0 100 200 50] /Contents <%s> /Name (Existing Signer) >>",
				"aa00")
			_ = r
		}
		b.WriteObject(fieldIDs[i], fieldDict.String())

		if !spec.NoRect {
			r := spec.Rect
			widgetDict := fmt.Sprintf(" /Type /Annot /Subtype /Widget /Rect [%g %g %g %g] /Parent %d 0 R /P %d 0 R",
				r[0], r[1], r[2], r[3], fieldIDs[i], pageID)
			b.WriteObject(widgetIDs[i], widgetDict)
		}
	}

	var annots bytes.Buffer
	annots.WriteString("[")
	for i, spec := range specs {
		if spec.NoRect {
			continue
		}
		if annots.Len() > 1 {
			annots.WriteString(" ")
		}
		fmt.Fprintf(&annots, "%d 0 R", widgetIDs[i])
	}
	annots.WriteString("]")

	b.WriteObject(catalogID, fmt.Sprintf(" /Type /Catalog /Pages %d 0 R /AcroForm %d 0 R", pagesID, acroFormID))
	b.WriteObject(pagesID, fmt.Sprintf(" /Type /Pages /Kids [%d 0 R] /Count 1", pageID))
	b.WriteObject(pageID, fmt.Sprintf(" /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents %d 0 R /Annots %s",
		pagesID, contentsID, annots.String()))
	b.WriteStream(contentsID, "", []byte(""))

	var fieldsArray bytes.Buffer
	fieldsArray.WriteString("[")
	for i, id := range fieldIDs {
		if i > 0 {
			fieldsArray.WriteString(" ")
		}
		fmt.Fprintf(&fieldsArray, "%d 0 R", id)
	}
	fieldsArray.WriteString("]")
	b.WriteObject(acroFormID, fmt.Sprintf(" /Fields %s", fieldsArray.String()))

	return b.Finish(catalogID), fieldIDs
}

// EmptyDocument builds a minimal one-page PDF with no /AcroForm at all.
func EmptyDocument() []byte {
	b := NewBuilder()
	catalogID := b.Reserve()
	pagesID := b.Reserve()
	pageID := b.Reserve()
	contentsID := b.Reserve()

	b.WriteObject(catalogID, fmt.Sprintf(" /Type /Catalog /Pages %d 0 R", pagesID))
	b.WriteObject(pagesID, fmt.Sprintf(" /Type /Pages /Kids [%d 0 R] /Count 1", pageID))
	b.WriteObject(pageID, fmt.Sprintf(" /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents %d 0 R", pagesID, contentsID))
	b.WriteStream(contentsID, "", []byte(""))

	return b.Finish(catalogID)
}
