// Package pdfsign signs PDF AcroForm signature fields with per-user visible
// appearances and PKCS#7/CMS SignedData, one incremental update per field.
//
// The public surface mirrors the engine's three verbs: Read parses a
// document, (*Document).Sign produces the signed bytes, and Write emits
// them to a sink. Everything else (byte-range accounting, incremental
// rewriting, AcroForm traversal) lives in the sign and internal/acroform
// packages and is reached only through Document.
package pdfsign

import (
	"bytes"
	"fmt"
	"io"

	pdflib "github.com/digitorus/pdf"

	"github.com/acrosign/pdfsigner/internal/acroform"
)

// Document is an immutable, already-parsed PDF revision. It holds both the
// raw bytes (needed to build the next incremental update) and the parsed
// object table (needed to traverse the AcroForm field tree).
type Document struct {
	raw    []byte
	reader *pdflib.Reader
}

// Fields returns the document's AcroForm signature fields in tree order,
// classified per §4.5. A document with no /AcroForm returns an empty slice
// and no error.
func (d *Document) Fields() ([]acroform.Field, error) {
	fields, err := acroform.Scan(d.reader)
	if err != nil {
		return nil, fmt.Errorf("pdfsign: scanning AcroForm fields: %w", err)
	}
	return fields, nil
}

// Bytes returns the document's current raw bytes. Callers that only need
// the parsed bytes without signing (scenario 2 of §8: no /AcroForm) can
// pass this straight to Write.
func (d *Document) Bytes() []byte {
	return d.raw
}

func newDocument(raw []byte) (*Document, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("pdfsign: %w: %v", ErrParse, err)
	}
	return &Document{raw: raw, reader: reader}, nil
}

// Read parses a PDF from r into a Document. size must be the exact byte
// length backing r, matching digitorus/pdf's own NewReader contract.
func Read(r io.ReaderAt, size int64) (*Document, error) {
	raw := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(r, 0, size), raw); err != nil {
		return nil, fmt.Errorf("pdfsign: %w: reading input: %v", ErrParse, err)
	}
	return newDocument(raw)
}
