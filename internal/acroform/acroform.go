// Package acroform traverses /Root/AcroForm/Fields, classifies each field,
// and extracts the record of any existing /V signature dictionary.
//
// Grounded on the Rust reference's acro_form.rs::load_field_list (field
// classification: Btn/Tx/Ch/Sig, the /SV warning, the Signed-vs-Unsigned
// split on /Filter or /Contents presence) and on digitorus-pdfsign's
// sign/pdfsignature.go::fetchExistingSignatures for the /Root/AcroForm
// traversal idiom using github.com/digitorus/pdf's pdf.Value API. /FT
// inheritance to children lacking their own (left unimplemented, dead
// code, in the Rust reference's InheritableFields) is completed here per
// the data model's inheritance invariant, following the same
// parent-then-override merge shape as benoitkugler-pdf's
// FormFieldInheritable.merge().
package acroform

import (
	"log"

	pdflib "github.com/digitorus/pdf"

	"github.com/acrosign/pdfsigner/byterange"
)

// Kind classifies an AcroForm field.
type Kind int

const (
	Unknown Kind = iota
	Button
	Text
	Choice
	SignatureUnsigned
	SignatureSigned
)

func (k Kind) String() string {
	switch k {
	case Button:
		return "Button"
	case Text:
		return "Text"
	case Choice:
		return "Choice"
	case SignatureUnsigned:
		return "Signature-Unsigned"
	case SignatureSigned:
		return "Signature-Signed"
	default:
		return "Unknown"
	}
}

// SignedRecord is the extracted content of an existing /V signature
// dictionary, present only on SignatureSigned fields.
type SignedRecord struct {
	Filter    string
	SubFilter string
	Contents  []byte
	Cert      [][]byte
	ByteRange byterange.ByteRange
	Name      string
}

// Annotation is one /Kids child of a field — typically a Widget
// annotation carrying the on-page /Rect.
type Annotation struct {
	ObjectID uint32
	HasID    bool
	Value    pdflib.Value
	Rect     [4]float64
	HasRect  bool
	IsAnnot  bool
}

// Field is one node of the AcroForm field tree, as classified by Scan.
type Field struct {
	ObjectID      uint32
	HasObjectID   bool
	PartialName   string
	AlternateName string
	Kind          Kind
	Signed        *SignedRecord
	Kids          []Annotation
	Value         pdflib.Value
}

// Scan walks /Root/AcroForm/Fields and returns the flattened, classified
// field list. A missing /AcroForm or /Fields yields an empty result, not
// an error.
func Scan(r *pdflib.Reader) ([]Field, error) {
	root := r.Trailer().Key("Root")
	acroForm := root.Key("AcroForm")
	if acroForm.IsNull() {
		log.Println("acroform: document has no /AcroForm; treating as zero signature fields")
		return nil, nil
	}

	fields := acroForm.Key("Fields")
	if fields.IsNull() {
		return nil, nil
	}

	return scanList(fields, "")
}

func scanList(list pdflib.Value, inheritedFT string) ([]Field, error) {
	var out []Field

	for i := 0; i < list.Len(); i++ {
		item := list.Index(i)

		ownFT := ""
		if ft := item.Key("FT"); !ft.IsNull() {
			ownFT = ft.Name()
		}
		effectiveFT := ownFT
		if effectiveFT == "" {
			effectiveFT = inheritedFT
		}

		kids := item.Key("Kids")
		if !kids.IsNull() && kidsAreSubfields(kids) {
			children, err := scanList(kids, effectiveFT)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
			continue
		}

		if effectiveFT == "" {
			// Neither this node nor any ancestor carries /FT: not a form
			// field the scanner has any classification for.
			continue
		}

		field, err := classify(item, effectiveFT, kids)
		if err != nil {
			return nil, err
		}
		out = append(out, field)
	}

	return out, nil
}

// kidsAreSubfields reports whether a /Kids array holds further field
// nodes (each carrying its own /T) rather than plain Widget annotations
// for this same field.
func kidsAreSubfields(kids pdflib.Value) bool {
	if kids.Len() == 0 {
		return false
	}
	for i := 0; i < kids.Len(); i++ {
		if kids.Index(i).Key("T").IsNull() {
			return false
		}
	}
	return true
}

func classify(item pdflib.Value, ft string, kids pdflib.Value) (Field, error) {
	field := Field{
		Value: item,
	}
	if ptr := item.GetPtr(); ptr.GetID() != 0 {
		field.ObjectID = ptr.GetID()
		field.HasObjectID = true
	}
	if t := item.Key("T"); !t.IsNull() {
		field.PartialName = t.Text()
	}
	if tu := item.Key("TU"); !tu.IsNull() {
		field.AlternateName = tu.Text()
	}
	field.Kids = annotations(kids)

	switch ft {
	case "Btn":
		field.Kind = Button
	case "Tx":
		field.Kind = Text
	case "Ch":
		field.Kind = Choice
	case "Sig":
		field.Kind = classifySignature(item)
		if field.Kind == SignatureSigned {
			rec, err := extractSignedRecord(item)
			if err != nil {
				return Field{}, err
			}
			field.Signed = rec
		}
	default:
		log.Printf("acroform: field %q has unknown /FT %q; retaining as Unknown", field.PartialName, ft)
		field.Kind = Unknown
	}

	return field, nil
}

func classifySignature(item pdflib.Value) Kind {
	if !item.Key("SV").IsNull() {
		log.Println("acroform: /SV (seed value) is not supported for signature fields")
	}

	v := item.Key("V")
	if v.IsNull() {
		return SignatureUnsigned
	}
	if !v.Key("Filter").IsNull() || !v.Key("Contents").IsNull() {
		return SignatureSigned
	}
	return SignatureUnsigned
}

func extractSignedRecord(item pdflib.Value) (*SignedRecord, error) {
	v := item.Key("V")
	rec := &SignedRecord{}

	if filter := v.Key("Filter"); !filter.IsNull() {
		rec.Filter = filter.Name()
	}
	if sub := v.Key("SubFilter"); !sub.IsNull() {
		rec.SubFilter = sub.Name()
	}
	if contents := v.Key("Contents"); !contents.IsNull() {
		rec.Contents = []byte(contents.RawString())
	}
	if name := v.Key("Name"); !name.IsNull() {
		rec.Name = name.Text()
	}
	if cert := v.Key("Cert"); !cert.IsNull() {
		if cert.Kind() == pdflib.Array {
			for i := 0; i < cert.Len(); i++ {
				rec.Cert = append(rec.Cert, []byte(cert.Index(i).RawString()))
			}
		} else {
			rec.Cert = append(rec.Cert, []byte(cert.RawString()))
		}
	}
	if br := v.Key("ByteRange"); !br.IsNull() {
		vals := make([]int64, br.Len())
		for i := 0; i < br.Len(); i++ {
			vals[i] = br.Index(i).Int64()
		}
		rec.ByteRange = byterange.ByteRange(vals)
	}

	return rec, nil
}

func annotations(kids pdflib.Value) []Annotation {
	if kids.IsNull() {
		return nil
	}
	out := make([]Annotation, 0, kids.Len())
	for i := 0; i < kids.Len(); i++ {
		kid := kids.Index(i)
		ann := Annotation{Value: kid}
		if ptr := kid.GetPtr(); ptr.GetID() != 0 {
			ann.ObjectID = ptr.GetID()
			ann.HasID = true
		}
		if t := kid.Key("Type"); !t.IsNull() && t.Name() == "Annot" {
			ann.IsAnnot = true
		}
		if rect := kid.Key("Rect"); !rect.IsNull() && rect.Len() >= 4 {
			ann.HasRect = true
			ann.Rect = [4]float64{
				rect.Index(0).Float64(),
				rect.Index(1).Float64(),
				rect.Index(2).Float64(),
				rect.Index(3).Float64(),
			}
		}
		out = append(out, ann)
	}
	return out
}
