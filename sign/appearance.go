package sign

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	pdflib "github.com/digitorus/pdf"

	"github.com/acrosign/pdfsigner/byterange"
	"github.com/acrosign/pdfsigner/internal/acroform"
	"github.com/acrosign/pdfsigner/internal/imagecodec"
)

// byteRangeFieldWidth is the number of characters reserved between the
// /ByteRange brackets, wide enough for four real file offsets without
// ever needing to grow the file once RangeResolver fills it in.
const byteRangeFieldWidth = 25

// signatureByteRangePlaceholder is the fixed-width sentinel /ByteRange
// entry the placeholder /V dictionary carries; its reserved width and
// sentinel values are load-bearing for RangeResolver's pattern match in
// C9 — see rangeresolver.go.
var signatureByteRangePlaceholder = mustPlaceholderByteRange()

func mustPlaceholderByteRange() string {
	padded, err := byterange.New(0, 10000, 20000, 10000).ToFixedWidthString(byteRangeFieldWidth)
	if err != nil {
		panic(err)
	}
	return "/ByteRange[" + padded + "]"
}

// contentsPlaceholderNibbles is the hex-nibble capacity reserved for the
// detached CMS blob: 9000 bytes, generous for RSA-4096 plus a handful of
// certificates and an optional timestamp token.
const contentsPlaceholderNibbles = 18000

func contentsPlaceholder() string {
	return "/Contents<" + strings.Repeat("0", contentsPlaceholderNibbles) + ">"
}

// StagedObject is one indirect object the appearance writer has produced
// for the pending incremental update; objID 0 means "not yet assigned",
// left for the caller's object numbering pass.
type StagedObject struct {
	ObjID  uint32
	Dict   string
	Stream []byte // nil for a non-stream object
}

// ApplyAppearance builds the pending-update objects for one unsigned
// signature field: the image XObjects (if not already cached for this
// user), the updated annotation(s) pointing at the Form XObject, and the
// field object itself carrying a freshly staged /V dictionary.
//
// nextObjID is called to allocate each new indirect object number; it
// must return increasing, previously-unused IDs.
func (c *Context) ApplyAppearance(field acroform.Field, userID string, image imagecodec.Plane, alpha *imagecodec.Plane, nextObjID func() uint32) ([]StagedObject, error) {
	rect, ok := firstRect(field)
	if !ok {
		return nil, ErrMissingRectangle
	}

	var staged []StagedObject

	img, ok := c.imageCache[userID]
	if !ok {
		colorObjID := nextObjID()
		var alphaObjID uint32
		if alpha != nil {
			alphaObjID = nextObjID()
			alphaDict, err := imagecodec.ImageXObject(alphaObjID, *alpha, 0, c.CompressLevel)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
			}
			staged = append(staged, StagedObject{ObjID: alphaObjID, Stream: alphaDict})
		}
		colorDict, err := imagecodec.ImageXObject(colorObjID, image, alphaObjID, c.CompressLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
		}
		staged = append(staged, StagedObject{ObjID: colorObjID, Stream: colorDict})

		formObjID := nextObjID()
		width := rect[2] - rect[0]
		height := rect[3] - rect[1]
		form := imagecodec.FormXObject(formObjID, colorObjID, "Im0", width, height)
		staged = append(staged, StagedObject{ObjID: formObjID, Stream: form})

		img = &cachedImage{colorObjID: colorObjID, alphaObjID: alphaObjID, formObjID: formObjID, width: width, height: height}
		c.imageCache[userID] = img
	}

	sawAnnot := false
	for _, kid := range field.Kids {
		if !kid.HasID {
			continue
		}
		if kid.IsAnnot {
			sawAnnot = true
		}
		staged = append(staged, StagedObject{
			ObjID: kid.ObjectID,
			Dict:  annotationDictWithAppearance(kid, img.formObjID),
		})
	}
	if !sawAnnot {
		log.Printf("appearance: field %q has no /Type /Annot child among its /Kids; proceeding anyway", field.PartialName)
	}

	sigObjID := nextObjID()
	sigDict := c.buildSignatureDict()
	fieldDict := fieldDictWithV(field, sigObjID)

	staged = append(staged,
		StagedObject{ObjID: sigObjID, Dict: sigDict},
		StagedObject{ObjID: field.ObjectID, Dict: fieldDict},
	)

	return staged, nil
}

// firstRect scans a field's /Kids for the first annotation carrying a
// /Rect, per §4.7.
func firstRect(field acroform.Field) ([4]float64, bool) {
	for _, kid := range field.Kids {
		if kid.HasRect {
			return kid.Rect, true
		}
	}
	return [4]float64{}, false
}

// annotationDictWithAppearance re-serializes an annotation's dictionary
// with /AP set to reference the given Form XObject, preserving every
// other key.
func annotationDictWithAppearance(kid acroform.Annotation, formObjID uint32) string {
	var b bytes.Buffer
	serializeValueBody(&b, kid.Value, "AP")
	fmt.Fprintf(&b, " /AP << /N %d 0 R >>", formObjID)
	return b.String()
}

// fieldDictWithV re-serializes a signature field's own dictionary with
// /V set to reference the newly staged signature dictionary.
func fieldDictWithV(field acroform.Field, sigObjID uint32) string {
	var b bytes.Buffer
	serializeValueBody(&b, field.Value, "V")
	fmt.Fprintf(&b, " /V %d 0 R", sigObjID)
	return b.String()
}

// serializeValueBody copies every key of a dict value except skipKey
// into b, in the original key order, as a string suitable for embedding
// between "<<" and ">>". It relies on pdflib.Value.String(), which
// renders PDF syntax for scalar and array values; indirect references
// are preserved since pdflib keeps them as unresolved Value wrappers.
func serializeValueBody(b *bytes.Buffer, v pdflib.Value, skipKey string) {
	for _, key := range v.Keys() {
		if key == skipKey {
			continue
		}
		fmt.Fprintf(b, " /%s %s", key, v.Key(key).String())
	}
}

// buildSignatureDict renders the placeholder /V dictionary in the exact
// key order required by §4.7 (ByteRange immediately before Contents is
// load-bearing for RangeResolver's pattern match).
func (c *Context) buildSignatureDict() string {
	var b bytes.Buffer
	b.WriteString(" /Type /Sig")
	b.WriteString(" /Filter /Adobe.PPKLite")
	b.WriteString(" /SubFilter /adbe.pkcs7.detached")
	b.WriteString(" " + signatureByteRangePlaceholder)
	b.WriteString(" " + contentsPlaceholder())
	fmt.Fprintf(&b, " /M %s", pdfDateTime(c.Info.Date))
	fmt.Fprintf(&b, " /Name %s", pdfTextString(c.Info.Name))
	b.WriteString(" " + propBuild())
	return b.String()
}

// propBuild renders the /Prop_Build dictionary. Its build-date and
// version-hex fields are free parameters per §9's Open Question
// resolution: this module fixes them to constants rather than reading
// real build metadata, since no consumer is known to inspect them.
func propBuild() string {
	return "/Prop_Build << /Filter << /Name /Adobe.PPKLite /R 0 >>" +
		" /App << /Name /pdfsign /R 131328 /OS [/Go] /REx (1.0.0) >> >>"
}
