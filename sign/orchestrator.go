package sign

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	pdflib "github.com/digitorus/pdf"

	"github.com/acrosign/pdfsigner/internal/acroform"
)

// UserImages maps the user_id decoded out of a field's binding metadata
// (§4.6) to that user's already-decoded appearance image.
type UserImages map[string]UserImage

// Sign drives the full signing round over input: repeatedly finds the
// next unsigned signature field bound to a known user, stages its
// appearance and a placeholder /V, serializes an incremental update,
// resolves and rewrites its /ByteRange, signs the covered bytes, and
// patches the resulting CMS blob into /Contents — reloading and
// rescanning from the top after every success, since an incremental
// update can shift or renumber the live field set (§4.12).
//
// Fields whose binding metadata fails to decode, or whose user_id has no
// entry in images, or that carry no usable widget rectangle, are logged
// and skipped rather than aborting the round. If no field is ever
// signed, input is returned unchanged.
//
// A single Sign call only ever sees one round's worth of users, so it
// cannot itself tell "this field's user hasn't had its round yet" from
// "this field's user_id appears nowhere at all" — both present as an
// entry missing from images. Distinguishing the two, and failing with
// ErrUnknownUser for the latter, is the caller's job once every round
// has run; see (*pdfsign.Document).Sign.
func (c *Context) Sign(input []byte, images UserImages) ([]byte, error) {
	current := input
	skipped := make(map[string]bool)
	versionBumped := false
	var nextID uint32
	attempts := 0

	for {
		reader, err := pdflib.NewReader(bytes.NewReader(current), int64(len(current)))
		if err != nil {
			return nil, fmt.Errorf("sign: opening document: %w", err)
		}
		if nextID == 0 {
			nextID = nextFreeObjectID(reader)
		}
		root := reader.Trailer().Key("Root")
		rootPtr := root.GetPtr()
		rootObjID := rootPtr.GetID()

		fields, err := acroform.Scan(reader)
		if err != nil {
			return nil, fmt.Errorf("sign: scanning AcroForm fields: %w", err)
		}

		field, meta, found := nextSignableField(fields, images, skipped)
		if !found {
			return current, nil
		}

		attempts++
		if attempts >= maxFieldIterations {
			return nil, ErrLoopGuard
		}

		img := images[meta.UserID]
		allocate := func() uint32 {
			id := nextID
			nextID++
			return id
		}

		staged, err := c.ApplyAppearance(field, meta.UserID, img.Color, img.Alpha, allocate)
		if err != nil {
			if errors.Is(err, ErrMissingRectangle) {
				log.Printf("sign: field %q has no widget rectangle; skipping", field.PartialName)
				skipped[fieldKey(field)] = true
				continue
			}
			return nil, newDiagnosticError(field.PartialName, err)
		}

		update := PendingUpdate{Objects: staged}
		if !versionBumped {
			update.Objects = append(update.Objects, StagedObject{ObjID: rootObjID, Dict: catalogVersionBump(root)})
			versionBumped = true
		}
		update.MaxObjID = nextID - 1

		serialized, err := SerializeIncrementalUpdate(current, rootObjID, update)
		if err != nil {
			return nil, newDiagnosticError(field.PartialName, err)
		}

		rng, serialized, err := ResolveByteRange(serialized)
		if err != nil {
			return nil, newDiagnosticError(field.PartialName, err)
		}

		cms, err := c.ProduceCMS(serialized, rng)
		if err != nil {
			return nil, newDiagnosticError(field.PartialName, err)
		}

		if err := PatchContents(serialized, cms); err != nil {
			return nil, newDiagnosticError(field.PartialName, err)
		}

		current = serialized
	}
}

// nextSignableField returns the first Signature-Unsigned field, in scan
// order, not already in skipped, whose partial name decodes to a user
// present in images. Fields that fail decoding or whose user_id isn't in
// this round's images are added to skipped as a side effect so the
// caller never reconsiders them, even though the next scan will surface
// the same bytes again. Whether the latter case means "wrong round" or
// "no such user anywhere" isn't decidable here; see Sign's doc comment.
func nextSignableField(fields []acroform.Field, images UserImages, skipped map[string]bool) (acroform.Field, acroform.FieldMeta, bool) {
	for _, f := range fields {
		if f.Kind != acroform.SignatureUnsigned {
			continue
		}
		key := fieldKey(f)
		if skipped[key] {
			continue
		}

		meta, err := acroform.DecodeFieldMeta(f.PartialName)
		if err != nil {
			log.Printf("sign: field %q: %v; skipping", f.PartialName, err)
			skipped[key] = true
			continue
		}
		if _, ok := images[meta.UserID]; !ok {
			log.Printf("sign: field %q binds to user %q, which no signer was supplied for; skipping", f.PartialName, meta.UserID)
			skipped[key] = true
			continue
		}
		return f, meta, true
	}
	return acroform.Field{}, acroform.FieldMeta{}, false
}

func fieldKey(f acroform.Field) string {
	if f.HasObjectID {
		return fmt.Sprintf("obj:%d", f.ObjectID)
	}
	return "name:" + f.PartialName
}

// nextFreeObjectID returns the first object number not already occupied
// by the cross-reference table. ItemCount counts object numbers 0..N-1,
// so N itself is the first free slot.
func nextFreeObjectID(reader *pdflib.Reader) uint32 {
	return uint32(reader.XrefInformation.ItemCount)
}

// catalogVersionBump re-serializes the document Catalog with /Version
// set to /1.5, raised once per signing round the first time a field is
// signed (§2.2 supplemental feature; the Rust reference's
// acro_form.rs-adjacent catalog handling raises this on first write).
func catalogVersionBump(root pdflib.Value) string {
	var b bytes.Buffer
	serializeValueBody(&b, root, "Version")
	b.WriteString(" /Version /1.5")
	return b.String()
}
