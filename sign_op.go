package pdfsign

import (
	"fmt"
	"time"

	"github.com/acrosign/pdfsigner/internal/acroform"
	"github.com/acrosign/pdfsigner/sign"
)

// Sign drives one signing round per user in users, in the order given,
// each reloading the document produced by the previous user (§3's
// Lifecycle, §9's re-entrant document state). A user with no matching
// field in the document is simply a no-op round: nextSignableField finds
// nothing for it and the bytes pass through unchanged.
//
// Two fields bound to the same user_id share one decoded appearance
// image and Form XObject (§8's image-dedup invariant) because they are
// signed within the same sign.Context's image cache; crossing a user
// boundary starts a fresh Context and therefore a fresh cache, which is
// correct since different users never share an appearance image.
//
// Idempotence: a document whose fields are all Signature-Signed already
// produces no signable field for any user and is returned byte-for-byte
// unchanged (scenario 6 of §8).
//
// A per-user round can only ever tell "this field isn't this round's
// user" from "this field's user_id is absent from users entirely" —
// both look identical to a single-user sign.Context.Sign call. So after
// every round has run, unknownUserField reconciles what's left against
// the full users list and reports ErrUnknownUser (§7, §8 scenario 4) for
// any field genuinely nobody was supplied for, instead of leaving it
// silently unsigned.
func (d *Document) Sign(users []UserSignatureInfo) ([]byte, error) {
	current := d.raw
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.UserID] = true
	}

	for _, u := range users {
		color, alpha, err := decodeAppearance(u.SignatureImagePNG)
		if err != nil {
			return current, err
		}

		ctx := sign.NewContext(u.Signer, sign.Info{
			Name: firstNonEmpty(u.UserName, u.UserID),
			Date: time.Now().UTC(),
		}, -1)

		images := sign.UserImages{
			u.UserID: sign.UserImage{UserID: u.UserID, Color: color, Alpha: alpha},
		}

		out, err := ctx.Sign(current, images)
		if err != nil {
			return current, err
		}
		current = out
	}

	if field, ok, err := unknownUserField(current, known); err != nil {
		return current, err
	} else if ok {
		return current, fmt.Errorf("pdfsign: field %q: %w", field, sign.ErrUnknownUser)
	}

	return current, nil
}

// unknownUserField rescans current for a remaining Signature-Unsigned
// field whose binding metadata decodes cleanly but names a user_id not
// in known. A field that fails to decode at all isn't this check's
// concern: the per-user rounds above already logged and skipped it as
// ErrBadFieldMeta.
func unknownUserField(current []byte, known map[string]bool) (string, bool, error) {
	doc, err := newDocument(current)
	if err != nil {
		return "", false, err
	}
	fields, err := doc.Fields()
	if err != nil {
		return "", false, err
	}

	for _, f := range fields {
		if f.Kind != acroform.SignatureUnsigned {
			continue
		}
		meta, err := acroform.DecodeFieldMeta(f.PartialName)
		if err != nil {
			continue
		}
		if !known[meta.UserID] {
			return f.PartialName, true, nil
		}
	}
	return "", false, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
