// Package sign implements the per-field signing pipeline: resolving a
// field's appearance, serializing an incremental update, computing its
// ByteRange, producing the detached CMS signature, and splicing the
// result back into the document bytes.
//
// Grounded on digitorus-pdfsign's sign.SignContext (the same "single
// mutable context threaded through a sequence of small methods" shape),
// narrowed to the single CertType/appearance model this module needs.
package sign

import (
	"crypto"
	"crypto/x509"
	"time"

	"github.com/acrosign/pdfsigner/internal/imagecodec"
)

// TSA configures an optional RFC 3161 timestamp authority.
type TSA struct {
	URL      string
	Username string
	Password string
}

// Signer carries the key material used to produce every signature in a
// run. All fields are signed with the same identity; SPEC_FULL.md's
// per-user binding only selects which on-page image accompanies each
// signature, not which key signs it.
type Signer struct {
	Signer           crypto.Signer
	Certificate      *x509.Certificate
	CertificateChain []*x509.Certificate
	DigestAlgorithm  crypto.Hash
	TSA              TSA
}

// Info supplies the human-readable fields copied into each signature's
// /V dictionary and into Prop_Build.
type Info struct {
	Name     string
	Location string
	Reason   string
	Date     time.Time
}

// UserImage is one user's on-page appearance image, already decoded.
type UserImage struct {
	UserID string
	Color  imagecodec.Plane
	Alpha  *imagecodec.Plane
}

// Context is the mutable state threaded through one field's signing
// pass: the document bytes as they stand after every previously-signed
// field, plus the identity and imagery needed to sign the next one.
type Context struct {
	Signer Signer
	Info   Info

	// CompressLevel is the zlib compression level (1-9, or -1 for the
	// flate default) used for the appearance XObject streams written
	// into each incremental update.
	CompressLevel int

	// imageCache holds each user's decoded color/alpha planes and the
	// object IDs of their already-written Form/Image XObjects, keyed by
	// user ID, so a user signing multiple fields across a run reuses
	// one copy of their image instead of re-encoding it per field.
	imageCache map[string]*cachedImage
}

type cachedImage struct {
	colorObjID uint32
	alphaObjID uint32
	formObjID  uint32
	width      float64
	height     float64
}

// NewContext builds a fresh signing context. images is keyed by user ID.
func NewContext(signer Signer, info Info, compressLevel int) *Context {
	return &Context{
		Signer:        signer,
		Info:          info,
		CompressLevel: compressLevel,
		imageCache:    make(map[string]*cachedImage),
	}
}
