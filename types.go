package pdfsign

import (
	"errors"
	"fmt"

	"github.com/acrosign/pdfsigner/internal/imagecodec"
	"github.com/acrosign/pdfsigner/sign"
)

// UserSignatureInfo is one caller-supplied signer, matched against the
// signature fields in a document by user_id (§3's UserSignatureInfo).
// Each user brings its own key material: two fields bound to the same
// UserID but signed in the same round will still reuse one decoded
// appearance image (§8's image-dedup invariant) but are otherwise signed
// independently, each with its own ByteRange-covering CMS blob.
type UserSignatureInfo struct {
	UserID            string
	UserName          string
	UserEmail         string
	SignatureImagePNG []byte
	Signer            sign.Signer
}

// ErrParse reports a malformed PDF or a document missing expected
// dictionary keys (§7's ParseError). It is fatal: Read/Sign return it
// without attempting partial recovery.
var ErrParse = errors.New("pdfsign: malformed or unreadable PDF")

// Re-exported sentinel errors so callers can errors.Is against the
// taxonomy in §7 without importing the sign package directly.
var (
	ErrMissingRectangle = sign.ErrMissingRectangle
	ErrBadFieldMeta     = sign.ErrBadFieldMeta
	ErrUnknownUser      = sign.ErrUnknownUser
	ErrImageDecode      = sign.ErrImageDecode
	ErrCMSFailure       = sign.ErrCMSFailure
	ErrCMSTooLarge      = sign.ErrCMSTooLarge
	ErrPatternNotFound  = sign.ErrPatternNotFound
	ErrLoopGuard        = sign.ErrLoopGuard
)

func decodeAppearance(png []byte) (imagecodec.Plane, *imagecodec.Plane, error) {
	color, alpha, err := imagecodec.Decode(png)
	if err != nil {
		return imagecodec.Plane{}, nil, fmt.Errorf("%w: %v", sign.ErrImageDecode, err)
	}
	return color, alpha, nil
}
