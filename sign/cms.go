package sign

import (
	"bytes"
	"crypto"
	"encoding/asn1"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/digitorus/pkcs7"
	"github.com/digitorus/timestamp"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/acrosign/pdfsigner/byterange"
)

// oidSigningCertificateV2 and oidSigningCertificate are the signed
// attribute types for ESS SigningCertificateV2 (RFC 5035) and its SHA-1
// predecessor (RFC 2634), chosen by digest algorithm below.
var (
	oidSigningCertificateV2 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 47}
	oidSigningCertificate   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 12}
	oidTimestampToken       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}
)

// getOIDFromHashAlgorithm maps a crypto.Hash to its PKCS#7 digest
// algorithm OID, grounded on digitorus-pdfsign's sign package helper of
// the same name — rebuilt here since the rest of that file was dropped.
func getOIDFromHashAlgorithm(hash crypto.Hash) asn1.ObjectIdentifier {
	switch hash {
	case crypto.SHA1:
		return asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	case crypto.SHA384:
		return asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	case crypto.SHA512:
		return asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
	default:
		return asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1} // SHA-256
	}
}

// ProduceCMS signs the bytes covered by rng's two spans and returns a
// detached, DER-encoded CMS SignedData blob (content-type id-data). The
// signer's own certificate chain (excluding its own leaf, which pkcs7
// adds separately) is carried along; an ESS SigningCertificateV2 signed
// attribute binds the signature to the specific signing certificate.
//
// Grounded on digitorus-pdfsign's sign/pdfsignature.go::createSignature
// and ::createSigningCertificateAttribute.
func (c *Context) ProduceCMS(doc []byte, rng byterange.ByteRange) ([]byte, error) {
	if err := ValidateSignerCertificateMatch(c.Signer.Signer, c.Signer.Certificate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCMSFailure, err)
	}

	var signContent bytes.Buffer
	for i := 0; i < rng.Len(); i++ {
		start, end := rng.Pair(i)
		signContent.Write(doc[start:end])
	}

	signedData, err := pkcs7.NewSignedData(signContent.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: new signed data: %v", ErrCMSFailure, err)
	}
	signedData.SetDigestAlgorithm(getOIDFromHashAlgorithm(c.Signer.DigestAlgorithm))

	signingCertAttr, err := c.signingCertificateAttribute()
	if err != nil {
		return nil, fmt.Errorf("%w: signing certificate attribute: %v", ErrCMSFailure, err)
	}

	signerConfig := pkcs7.SignerInfoConfig{
		ExtraSignedAttributes: []pkcs7.Attribute{*signingCertAttr},
	}

	if err := signedData.AddSignerChain(c.Signer.Certificate, c.Signer.Signer, c.Signer.CertificateChain, signerConfig); err != nil {
		return nil, fmt.Errorf("%w: add signer chain: %v", ErrCMSFailure, err)
	}

	// PDF signatures are detached: the signed content (the document
	// bytes covered by ByteRange) is never embedded in the CMS blob.
	signedData.Detach()

	if c.Signer.TSA.URL != "" {
		c.attachTimestamp(signedData)
	}

	der, err := signedData.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: finish: %v", ErrCMSFailure, err)
	}
	return der, nil
}

// signingCertificateAttribute builds the ESS SigningCertificateV2 (or,
// for SHA-1, the older SigningCertificate) attribute binding the
// signature to the signer's exact certificate.
func (c *Context) signingCertificateAttribute() (*pkcs7.Attribute, error) {
	hash := c.Signer.DigestAlgorithm.New()
	hash.Write(c.Signer.Certificate.Raw)

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SigningCertificate(V2)
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // certs
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ESSCertID(V2)
				if c.Signer.DigestAlgorithm != crypto.SHA1 && c.Signer.DigestAlgorithm != crypto.SHA256 {
					b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
						b.AddASN1ObjectIdentifier(getOIDFromHashAlgorithm(c.Signer.DigestAlgorithm))
					})
				}
				b.AddASN1OctetString(hash.Sum(nil))
			})
		})
	})

	der, err := b.Bytes()
	if err != nil {
		return nil, err
	}

	attr := &pkcs7.Attribute{
		Type:  oidSigningCertificateV2,
		Value: asn1.RawValue{FullBytes: der},
	}
	if c.Signer.DigestAlgorithm == crypto.SHA1 {
		attr.Type = oidSigningCertificate
	}
	return attr, nil
}

// attachTimestamp requests an RFC 3161 token covering the just-produced
// signature value and attaches it as an unauthenticated attribute. Per
// §5.1, a failure here only logs a warning: timestamping is an optional
// enrichment, never a reason to fail a signing round.
func (c *Context) attachTimestamp(signedData *pkcs7.SignedData) {
	psd := signedData.GetSignedData()
	if len(psd.SignerInfos) == 0 {
		return
	}

	token, err := c.requestTimestamp(psd.SignerInfos[0].EncryptedDigest)
	if err != nil {
		log.Printf("sign: timestamp request failed, continuing unstamped: %v", err)
		return
	}

	if _, err := pkcs7.Parse(token); err != nil {
		log.Printf("sign: timestamp token failed to parse, continuing unstamped: %v", err)
		return
	}

	attr := pkcs7.Attribute{Type: oidTimestampToken, Value: asn1.RawValue{FullBytes: token}}
	if err := psd.SignerInfos[0].SetUnauthenticatedAttributes([]pkcs7.Attribute{attr}); err != nil {
		log.Printf("sign: failed to attach timestamp attribute, continuing unstamped: %v", err)
	}
}

// requestTimestamp performs the RFC 3161 request/response round trip
// against the configured TSA. Grounded on
// digitorus-pdfsign's sign/pdfsignature.go::GetTSA.
func (c *Context) requestTimestamp(digest []byte) ([]byte, error) {
	tsReq, err := timestamp.CreateRequest(bytes.NewReader(digest), &timestamp.RequestOptions{
		Hash:         c.Signer.DigestAlgorithm,
		Certificates: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.Signer.TSA.URL, bytes.NewReader(tsReq))
	if err != nil {
		return nil, fmt.Errorf("prepare request to %s: %w", c.Signer.TSA.URL, err)
	}
	req.Header.Set("Content-Type", "application/timestamp-query")
	req.Header.Set("Content-Transfer-Encoding", "binary")
	if c.Signer.TSA.Username != "" && c.Signer.TSA.Password != "" {
		req.SetBasicAuth(c.Signer.TSA.Username, c.Signer.TSA.Password)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s: %w", c.Signer.TSA.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("non-success response (%s): %s", strconv.Itoa(resp.StatusCode), body)
	}

	ts, err := timestamp.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return ts.RawToken, nil
}
