package sign

import (
	"errors"
	"fmt"
)

// Sentinel errors per-field outcomes are classified against. The
// orchestrator treats ErrUnknownUser, ErrBadFieldMeta and
// ErrMissingRectangle as skip-with-warning; everything else aborts the
// run.
var (
	// ErrUnknownUser is returned when a field's decoded user ID has no
	// matching entry in the signing request.
	ErrUnknownUser = errors.New("sign: no signer supplied for this field's user")

	// ErrBadFieldMeta is returned when a field's /T partial name does not
	// decode as base64(JSON {"userId": "..."}).
	ErrBadFieldMeta = errors.New("sign: field partial name is not valid binding metadata")

	// ErrMissingRectangle is returned when an unsigned signature field has
	// no /Kids annotation carrying a /Rect.
	ErrMissingRectangle = errors.New("sign: signature field has no widget rectangle")

	// ErrImageDecode is returned when a user's appearance image fails to
	// decode as PNG.
	ErrImageDecode = errors.New("sign: failed to decode appearance image")

	// ErrCMSFailure is returned when PKCS#7/CMS signature construction
	// fails for a reason other than oversize output.
	ErrCMSFailure = errors.New("sign: failed to produce CMS signature")

	// ErrCMSTooLarge is returned when the produced signature, hex-encoded,
	// would not fit in the reserved /Contents placeholder.
	ErrCMSTooLarge = errors.New("sign: CMS signature exceeds reserved Contents space")

	// ErrPatternNotFound is returned when a byte pattern the serializer
	// expects to find (a placeholder, a prior xref) is absent.
	ErrPatternNotFound = errors.New("sign: expected byte pattern not found in document")

	// ErrLoopGuard is returned when a signing run exceeds the maximum
	// number of fields processed, guarding against a Scan/Sign cycle
	// that keeps reporting the same field as unsigned.
	ErrLoopGuard = errors.New("sign: exceeded maximum field iteration count")
)

// maxFieldIterations bounds the restart-scan-from-0 loop in the
// orchestrator. No real document has anywhere near this many signature
// fields; its purpose is purely to turn a scanner/classifier bug into a
// bounded error instead of an infinite loop.
const maxFieldIterations = 10000

// DebugDumpDir, when non-empty, is the directory ParseError writes the
// offending document bytes to before returning, to make ErrPatternNotFound
// failures reproducible outside the failing process. Empty by default;
// tests and callers that want dumps set it explicitly.
var DebugDumpDir = ""

// DiagnosticError wraps a sentinel error with the field it occurred on,
// for logging and for the orchestrator's per-field skip decision.
type DiagnosticError struct {
	Field string
	Err   error
}

func (e *DiagnosticError) Error() string {
	return fmt.Sprintf("sign: field %q: %v", e.Field, e.Err)
}

func (e *DiagnosticError) Unwrap() error { return e.Err }

// newDiagnosticError wraps err with the offending field's partial name.
func newDiagnosticError(field string, err error) *DiagnosticError {
	return &DiagnosticError{Field: field, Err: err}
}
