package acroform

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// FieldMeta is the user-binding metadata embedded in a signature field's
// partial name.
type FieldMeta struct {
	UserID string `json:"userId"`
}

// DecodeFieldMeta interprets a field's /T partial name as base64(JSON
// {"userId": "..."}). Per §4.6, any decoding or parse failure is reported
// as an error the caller treats as skip-with-warning, not fatal: the
// field may belong to another tool entirely.
func DecodeFieldMeta(partialName string) (FieldMeta, error) {
	raw, err := base64.StdEncoding.DecodeString(partialName)
	if err != nil {
		return FieldMeta{}, fmt.Errorf("fieldmeta: %q is not valid base64: %w", partialName, err)
	}

	var meta FieldMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return FieldMeta{}, fmt.Errorf("fieldmeta: %q does not decode to the expected JSON object: %w", partialName, err)
	}
	if meta.UserID == "" {
		return FieldMeta{}, fmt.Errorf("fieldmeta: %q decoded but carries no userId", partialName)
	}

	return meta, nil
}

// EncodeFieldMeta is the inverse of DecodeFieldMeta, used by tests and by
// callers constructing fixture documents.
func EncodeFieldMeta(userID string) string {
	raw, _ := json.Marshal(FieldMeta{UserID: userID})
	return base64.StdEncoding.EncodeToString(raw)
}
