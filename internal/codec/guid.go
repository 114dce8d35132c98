// Package codec translates between stored database values and the domain
// vocabulary: GUID blobs, linear colors, enumerations and the trait catalog.
package codec

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rosterinjector/pkg/domain"
)

// GUIDString renders a 16-byte blob as an uppercase 8-4-4-4-12 string.
func GUIDString(blob []byte) (string, error) {
	u, err := uuid.FromBytes(blob)
	if err != nil {
		return "", domain.FormatError{Reason: fmt.Sprintf("guid blob of %d bytes", len(blob)), Err: err}
	}
	return strings.ToUpper(u.String()), nil
}

// GUIDBytes strips hyphens from s and hex-decodes the 16-byte identity.
func GUIDBytes(s string) ([]byte, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if len(raw) != 32 {
		return nil, domain.FormatError{Reason: fmt.Sprintf("guid %q is not 32 hex digits", s)}
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.FormatError{Reason: fmt.Sprintf("guid %q", s), Err: err}
	}
	b := u[:]
	return append([]byte(nil), b...), nil
}

// MustGUIDBytes is GUIDBytes for constants known to be well formed.
func MustGUIDBytes(s string) []byte {
	b, err := GUIDBytes(s)
	if err != nil {
		panic(err)
	}
	return b
}
