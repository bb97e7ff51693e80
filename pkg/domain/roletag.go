package domain

import (
	"bytes"
	"strings"

	dErrors "rwaledger/pkg/domain-errors"
)

// RoleTagLength is the fixed width of an identity role tag.
const RoleTagLength = 32

// RoleTag is a short identity attribute such as "ACCREDITED", stored fixed-width
// so it compares byte-for-byte. The zero value means "no role".
type RoleTag [RoleTagLength]byte

// ParseRoleTag encodes s into a RoleTag. The last byte is reserved as a NUL
// terminator, so at most 31 bytes fit. NUL bytes are rejected because they would
// not survive the String round-trip.
func ParseRoleTag(s string) (RoleTag, error) {
	var r RoleTag
	if len(s) > RoleTagLength-1 {
		return r, dErrors.New(dErrors.CodeInvalidInput, "role tag must be at most 31 bytes")
	}
	if strings.IndexByte(s, 0) >= 0 {
		return r, dErrors.New(dErrors.CodeInvalidInput, "role tag cannot contain NUL bytes")
	}
	copy(r[:], s)
	return r, nil
}

// MustParseRoleTag panics on invalid input.
func MustParseRoleTag(s string) RoleTag {
	r, err := ParseRoleTag(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r RoleTag) String() string {
	return string(bytes.TrimRight(r[:], "\x00"))
}

// IsZero reports whether the tag is empty.
func (r RoleTag) IsZero() bool {
	return r == RoleTag{}
}

func (r RoleTag) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RoleTag) UnmarshalText(text []byte) error {
	parsed, err := ParseRoleTag(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
