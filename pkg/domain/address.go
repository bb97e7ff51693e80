package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "rwaledger/pkg/domain-errors"
)

// AddressLength is the width of an account identifier in bytes.
const AddressLength = 20

// Address is an opaque fixed-width account identifier.
// The zero value is the null address used as the synthetic mint source.
type Address [AddressLength]byte

// ZeroAddress is the null account.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed hex address.
// All-lowercase and all-uppercase inputs are accepted as-is; mixed-case inputs
// must carry a valid EIP-55 checksum.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be 0x-prefixed")
	}
	digits := s[2:]
	if len(digits) != AddressLength*2 {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be 40 hex digits")
	}
	raw, err := hex.DecodeString(digits)
	if err != nil {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address contains non-hex characters")
	}

	var a Address
	copy(a[:], raw)

	if isMixedCase(digits) && a.Hex()[2:] != digits {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address checksum mismatch")
	}
	return a, nil
}

// MustParseAddress is ParseAddress for constants and tests. It panics on bad input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Hex renders the address with its EIP-55 checksum.
func (a Address) Hex() string {
	lower := hex.EncodeToString(a[:])

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := h.Sum(nil)

	out := []byte(lower)
	for i := range out {
		if out[i] < 'a' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] -= 'a' - 'A'
		}
	}
	return "0x" + string(out)
}

func (a Address) String() string {
	return a.Hex()
}

// IsZero reports whether a is the null address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
