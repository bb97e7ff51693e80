package domain

import (
	"strconv"
	"strings"

	dErrors "rwaledger/pkg/domain-errors"
)

// Jurisdiction is an ISO 3166-1 numeric country or region code (e.g. 840 for the US).
// Zero means "unset" and is never allowlisted by genesis validation.
type Jurisdiction uint16

// MaxJurisdiction is the largest code in the ISO numeric range.
const MaxJurisdiction = 999

// NewJurisdiction validates an integer code.
func NewJurisdiction(code int) (Jurisdiction, error) {
	if code < 0 || code > MaxJurisdiction {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "jurisdiction must be between 0 and 999")
	}
	return Jurisdiction(code), nil
}

// ParseJurisdiction parses a decimal code such as "840" or "036".
func ParseJurisdiction(s string) (Jurisdiction, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "jurisdiction must be numeric")
	}
	return NewJurisdiction(code)
}

func (j Jurisdiction) String() string {
	return strconv.Itoa(int(j))
}
