package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleTag_RoundTrip(t *testing.T) {
	for _, s := range []string{"", "ACCREDITED", "PROFESSIONAL", strings.Repeat("X", 31), "ünïcode"} {
		tag, err := ParseRoleTag(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, tag.String())
		assert.Equal(t, s == "", tag.IsZero())
	}
}

func TestRoleTag_ExactMatch(t *testing.T) {
	a := MustParseRoleTag("ACCREDITED")
	b := MustParseRoleTag("ACCREDITED")
	c := MustParseRoleTag("accredited")
	d := MustParseRoleTag("ACCREDITED ")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "comparison is case-sensitive")
	assert.NotEqual(t, a, d, "trailing whitespace is significant")
}

func TestRoleTag_Rejects(t *testing.T) {
	_, err := ParseRoleTag(strings.Repeat("X", 32))
	require.Error(t, err)

	_, err = ParseRoleTag("ACC\x00REDITED")
	require.Error(t, err)
}
