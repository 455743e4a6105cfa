package service

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/domain"
)

func TestGenerateCode_UsesAlphabet(t *testing.T) {
	code, err := generateCode(bytes.NewReader([]byte{0, 31, 32, 255, 8, 100}))
	require.NoError(t, err)
	assert.Equal(t, "A9A9JE", code)
	assert.True(t, domain.ValidCode(code))
}

func TestGenerateCode_ShortRead(t *testing.T) {
	_, err := generateCode(strings.NewReader("abc"))
	assert.Error(t, err)
}

func TestResolveCode(t *testing.T) {
	code, tripID, err := ResolveCode("  abc234 ")
	require.NoError(t, err)
	assert.Equal(t, "ABC234", code)
	assert.Empty(t, tripID)

	code, tripID, err = ResolveCode(`{"type":"DELIVERY_CONFIRMATION","code":"ABC234","tripId":"trip-1","companyId":"company-1"}`)
	require.NoError(t, err)
	assert.Equal(t, "ABC234", code)
	assert.Equal(t, "trip-1", tripID)

	for _, bad := range []string{"", "ABC10O", "ABCDEFG", `{"type":"DELIVERY_CONFIRMATION","code":"ABC234"}`, "{not json"} {
		_, _, err := ResolveCode(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}
