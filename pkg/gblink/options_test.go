package gblink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHostDigits_ZeroPadsEachOctet(t *testing.T) {
	digits, err := encodeHostDigits("192.168.1.42")
	require.NoError(t, err)
	assert.Equal(t, "1", digits[0])
	assert.Equal(t, "9", digits[1])
	assert.Equal(t, "2", digits[2])
	assert.Equal(t, "1", digits[3])
	assert.Equal(t, "6", digits[4])
	assert.Equal(t, "8", digits[5])
	assert.Equal(t, "0", digits[9])
	assert.Equal(t, "4", digits[10])
	assert.Equal(t, "2", digits[11])
}

func TestEncodeHostDigits_RejectsWrongOctetCount(t *testing.T) {
	_, err := encodeHostDigits("10.0.0")
	assert.ErrorIs(t, err, ErrInvalidHostOctet)
}

func TestEncodeHostDigits_RejectsOutOfRangeOctet(t *testing.T) {
	_, err := encodeHostDigits("10.0.0.999")
	assert.ErrorIs(t, err, ErrInvalidHostOctet)
}

func TestEncodeHostDigits_RejectsNonNumericOctet(t *testing.T) {
	_, err := encodeHostDigits("10.0.0.abc")
	assert.ErrorIs(t, err, ErrInvalidHostOctet)
}
