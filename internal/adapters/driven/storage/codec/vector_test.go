package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVector_LittleEndian(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, EncodeVector([]float32{1}))
	assert.Nil(t, EncodeVector(nil))
}

func TestDecodeVector_PreservesSpecialValues(t *testing.T) {
	in := []float32{0, -1.5, float32(math.Inf(1)), math.SmallestNonzeroFloat32}

	out, err := DecodeVector(EncodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeVector_Misaligned(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMisaligned)
}
