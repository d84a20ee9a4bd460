// Package codec encodes embedding vectors for storage.
// Vectors are stored as little-endian IEEE 754 float32 values.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrMisaligned indicates a byte slice whose length is not a multiple of 4.
var ErrMisaligned = errors.New("vector bytes not a multiple of 4")

// EncodeVector converts a []float32 to a byte slice for storage.
func EncodeVector(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector converts a byte slice back to []float32.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, ErrMisaligned
	}
	if len(data) == 0 {
		return nil, nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats, nil
}
