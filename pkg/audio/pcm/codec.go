package pcm

import "encoding/binary"

// EncodeFloat32 converts float samples to little-endian signed 16-bit PCM.
// Samples are clamped to [-1, 1] before scaling, so out-of-range input
// saturates rather than wrapping.
func EncodeFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(FloatToInt16(s)))
	}
	return out
}

// FloatToInt16 clamps s to [-1, 1] and scales it to the int16 range.
func FloatToInt16(s float32) int16 {
	switch {
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return int16(s * 32767)
}

// DecodeInt16 converts little-endian signed 16-bit PCM into float samples
// normalized by 32768.
func DecodeInt16(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, ErrOddLength
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768
	}
	return out, nil
}
