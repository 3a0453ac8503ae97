// Package pcm provides types and utilities for 16-bit linear PCM audio.
//
// The package defines the formats used by the advisory session (16 kHz mono
// for microphone input, 24 kHz mono for synthesized output), duration math,
// and the float32 <-> little-endian int16 codec used on the wire.
//
// Example usage:
//
//	// 4096 float32 samples from the microphone
//	data := pcm.EncodeFloat32(block)
//
//	// Duration of a received segment
//	d := pcm.L16Mono24K.Duration(int64(len(payload)))
//
//	// Wire MIME type
//	mime := pcm.L16Mono16K.MIMEType() // "audio/pcm;rate=16000"
package pcm
