// Package resampler converts mono float sample streams between sample rates.
//
// Capture devices rarely run at 16 kHz, and the live endpoint may announce
// output at a rate other than the playback rate, so both directions go
// through a Resampler. The conversion is streaming: state is carried across
// Process calls, so consecutive blocks of one stream must go through the same
// Resampler.
package resampler
