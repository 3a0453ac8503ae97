// Package playback schedules received audio segments for gap-free playback.
//
// A Scheduler keeps a running "next start" offset on an Output's clock. Each
// enqueued Buffer starts at max(next, now) and advances next by its
// duration, so segments that arrive faster than real time play back to back
// and segments that arrive late start immediately. Interrupt stops every
// scheduled segment and resets the offset.
//
// The Scheduler is not safe for concurrent use. Ended notifications from the
// Output arrive on the audio goroutine; they are handed to the dispatch
// function set with WithDispatch so the owner can apply them on its own
// goroutine.
//
// Renderer is a sample-accurate Output that mixes scheduled buffers into
// fixed-size frames. Device outputs drive it from their write loop and use the
// number of rendered samples as the clock.
package playback
