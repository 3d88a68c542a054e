// Package audio provides the PCM frame types and conversion helpers used by
// the Solace capture path. Client microphones deliver Opus or raw PCM frames
// over the gateway; before transcription the capture buffer normalises
// everything to 16-bit little-endian mono PCM at the speech-to-text sample
// rate (16 kHz).
package audio

import "time"

// STTSampleRate is the sample rate expected by both transcription variants.
const STTSampleRate = 16000

// Frame is a single chunk of audio flowing through the capture path.
type Frame struct {
	// Data is 16-bit little-endian PCM.
	Data []byte

	// SampleRate in Hz (e.g., 48000 for Opus decode output, 16000 for STT).
	SampleRate int

	// Channels: 1 for mono, 2 for interleaved stereo.
	Channels int

	// Timestamp marks when this frame was captured, relative to capture start.
	Timestamp time.Duration
}

// Duration returns the playback duration of the frame's PCM data.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.Data) / (2 * f.Channels)
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Format describes the sample rate and channel count of a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// STTFormat is the normalised format handed to transcription providers.
var STTFormat = Format{SampleRate: STTSampleRate, Channels: 1}
