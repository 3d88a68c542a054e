package audio

import (
	"encoding/binary"
	"time"
)

// CaptureBuffer accumulates normalised PCM for one microphone capture.
// Frames are normalised to STTFormat on append; the finished buffer can be
// read back as raw PCM (local transcription) or as a WAV container (cloud
// transcription upload). Not safe for concurrent use — the coordinator owns
// one buffer per capture.
type CaptureBuffer struct {
	pcm     []byte
	elapsed time.Duration
}

// NewCaptureBuffer returns an empty capture buffer.
func NewCaptureBuffer() *CaptureBuffer {
	return &CaptureBuffer{}
}

// Append normalises frame to STTFormat and appends its PCM data.
// Misaligned frames are dropped silently.
func (b *CaptureBuffer) Append(frame Frame) {
	norm := Normalize(frame, STTFormat)
	if len(norm.Data) == 0 {
		return
	}
	b.pcm = append(b.pcm, norm.Data...)
	b.elapsed += norm.Duration()
}

// Len returns the number of buffered PCM bytes.
func (b *CaptureBuffer) Len() int { return len(b.pcm) }

// Duration returns the total buffered audio duration.
func (b *CaptureBuffer) Duration() time.Duration { return b.elapsed }

// PCM returns the buffered 16 kHz mono PCM bytes.
func (b *CaptureBuffer) PCM() []byte { return b.pcm }

// Reset discards all buffered audio.
func (b *CaptureBuffer) Reset() {
	b.pcm = nil
	b.elapsed = 0
}

// WAV returns the buffered audio wrapped in a RIFF/WAVE container suitable
// for a prerecorded transcription upload.
func (b *CaptureBuffer) WAV() []byte {
	return EncodeWAV(b.pcm, STTFormat)
}

// EncodeWAV wraps 16-bit PCM in a minimal RIFF/WAVE header.
func EncodeWAV(pcm []byte, format Format) []byte {
	const headerSize = 44
	out := make([]byte, headerSize+len(pcm))

	byteRate := format.SampleRate * format.Channels * 2
	blockAlign := format.Channels * 2

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], 16) // bits per sample
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[headerSize:], pcm)
	return out
}
