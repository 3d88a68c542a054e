package whisper

import (
	"testing"

	"github.com/solacevoice/solace/pkg/audio"
	"github.com/solacevoice/solace/pkg/provider/stt"
)

func TestExtractPCM_RawPassthrough(t *testing.T) {
	in := []byte{1, 2, 3, 4}
	got, err := extractPCM(in, stt.MimePCM16)
	if err != nil {
		t.Fatalf("extractPCM: %v", err)
	}
	if &got[0] != &in[0] {
		t.Fatal("expected raw PCM to pass through unchanged")
	}
}

func TestExtractPCM_StripsWAVHeader(t *testing.T) {
	pcm := []byte{10, 20, 30, 40}
	wav := audio.EncodeWAV(pcm, audio.STTFormat)

	got, err := extractPCM(wav, stt.MimeWAV)
	if err != nil {
		t.Fatalf("extractPCM: %v", err)
	}
	if len(got) != len(pcm) {
		t.Fatalf("len = %d, want %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], pcm[i])
		}
	}
}

func TestExtractPCM_RejectsUnknownMime(t *testing.T) {
	if _, err := extractPCM([]byte{1}, "audio/mp3"); err == nil {
		t.Fatal("expected error for unsupported mime type")
	}
}

func TestPCMToFloat32(t *testing.T) {
	// 16384 is exactly 0.5 in normalised float; -32768 is -1.0.
	pcm := []byte{0x00, 0x40, 0x00, 0x80}
	samples := pcmToFloat32(pcm)
	if len(samples) != 2 {
		t.Fatalf("len = %d, want 2", len(samples))
	}
	if samples[0] != 0.5 {
		t.Fatalf("samples[0] = %f, want 0.5", samples[0])
	}
	if samples[1] != -1.0 {
		t.Fatalf("samples[1] = %f, want -1.0", samples[1])
	}
}

func TestNew_RequiresModelPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty modelPath")
	}
}
