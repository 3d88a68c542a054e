package voice

import (
	"github.com/solacevoice/solace/pkg/provider/tts"
	"github.com/solacevoice/solace/pkg/store"
)

// Phase is the coordinator's current position in the turn cycle.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseCapturing    Phase = "capturing"
	PhaseTranscribing Phase = "transcribing"
	PhaseScreening    Phase = "screening"
	PhaseGenerating   Phase = "generating"
	PhaseSynthesizing Phase = "synthesizing"
	PhasePlaying      Phase = "playing"
	PhaseError        Phase = "error"
)

// Sink receives coordinator events for delivery to the client. Methods are
// called from coordinator goroutines and must not block.
type Sink interface {
	// PhaseChanged fires on every phase transition.
	PhaseChanged(phase Phase)

	// TurnPersisted fires after a turn is written to the journal.
	TurnPersisted(turn store.Turn)

	// SpeechReady delivers the synthesized reply for playback.
	SpeechReady(speech *tts.Speech)

	// HaltPlayback tells the client to stop the current clip immediately.
	HaltPlayback()

	// CrisisBanner shows the dismissible advisory banner.
	CrisisBanner(level string)

	// CrisisRedirect forces navigation to the helpline resource.
	CrisisRedirect(url string)

	// Notice carries soft instructions, e.g. that no speech was detected
	// or that microphone access is required.
	Notice(text string)

	// Failed reports a turn that ended in the error state.
	Failed(message string)
}
