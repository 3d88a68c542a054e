// Package voice implements the turn coordinator: the per-session state
// machine that drives one conversation cycle from microphone capture through
// transcription, safety screening, reply generation, and speech synthesis to
// playback.
//
// The coordinator is single-flight. A capture can only start from Idle or,
// as a barge-in, from Playing. Every cycle start and every cancel increments
// an epoch token; async stage results carrying a stale epoch are discarded,
// so a cancelled turn can never write into the next one.
package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/solacevoice/solace/internal/observe"
	"github.com/solacevoice/solace/internal/reply"
	"github.com/solacevoice/solace/internal/resilience"
	"github.com/solacevoice/solace/internal/safety"
	"github.com/solacevoice/solace/pkg/audio"
	"github.com/solacevoice/solace/pkg/provider/embeddings"
	"github.com/solacevoice/solace/pkg/provider/stt"
	"github.com/solacevoice/solace/pkg/provider/tts"
	"github.com/solacevoice/solace/pkg/store"
)

// DefaultHelplineURL is the crisis redirect target when the deployment does
// not configure its own.
const DefaultHelplineURL = "/emergency?critical=true"

const minCaptureDuration = 150 * time.Millisecond

// Turn outcomes recorded on the turns counter.
const (
	outcomePlayed    = "played"
	outcomeCancelled = "cancelled"
	outcomeBarged    = "barged"
	outcomeError     = "error"
	outcomeNoSpeech  = "no_speech"
	outcomeCrisis    = "crisis"
)

// Config wires a [Coordinator].
type Config struct {
	ParticipantID string
	SessionID     string

	Journal  store.Journal
	Screener *safety.Screener
	Replies  *reply.Generator
	Prefs    reply.Preferences

	// STT and TTS are the session-scoped degradation selectors.
	STT *resilience.Selector[stt.Transcriber]
	TTS *resilience.Selector[tts.Synthesizer]

	// Embedder and Recall index participant turns for semantic recall.
	// Both nil disables indexing.
	Embedder embeddings.Provider
	Recall   store.RecallIndex

	Sink    Sink
	Metrics *observe.Metrics

	// HelplineURL overrides DefaultHelplineURL.
	HelplineURL string
}

// Coordinator runs the turn cycle for one voice session. All exported
// methods are safe for concurrent use.
type Coordinator struct {
	cfg         Config
	helplineURL string

	mu        sync.Mutex
	phase     Phase
	sessionID string
	epoch     uint64
	buf       *audio.CaptureBuffer
	opus      *audio.OpusDecoder
	micDenied bool
	turnStart time.Time
	cancelRun context.CancelFunc
}

// NewCoordinator creates a [Coordinator] in the Idle phase.
func NewCoordinator(cfg Config) *Coordinator {
	url := cfg.HelplineURL
	if url == "" {
		url = DefaultHelplineURL
	}
	return &Coordinator{
		cfg:         cfg,
		helplineURL: url,
		phase:       PhaseIdle,
		sessionID:   cfg.SessionID,
	}
}

// SessionID returns the journal session the coordinator writes to.
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ResetSession points the coordinator at a fresh journal session, cancelling
// any in-flight turn. Used after the participant clears their history.
func (c *Coordinator) ResetSession(sessionID string) {
	c.Cancel()
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

// Phase returns the coordinator's current phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// setPhase transitions to next and notifies the sink. Must be called with
// c.mu held.
func (c *Coordinator) setPhase(next Phase) {
	if c.phase == next {
		return
	}
	c.phase = next
	c.cfg.Sink.PhaseChanged(next)
}

// MicPermissionDenied records that the client cannot capture audio. Voice
// capture is disabled until the client reports the permission re-granted;
// the coordinator stays Idle and the client is told how to re-enable it.
// Text turns still work.
func (c *Coordinator) MicPermissionDenied() {
	c.mu.Lock()
	c.micDenied = true
	c.mu.Unlock()
	c.cfg.Sink.Notice("Microphone access is required for voice chat. Please enable it in your browser settings.")
}

// MicPermissionGranted re-enables voice capture after the client reports
// that microphone access was restored.
func (c *Coordinator) MicPermissionGranted() {
	c.mu.Lock()
	c.micDenied = false
	c.mu.Unlock()
}

// StartCapture begins a new capture. Allowed from Idle, or from Playing as a
// barge-in: playback halts, the undelivered reply audio is discarded, and
// the already persisted text turns stay. Any other phase ignores the start.
func (c *Coordinator) StartCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.micDenied {
		c.cfg.Sink.Notice("Microphone access is required for voice chat. Please enable it in your browser settings.")
		return
	}

	switch c.phase {
	case PhaseIdle:
	case PhasePlaying:
		c.cfg.Sink.HaltPlayback()
		c.recordTurn(outcomeBarged)
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.BargeIns.Add(context.Background(), 1)
		}
	default:
		return
	}

	c.epoch++
	c.turnStart = time.Now()
	c.buf = audio.NewCaptureBuffer()
	c.opus = nil
	c.setPhase(PhaseCapturing)
}

// PushOpus feeds one Opus packet into the current capture. Packets outside
// the Capturing phase are dropped.
func (c *Coordinator) PushOpus(packet []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseCapturing {
		return nil
	}
	if c.opus == nil {
		dec, err := audio.NewOpusDecoder()
		if err != nil {
			return err
		}
		c.opus = dec
	}
	frame, err := c.opus.Decode(packet)
	if err != nil {
		return err
	}
	c.buf.Append(frame)
	return nil
}

// PushPCM feeds raw 16-bit PCM into the current capture.
func (c *Coordinator) PushPCM(data []byte, format audio.Format) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseCapturing {
		return
	}
	c.buf.Append(audio.Frame{Data: data, SampleRate: format.SampleRate, Channels: format.Channels})
}

// StopCapture ends the capture and runs the rest of the turn cycle
// asynchronously. Ignored outside Capturing.
func (c *Coordinator) StopCapture() {
	c.mu.Lock()

	if c.phase != PhaseCapturing {
		c.mu.Unlock()
		return
	}

	buf := c.buf
	c.buf = nil
	c.opus = nil

	if buf == nil || buf.Duration() < minCaptureDuration {
		c.setPhase(PhaseIdle)
		c.mu.Unlock()
		c.cfg.Sink.Notice("I didn't catch that. Could you try again?")
		c.recordTurn(outcomeNoSpeech)
		return
	}

	epoch := c.epoch
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelRun = cancel
	c.setPhase(PhaseTranscribing)
	c.mu.Unlock()

	go c.runTurn(ctx, epoch, buf.WAV())
}

// Cancel discards the current capture or in-flight turn and returns to Idle.
// The epoch increment makes any still-running stage result stale.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseIdle, PhaseError:
		return
	case PhasePlaying:
		c.cfg.Sink.HaltPlayback()
	}

	c.epoch++
	if c.cancelRun != nil {
		c.cancelRun()
		c.cancelRun = nil
	}
	c.buf = nil
	c.opus = nil
	c.recordTurn(outcomeCancelled)
	c.setPhase(PhaseIdle)
}

// PlaybackFinished marks the reply clip as fully played. Ignored outside
// Playing.
func (c *Coordinator) PlaybackFinished() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhasePlaying {
		return
	}
	c.recordTurn(outcomePlayed)
	if c.cfg.Metrics != nil && !c.turnStart.IsZero() {
		c.cfg.Metrics.TurnDuration.Record(context.Background(), time.Since(c.turnStart).Seconds())
	}
	c.setPhase(PhaseIdle)
}

// AcknowledgeError returns the coordinator from Error to Idle.
func (c *Coordinator) AcknowledgeError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseError {
		return
	}
	c.setPhase(PhaseIdle)
}

// SubmitText runs a text-channel turn: screening and reply generation with
// no capture or synthesis. Allowed from Idle only.
func (c *Coordinator) SubmitText(text string) {
	c.mu.Lock()
	if c.phase != PhaseIdle || text == "" {
		c.mu.Unlock()
		return
	}
	c.epoch++
	epoch := c.epoch
	c.turnStart = time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelRun = cancel
	c.setPhase(PhaseScreening)
	c.mu.Unlock()

	go func() {
		defer cancel()
		if _, ok := c.screenAndGenerate(ctx, epoch, text, "text"); !ok {
			return
		}
		c.finish(epoch, outcomePlayed)
	}()
}

// runTurn executes transcribe → screen → generate → synthesize for one
// voice capture. Every transition re-checks the epoch so cancelled cycles
// die quietly.
func (c *Coordinator) runTurn(ctx context.Context, epoch uint64, wav []byte) {
	log := observe.Logger(ctx).With("session_id", c.SessionID())

	text, origin, err := c.transcribe(ctx, wav)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("transcription failed", "error", err)
		c.fail(epoch, "Transcription is unavailable right now. Please try again.")
		return
	}
	if text == "" {
		c.conclude(epoch, PhaseIdle, outcomeNoSpeech, func() {
			c.cfg.Sink.Notice("I didn't catch that. Could you try again?")
		})
		return
	}

	if !c.advance(epoch, PhaseScreening) {
		return
	}

	// Side-channel transcript entry before the conversational flow.
	c.appendTurn(ctx, epoch, store.Turn{
		Author:         store.AuthorSystem,
		Text:           text,
		Origin:         origin,
		TranscriptOnly: true,
	})

	rep, ok := c.screenAndGenerate(ctx, epoch, text, origin)
	if !ok {
		return
	}

	if !c.advance(epoch, PhaseSynthesizing) {
		return
	}
	start := time.Now()
	spoken := tts.StripEmoji(rep.Text)
	speech, err := resilience.Do(c.cfg.TTS, degradeWorthyTTS, func(s tts.Synthesizer) (*tts.Speech, error) {
		return s.Synthesize(ctx, spoken)
	})
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.SynthesizeDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("synthesis failed", "error", err)
		c.fail(epoch, "I wrote you a reply but could not speak it. Please read it on screen.")
		return
	}

	c.conclude(epoch, PhasePlaying, "", func() {
		c.cfg.Sink.SpeechReady(speech)
	})
}

// screenAndGenerate runs the screening and generation stages shared by voice
// and text turns. Returns ok=false when the cycle went stale or ended early
// (crisis override).
func (c *Coordinator) screenAndGenerate(ctx context.Context, epoch uint64, text, origin string) (reply.Reply, bool) {
	res := c.cfg.Screener.Screen(text)

	userTurn, ok := c.appendTurn(ctx, epoch, store.Turn{
		Author:               store.AuthorParticipant,
		Text:                 text,
		SentimentScore:       res.Score,
		SentimentComparative: res.Comparative,
		SentimentLabel:       res.Emotion,
		CrisisLevel:          res.CrisisLevel,
		Origin:               origin,
	})
	if !ok {
		return reply.Reply{}, false
	}
	c.indexTurn(ctx, userTurn)

	switch res.CrisisLevel {
	case store.CrisisCritical:
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.RecordCrisisScreen(ctx, store.CrisisCritical)
		}
		c.conclude(epoch, PhaseIdle, outcomeCrisis, func() {
			c.cfg.Sink.CrisisRedirect(c.helplineURL)
		})
		return reply.Reply{}, false
	case store.CrisisConcern:
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.RecordCrisisScreen(ctx, store.CrisisConcern)
		}
		c.cfg.Sink.CrisisBanner(store.CrisisConcern)
	}

	if !c.advance(epoch, PhaseGenerating) {
		return reply.Reply{}, false
	}

	history, err := c.cfg.Journal.Turns(ctx, c.SessionID())
	if err != nil {
		observe.Logger(ctx).Warn("history read failed, generating without it", "error", err)
		history = nil
	}
	// Drop the just-appended user turn from the history tail; the
	// generator receives it as the live utterance.
	if n := len(history); n > 0 && history[n-1].ID == userTurn.ID {
		history = history[:n-1]
	}

	rep := c.cfg.Replies.Generate(ctx, c.cfg.ParticipantID, c.cfg.Prefs, history, text)

	if _, ok := c.appendTurn(ctx, epoch, store.Turn{
		Author: store.AuthorCompanion,
		Text:   rep.Text,
		Origin: rep.Origin,
	}); !ok {
		return reply.Reply{}, false
	}
	return rep, true
}

// transcribe runs the capture through the STT selector.
func (c *Coordinator) transcribe(ctx context.Context, wav []byte) (text, origin string, err error) {
	start := time.Now()
	defer func() {
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
		}
	}()

	type result struct {
		text   string
		origin string
	}
	res, err := resilience.Do(c.cfg.STT, degradeWorthySTT, func(t stt.Transcriber) (result, error) {
		txt, terr := t.Transcribe(ctx, wav, stt.MimeWAV)
		return result{text: txt, origin: t.Name()}, terr
	})
	if err != nil {
		return "", "", err
	}
	return res.text, res.origin, nil
}

// degradeWorthySTT reports whether a cloud transcription failure should flip
// the session to the local variant. Only credential and quota rejections
// degrade; a transient transport failure fails the capture without giving up
// on the cloud variant for the rest of the session.
func degradeWorthySTT(err error) bool {
	return errors.Is(err, stt.ErrAuth) ||
		errors.Is(err, stt.ErrRateLimited)
}

// degradeWorthyTTS mirrors degradeWorthySTT for the synthesis stage.
func degradeWorthyTTS(err error) bool {
	return errors.Is(err, tts.ErrAuth) ||
		errors.Is(err, tts.ErrRateLimited)
}

// appendTurn persists one turn if the cycle is still current. The sink is
// notified about non-transcript turns.
func (c *Coordinator) appendTurn(ctx context.Context, epoch uint64, turn store.Turn) (store.Turn, bool) {
	if c.stale(epoch) {
		return store.Turn{}, false
	}
	stored, err := c.cfg.Journal.AppendTurn(ctx, c.SessionID(), turn)
	if err != nil {
		observe.Logger(ctx).Error("turn append failed", "error", err)
		c.fail(epoch, "I could not save that message. Please try again.")
		return store.Turn{}, false
	}
	if !turn.TranscriptOnly {
		c.cfg.Sink.TurnPersisted(*stored)
	}
	return *stored, true
}

// indexTurn stores the participant turn's embedding for semantic recall,
// best effort in the background.
func (c *Coordinator) indexTurn(ctx context.Context, turn store.Turn) {
	if c.cfg.Embedder == nil || c.cfg.Recall == nil {
		return
	}
	go func() {
		idxCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		vec, err := c.cfg.Embedder.Embed(idxCtx, turn.Text)
		if err != nil {
			observe.Logger(ctx).Debug("turn embed failed", "error", err)
			return
		}
		if err := c.cfg.Recall.IndexTurn(idxCtx, c.cfg.ParticipantID, turn, vec); err != nil {
			observe.Logger(ctx).Debug("turn index failed", "error", err)
		}
	}()
}

// advance moves to next if epoch is still current. Returns false when the
// cycle went stale.
func (c *Coordinator) advance(epoch uint64, next Phase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return false
	}
	if next == PhaseIdle {
		c.cancelRun = nil
	}
	c.setPhase(next)
	return true
}

// conclude runs emit and then transitions to next under the epoch guard, so
// the event is observed before the phase change it accompanies. Returns
// false when the cycle went stale.
func (c *Coordinator) conclude(epoch uint64, next Phase, outcome string, emit func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return false
	}
	if emit != nil {
		emit()
	}
	if next == PhaseIdle || next == PhaseError {
		c.cancelRun = nil
	}
	c.setPhase(next)
	if outcome != "" {
		c.recordTurn(outcome)
	}
	return true
}

// fail enters the Error phase if the cycle is still current.
func (c *Coordinator) fail(epoch uint64, message string) {
	c.conclude(epoch, PhaseError, outcomeError, func() {
		c.cfg.Sink.Failed(message)
	})
}

// finish returns to Idle and records the outcome if the cycle is current.
func (c *Coordinator) finish(epoch uint64, outcome string) {
	c.conclude(epoch, PhaseIdle, outcome, nil)
}

// stale reports whether epoch has been superseded.
func (c *Coordinator) stale(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch != epoch
}

// recordTurn bumps the turns counter. Callers may hold c.mu; the metric add
// itself never blocks.
func (c *Coordinator) recordTurn(outcome string) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordTurn(context.Background(), outcome)
	}
}
