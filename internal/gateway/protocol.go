package gateway

import (
	"time"

	"github.com/solacevoice/solace/pkg/provider/tts"
	"github.com/solacevoice/solace/pkg/store"
)

// Client message types.
const (
	msgLogin        = "login"
	msgLogout       = "logout"
	msgStart        = "start"
	msgStop         = "stop"
	msgCancel       = "cancel"
	msgText         = "text"
	msgAckError     = "ack_error"
	msgPlaybackDone = "playback_done"
	msgMicDenied    = "mic_denied"
	msgMicGranted   = "mic_granted"
)

// Server message types.
const (
	evtPhase    = "phase"
	evtPartial  = "partial"
	evtTurn     = "turn"
	evtSpeech   = "speech"
	evtHalt     = "halt"
	evtBanner   = "banner"
	evtRedirect = "redirect"
	evtNotice   = "notice"
	evtError    = "error"
)

// Audio codecs a client may declare on start. Binary frames following a
// start are interpreted accordingly.
const (
	codecOpus = "opus"
	codecPCM  = "pcm"
)

// clientMessage is one inbound JSON control frame.
type clientMessage struct {
	Type string `json:"type"`

	// ParticipantID accompanies login.
	ParticipantID string `json:"participant_id,omitempty"`

	// Text accompanies text-channel messages.
	Text string `json:"text,omitempty"`

	// Codec, SampleRate, and Channels describe the binary audio frames
	// that follow a start. Codec defaults to opus; sample rate and
	// channels are only meaningful for pcm.
	Codec      string `json:"codec,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// serverMessage is one outbound JSON event frame.
type serverMessage struct {
	Type string `json:"type"`

	// Phase accompanies phase events.
	Phase string `json:"phase,omitempty"`

	// Text carries partial transcripts and notices.
	Text string `json:"text,omitempty"`

	// Turn accompanies turn events.
	Turn *turnPayload `json:"turn,omitempty"`

	// Speech accompanies speech events.
	Speech *speechPayload `json:"speech,omitempty"`

	// Level accompanies banner events.
	Level string `json:"level,omitempty"`

	// URL accompanies redirect events.
	URL string `json:"url,omitempty"`

	// Message accompanies error events.
	Message string `json:"message,omitempty"`
}

// turnPayload is the wire form of a persisted turn.
type turnPayload struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Seq         int       `json:"seq"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	Emotion     string    `json:"emotion,omitempty"`
	Sentiment   float64   `json:"sentiment,omitempty"`
	CrisisLevel string    `json:"crisis_level,omitempty"`
	Origin      string    `json:"origin,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTurnPayload(t store.Turn) *turnPayload {
	return &turnPayload{
		ID:          t.ID,
		SessionID:   t.SessionID,
		Seq:         t.Seq,
		Author:      t.Author,
		Text:        t.Text,
		Emotion:     t.SentimentLabel,
		Sentiment:   t.SentimentComparative,
		CrisisLevel: t.CrisisLevel,
		Origin:      t.Origin,
		CreatedAt:   t.CreatedAt,
	}
}

// speechPayload is the wire form of a synthesis result. Audio is
// base64-encoded by the JSON marshaller; plan output carries the chunk
// sequence instead.
type speechPayload struct {
	Encoding string      `json:"encoding,omitempty"`
	Audio    []byte      `json:"audio,omitempty"`
	Plan     []tts.Chunk `json:"plan,omitempty"`
}
