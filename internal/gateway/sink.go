package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/solacevoice/solace/internal/voice"
	"github.com/solacevoice/solace/pkg/provider/tts"
	"github.com/solacevoice/solace/pkg/store"
)

// writeTimeout bounds a single outbound frame write.
const writeTimeout = 5 * time.Second

// sendBuffer is the outbound event queue depth per connection.
const sendBuffer = 128

// wsSink delivers coordinator events to one websocket client. Events are
// queued on a buffered channel and written by a dedicated goroutine, so the
// coordinator never blocks on a slow client; when the queue overflows, the
// event is dropped and logged.
type wsSink struct {
	conn *websocket.Conn
	out  chan serverMessage
	done chan struct{}
}

var _ voice.Sink = (*wsSink)(nil)

func newWSSink(conn *websocket.Conn) *wsSink {
	s := &wsSink{
		conn: conn,
		out:  make(chan serverMessage, sendBuffer),
		done: make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// close stops the write loop. Pending events are discarded.
func (s *wsSink) close() {
	close(s.done)
}

func (s *wsSink) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.out:
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Error("gateway: marshal event", "type", msg.Type, "error", err)
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err = s.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				// The read loop notices the broken connection and tears
				// the session down; nothing to do here.
				return
			}
		}
	}
}

func (s *wsSink) send(msg serverMessage) {
	select {
	case s.out <- msg:
	default:
		slog.Warn("gateway: outbound queue full, dropping event", "type", msg.Type)
	}
}

func (s *wsSink) PhaseChanged(phase voice.Phase) {
	s.send(serverMessage{Type: evtPhase, Phase: string(phase)})
}

func (s *wsSink) TurnPersisted(turn store.Turn) {
	if turn.TranscriptOnly {
		s.send(serverMessage{Type: evtPartial, Text: turn.Text})
		return
	}
	s.send(serverMessage{Type: evtTurn, Turn: toTurnPayload(turn)})
}

func (s *wsSink) SpeechReady(speech *tts.Speech) {
	s.send(serverMessage{Type: evtSpeech, Speech: &speechPayload{
		Encoding: speech.Encoding,
		Audio:    speech.Audio,
		Plan:     speech.Plan,
	}})
}

func (s *wsSink) HaltPlayback() {
	s.send(serverMessage{Type: evtHalt})
}

func (s *wsSink) CrisisBanner(level string) {
	s.send(serverMessage{Type: evtBanner, Level: level})
}

func (s *wsSink) CrisisRedirect(url string) {
	s.send(serverMessage{Type: evtRedirect, URL: url})
}

func (s *wsSink) Notice(text string) {
	s.send(serverMessage{Type: evtNotice, Text: text})
}

func (s *wsSink) Failed(message string) {
	s.send(serverMessage{Type: evtError, Message: message})
}
