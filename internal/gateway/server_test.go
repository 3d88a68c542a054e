package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/solacevoice/solace/internal/voice"
	"github.com/solacevoice/solace/pkg/audio"
	"github.com/solacevoice/solace/pkg/provider/tts"
	"github.com/solacevoice/solace/pkg/store"
)

// fakeConversation records every pipeline call.
type fakeConversation struct {
	mu    sync.Mutex
	calls []string
	texts []string
	opus  [][]byte
}

func (f *fakeConversation) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeConversation) StartCapture() { f.record("start") }
func (f *fakeConversation) StopCapture()  { f.record("stop") }
func (f *fakeConversation) Cancel()       { f.record("cancel") }

func (f *fakeConversation) PushOpus(packet []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "opus")
	f.opus = append(f.opus, packet)
	return nil
}

func (f *fakeConversation) PushPCM(data []byte, format audio.Format) { f.record("pcm") }

func (f *fakeConversation) SubmitText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "text")
	f.texts = append(f.texts, text)
}

func (f *fakeConversation) AcknowledgeError()     { f.record("ack_error") }
func (f *fakeConversation) PlaybackFinished()     { f.record("playback_done") }
func (f *fakeConversation) MicPermissionDenied()  { f.record("mic_denied") }
func (f *fakeConversation) MicPermissionGranted() { f.record("mic_granted") }

func (f *fakeConversation) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// waitFor polls until the recorded call list contains name.
func (f *fakeConversation) waitFor(t *testing.T, name string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, c := range f.snapshot() {
			if c == name {
				return
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("call %q never recorded; calls = %v", name, f.snapshot())
}

// fakePort hands out fakeConversations and records lifecycle calls.
type fakePort struct {
	mu      sync.Mutex
	conv    *fakeConversation
	sink    voice.Sink
	logins  []string
	logouts []string
}

func (p *fakePort) Login(_ context.Context, participantID string, sink voice.Sink) (Conversation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, participantID)
	p.conv = &fakeConversation{}
	p.sink = sink
	return p.conv, nil
}

func (p *fakePort) Logout(_ context.Context, participantID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, participantID)
	return nil
}

func (p *fakePort) conversation() *fakeConversation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conv
}

func (p *fakePort) eventSink() voice.Sink {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink
}

// dial connects a test client to a gateway backed by port.
func dial(t *testing.T, port *fakePort) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer(Config{Port: port}).Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, srv.URL+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, msg clientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v, want text", typ)
	}
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

// login waits until the port has handed out a conversation.
func login(t *testing.T, conn *websocket.Conn, port *fakePort, participantID string) *fakeConversation {
	t.Helper()
	sendJSON(t, conn, clientMessage{Type: msgLogin, ParticipantID: participantID})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conv := port.conversation(); conv != nil {
			return conv
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("login never reached the port")
	return nil
}

func TestGateway_ControlFramesDrivePipeline(t *testing.T) {
	port := &fakePort{}
	conn := dial(t, port)
	conv := login(t, conn, port, "p1")

	sendJSON(t, conn, clientMessage{Type: msgStart})
	conv.waitFor(t, "start")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, []byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	conv.waitFor(t, "opus")

	sendJSON(t, conn, clientMessage{Type: msgStop})
	conv.waitFor(t, "stop")

	sendJSON(t, conn, clientMessage{Type: msgPlaybackDone})
	conv.waitFor(t, "playback_done")

	sendJSON(t, conn, clientMessage{Type: msgMicDenied})
	conv.waitFor(t, "mic_denied")

	sendJSON(t, conn, clientMessage{Type: msgMicGranted})
	conv.waitFor(t, "mic_granted")

	sendJSON(t, conn, clientMessage{Type: msgText, Text: "hello"})
	conv.waitFor(t, "text")
	conv.mu.Lock()
	gotText := conv.texts[0]
	conv.mu.Unlock()
	if gotText != "hello" {
		t.Errorf("text = %q, want hello", gotText)
	}
}

func TestGateway_PCMCodecSelection(t *testing.T) {
	port := &fakePort{}
	conn := dial(t, port)
	conv := login(t, conn, port, "p1")

	sendJSON(t, conn, clientMessage{Type: msgStart, Codec: codecPCM, SampleRate: 16000, Channels: 1})
	conv.waitFor(t, "start")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, make([]byte, 320)); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	conv.waitFor(t, "pcm")
}

func TestGateway_AudioBeforeLoginIgnored(t *testing.T) {
	port := &fakePort{}
	conn := dial(t, port)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, []byte{0x01}); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	sendJSON(t, conn, clientMessage{Type: msgStart})

	// Login afterwards still works; nothing was delivered to a pipeline.
	conv := login(t, conn, port, "p1")
	sendJSON(t, conn, clientMessage{Type: msgCancel})
	conv.waitFor(t, "cancel")
	for _, c := range conv.snapshot() {
		if c == "opus" || c == "start" {
			t.Errorf("pre-login frame reached the pipeline: %v", conv.snapshot())
		}
	}
}

func TestGateway_SinkEventsReachClient(t *testing.T) {
	port := &fakePort{}
	conn := dial(t, port)
	login(t, conn, port, "p1")
	sink := port.eventSink()

	sink.PhaseChanged(voice.PhaseCapturing)
	evt := readEvent(t, conn)
	if evt.Type != evtPhase || evt.Phase != "capturing" {
		t.Errorf("event = %+v, want phase capturing", evt)
	}

	sink.TurnPersisted(store.Turn{Author: store.AuthorSystem, Text: "hi there", TranscriptOnly: true})
	evt = readEvent(t, conn)
	if evt.Type != evtPartial || evt.Text != "hi there" {
		t.Errorf("event = %+v, want partial", evt)
	}

	sink.TurnPersisted(store.Turn{
		ID:             "t1",
		Author:         store.AuthorParticipant,
		Text:           "hi there",
		SentimentLabel: "Neutral",
		CrisisLevel:    store.CrisisNone,
	})
	evt = readEvent(t, conn)
	if evt.Type != evtTurn || evt.Turn == nil || evt.Turn.Emotion != "Neutral" {
		t.Errorf("event = %+v, want turn with emotion", evt)
	}

	sink.SpeechReady(&tts.Speech{Plan: []tts.Chunk{{Text: "hello", Rate: 1, Pitch: 1}}})
	evt = readEvent(t, conn)
	if evt.Type != evtSpeech || evt.Speech == nil || len(evt.Speech.Plan) != 1 {
		t.Errorf("event = %+v, want speech plan", evt)
	}

	sink.CrisisRedirect("/emergency?critical=true")
	evt = readEvent(t, conn)
	if evt.Type != evtRedirect || evt.URL != "/emergency?critical=true" {
		t.Errorf("event = %+v, want redirect", evt)
	}

	sink.HaltPlayback()
	if evt = readEvent(t, conn); evt.Type != evtHalt {
		t.Errorf("event = %+v, want halt", evt)
	}
}

func TestGateway_DisconnectLogsOut(t *testing.T) {
	port := &fakePort{}
	conn := dial(t, port)
	login(t, conn, port, "p1")

	conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		port.mu.Lock()
		n := len(port.logouts)
		port.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("disconnect did not log the participant out")
}

func TestGateway_ExplicitLogout(t *testing.T) {
	port := &fakePort{}
	conn := dial(t, port)
	conv := login(t, conn, port, "p1")

	sendJSON(t, conn, clientMessage{Type: msgLogout})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		port.mu.Lock()
		n := len(port.logouts)
		port.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	// Post-logout control frames are dropped.
	sendJSON(t, conn, clientMessage{Type: msgStart})
	time.Sleep(30 * time.Millisecond)
	for _, c := range conv.snapshot() {
		if c == "start" {
			t.Error("control frame reached the pipeline after logout")
		}
	}
}
