// Package gateway exposes the voice companion over WebSocket. Each client
// connection carries JSON control frames (login, start, stop, cancel, text,
// acknowledgements) and binary audio frames for the active capture; the
// server pushes phase transitions, transcripts, persisted turns, synthesized
// speech, and crisis directives back over the same connection.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/solacevoice/solace/internal/health"
	"github.com/solacevoice/solace/internal/observe"
	"github.com/solacevoice/solace/internal/voice"
	"github.com/solacevoice/solace/pkg/audio"
)

// maxFrameSize bounds a single inbound frame. Audio arrives in sub-second
// chunks well under this.
const maxFrameSize = 1 << 20

// shutdownTimeout bounds graceful HTTP server shutdown.
const shutdownTimeout = 10 * time.Second

// Conversation is the per-participant turn pipeline the gateway drives. It
// is satisfied by [voice.Coordinator].
type Conversation interface {
	StartCapture()
	StopCapture()
	Cancel()
	PushOpus(packet []byte) error
	PushPCM(data []byte, format audio.Format)
	SubmitText(text string)
	AcknowledgeError()
	PlaybackFinished()
	MicPermissionDenied()
	MicPermissionGranted()
}

// Port is what the gateway needs from the application runtime: a pipeline
// per signed-in participant, torn down again on logout.
type Port interface {
	// Login builds the participant's pipeline, delivering events to sink.
	Login(ctx context.Context, participantID string, sink voice.Sink) (Conversation, error)

	// Logout tears the participant's pipeline down. Unknown participants
	// are a no-op.
	Logout(ctx context.Context, participantID string) error
}

// Config configures a [Server].
type Config struct {
	// ListenAddr is the gateway's TCP address (e.g., ":8080").
	ListenAddr string

	// MetricsAddr is the Prometheus scrape endpoint address. Empty
	// disables it.
	MetricsAddr string

	// Port connects the gateway to the application runtime.
	Port Port

	// Metrics instruments HTTP handling. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Health serves /healthz and /readyz. Nil skips registration.
	Health *health.Handler
}

// Server is the WebSocket gateway.
type Server struct {
	cfg     Config
	metrics *observe.Metrics
}

// NewServer creates a [Server] from cfg.
func NewServer(cfg Config) *Server {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Server{cfg: cfg, metrics: m}
}

// Handler returns the gateway's HTTP handler: /ws plus health endpoints,
// wrapped in the observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	if s.cfg.Health != nil {
		s.cfg.Health.Register(mux)
	}
	return observe.Middleware(s.metrics)(mux)
}

// Run serves the gateway (and, when configured, the metrics endpoint) until
// ctx is cancelled, then shuts both down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.ListenAddr, Handler: s.Handler()}

	var metricsSrv *http.Server
	if s.cfg.MetricsAddr != "" {
		mm := http.NewServeMux()
		mm.Handle("GET /metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: s.cfg.MetricsAddr, Handler: mm}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("gateway listening", "addr", s.cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway: serve: %w", err)
		}
		return nil
	})
	if metricsSrv != nil {
		g.Go(func() error {
			slog.Info("metrics listening", "addr", s.cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("gateway: metrics serve: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			err = errors.Join(err, metricsSrv.Shutdown(shutdownCtx))
		}
		return err
	})

	return g.Wait()
}

// handleWS upgrades the request and runs the connection's session loop.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("gateway: websocket accept failed", "error", err)
		return
	}
	ws.SetReadLimit(maxFrameSize)

	c := &clientConn{
		ws:   ws,
		sink: newWSSink(ws),
		port: s.cfg.Port,
	}
	c.run(r.Context())
}

// clientConn is the per-connection session state. All fields past port are
// only touched from the read loop.
type clientConn struct {
	ws   *websocket.Conn
	sink *wsSink
	port Port

	participantID string
	conv          Conversation

	// audioFormat applies to inbound binary frames; set by start.
	codec     string
	pcmFormat audio.Format
}

// run drives the connection until the client disconnects or the context is
// cancelled. It always logs the participant out on exit.
func (c *clientConn) run(ctx context.Context) {
	defer func() {
		c.sink.close()
		if c.conv != nil {
			if err := c.port.Logout(context.Background(), c.participantID); err != nil {
				slog.Warn("gateway: logout on disconnect", "participant_id", c.participantID, "error", err)
			}
		}
		c.ws.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}
		switch typ {
		case websocket.MessageBinary:
			c.handleAudio(data)
		case websocket.MessageText:
			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				slog.Warn("gateway: malformed control frame", "error", err)
				continue
			}
			c.handleControl(ctx, msg)
		}
	}
}

func (c *clientConn) handleAudio(data []byte) {
	if c.conv == nil {
		return
	}
	switch c.codec {
	case codecPCM:
		c.conv.PushPCM(data, c.pcmFormat)
	default:
		if err := c.conv.PushOpus(data); err != nil {
			slog.Warn("gateway: opus frame rejected", "error", err)
		}
	}
}

func (c *clientConn) handleControl(ctx context.Context, msg clientMessage) {
	if msg.Type == msgLogin {
		c.login(ctx, msg.ParticipantID)
		return
	}
	if c.conv == nil {
		slog.Debug("gateway: control frame before login", "type", msg.Type)
		return
	}

	switch msg.Type {
	case msgLogout:
		if err := c.port.Logout(ctx, c.participantID); err != nil {
			slog.Warn("gateway: logout", "participant_id", c.participantID, "error", err)
		}
		c.conv = nil
		c.participantID = ""

	case msgStart:
		c.codec = msg.Codec
		if msg.Codec == codecPCM {
			c.pcmFormat = audio.Format{SampleRate: msg.SampleRate, Channels: msg.Channels}
			if c.pcmFormat.SampleRate <= 0 {
				c.pcmFormat = audio.STTFormat
			}
		}
		c.conv.StartCapture()

	case msgStop:
		c.conv.StopCapture()

	case msgCancel:
		c.conv.Cancel()

	case msgText:
		c.conv.SubmitText(msg.Text)

	case msgAckError:
		c.conv.AcknowledgeError()

	case msgPlaybackDone:
		c.conv.PlaybackFinished()

	case msgMicDenied:
		c.conv.MicPermissionDenied()

	case msgMicGranted:
		c.conv.MicPermissionGranted()

	default:
		slog.Warn("gateway: unknown control frame", "type", msg.Type)
	}
}

func (c *clientConn) login(ctx context.Context, participantID string) {
	if participantID == "" {
		c.sink.Failed("login requires a participant id")
		return
	}
	if c.conv != nil {
		if c.participantID == participantID {
			return
		}
		if err := c.port.Logout(ctx, c.participantID); err != nil {
			slog.Warn("gateway: logout before relogin", "participant_id", c.participantID, "error", err)
		}
		c.conv = nil
	}
	conv, err := c.port.Login(ctx, participantID, c.sink)
	if err != nil {
		slog.Error("gateway: login failed", "participant_id", participantID, "error", err)
		c.sink.Failed("could not start your session, please try again")
		return
	}
	c.participantID = participantID
	c.conv = conv
}
