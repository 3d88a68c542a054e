// Package app wires the Solace subsystems into a running application.
//
// The App owns the journal, the backend providers, and one runtime per
// signed-in participant: a turn coordinator plus an insights scheduler,
// created on login and torn down on logout. It implements the gateway's
// Port, so WebSocket connections drive the lifecycle directly.
//
// For testing, inject doubles via functional options (WithJournal,
// WithProviders). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/solacevoice/solace/internal/config"
	"github.com/solacevoice/solace/internal/gateway"
	"github.com/solacevoice/solace/internal/identity"
	"github.com/solacevoice/solace/internal/insights"
	"github.com/solacevoice/solace/internal/observe"
	"github.com/solacevoice/solace/internal/reply"
	"github.com/solacevoice/solace/internal/resilience"
	"github.com/solacevoice/solace/internal/safety"
	"github.com/solacevoice/solace/internal/voice"
	"github.com/solacevoice/solace/pkg/provider/stt"
	"github.com/solacevoice/solace/pkg/provider/tts"
	"github.com/solacevoice/solace/pkg/store"
	"github.com/solacevoice/solace/pkg/store/memstore"
	"github.com/solacevoice/solace/pkg/store/postgres"
)

// Compile-time assertion that App can back the gateway.
var _ gateway.Port = (*App)(nil)

// runtime is everything owned on behalf of one signed-in participant.
type runtime struct {
	participantID string
	session       *store.Session
	coordinator   *voice.Coordinator
	insights      *insights.Scheduler
	cancel        context.CancelFunc
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	journal   store.Journal
	recall    store.RecallIndex
	screener  *safety.Screener
	replies   *reply.Generator
	metrics   *observe.Metrics
	ident     *identity.Static

	// pg is set in PostgreSQL mode; its pool backs the readiness probe.
	pg *postgres.Store

	mu       sync.Mutex
	runtimes map[string]*runtime

	// closers are called in reverse order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithJournal injects a journal instead of creating one from config.
func WithJournal(j store.Journal) Option {
	return func(a *App) { a.journal = j }
}

// WithRecallIndex injects a recall index instead of creating one from config.
func WithRecallIndex(r store.RecallIndex) Option {
	return func(a *App) { a.recall = r }
}

// WithProviders injects backend providers instead of building them from
// config.
func WithProviders(p *Providers) Option {
	return func(a *App) { a.providers = p }
}

// WithMetrics injects a metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together: providers, journal,
// screener, and reply generator. Per-participant runtimes are created later,
// on login.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		runtimes: map[string]*runtime{},
		ident:    identity.NewStatic(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if a.providers == nil {
		p, err := BuildProviders(cfg)
		if err != nil {
			return nil, err
		}
		a.providers = p
		a.closers = append(a.closers, p.Close)
	}

	if err := a.initJournal(ctx); err != nil {
		return nil, err
	}

	a.screener = safety.NewScreener(
		safety.WithExtraPhrases(cfg.Safety.ExtraCrisisPhrases),
	)

	replyOpts := []reply.Option{reply.WithMetrics(a.metrics)}
	if a.providers.Embedder != nil && a.recall != nil {
		replyOpts = append(replyOpts, reply.WithRecall(a.providers.Embedder, a.recall))
	}
	a.replies = reply.NewGenerator(a.providers.Completer, replyOpts...)

	return a, nil
}

// initJournal connects the PostgreSQL journal behind the resilient wrapper,
// or falls back to a pure in-memory journal when no DSN is configured.
func (a *App) initJournal(ctx context.Context) error {
	if a.journal != nil {
		return nil // injected
	}

	dsn := a.cfg.Journal.PostgresDSN
	if dsn == "" {
		ms := memstore.New()
		a.journal = ms
		if a.recall == nil {
			a.recall = ms
		}
		slog.Warn("no journal database configured, sessions will not survive a restart")
		return nil
	}

	pg, err := postgres.New(ctx, dsn, a.cfg.Journal.EmbeddingDimensions)
	if err != nil {
		return fmt.Errorf("app: init journal: %w", err)
	}
	a.pg = pg
	a.closers = append(a.closers, func() error {
		pg.Close()
		return nil
	})

	a.journal = store.NewResilient(pg, memstore.New(), slog.Default())
	if a.recall == nil && a.cfg.Journal.EmbeddingDimensions > 0 {
		a.recall = pg
	}
	return nil
}

// Journal returns the active journal.
func (a *App) Journal() store.Journal { return a.journal }

// Identity returns the sign-in state shared with embedding collaborators.
func (a *App) Identity() identity.Session { return a.ident }

// Postgres returns the PostgreSQL store, or nil in memory mode.
func (a *App) Postgres() *postgres.Store { return a.pg }

// Login implements [gateway.Port]. It signs the participant in, resumes
// their live session (or opens a new one), and builds the turn pipeline
// delivering events to sink.
func (a *App) Login(ctx context.Context, participantID string, sink voice.Sink) (gateway.Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rt, ok := a.runtimes[participantID]; ok {
		// Replace the previous connection's pipeline.
		a.teardownLocked(rt)
	}

	sess, err := a.liveSession(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("app: login %s: %w", participantID, err)
	}

	coord := voice.NewCoordinator(voice.Config{
		ParticipantID: participantID,
		SessionID:     sess.ID,
		Journal:       a.journal,
		Screener:      a.screener,
		Replies:       a.replies,
		Prefs:         a.preferences(),
		STT:           a.sttSelector(),
		TTS:           a.ttsSelector(),
		Embedder:      a.providers.Embedder,
		Recall:        a.recall,
		Sink:          sink,
		Metrics:       a.metrics,
		HelplineURL:   a.cfg.Safety.HelplineURL,
	})

	rtCtx, cancel := context.WithCancel(context.Background())
	rt := &runtime{
		participantID: participantID,
		session:       sess,
		coordinator:   coord,
		cancel:        cancel,
	}

	if !a.cfg.Insights.Disabled {
		rt.insights = insights.NewScheduler(insights.SchedulerConfig{
			Journal:       a.journal,
			ParticipantID: participantID,
			Interval:      a.cfg.Insights.Interval.Std(),
		})
		rt.insights.Start(rtCtx)
	}

	a.runtimes[participantID] = rt
	a.ident.Login(participantID)
	a.metrics.ActiveParticipants.Add(ctx, 1)
	a.metrics.ActiveSessions.Add(ctx, 1)

	slog.Info("participant signed in", "participant_id", participantID, "session_id", sess.ID)
	return coord, nil
}

// Logout implements [gateway.Port]. It cancels any in-flight turn, stops the
// insights scheduler, and ends the journal session.
func (a *App) Logout(ctx context.Context, participantID string) error {
	a.mu.Lock()
	rt, ok := a.runtimes[participantID]
	if ok {
		a.teardownLocked(rt)
	}
	a.mu.Unlock()
	if !ok {
		return nil
	}

	err := a.journal.EndSession(ctx, rt.session.ID)
	a.ident.Logout()

	slog.Info("participant signed out", "participant_id", participantID, "session_id", rt.session.ID)
	if err != nil {
		return fmt.Errorf("app: logout %s: %w", participantID, err)
	}
	return nil
}

// ClearAll erases the participant's entire history. When they are signed in,
// their pipeline is transparently pointed at a fresh session so the next
// message starts a new conversation.
func (a *App) ClearAll(ctx context.Context, participantID string) error {
	if err := a.journal.ClearAll(ctx, participantID); err != nil {
		return fmt.Errorf("app: clear history for %s: %w", participantID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	rt, ok := a.runtimes[participantID]
	if !ok {
		return nil
	}

	sess, err := a.journal.CreateSession(ctx, participantID, store.ChannelVoice)
	if err != nil {
		return fmt.Errorf("app: reopen session for %s: %w", participantID, err)
	}
	rt.session = sess
	rt.coordinator.ResetSession(sess.ID)
	slog.Info("history cleared", "participant_id", participantID, "session_id", sess.ID)
	return nil
}

// Insights returns the latest insights analysis for a signed-in
// participant, or nil when none is available yet.
func (a *App) Insights(participantID string) *insights.Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	rt, ok := a.runtimes[participantID]
	if !ok || rt.insights == nil {
		return nil
	}
	return rt.insights.Latest()
}

// Shutdown tears everything down: every participant runtime, then the
// subsystem closers in reverse-init order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		a.mu.Lock()
		rts := make([]*runtime, 0, len(a.runtimes))
		for _, rt := range a.runtimes {
			rts = append(rts, rt)
		}
		a.mu.Unlock()

		for _, rt := range rts {
			if err := a.Logout(ctx, rt.participantID); err != nil {
				errs = append(errs, err)
			}
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		slog.Info("app shut down")
	})
	return errors.Join(errs...)
}

// teardownLocked stops a runtime's moving parts and releases its gauge
// slots. Must be called with a.mu held. Journal bookkeeping is the caller's
// concern.
func (a *App) teardownLocked(rt *runtime) {
	rt.coordinator.Cancel()
	if rt.insights != nil {
		rt.insights.Stop()
	}
	rt.cancel()
	delete(a.runtimes, rt.participantID)
	a.metrics.ActiveParticipants.Add(context.Background(), -1)
	a.metrics.ActiveSessions.Add(context.Background(), -1)
}

// liveSession returns the participant's most recent open session, creating
// one when none exists.
func (a *App) liveSession(ctx context.Context, participantID string) (*store.Session, error) {
	sessions, err := a.journal.ListSessions(ctx, participantID)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].EndedAt.IsZero() {
			return &sessions[i], nil
		}
	}
	return a.journal.CreateSession(ctx, participantID, store.ChannelVoice)
}

// sttSelector builds a fresh session-scoped transcription selector.
// Degradation is monotonic within one sign-in and resets on the next.
func (a *App) sttSelector() *resilience.Selector[stt.Transcriber] {
	sel := resilience.NewSelector[stt.Transcriber](resilience.StageSTT)
	if a.providers.CloudSTT != nil {
		sel.SetCloud(a.providers.CloudSTT.Name(), a.providers.CloudSTT)
	}
	if a.providers.LocalSTT != nil {
		sel.SetLocal(a.providers.LocalSTT.Name(), a.providers.LocalSTT)
	}
	sel.OnDegrade(func(stage string, cause error) {
		a.metrics.RecordDegradation(context.Background(), stage)
	})
	return sel
}

func (a *App) ttsSelector() *resilience.Selector[tts.Synthesizer] {
	sel := resilience.NewSelector[tts.Synthesizer](resilience.StageTTS)
	if a.providers.CloudTTS != nil {
		sel.SetCloud(a.providers.CloudTTS.Name(), a.providers.CloudTTS)
	}
	sel.SetLocal(a.providers.LocalTTS.Name(), a.providers.LocalTTS)
	sel.OnDegrade(func(stage string, cause error) {
		a.metrics.RecordDegradation(context.Background(), stage)
	})
	return sel
}

func (a *App) preferences() reply.Preferences {
	p := a.cfg.Preferences
	return reply.Preferences{
		Name:          p.Name,
		Country:       p.Country,
		MessageLength: p.MessageLength,
		ResponseStyle: p.ResponseStyle,
		SupportStyle:  p.SupportStyle,
	}
}
