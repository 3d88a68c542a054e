package insights

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/solacevoice/solace/pkg/store"
)

// defaultAnalysisInterval is the default period between analysis passes.
const defaultAnalysisInterval = 30 * time.Minute

// Scheduler re-analyses one participant's journal on a fixed interval.
// Long-running sessions pick up fresh insights without any client action;
// stopping the scheduler on logout guarantees no pass runs for a signed-out
// participant.
//
// All methods are safe for concurrent use.
type Scheduler struct {
	journal  store.Journal
	interval time.Duration
	partID   string
	publish  func(*Analysis)

	mu       sync.Mutex
	latest   *Analysis
	done     chan struct{}
	stopOnce sync.Once
}

// SchedulerConfig configures a [Scheduler].
type SchedulerConfig struct {
	// Journal is the session store to analyse.
	Journal store.Journal

	// ParticipantID identifies whose history is analysed.
	ParticipantID string

	// Interval is how often to re-analyse. Defaults to 30 minutes if zero.
	Interval time.Duration

	// Publish, when set, receives each completed analysis. Called from the
	// scheduler goroutine.
	Publish func(*Analysis)
}

// NewScheduler creates a new [Scheduler] with the given configuration.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultAnalysisInterval
	}
	return &Scheduler{
		journal:  cfg.Journal,
		interval: interval,
		partID:   cfg.ParticipantID,
		publish:  cfg.Publish,
		done:     make(chan struct{}),
	}
}

// Start begins periodic analysis in a background goroutine. The goroutine
// runs until [Scheduler.Stop] is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop halts the analysis loop. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// Latest returns the most recent analysis, or nil if none has completed yet.
func (s *Scheduler) Latest() *Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// AnalyzeNow performs an immediate analysis pass outside the ticker.
func (s *Scheduler) AnalyzeNow(ctx context.Context) (*Analysis, error) {
	return s.run(ctx)
}

// loop runs the periodic analysis ticker.
func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if _, err := s.run(ctx); err != nil {
				slog.Warn("periodic insights analysis failed",
					"participant_id", s.partID,
					"error", err,
				)
			}
		}
	}
}

// run executes one analysis pass and records the result.
func (s *Scheduler) run(ctx context.Context) (*Analysis, error) {
	a, err := Analyze(ctx, s.journal, s.partID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.latest = a
	s.mu.Unlock()

	if s.publish != nil {
		s.publish(a)
	}
	return a, nil
}
