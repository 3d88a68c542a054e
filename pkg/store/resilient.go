package store

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Mirror is a journal that can adopt sessions created elsewhere, so the
// resilient wrapper can keep it aligned with the primary's IDs.
type Mirror interface {
	Journal
	ImportSession(sess Session)
}

// Resilient wraps a primary journal with an in-memory mirror. Every write
// lands in the mirror as well; when the primary fails, the operation is
// served by the mirror alone and the wrapper flips to degraded so the UI can
// warn that history may not survive a restart. Conversation flow never stops
// on a persistence failure.
type Resilient struct {
	primary  Journal
	mirror   Mirror
	log      *slog.Logger
	degraded atomic.Bool
}

var _ Journal = (*Resilient)(nil)

// NewResilient wraps primary with mirror.
func NewResilient(primary Journal, mirror Mirror, log *slog.Logger) *Resilient {
	if log == nil {
		log = slog.Default()
	}
	return &Resilient{primary: primary, mirror: mirror, log: log}
}

// Degraded reports whether any primary operation has failed.
func (r *Resilient) Degraded() bool { return r.degraded.Load() }

// markDegraded records a primary failure. Logs on the first flip only.
func (r *Resilient) markDegraded(op string, err error) {
	if r.degraded.CompareAndSwap(false, true) {
		r.log.Error("journal primary failed, continuing on in-memory mirror", "op", op, "error", err)
	} else {
		r.log.Debug("journal primary still failing", "op", op, "error", err)
	}
}

// CreateSession implements [Journal].
func (r *Resilient) CreateSession(ctx context.Context, participantID, channel string) (*Session, error) {
	sess, err := r.primary.CreateSession(ctx, participantID, channel)
	if err != nil {
		r.markDegraded("create_session", err)
		return r.mirror.CreateSession(ctx, participantID, channel)
	}
	r.mirror.ImportSession(*sess)
	return sess, nil
}

// EndSession implements [Journal]. The mirror is always updated; a primary
// failure degrades but does not surface.
func (r *Resilient) EndSession(ctx context.Context, sessionID string) error {
	if err := r.primary.EndSession(ctx, sessionID); err != nil {
		r.markDegraded("end_session", err)
	}
	return r.mirror.EndSession(ctx, sessionID)
}

// AppendTurn implements [Journal].
func (r *Resilient) AppendTurn(ctx context.Context, sessionID string, turn Turn) (*Turn, error) {
	stored, err := r.primary.AppendTurn(ctx, sessionID, turn)
	if err != nil {
		r.markDegraded("append_turn", err)
		return r.mirror.AppendTurn(ctx, sessionID, turn)
	}
	if _, merr := r.mirror.AppendTurn(ctx, sessionID, *stored); merr != nil {
		r.log.Debug("journal mirror append failed", "error", merr)
	}
	return stored, nil
}

// GetSession implements [Journal].
func (r *Resilient) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := r.primary.GetSession(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if err == ErrNotFound {
		return nil, err
	}
	r.markDegraded("get_session", err)
	return r.mirror.GetSession(ctx, sessionID)
}

// ListSessions implements [Journal].
func (r *Resilient) ListSessions(ctx context.Context, participantID string) ([]Session, error) {
	sessions, err := r.primary.ListSessions(ctx, participantID)
	if err == nil {
		return sessions, nil
	}
	r.markDegraded("list_sessions", err)
	return r.mirror.ListSessions(ctx, participantID)
}

// Turns implements [Journal].
func (r *Resilient) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	turns, err := r.primary.Turns(ctx, sessionID)
	if err == nil {
		return turns, nil
	}
	if err == ErrNotFound {
		return nil, err
	}
	r.markDegraded("turns", err)
	return r.mirror.Turns(ctx, sessionID)
}

// DeleteSession implements [Journal]. Deletion is participant-initiated and
// must not silently fail, so a primary error surfaces after the mirror copy
// is removed.
func (r *Resilient) DeleteSession(ctx context.Context, sessionID string) error {
	err := r.primary.DeleteSession(ctx, sessionID)
	if err != nil {
		r.markDegraded("delete_session", err)
	}
	if merr := r.mirror.DeleteSession(ctx, sessionID); merr != nil {
		r.log.Debug("journal mirror delete failed", "error", merr)
	}
	return err
}

// ClearAll implements [Journal]. Same surfacing rule as DeleteSession.
func (r *Resilient) ClearAll(ctx context.Context, participantID string) error {
	err := r.primary.ClearAll(ctx, participantID)
	if err != nil {
		r.markDegraded("clear_all", err)
	}
	if merr := r.mirror.ClearAll(ctx, participantID); merr != nil {
		r.log.Debug("journal mirror clear failed", "error", merr)
	}
	return err
}
