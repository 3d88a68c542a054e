// Package resilience provides the provider degradation primitives: a
// session-scoped [Selector] that switches a pipeline stage from its cloud
// variant to its local variant, and a [CircuitBreaker] guarding the reply
// completion endpoint.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync/atomic"
)

// Stage names used in degradation logs and metrics.
const (
	StageSTT = "stt"
	StageTTS = "tts"
)

// ErrNoVariant is returned when a stage has no usable provider variant.
var ErrNoVariant = errors.New("resilience: no provider variant available")

// Selector holds the cloud and local variants of one pipeline stage for one
// session. Degradation is monotonic: once the selector switches to local it
// stays local for the life of the selector. A fresh session gets a fresh
// selector and starts on cloud again.
type Selector[T any] struct {
	stage string

	cloud     T
	cloudName string
	hasCloud  bool

	local     T
	localName string
	hasLocal  bool

	degraded  atomic.Bool
	onDegrade func(stage string, cause error)
}

// NewSelector creates an empty Selector for the named stage. Variants are
// attached with [Selector.SetCloud] and [Selector.SetLocal]; a selector with
// no cloud variant runs local-only from the first call.
func NewSelector[T any](stage string) *Selector[T] {
	return &Selector[T]{stage: stage}
}

// SetCloud attaches the preferred cloud variant.
func (s *Selector[T]) SetCloud(name string, v T) {
	s.cloud, s.cloudName, s.hasCloud = v, name, true
}

// SetLocal attaches the local degradation target.
func (s *Selector[T]) SetLocal(name string, v T) {
	s.local, s.localName, s.hasLocal = v, name, true
}

// OnDegrade registers a hook invoked exactly once, when the selector first
// switches to local. Must be called before the selector is used.
func (s *Selector[T]) OnDegrade(fn func(stage string, cause error)) {
	s.onDegrade = fn
}

// Degraded reports whether the selector has switched to the local variant.
func (s *Selector[T]) Degraded() bool {
	return s.degraded.Load() || !s.hasCloud
}

// ActiveName returns the name of the variant the next call will use, or ""
// when no variant is available.
func (s *Selector[T]) ActiveName() string {
	if s.Degraded() {
		if s.hasLocal {
			return s.localName
		}
		return ""
	}
	return s.cloudName
}

// degrade flips the selector to local. Only the first flip logs and fires
// the hook.
func (s *Selector[T]) degrade(cause error) {
	if s.degraded.CompareAndSwap(false, true) {
		slog.Warn("provider degraded to local variant",
			"stage", s.stage,
			"cloud", s.cloudName,
			"local", s.localName,
			"cause", cause)
		if s.onDegrade != nil {
			s.onDegrade(s.stage, cause)
		}
	}
}

// Do runs fn against the selector's active variant. When the cloud variant
// fails and shouldDegrade(err) is true, the selector switches to local and
// retries the same call once there; the local result, success or failure, is
// final. A cloud failure shouldDegrade rejects is returned as is.
//
// This is a package-level function because Go does not support method-level
// type parameters.
func Do[T, R any](s *Selector[T], shouldDegrade func(error) bool, fn func(T) (R, error)) (R, error) {
	var zero R

	if !s.Degraded() {
		res, err := fn(s.cloud)
		if err == nil {
			return res, nil
		}
		if !shouldDegrade(err) || !s.hasLocal {
			return zero, err
		}
		s.degrade(err)
	}

	if !s.hasLocal {
		return zero, ErrNoVariant
	}
	return fn(s.local)
}
