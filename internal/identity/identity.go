// Package identity abstracts the sign-in state of the participant. The
// companion pipeline only needs to know who is talking and when that
// changes; authentication itself lives with the embedding application.
package identity

import "sync"

// Change describes one sign-in transition.
type Change struct {
	// ParticipantID is the newly signed-in participant, or the one that
	// just signed out.
	ParticipantID string

	// SignedIn is true on login and false on logout.
	SignedIn bool
}

// Session reports the current participant and notifies on login and logout.
//
// Implementations must be safe for concurrent use.
type Session interface {
	// CurrentParticipant returns the signed-in participant ID. ok is false
	// when nobody is signed in.
	CurrentParticipant() (id string, ok bool)

	// OnChange registers a callback fired on every login and logout. The
	// returned function unsubscribes it. Callbacks run synchronously on
	// the goroutine driving the change.
	OnChange(fn func(Change)) (unsubscribe func())
}

// Static is an in-process [Session] driven directly by Login and Logout
// calls. It backs single-tenant deployments and tests.
type Static struct {
	mu       sync.Mutex
	current  string
	signedIn bool
	nextID   int
	subs     map[int]func(Change)
}

var _ Session = (*Static)(nil)

// NewStatic creates a [Static] session with nobody signed in.
func NewStatic() *Static {
	return &Static{subs: map[int]func(Change){}}
}

// CurrentParticipant implements [Session].
func (s *Static) CurrentParticipant() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.signedIn
}

// OnChange implements [Session].
func (s *Static) OnChange(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Login signs the participant in, signing out any previous participant
// first. Logging in the already signed-in participant is a no-op.
func (s *Static) Login(participantID string) {
	s.mu.Lock()
	if s.signedIn && s.current == participantID {
		s.mu.Unlock()
		return
	}
	var changes []Change
	if s.signedIn {
		changes = append(changes, Change{ParticipantID: s.current, SignedIn: false})
	}
	s.current = participantID
	s.signedIn = true
	changes = append(changes, Change{ParticipantID: participantID, SignedIn: true})
	subs := s.snapshot()
	s.mu.Unlock()

	for _, ch := range changes {
		for _, fn := range subs {
			fn(ch)
		}
	}
}

// Logout signs the current participant out. A no-op when nobody is signed
// in.
func (s *Static) Logout() {
	s.mu.Lock()
	if !s.signedIn {
		s.mu.Unlock()
		return
	}
	ch := Change{ParticipantID: s.current, SignedIn: false}
	s.current = ""
	s.signedIn = false
	subs := s.snapshot()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ch)
	}
}

// snapshot copies the subscriber list. Must be called with s.mu held.
func (s *Static) snapshot() []func(Change) {
	out := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
