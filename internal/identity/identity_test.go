package identity

import "testing"

func TestStatic_LoginLogout(t *testing.T) {
	s := NewStatic()

	if _, ok := s.CurrentParticipant(); ok {
		t.Fatal("fresh session reports someone signed in")
	}

	s.Login("p1")
	id, ok := s.CurrentParticipant()
	if !ok || id != "p1" {
		t.Fatalf("after login: id = %q, ok = %v", id, ok)
	}

	s.Logout()
	if _, ok := s.CurrentParticipant(); ok {
		t.Fatal("still signed in after logout")
	}
}

func TestStatic_OnChangeSequence(t *testing.T) {
	s := NewStatic()
	var got []Change
	unsub := s.OnChange(func(ch Change) { got = append(got, ch) })

	s.Login("p1")
	s.Login("p1") // no-op
	s.Login("p2") // implicit logout of p1
	s.Logout()
	s.Logout() // no-op

	want := []Change{
		{ParticipantID: "p1", SignedIn: true},
		{ParticipantID: "p1", SignedIn: false},
		{ParticipantID: "p2", SignedIn: true},
		{ParticipantID: "p2", SignedIn: false},
	}
	if len(got) != len(want) {
		t.Fatalf("changes = %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	unsub()
	s.Login("p3")
	if len(got) != len(want) {
		t.Error("callback fired after unsubscribe")
	}
}
