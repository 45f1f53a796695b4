package app

import (
	"testing"
)

func TestSequencer(t *testing.T) {
	s := NewSequencer()

	first := s.Next(ComponentStatus)
	second := s.Next(ComponentStatus)

	if s.Current(ComponentStatus, first) {
		t.Error("superseded request should not be current")
	}
	if !s.Current(ComponentStatus, second) {
		t.Error("latest request should be current")
	}

	other := s.Next(ComponentLogs)
	if !s.Current(ComponentLogs, other) {
		t.Error("endpoints should be sequenced independently")
	}
	if !s.Current(ComponentStatus, second) {
		t.Error("another endpoint should not supersede status")
	}
}

func TestBroadcaster_Fanout(t *testing.T) {
	b := NewBroadcaster(nil)

	a, unsubA := b.Subscribe()
	c, unsubC := b.Subscribe()
	defer unsubC()

	if b.Subscribers() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.Subscribers())
	}

	b.Changed(ComponentStatus)

	for _, ch := range []<-chan Update{a, c} {
		u := <-ch
		if u.Component != ComponentStatus || u.Revision != 1 {
			t.Errorf("unexpected update: %+v", u)
		}
	}

	unsubA()
	unsubA() // idempotent
	if _, ok := <-a; ok {
		t.Error("expected closed channel after unsubscribe")
	}
	if b.Subscribers() != 1 {
		t.Errorf("expected 1 subscriber, got %d", b.Subscribers())
	}
	if b.Revision() != 1 {
		t.Errorf("expected revision 1, got %d", b.Revision())
	}
}

func TestBroadcaster_SlowSubscriberDrops(t *testing.T) {
	b := NewBroadcaster(nil)
	_, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBuffer+10; i++ {
		b.Changed(ComponentLogs)
	}

	if b.Dropped() != 10 {
		t.Errorf("expected 10 dropped updates, got %d", b.Dropped())
	}
	if b.Revision() != uint64(subscriberBuffer+10) {
		t.Errorf("unexpected revision %d", b.Revision())
	}
}
