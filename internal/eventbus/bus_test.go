package eventbus

import (
	"sync"
	"testing"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()

	a, unsubA := b.Subscribe(4)
	defer unsubA()
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Type: TypePushReceived, Data: PushEvent{NotID: 7}})

	for _, ch := range []<-chan Event{a, c} {
		e := <-ch
		if e.Type != TypePushReceived {
			t.Fatalf("Type = %q, want %q", e.Type, TypePushReceived)
		}
		if e.Time.IsZero() {
			t.Fatalf("Time not stamped")
		}
		pe, ok := e.Data.(PushEvent)
		if !ok || pe.NotID != 7 {
			t.Fatalf("Data = %#v", e.Data)
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()
	b := New()

	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "first"})
	b.Publish(Event{Type: "second"})

	e := <-ch
	if e.Type != "first" {
		t.Fatalf("Type = %q, want %q", e.Type, "first")
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected extra event %q", e.Type)
	default:
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	t.Parallel()
	b := New()

	var subs []func()
	for i := 0; i < 16; i++ {
		_, unsub := b.Subscribe(1)
		subs = append(subs, unsub)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			b.Publish(Event{Type: TypeDiag})
		}
	}()
	go func() {
		defer wg.Done()
		for _, unsub := range subs {
			unsub()
		}
	}()
	wg.Wait()

	// A fresh subscriber still receives events after the churn.
	ch, unsub := b.Subscribe(1)
	defer unsub()
	b.Publish(Event{Type: TypeDiag})
	if e := <-ch; e.Type != TypeDiag {
		t.Fatalf("Type = %q, want %q", e.Type, TypeDiag)
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	t.Parallel()
	b := New()

	_, unsub := b.Subscribe(1)
	unsub()
	unsub()

	b.Publish(Event{Type: "after"})
}
