package engine

import (
	"context"
	"errors"
	"testing"

	"pushpipe/internal/eventbus"
	"pushpipe/internal/history"
	"pushpipe/internal/payload"
	logx "pushpipe/pkg/logx"
)

func newTestEngine(cfg Config, state *ProcessState) *Engine {
	return New(cfg, Deps{
		AppState: state,
		Log:      logx.Nop(),
	})
}

func TestProcessEmptyPayload(t *testing.T) {
	t.Parallel()
	e := newTestEngine(Config{}, &ProcessState{})
	if _, err := e.Process(context.Background(), "", payload.RawPayload{}); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("err = %v, want ErrEmptyPayload", err)
	}
}

func TestProcessSenderFiltering(t *testing.T) {
	t.Parallel()
	e := newTestEngine(Config{SenderID: "12345"}, &ProcessState{})
	raw := payload.RawPayload{"message": "hi"}

	if _, err := e.Process(context.Background(), "99999", raw); !errors.Is(err, ErrUnknownSender) {
		t.Fatalf("err = %v, want ErrUnknownSender", err)
	}
	if _, err := e.Process(context.Background(), "12345", raw); err != nil {
		t.Fatalf("matching sender rejected: %v", err)
	}
	if _, err := e.Process(context.Background(), "/topics/weather", raw); err != nil {
		t.Fatalf("topic sender rejected: %v", err)
	}

	// No configured sender id accepts everything.
	open := newTestEngine(Config{}, &ProcessState{})
	if _, err := open.Process(context.Background(), "anyone", raw); err != nil {
		t.Fatalf("open engine rejected sender: %v", err)
	}
}

func TestProcessForegroundIsDataOnly(t *testing.T) {
	t.Parallel()
	state := &ProcessState{}
	state.SetForeground(true)
	e := newTestEngine(Config{}, state)

	res, err := e.Process(context.Background(), "", payload.RawPayload{"message": "hi"})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if res.Disposition != DispositionDataOnly {
		t.Fatalf("Disposition = %q", res.Disposition)
	}
	if res.Descriptor != nil {
		t.Fatal("foreground delivery should not compose a notification")
	}
	if res.Fields.Bool(payload.KeyForeground, false) != true {
		t.Fatal("foreground flag missing from fields")
	}
	if res.Fields.Bool(payload.KeyColdstart, true) {
		t.Fatal("coldstart must be false in the foreground")
	}
}

func TestProcessForegroundForceShowComposes(t *testing.T) {
	t.Parallel()
	state := &ProcessState{}
	state.SetForeground(true)
	e := newTestEngine(Config{ForceShow: true}, state)

	res, err := e.Process(context.Background(), "", payload.RawPayload{"message": "hi"})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if res.Disposition != DispositionVisible {
		t.Fatalf("Disposition = %q", res.Disposition)
	}
	if res.Descriptor == nil || res.Descriptor.Body != "hi" {
		t.Fatalf("Descriptor = %+v", res.Descriptor)
	}
}

func TestProcessBackgroundComposes(t *testing.T) {
	t.Parallel()
	state := &ProcessState{}
	state.SetActive(true) // running, but not in the foreground
	e := newTestEngine(Config{}, state)

	res, err := e.Process(context.Background(), "", payload.RawPayload{
		"title":   "T",
		"message": "hi",
		"notId":   "9",
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if res.Disposition != DispositionVisible {
		t.Fatalf("Disposition = %q", res.Disposition)
	}
	if res.Descriptor == nil || res.Descriptor.NotID != 9 {
		t.Fatalf("Descriptor = %+v", res.Descriptor)
	}
	if !res.Fields.Bool(payload.KeyColdstart, false) {
		t.Fatal("coldstart must be true when the app is active in the background")
	}
}

func TestProcessForceStartColdLaunches(t *testing.T) {
	t.Parallel()
	e := newTestEngine(Config{}, &ProcessState{}) // not active

	res, err := e.Process(context.Background(), "", payload.RawPayload{
		"message":    "wake up",
		"forceStart": "1",
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if res.Disposition != DispositionColdStart {
		t.Fatalf("Disposition = %q", res.Disposition)
	}
	if res.Descriptor == nil {
		t.Fatal("cold start with content should still carry the descriptor")
	}
}

func TestProcessContentAvailableWithoutContent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(Config{}, &ProcessState{})

	res, err := e.Process(context.Background(), "", payload.RawPayload{
		"content-available": "1",
		"customData":        "x",
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if res.Disposition != DispositionDataOnly {
		t.Fatalf("Disposition = %q", res.Disposition)
	}
	if res.Descriptor != nil {
		t.Fatal("no message or title must mean no notification")
	}
	if res.Fields.Str("customData") != "x" {
		t.Fatal("pass-through data lost")
	}
}

func TestProcessTitleOnlyIsVisible(t *testing.T) {
	t.Parallel()
	e := newTestEngine(Config{}, &ProcessState{})
	res, err := e.Process(context.Background(), "", payload.RawPayload{"title": "Just a title"})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if res.Disposition != DispositionVisible || res.Descriptor == nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestProcessClearBadge(t *testing.T) {
	t.Parallel()
	e := newTestEngine(Config{ClearBadge: true}, &ProcessState{})
	res, err := e.Process(context.Background(), "", payload.RawPayload{"message": "m"})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !res.BadgeReset {
		t.Fatal("BadgeReset not set")
	}
}

func TestProcessPublishesEvents(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(32)
	defer unsub()

	e := New(Config{}, Deps{AppState: &ProcessState{}, Log: logx.Nop(), Bus: bus})
	if _, err := e.Process(context.Background(), "", payload.RawPayload{"message": "hi"}); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	types := map[string]bool{}
	for len(events) > 0 {
		types[(<-events).Type] = true
	}
	if !types[eventbus.TypePushReceived] || !types[eventbus.TypePushComposed] {
		t.Fatalf("event types = %v", types)
	}
}

func TestClearHistoryResetsInboxStack(t *testing.T) {
	t.Parallel()
	store := history.NewStore()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(32)
	defer unsub()

	e := New(Config{}, Deps{History: store, AppState: &ProcessState{}, Log: logx.Nop(), Bus: bus})
	push := func(msg string) Result {
		t.Helper()
		res, err := e.Process(context.Background(), "", payload.RawPayload{
			"message": msg, "style": "inbox", "notId": "9",
		})
		if err != nil {
			t.Fatalf("Process error: %v", err)
		}
		return res
	}

	push("one")
	res := push("two")
	if got := len(res.Descriptor.Lines); got != 2 {
		t.Fatalf("stacked lines = %d, want 2", got)
	}

	// The user dismissed or opened the notification: the stack resets.
	e.ClearHistory(9)
	if got := store.Snapshot(9); len(got) != 0 {
		t.Fatalf("Snapshot after clear = %v", got)
	}

	res = push("three")
	if len(res.Descriptor.Lines) != 0 {
		t.Fatalf("lines after clear = %v, want none", res.Descriptor.Lines)
	}

	var cleared bool
	for len(events) > 0 {
		ev := <-events
		if ev.Type != eventbus.TypeHistoryCleared {
			continue
		}
		pe, ok := ev.Data.(eventbus.PushEvent)
		if !ok || pe.NotID != 9 {
			t.Fatalf("cleared event data = %#v", ev.Data)
		}
		cleared = true
	}
	if !cleared {
		t.Fatal("no history.cleared event published")
	}
}

func TestProcessApplyHotSwapsConfig(t *testing.T) {
	t.Parallel()
	e := newTestEngine(Config{SenderID: "111"}, &ProcessState{})
	raw := payload.RawPayload{"message": "hi"}

	if _, err := e.Process(context.Background(), "222", raw); !errors.Is(err, ErrUnknownSender) {
		t.Fatalf("err = %v", err)
	}
	e.Apply(Config{SenderID: "222"})
	if _, err := e.Process(context.Background(), "222", raw); err != nil {
		t.Fatalf("after Apply: %v", err)
	}
}
