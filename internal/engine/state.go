package engine

import "sync/atomic"

// ProcessState is a settable AppState. The hosting application reports its
// lifecycle transitions here; Process reads the latest snapshot.
type ProcessState struct {
	foreground atomic.Bool
	active     atomic.Bool
}

func (s *ProcessState) SetForeground(v bool) {
	s.foreground.Store(v)
	if v {
		s.active.Store(true)
	}
}

func (s *ProcessState) SetActive(v bool) {
	s.active.Store(v)
	if !v {
		s.foreground.Store(false)
	}
}

func (s *ProcessState) InForeground() bool { return s.foreground.Load() }
func (s *ProcessState) Active() bool       { return s.active.Load() }
