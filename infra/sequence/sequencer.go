package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing command numbers. The first call to
// Next after New(start) returns start+1.
type Sequencer struct {
	last atomic.Uint64
}

func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last number handed out.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// Reset resumes numbering after v, e.g. once a journal has been replayed.
func (s *Sequencer) Reset(v uint64) {
	s.last.Store(v)
}
