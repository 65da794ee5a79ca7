package sequence

import "testing"

func TestSequencer(t *testing.T) {
	s := New(0)
	if got := s.Next(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := s.Next(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := s.Current(); got != 2 {
		t.Fatalf("expected current 2, got %d", got)
	}

	s.Reset(40)
	if got := s.Next(); got != 41 {
		t.Fatalf("expected 41 after reset, got %d", got)
	}
}
