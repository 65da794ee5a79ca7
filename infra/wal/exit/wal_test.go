package exit

import (
	"errors"
	"testing"
)

func openTest(t *testing.T) *ExitWAL {
	t.Helper()
	w, err := Open(t.TempDir(), false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func collect(t *testing.T, scan func(fn func(ExitRecord) error) error) []uint64 {
	t.Helper()
	var seqs []uint64
	if err := scan(func(rec ExitRecord) error {
		seqs = append(seqs, rec.Seq)
		return nil
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return seqs
}

func TestExitWAL_Lifecycle(t *testing.T) {
	w := openTest(t)

	if err := w.PutNew(7, []byte("run/7"), []byte("fill-7")); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := w.Get(7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.State != StateNew || string(rec.Payload) != "fill-7" || string(rec.Key) != "run/7" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if err := w.MarkSent(7); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	rec, _ = w.Get(7)
	if rec.State != StateSent || rec.LastAttempt == 0 {
		t.Fatalf("expected SENT with attempt time, got %+v", rec)
	}
	if string(rec.Payload) != "fill-7" || string(rec.Key) != "run/7" {
		t.Fatalf("record lost on update: %+v", rec)
	}

	if err := w.MarkFailed(7, 2); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	rec, _ = w.Get(7)
	if rec.State != StateFailed || rec.Retries != 2 {
		t.Fatalf("expected FAILED/2, got %+v", rec)
	}

	if err := w.Ack(7); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if _, err := w.Get(7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ack, got %v", err)
	}
}

func TestExitWAL_MarkMissing(t *testing.T) {
	w := openTest(t)

	if err := w.MarkSent(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExitWAL_ScanOrderAndState(t *testing.T) {
	w := openTest(t)

	// keys are zero padded, so 10 must follow 9
	for _, seq := range []uint64{10, 2, 9, 1} {
		if err := w.PutNew(seq, nil, nil); err != nil {
			t.Fatalf("put %d: %v", seq, err)
		}
	}
	_ = w.MarkSent(9)

	got := collect(t, func(fn func(ExitRecord) error) error {
		return w.ScanByState(StateNew, fn)
	})
	want := []uint64{1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	counts, err := w.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[StateNew] != 3 || counts[StateSent] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestExitWAL_PendingRespectsRetryLimit(t *testing.T) {
	w := openTest(t)

	for seq := uint64(1); seq <= 4; seq++ {
		_ = w.PutNew(seq, nil, nil)
	}
	_ = w.MarkFailed(2, 1)
	_ = w.MarkFailed(3, 3)
	_ = w.MarkSent(4)

	got := collect(t, func(fn func(ExitRecord) error) error {
		return w.Pending(3, fn)
	})
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 4 {
		t.Fatalf("pending = %v, want [1 2 4]", got)
	}
}

func TestExitWAL_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = w.PutNew(5, nil, []byte("x"))
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w, err = Open(dir, true)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w.Close()

	rec, err := w.Get(5)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if rec.State != StateNew || string(rec.Payload) != "x" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestExitWAL_LastSeq(t *testing.T) {
	w := openTest(t)

	seq, err := w.LastSeq()
	if err != nil || seq != 0 {
		t.Fatalf("empty outbox: got %d, %v", seq, err)
	}

	for _, s := range []uint64{3, 12, 9} {
		_ = w.PutNew(s, nil, nil)
	}
	if seq, _ = w.LastSeq(); seq != 12 {
		t.Fatalf("expected 12, got %d", seq)
	}

	_ = w.Ack(12)
	if seq, _ = w.LastSeq(); seq != 9 {
		t.Fatalf("expected 9 after ack, got %d", seq)
	}
}

func TestExitWAL_KeyTooLong(t *testing.T) {
	w := openTest(t)

	if err := w.PutNew(1, make([]byte, 1<<16), nil); !errors.Is(err, ErrKeyTooLong) {
		t.Fatalf("expected ErrKeyTooLong, got %v", err)
	}
}
