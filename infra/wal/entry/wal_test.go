package entry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
)

func TestWAL_AppendAndReplay(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}

	const n = 100
	for i := 1; i <= n; i++ {
		rec := NewRecord(RecordAdd, uint64(i), []byte(fmt.Sprintf("order-%d", i)))
		if err := w.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	count := 0
	last, err := Replay(dir, func(rec *Record) error {
		count++
		if want := fmt.Sprintf("order-%d", rec.Seq); string(rec.Data) != want {
			return fmt.Errorf("seq %d: expected %q, got %q", rec.Seq, want, rec.Data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if count != n || last != n {
		t.Fatalf("expected %d records ending at %d, got %d ending at %d", n, n, count, last)
	}
}

func TestWAL_Rotation(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir, SegmentSize: 64})
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	for i := 1; i <= 10; i++ {
		if err := w.Append(NewRecord(RecordBuy, uint64(i), make([]byte, 16))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, _ := listSegments(dir)
	if len(files) < 2 {
		t.Fatalf("expected rotated segments, found %d", len(files))
	}

	last, err := Replay(dir, func(*Record) error { return nil })
	if err != nil || last != 10 {
		t.Fatalf("expected replay to reach seq 10, got %d (%v)", last, err)
	}
}

func TestWAL_ReopenContinues(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	_ = w.Append(NewRecord(RecordAdd, 1, nil))
	_ = w.Append(NewRecord(RecordAdd, 2, nil))
	_ = w.Close()

	w, err = Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if w.LastSeq() != 2 {
		t.Fatalf("expected recovered seq 2, got %d", w.LastSeq())
	}
	if err := w.Append(NewRecord(RecordRemove, 2, nil)); !errors.Is(err, ErrNonMonotonic) {
		t.Fatalf("expected non-monotonic error, got %v", err)
	}
	if err := w.Append(NewRecord(RecordRemove, 3, nil)); err != nil {
		t.Fatal(err)
	}
	_ = w.Close()

	var types []RecordType
	if _, err := Replay(dir, func(rec *Record) error {
		types = append(types, rec.Type)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(types) != 3 || types[2] != RecordRemove {
		t.Fatalf("unexpected replay %v", types)
	}
}

func TestWAL_CRCIntegrity(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	_ = w.Append(NewRecord(RecordAdd, 1, []byte("valid-record")))
	_ = w.Close()

	f, err := os.OpenFile(segmentPath(dir, 0), os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	// corrupt the payload
	_, _ = f.WriteAt([]byte{0xFF, 0xFF}, headerSize+2)
	f.Close()

	_, err = Replay(dir, func(*Record) error { return nil })
	if !errors.Is(err, ErrCRCMismatch) {
		t.Fatalf("expected crc mismatch, got %v", err)
	}
}

func TestWAL_TornTail(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	_ = w.Append(NewRecord(RecordBuy, 1, []byte("12345678")))
	_ = w.Close()

	path := segmentPath(dir, 0)
	st, _ := os.Stat(path)
	if err := os.Truncate(path, st.Size()-3); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := r.Next(); !errors.Is(err, ErrTornRecord) {
		t.Fatalf("expected torn record, got %v", err)
	}
}

func TestReader_EmptyDir(t *testing.T) {
	r, err := OpenReader(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReader_MissingDir(t *testing.T) {
	if _, err := OpenReader("/nonexistent/journal"); err == nil {
		t.Fatal("expected error for missing dir")
	}
}
