package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"starroom.ai/internal/sim/room"
)

func TestEventLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	want := []room.Event{
		{SessionID: "S1", Tick: 1, Type: room.EventSessionStart},
		{SessionID: "S1", Tick: 40, Type: room.EventSolved, Puzzle: "solar-system"},
	}
	for _, e := range want {
		if err := l.WriteEvent(e); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := EventFiles(dir)
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	var got []room.Event
	if err := ReadEvents(files[0], func(e room.Event) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(got) != 2 || got[1] != want[1] {
		t.Fatalf("got %+v", got)
	}
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, name := range []string{"events-2026-03-01-10.jsonl.zst", "events-2026-03-01-11.jsonl.zst"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestReadEventsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events-x.jsonl.zst")
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ReadEvents(path, func(room.Event) error { return nil }); err == nil {
		t.Fatalf("expected a decode error")
	}
}

func TestWriterReportsClosedSegments(t *testing.T) {
	dir := t.TempDir()
	var closed []string
	w := NewJSONLZstdWriterWithOptions(dir, "events", WriterOptions{
		RotateLayout: "2006-01-02-15-04",
		OnClose:      func(p string) { closed = append(closed, filepath.Base(p)) },
	})
	now := time.Date(2026, 3, 1, 10, 59, 30, 0, time.UTC)
	w.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if err := w.Write(map[string]int{"n": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
		now = now.Add(20 * time.Second)
	}
	if len(closed) != 1 || closed[0] != "events-2026-03-01-10-59.jsonl.zst" {
		t.Fatalf("closed after rotation=%v", closed)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(closed) != 2 || closed[1] != "events-2026-03-01-11-00.jsonl.zst" {
		t.Fatalf("closed after Close=%v", closed)
	}
	if err := w.Close(); err != nil || len(closed) != 2 {
		t.Fatalf("second Close reported again: %v %v", closed, err)
	}
}
