package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqEvent, event: room.Event{Tick: 1}}

	_ = s.WriteEvent(room.Event{Tick: 2})
	if _, err := s.SolveStats(context.Background()); err == nil {
		t.Fatalf("query on a full queue should fail")
	}

	st := s.Stats()
	if st.DropEventTotal != 1 || st.DropQueryTotal != 1 {
		t.Fatalf("drops: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func session(id string, seed int64, solves map[string]int64) []room.Event {
	evs := []room.Event{{SessionID: id, Seed: seed, Tick: 1, Type: room.EventSessionStart}}
	tick := uint64(1)
	for _, p := range []string{"solar-system", "blackboard"} {
		ms, ok := solves[p]
		if !ok {
			continue
		}
		tick += 10
		evs = append(evs, room.Event{SessionID: id, Seed: seed, Tick: tick, ElapsedMs: ms, Type: room.EventSolved, Puzzle: p})
	}
	return append(evs, room.Event{SessionID: id, Seed: seed, Tick: tick + 1, Type: room.EventSessionEnd})
}

func TestSQLiteIndex_SolveStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	var evs []room.Event
	evs = append(evs, session("S1", 1, map[string]int64{"solar-system": 1000, "blackboard": 5000})...)
	evs = append(evs, session("S2", 2, map[string]int64{"solar-system": 3000})...)
	// A duplicate solve report must not count twice.
	evs = append(evs, room.Event{SessionID: "S2", Tick: 99, ElapsedMs: 9999, Type: room.EventSolved, Puzzle: "solar-system"})
	for _, e := range evs {
		if err := idx.WriteEvent(e); err != nil {
			t.Fatalf("WriteEvent: %v", err)
		}
	}

	stats, err := idx.SolveStats(context.Background())
	if err != nil {
		t.Fatalf("SolveStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats=%+v", stats)
	}
	bb, solar := stats[0], stats[1]
	if bb.Puzzle != "blackboard" || bb.Solves != 1 || bb.MinElapsedMs != 5000 {
		t.Fatalf("blackboard=%+v", bb)
	}
	if solar.Solves != 2 || solar.AvgElapsedMs != 2000 || solar.MinElapsedMs != 1000 {
		t.Fatalf("solar=%+v", solar)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	var solved int
	var ended sql.NullInt64
	if err := db.QueryRow(`SELECT solved, ended_tick FROM sessions WHERE session_id='S1'`).Scan(&solved, &ended); err != nil {
		t.Fatalf("query session: %v", err)
	}
	if solved != 2 || !ended.Valid {
		t.Fatalf("session S1 solved=%d ended=%v", solved, ended)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil || n != len(evs) {
		t.Fatalf("events=%d err=%v want %d", n, err, len(evs))
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	if err := idx.UpsertCatalogs(cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(cats.Digests())+1 {
		t.Fatalf("catalog rows=%d", n)
	}
}
