package indexdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

// ingestWorker stands in for the worker in front of D1: it keeps solves per session and
// puzzle and answers the stats query from them.
type ingestWorker struct {
	mu     sync.Mutex
	kinds  map[string]int
	solves map[[2]string]int64
	tokens []string
}

func newIngestWorker(t *testing.T) (*ingestWorker, *httptest.Server) {
	t.Helper()
	w := &ingestWorker{kinds: map[string]int{}, solves: map[[2]string]int64{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", func(rw http.ResponseWriter, r *http.Request) {
		var body struct {
			Events []struct {
				Kind      string          `json:"kind"`
				SessionID string          `json:"session_id"`
				Payload   json.RawMessage `json:"payload"`
			} `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		w.tokens = append(w.tokens, r.Header.Get("x-sr-index-token"))
		for _, ev := range body.Events {
			w.kinds[ev.Kind]++
			if ev.Kind != "solve" {
				continue
			}
			var p d1SolvePayload
			_ = json.Unmarshal(ev.Payload, &p)
			k := [2]string{ev.SessionID, p.Puzzle}
			if _, dup := w.solves[k]; !dup {
				w.solves[k] = p.ElapsedMs
			}
		}
	})
	mux.HandleFunc("/stats", func(rw http.ResponseWriter, r *http.Request) {
		w.mu.Lock()
		defer w.mu.Unlock()
		agg := map[string]*PuzzleStat{}
		for k, ms := range w.solves {
			p := agg[k[1]]
			if p == nil {
				p = &PuzzleStat{Puzzle: k[1], MinElapsedMs: ms}
				agg[k[1]] = p
			}
			p.AvgElapsedMs = (p.AvgElapsedMs*float64(p.Solves) + float64(ms)) / float64(p.Solves+1)
			p.Solves++
			if ms < p.MinElapsedMs {
				p.MinElapsedMs = ms
			}
		}
		out := struct {
			Stats []PuzzleStat `json:"stats"`
		}{}
		for _, p := range agg {
			out.Stats = append(out.Stats, *p)
		}
		_ = json.NewEncoder(rw).Encode(out)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return w, srv
}

func TestD1Index_SolveStatsSeesQueuedEvents(t *testing.T) {
	w, srv := newIngestWorker(t)
	idx, err := OpenD1(D1Config{
		Endpoint:      srv.URL + "/ingest",
		StatsEndpoint: srv.URL + "/stats",
		Token:         "secret",
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("OpenD1: %v", err)
	}
	defer idx.Close()

	var evs []room.Event
	evs = append(evs, session("S1", 1, map[string]int64{"solar-system": 1000, "blackboard": 5000})...)
	evs = append(evs, session("S2", 2, map[string]int64{"solar-system": 3000})...)
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
	if len(stats) != 2 || stats[0].Puzzle != "blackboard" || stats[1].Puzzle != "solar-system" {
		t.Fatalf("stats=%+v", stats)
	}
	if stats[1].Solves != 2 || stats[1].AvgElapsedMs != 2000 || stats[1].MinElapsedMs != 1000 {
		t.Fatalf("solar=%+v", stats[1])
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.kinds["event"] != len(evs) || w.kinds["session"] != 2 || w.kinds["session_end"] != 2 || w.kinds["solve"] != 4 {
		t.Fatalf("kinds=%v", w.kinds)
	}
	if len(w.tokens) == 0 || w.tokens[0] != "secret" {
		t.Fatalf("tokens=%v", w.tokens)
	}
	if st := idx.Stats(); st.WrittenTotal != uint64(len(evs)+8) || st.DropEventTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestD1Index_CatalogsFlushOnClose(t *testing.T) {
	w, srv := newIngestWorker(t)
	idx, err := OpenD1(D1Config{Endpoint: srv.URL + "/ingest", FlushInterval: time.Hour})
	if err != nil {
		t.Fatalf("OpenD1: %v", err)
	}
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	if err := idx.UpsertCatalogs(cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	if _, err := idx.SolveStats(context.Background()); err == nil {
		t.Fatalf("stats without an endpoint should fail")
	}
	_ = idx.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	if want := len(cats.Digests()) + 1; w.kinds["catalog"] != want {
		t.Fatalf("catalog rows=%d want %d", w.kinds["catalog"], want)
	}
	// Closed indexes ignore late writes.
	_ = idx.WriteEvent(room.Event{Type: room.EventSessionStart})
	if st := idx.Stats(); st.DropEventTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestD1Index_QueueDropStats(t *testing.T) {
	d := &D1Index{cfg: D1Config{StatsEndpoint: "http://unused"}, ch: make(chan d1Item, 1)}
	d.ch <- d1Item{ev: d1Event{Kind: "event"}}

	_ = d.WriteEvent(room.Event{Type: room.EventKeyTaken})
	if _, err := d.SolveStats(context.Background()); err == nil {
		t.Fatalf("query on a full queue should fail")
	}
	st := d.Stats()
	if st.DropEventTotal != 1 || st.DropQueryTotal != 1 || st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("stats=%+v", st)
	}
	if _, err := OpenD1(D1Config{Endpoint: "  "}); err == nil {
		t.Fatalf("empty endpoint should fail")
	}
}
