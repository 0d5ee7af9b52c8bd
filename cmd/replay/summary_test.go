package main

import (
	"strconv"
	"testing"

	persistlog "starroom.ai/internal/persistence/log"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/constellation"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

// playedSession fabricates a clean run for the layout of seed.
func playedSession(t *testing.T, cats *catalogs.Catalogs, id string, seed int64) []room.Event {
	t.Helper()
	r, err := room.New(room.Config{SessionID: id, Seed: seed, Tuning: tuning.Defaults(), Catalogs: cats})
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	l := r.Layout()
	var tick uint64
	ev := func(typ, puzzle, target string, correct bool) room.Event {
		tick++
		return room.Event{SessionID: id, Seed: seed, Tick: tick, ElapsedMs: int64(tick) * 100, Type: typ, Puzzle: puzzle, Target: target, Correct: correct}
	}
	out := []room.Event{ev(room.EventSessionStart, "", "", false)}
	for _, p := range l.Planets {
		out = append(out, ev(room.EventPlacement, "solar-system", p.ID, true))
	}
	out = append(out, ev(room.EventSolved, "solar-system", "", false))
	def := cats.Constellations.ByID[l.Constellation.ID]
	for _, c := range def.Connections {
		out = append(out, ev(room.EventEdgeAdded, "blackboard", constellation.NewEdge(c[0], c[1]).Key(), true))
	}
	out = append(out, ev(room.EventSolved, "blackboard", "", false))
	for _, s := range l.Signs {
		out = append(out, ev(room.EventPlacement, "table-2", s.ID, true))
	}
	out = append(out, ev(room.EventSolved, "table-2", "", false))
	for _, n := range l.Northern {
		out = append(out, ev(room.EventLetter, "star-background", strconv.Itoa(n.Index), false))
	}
	out = append(out,
		ev(room.EventSolved, "star-background", "", false),
		ev(room.EventCaseOpened, "", "", false),
		ev(room.EventKeyTaken, "", "", false),
		ev(room.EventDoorOpened, "", "", false),
		ev(room.EventSessionEnd, "", "", false),
	)
	return out
}

func TestSummarizeAndVerify(t *testing.T) {
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	a := playedSession(t, cats, "S_a", 3)
	b := playedSession(t, cats, "S_b", 11)

	// Interleave two sessions the way a shared log would.
	var all []room.Event
	for i := 0; i < len(a) || i < len(b); i++ {
		if i < len(a) {
			all = append(all, a[i])
		}
		if i < len(b) {
			all = append(all, b[i])
		}
	}

	sessions := summarize(all)
	if len(sessions) != 2 || sessions[0].SessionID != "S_a" {
		t.Fatalf("sessions=%d", len(sessions))
	}
	for _, s := range sessions {
		if len(s.Solves) != 4 || !s.Ended || s.EscapedMs <= 0 {
			t.Fatalf("%s: %+v", s.SessionID, s)
		}
		if err := s.verify(cats, tuning.Defaults()); err != nil {
			t.Fatalf("%s: verify: %v", s.SessionID, err)
		}
	}
}

func TestVerifyCatchesBrokenLogs(t *testing.T) {
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	cases := map[string]func([]room.Event) []room.Event{
		"unknown token": func(ev []room.Event) []room.Event {
			for i := range ev {
				if ev[i].Type == room.EventPlacement {
					ev[i].Target = "planet-99"
					break
				}
			}
			return ev
		},
		"out of order": func(ev []room.Event) []room.Event {
			for i := range ev {
				if ev[i].Type == room.EventSolved {
					ev[i].Puzzle = "table-2"
					break
				}
			}
			return ev
		},
		"door without key": func(ev []room.Event) []room.Event {
			out := ev[:0]
			for _, e := range ev {
				if e.Type != room.EventKeyTaken {
					out = append(out, e)
				}
			}
			return out
		},
		"letter index": func(ev []room.Event) []room.Event {
			for i := range ev {
				if ev[i].Type == room.EventLetter {
					ev[i].Target = "12"
				}
			}
			return ev
		},
	}
	for name, mutate := range cases {
		s := summarize(mutate(playedSession(t, cats, "S_x", 5)))
		if len(s) != 1 {
			t.Fatalf("%s: sessions=%d", name, len(s))
		}
		if err := s[0].verify(cats, tuning.Defaults()); err == nil {
			t.Fatalf("%s: expected a verify error", name)
		}
	}
}

func TestSummarizeFromEventLog(t *testing.T) {
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	dir := t.TempDir()
	l := persistlog.NewEventLogger(dir)
	for _, e := range playedSession(t, cats, "S_log", 21) {
		if err := l.WriteEvent(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := persistlog.EventFiles(dir)
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	var events []room.Event
	for _, f := range files {
		if err := persistlog.ReadEvents(f, func(e room.Event) error {
			events = append(events, e)
			return nil
		}); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	s := summarize(events)
	if len(s) != 1 || len(s[0].Solves) != 4 {
		t.Fatalf("summary=%+v", s)
	}
	if err := s[0].verify(cats, tuning.Defaults()); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
