package main

import (
	"fmt"
	"strconv"

	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/constellation"
	"starroom.ai/internal/sim/progression"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

type solveMark struct {
	Puzzle    string `json:"puzzle"`
	Tick      uint64 `json:"tick"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type sessionSummary struct {
	SessionID string      `json:"session_id"`
	Seed      int64       `json:"seed"`
	Events    int         `json:"events"`
	Solves    []solveMark `json:"solves"`
	Misplaced int         `json:"misplaced"`
	Edges     int         `json:"edges_drawn"`
	Letters   int         `json:"letter_steps"`
	DoorTries int         `json:"door_locked"`
	EscapedMs int64       `json:"escaped_ms"`
	Ended     bool        `json:"ended"`

	events []room.Event
}

// summarize groups events by session in first-seen order.
func summarize(events []room.Event) []*sessionSummary {
	byID := map[string]*sessionSummary{}
	var order []string
	for _, e := range events {
		s := byID[e.SessionID]
		if s == nil {
			s = &sessionSummary{SessionID: e.SessionID, Seed: e.Seed, EscapedMs: -1}
			byID[e.SessionID] = s
			order = append(order, e.SessionID)
		}
		s.Events++
		s.events = append(s.events, e)
		switch e.Type {
		case room.EventSolved:
			s.Solves = append(s.Solves, solveMark{Puzzle: e.Puzzle, Tick: e.Tick, ElapsedMs: e.ElapsedMs})
		case room.EventPlacement:
			if !e.Correct {
				s.Misplaced++
			}
		case room.EventEdgeAdded:
			s.Edges++
		case room.EventLetter:
			s.Letters++
		case room.EventDoorLocked:
			s.DoorTries++
		case room.EventDoorOpened:
			s.EscapedMs = e.ElapsedMs
		case room.EventSessionEnd:
			s.Ended = true
		}
	}
	out := make([]*sessionSummary, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

func (s *sessionSummary) print() {
	state := "open"
	if s.Ended {
		state = "ended"
	}
	fmt.Printf("session=%s seed=%d events=%d state=%s\n", s.SessionID, s.Seed, s.Events, state)
	for _, m := range s.Solves {
		fmt.Printf("  %8.1fs  solved %s (tick=%d)\n", float64(m.ElapsedMs)/1000, m.Puzzle, m.Tick)
	}
	if s.EscapedMs >= 0 {
		fmt.Printf("  %8.1fs  door opened\n", float64(s.EscapedMs)/1000)
	}
	fmt.Printf("  misplaced=%d edges=%d letter_steps=%d door_locked=%d\n", s.Misplaced, s.Edges, s.Letters, s.DoorTries)
}

// verify rebuilds the session layout from its seed and checks the logged events against it.
func (s *sessionSummary) verify(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	r, err := room.New(room.Config{SessionID: s.SessionID, Seed: s.Seed, Tuning: tune, Catalogs: cats})
	if err != nil {
		return err
	}
	layout := r.Layout()

	tokens := map[string]bool{}
	for _, p := range layout.Planets {
		tokens[p.ID] = true
	}
	for _, sg := range layout.Signs {
		tokens[sg.ID] = true
	}
	stars := map[string]bool{}
	for _, st := range layout.Constellation.Stars {
		stars[st.Name] = true
	}
	answer := map[constellation.Edge]bool{}
	if def, ok := cats.Constellations.ByID[layout.Constellation.ID]; ok {
		for _, c := range def.Connections {
			answer[constellation.NewEdge(c[0], c[1])] = true
		}
	}

	solved := 0
	done := map[string]bool{}
	caseOpened, keyTaken := false, false
	for _, e := range s.events {
		switch e.Type {
		case room.EventPlacement:
			if !tokens[e.Target] {
				return fmt.Errorf("tick %d: placement of unknown token %q", e.Tick, e.Target)
			}
		case room.EventEdgeAdded, room.EventEdgeRemoved:
			edge, err := constellation.ParseEdgeKey(e.Target)
			if err != nil {
				return fmt.Errorf("tick %d: %w", e.Tick, err)
			}
			if !stars[edge.A] || !stars[edge.B] {
				return fmt.Errorf("tick %d: edge %s is not in constellation %s", e.Tick, e.Target, layout.Constellation.ID)
			}
			if e.Type == room.EventEdgeAdded && answer[edge] != e.Correct {
				return fmt.Errorf("tick %d: edge %s logged correct=%v", e.Tick, e.Target, e.Correct)
			}
		case room.EventLetter:
			i, err := strconv.Atoi(e.Target)
			if err != nil || i < 0 || i >= len(layout.Northern) {
				return fmt.Errorf("tick %d: bad letter control %q", e.Tick, e.Target)
			}
		case room.EventSolved:
			if solved >= len(layout.PuzzleOrder) || layout.PuzzleOrder[solved] != e.Puzzle {
				return fmt.Errorf("tick %d: %s solved out of order", e.Tick, e.Puzzle)
			}
			solved++
			done[e.Puzzle] = true
		case room.EventCaseOpened:
			if !done[progression.StarBackground] {
				return fmt.Errorf("tick %d: case opened before %s was solved", e.Tick, progression.StarBackground)
			}
			caseOpened = true
		case room.EventKeyTaken:
			if !caseOpened {
				return fmt.Errorf("tick %d: key taken from a closed case", e.Tick)
			}
			keyTaken = true
		case room.EventDoorOpened:
			if !keyTaken {
				return fmt.Errorf("tick %d: door opened without the key", e.Tick)
			}
		}
	}
	return nil
}
