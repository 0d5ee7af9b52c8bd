package room

// Event types written to the session event log.
const (
	EventSessionStart = "SESSION_START"
	EventIntroDone    = "INTRO_DONE"
	EventModeEnter    = "MODE_ENTER"
	EventModeExit     = "MODE_EXIT"
	EventPlacement    = "PLACEMENT"
	EventEdgeAdded    = "EDGE_ADDED"
	EventEdgeRemoved  = "EDGE_REMOVED"
	EventLetter       = "LETTER"
	EventSolved       = "SOLVED"
	EventCaseOpened   = "CASE_OPENED"
	EventKeyTaken     = "KEY_TAKEN"
	EventDoorLocked   = "DOOR_LOCKED"
	EventDoorOpened   = "DOOR_OPENED"
	EventSessionEnd   = "SESSION_END"
)

// EventLogger receives session events. Implemented in internal/persistence/*.
type EventLogger interface {
	WriteEvent(e Event) error
}

type Event struct {
	SessionID string `json:"session_id"`
	Seed      int64  `json:"seed"`
	Tick      uint64 `json:"tick"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Type      string `json:"type"`
	Puzzle    string `json:"puzzle,omitempty"`
	Target    string `json:"target,omitempty"`
	Slot      string `json:"slot,omitempty"`
	Correct   bool   `json:"correct,omitempty"`
	Code      string `json:"code,omitempty"`
}

// SetEventLoggers replaces the event sinks. Call before Run.
func (r *Room) SetEventLoggers(ls ...EventLogger) { r.events = ls }

func (r *Room) record(e Event) {
	if len(r.events) == 0 {
		return
	}
	e.SessionID = r.cfg.SessionID
	e.Seed = r.cfg.Seed
	e.Tick = r.tick
	e.ElapsedMs = r.now.Sub(r.start).Milliseconds()
	for _, l := range r.events {
		if err := l.WriteEvent(e); err != nil {
			r.logf("event log write failed type=%s err=%v", e.Type, err)
		}
	}
}
