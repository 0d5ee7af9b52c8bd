package roomtest

import (
	"testing"
	"time"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

// Harness drives a room through StepOnce with an explicit clock:
// - Send() queues an input for the next tick
// - Step()/StepFor() advance the clock one tick at a time
// - every projected command and session event is kept for assertions
//
// It only uses exported room APIs so tests can live outside the room package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	Tune tuning.Tuning
	R    *room.Room

	Now    time.Time
	Cmds   []protocol.Cmd
	Last   protocol.ProjectMsg
	Events []room.Event

	seq     uint64
	pending []protocol.InputMsg
}

type Options struct {
	Seed      int64
	SkipIntro bool
	Locale    string
}

func NewHarness(t *testing.T, opt Options) *Harness {
	t.Helper()

	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs.Default: %v", err)
	}
	tune := tuning.Defaults()
	start := time.Unix(1_700_000_000, 0)
	r, err := room.New(room.Config{
		SessionID: "S1",
		Seed:      opt.Seed,
		Locale:    opt.Locale,
		SkipIntro: opt.SkipIntro,
		Start:     start,
		Tuning:    tune,
		Catalogs:  cats,
	})
	if err != nil {
		t.Fatalf("room.New: %v", err)
	}
	h := &Harness{T: t, Cats: cats, Tune: tune, R: r, Now: start}
	r.SetEventLoggers(h)
	return h
}

// WriteEvent implements room.EventLogger.
func (h *Harness) WriteEvent(e room.Event) error {
	h.Events = append(h.Events, e)
	return nil
}

func (h *Harness) Interval() time.Duration {
	return time.Second / time.Duration(h.Tune.TickRateHz)
}

// Send queues in for the next Step.
func (h *Harness) Send(in protocol.InputMsg) {
	h.seq++
	in.Type = protocol.TypeInput
	in.ProtocolVersion = protocol.Version
	in.Seq = h.seq
	h.pending = append(h.pending, in)
}

func (h *Harness) Step() protocol.ProjectMsg {
	h.Now = h.Now.Add(h.Interval())
	msg := h.R.StepOnce(h.Now, h.pending)
	h.pending = nil
	h.Last = msg
	h.Cmds = append(h.Cmds, msg.Cmds...)
	return msg
}

// StepFor advances at least d of room time.
func (h *Harness) StepFor(d time.Duration) {
	end := h.Now.Add(d)
	for h.Now.Before(end) {
		h.Step()
	}
}

// Do sends in and steps once.
func (h *Harness) Do(in protocol.InputMsg) protocol.ProjectMsg {
	h.Send(in)
	return h.Step()
}

func (h *Harness) MoveCamera(x, y, z float64) {
	h.Do(protocol.InputMsg{Kind: protocol.InputCamera, Camera: &protocol.Pose{Position: [3]float64{x, y, z}}})
}

func (h *Harness) PressE() {
	h.Do(protocol.InputMsg{Kind: protocol.InputKey, Key: "e"})
}

func (h *Harness) Click(hits ...protocol.Hit) {
	h.Do(protocol.InputMsg{Kind: protocol.InputPointerDown, Hits: hits})
}

func (h *Harness) UI(action string) {
	h.Do(protocol.InputMsg{Kind: protocol.InputUI, Action: action})
}

// DragTo presses on token id, moves the pointer straight above the world point (x, z) and
// releases there.
func (h *Harness) DragTo(id string, x, z float64) {
	ray := &protocol.Ray{Origin: [3]float64{x, 10, z}, Dir: [3]float64{0, -1, 0}}
	h.Click(protocol.Hit{Kind: protocol.HitToken, ID: id})
	h.Do(protocol.InputMsg{Kind: protocol.InputPointerMove, Ray: ray})
	h.Do(protocol.InputMsg{Kind: protocol.InputPointerUp, Ray: ray})
}

// Mark returns the current command count; pass it to Since.
func (h *Harness) Mark() int { return len(h.Cmds) }

// Since returns the commands with op projected after mark.
func (h *Harness) Since(mark int, op string) []protocol.Cmd {
	var out []protocol.Cmd
	for _, c := range h.Cmds[mark:] {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// LastCmd returns the latest command with op (and id when non-empty).
func (h *Harness) LastCmd(op, id string) (protocol.Cmd, bool) {
	for i := len(h.Cmds) - 1; i >= 0; i-- {
		c := h.Cmds[i]
		if c.Op == op && (id == "" || c.ID == id) {
			return c, true
		}
	}
	return protocol.Cmd{}, false
}

// Mode is the latest projected view mode.
func (h *Harness) Mode() string {
	c, ok := h.LastCmd(protocol.OpMode, "")
	if !ok {
		return ""
	}
	return c.Text
}

func (h *Harness) HasEvent(typ, puzzle string) bool {
	for _, e := range h.Events {
		if e.Type == typ && (puzzle == "" || e.Puzzle == puzzle) {
			return true
		}
	}
	return false
}
