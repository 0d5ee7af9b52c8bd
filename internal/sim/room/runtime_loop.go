package room

import (
	"context"
	"encoding/json"
	"time"

	"starroom.ai/internal/protocol"
)

// Inbox accepts validated inputs from the transport.
func (r *Room) Inbox() chan<- protocol.InputMsg { return r.inbox }

// Attach sets the channel PROJECT messages are written to. Call before Run.
func (r *Room) Attach(out chan []byte) {
	r.out = out
	r.resync = true
}

func (r *Room) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(r.tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	defer func() {
		r.record(Event{Type: EventSessionEnd})
	}()

	var pending []protocol.InputMsg
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case in := <-r.inbox:
			pending = append(pending, in)
		case now := <-ticker.C:
			msg := r.step(now, pending)
			pending = pending[:0]
			r.send(msg)
		}
	}
}

func (r *Room) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

// StepOnce advances the room by a single tick at now using the same ordering as Run. It is
// meant for deterministic tests and replays.
func (r *Room) StepOnce(now time.Time, inputs []protocol.InputMsg) protocol.ProjectMsg {
	return r.step(now, inputs)
}

// Resync makes the next projection a full scene description.
func (r *Room) Resync() { r.resync = true }

func (r *Room) step(now time.Time, inputs []protocol.InputMsg) protocol.ProjectMsg {
	if now.After(r.now) {
		r.now = now
	}
	r.tick++
	if r.tick == 1 {
		r.record(Event{Type: EventSessionStart})
		r.startIntro()
	}
	r.tl.Advance(r.now)

	for _, in := range inputs {
		r.stats.Inputs.Add(1)
		r.apply(in)
		if in.Seq > r.seq {
			r.seq = in.Seq
		}
	}
	// Zero-delay steps scheduled by inputs fire in the same tick.
	r.tl.Advance(r.now)

	r.prox.Poll(r.camera)
	r.projectPrompt()

	msg := protocol.ProjectMsg{
		Type:            protocol.TypeProject,
		ProtocolVersion: protocol.Version,
		Tick:            r.tick,
		Seq:             r.seq,
	}
	if r.resync {
		r.resync = false
		r.stats.Resyncs.Add(1)
		msg.Full = true
		msg.Cmds = r.fullScene()
		// Toasts are not scene state; keep the ones raised this tick.
		for _, c := range r.cmds {
			if c.Op == protocol.OpToast {
				msg.Cmds = append(msg.Cmds, c)
			}
		}
		r.cmds = r.cmds[:0]
		return msg
	}
	msg.Cmds = append([]protocol.Cmd{}, r.cmds...)
	r.cmds = r.cmds[:0]
	return msg
}

// send delivers msg without blocking the loop. A dropped delta leaves the host out of sync, so
// the next projection is a full one.
func (r *Room) send(msg protocol.ProjectMsg) {
	if r.out == nil {
		return
	}
	if len(msg.Cmds) == 0 && !msg.Full {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		r.logf("marshal project failed err=%v code=%s", err, protocol.ErrInternal)
		return
	}
	select {
	case r.out <- b:
	default:
		r.stats.DroppedOutput.Add(1)
		r.resync = true
	}
}
