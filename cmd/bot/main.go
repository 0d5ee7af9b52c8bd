package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/tuning"
)

// Standing spots inside the walkable area, each near exactly one POI.
var spots = map[string][3]float64{
	"solar-system":    {0.5, 1.6, -15},
	"blackboard":      {4, 1.6, -13.455},
	"table-2":         {0.1, 1.6, -11},
	"star-background": {-4, 1.6, -13.455},
	"case":            {-4.5, 1.6, -13.445},
	"door":            {4.8, 1.6, -18.5},
}

func main() {
	var (
		url       = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name      = flag.String("name", "bot", "client name")
		locale    = flag.String("locale", "en", "session locale")
		seed      = flag.Int64("seed", 0, "pin the session layout (0 = server picks)")
		skipIntro = flag.Bool("skip_intro", true, "skip the intro sequence")
		pace      = flag.Duration("pace", 120*time.Millisecond, "delay between inputs")
		timeout   = flag.Duration("timeout", 10*time.Second, "max wait for a projected result")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Default()
	if err != nil {
		logger.Fatalf("catalogs: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Locale:          *locale,
		MaxQueue:        32,
		SkipIntro:       *skipIntro,
	}
	if *seed != 0 {
		hello.Seed = seed
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}
	welcome, err := readWelcome(conn)
	if err != nil {
		logger.Fatalf("WELCOME: %v", err)
	}
	logger.Printf("WELCOME session=%s seed=%d tick_rate=%d constellation=%s", welcome.SessionID, welcome.Seed, welcome.TickRateHz, welcome.Scene.Constellation.ID)

	b := &bot{
		conn:    conn,
		log:     logger,
		cats:    cats,
		tune:    tuning.Defaults(),
		scene:   welcome.Scene,
		pace:    *pace,
		timeout: *timeout,
		cmds:    make(chan protocol.Cmd, 1024),
		done:    make(chan struct{}),
	}
	go b.readLoop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	result := make(chan error, 1)
	go func() { result <- b.play(!*skipIntro) }()

	select {
	case <-stop:
		logger.Printf("interrupted")
	case err := <-result:
		if err != nil {
			logger.Fatalf("playthrough failed: %v", err)
		}
		logger.Printf("escaped")
	}
}

func readWelcome(conn *websocket.Conn) (protocol.WelcomeMsg, error) {
	var w protocol.WelcomeMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return w, err
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return w, err
	}
	if base.Type != protocol.TypeWelcome {
		return w, fmt.Errorf("unexpected %s: %s", base.Type, msg)
	}
	err = json.Unmarshal(msg, &w)
	return w, err
}

type bot struct {
	conn    *websocket.Conn
	log     *log.Logger
	cats    *catalogs.Catalogs
	tune    tuning.Tuning
	scene   protocol.SceneLayout
	pace    time.Duration
	timeout time.Duration

	mu  sync.Mutex
	seq uint64

	cmds chan protocol.Cmd
	done chan struct{}
}

func (b *bot) readLoop() {
	defer close(b.done)
	for {
		_, msg, err := b.conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeProject {
			continue
		}
		var p protocol.ProjectMsg
		if err := json.Unmarshal(msg, &p); err != nil {
			continue
		}
		for _, c := range p.Cmds {
			switch c.Op {
			case protocol.OpSolved, protocol.OpMode, protocol.OpToast, protocol.OpCaseOpen, protocol.OpFade:
				b.log.Printf("tick=%d %s id=%s text=%q", p.Tick, c.Op, c.ID, c.Text)
			}
			select {
			case b.cmds <- c:
			default:
				b.log.Printf("cmd backlog full, dropped op=%s", c.Op)
			}
		}
	}
}

func (b *bot) send(in protocol.InputMsg) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	in.Type = protocol.TypeInput
	in.ProtocolVersion = protocol.Version
	in.Seq = b.seq
	_ = b.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := b.conn.WriteJSON(in); err != nil {
		return err
	}
	time.Sleep(b.pace)
	return nil
}

// waitFor blocks until a projected command matches.
func (b *bot) waitFor(what string, match func(protocol.Cmd) bool) error {
	deadline := time.NewTimer(b.timeout)
	defer deadline.Stop()
	for {
		select {
		case c := <-b.cmds:
			if match(c) {
				return nil
			}
		case <-b.done:
			return fmt.Errorf("connection closed while waiting for %s", what)
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for %s", what)
		}
	}
}

func (b *bot) drain() {
	for {
		select {
		case <-b.cmds:
		default:
			return
		}
	}
}

func (b *bot) play(intro bool) error {
	start := b.tune.Camera.Start.Position
	if err := b.send(protocol.InputMsg{Kind: protocol.InputReady, Camera: &protocol.Pose{Position: start}}); err != nil {
		return err
	}
	if intro {
		if err := b.clickThroughIntro(); err != nil {
			return err
		}
	}
	solvers := map[string]func() error{
		"solar-system":    b.solveSolar,
		"blackboard":      b.solveBlackboard,
		"table-2":         b.solveTable2,
		"star-background": b.solveStars,
	}
	for _, p := range b.scene.PuzzleOrder {
		solve, ok := solvers[p]
		if !ok {
			return fmt.Errorf("no solver for %s", p)
		}
		if err := b.enter(p); err != nil {
			return err
		}
		if err := solve(); err != nil {
			return err
		}
		if err := b.waitFor("solved "+p, func(c protocol.Cmd) bool { return c.Op == protocol.OpSolved && c.ID == p }); err != nil {
			return err
		}
		if err := b.waitFor("auto exit", isMode("free_roam")); err != nil {
			return err
		}
		// Controls come back after the camera restore delay.
		time.Sleep(time.Duration(b.tune.Camera.RestoreDelayMs+200) * time.Millisecond)
	}

	if err := b.waitFor("case open", func(c protocol.Cmd) bool { return c.Op == protocol.OpCaseOpen }); err != nil {
		return err
	}
	if err := b.walk("case"); err != nil {
		return err
	}
	if err := b.pressE(); err != nil {
		return err
	}
	if err := b.walk("door"); err != nil {
		return err
	}
	if err := b.pressE(); err != nil {
		return err
	}
	return b.waitFor("end fade", func(c protocol.Cmd) bool { return c.Op == protocol.OpFade })
}

func (b *bot) clickThroughIntro() error {
	for _, action := range []string{protocol.ActionNext, protocol.ActionStart} {
		err := b.waitFor("intro button", func(c protocol.Cmd) bool {
			return c.Op == protocol.OpOverlay && c.ID == "intro.button" && c.Value == 1
		})
		if err != nil {
			return err
		}
		if err := b.send(protocol.InputMsg{Kind: protocol.InputUI, Action: action}); err != nil {
			return err
		}
	}
	time.Sleep(time.Duration(b.tune.Timings.PageFadeMs+b.tune.Timings.OverlayFadeMs+200) * time.Millisecond)
	return nil
}

func (b *bot) walk(spot string) error {
	p, ok := spots[spot]
	if !ok {
		return fmt.Errorf("unknown spot %s", spot)
	}
	return b.send(protocol.InputMsg{Kind: protocol.InputCamera, Camera: &protocol.Pose{Position: p}})
}

func (b *bot) pressE() error {
	return b.send(protocol.InputMsg{Kind: protocol.InputKey, Key: "e"})
}

func (b *bot) enter(puzzle string) error {
	b.drain()
	if err := b.walk(puzzle); err != nil {
		return err
	}
	if err := b.pressE(); err != nil {
		return err
	}
	return b.waitFor("enter "+puzzle, func(c protocol.Cmd) bool {
		return c.Op == protocol.OpMode && c.Text != "free_roam"
	})
}

func (b *bot) click(hits ...protocol.Hit) error {
	return b.send(protocol.InputMsg{Kind: protocol.InputPointerDown, Hits: hits})
}

// dragTo drops token id at world (x, z) with a straight-down ray.
func (b *bot) dragTo(id string, x, z float64) error {
	ray := &protocol.Ray{Origin: [3]float64{x, 10, z}, Dir: [3]float64{0, -1, 0}}
	if err := b.click(protocol.Hit{Kind: protocol.HitToken, ID: id}); err != nil {
		return err
	}
	if err := b.send(protocol.InputMsg{Kind: protocol.InputPointerMove, Ray: ray}); err != nil {
		return err
	}
	return b.send(protocol.InputMsg{Kind: protocol.InputPointerUp, Ray: ray})
}

func (b *bot) solveSolar() error {
	frame := b.scene.Frames["solar-system"].Position
	for _, p := range b.scene.Planets {
		def, ok := b.cats.Planets.ByName[p.Planet]
		if !ok {
			return fmt.Errorf("unknown planet %s", p.Planet)
		}
		if err := b.dragTo(p.ID, frame[0]+def.Radius, frame[2]); err != nil {
			return err
		}
	}
	return nil
}

func (b *bot) solveBlackboard() error {
	def, ok := b.cats.Constellations.ByID[b.scene.Constellation.ID]
	if !ok {
		return fmt.Errorf("unknown constellation %s", b.scene.Constellation.ID)
	}
	for _, c := range def.Connections {
		if err := b.click(protocol.Hit{Kind: protocol.HitStar, ID: c[0]}); err != nil {
			return err
		}
		if err := b.click(protocol.Hit{Kind: protocol.HitStar, ID: c[1]}); err != nil {
			return err
		}
	}
	return nil
}

func (b *bot) solveTable2() error {
	frame := b.scene.Frames["table-2"].Position
	centers := map[string][2]float64{}
	for _, r := range b.scene.Regions {
		centers[r.Element] = r.Center
	}
	for _, s := range b.scene.Signs {
		c := centers[s.Element]
		if err := b.dragTo(s.ID, frame[0]+c[0], frame[2]+c[1]); err != nil {
			return err
		}
	}
	return nil
}

func (b *bot) solveStars() error {
	for _, n := range b.scene.Northern {
		up := protocol.Hit{Kind: protocol.HitArrow, ID: "up", Index: n.Index}
		steps := b.cats.Greek.Index[n.Highlight]
		if steps == 0 {
			if err := b.click(up); err != nil {
				return err
			}
			if err := b.click(protocol.Hit{Kind: protocol.HitArrow, ID: "down", Index: n.Index}); err != nil {
				return err
			}
			continue
		}
		for i := 0; i < steps; i++ {
			if err := b.click(up); err != nil {
				return err
			}
		}
	}
	return nil
}

func isMode(mode string) func(protocol.Cmd) bool {
	return func(c protocol.Cmd) bool { return c.Op == protocol.OpMode && c.Text == mode }
}
