package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"

	"starroom.ai/internal/protocol"
)

func main() {
	var (
		url       = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		locale    = flag.String("locale", "en", "session locale")
		seed      = flag.Int64("seed", 0, "pin the session layout (0 = server picks)")
		skipIntro = flag.Bool("skip_intro", false, "skip the intro sequence")
		logPath   = flag.String("log", "console.log", "log file (the terminal belongs to the UI)")
	)
	flag.Parse()

	lf, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open log:", err)
		os.Exit(1)
	}
	defer lf.Close()
	logger := log.New(lf, "[console] ", log.LstdFlags|log.Lmicroseconds)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "console",
		Locale:          *locale,
		MaxQueue:        32,
		SkipIntro:       *skipIntro,
	}
	if *seed != 0 {
		hello.Seed = seed
	}
	if err := conn.WriteJSON(hello); err != nil {
		fmt.Fprintln(os.Stderr, "send HELLO:", err)
		os.Exit(1)
	}
	welcome, err := readWelcome(conn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "WELCOME:", err)
		os.Exit(1)
	}
	logger.Printf("WELCOME session=%s seed=%d locale=%s", welcome.SessionID, welcome.Seed, welcome.Locale)

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "screen init:", err)
		os.Exit(1)
	}
	defer screen.Fini()

	c := &client{conn: conn, log: logger, view: newView(welcome, [3]float64{})}
	if err := c.run(screen); err != nil {
		screen.Fini()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
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

type client struct {
	conn *websocket.Conn
	log  *log.Logger
	view *view
	seq  uint64
}

func (c *client) send(in protocol.InputMsg) error {
	c.seq++
	in.Type = protocol.TypeInput
	in.ProtocolVersion = protocol.Version
	in.Seq = c.seq
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(in)
}

// run owns the view: projections and key events are both applied on this goroutine.
func (c *client) run(screen tcell.Screen) error {
	projects := make(chan protocol.ProjectMsg, 64)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, msg, err := c.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var p protocol.ProjectMsg
			if err := json.Unmarshal(msg, &p); err != nil || p.Type != protocol.TypeProject {
				continue
			}
			projects <- p
		}
	}()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	if err := c.send(protocol.InputMsg{Kind: protocol.InputReady}); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case p := <-projects:
			c.view.apply(p, time.Now())
			for _, cmd := range p.Cmds {
				if cmd.Op == protocol.OpSolved || cmd.Op == protocol.OpMode || cmd.Op == protocol.OpPlacement {
					c.log.Printf("tick=%d %s id=%s text=%q", p.Tick, cmd.Op, cmd.ID, cmd.Text)
				}
			}
		case err := <-readErr:
			return fmt.Errorf("connection closed: %w", err)
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				ins, quit := c.view.handleKey(ev)
				if quit {
					return nil
				}
				for _, in := range ins {
					if err := c.send(in); err != nil {
						return err
					}
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
		}
		c.view.draw(screen, time.Now())
	}
}
