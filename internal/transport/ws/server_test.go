package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

func newTestServer(t *testing.T, opt Options) (*Server, *httptest.Server) {
	t.Helper()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	factory := func(h protocol.HelloMsg) (*room.Room, error) {
		seed := int64(1)
		if h.Seed != nil {
			seed = *h.Seed
		}
		return room.New(room.Config{
			SessionID: "S_TEST",
			Seed:      seed,
			Locale:    h.Locale,
			SkipIntro: h.SkipIntro,
			Tuning:    tuning.Defaults(),
			Catalogs:  cats,
		})
	}
	s := NewServer(factory, v, nil, opt)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	for i := 0; i < 50; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read %s: %v", typ, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err == nil && base.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %s message", typ)
	return nil
}

func TestHandshakeAndProjection(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	conn := dial(t, ts)

	seed := int64(99)
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "test",
		Locale:          "de",
		Seed:            &seed,
		SkipIntro:       true,
	}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readType(t, conn, protocol.TypeWelcome), &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.Seed != 99 || welcome.Locale != "de" || welcome.SessionID != "S_TEST" {
		t.Fatalf("welcome=%+v", welcome)
	}
	if welcome.Scene.Texts["BUTTON_NEXT"] != "WEITER" {
		t.Fatalf("texts not localized: %q", welcome.Scene.Texts["BUTTON_NEXT"])
	}

	var project protocol.ProjectMsg
	if err := json.Unmarshal(readType(t, conn, protocol.TypeProject), &project); err != nil {
		t.Fatalf("project: %v", err)
	}
	if !project.Full || len(project.Cmds) == 0 {
		t.Fatalf("first project should be a full scene: %+v", project)
	}

	// One malformed input, one valid one.
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"INPUT","protocol_version":"1.0","seq":1,"kind":"fly"}`))
	in := protocol.InputMsg{
		Type:            protocol.TypeInput,
		ProtocolVersion: protocol.Version,
		Seq:             2,
		Kind:            protocol.InputCamera,
		Camera:          &protocol.Pose{Position: [3]float64{0.5, 1.6, -15}},
	}
	if err := conn.WriteJSON(in); err != nil {
		t.Fatalf("write input: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.Stats().InputsAccepted == 1 && s.Stats().InputsDropped == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("stats=%+v", s.Stats())
}

func TestHandshakeRejectsBadVersion(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	conn := dial(t, ts)
	if err := conn.WriteJSON(map[string]any{"type": "HELLO", "protocol_version": "0.1", "client_name": "old"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	ce, ok := err.(*websocket.CloseError)
	if !ok || ce.Text != protocol.ErrProtoVersion {
		t.Fatalf("expected close %s, got %v", protocol.ErrProtoVersion, err)
	}
	if s.Stats().Rejected != 1 {
		t.Fatalf("rejected=%d", s.Stats().Rejected)
	}
}

func TestSessionLimit(t *testing.T) {
	_, ts := newTestServer(t, Options{MaxSessions: 1})
	first := dial(t, ts)
	if err := first.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, first, protocol.TypeWelcome)

	second := dial(t, ts)
	_ = second.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := second.ReadMessage()
	ce, ok := err.(*websocket.CloseError)
	if !ok || ce.Text != protocol.ErrSessionBusy {
		t.Fatalf("expected close %s, got %v", protocol.ErrSessionBusy, err)
	}
}
