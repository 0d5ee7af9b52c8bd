package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/room"
)

// RoomFactory builds the session for an accepted HELLO.
type RoomFactory func(hello protocol.HelloMsg) (*room.Room, error)

type Options struct {
	// MaxSessions caps concurrent connections; 0 means unlimited.
	MaxSessions int
}

type Server struct {
	newRoom   RoomFactory
	validator *protocol.Validator
	log       *log.Logger
	opt       Options

	upgrader websocket.Upgrader
	stats    Stats
}

// Stats are process-wide transport counters.
type Stats struct {
	Sessions        atomic.Int64
	SessionsTotal   atomic.Uint64
	Rejected        atomic.Uint64
	InputsAccepted  atomic.Uint64
	InputsDropped   atomic.Uint64
	ProjectsWritten atomic.Uint64
}

type StatsSnapshot struct {
	Sessions        int64  `json:"sessions"`
	SessionsTotal   uint64 `json:"sessions_total"`
	Rejected        uint64 `json:"rejected"`
	InputsAccepted  uint64 `json:"inputs_accepted"`
	InputsDropped   uint64 `json:"inputs_dropped"`
	ProjectsWritten uint64 `json:"projects_written"`
}

func NewServer(newRoom RoomFactory, v *protocol.Validator, logger *log.Logger, opt Options) *Server {
	s := &Server{
		newRoom:   newRoom,
		validator: v,
		log:       logger,
		opt:       opt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Stats() StatsSnapshot {
	return StatsSnapshot{
		Sessions:        s.stats.Sessions.Load(),
		SessionsTotal:   s.stats.SessionsTotal.Load(),
		Rejected:        s.stats.Rejected.Load(),
		InputsAccepted:  s.stats.InputsAccepted.Load(),
		InputsDropped:   s.stats.InputsDropped.Load(),
		ProjectsWritten: s.stats.ProjectsWritten.Load(),
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if n := s.stats.Sessions.Add(1); s.opt.MaxSessions > 0 && n > int64(s.opt.MaxSessions) {
			s.stats.Sessions.Add(-1)
			s.reject(conn, protocol.ErrSessionBusy)
			return
		}
		defer s.stats.Sessions.Add(-1)

		rm, out := s.handshake(conn)
		if rm == nil {
			return
		}
		s.stats.SessionsTotal.Add(1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		roomDone := make(chan struct{})
		go func() {
			defer close(roomDone)
			if err := rm.Run(ctx); err != nil && ctx.Err() == nil {
				s.logf("session=%s room stopped err=%v", rm.SessionID(), err)
			}
		}()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
					s.stats.ProjectsWritten.Add(1)
				}
			}
		}()

		// Reader loop.
		inbox := rm.Inbox()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			in, code := s.decodeInput(msg)
			if code != "" {
				s.stats.InputsDropped.Add(1)
				s.logf("session=%s input dropped code=%s", rm.SessionID(), code)
				continue
			}
			select {
			case inbox <- in:
				s.stats.InputsAccepted.Add(1)
			case <-ctx.Done():
			}
		}

		// Cleanup.
		rm.Stop()
		<-roomDone
	}
}

// decodeInput returns a validated INPUT or the error code it was dropped with.
func (s *Server) decodeInput(msg []byte) (protocol.InputMsg, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeInput {
		return protocol.InputMsg{}, protocol.ErrProtoBadRequest
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.InputMsg{}, protocol.ErrProtoVersion
	}
	if s.validator != nil {
		if err := s.validator.Validate(protocol.TypeInput, msg); err != nil {
			return protocol.InputMsg{}, protocol.ErrProtoSchema
		}
	}
	var in protocol.InputMsg
	if err := json.Unmarshal(msg, &in); err != nil {
		return protocol.InputMsg{}, protocol.ErrProtoBadRequest
	}
	return in, ""
}

func (s *Server) handshake(conn *websocket.Conn) (*room.Room, chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.reject(conn, "expected HELLO")
		return nil, nil
	}
	if base.ProtocolVersion != protocol.Version {
		s.reject(conn, protocol.ErrProtoVersion)
		return nil, nil
	}
	if s.validator != nil {
		if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
			s.reject(conn, protocol.ErrProtoSchema)
			return nil, nil
		}
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.reject(conn, protocol.ErrProtoBadRequest)
		return nil, nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out := make(chan []byte, maxQ)

	rm, err := s.newRoom(hello)
	if err != nil {
		s.logf("new room failed client=%q err=%v code=%s", hello.ClientName, err, protocol.ErrInternal)
		s.reject(conn, protocol.ErrInternal)
		return nil, nil
	}
	rm.Attach(out)

	if err := writeJSON(conn, rm.Welcome()); err != nil {
		return nil, nil
	}
	s.logf("session=%s seed=%d client=%q locale=%s joined", rm.SessionID(), rm.Seed(), hello.ClientName, hello.Locale)
	return rm, out
}

func (s *Server) reject(conn *websocket.Conn, reason string) {
	s.stats.Rejected.Add(1)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
