package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
	"starroom.ai/internal/transport/ws"
)

// sessionFactory builds one room per accepted HELLO and wires the shared event sinks into it.
type sessionFactory struct {
	cats    *catalogs.Catalogs
	tune    tuning.Tuning
	seed    int64
	roomLog *log.Logger
	sinks   []room.EventLogger

	created atomic.Uint64
}

func (f *sessionFactory) newRoom(h protocol.HelloMsg) (*room.Room, error) {
	seed := f.seed
	if h.Seed != nil {
		seed = *h.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r, err := room.New(room.Config{
		SessionID: newSessionID(),
		Seed:      seed,
		Locale:    h.Locale,
		SkipIntro: h.SkipIntro,
		Tuning:    f.tune,
		Catalogs:  f.cats,
		Logger:    f.roomLog,
	})
	if err != nil {
		return nil, err
	}
	r.SetEventLoggers(f.sinks...)
	f.created.Add(1)
	return r, nil
}

func newSessionID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("S%d", time.Now().UnixNano())
	}
	return "S" + hex.EncodeToString(b[:])
}

type serverRuntime struct {
	ws        *ws.Server
	idx       runtimeIndex
	archive   *archiveRuntime
	factory   *sessionFactory
	startedAt time.Time
}

func (rt *serverRuntime) healthz(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(200)
	_, _ = rw.Write([]byte("ok"))
}

func (rt *serverRuntime) metrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	s := rt.ws.Stats()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP starroom_sessions Current number of connected sessions.\n")
	fmt.Fprintf(rw, "# TYPE starroom_sessions gauge\n")
	fmt.Fprintf(rw, "starroom_sessions %d\n", s.Sessions)

	fmt.Fprintf(rw, "# HELP starroom_sessions_total Total accepted sessions.\n")
	fmt.Fprintf(rw, "# TYPE starroom_sessions_total counter\n")
	fmt.Fprintf(rw, "starroom_sessions_total %d\n", s.SessionsTotal)

	fmt.Fprintf(rw, "# HELP starroom_sessions_rejected_total Total rejected handshakes.\n")
	fmt.Fprintf(rw, "# TYPE starroom_sessions_rejected_total counter\n")
	fmt.Fprintf(rw, "starroom_sessions_rejected_total %d\n", s.Rejected)

	fmt.Fprintf(rw, "# HELP starroom_inputs_total Inputs by outcome.\n")
	fmt.Fprintf(rw, "# TYPE starroom_inputs_total counter\n")
	fmt.Fprintf(rw, "starroom_inputs_total{outcome=%q} %d\n", "accepted", s.InputsAccepted)
	fmt.Fprintf(rw, "starroom_inputs_total{outcome=%q} %d\n", "dropped", s.InputsDropped)

	fmt.Fprintf(rw, "# HELP starroom_projects_written_total Total PROJECT messages written.\n")
	fmt.Fprintf(rw, "# TYPE starroom_projects_written_total counter\n")
	fmt.Fprintf(rw, "starroom_projects_written_total %d\n", s.ProjectsWritten)

	fmt.Fprintf(rw, "# HELP starroom_uptime_seconds Seconds since the server started.\n")
	fmt.Fprintf(rw, "# TYPE starroom_uptime_seconds gauge\n")
	fmt.Fprintf(rw, "starroom_uptime_seconds %.0f\n", time.Since(rt.startedAt).Seconds())

	rt.archive.writeMetrics(rw)

	if rt.idx == nil {
		return
	}
	is := rt.idx.Stats()
	fmt.Fprintf(rw, "# HELP starroom_index_queue_depth Current index writer queue depth.\n")
	fmt.Fprintf(rw, "# TYPE starroom_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "starroom_index_queue_depth %d\n", is.QueueDepth)

	fmt.Fprintf(rw, "# HELP starroom_index_queue_capacity Index writer queue capacity.\n")
	fmt.Fprintf(rw, "# TYPE starroom_index_queue_capacity gauge\n")
	fmt.Fprintf(rw, "starroom_index_queue_capacity %d\n", is.QueueCapacity)

	fmt.Fprintf(rw, "# HELP starroom_index_written_total Total events written to the index.\n")
	fmt.Fprintf(rw, "# TYPE starroom_index_written_total counter\n")
	fmt.Fprintf(rw, "starroom_index_written_total %d\n", is.WrittenTotal)

	fmt.Fprintf(rw, "# HELP starroom_index_dropped_total Index requests dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE starroom_index_dropped_total counter\n")
	fmt.Fprintf(rw, "starroom_index_dropped_total{kind=%q} %d\n", "event", is.DropEventTotal)
	fmt.Fprintf(rw, "starroom_index_dropped_total{kind=%q} %d\n", "query", is.DropQueryTotal)
}

func (rt *serverRuntime) adminStats(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	resp := struct {
		Transport ws.StatsSnapshot `json:"transport"`
		Created   uint64           `json:"rooms_created"`
		Index     any              `json:"index,omitempty"`
		Solves    any              `json:"solves,omitempty"`
		Error     string           `json:"error,omitempty"`
	}{
		Transport: rt.ws.Stats(),
		Created:   rt.factory.created.Load(),
	}
	if rt.idx != nil {
		resp.Index = rt.idx.Stats()
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		solves, err := rt.idx.SolveStats(ctx)
		if err != nil {
			resp.Error = err.Error()
			rw.Header().Set("Content-Type", "application/json")
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(resp)
			return
		}
		resp.Solves = solves
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(resp)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
