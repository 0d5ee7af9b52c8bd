package indexdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

// D1Config points at an ingest worker in front of a Cloudflare D1 database. Events are POSTed
// in batches to Endpoint; StatsEndpoint answers solve aggregates with a GET.
type D1Config struct {
	Endpoint      string
	StatsEndpoint string
	Token         string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	QueueCapacity int
	Logger        *log.Logger
}

// D1Index mirrors the SQLite index tables (sessions, solves, events, catalogs) through the
// ingest worker. Like the SQLite index it never blocks the room loop and drops on overflow.
type D1Index struct {
	cfg        D1Config
	httpClient *http.Client

	ch   chan d1Item
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEventTotal atomic.Uint64
	dropQueryTotal atomic.Uint64
	writtenTotal   atomic.Uint64
}

// d1Item is either an event to send or a flush marker; flushed is closed once everything
// queued before it has been sent.
type d1Item struct {
	ev      d1Event
	flushed chan struct{}
}

type d1Event struct {
	Kind      string `json:"kind"`
	SessionID string `json:"session_id,omitempty"`
	Payload   any    `json:"payload"`
}

type d1EventPayload struct {
	Tick      uint64     `json:"tick"`
	ElapsedMs int64      `json:"elapsed_ms"`
	Type      string     `json:"type"`
	Puzzle    string     `json:"puzzle,omitempty"`
	Target    string     `json:"target,omitempty"`
	Slot      string     `json:"slot,omitempty"`
	Correct   bool       `json:"correct"`
	Code      string     `json:"code,omitempty"`
	Raw       room.Event `json:"raw"`
}

type d1SessionPayload struct {
	Seed        int64  `json:"seed"`
	StartedTick uint64 `json:"started_tick"`
}

type d1SolvePayload struct {
	Puzzle    string `json:"puzzle"`
	Tick      uint64 `json:"tick"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type d1DoorPayload struct {
	ElapsedMs int64 `json:"door_opened_ms"`
}

type d1EndPayload struct {
	EndedTick uint64 `json:"ended_tick"`
}

type d1CatalogPayload struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	UpdatedAt string `json:"updated_at"`
}

func OpenD1(cfg D1Config) (*D1Index, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.StatsEndpoint = strings.TrimSpace(cfg.StatsEndpoint)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty d1 ingest endpoint")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 32768
	}

	d := &D1Index{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ch:         make(chan d1Item, cfg.QueueCapacity),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

// Close sends what is queued and stops the writer.
func (d *D1Index) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

// WriteEvent implements room.EventLogger. Session lifecycle and solve events also produce the
// rows the worker keeps in sessions and solves.
func (d *D1Index) WriteEvent(e room.Event) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	d.enqueue(d1Event{Kind: "event", SessionID: e.SessionID, Payload: d1EventPayload{
		Tick:      e.Tick,
		ElapsedMs: e.ElapsedMs,
		Type:      e.Type,
		Puzzle:    e.Puzzle,
		Target:    e.Target,
		Slot:      e.Slot,
		Correct:   e.Correct,
		Code:      e.Code,
		Raw:       e,
	}})
	switch e.Type {
	case room.EventSessionStart:
		d.enqueue(d1Event{Kind: "session", SessionID: e.SessionID, Payload: d1SessionPayload{Seed: e.Seed, StartedTick: e.Tick}})
	case room.EventSolved:
		d.enqueue(d1Event{Kind: "solve", SessionID: e.SessionID, Payload: d1SolvePayload{Puzzle: e.Puzzle, Tick: e.Tick, ElapsedMs: e.ElapsedMs}})
	case room.EventDoorOpened:
		d.enqueue(d1Event{Kind: "door_opened", SessionID: e.SessionID, Payload: d1DoorPayload{ElapsedMs: e.ElapsedMs}})
	case room.EventSessionEnd:
		d.enqueue(d1Event{Kind: "session_end", SessionID: e.SessionID, Payload: d1EndPayload{EndedTick: e.Tick}})
	}
	return nil
}

// UpsertCatalogs queues one catalog row per catalog digest plus the tuning digest.
func (d *D1Index) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if d == nil || d.closed.Load() || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	digests := map[string]string{"tuning": tune.Digest()}
	for name, dg := range cats.Digests() {
		digests[name] = dg
	}
	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if digests[name] == "" {
			continue
		}
		d.enqueue(d1Event{Kind: "catalog", Payload: d1CatalogPayload{Name: name, Digest: digests[name], UpdatedAt: now}})
	}
	return nil
}

// SolveStats flushes the queue and then asks the stats endpoint for per-puzzle aggregates.
func (d *D1Index) SolveStats(ctx context.Context) ([]PuzzleStat, error) {
	if d == nil || d.closed.Load() {
		return nil, fmt.Errorf("index closed")
	}
	if d.cfg.StatsEndpoint == "" {
		return nil, fmt.Errorf("d1 stats endpoint not configured")
	}
	flushed := make(chan struct{})
	select {
	case d.ch <- d1Item{flushed: flushed}:
	default:
		d.dropQueryTotal.Add(1)
		return nil, fmt.Errorf("index queue full")
	}
	select {
	case <-flushed:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.StatsEndpoint, nil)
	if err != nil {
		return nil, err
	}
	d.authorize(req)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return nil, fmt.Errorf("stats status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out struct {
		Stats []PuzzleStat `json:"stats"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	sort.Slice(out.Stats, func(i, j int) bool { return out.Stats[i].Puzzle < out.Stats[j].Puzzle })
	return out.Stats, nil
}

func (d *D1Index) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		DropEventTotal: d.dropEventTotal.Load(),
		DropQueryTotal: d.dropQueryTotal.Load(),
		WrittenTotal:   d.writtenTotal.Load(),
		QueueDepth:     len(d.ch),
		QueueCapacity:  cap(d.ch),
	}
}

func (d *D1Index) enqueue(ev d1Event) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- d1Item{ev: ev}:
	default:
		n := d.dropEventTotal.Add(1)
		d.printf("d1 index queue full; drop kind=%s session=%s dropped_total=%d", ev.Kind, ev.SessionID, n)
	}
}

func (d *D1Index) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]d1Event, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.dropEventTotal.Add(uint64(len(batch)))
			d.printf("d1 index flush failed batch=%d err=%v", len(batch), err)
		} else {
			d.writtenTotal.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case it, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			if it.flushed != nil {
				flush()
				close(it.flushed)
				continue
			}
			batch = append(batch, it.ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *D1Index) sendBatch(events []d1Event) error {
	body := struct {
		Events []d1Event `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		d.authorize(req)

		resp, err := d.httpClient.Do(req)
		if err == nil {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		lastErr = err
		if attempt < 2 {
			time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
		}
	}
	return lastErr
}

func (d *D1Index) authorize(req *http.Request) {
	if d.cfg.Token != "" {
		req.Header.Set("x-sr-index-token", d.cfg.Token)
	}
}

func (d *D1Index) printf(format string, args ...any) {
	if d != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
