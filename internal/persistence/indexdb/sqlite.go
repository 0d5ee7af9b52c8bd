package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index of session events. The JSONL logs remain the
// source of truth; events are dropped when the writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEventTotal atomic.Uint64
	dropQueryTotal atomic.Uint64
	writtenTotal   atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSolveStats
)

type req struct {
	kind reqKind

	event room.Event
	reply chan solveStatsResult
}

type solveStatsResult struct {
	stats []PuzzleStat
	err   error
}

// PuzzleStat aggregates solves of one puzzle across sessions.
type PuzzleStat struct {
	Puzzle       string  `json:"puzzle"`
	Solves       int     `json:"solves"`
	AvgElapsedMs float64 `json:"avg_elapsed_ms"`
	MinElapsedMs int64   `json:"min_elapsed_ms"`
}

type Stats struct {
	DropEventTotal uint64 `json:"drop_event_total"`
	DropQueryTotal uint64 `json:"drop_query_total"`
	WrittenTotal   uint64 `json:"written_total"`
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			started_tick INTEGER NOT NULL,
			ended_tick INTEGER,
			solved INTEGER NOT NULL DEFAULT 0,
			door_opened_ms INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS solves (
			session_id TEXT NOT NULL,
			puzzle TEXT NOT NULL,
			tick INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			PRIMARY KEY (session_id, puzzle)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_solves_puzzle ON solves(puzzle);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			type TEXT NOT NULL,
			puzzle TEXT,
			target TEXT,
			slot TEXT,
			correct INTEGER NOT NULL,
			code TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type, puzzle);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteEvent implements room.EventLogger. It never blocks the room loop.
func (s *SQLiteIndex) WriteEvent(e room.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		s.dropEventTotal.Add(1)
	}
	return nil
}

// SolveStats returns per-puzzle solve counts and times. The query runs on the writer goroutine
// after everything queued before it has been committed.
func (s *SQLiteIndex) SolveStats(ctx context.Context) ([]PuzzleStat, error) {
	if s == nil || s.closed.Load() {
		return nil, fmt.Errorf("index closed")
	}
	reply := make(chan solveStatsResult, 1)
	select {
	case s.ch <- req{kind: reqSolveStats, reply: reply}:
	default:
		s.dropQueryTotal.Add(1)
		return nil, fmt.Errorf("index queue full")
	}
	select {
	case res := <-reply:
		return res.stats, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropEventTotal: s.dropEventTotal.Load(),
		DropQueryTotal: s.dropQueryTotal.Load(),
		WrittenTotal:   s.writtenTotal.Load(),
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
	}
}

// UpsertCatalogs records the digests of the catalogs and tuning the server runs with.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	digests := map[string]string{"tuning": tune.Digest()}
	for name, d := range cats.Digests() {
		digests[name] = d
	}
	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,updated_at) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, name := range names {
		if _, err := stmt.Exec(name, digests[name], now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT INTO events(session_id,tick,elapsed_ms,type,puzzle,target,slot,correct,code,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(session_id,seed,started_tick) VALUES(?,?,?)`)
	insertSolve, _ := s.db.Prepare(`INSERT OR IGNORE INTO solves(session_id,puzzle,tick,elapsed_ms) VALUES(?,?,?,?)`)
	bumpSolved, _ := s.db.Prepare(`UPDATE sessions SET solved = solved + 1 WHERE session_id = ?`)
	doorOpened, _ := s.db.Prepare(`UPDATE sessions SET door_opened_ms = ? WHERE session_id = ?`)
	endSession, _ := s.db.Prepare(`UPDATE sessions SET ended_tick = ? WHERE session_id = ?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEvent, insertSession, insertSolve, bumpSolved, doorOpened, endSession} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	// exec reports the number of rows changed, -1 on failure.
	exec := func(st *sql.Stmt, args ...any) int64 {
		if st == nil || tx == nil {
			return -1
		}
		res, err := tx.Stmt(st).Exec(args...)
		if err != nil {
			rollback()
			return -1
		}
		opCount++
		n, _ := res.RowsAffected()
		return n
	}

	for r := range s.ch {
		if r.kind == reqSolveStats {
			commit()
			stats, err := s.querySolveStats(ctx)
			r.reply <- solveStatsResult{stats: stats, err: err}
			continue
		}

		begin()
		if tx == nil {
			continue
		}
		e := r.event
		raw, _ := json.Marshal(e)
		correct := 0
		if e.Correct {
			correct = 1
		}
		if exec(insertEvent, e.SessionID, int64(e.Tick), e.ElapsedMs, e.Type, e.Puzzle, e.Target, e.Slot, correct, e.Code, string(raw)) < 0 {
			continue
		}
		switch e.Type {
		case room.EventSessionStart:
			exec(insertSession, e.SessionID, e.Seed, int64(e.Tick))
		case room.EventSolved:
			// Solves are recorded once per session and puzzle.
			if exec(insertSolve, e.SessionID, e.Puzzle, int64(e.Tick), e.ElapsedMs) == 1 {
				exec(bumpSolved, e.SessionID)
			}
		case room.EventDoorOpened:
			exec(doorOpened, e.ElapsedMs, e.SessionID)
		case room.EventSessionEnd:
			exec(endSession, int64(e.Tick), e.SessionID)
		}
		s.writtenTotal.Add(1)
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func (s *SQLiteIndex) querySolveStats(ctx context.Context) ([]PuzzleStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT puzzle, COUNT(*), AVG(elapsed_ms), MIN(elapsed_ms) FROM solves GROUP BY puzzle ORDER BY puzzle`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PuzzleStat
	for rows.Next() {
		var p PuzzleStat
		if err := rows.Scan(&p.Puzzle, &p.Solves, &p.AvgElapsedMs, &p.MinElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
