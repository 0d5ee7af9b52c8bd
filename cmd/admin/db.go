package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/sessions.sqlite)")
	sessionID := fs.String("session", "", "session id (required for events)")
	puzzle := fs.String("puzzle", "", "puzzle filter (events, solves)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "sessions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "sessions.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "sessions":
		rows, err := db.Query(`SELECT session_id,seed,started_tick,ended_tick,solved,door_opened_ms FROM sessions ORDER BY rowid DESC LIMIT ?`, *limit)
		if err != nil {
			fail("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				r struct {
					SessionID   string `json:"session_id"`
					Seed        int64  `json:"seed"`
					StartedTick int64  `json:"started_tick"`
					EndedTick   *int64 `json:"ended_tick,omitempty"`
					Solved      int    `json:"solved"`
					EscapedMs   *int64 `json:"escaped_ms,omitempty"`
				}
				ended, door sql.NullInt64
			)
			if err := rows.Scan(&r.SessionID, &r.Seed, &r.StartedTick, &ended, &r.Solved, &door); err != nil {
				fail("scan", err)
			}
			if ended.Valid {
				r.EndedTick = &ended.Int64
			}
			if door.Valid {
				r.EscapedMs = &door.Int64
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fail("rows", err)
		}

	case "solves":
		query := `SELECT puzzle, COUNT(*), AVG(elapsed_ms), MIN(elapsed_ms), MAX(elapsed_ms) FROM solves GROUP BY puzzle ORDER BY puzzle`
		var qargs []any
		if p := strings.TrimSpace(*puzzle); p != "" {
			query = `SELECT puzzle, COUNT(*), AVG(elapsed_ms), MIN(elapsed_ms), MAX(elapsed_ms) FROM solves WHERE puzzle=? GROUP BY puzzle`
			qargs = append(qargs, p)
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fail("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Puzzle       string  `json:"puzzle"`
				Solves       int64   `json:"solves"`
				AvgElapsedMs float64 `json:"avg_elapsed_ms"`
				MinElapsedMs int64   `json:"min_elapsed_ms"`
				MaxElapsedMs int64   `json:"max_elapsed_ms"`
			}
			if err := rows.Scan(&r.Puzzle, &r.Solves, &r.AvgElapsedMs, &r.MinElapsedMs, &r.MaxElapsedMs); err != nil {
				fail("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fail("rows", err)
		}

	case "events":
		if strings.TrimSpace(*sessionID) == "" {
			fmt.Fprintln(os.Stderr, "missing -session")
			os.Exit(2)
		}
		query := `SELECT raw_json FROM events WHERE session_id=? ORDER BY id LIMIT ?`
		qargs := []any{strings.TrimSpace(*sessionID), *limit}
		if p := strings.TrimSpace(*puzzle); p != "" {
			query = `SELECT raw_json FROM events WHERE session_id=? AND puzzle=? ORDER BY id LIMIT ?`
			qargs = []any{strings.TrimSpace(*sessionID), p, *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fail("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				fail("scan", err)
			}
			fmt.Println(raw)
		}
		if err := rows.Err(); err != nil {
			fail("rows", err)
		}

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			fail("query", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				fail("scan", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fail("rows", err)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-session ID] [-puzzle P] [-limit N] sessions|solves|events|catalogs")
		os.Exit(2)
	}
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
