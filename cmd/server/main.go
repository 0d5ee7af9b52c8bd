package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "starroom.ai/internal/persistence/log"
	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/tuning"
	"starroom.ai/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		configDir   = flag.String("configs", "", "catalog directory overriding the embedded catalogs (optional)")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml, else built-in defaults)")
		dataDir     = flag.String("data", "./data", "runtime data directory (event logs + index)")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite session index")
		disableLog  = flag.Bool("disable_event_log", false, "disable the jsonl event log")
		seed        = flag.Int64("seed", 0, "fixed layout seed for every session (0 = random per session)")
		maxSessions = flag.Int("max_sessions", envInt("SR_MAX_SESSIONS", 64), "max concurrent sessions")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	roomLogger := log.New(os.Stdout, "[room] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := loadCatalogs(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tune, err := loadTuning(*configDir, *tuningPath, logger)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	_ = os.MkdirAll(*dataDir, 0o755)

	// Optional: read-model index backend (does not affect sessions).
	idx, err := openRuntimeIndex(*dataDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	factory := &sessionFactory{cats: cats, tune: tune, seed: *seed, roomLog: roomLogger}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}
	archive, err := buildArchiveRuntime(*dataDir, os.Getenv, logger)
	if err != nil {
		logger.Fatalf("init archive: %v", err)
	}
	defer archive.Close()
	if !*disableLog {
		// Closed before the archive so the last segment is still uploaded.
		eventLog := persistlog.NewEventLoggerWithOptions(*dataDir, archive.writerOptions())
		defer eventLog.Close()
		factory.sinks = append(factory.sinks, eventLog)
	}
	if idx != nil {
		factory.sinks = append(factory.sinks, idx)
	}

	validator, err := protocol.NewValidator()
	if err != nil {
		logger.Fatalf("protocol schemas: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt := &serverRuntime{
		ws:        ws.NewServer(factory.newRoom, validator, logger, ws.Options{MaxSessions: *maxSessions}),
		idx:       idx,
		archive:   archive,
		factory:   factory,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/metrics", rt.metrics)

	enableAdminHTTP := envBool("SR_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("SR_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/stats", rt.adminStats)
	} else {
		logger.Printf("admin endpoints disabled (SR_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (SR_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", rt.ws.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s puzzles=%s tick_rate=%d", *addr, strings.Join(tune.PuzzleOrder, ","), tune.TickRateHz)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func loadCatalogs(dir string) (*catalogs.Catalogs, error) {
	if strings.TrimSpace(dir) == "" {
		return catalogs.Default()
	}
	return catalogs.Load(dir)
}

// loadTuning reads the explicit -tuning path, then <configs>/tuning.yaml, then falls back to
// the built-in defaults. Only an explicit path must exist.
func loadTuning(configDir, path string, logger *log.Logger) (tuning.Tuning, error) {
	tp := strings.TrimSpace(path)
	if tp != "" {
		return tuning.Load(tp)
	}
	if strings.TrimSpace(configDir) != "" {
		tp = filepath.Join(configDir, "tuning.yaml")
		t, err := tuning.Load(tp)
		if err == nil {
			return t, nil
		}
		if !os.IsNotExist(err) {
			return t, err
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
	}
	return tuning.Defaults(), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
