package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	persistlog "starroom.ai/internal/persistence/log"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory containing events/events-*.jsonl.zst")
		file       = flag.String("file", "", "single event log to read instead of -data")
		session    = flag.String("session", "", "only report this session id (optional)")
		configDir  = flag.String("configs", "", "catalog directory the server ran with (default: embedded)")
		tuningPath = flag.String("tuning", "", "tuning.yaml the server ran with (default: built-in)")
		verify     = flag.Bool("verify", true, "rebuild each session layout from its seed and check the events against it")
		asJSON     = flag.Bool("json", false, "print summaries as JSON lines")
	)
	flag.Parse()

	files := []string{*file}
	if strings.TrimSpace(*file) == "" {
		var err error
		files, err = persistlog.EventFiles(*dataDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list events:", err)
			os.Exit(1)
		}
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *dataDir)
		os.Exit(1)
	}

	var events []room.Event
	for _, path := range files {
		err := persistlog.ReadEvents(path, func(e room.Event) error {
			if *session == "" || e.SessionID == *session {
				events = append(events, e)
			}
			return nil
		})
		if err != nil {
			// A torn tail only loses the entries after the damage.
			fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		}
	}

	var cats *catalogs.Catalogs
	tune := tuning.Defaults()
	if *verify {
		var err error
		if strings.TrimSpace(*configDir) == "" {
			cats, err = catalogs.Default()
		} else {
			cats, err = catalogs.Load(*configDir)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "load catalogs:", err)
			os.Exit(1)
		}
		if strings.TrimSpace(*tuningPath) != "" {
			tune, err = tuning.Load(*tuningPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, "load tuning:", err)
				os.Exit(1)
			}
		}
	}

	failed := 0
	enc := json.NewEncoder(os.Stdout)
	sessions := summarize(events)
	for _, s := range sessions {
		if *asJSON {
			_ = enc.Encode(s)
		} else {
			s.print()
		}
		if !*verify {
			continue
		}
		if err := s.verify(cats, tune); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "session %s: verify: %v\n", s.SessionID, err)
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "replay: %d/%d sessions failed verification\n", failed, len(sessions))
		os.Exit(1)
	}
	if !*asJSON {
		fmt.Printf("replay ok: sessions=%d events=%d files=%d\n", len(sessions), len(events), len(files))
	}
}
