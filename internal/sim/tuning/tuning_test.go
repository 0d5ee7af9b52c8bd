package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := []byte("auto_exit_ms: 800\nsnap:\n  threshold: 0.2\n  tolerance: 0.05\n  dead_zone: 0.2\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.AutoExitMs != 800 || tu.Snap.Threshold != 0.2 {
		t.Fatalf("overlay not applied: %+v", tu)
	}
	if tu.AutoExitOverridesMs["table-2"] != 0 || len(tu.PuzzleOrder) != 4 {
		t.Fatalf("defaults lost: %+v", tu)
	}
	if tu.Camera.RestoreDelayMs != 550 {
		t.Fatalf("restore delay=%d", tu.Camera.RestoreDelayMs)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Tuning){
		"empty order":     func(tu *Tuning) { tu.PuzzleOrder = nil },
		"unknown puzzle":  func(tu *Tuning) { tu.PuzzleOrder = []string{"solar-system", "attic"} },
		"duplicate":       func(tu *Tuning) { tu.PuzzleOrder = []string{"table-2", "table-2"} },
		"zero threshold":  func(tu *Tuning) { tu.Snap.Threshold = 0 },
		"bad poi":         func(tu *Tuning) { tu.Proximity.POIs[0].Threshold = 0 },
		"missing framing": func(tu *Tuning) { delete(tu.Camera.Framings, "blackboard") },
	}
	for name, mutate := range cases {
		tu := Defaults()
		mutate(&tu)
		if err := tu.Validate(); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("puzzle_order: {"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
