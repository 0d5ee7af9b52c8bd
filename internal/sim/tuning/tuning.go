package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`
	TickRateHz      int    `yaml:"tick_rate_hz"`

	PuzzleOrder         []string       `yaml:"puzzle_order"`
	AutoExitMs          int            `yaml:"auto_exit_ms"`
	AutoExitOverridesMs map[string]int `yaml:"auto_exit_overrides_ms"`

	Snap      Snap      `yaml:"snap"`
	Frames    Frames    `yaml:"frames"`
	Proximity Proximity `yaml:"proximity"`
	Camera    Camera    `yaml:"camera"`
	Lamps     Lamps     `yaml:"lamps"`
	Timings   Timings   `yaml:"timings"`
	Letters   Letters   `yaml:"letters"`
}

type Snap struct {
	Threshold        float64 `yaml:"threshold"`
	PreviewThreshold float64 `yaml:"preview_threshold"`
	DeadZone         float64 `yaml:"dead_zone"`
	Tolerance        float64 `yaml:"tolerance"`
}

// Frame is a board's parent transform. Height is the local y pointer rays are projected onto.
type Frame struct {
	Position [3]float64 `yaml:"position"`
	Rotation [3]float64 `yaml:"rotation"`
	Height   float64    `yaml:"height"`
}

type Frames struct {
	Solar      Frame `yaml:"solar"`
	Table2     Frame `yaml:"table2"`
	Blackboard Frame `yaml:"blackboard"`
}

type POI struct {
	ID        string     `yaml:"id"`
	Position  [3]float64 `yaml:"position"`
	Threshold float64    `yaml:"threshold"`
}

type Proximity struct {
	POIs []POI `yaml:"pois"`
}

type Pose struct {
	Position [3]float64 `yaml:"position"`
	Rotation [3]float64 `yaml:"rotation"`
}

type Rect struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinZ float64 `yaml:"min_z"`
	MaxZ float64 `yaml:"max_z"`
}

type Camera struct {
	Start          Pose            `yaml:"start"`
	TransitionMs   int             `yaml:"transition_ms"`
	RestoreDelayMs int             `yaml:"restore_delay_ms"`
	Framings       map[string]Pose `yaml:"framings"`
	Bounds         Rect            `yaml:"bounds"`
	Footprints     []Rect          `yaml:"footprints"`
}

type Lamps struct {
	// Reward lists the lamps that start spinning when a puzzle is solved.
	Reward map[string][]string `yaml:"reward"`
	// Arm lists the lamps switched on when a puzzle becomes the next one.
	Arm          map[string][]string `yaml:"arm"`
	SpinPeriodMs int                 `yaml:"spin_period_ms"`
	// Clockwise lamps spin +360 degrees per period, all others -360.
	Clockwise []string `yaml:"clockwise"`
}

type Timings struct {
	ToastMs        int `yaml:"toast_ms"`
	CaseOpenMs     int `yaml:"case_open_ms"`
	IntroTitleMs   int `yaml:"intro_title_ms"`
	IntroStoryMs   int `yaml:"intro_story_ms"`
	TextFadeInMs   int `yaml:"text_fade_in_ms"`
	ButtonEnableMs int `yaml:"button_enable_ms"`
	PageFadeMs     int `yaml:"page_fade_ms"`
	OverlayFadeMs  int `yaml:"overlay_fade_ms"`
	EndFadeMs      int `yaml:"end_fade_ms"`
	GuideFadeMs    int `yaml:"guide_fade_ms"`
}

type Letters struct {
	Controls int `yaml:"controls"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      30,
		PuzzleOrder:     []string{"solar-system", "blackboard", "table-2", "star-background"},
		AutoExitMs:      500,
		AutoExitOverridesMs: map[string]int{
			"table-2": 0,
		},
		Snap: Snap{Threshold: 0.15, PreviewThreshold: 0.2, DeadZone: 0.2, Tolerance: 0.05},
		Frames: Frames{
			Solar:      Frame{Position: [3]float64{0.5, 1.25, -18.5}, Height: 0.05},
			Table2:     Frame{Position: [3]float64{0.1, 0.75, -4.915}, Height: 0.32},
			Blackboard: Frame{Position: [3]float64{6.53, 2.5, -13.455}, Rotation: [3]float64{0, -90, 0}},
		},
		Proximity: Proximity{POIs: []POI{
			{ID: "solar-system", Position: [3]float64{0.5, 1.25, -18.5}, Threshold: 4},
			{ID: "table-2", Position: [3]float64{0.1, 1.0, -8.415}, Threshold: 4},
			{ID: "blackboard", Position: [3]float64{6.53, 2.5, -13.455}, Threshold: 4},
			{ID: "star-background", Position: [3]float64{-6.53, 3.2, -13.455}, Threshold: 4},
			{ID: "door", Position: [3]float64{4.958, 2.065, -19.998}, Threshold: 4},
			{ID: "case", Position: [3]float64{-5.983, 1.789, -13.445}, Threshold: 2},
		}},
		Camera: Camera{
			Start:          Pose{Position: [3]float64{0, 1.6, -12}},
			TransitionMs:   500,
			RestoreDelayMs: 550,
			Framings: map[string]Pose{
				"solar-system":    {Position: [3]float64{0, 3.153, -18.5}, Rotation: [3]float64{-90, 0, 0}},
				"table-2":         {Position: [3]float64{0.1, 3.153, -8.415}, Rotation: [3]float64{-90, -180, 0}},
				"blackboard":      {Position: [3]float64{4.4, 2.887, -13.454}, Rotation: [3]float64{0, -90, 0}},
				"star-background": {Position: [3]float64{-3, 2.5, -13.455}, Rotation: [3]float64{0, 90, 0}},
			},
			Bounds: Rect{MinX: -5.5, MaxX: 5.5, MinZ: -18.893, MaxZ: -7.934},
			Footprints: []Rect{
				{MinX: -2.66, MaxX: 2.66, MinZ: -20.5, MaxZ: -16.5},
				{MinX: -2.66, MaxX: 2.66, MinZ: -10.415, MaxZ: -6.415},
			},
		},
		Lamps: Lamps{
			Reward: map[string][]string{
				"solar-system":    {"star-lamp-6"},
				"blackboard":      {"star-lamp-10", "star-lamp-11"},
				"table-2":         {"star-lamp-7"},
				"star-background": {"star-lamp-8", "star-lamp-9"},
			},
			Arm: map[string][]string{
				"blackboard":      {"star-lamp-10", "star-lamp-11"},
				"table-2":         {"star-lamp-7"},
				"star-background": {"star-lamp-8", "star-lamp-9"},
			},
			SpinPeriodMs: 15000,
			Clockwise:    []string{"star-lamp-6", "star-lamp-9", "star-lamp-11"},
		},
		Timings: Timings{
			ToastMs:        2000,
			CaseOpenMs:     1500,
			IntroTitleMs:   2000,
			IntroStoryMs:   500,
			TextFadeInMs:   100,
			ButtonEnableMs: 1000,
			PageFadeMs:     1000,
			OverlayFadeMs:  1000,
			EndFadeMs:      1000,
			GuideFadeMs:    300,
		},
		Letters: Letters{Controls: 4},
	}
}

// Load overlays the YAML file at path onto Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive")
	}
	if len(t.PuzzleOrder) == 0 {
		return fmt.Errorf("puzzle_order is empty")
	}
	known := map[string]bool{}
	for _, p := range t.PuzzleOrder {
		switch p {
		case "solar-system", "blackboard", "table-2", "star-background":
		default:
			return fmt.Errorf("puzzle_order: unknown puzzle %q", p)
		}
		if known[p] {
			return fmt.Errorf("puzzle_order: duplicate puzzle %q", p)
		}
		known[p] = true
	}
	for p, ms := range t.AutoExitOverridesMs {
		if !known[p] {
			return fmt.Errorf("auto_exit_overrides_ms: unknown puzzle %q", p)
		}
		if ms < 0 {
			return fmt.Errorf("auto_exit_overrides_ms[%s] is negative", p)
		}
	}
	if t.AutoExitMs < 0 {
		return fmt.Errorf("auto_exit_ms is negative")
	}
	if t.Snap.Threshold <= 0 || t.Snap.Tolerance <= 0 || t.Snap.DeadZone < 0 {
		return fmt.Errorf("snap: threshold and tolerance must be positive")
	}
	for _, p := range t.Proximity.POIs {
		if p.ID == "" || p.Threshold <= 0 {
			return fmt.Errorf("proximity: poi %q needs a positive threshold", p.ID)
		}
	}
	for _, p := range t.PuzzleOrder {
		if _, ok := t.Camera.Framings[p]; !ok {
			return fmt.Errorf("camera.framings: missing %q", p)
		}
	}
	if t.Letters.Controls <= 0 {
		return fmt.Errorf("letters.controls must be positive")
	}
	return nil
}

// Digest is the sha256 of the canonical JSON form of the applied values.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
