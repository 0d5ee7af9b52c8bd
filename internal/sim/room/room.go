// Package room runs one escape-room session.
//
// A Room owns every puzzle engine of the session and mutates them only from its loop goroutine.
// Inputs are queued and applied at the next tick in arrival order; each tick ends with a
// projection of the changed scene state for the host.
package room

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zyedidia/generic/mapset"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/constellation"
	"starroom.ai/internal/sim/drag"
	"starroom.ai/internal/sim/letters"
	"starroom.ai/internal/sim/progression"
	"starroom.ai/internal/sim/proximity"
	"starroom.ai/internal/sim/spatial"
	"starroom.ai/internal/sim/texts"
	"starroom.ai/internal/sim/timeline"
	"starroom.ai/internal/sim/tuning"
	"starroom.ai/internal/sim/viewmode"
)

type Config struct {
	SessionID string
	Seed      int64
	Locale    string
	SkipIntro bool
	// Start is the session clock origin; zero means time.Now().
	Start time.Time

	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	Logger   *log.Logger
}

// Room is a single-threaded authoritative session.
// All state must be accessed only from the room loop goroutine.
type Room struct {
	cfg    Config
	tune   tuning.Tuning
	cats   *catalogs.Catalogs
	texts  *texts.Catalog
	log    *log.Logger
	layout protocol.SceneLayout

	start time.Time
	now   time.Time
	tick  uint64
	seq   uint64

	tl      *timeline.Timeline
	vm      *viewmode.Controller
	prox    *proximity.Service
	fsm     *progression.FSM
	drags   *drag.Controller
	orbit   *drag.OrbitBoard
	zodiac  *drag.ImageBoard
	graph   *constellation.Graph
	letters *letters.Puzzle

	blackboard mgl64.Mat4
	camera     *spatial.Vec3

	introDone   bool
	introPage   int
	introButton bool
	guide       bool
	caseOpen    bool
	hasKey      bool
	ended       bool
	endPage     int
	endButton   bool
	orbiting    bool
	lit         mapset.Set[string]
	spinning    mapset.Set[string]
	prompt      proximity.Prompt
	overlays    map[string]overlayState
	scene       sceneCache

	cmds   []protocol.Cmd
	resync bool

	inbox    chan protocol.InputMsg
	out      chan []byte
	stop     chan struct{}
	stopOnce sync.Once

	events []EventLogger
	stats  Stats
}

// Stats are counters readable from any goroutine.
type Stats struct {
	Inputs        atomic.Uint64
	DroppedOutput atomic.Uint64
	Resyncs       atomic.Uint64
}

func New(cfg Config) (*Room, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("room: no catalogs")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("room: %w", err)
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}
	tx, err := texts.Load(cfg.Locale)
	if err != nil {
		return nil, err
	}
	r := &Room{
		cfg:      cfg,
		tune:     cfg.Tuning,
		cats:     cfg.Catalogs,
		texts:    tx,
		log:      cfg.Logger,
		start:    cfg.Start,
		now:      cfg.Start,
		tl:       timeline.New(cfg.Start),
		lit:      mapset.New[string](),
		spinning: mapset.New[string](),
		overlays: map[string]overlayState{},
		scene:    newSceneCache(),
		inbox:    make(chan protocol.InputMsg, 1024),
		stop:     make(chan struct{}),
		resync:   true,
	}
	r.drags = drag.NewController(drag.GateFunc(r.allowDrag), r.log)
	r.drags.OnPlaced = r.onPlaced

	rng := rand.New(rand.NewSource(cfg.Seed))
	if err := r.buildLayout(rng); err != nil {
		return nil, err
	}

	fsm, err := progression.New(r.tune.PuzzleOrder, puzzleEffects{r}, progression.Options{
		AutoExit:          ms(r.tune.AutoExitMs),
		AutoExitOverrides: msMap(r.tune.AutoExitOverridesMs),
	})
	if err != nil {
		return nil, err
	}
	r.fsm = fsm

	r.vm = viewmode.New(r.tl, viewmode.Options{
		Transition:   ms(r.tune.Camera.TransitionMs),
		RestoreDelay: ms(r.tune.Camera.RestoreDelayMs),
		Clamp:        clampFromTuning(r.tune.Camera),
	}, poseFromTuning(r.tune.Camera.Start))
	r.vm.OnControls = func(on bool) {
		r.emit(protocol.Cmd{Op: protocol.OpCameraControls, On: protocol.Bool(on)})
	}
	r.vm.OnCancel(r.cancelInteractions)

	r.prox = proximity.New(r.pois()...)

	// The first armed puzzle's lamps start lit.
	r.arm(r.fsm.NextAvailable())
	if cfg.SkipIntro {
		r.introDone = true
	}
	return r, nil
}

func (r *Room) SessionID() string { return r.cfg.SessionID }
func (r *Room) Seed() int64 { return r.cfg.Seed }
func (r *Room) Tick() uint64 { return r.tick }
func (r *Room) Layout() protocol.SceneLayout { return r.layout }
func (r *Room) Stats() *Stats { return &r.stats }

// Welcome builds the WELCOME message for this session.
func (r *Room) Welcome() protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       r.cfg.SessionID,
		Seed:            r.cfg.Seed,
		TickRateHz:      r.tune.TickRateHz,
		Locale:          r.texts.Lang(),
		Scene:           r.layout,
		Catalogs:        r.cats.Digests(),
		TuningDigest:    r.tune.Digest(),
	}
}

func (r *Room) logf(format string, args ...any) {
	if r.log == nil {
		return
	}
	r.log.Printf("session=%s "+format, append([]any{r.cfg.SessionID}, args...)...)
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func msMap(m map[string]int) map[string]time.Duration {
	out := make(map[string]time.Duration, len(m))
	for k, v := range m {
		out[k] = ms(v)
	}
	return out
}
