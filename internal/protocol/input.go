package protocol

// Input kinds.
const (
	InputReady        = "ready"
	InputCamera       = "camera"
	InputKey          = "key"
	InputPointerDown  = "pointer_down"
	InputPointerMove  = "pointer_move"
	InputPointerUp    = "pointer_up"
	InputPointerLeave = "pointer_leave"
	InputHover        = "hover"
	InputUI           = "ui"
)

// Hit kinds reported by the host raycaster.
const (
	HitPlanet = "planet"
	HitToken  = "token"
	HitStar   = "star"
	HitLine   = "line"
	HitArrow  = "arrow"
)

// UI actions.
const (
	ActionStart = "start"
	ActionNext  = "next"
	ActionGuide = "guide"
	ActionExit  = "exit"
)

// INPUT (client -> server)
type InputMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Kind            string `json:"kind"`

	Camera *Pose  `json:"camera,omitempty"`
	Key    string `json:"key,omitempty"`
	Button int    `json:"button,omitempty"`
	Ray    *Ray   `json:"ray,omitempty"`
	// Hits are ordered nearest first.
	Hits   []Hit  `json:"hits,omitempty"`
	Action string `json:"action,omitempty"`
}

type Pose struct {
	Position [3]float64 `json:"position"`
	Rotation [3]float64 `json:"rotation"`
}

type Ray struct {
	Origin [3]float64 `json:"origin"`
	Dir    [3]float64 `json:"dir"`
}

// Hit is one intersection from the host raycaster. Point is in world space. For arrow hits ID
// is "up" or "down" and Index names the letter control.
type Hit struct {
	Kind  string     `json:"kind"`
	ID    string     `json:"id"`
	Point [3]float64 `json:"point"`
	Index int        `json:"index,omitempty"`
}
