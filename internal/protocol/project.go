package protocol

// Projection ops.
const (
	OpMode           = "mode"
	OpEntityPosition = "entity.position"
	OpEntityVisible  = "entity.visible"
	OpCameraPose     = "camera.pose"
	OpCameraControls = "camera.controls"
	OpPrompt         = "prompt"
	OpToast          = "toast"
	OpGuide          = "guide"
	OpOverlay        = "overlay"
	OpFade           = "fade"
	OpLampLit        = "lamp.lit"
	OpLampSpin       = "lamp.spin"
	OpOrbit          = "orbit"
	OpStarColor      = "star.color"
	OpLineAdd        = "line.add"
	OpLineRemove     = "line.remove"
	OpLineColor      = "line.color"
	OpLetter         = "letter"
	OpCaseOpen       = "case.open"
	OpPlacement      = "placement"
	OpSolved         = "solved"
)

// PROJECT (server -> client)
type ProjectMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	// Seq is the last input sequence applied before this projection.
	Seq uint64 `json:"seq"`
	// Full marks a resync: Cmds describe the whole scene, not a delta.
	Full bool  `json:"full,omitempty"`
	Cmds []Cmd `json:"cmds"`
}

// Cmd is one scene mutation. Which fields are set depends on Op.
type Cmd struct {
	Op     string             `json:"op"`
	ID     string             `json:"id,omitempty"`
	Pos    *[3]float64        `json:"pos,omitempty"`
	Rot    *[3]float64        `json:"rot,omitempty"`
	On     *bool              `json:"on,omitempty"`
	Text   string             `json:"text,omitempty"`
	Color  string             `json:"color,omitempty"`
	Code   string             `json:"code,omitempty"`
	Ms     int                `json:"ms,omitempty"`
	Value  float64            `json:"value,omitempty"`
	Speeds map[string]float64 `json:"speeds,omitempty"`
}

func Bool(b bool) *bool { return &b }

func Vec(v [3]float64) *[3]float64 { return &v }
