package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	Locale          string `json:"locale,omitempty"`
	// Seed pins the session layout; omitted means the server picks one.
	Seed      *int64 `json:"seed,omitempty"`
	MaxQueue  int    `json:"max_queue,omitempty"`
	SkipIntro bool   `json:"skip_intro,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	SessionID       string            `json:"session_id"`
	Seed            int64             `json:"seed"`
	TickRateHz      int               `json:"tick_rate_hz"`
	Locale          string            `json:"locale"`
	Scene           SceneLayout       `json:"scene"`
	Catalogs        map[string]string `json:"catalogs"`
	TuningDigest    string            `json:"tuning_digest,omitempty"`
}

// SceneLayout is the per-session arrangement the host needs to build the room.
type SceneLayout struct {
	PuzzleOrder   []string          `json:"puzzle_order"`
	Planets       []PlanetSlot      `json:"planets"`
	Rings         []float64         `json:"rings"`
	Signs         []SignSlot        `json:"signs"`
	Regions       []RegionRef       `json:"regions"`
	Constellation ConstellationRef  `json:"constellation"`
	Northern      []NorthernRef     `json:"northern"`
	Alphabet      []string          `json:"alphabet"`
	Frames        map[string]Frame  `json:"frames"`
	POIs          []POIRef          `json:"pois"`
	Lamps         []string          `json:"lamps"`
	Texts         map[string]string `json:"texts"`
}

type PlanetSlot struct {
	ID     string     `json:"id"`
	Planet string     `json:"planet"`
	Home   [3]float64 `json:"home"`
	Size   float64    `json:"size"`
}

type SignSlot struct {
	ID      string     `json:"id"`
	Sign    string     `json:"sign"`
	Element string     `json:"element"`
	Home    [3]float64 `json:"home"`
}

type RegionRef struct {
	Element string     `json:"element"`
	Center  [2]float64 `json:"center"`
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
}

type ConstellationRef struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Stars []StarRef `json:"stars"`
}

type StarRef struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Radius   float64    `json:"radius"`
}

// NorthernRef is one letter control: the constellation shown above it and the star to read.
type NorthernRef struct {
	Index     int      `json:"index"`
	Name      string   `json:"name"`
	Stars     []string `json:"stars"`
	Highlight string   `json:"highlight"`
}

type Frame struct {
	Position [3]float64 `json:"position"`
	Rotation [3]float64 `json:"rotation"`
	Height   float64    `json:"height"`
}

type POIRef struct {
	ID        string     `json:"id"`
	Position  [3]float64 `json:"position"`
	Threshold float64    `json:"threshold"`
}
