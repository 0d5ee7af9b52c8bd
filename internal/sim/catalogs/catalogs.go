package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

type Catalogs struct {
	Planets        PlanetCatalog
	Constellations ConstellationCatalog
	Northern       NorthernCatalog
	Zodiac         ZodiacCatalog
	Greek          GreekCatalog
}

type PlanetCatalog struct {
	Defs      []PlanetDef
	HomeSlots [][3]float64
	ByName    map[string]PlanetDef
	Digest    string
}

type PlanetDef struct {
	Name         string  `yaml:"name"`
	Radius       float64 `yaml:"radius"`
	VisualRadius float64 `yaml:"visual_radius"`
	OrbitSpeed   float64 `yaml:"orbit_speed"`
}

type ConstellationCatalog struct {
	Defs   []ConstellationDef
	ByID   map[string]ConstellationDef
	Digest string
}

type ConstellationDef struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Stars       []StarDef   `yaml:"stars"`
	Connections [][2]string `yaml:"connections"`
}

type StarDef struct {
	Name     string     `yaml:"name"`
	Position [3]float64 `yaml:"position"`
	Radius   float64    `yaml:"radius"`
	Emissive float64    `yaml:"emissive"`
}

func (d ConstellationDef) Star(name string) (StarDef, bool) {
	for _, s := range d.Stars {
		if s.Name == name {
			return s, true
		}
	}
	return StarDef{}, false
}

type NorthernCatalog struct {
	Defs   []NorthernDef
	Digest string
}

type NorthernDef struct {
	Name  string   `yaml:"name"`
	Stars []string `yaml:"stars"`
}

type ZodiacCatalog struct {
	Elements []ElementDef
	Images   []ImageDef
	SlotZ    float64
	Digest   string
}

type ElementDef struct {
	Element string     `yaml:"element"`
	Home    [3]float64 `yaml:"home"`
	Signs   []string   `yaml:"signs"`
}

type ImageDef struct {
	Element string     `yaml:"element"`
	Center  [2]float64 `yaml:"center"`
	Width   float64    `yaml:"width"`
	Height  float64    `yaml:"height"`
}

type GreekCatalog struct {
	Alphabet []string
	Index    map[string]int
	Digest   string
}

// Default loads the catalogs compiled into the binary.
func Default() (*Catalogs, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// Load reads catalogs from dir. Files missing from dir fall back to the embedded copy.
func Load(dir string) (*Catalogs, error) {
	if dir == "" {
		return Default()
	}
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(overlayFS{top: os.DirFS(dir), base: sub})
}

func LoadFS(fsys fs.FS) (*Catalogs, error) {
	var c Catalogs
	if err := loadPlanets(fsys, &c.Planets); err != nil {
		return nil, err
	}
	if err := loadGreek(fsys, &c.Greek); err != nil {
		return nil, err
	}
	if err := loadConstellations(fsys, &c.Constellations); err != nil {
		return nil, err
	}
	if err := loadNorthern(fsys, &c.Northern, c.Greek); err != nil {
		return nil, err
	}
	if err := loadZodiac(fsys, &c.Zodiac); err != nil {
		return nil, err
	}
	return &c, nil
}

// Digests returns every catalog digest keyed by file name.
func (c *Catalogs) Digests() map[string]string {
	return map[string]string{
		"planets.yaml":        c.Planets.Digest,
		"constellations.yaml": c.Constellations.Digest,
		"northern.yaml":       c.Northern.Digest,
		"zodiac.yaml":         c.Zodiac.Digest,
		"greek.yaml":          c.Greek.Digest,
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func readYAML(fsys fs.FS, name string, out any) (string, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return sha256Hex(raw), nil
}

func loadPlanets(fsys fs.FS, out *PlanetCatalog) error {
	var f struct {
		Planets   []PlanetDef  `yaml:"planets"`
		HomeSlots [][3]float64 `yaml:"home_slots"`
	}
	digest, err := readYAML(fsys, "planets.yaml", &f)
	if err != nil {
		return err
	}
	if len(f.Planets) == 0 {
		return fmt.Errorf("planets.yaml: no planets")
	}
	if len(f.HomeSlots) != len(f.Planets) {
		return fmt.Errorf("planets.yaml: %d home slots for %d planets", len(f.HomeSlots), len(f.Planets))
	}
	out.ByName = make(map[string]PlanetDef, len(f.Planets))
	radii := map[float64]string{}
	for _, p := range f.Planets {
		if p.Name == "" || p.Radius <= 0 {
			return fmt.Errorf("planets.yaml: bad planet %+v", p)
		}
		if _, dup := out.ByName[p.Name]; dup {
			return fmt.Errorf("planets.yaml: duplicate planet %s", p.Name)
		}
		if other, dup := radii[p.Radius]; dup {
			return fmt.Errorf("planets.yaml: %s and %s share radius %v", other, p.Name, p.Radius)
		}
		radii[p.Radius] = p.Name
		out.ByName[p.Name] = p
	}
	out.Defs = f.Planets
	out.HomeSlots = f.HomeSlots
	out.Digest = digest
	return nil
}

func loadConstellations(fsys fs.FS, out *ConstellationCatalog) error {
	var f struct {
		Constellations []ConstellationDef `yaml:"constellations"`
	}
	digest, err := readYAML(fsys, "constellations.yaml", &f)
	if err != nil {
		return err
	}
	if len(f.Constellations) == 0 {
		return fmt.Errorf("constellations.yaml: empty")
	}
	out.ByID = make(map[string]ConstellationDef, len(f.Constellations))
	for _, d := range f.Constellations {
		if d.ID == "" {
			return fmt.Errorf("constellations.yaml: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("constellations.yaml: duplicate id %s", d.ID)
		}
		stars := map[string]bool{}
		for _, s := range d.Stars {
			if s.Name == "" || stars[s.Name] {
				return fmt.Errorf("constellations.yaml: %s: bad or duplicate star %q", d.ID, s.Name)
			}
			stars[s.Name] = true
		}
		if len(d.Connections) == 0 {
			return fmt.Errorf("constellations.yaml: %s: no connections", d.ID)
		}
		for _, c := range d.Connections {
			if c[0] == c[1] {
				return fmt.Errorf("constellations.yaml: %s: self connection %s", d.ID, c[0])
			}
			if !stars[c[0]] || !stars[c[1]] {
				return fmt.Errorf("constellations.yaml: %s: connection %s-%s names an unknown star", d.ID, c[0], c[1])
			}
		}
		out.ByID[d.ID] = d
	}
	out.Defs = f.Constellations
	out.Digest = digest
	return nil
}

func loadNorthern(fsys fs.FS, out *NorthernCatalog, greek GreekCatalog) error {
	var f struct {
		Constellations []NorthernDef `yaml:"constellations"`
	}
	digest, err := readYAML(fsys, "northern.yaml", &f)
	if err != nil {
		return err
	}
	for _, d := range f.Constellations {
		if len(d.Stars) == 0 {
			return fmt.Errorf("northern.yaml: %s: no stars", d.Name)
		}
		for _, s := range d.Stars {
			if _, ok := greek.Index[s]; !ok {
				return fmt.Errorf("northern.yaml: %s: %q is not a greek letter", d.Name, s)
			}
		}
	}
	out.Defs = f.Constellations
	out.Digest = digest
	return nil
}

func loadZodiac(fsys fs.FS, out *ZodiacCatalog) error {
	var f struct {
		Elements []ElementDef `yaml:"elements"`
		Images   []ImageDef   `yaml:"images"`
		SlotZ    float64      `yaml:"slot_z"`
	}
	digest, err := readYAML(fsys, "zodiac.yaml", &f)
	if err != nil {
		return err
	}
	images := map[string]bool{}
	for _, img := range f.Images {
		if img.Width <= 0 || img.Height <= 0 {
			return fmt.Errorf("zodiac.yaml: image %s: non-positive size", img.Element)
		}
		images[img.Element] = true
	}
	for _, e := range f.Elements {
		if len(e.Signs) == 0 {
			return fmt.Errorf("zodiac.yaml: element %s: no signs", e.Element)
		}
		if !images[e.Element] {
			return fmt.Errorf("zodiac.yaml: element %s has no image", e.Element)
		}
	}
	out.Elements = f.Elements
	out.Images = f.Images
	out.SlotZ = f.SlotZ
	out.Digest = digest
	return nil
}

func loadGreek(fsys fs.FS, out *GreekCatalog) error {
	var f struct {
		Alphabet []string `yaml:"alphabet"`
	}
	digest, err := readYAML(fsys, "greek.yaml", &f)
	if err != nil {
		return err
	}
	if len(f.Alphabet) == 0 {
		return fmt.Errorf("greek.yaml: empty alphabet")
	}
	out.Index = make(map[string]int, len(f.Alphabet))
	for i, l := range f.Alphabet {
		if _, dup := out.Index[l]; dup {
			return fmt.Errorf("greek.yaml: duplicate letter %s", l)
		}
		out.Index[l] = i
	}
	out.Alphabet = f.Alphabet
	out.Digest = digest
	return nil
}

// SortedIDs returns constellation ids in a stable order.
func (c ConstellationCatalog) SortedIDs() []string {
	ids := make([]string, 0, len(c.ByID))
	for id := range c.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// overlayFS serves files from top, falling back to base when top lacks them.
type overlayFS struct {
	top  fs.FS
	base fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.top.Open(name)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return o.base.Open(name)
	}
	return nil, err
}
