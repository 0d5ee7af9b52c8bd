// Package texts holds the localized UI strings shown by the scene host.
package texts

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"

	"starroom.ai/internal/sim/proximity"
)

//go:embed locales/*.po
var locales embed.FS

// DefaultLang is used when a session asks for a locale we do not ship.
const DefaultLang = "en"

const (
	PromptDoor     = "PROMPT_DOOR"
	PromptKey      = "PROMPT_KEY"
	PromptPuzzle   = "PROMPT_PUZZLE"
	ToastKeyNeeded = "TOAST_KEY_NEEDED"
	ButtonGuide    = "BUTTON_GUIDE"
	ButtonExit     = "BUTTON_EXIT"
	ButtonStart    = "BUTTON_START"
	ButtonNext     = "BUTTON_NEXT"
	IntroTitle     = "INTRO_TITLE"
	IntroStory1    = "INTRO_STORY_1"
	IntroStory2    = "INTRO_STORY_2"
	EndText        = "END_TEXT"
	EndThanks      = "END_THANKS"
	EndReload      = "END_RELOAD"
)

var guideIDs = map[string]string{
	"solar-system":    "GUIDE_SOLAR_SYSTEM",
	"table-2":         "GUIDE_TABLE_2",
	"blackboard":      "GUIDE_BLACKBOARD",
	"star-background": "GUIDE_STAR_BACKGROUND",
}

type Catalog struct {
	lang     string
	po       *gotext.Po
	fallback *gotext.Po
}

// Languages lists the shipped locales.
func Languages() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return []string{DefaultLang}
	}
	var out []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".po") {
			out = append(out, strings.TrimSuffix(e.Name(), ".po"))
		}
	}
	sort.Strings(out)
	return out
}

// Load returns the catalog for lang. Region suffixes ("de-AT", "de_DE.utf8") are stripped and
// unknown languages fall back to English.
func Load(lang string) (*Catalog, error) {
	base, err := parse(DefaultLang)
	if err != nil {
		return nil, err
	}
	lang = normalize(lang)
	c := &Catalog{lang: DefaultLang, po: base, fallback: base}
	if lang == DefaultLang {
		return c, nil
	}
	po, err := parse(lang)
	if err != nil {
		return c, nil
	}
	c.lang = lang
	c.po = po
	return c, nil
}

func parse(lang string) (*gotext.Po, error) {
	raw, err := locales.ReadFile(path.Join("locales", lang+".po"))
	if err != nil {
		return nil, fmt.Errorf("texts: %s: %w", lang, err)
	}
	po := gotext.NewPo()
	po.Parse(raw)
	return po, nil
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_."); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return DefaultLang
	}
	return lang
}

func (c *Catalog) Lang() string { return c.lang }

// Get returns the translation of id, falling back to English and then to id itself.
func (c *Catalog) Get(id string) string {
	if s := c.po.Get(id); s != id {
		return s
	}
	return c.fallback.Get(id)
}

// Guide returns the guide text for a puzzle, or "" for an unknown id.
func (c *Catalog) Guide(puzzle string) string {
	id, ok := guideIDs[puzzle]
	if !ok {
		return ""
	}
	return c.Get(id)
}

func (c *Catalog) PromptLabels() proximity.Labels {
	return proximity.Labels{
		Door:   c.Get(PromptDoor),
		Key:    c.Get(PromptKey),
		Puzzle: c.Get(PromptPuzzle),
	}
}
