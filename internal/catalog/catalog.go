// Package catalog holds the option tables offered by the wizard: narration
// voices, background music genres, output ratios and progress stage labels.
//
// A Catalog is immutable once loaded. The built-in tables can be replaced by a
// YAML file (see Load) so deployments can track what their generation backend
// actually supports without rebuilding.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Voice is a text-to-speech voice the backend can narrate with.
type Voice struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Gender      string `yaml:"gender" json:"gender"`
}

// Genre is a background music family. Types are the concrete tracks within it.
type Genre struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Types       []string `yaml:"types" json:"types"`
}

// Ratio is an output video resolution.
type Ratio struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
}

// Catalog is the full option table.
type Catalog struct {
	Voices []Voice  `yaml:"voices" json:"voices"`
	Genres []Genre  `yaml:"genres" json:"genres"`
	Ratios []Ratio  `yaml:"ratios" json:"ratios"`
	Stages []string `yaml:"stages" json:"stages"`
	Preset Defaults `yaml:"defaults" json:"defaults"`
}

// Defaults are the preselected values for each option step.
type Defaults struct {
	Voice    string `yaml:"voice" json:"voice"`
	BGMGenre string `yaml:"bgm_genre" json:"bgm_genre"`
	BGMType  string `yaml:"bgm_type" json:"bgm_type"`
	Ratio    string `yaml:"ratio" json:"ratio"`
}

// NoMusic is the genre id meaning "no background music". It has no preview.
const NoMusic = "none"

// Validation errors.
var (
	ErrEmptyID       = errors.New("empty id")
	ErrDuplicateID   = errors.New("duplicate id")
	ErrNoTypes       = errors.New("genre has no types")
	ErrMissingOption = errors.New("catalog section is empty")
	ErrBadDefault    = errors.New("default is not in catalog")
)

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Voices: []Voice{
			{ID: "ko-KR-Wavenet-d", Name: "남성 A 타입", Description: "차분하고 안정적인 목소리", Gender: "male"},
			{ID: "ko-KR-Wavenet-b", Name: "남성 B 타입", Description: "활기차고 밝은 목소리", Gender: "male"},
			{ID: "ko-KR-Wavenet-a", Name: "여성 A 타입", Description: "부드럽고 따뜻한 목소리", Gender: "female"},
			{ID: "ko-KR-Wavenet-c", Name: "여성 B 타입", Description: "명확하고 또렷한 목소리", Gender: "female"},
		},
		Genres: []Genre{
			{ID: NoMusic, Name: "배경음악 없음", Description: "음악 없이 영상이 생성됩니다.", Types: []string{"없음"}},
			{ID: "nature", Name: "자연의 소리", Description: "자연 그대로의 편안한 효과음", Types: []string{"빗소리", "모닥불 소리", "시냇물 소리", "풀벌레 소리"}},
			{ID: "bright", Name: "명랑", Description: "활발하고 유쾌한 분위기", Types: []string{"A", "B", "C"}},
			{ID: "horror", Name: "호러", Description: "긴장감 넘치는 공포 분위기", Types: []string{"A", "B", "C"}},
			{ID: "calm", Name: "잔잔", Description: "부드럽고 안정적인 분위기", Types: []string{"A", "B", "C"}},
		},
		Ratios: []Ratio{
			{ID: "1536x1024", Label: "1536 x 1024", Description: "가로영상"},
			{ID: "1024x1536", Label: "1024 x 1536", Description: "세로형 쇼츠"},
		},
		Stages: []string{"원고 처리 중...", "이미지 생성 중...", "오디오 생성 중...", "영상 생성 중...", "완료!"},
		Preset: Defaults{
			Voice:    "ko-KR-Wavenet-d",
			BGMGenre: NoMusic,
			BGMType:  "없음",
			Ratio:    "1536x1024",
		},
	}
}

// Load reads a catalog from a YAML file. An empty path returns the built-in
// catalog. Sections missing from the file fall back to the built-in ones.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	base := Default()
	if len(c.Voices) == 0 {
		c.Voices = base.Voices
	}
	if len(c.Genres) == 0 {
		c.Genres = base.Genres
	}
	if len(c.Ratios) == 0 {
		c.Ratios = base.Ratios
	}
	if len(c.Stages) == 0 {
		c.Stages = base.Stages
	}
	c.fillDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// fillDefaults points any unset default at the first entry of its section.
func (c *Catalog) fillDefaults() {
	if c.Preset.Voice == "" && len(c.Voices) > 0 {
		c.Preset.Voice = c.Voices[0].ID
	}
	if c.Preset.BGMGenre == "" && len(c.Genres) > 0 {
		c.Preset.BGMGenre = c.Genres[0].ID
	}
	if c.Preset.BGMType == "" {
		if g, ok := c.Genre(c.Preset.BGMGenre); ok && len(g.Types) > 0 {
			c.Preset.BGMType = g.Types[0]
		}
	}
	if c.Preset.Ratio == "" && len(c.Ratios) > 0 {
		c.Preset.Ratio = c.Ratios[0].ID
	}
}

// Validate checks ids are non-empty and unique, every genre has at least one
// type and every default exists.
func (c *Catalog) Validate() error {
	if len(c.Voices) == 0 {
		return fmt.Errorf("voices: %w", ErrMissingOption)
	}
	if len(c.Genres) == 0 {
		return fmt.Errorf("genres: %w", ErrMissingOption)
	}
	if len(c.Ratios) == 0 {
		return fmt.Errorf("ratios: %w", ErrMissingOption)
	}

	seen := map[string]bool{}
	for _, v := range c.Voices {
		if err := checkID("voice", v.ID, seen); err != nil {
			return err
		}
	}

	seen = map[string]bool{}
	for _, g := range c.Genres {
		if err := checkID("genre", g.ID, seen); err != nil {
			return err
		}
		if len(g.Types) == 0 {
			return fmt.Errorf("genre %q: %w", g.ID, ErrNoTypes)
		}
	}

	seen = map[string]bool{}
	for _, r := range c.Ratios {
		if err := checkID("ratio", r.ID, seen); err != nil {
			return err
		}
	}

	if _, ok := c.Voice(c.Preset.Voice); !ok {
		return fmt.Errorf("voice %q: %w", c.Preset.Voice, ErrBadDefault)
	}
	if !c.HasBGM(c.Preset.BGMGenre, c.Preset.BGMType) {
		return fmt.Errorf("bgm %q/%q: %w", c.Preset.BGMGenre, c.Preset.BGMType, ErrBadDefault)
	}
	if _, ok := c.Ratio(c.Preset.Ratio); !ok {
		return fmt.Errorf("ratio %q: %w", c.Preset.Ratio, ErrBadDefault)
	}
	return nil
}

func checkID(kind, id string, seen map[string]bool) error {
	if id == "" {
		return fmt.Errorf("%s: %w", kind, ErrEmptyID)
	}
	if seen[id] {
		return fmt.Errorf("%s %q: %w", kind, id, ErrDuplicateID)
	}
	seen[id] = true
	return nil
}

// Defaults returns the preselected values.
func (c *Catalog) Defaults() Defaults {
	return c.Preset
}

// Voice looks up a voice by id.
func (c *Catalog) Voice(id string) (Voice, bool) {
	for _, v := range c.Voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// Genre looks up a music genre by id.
func (c *Catalog) Genre(id string) (Genre, bool) {
	for _, g := range c.Genres {
		if g.ID == id {
			return g, true
		}
	}
	return Genre{}, false
}

// Ratio looks up a ratio by id.
func (c *Catalog) Ratio(id string) (Ratio, bool) {
	for _, r := range c.Ratios {
		if r.ID == id {
			return r, true
		}
	}
	return Ratio{}, false
}

// HasBGM reports whether typ is a track of genre.
func (c *Catalog) HasBGM(genre, typ string) bool {
	g, ok := c.Genre(genre)
	if !ok {
		return false
	}
	for _, t := range g.Types {
		if t == typ {
			return true
		}
	}
	return false
}

// VoiceName returns the display name for a voice id, or the id itself.
func (c *Catalog) VoiceName(id string) string {
	if v, ok := c.Voice(id); ok {
		return v.Name
	}
	return id
}

// BGMLabel returns "genre name · type", or just the genre name when the genre
// has a single track.
func (c *Catalog) BGMLabel(genre, typ string) string {
	g, ok := c.Genre(genre)
	if !ok {
		if typ == "" {
			return genre
		}
		return genre + " · " + typ
	}
	if len(g.Types) == 1 || typ == "" {
		return g.Name
	}
	return g.Name + " · " + typ
}

// RatioLabel returns "label (description)" for a ratio id, or the id itself.
func (c *Catalog) RatioLabel(id string) string {
	if r, ok := c.Ratio(id); ok {
		return fmt.Sprintf("%s (%s)", r.Label, r.Description)
	}
	return id
}

// PreviewID identifies a BGM track for preview purposes.
func PreviewID(genre, typ string) string {
	return genre + "-" + typ
}

// Previewable reports whether a genre has audible tracks.
func Previewable(genre string) bool {
	return genre != NoMusic
}

// Marshal encodes the catalog as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling catalog: %w", err)
	}
	return data, nil
}
