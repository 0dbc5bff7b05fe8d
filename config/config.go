// Package config loads pack-generation settings from a TOML file,
// layered over repository defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/qcpack/qcpack/report"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	defaultUnderlineWidth = 1.2
	defaultEmphasisWidth  = 1.2
	defaultNotesFontSize  = 9.0
	defaultNotesBoxGray   = 0.92
	defaultGeminiModel    = "gemini-1.5-flash"
)

// Report contains row-extraction settings.
type Report struct {
	GatingStatus     string   `toml:"gating_status"`
	AcceptedComments []string `toml:"accepted_comments"`
}

// Style contains annotation drawing settings.
type Style struct {
	UnderlineWidth float64 `toml:"underline_width"`
	EmphasisWidth  float64 `toml:"emphasis_width"`
	NotesFontSize  float64 `toml:"notes_font_size"`
	NotesBoxGray   float64 `toml:"notes_box_gray"`
}

// Gemini contains the optional AI phrase-matching fallback settings.
type Gemini struct {
	Enabled     bool    `toml:"enabled"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	Temperature float64 `toml:"temperature"`
}

// Config is the root of the configuration file.
type Config struct {
	PageOffset  int    `toml:"page_offset"`
	AudibleMode bool   `toml:"audible_mode"`
	Report      Report `toml:"report"`
	Style       Style  `toml:"style"`
	Gemini      Gemini `toml:"gemini"`
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Report: Report{
			GatingStatus:     report.DefaultGatingStatus,
			AcceptedComments: append([]string(nil), report.DefaultAcceptedComments...),
		},
		Style: Style{
			UnderlineWidth: defaultUnderlineWidth,
			EmphasisWidth:  defaultEmphasisWidth,
			NotesFontSize:  defaultNotesFontSize,
			NotesBoxGray:   defaultNotesBoxGray,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
	}
}

// Load parses the configuration at path over the defaults. A missing
// file is not an error: defaults apply and the boolean reports whether a
// file was actually read. An empty path means defaults only.
func Load(path string) (Config, bool, error) {
	cfg := Default()
	if path == "" {
		return cfg, false, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, false, nil
		}
		return cfg, false, fmt.Errorf("config: open: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
		return cfg, false, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, true, nil
}

// Validate rejects values the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.Report.GatingStatus == "" {
		return errors.New("config: report.gating_status must not be empty")
	}
	if c.Style.NotesFontSize <= 0 {
		return errors.New("config: style.notes_font_size must be positive")
	}
	if c.Style.NotesBoxGray < 0 || c.Style.NotesBoxGray > 1 {
		return errors.New("config: style.notes_box_gray must be in [0,1]")
	}
	if c.Gemini.Enabled && c.Gemini.APIKey == "" {
		return errors.New("config: gemini.api_key required when gemini.enabled")
	}
	return nil
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("config: write sample: %w", err)
	}
	return nil
}
