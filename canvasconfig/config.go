// Package canvasconfig provides YAML configuration loading for the canvas
// renderer: output geometry, color handling, dithering, and passthrough
// settings, merged over sensible defaults.
package canvasconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/tinyland/rastertext/raster/canvas"
	"github.com/tinyland/rastertext/raster/cellrender"
	"github.com/tinyland/rastertext/raster/color"
	"github.com/tinyland/rastertext/raster/dither"
	"github.com/tinyland/rastertext/raster/palette"
	"github.com/tinyland/rastertext/raster/passthrough"
	"github.com/tinyland/rastertext/raster/pixops"
	"github.com/tinyland/rastertext/raster/symbols"
	"github.com/tinyland/rastertext/raster/termdb"
)

// Config is the render configuration: geometry, output protocol, color
// handling, dithering, and multiplexer passthrough.
type Config struct {
	// Geometry holds the destination cell grid and per-cell pixel size.
	Geometry GeometryConfig `yaml:"geometry"`

	// Output selects the rendering protocol and color handling.
	Output OutputConfig `yaml:"output"`

	// Symbols holds symbol-mode analyzer settings.
	Symbols SymbolsConfig `yaml:"symbols"`

	// Dither holds the dithering mode and parameters.
	Dither DitherConfig `yaml:"dither"`

	// Placement holds the tuck/align geometry policy.
	Placement PlacementConfig `yaml:"placement"`

	// Background holds the optional composite-under background color.
	Background BackgroundConfig `yaml:"background"`

	// Passthrough selects multiplexer framing for graphics-protocol output.
	Passthrough string `yaml:"passthrough"` // "none", "tmux", "screen"
}

// GeometryConfig holds the destination cell grid and per-cell pixel size.
type GeometryConfig struct {
	Cols        int `yaml:"cols"`
	Rows        int `yaml:"rows"`
	CellWidthPx int `yaml:"cell_width_px"`
	CellHeightPx int `yaml:"cell_height_px"`
}

// OutputConfig selects the rendering protocol and color handling.
type OutputConfig struct {
	// Mode is "symbols", "sixel", "kitty", or "iterm2".
	Mode string `yaml:"mode"`
	// Color is "truecolor", "256", "240", "16", "8", "fgbg", or "fgbg-invert".
	Color string `yaml:"color"`
}

// SymbolsConfig holds symbol-mode analyzer settings.
type SymbolsConfig struct {
	// Extractor is "median" or "average".
	Extractor     string `yaml:"extractor"`
	AllowInvert   bool   `yaml:"allow_invert"`
	CandidateK    int    `yaml:"candidate_k"`
	FillThreshold int    `yaml:"fill_threshold"`
}

// DitherConfig holds the dithering mode and parameters.
type DitherConfig struct {
	// Mode is "none", "ordered", "noise", or "fs".
	Mode      string  `yaml:"mode"`
	GrainW    int     `yaml:"grain_w"`
	GrainH    int     `yaml:"grain_h"`
	Intensity float64 `yaml:"intensity"`
}

// PlacementConfig holds the tuck/align geometry policy.
type PlacementConfig struct {
	// Tuck is "stretch", "fit", or "shrink-to-fit".
	Tuck string `yaml:"tuck"`
	// HAlign and VAlign are "start", "center", or "end".
	HAlign string `yaml:"h_align"`
	VAlign string `yaml:"v_align"`
}

// BackgroundConfig holds the optional composite-under background color.
type BackgroundConfig struct {
	Enabled bool   `yaml:"enabled"`
	Hex     string `yaml:"hex"` // "RRGGBB"
}

// DefaultConfig returns a Config populated with sensible defaults: an
// 80x24 TrueColor symbol-mode canvas with no dithering or passthrough.
func DefaultConfig() *Config {
	return &Config{
		Geometry: GeometryConfig{
			Cols: 80, Rows: 24,
			CellWidthPx: 8, CellHeightPx: 8,
		},
		Output: OutputConfig{
			Mode:  "symbols",
			Color: "truecolor",
		},
		Symbols: SymbolsConfig{
			Extractor:     "median",
			AllowInvert:   true,
			CandidateK:    8,
			FillThreshold: 0,
		},
		Dither: DitherConfig{
			Mode:      "none",
			GrainW:    1,
			GrainH:    1,
			Intensity: 1.0,
		},
		Placement: PlacementConfig{
			Tuck:   "fit",
			HAlign: "center",
			VAlign: "center",
		},
		Background: BackgroundConfig{
			Enabled: false,
			Hex:     "000000",
		},
		Passthrough: "none",
	}
}

// LoadConfig loads configuration from a YAML file, merging with defaults.
// A missing file is not an error: the defaults are returned unchanged.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file, creating parent
// directories as needed.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

var validModes = map[string]bool{"symbols": true, "sixel": true, "kitty": true, "iterm2": true}
var validColors = map[string]bool{"truecolor": true, "256": true, "240": true, "16": true, "8": true, "fgbg": true, "fgbg-invert": true}
var validExtractors = map[string]bool{"median": true, "average": true}
var validDitherModes = map[string]bool{"none": true, "ordered": true, "noise": true, "fs": true}
var validTucks = map[string]bool{"stretch": true, "fit": true, "shrink-to-fit": true}
var validAligns = map[string]bool{"start": true, "center": true, "end": true}
var validPassthroughs = map[string]bool{"none": true, "tmux": true, "screen": true}

// Validate checks the configuration for required fields and logical
// consistency.
func (c *Config) Validate() error {
	if c.Geometry.Cols <= 0 {
		return fmt.Errorf("geometry.cols must be positive, got %d", c.Geometry.Cols)
	}
	if c.Geometry.Rows <= 0 {
		return fmt.Errorf("geometry.rows must be positive, got %d", c.Geometry.Rows)
	}
	if c.Geometry.CellWidthPx <= 0 || c.Geometry.CellHeightPx <= 0 {
		return fmt.Errorf("geometry.cell_width_px/cell_height_px must be positive, got %dx%d", c.Geometry.CellWidthPx, c.Geometry.CellHeightPx)
	}
	if !validModes[c.Output.Mode] {
		return fmt.Errorf("output.mode must be one of symbols/sixel/kitty/iterm2, got %q", c.Output.Mode)
	}
	if !validColors[c.Output.Color] {
		return fmt.Errorf("output.color must be one of truecolor/256/240/16/8/fgbg/fgbg-invert, got %q", c.Output.Color)
	}
	if !validExtractors[c.Symbols.Extractor] {
		return fmt.Errorf("symbols.extractor must be 'median' or 'average', got %q", c.Symbols.Extractor)
	}
	if !validDitherModes[c.Dither.Mode] {
		return fmt.Errorf("dither.mode must be one of none/ordered/noise/fs, got %q", c.Dither.Mode)
	}
	if c.Dither.Intensity < 0 {
		return fmt.Errorf("dither.intensity must be non-negative, got %g", c.Dither.Intensity)
	}
	if !validTucks[c.Placement.Tuck] {
		return fmt.Errorf("placement.tuck must be one of stretch/fit/shrink-to-fit, got %q", c.Placement.Tuck)
	}
	if !validAligns[c.Placement.HAlign] || !validAligns[c.Placement.VAlign] {
		return fmt.Errorf("placement.h_align/v_align must be one of start/center/end, got %q/%q", c.Placement.HAlign, c.Placement.VAlign)
	}
	if len(c.Background.Hex) != 6 {
		return fmt.Errorf("background.hex must be a 6-digit hex string, got %q", c.Background.Hex)
	}
	if !validPassthroughs[c.Passthrough] {
		return fmt.Errorf("passthrough must be one of none/tmux/screen, got %q", c.Passthrough)
	}
	return nil
}

// ToCanvasConfig translates a validated Config into a canvas.Config ready
// for NewCanvas, detecting the terminal's capabilities from env via the
// default terminal database.
func (c *Config) ToCanvasConfig(env map[string]string) (canvas.Config, error) {
	cc := canvas.Config{
		Cols:         c.Geometry.Cols,
		Rows:         c.Geometry.Rows,
		CellWidthPx:  c.Geometry.CellWidthPx,
		CellHeightPx: c.Geometry.CellHeightPx,
		Map:          symbols.NewDefaultMap(),
		AllowInvert:  c.Symbols.AllowInvert,
		CandidateK:   c.Symbols.CandidateK,
		FillThreshold: c.Symbols.FillThreshold,
		Term:         termdb.NewDefaultDb().Detect(env),
	}

	switch c.Output.Mode {
	case "symbols":
		cc.Mode = canvas.ModeSymbols
	case "sixel":
		cc.Mode = canvas.ModeSixel
	case "kitty":
		cc.Mode = canvas.ModeKitty
	case "iterm2":
		cc.Mode = canvas.ModeIterm2
	}

	switch c.Output.Color {
	case "truecolor":
		cc.ColorMode = canvas.ColorTrueColor
	case "256":
		cc.ColorMode = canvas.Color256
	case "240":
		cc.ColorMode = canvas.Color240
	case "16":
		cc.ColorMode = canvas.Color16
	case "8":
		cc.ColorMode = canvas.Color8
	case "fgbg":
		cc.ColorMode = canvas.ColorFgBg
	case "fgbg-invert":
		cc.ColorMode = canvas.ColorFgBgInvert
	}

	if c.Symbols.Extractor == "average" {
		cc.Extractor = cellrender.ExtractorAverage
	}

	switch c.Placement.Tuck {
	case "stretch":
		cc.Tuck = pixops.TuckStretch
	case "fit":
		cc.Tuck = pixops.TuckFit
	case "shrink-to-fit":
		cc.Tuck = pixops.TuckShrinkToFit
	}
	cc.HAlign = parseAlign(c.Placement.HAlign)
	cc.VAlign = parseAlign(c.Placement.VAlign)

	var err error
	cc.Dither, err = c.ditherConfig()
	if err != nil {
		return canvas.Config{}, err
	}

	if c.Background.Enabled {
		bg, err := parseHexColor(c.Background.Hex)
		if err != nil {
			return canvas.Config{}, err
		}
		cc.Background = bg
		cc.HasBackground = true
	}

	switch c.Passthrough {
	case "tmux":
		cc.Passthrough = passthrough.KindTmux
	case "screen":
		cc.Passthrough = passthrough.KindScreen
	default:
		cc.Passthrough = passthrough.KindNone
	}

	if cc.Palette == nil {
		cc.Palette = colorModePalette(cc.ColorMode, cc.Background, cc.ColorMode == canvas.ColorFgBgInvert)
	}

	return cc, nil
}

func (c *Config) ditherConfig() (dither.Config, error) {
	var mode dither.Mode
	switch c.Dither.Mode {
	case "none":
		mode = dither.ModeNone
	case "ordered":
		mode = dither.ModeOrdered
	case "noise":
		mode = dither.ModeNoise
	case "fs":
		mode = dither.ModeFS
	default:
		return dither.Config{}, fmt.Errorf("canvasconfig: unknown dither mode %q", c.Dither.Mode)
	}
	return dither.Config{
		Mode:      mode,
		Grain:     dither.Grain{W: c.Dither.GrainW, H: c.Dither.GrainH},
		Intensity: c.Dither.Intensity,
	}, nil
}

func parseAlign(s string) pixops.Align {
	switch s {
	case "start":
		return pixops.AlignStart
	case "end":
		return pixops.AlignEnd
	default:
		return pixops.AlignCenter
	}
}

func colorModePalette(mode canvas.ColorMode, bg color.Color, invert bool) *palette.Palette {
	switch mode {
	case canvas.Color256:
		return palette.NewFixed256()
	case canvas.Color240:
		return palette.NewFixed240()
	case canvas.Color16:
		return palette.NewFixed16()
	case canvas.Color8:
		return palette.NewFixed8()
	case canvas.ColorFgBg, canvas.ColorFgBgInvert:
		fg := color.Color{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
		return palette.NewFgBg(fg, bg, invert)
	default:
		return nil
	}
}

// parseHexColor parses a 6-digit "RRGGBB" hex string into an opaque color,
// using go-colorful's sRGB-aware hex parser.
func parseHexColor(hex string) (color.Color, error) {
	if len(hex) != 6 {
		return color.Color{}, fmt.Errorf("canvasconfig: invalid hex color %q, want 6 digits", hex)
	}
	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return color.Color{}, fmt.Errorf("canvasconfig: invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.Color{R: r, G: g, B: b, A: 0xFF}, nil
}
