package canvasconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tinyland/rastertext/raster/canvas"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Geometry.Cols != 80 || cfg.Geometry.Rows != 24 {
		t.Errorf("expected 80x24 geometry, got %dx%d", cfg.Geometry.Cols, cfg.Geometry.Rows)
	}
	if cfg.Geometry.CellWidthPx != 8 || cfg.Geometry.CellHeightPx != 8 {
		t.Errorf("expected 8x8 cell size, got %dx%d", cfg.Geometry.CellWidthPx, cfg.Geometry.CellHeightPx)
	}
	if cfg.Output.Mode != "symbols" {
		t.Errorf("expected output.mode=symbols, got %s", cfg.Output.Mode)
	}
	if cfg.Output.Color != "truecolor" {
		t.Errorf("expected output.color=truecolor, got %s", cfg.Output.Color)
	}
	if cfg.Symbols.Extractor != "median" {
		t.Errorf("expected symbols.extractor=median, got %s", cfg.Symbols.Extractor)
	}
	if cfg.Dither.Mode != "none" {
		t.Errorf("expected dither.mode=none, got %s", cfg.Dither.Mode)
	}
	if cfg.Placement.Tuck != "fit" {
		t.Errorf("expected placement.tuck=fit, got %s", cfg.Placement.Tuck)
	}
	if cfg.Background.Enabled {
		t.Error("expected background disabled by default")
	}
	if cfg.Passthrough != "none" {
		t.Errorf("expected passthrough=none, got %s", cfg.Passthrough)
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got error: %v", err)
	}
}

func TestValidateRejectsBadGeometry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geometry.Cols = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero cols")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Mode = "ascii-art"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown output mode")
	}
}

func TestValidateRejectsBadHexColor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Background.Hex = "xyz"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for malformed background hex")
	}
}

func TestLoadConfigNonExistent(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("unexpected error for non-existent file: %v", err)
	}
	if cfg.Geometry.Cols != 80 {
		t.Errorf("expected default cols=80, got %d", cfg.Geometry.Cols)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error for empty path: %v", err)
	}
	if cfg.Output.Mode != "symbols" {
		t.Errorf("expected default mode=symbols, got %s", cfg.Output.Mode)
	}
}

func TestLoadConfigEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Geometry.Cols != 80 {
		t.Errorf("expected default cols=80, got %d", cfg.Geometry.Cols)
	}
}

func TestLoadConfigValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
geometry:
  cols: 120
  rows: 40
  cell_width_px: 10
  cell_height_px: 20

output:
  mode: sixel
  color: "256"

symbols:
  extractor: average
  allow_invert: false

dither:
  mode: fs
  intensity: 0.5

background:
  enabled: true
  hex: "112233"

passthrough: tmux
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Geometry.Cols != 120 || cfg.Geometry.Rows != 40 {
		t.Errorf("expected 120x40 geometry, got %dx%d", cfg.Geometry.Cols, cfg.Geometry.Rows)
	}
	if cfg.Output.Mode != "sixel" {
		t.Errorf("expected output.mode=sixel, got %s", cfg.Output.Mode)
	}
	if cfg.Output.Color != "256" {
		t.Errorf("expected output.color=256, got %s", cfg.Output.Color)
	}
	if cfg.Symbols.Extractor != "average" {
		t.Errorf("expected symbols.extractor=average, got %s", cfg.Symbols.Extractor)
	}
	if cfg.Symbols.AllowInvert {
		t.Error("expected symbols.allow_invert=false")
	}
	if cfg.Dither.Mode != "fs" {
		t.Errorf("expected dither.mode=fs, got %s", cfg.Dither.Mode)
	}
	if !cfg.Background.Enabled || cfg.Background.Hex != "112233" {
		t.Errorf("expected background enabled with hex=112233, got %+v", cfg.Background)
	}
	if cfg.Passthrough != "tmux" {
		t.Errorf("expected passthrough=tmux, got %s", cfg.Passthrough)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should be valid, got error: %v", err)
	}
}

func TestSaveConfigRoundTrips(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Geometry.Cols = 64
	cfg.Output.Color = "16"

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Geometry.Cols != 64 {
		t.Errorf("expected round-tripped cols=64, got %d", loaded.Geometry.Cols)
	}
	if loaded.Output.Color != "16" {
		t.Errorf("expected round-tripped output.color=16, got %s", loaded.Output.Color)
	}
}

func TestToCanvasConfigTranslatesOutputAndColor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Mode = "kitty"
	cfg.Output.Color = "256"
	cfg.Background.Enabled = true
	cfg.Background.Hex = "ff00ff"

	cc, err := cfg.ToCanvasConfig(nil)
	if err != nil {
		t.Fatalf("ToCanvasConfig failed: %v", err)
	}
	if cc.Mode != canvas.ModeKitty {
		t.Errorf("expected canvas.ModeKitty, got %v", cc.Mode)
	}
	if cc.ColorMode != canvas.Color256 {
		t.Errorf("expected canvas.Color256, got %v", cc.ColorMode)
	}
	if !cc.HasBackground {
		t.Error("expected HasBackground=true")
	}
	if cc.Background.R != 0xff || cc.Background.G != 0x00 || cc.Background.B != 0xff {
		t.Errorf("expected background=ff00ff, got %+v", cc.Background)
	}
	if cc.Palette == nil {
		t.Error("expected a derived palette for 256-color mode")
	}
}

func TestToCanvasConfigRejectsUnknownDitherMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dither.Mode = "bogus"

	if _, err := cfg.ToCanvasConfig(nil); err == nil {
		t.Error("expected error for unknown dither mode")
	}
}
