// rastertext renders a raster image as terminal-displayable output: Unicode
// symbol art with ANSI color, or a Sixel/Kitty/iTerm2 graphics payload,
// auto-detected from the terminal unless overridden on the command line.
//
// Usage:
//
//	rastertext [flags] <image-file>
//
// Flags:
//
//	-cols int         Canvas width in cells (default: detected terminal width)
//	-rows int         Canvas height in cells (default: detected terminal height)
//	-mode string      Output protocol: symbols, sixel, kitty, iterm2 (default: auto)
//	-color string     Color mode: truecolor, 256, 240, 16, 8, fgbg, fgbg-invert (default: auto)
//	-config string    Path to a YAML render configuration file
//	-verbose          Enable debug logging
//	-version          Print version and exit
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"

	"github.com/tinyland/rastertext/canvasconfig"
	"github.com/tinyland/rastertext/raster/canvas"
	"github.com/tinyland/rastertext/raster/envdetect"
	"github.com/tinyland/rastertext/raster/passthrough"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to a YAML render configuration file")
		cols        = flag.Int("cols", 0, "Canvas width in cells (default: detected terminal width)")
		rows        = flag.Int("rows", 0, "Canvas height in cells (default: detected terminal height)")
		mode        = flag.String("mode", "", "Output protocol: symbols, sixel, kitty, iterm2 (default: auto)")
		colorMode   = flag.String("color", "", "Color mode: truecolor, 256, 240, 16, 8, fgbg, fgbg-invert (default: auto)")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("rastertext %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: rastertext [flags] <image-file>")
		os.Exit(2)
	}
	imagePath := flag.Arg(0)

	rcfg, err := canvasconfig.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	applyOverrides(rcfg, *configPath == "", *cols, *rows, *mode, *colorMode)

	if err := rcfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	cc, err := rcfg.ToCanvasConfig(nil)
	if err != nil {
		logger.Error("failed to build canvas config", "error", err)
		os.Exit(1)
	}

	img, err := imaging.Open(imagePath)
	if err != nil {
		logger.Error("failed to open image", "path", imagePath, "error", err)
		os.Exit(1)
	}

	logger.Debug("rendering", "image", imagePath, "cols", cc.Cols, "rows", cc.Rows, "mode", cc.Mode)

	c := canvas.NewCanvas(cc)
	c.DrawAllPixels(img)
	os.Stdout.Write(c.BuildANSI())
	if cc.Mode == canvas.ModeSymbols {
		fmt.Println()
	}
}

// applyOverrides resolves the canvas geometry, output mode, and color mode
// in priority order: explicit command-line flag, then (absent a config
// file) environment auto-detection, then the loaded/default config as-is.
func applyOverrides(rcfg *canvasconfig.Config, autoDetect bool, cols, rows int, mode, color string) {
	if autoDetect {
		detectedCols, detectedRows := envdetect.TerminalSize()
		rcfg.Geometry.Cols = detectedCols
		rcfg.Geometry.Rows = detectedRows
		rcfg.Output.Mode = modeName(envdetect.Mode())
		rcfg.Output.Color = colorModeName(envdetect.ColorMode())
		rcfg.Passthrough = passthroughName(envdetect.Passthrough())
	}

	if cols > 0 {
		rcfg.Geometry.Cols = cols
	}
	if rows > 0 {
		rcfg.Geometry.Rows = rows
	}
	if mode != "" {
		rcfg.Output.Mode = mode
	}
	if color != "" {
		rcfg.Output.Color = color
	}
}

func passthroughName(k passthrough.Kind) string {
	switch k {
	case passthrough.KindTmux:
		return "tmux"
	case passthrough.KindScreen:
		return "screen"
	default:
		return "none"
	}
}

func modeName(m canvas.Mode) string {
	switch m {
	case canvas.ModeSixel:
		return "sixel"
	case canvas.ModeKitty:
		return "kitty"
	case canvas.ModeIterm2:
		return "iterm2"
	default:
		return "symbols"
	}
}

func colorModeName(m canvas.ColorMode) string {
	switch m {
	case canvas.Color256:
		return "256"
	case canvas.Color240:
		return "240"
	case canvas.Color16:
		return "16"
	case canvas.Color8:
		return "8"
	case canvas.ColorFgBgInvert:
		return "fgbg-invert"
	case canvas.ColorFgBg:
		return "fgbg"
	default:
		return "truecolor"
	}
}

