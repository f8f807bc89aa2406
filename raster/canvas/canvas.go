// Package canvas ties the rendering core together: it runs the pixel
// preprocessor, then either the symbol cell analyzer or a graphics-protocol
// quantizer/encoder, and finally formats the result as a byte stream ready
// to write to a terminal, using a TermInfo for the escape sequences and an
// optional passthrough wrapper for multiplexers.
package canvas

import (
	"bytes"
	"image"

	"github.com/mattn/go-runewidth"

	"github.com/tinyland/rastertext/raster/batch"
	"github.com/tinyland/rastertext/raster/cellrender"
	"github.com/tinyland/rastertext/raster/color"
	"github.com/tinyland/rastertext/raster/dither"
	"github.com/tinyland/rastertext/raster/iterm2"
	"github.com/tinyland/rastertext/raster/kitty"
	"github.com/tinyland/rastertext/raster/palette"
	"github.com/tinyland/rastertext/raster/passthrough"
	"github.com/tinyland/rastertext/raster/pixops"
	"github.com/tinyland/rastertext/raster/sixel"
	"github.com/tinyland/rastertext/raster/symbols"
	"github.com/tinyland/rastertext/raster/termdb"
)

// Mode selects the output encoding family.
type Mode int

const (
	ModeSymbols Mode = iota
	ModeSixel
	ModeKitty
	ModeIterm2
)

// ColorMode selects how FG/BG colors are represented in symbol mode.
type ColorMode int

const (
	ColorTrueColor ColorMode = iota
	Color256
	Color240
	Color16
	Color8
	ColorFgBg
	ColorFgBgInvert
)

// Config is the immutable-after-handoff canvas configuration: geometry in
// cells, cell dimensions in pixels, output mode, color handling, and the
// supporting tables (symbol map, palette, terminal info).
type Config struct {
	Cols, Rows                int
	CellWidthPx, CellHeightPx int // default 8x8 per spec

	Mode      Mode
	ColorMode ColorMode

	Map     *symbols.Map // required for ModeSymbols; NewDefaultMap() if nil
	FillMap *symbols.Map
	Palette *palette.Palette // nil => derived from ColorMode

	Extractor     cellrender.Extractor
	AllowInvert   bool
	CandidateK    int
	FillThreshold int

	Dither   dither.Config
	Tuck     pixops.Tuck
	HAlign   pixops.Align
	VAlign   pixops.Align

	Background    color.Color
	HasBackground bool

	Term        *termdb.TermInfo // nil => termdb.GetFallbackInfo()
	Passthrough passthrough.Kind
}

func (cfg *Config) fillDefaults() {
	if cfg.CellWidthPx == 0 {
		cfg.CellWidthPx = 8
	}
	if cfg.CellHeightPx == 0 {
		cfg.CellHeightPx = 8
	}
	if cfg.Map == nil {
		cfg.Map = symbols.NewDefaultMap()
	}
	if cfg.CandidateK == 0 {
		cfg.CandidateK = 8
	}
	if cfg.Term == nil {
		cfg.Term = termdb.GetFallbackInfo()
	}
	if cfg.Palette == nil {
		cfg.Palette = defaultPalette(cfg.ColorMode, cfg.Background, cfg.ColorMode == ColorFgBgInvert)
	}
}

func defaultPalette(mode ColorMode, bg color.Color, invert bool) *palette.Palette {
	switch mode {
	case Color256:
		return palette.NewFixed256()
	case Color240:
		return palette.NewFixed240()
	case Color16:
		return palette.NewFixed16()
	case Color8:
		return palette.NewFixed8()
	case ColorFgBg, ColorFgBgInvert:
		fg := color.Color{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
		return palette.NewFgBg(fg, bg, invert)
	default:
		return nil
	}
}

// Canvas holds one rendering pass's geometry, cell grid (symbol mode) or
// encoded graphics body (protocol modes).
type Canvas struct {
	cfg Config

	cells    []cellrender.Cell // Cols*Rows, row-major; valid for ModeSymbols
	graphics []byte            // raw protocol body (pre-passthrough); valid otherwise
}

// NewCanvas returns a Canvas for cfg, filling in zero-valued fields with
// their spec defaults.
func NewCanvas(cfg Config) *Canvas {
	cfg.fillDefaults()
	return &Canvas{cfg: cfg}
}

// pixelDims returns the full canvas pixel dimensions implied by the cell
// grid and per-cell pixel size.
func (c *Canvas) pixelDims() (w, h int) {
	return c.cfg.Cols * c.cfg.CellWidthPx, c.cfg.Rows * c.cfg.CellHeightPx
}

// DrawAllPixels runs the full pipeline (preprocess, then analyze or
// quantize/encode) over src and stores the result for BuildANSI.
func (c *Canvas) DrawAllPixels(src image.Image) {
	w, h := c.pixelDims()

	paletteIsSmall := c.cfg.ColorMode != ColorTrueColor

	pcfg := pixops.Config{
		CanvasWidth:    w,
		CanvasHeight:   h,
		CellWidth:      c.cfg.CellWidthPx,
		CellHeight:     c.cfg.CellHeightPx,
		Tuck:           c.cfg.Tuck,
		HAlign:         c.cfg.HAlign,
		VAlign:         c.cfg.VAlign,
		Background:     c.cfg.Background,
		HasBackground:  c.cfg.HasBackground,
		PaletteIsSmall: paletteIsSmall,
		Dither:         c.cfg.Dither,
		Quantize:       c.quantizeFunc(),
	}

	res := pixops.Process(src, pcfg)

	switch c.cfg.Mode {
	case ModeSymbols:
		c.analyzeCells(res)
	case ModeSixel:
		c.encodeSixel(res)
	case ModeKitty:
		c.encodeKitty(res)
	case ModeIterm2:
		c.encodeIterm2(res)
	}
}

// quantizeFunc builds the Floyd-Steinberg quantization callback from the
// canvas's palette, or nil when dithering isn't in FS mode or there's no
// palette to snap to (TrueColor output never quantizes).
func (c *Canvas) quantizeFunc() dither.QuantizeFunc {
	if c.cfg.Dither.Mode != dither.ModeFS || c.cfg.Palette == nil {
		return nil
	}
	pal := c.cfg.Palette
	return func(rgba color.Color) color.Color {
		pen := pal.Table.Nearest(rgba)
		return pal.Entries[pen].RGB
	}
}

func (c *Canvas) analyzeCells(res pixops.Result) {
	cols, rows := c.cfg.Cols, c.cfg.Rows
	c.cells = make([]cellrender.Cell, cols*rows)

	ccfg := cellrender.Config{
		Map:           c.cfg.Map,
		FillMap:       c.cfg.FillMap,
		Palette:       c.cfg.Palette,
		TrueColor:     c.cfg.ColorMode == ColorTrueColor,
		AllowInvert:   c.cfg.AllowInvert,
		CandidateK:    c.cfg.CandidateK,
		FillThreshold: c.cfg.FillThreshold,
		Extractor:     c.cfg.Extractor,
	}

	rowStride := res.Width * 4
	tryWide := c.cfg.Map.HasWide()

	batch.Run(rows, 4, 1, func(r batch.Range) {
		for row := r.Start; row < r.End; row++ {
			col := 0
			for col < cols {
				cell, score := cellrender.AnalyzeCellScored(res.Pixels, col*c.cfg.CellWidthPx, row*c.cfg.CellHeightPx, c.cfg.CellWidthPx, c.cfg.CellHeightPx, rowStride, ccfg)

				if tryWide && col+1 < cols {
					left, right, ok := cellrender.AnalyzeWidePair(res.Pixels, col*c.cfg.CellWidthPx, row*c.cfg.CellHeightPx, c.cfg.CellWidthPx, c.cfg.CellHeightPx, rowStride, ccfg, score)
					if ok {
						c.cells[row*cols+col] = left
						c.cells[row*cols+col+1] = right
						col += 2
						continue
					}
				}

				c.cells[row*cols+col] = cell
				col++
			}
		}
	}, nil)
}

func (c *Canvas) encodeSixel(res pixops.Result) {
	pal := c.cfg.Palette
	if pal == nil {
		// Sixel has no direct-color mode; TrueColor canvases still need a
		// concrete palette to quantize against.
		pal = palette.NewFixed256()
	}
	img := sixel.Quantize(res.Pixels, res.Width, res.Height, pal)
	c.graphics = sixel.Encode(img)
}

func (c *Canvas) encodeKitty(res pixops.Result) {
	chunkSize := kitty.DefaultChunkSize
	if c.cfg.Passthrough == passthrough.KindScreen {
		chunkSize = kitty.MultiplexedChunkSize
	}
	c.graphics = kitty.EncodeImmediate(res.Pixels, res.Width, res.Height, c.cfg.Cols, c.cfg.Rows, chunkSize)
}

func (c *Canvas) encodeIterm2(res pixops.Result) {
	c.graphics = iterm2.Encode(res.Pixels, res.Width, res.Height, c.cfg.Cols, c.cfg.Rows)
}

// Cells returns the analyzed cell grid (ModeSymbols only), row-major,
// Cols*Rows entries.
func (c *Canvas) Cells() []cellrender.Cell {
	return c.cells
}

// BuildANSI formats the render pass's result as a terminal byte stream:
// SGR-colored symbol rows for ModeSymbols, or the raw graphics-protocol
// payload (optionally wrapped for a multiplexer) for the other modes.
func (c *Canvas) BuildANSI() []byte {
	switch c.cfg.Mode {
	case ModeSymbols:
		return c.buildSymbolANSI()
	default:
		if c.cfg.Passthrough == passthrough.KindNone {
			return append([]byte(nil), c.graphics...)
		}
		return passthrough.Wrap(c.graphics, c.cfg.Passthrough)
	}
}

func (c *Canvas) buildSymbolANSI() []byte {
	var buf bytes.Buffer
	ti := c.cfg.Term
	cols, rows := c.cfg.Cols, c.cfg.Rows

	emit := func(seq termdb.Seq, args ...uint32) {
		if b, err := ti.Emit(seq, args...); err == nil {
			buf.Write(b)
		}
	}

	for row := 0; row < rows; row++ {
		col := 0
		for col < cols {
			cell := c.cells[row*cols+col]
			c.emitCellColor(emit, cell)

			r := cell.CodePoint
			if r == 0 {
				r = ' '
			}
			buf.WriteRune(r)

			var width int
			if cell.Wide {
				// The pairing analyzer allocated exactly two adjacent cells for
				// this glyph regardless of the code point's own East Asian
				// Width property, so advance past both unconditionally.
				width = 2
			} else {
				width = runewidth.RuneWidth(r)
				if width < 1 {
					width = 1
				}
			}
			col += width
		}
		if b, err := ti.Emit(termdb.SeqResetAttributes); err == nil {
			buf.Write(b)
		}
		if row < rows-1 {
			buf.WriteByte('\n')
		}
	}

	return buf.Bytes()
}

func (c *Canvas) emitCellColor(emit func(termdb.Seq, ...uint32), cell cellrender.Cell) {
	switch c.cfg.ColorMode {
	case ColorTrueColor:
		emit(termdb.SeqSetColorFGDirect, uint32(cell.FG.R), uint32(cell.FG.G), uint32(cell.FG.B))
		emit(termdb.SeqSetColorBGDirect, uint32(cell.BG.R), uint32(cell.BG.G), uint32(cell.BG.B))
	case Color256, Color240:
		emit(termdb.SeqSetColorFG256, uint32(cell.FGPen))
		emit(termdb.SeqSetColorBG256, uint32(cell.BGPen))
	case Color16, Color8:
		emit(termdb.SeqSetColorFG16, uint32(30+cell.FGPen%8))
		emit(termdb.SeqSetColorBG16, uint32(40+cell.BGPen%8))
	case ColorFgBg, ColorFgBgInvert:
		// A 2-entry palette carries no per-cell color selection to emit;
		// FG/BG come entirely from the terminal's own defaults.
	}
}
