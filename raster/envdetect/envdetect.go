// Package envdetect inspects the calling process's environment and stdout
// file descriptor to pick sensible canvas defaults: whether color output
// should be suppressed entirely, which color depth the terminal actually
// supports, which graphics protocol it is likely to understand, and how
// large the canvas should be when none is configured explicitly.
package envdetect

import (
	"os"
	"strconv"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/tinyland/rastertext/raster/canvas"
	"github.com/tinyland/rastertext/raster/passthrough"
)

// ShouldDisableColor reports whether color output should be suppressed:
// the NO_COLOR variable is set (https://no-color.org/), or stdout is not a
// terminal (piped or redirected).
func ShouldDisableColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// ColorMode probes the terminal's actual color profile (via termenv) and
// maps it onto a canvas color mode. A disabled-color environment maps to
// ColorFgBg, the plainest mode the canvas supports.
func ColorMode() canvas.ColorMode {
	if ShouldDisableColor() {
		return canvas.ColorFgBg
	}
	switch termenv.EnvColorProfile() {
	case termenv.TrueColor:
		return canvas.ColorTrueColor
	case termenv.ANSI256:
		return canvas.Color256
	case termenv.ANSI:
		return canvas.Color16
	default:
		return canvas.ColorFgBg
	}
}

// IsSSHSession reports whether the process is running inside an SSH session.
func IsSSHSession() bool {
	return os.Getenv("SSH_CLIENT") != "" || os.Getenv("SSH_CONNECTION") != "" || os.Getenv("SSH_TTY") != ""
}

// IsTmuxSession reports whether the process is running inside tmux.
func IsTmuxSession() bool {
	return os.Getenv("TMUX") != ""
}

// IsScreenSession reports whether the process is running inside GNU screen.
func IsScreenSession() bool {
	return os.Getenv("STY") != ""
}

// Passthrough picks the multiplexer passthrough wrapper implied by the
// current session, or passthrough.KindNone outside a multiplexer.
func Passthrough() passthrough.Kind {
	switch {
	case IsTmuxSession():
		return passthrough.KindTmux
	case IsScreenSession():
		return passthrough.KindScreen
	default:
		return passthrough.KindNone
	}
}

// Mode picks the graphics protocol the current terminal is most likely to
// render correctly, preferring direct pixel protocols over symbol mode and
// falling back to symbols when none can be identified. An identified
// terminal is trusted over SSH too; an SSH session with no identified
// terminal gets symbols, the same as any other session.
func Mode() canvas.Mode {
	termProgram := os.Getenv("TERM_PROGRAM")
	switch termProgram {
	case "ghostty", "kitty", "WezTerm":
		return canvas.ModeKitty
	case "iTerm.app":
		return canvas.ModeIterm2
	}

	if os.Getenv("TERM") == "xterm-kitty" || os.Getenv("KITTY_WINDOW_ID") != "" {
		return canvas.ModeKitty
	}
	if os.Getenv("ITERM_SESSION_ID") != "" || os.Getenv("LC_TERMINAL") == "iTerm2" {
		return canvas.ModeIterm2
	}
	if os.Getenv("MLTERM") != "" {
		return canvas.ModeSixel
	}

	if IsSSHSession() {
		return canvas.ModeSymbols
	}

	return canvas.ModeSymbols
}

// TerminalSize returns the current terminal dimensions in cells, trying TTY
// ioctl detection first, then COLUMNS/LINES environment variables, then an
// 80x24 default.
func TerminalSize() (cols, rows int) {
	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 && h > 0 {
		return w, h
	}

	cols, rows = 80, 24
	if c := os.Getenv("COLUMNS"); c != "" {
		if w, err := strconv.Atoi(c); err == nil && w > 0 {
			cols = w
		}
	}
	if l := os.Getenv("LINES"); l != "" {
		if h, err := strconv.Atoi(l); err == nil && h > 0 {
			rows = h
		}
	}
	return cols, rows
}
