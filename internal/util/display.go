package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBold   = "\033[1m"
)

// GetDisplayWidth calculates the actual display width of a string, accounting for emojis
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// PadRight pads text with spaces up to width display columns, truncating
// with an ellipsis when it does not fit.
func PadRight(text string, width int) string {
	if GetDisplayWidth(text) > width {
		text = runewidth.Truncate(text, width, "…")
	}
	return runewidth.FillRight(text, width)
}

// PadLeft right-aligns text within width display columns.
func PadLeft(text string, width int) string {
	if GetDisplayWidth(text) > width {
		text = runewidth.Truncate(text, width, "…")
	}
	return runewidth.FillLeft(text, width)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the column count of w, or fallback when w is not a
// terminal.
func TerminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// Colorize wraps text in color when enabled.
func Colorize(text, color string, enabled bool) string {
	if !enabled {
		return text
	}
	return fmt.Sprintf("%s%s%s", color, text, ColorReset)
}

// Rule returns a horizontal line of the given display width.
func Rule(width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat("─", width)
}
