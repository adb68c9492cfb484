package tui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// DefaultWidth is assumed when stdout is not a terminal.
const DefaultWidth = 160

var (
	HasTTY = isatty.IsTerminal(os.Stdout.Fd())
	// Output is where tables and messages are written.
	Output io.Writer = os.Stdout
)

// Width returns the terminal width in columns.
func Width() int {
	if !HasTTY {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}
