package progress

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// DefaultBarWidth is used when the terminal width is unknown.
const DefaultBarWidth = 30

const (
	barFilled = "█"
	barEmpty  = "░"
)

// Bar renders a fraction in [0, 1] as "[████░░░░] 92.31%". Values outside the range
// are clamped; width is the number of cells between the brackets.
func Bar(fraction float64, width int) string {
	if width < 1 {
		width = DefaultBarWidth
	}
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := int(math.Round(fraction * float64(width)))
	return fmt.Sprintf("[%s%s] %.2f%%",
		strings.Repeat(barFilled, filled),
		strings.Repeat(barEmpty, width-filled),
		fraction*100)
}

// BarWidth picks a bar width for w: a third of the terminal, capped at 50 cells,
// or DefaultBarWidth when w is not a terminal.
func BarWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultBarWidth
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 {
		return DefaultBarWidth
	}
	return max(10, min(50, cols/3))
}
