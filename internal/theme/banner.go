package theme

import (
	"fmt"
	"io"
	"os"
)

// ANSI colors
const (
	cyan    = "\033[36m"
	magenta = "\033[35m"
	yellow  = "\033[33m"
	red     = "\033[31m"
	green   = "\033[32m"
	reset   = "\033[0m"
)

// Banner returns the CLI banner.
func Banner() string {
	return "" +
		cyan + "  ┌─────────────────────────────────┐\n" + reset +
		cyan + "  │ " + magenta + "T R U T H L E N S" + cyan + "               │\n" + reset +
		cyan + "  └─────────────────────────────────┘\n" + reset +
		yellow + "   fake / real news text classifier\n" + reset
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}

// Label colours a verdict label for terminal output: FAKE red, REAL green.
func Label(label string) string {
	switch label {
	case "FAKE":
		return red + label + reset
	case "REAL":
		return green + label + reset
	}
	return label
}

// IsTerminal reports whether w is a character device, so colour is safe.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice != 0
}
