package logging

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color codes.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	cyan  = "\033[36m"
	green = "\033[32m"
	dim   = "\033[2m"
)

var logoLines = [4]string{
	` _                              `,
	`| |__  _ __ ___  ___ _______ ___`,
	`| '_ \| '__/ _ \/ _ \_  / _ \ __|`,
	`|_.__/|_|  \___/\___/___\___/___|`,
}

// PrintBanner prints the Breeze ASCII art logo along with the running
// mode, version and listen address. Colors are used only when stderr
// is a TTY.
func PrintBanner(mode, ver, addr string) {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	for _, line := range logoLines {
		if color {
			fmt.Fprintf(os.Stderr, "%s%s%s\n", bold+cyan, line, reset)
		} else {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	if color {
		fmt.Fprintf(os.Stderr, "\n  %smode%s %s   %sversion%s %s   %saddr%s %s\n\n",
			dim, reset, mode, dim, reset, ver, dim, reset, addr)
	} else {
		fmt.Fprintf(os.Stderr, "\n  mode %s   version %s   addr %s\n\n", mode, ver, addr)
	}
}

// PrintReady prints a one-line "listening on addr" indicator. It does
// not check that the listener is bound.
func PrintReady(addr string) {
	isTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if isTTY {
		fmt.Fprintf(os.Stderr, "  %s%s➜%s  listening on %s%s%s\n\n", bold, green, reset, bold, addr, reset)
	} else {
		fmt.Fprintf(os.Stderr, "  listening on %s\n\n", addr)
	}
}
