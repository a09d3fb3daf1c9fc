package supervisor

import (
	"strings"
)

// quoteConsoleArg wraps an argument for the platform shell host when it
// contains whitespace or quote characters, doubling any embedded quotes.
func quoteConsoleArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\"") {
		return arg
	}
	return `"` + strings.ReplaceAll(arg, `"`, `""`) + `"`
}

// consoleCommandLine joins a resolved launch into a single safely quoted
// command line for the terminal host.
func consoleCommandLine(l Launch) string {
	parts := make([]string, 0, len(l.Args)+1)
	parts = append(parts, quoteConsoleArg(l.Command))
	for _, arg := range l.Args {
		parts = append(parts, quoteConsoleArg(arg))
	}
	return strings.Join(parts, " ")
}
