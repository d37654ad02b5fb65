package msg

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// mu serializes everything written to the terminal; compile jobs report concurrently
var mu sync.Mutex

// Stdout is where messages and forwarded tool output go
var Stdout io.Writer = os.Stdout

// exit is replaced in tests
var exit = os.Exit

func printLabel(label, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprint(Stdout, label)
	fmt.Fprint(Stdout, ": ")
	fmt.Fprintf(Stdout, format, a...)
	fmt.Fprint(Stdout, "\n")
}

func Error(format string, a ...any) {
	printLabel(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	printLabel(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	printLabel(color.RedString("fatal"), format, a...)
	exit(1)
}

func Info(format string, a ...any) {
	printLabel(color.HiGreenString("info"), format, a...)
}

// Status prints a right-aligned colored verb followed by a message, e.g. "   Running build/debug/app"
func Status(verb, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(Stdout, "%12s %s\n", color.HiCyanString(verb), fmt.Sprintf(format, a...))
}

// Output writes captured tool output in one piece, indented under the line that announced it
func Output(p []byte) {
	if len(p) == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	w := &IndentWriter{Indent: "    ", W: Stdout}
	w.Write(p)
	if p[len(p)-1] != '\n' {
		fmt.Fprintln(Stdout)
	}
}

// SetColor switches colored output: "always", "never" or "auto"
func SetColor(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			w.W.Write([]byte(w.Indent))
			w.didIndent = true
		}
		w.W.Write([]byte{c}) // FIXME-perf: buffer this
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return len(p), nil
}
