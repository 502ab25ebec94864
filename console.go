package olog

import (
	"bytes"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// ANSI colors for the severity token on terminal output.
const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorGreen  = "\x1b[32m"
	colorCyan   = "\x1b[36m"
)

var severityColors = [numLevels]string{
	"",          // <none>
	colorRed,    // ERROR
	colorYellow, // WARNING
	colorGreen,  // INFO
	colorCyan,   // DEBUG
}

// ConsoleSink wraps a file for human consumption. When f is a terminal the
// returned writer colorizes the bracketed severity token of each line and
// routes through go-colorable so ANSI sequences survive on Windows;
// otherwise f is returned unchanged.
func ConsoleSink(f *os.File) io.Writer {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return &consoleWriter{out: colorable.NewColorable(f)}
	}
	return f
}

// consoleWriter colorizes severity tokens line by line. It allocates; it is
// meant for interactive output, not the high-volume file path.
type consoleWriter struct {
	out io.Writer
	buf []byte
}

func (w *consoleWriter) Write(b []byte) (int, error) {
	n := len(b)
	w.buf = w.buf[:0]
	for len(b) > 0 {
		line := b
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			line = b[:i+1]
			b = b[i+1:]
		} else {
			b = nil
		}
		w.buf = appendColorized(w.buf, line)
	}
	if _, err := w.out.Write(w.buf); err != nil {
		return 0, err
	}
	return n, nil
}

// appendColorized copies one line, wrapping the first severity token it
// finds in that level's color.
func appendColorized(dst, line []byte) []byte {
	for lvl := LevelError; lvl < numLevels; lvl++ {
		tok := severityTokens[lvl]
		i := bytes.Index(line, []byte(tok))
		if i < 0 {
			continue
		}
		dst = append(dst, line[:i]...)
		dst = append(dst, severityColors[lvl]...)
		dst = append(dst, tok...)
		dst = append(dst, colorReset...)
		dst = append(dst, line[i+len(tok):]...)
		return dst
	}
	return append(dst, line...)
}
