package olog

import "fmt"

// Level represents log severity. Lower values are more severe; LevelNone
// disables output entirely when used as the threshold.
type Level uint8

const (
	LevelNone Level = iota
	LevelError
	LevelWarning
	LevelInfo
	LevelDebug

	numLevels
)

// Bracketed severity tokens as they appear on each emitted line.
var severityTokens = [numLevels]string{
	"[<none>]",
	"[ERROR]",
	"[WARNING]",
	"[INFO]",
	"[DEBUG]",
}

// String returns the severity name without brackets.
func (l Level) String() string {
	if l >= numLevels {
		return "UNKNOWN"
	}
	tok := severityTokens[l]
	return tok[1 : len(tok)-1]
}

// token returns the bracketed form used in the output line.
func (l Level) token() string {
	if l >= numLevels {
		l = numLevels - 1
	}
	return severityTokens[l]
}

// ParseLevel converts a level name ("none", "error", "warning", "info",
// "debug", upper or lower case) to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "none", "NONE":
		return LevelNone, nil
	case "error", "ERROR":
		return LevelError, nil
	case "warning", "warn", "WARNING", "WARN":
		return LevelWarning, nil
	case "info", "INFO":
		return LevelInfo, nil
	case "debug", "DEBUG":
		return LevelDebug, nil
	}
	return LevelNone, fmt.Errorf("olog: unknown log level %q", s)
}
