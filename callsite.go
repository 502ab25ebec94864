package olog

import (
	"path/filepath"

	"github.com/go-stack/stack"
)

// The convenience API (Errorf/Warningf/Infof/Debugf) resolves the callsite
// from the caller's program counter and keeps one Callsite per PC, so the
// one-time format analysis and registration still happen exactly once per
// source location.

type callsite struct {
	cs   Callsite
	file string
	line int
}

// callsiteFor returns the cached callsite entry for the caller at the given
// stack depth, creating it on first sight.
func (l *Logger) callsiteFor(skip int) *callsite {
	call := stack.Caller(skip)
	frame := call.Frame()

	if entry, ok := l.callsites.Load(frame.PC); ok {
		return entry.(*callsite)
	}
	entry := &callsite{
		file: filepath.Base(frame.File),
		line: frame.Line,
	}
	actual, _ := l.callsites.LoadOrStore(frame.PC, entry)
	return actual.(*callsite)
}
