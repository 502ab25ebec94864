package olog

import (
	"strconv"
	"time"
)

// logAssembler turns {descriptor, record, producer id} into formatted output
// bytes. It is deliberately conservative about its output region: a sub-write
// either fits completely or is not performed at all, and an in-progress
// specifier expansion that does not fit is rolled back. Phase flags record
// which parts of the line have been emitted so a step call on a fresh output
// region resumes exactly where the previous one stopped.
//
// Emitted line shape:
//
//	YYYY-MM-DD HH:MM:SS.mmm <filename>:<line> [<SEVERITY>][<producer_id>]: <body><eol>
type logAssembler struct {
	out         []byte
	written     int
	lastWritten int

	info     *StaticLogInfo
	args     []byte
	argsPos  int
	severity Level

	conversionIndex int
	parameterIndex  int
	formatIndex     int

	// Per-record prefix renderings, precomputed at load time.
	timestampStr []byte // "YYYY-MM-DD HH:MM:SS.mmm "
	fileLineStr  []byte // "filename:line "
	producerStr  []byte // "[id]: "
	endOfLog     string

	full bool

	// Resume flags, one per completed phase.
	timestampDone bool
	fileLineDone  bool
	severityDone  bool
	producerDone  bool
	endOfLogDone  bool

	fmtr specifierFormatter
}

func newLogAssembler(endOfLog string) *logAssembler {
	return &logAssembler{
		endOfLog:     endOfLog,
		timestampStr: make([]byte, 0, 32),
		fileLineStr:  make([]byte, 0, 64),
		producerStr:  make([]byte, 0, 16),
	}
}

// setOutput installs a fresh writable region and clears the full condition.
func (a *logAssembler) setOutput(buf []byte) {
	a.out = buf
	a.written = 0
	a.full = false
}

// bytesWritten reports the bytes emitted into the current output region.
func (a *logAssembler) bytesWritten() int { return a.written }

// free reports the remaining room in the current output region.
func (a *logAssembler) free() int { return len(a.out) - a.written }

// isFull reports whether the last step stopped on output exhaustion.
func (a *logAssembler) isFull() bool { return a.full }

// hasRemaining reports whether the loaded record still has bytes to emit.
func (a *logAssembler) hasRemaining() bool {
	return a.info != nil && !a.endOfLogDone
}

// load binds the next record and precomputes the prefix renderings. argData
// is the record's argument area (after the header); msTimestamp is the
// record's wall-clock milliseconds, rendered in local time.
func (a *logAssembler) load(info *StaticLogInfo, argData []byte, msTimestamp int64, producerID uint32) {
	a.info = info
	a.args = argData
	a.argsPos = 0
	a.severity = info.Severity

	t := time.UnixMilli(msTimestamp)
	a.timestampStr = t.AppendFormat(a.timestampStr[:0], "2006-01-02 15:04:05.000")
	a.timestampStr = append(a.timestampStr, ' ')

	a.fileLineStr = append(a.fileLineStr[:0], info.Filename...)
	a.fileLineStr = append(a.fileLineStr, ':')
	a.fileLineStr = strconv.AppendInt(a.fileLineStr, int64(info.LineNumber), 10)
	a.fileLineStr = append(a.fileLineStr, ' ')

	a.producerStr = append(a.producerStr[:0], '[')
	a.producerStr = strconv.AppendUint(a.producerStr, uint64(producerID), 10)
	a.producerStr = append(a.producerStr, ']', ':', ' ')

	a.conversionIndex = 0
	a.parameterIndex = 0
	a.formatIndex = 0
	a.timestampDone = false
	a.fileLineDone = false
	a.severityDone = false
	a.producerDone = false
	a.endOfLogDone = false
}

// tryWrite copies s into the output if it fits whole, updating the counters.
// On a miss it raises the full condition and writes nothing.
func (a *logAssembler) tryWrite(s string) bool {
	if a.full {
		return false
	}
	if len(s) >= a.free() {
		a.full = true
		return false
	}
	copy(a.out[a.written:], s)
	a.written += len(s)
	a.lastWritten += len(s)
	return true
}

func (a *logAssembler) tryWriteBytes(b []byte) bool {
	if a.full {
		return false
	}
	if len(b) >= a.free() {
		a.full = true
		return false
	}
	copy(a.out[a.written:], b)
	a.written += len(b)
	a.lastWritten += len(b)
	return true
}

// step emits as much of the loaded record as the output region allows and
// returns the bytes written by this call. When it stops early the full flag
// is set and the caller must install a fresh region before stepping again.
func (a *logAssembler) step() int {
	if a.full {
		return 0
	}
	a.lastWritten = 0
	info := a.info

	if !a.timestampDone {
		if !a.tryWriteBytes(a.timestampStr) {
			return a.lastWritten
		}
		a.timestampDone = true
	}

	if !a.fileLineDone {
		if !a.tryWriteBytes(a.fileLineStr) {
			return a.lastWritten
		}
		a.fileLineDone = true
	}

	if !a.severityDone {
		if !a.tryWrite(a.severity.token()) {
			return a.lastWritten
		}
		a.severityDone = true
	}

	if !a.producerDone {
		if !a.tryWriteBytes(a.producerStr) {
			return a.lastWritten
		}
		a.producerDone = true
	}

	for a.formatIndex < len(info.FormatStr) {
		if a.conversionIndex < len(info.Fragments) {
			frag := &info.Fragments[a.conversionIndex]

			if a.formatIndex < frag.FormatPos {
				// Literal run before the next specifier.
				if !a.tryWrite(info.FormatStr[a.formatIndex:frag.FormatPos]) {
					return a.lastWritten
				}
				a.formatIndex = frag.FormatPos
			} else if !a.expandFragment(frag) {
				return a.lastWritten
			}
		} else {
			// Literal tail after the last specifier.
			if !a.tryWrite(info.FormatStr[a.formatIndex:]) {
				return a.lastWritten
			}
			a.formatIndex = len(info.FormatStr)
		}
	}

	if !a.endOfLogDone {
		if !a.tryWrite(a.endOfLog) {
			return a.lastWritten
		}
		a.endOfLogDone = true
	}

	return a.lastWritten
}

// expandFragment formats one specifier. On output exhaustion the argument
// cursor and both indices are rolled back to their pre-attempt values so the
// next step re-expands the specifier into the fresh region.
func (a *logAssembler) expandFragment(frag *FormatFragment) bool {
	info := a.info

	// "%%" consumes no argument and collapses to a single '%'.
	if frag.ConversionType == ConvNone {
		if !a.tryWrite("%") {
			return false
		}
		a.formatIndex += frag.SpecifierLength
		a.conversionIndex++
		return true
	}

	savedParameter := a.parameterIndex
	savedArgsPos := a.argsPos

	width, precision := -1, -1
	if info.ParamTypes[a.parameterIndex] == ParamDynamicWidth {
		size := info.ParamSizes[a.parameterIndex]
		width = int(loadInt(a.argBytes(), size))
		a.argsPos += size
		a.parameterIndex++
	}
	if info.ParamTypes[a.parameterIndex] == ParamDynamicPrecision {
		size := info.ParamSizes[a.parameterIndex]
		precision = int(loadInt(a.argBytes(), size))
		a.argsPos += size
		a.parameterIndex++
	}

	stencil := info.stencil(frag)
	argSize := info.ParamSizes[a.parameterIndex]

	var formatted []byte
	stringAdvance := 0
	switch ct := frag.ConversionType; {
	case ct == ConvString:
		n, raw := a.stringSegment()
		stringAdvance = 8 + n + 1
		formatted = a.fmtr.appendString(stencil, width, precision, unsafeString(raw))
	case ct == ConvWideString:
		n, raw := a.stringSegment()
		stringAdvance = 8 + n + 1
		formatted = a.fmtr.appendString(stencil, width, precision, decodeWide(raw))
	case ct == ConvPointer:
		formatted = a.fmtr.appendPointer(stencil, width, precision, loadUint(a.argBytes(), argSize))
	case ct == ConvDouble || ct == ConvLongDouble:
		formatted = a.fmtr.appendFloat(stencil, width, precision, loadFloat(a.argBytes(), argSize))
	case ct == ConvWint:
		formatted = a.fmtr.appendRune(stencil, width, precision, rune(loadInt(a.argBytes(), argSize)))
	case ct == ConvInt && stencil[len(stencil)-1] == 'c':
		formatted = a.fmtr.appendRune(stencil, width, precision, rune(loadInt(a.argBytes(), argSize)))
	case ct.signed():
		formatted = a.fmtr.appendSigned(stencil, width, precision, loadInt(a.argBytes(), argSize))
	case ct.unsigned():
		formatted = a.fmtr.appendUnsigned(stencil, width, precision, loadUint(a.argBytes(), argSize))
	}

	if !a.tryWriteBytes(formatted) {
		a.parameterIndex = savedParameter
		a.argsPos = savedArgsPos
		return false
	}

	a.argsPos += stringAdvance + argSize
	a.conversionIndex++
	a.parameterIndex++
	a.formatIndex += frag.SpecifierLength
	return true
}

// argBytes returns the unread tail of the argument area, empty once the
// cursor has run past it.
func (a *logAssembler) argBytes() []byte {
	if a.argsPos >= len(a.args) {
		return nil
	}
	return a.args[a.argsPos:]
}

// stringSegment reads a string segment's length prefix and payload, clamped
// to the bytes actually present so a mistyped argument cannot push the
// cursor out of the record.
func (a *logAssembler) stringSegment() (int, []byte) {
	if a.argsPos+8 > len(a.args) {
		return 0, nil
	}
	n := int(loadUint(a.argBytes(), 8))
	if remaining := len(a.args) - a.argsPos - 9; n > remaining {
		n = max(remaining, 0)
	}
	return n, a.args[a.argsPos+8 : a.argsPos+8+n]
}

// decodeWide converts 4-byte little-endian code units to a string.
func decodeWide(raw []byte) string {
	runes := make([]rune, len(raw)/4)
	for i := range runes {
		runes[i] = rune(int32(loadUint(raw[i*4:], 4)))
	}
	return string(runes)
}
