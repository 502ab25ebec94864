package olog

import (
	"fmt"
	"strconv"
)

// The assembler formats each argument through the stencil captured at
// analysis time ("%-8.3lf", "%04x", ...). C specifiers are translated to Go
// fmt verbs once per expansion: length modifiers vanish (the decoded value
// already has its final width), dynamic '*' slots are replaced by the
// decoded width/precision, and a few conversion letters are respelled.

// verbLetter maps a C conversion letter to the Go fmt verb that renders the
// same shape. 'u' becomes 'd' (the value arrives as uint64), 'F' folds to
// 'f', and the hex-float pair a/A maps to Go's x/X float verbs.
func verbLetter(c byte) byte {
	switch c {
	case 'i', 'u':
		return 'd'
	case 'F':
		return 'f'
	case 'a':
		return 'x'
	case 'A':
		return 'X'
	}
	return c
}

// buildVerb translates one stencil into a Go fmt verb, substituting the
// decoded dynamic width/precision where the stencil says '*'. A negative
// dynamic width left-justifies; a negative dynamic precision is dropped, as
// printf specifies.
func buildVerb(dst []byte, stencil string, width, precision int) []byte {
	dst = append(dst, '%')
	i := 1 // skip '%'
	n := len(stencil)

	leftJustify := false
	for i < n && isFlag(stencil[i]) {
		if stencil[i] == '-' {
			leftJustify = true
		} else {
			dst = append(dst, stencil[i])
		}
		i++
	}
	dynamicWidth := i < n && stencil[i] == '*'
	if dynamicWidth && width < 0 {
		width = -width
		leftJustify = true
	}
	if leftJustify {
		dst = append(dst, '-')
	}

	if dynamicWidth {
		dst = strconv.AppendInt(dst, int64(width), 10)
		i++
	} else {
		for i < n && isDigit(stencil[i]) {
			dst = append(dst, stencil[i])
			i++
		}
	}

	if i < n && stencil[i] == '.' {
		i++
		if i < n && stencil[i] == '*' {
			if precision >= 0 {
				dst = append(dst, '.')
				dst = strconv.AppendInt(dst, int64(precision), 10)
			}
			i++
		} else {
			dst = append(dst, '.')
			for i < n && isDigit(stencil[i]) {
				dst = append(dst, stencil[i])
				i++
			}
		}
	}

	for i < n && isLength(stencil[i]) {
		i++
	}

	if i < n {
		dst = append(dst, verbLetter(stencil[i]))
	}
	return dst
}

// plainStencil reports whether the stencil is just "%<letter>" with no
// flags, width or precision, enabling the strconv fast paths below.
func plainStencil(stencil string, width, precision int) bool {
	if width != -1 || precision != -1 {
		return false
	}
	for i := 1; i < len(stencil)-1; i++ {
		if !isLength(stencil[i]) {
			return false
		}
	}
	return true
}

// specifierFormatter renders decoded arguments through stencils into a
// reusable scratch buffer. One lives inside each assembler.
type specifierFormatter struct {
	scratch []byte
	verb    []byte
}

func (sf *specifierFormatter) appendSigned(stencil string, width, precision int, v int64) []byte {
	if plainStencil(stencil, width, precision) {
		switch stencil[len(stencil)-1] {
		case 'd', 'i':
			sf.scratch = strconv.AppendInt(sf.scratch[:0], v, 10)
			return sf.scratch
		}
	}
	sf.verb = buildVerb(sf.verb[:0], stencil, width, precision)
	sf.scratch = fmt.Appendf(sf.scratch[:0], string(sf.verb), v)
	return sf.scratch
}

func (sf *specifierFormatter) appendUnsigned(stencil string, width, precision int, v uint64) []byte {
	if plainStencil(stencil, width, precision) {
		switch stencil[len(stencil)-1] {
		case 'u':
			sf.scratch = strconv.AppendUint(sf.scratch[:0], v, 10)
			return sf.scratch
		case 'x':
			sf.scratch = strconv.AppendUint(sf.scratch[:0], v, 16)
			return sf.scratch
		}
	}
	sf.verb = buildVerb(sf.verb[:0], stencil, width, precision)
	sf.scratch = fmt.Appendf(sf.scratch[:0], string(sf.verb), v)
	return sf.scratch
}

func (sf *specifierFormatter) appendFloat(stencil string, width, precision int, v float64) []byte {
	sf.verb = buildVerb(sf.verb[:0], stencil, width, precision)
	sf.scratch = fmt.Appendf(sf.scratch[:0], string(sf.verb), v)
	return sf.scratch
}

func (sf *specifierFormatter) appendRune(stencil string, width, precision int, v rune) []byte {
	if plainStencil(stencil, width, precision) {
		sf.scratch = append(sf.scratch[:0], string(v)...)
		return sf.scratch
	}
	sf.verb = buildVerb(sf.verb[:0], stencil, width, precision)
	sf.scratch = fmt.Appendf(sf.scratch[:0], string(sf.verb), v)
	return sf.scratch
}

func (sf *specifierFormatter) appendString(stencil string, width, precision int, v string) []byte {
	if plainStencil(stencil, width, precision) {
		sf.scratch = append(sf.scratch[:0], v...)
		return sf.scratch
	}
	sf.verb = buildVerb(sf.verb[:0], stencil, width, precision)
	sf.scratch = fmt.Appendf(sf.scratch[:0], string(sf.verb), v)
	return sf.scratch
}

// appendPointer renders %p as 0x-prefixed lowercase hex.
func (sf *specifierFormatter) appendPointer(stencil string, width, precision int, v uint64) []byte {
	if plainStencil(stencil, width, precision) {
		sf.scratch = append(sf.scratch[:0], '0', 'x')
		sf.scratch = strconv.AppendUint(sf.scratch, v, 16)
		return sf.scratch
	}
	// Respell "%...p" as "%#...x" to keep the 0x prefix under Go fmt; the
	// '#' flag must precede any width digits.
	sf.verb = buildVerb(sf.verb[:0], stencil, width, precision)
	if n := len(sf.verb); sf.verb[n-1] == 'p' {
		sf.verb[n-1] = 'x'
		sf.verb = append(sf.verb, 0)
		copy(sf.verb[2:], sf.verb[1:n])
		sf.verb[1] = '#'
	}
	sf.scratch = fmt.Appendf(sf.scratch[:0], string(sf.verb), v)
	return sf.scratch
}
