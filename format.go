package olog

import "fmt"

// ParamType classifies one formal parameter position of a format string.
// Negative values are the special classes below; zero and above encode a
// string parameter with that static precision cap (`%.20s` -> ParamType(20)).
type ParamType int32

const (
	ParamInvalid          ParamType = -6
	ParamDynamicWidth     ParamType = -5 // the '*' in the width slot
	ParamDynamicPrecision ParamType = -4 // the '*' in the precision slot
	ParamNonString        ParamType = -3
	ParamStringDynamicCap ParamType = -2 // "%.*s"
	ParamStringNoCap      ParamType = -1 // "%s"
)

// ConversionType tags the native type a conversion specifier consumes.
type ConversionType uint8

const (
	ConvNone ConversionType = iota

	ConvUchar
	ConvUshort
	ConvUint
	ConvUlong
	ConvUlonglong
	ConvUintmax
	ConvSize
	ConvWint

	ConvSchar
	ConvShort
	ConvInt
	ConvLong
	ConvLonglong
	ConvIntmax
	ConvPtrdiff

	ConvDouble
	ConvLongDouble

	ConvPointer
	ConvString
	ConvWideString
)

// signed reports whether the conversion consumes a signed integer.
func (c ConversionType) signed() bool {
	return c >= ConvSchar && c <= ConvPtrdiff
}

// unsigned reports whether the conversion consumes an unsigned integer.
func (c ConversionType) unsigned() bool {
	return c >= ConvUchar && c <= ConvWint
}

// FormatFragment describes one conversion specifier inside a format string.
type FormatFragment struct {
	// ConversionType of the value the specifier consumes. ConvNone marks
	// the escape "%%", which consumes nothing.
	ConversionType ConversionType

	// SpecifierLength is the byte length of the specifier in the format
	// string ("%5.2lf" occupies 6 bytes).
	SpecifierLength int

	// FormatPos is the byte offset of the leading '%' in the format string.
	FormatPos int

	// StoragePos is the offset of this specifier's stencil inside the
	// packed conversion storage.
	StoragePos int
}

// StaticLogInfo is the immutable, per-callsite descriptor: the callsite
// identity plus the pre-analyzed format string. It is built once, registered
// with the logger, and reused for every record of that callsite.
type StaticLogInfo struct {
	Filename   string
	LineNumber int
	Severity   Level

	FormatStr string

	// ConversionStorage holds a byte-identical copy of every specifier,
	// each terminated by a single NUL, directly usable as a stencil.
	ConversionStorage []byte

	// Fragments is sorted by FormatPos; StoragePos values strictly increase.
	Fragments []FormatFragment

	// ParamTypes has one entry per formal parameter position.
	ParamTypes []ParamType

	// ParamSizes holds the encoded byte size of each parameter as fixed by
	// the callsite's first invocation. String parameters are 0 here; their
	// size lives in the record itself.
	ParamSizes []int
}

// stencil returns the NUL-terminated specifier copy for a fragment, without
// the terminator.
func (s *StaticLogInfo) stencil(f *FormatFragment) string {
	return string(s.ConversionStorage[f.StoragePos : f.StoragePos+f.SpecifierLength])
}

func isFlag(c byte) bool {
	return c == '-' || c == '+' || c == ' ' || c == '#' || c == '0'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLength(c byte) bool {
	return c == 'h' || c == 'l' || c == 'j' || c == 'z' || c == 't' || c == 'L'
}

func isConversion(c byte) bool {
	switch c {
	case 'd', 'i', 'u', 'o', 'x', 'X', 'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A',
		'c', 'p', 's', 'n', '%':
		return true
	}
	return false
}

// lengthModifiers accumulates the length prefix of one specifier.
type lengthModifiers struct {
	h, l       int
	j, z, t, L bool
}

// conversionType resolves the specifier letter plus length modifiers to a
// ConversionType, per the printf length table.
func conversionType(spec byte, m lengthModifiers) ConversionType {
	switch spec {
	case 'd', 'i':
		switch {
		case m.h >= 2:
			return ConvSchar
		case m.l >= 2:
			return ConvLonglong
		case m.h >= 1:
			return ConvShort
		case m.l >= 1:
			return ConvLong
		case m.j:
			return ConvIntmax
		case m.z:
			return ConvSize
		case m.t:
			return ConvPtrdiff
		}
		return ConvInt
	case 'u', 'o', 'x', 'X':
		switch {
		case m.h >= 2:
			return ConvUchar
		case m.l >= 2:
			return ConvUlonglong
		case m.h >= 1:
			return ConvUshort
		case m.l >= 1:
			return ConvUlong
		case m.j:
			return ConvUintmax
		case m.z:
			return ConvSize
		case m.t:
			return ConvPtrdiff
		}
		return ConvUint
	case 'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A':
		if m.L {
			return ConvLongDouble
		}
		return ConvDouble
	case 'c':
		if m.l >= 1 {
			return ConvWint
		}
		return ConvInt
	case 's':
		if m.l >= 1 {
			return ConvWideString
		}
		return ConvString
	case 'p':
		return ConvPointer
	}
	return ConvNone
}

// AnalyzeFormat parses a printf-style format string once and produces the
// arrays a StaticLogInfo needs: fragments, parameter types, and the packed
// NUL-separated stencil storage. The walk implements
//
//	spec := '%' flag* width? ('.' precision)? length? conversion
//
// where width and precision may be '*'. "%%" consumes no parameter and is
// recorded as a ConvNone fragment so the assembler can collapse it to a
// single '%'. "%n" and unknown specifiers are errors.
func AnalyzeFormat(format string) (fragments []FormatFragment, paramTypes []ParamType, storage []byte, err error) {
	i := 0
	n := len(format)
	for i < n {
		if format[i] != '%' {
			i++
			continue
		}
		start := i
		i++
		if i >= n {
			return nil, nil, nil, fmt.Errorf("olog: truncated conversion specifier at end of %q", format)
		}

		// "%%" escape: a fragment with no parameter.
		if format[i] == '%' {
			i++
			fragments = append(fragments, FormatFragment{
				ConversionType:  ConvNone,
				SpecifierLength: 2,
				FormatPos:       start,
				StoragePos:      len(storage),
			})
			storage = append(storage, '%', '%', 0)
			continue
		}

		for i < n && isFlag(format[i]) {
			i++
		}

		if i < n && format[i] == '*' {
			paramTypes = append(paramTypes, ParamDynamicWidth)
			i++
		} else {
			for i < n && isDigit(format[i]) {
				i++
			}
		}

		dynamicPrecision := false
		precision := -1
		if i < n && format[i] == '.' {
			i++
			if i < n && format[i] == '*' {
				paramTypes = append(paramTypes, ParamDynamicPrecision)
				dynamicPrecision = true
				i++
			} else {
				precision = 0
				for i < n && isDigit(format[i]) {
					precision = precision*10 + int(format[i]-'0')
					i++
				}
			}
		}

		var mods lengthModifiers
		for i < n && isLength(format[i]) {
			switch format[i] {
			case 'h':
				mods.h++
			case 'l':
				mods.l++
			case 'j':
				mods.j = true
			case 'z':
				mods.z = true
			case 't':
				mods.t = true
			case 'L':
				mods.L = true
			}
			i++
		}

		if i >= n {
			return nil, nil, nil, fmt.Errorf("olog: truncated conversion specifier at end of %q", format)
		}
		spec := format[i]
		if !isConversion(spec) {
			return nil, nil, nil, fmt.Errorf("olog: unrecognized conversion specifier %%%c in %q", spec, format)
		}
		if spec == 'n' {
			return nil, nil, nil, fmt.Errorf("olog: conversion specifier %%n is not supported")
		}
		i++

		if spec == 's' {
			switch {
			case dynamicPrecision:
				paramTypes = append(paramTypes, ParamStringDynamicCap)
			case precision >= 0:
				paramTypes = append(paramTypes, ParamType(precision))
			default:
				paramTypes = append(paramTypes, ParamStringNoCap)
			}
		} else {
			paramTypes = append(paramTypes, ParamNonString)
		}

		fragments = append(fragments, FormatFragment{
			ConversionType:  conversionType(spec, mods),
			SpecifierLength: i - start,
			FormatPos:       start,
			StoragePos:      len(storage),
		})
		storage = append(storage, format[start:i]...)
		storage = append(storage, 0)
	}
	return fragments, paramTypes, storage, nil
}

// newStaticLogInfo analyzes format and binds it to a callsite identity.
// Parameter sizes are filled in later, at registration, from the first
// invocation's arguments.
func newStaticLogInfo(filename string, line int, severity Level, format string) (*StaticLogInfo, error) {
	fragments, paramTypes, storage, err := AnalyzeFormat(format)
	if err != nil {
		return nil, err
	}
	return &StaticLogInfo{
		Filename:          filename,
		LineNumber:        line,
		Severity:          severity,
		FormatStr:         format,
		ConversionStorage: storage,
		Fragments:         fragments,
		ParamTypes:        paramTypes,
		ParamSizes:        make([]int, len(paramTypes)),
	}, nil
}
