package olog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeFormatBasic(t *testing.T) {
	fragments, params, storage, err := AnalyzeFormat("Hello %d World\n")
	require.NoError(t, err)

	require.Len(t, fragments, 1)
	assert.Equal(t, ConvInt, fragments[0].ConversionType)
	assert.Equal(t, 2, fragments[0].SpecifierLength)
	assert.Equal(t, 6, fragments[0].FormatPos)
	assert.Equal(t, 0, fragments[0].StoragePos)

	require.Len(t, params, 1)
	assert.Equal(t, ParamNonString, params[0])

	assert.Equal(t, []byte("%d\x00"), storage)
}

func TestAnalyzeFormatDynamicWidthPrecision(t *testing.T) {
	fragments, params, _, err := AnalyzeFormat("a=%d b=%*.*lf")
	require.NoError(t, err)

	require.Len(t, fragments, 2)
	assert.Equal(t, ConvInt, fragments[0].ConversionType)
	assert.Equal(t, ConvDouble, fragments[1].ConversionType)
	assert.Equal(t, 6, fragments[1].SpecifierLength) // "%*.*lf"
	assert.Equal(t, 7, fragments[1].FormatPos)

	assert.Equal(t, []ParamType{
		ParamNonString,
		ParamDynamicWidth,
		ParamDynamicPrecision,
		ParamNonString,
	}, params)
}

func TestAnalyzeFormatStringVariants(t *testing.T) {
	cases := []struct {
		format string
		want   ParamType
	}{
		{"%s", ParamStringNoCap},
		{"%.*s", ParamStringDynamicCap},
		{"%.20s", ParamType(20)},
		{"%.0s", ParamType(0)},
	}
	for _, tc := range cases {
		_, params, _, err := AnalyzeFormat(tc.format)
		require.NoError(t, err, tc.format)
		// %.*s also consumes a precision parameter.
		require.Equal(t, tc.want, params[len(params)-1], tc.format)
	}
}

func TestAnalyzeFormatConversionTable(t *testing.T) {
	cases := []struct {
		format string
		want   ConversionType
	}{
		{"%d", ConvInt},
		{"%i", ConvInt},
		{"%hhd", ConvSchar},
		{"%hd", ConvShort},
		{"%ld", ConvLong},
		{"%lld", ConvLonglong},
		{"%jd", ConvIntmax},
		{"%zd", ConvSize},
		{"%td", ConvPtrdiff},
		{"%u", ConvUint},
		{"%hhu", ConvUchar},
		{"%hx", ConvUshort},
		{"%lo", ConvUlong},
		{"%llX", ConvUlonglong},
		{"%ju", ConvUintmax},
		{"%zu", ConvSize},
		{"%tu", ConvPtrdiff},
		{"%f", ConvDouble},
		{"%lf", ConvDouble},
		{"%LG", ConvLongDouble},
		{"%e", ConvDouble},
		{"%a", ConvDouble},
		{"%c", ConvInt},
		{"%lc", ConvWint},
		{"%s", ConvString},
		{"%ls", ConvWideString},
		{"%p", ConvPointer},
	}
	for _, tc := range cases {
		fragments, _, _, err := AnalyzeFormat(tc.format)
		require.NoError(t, err, tc.format)
		require.Len(t, fragments, 1, tc.format)
		assert.Equal(t, tc.want, fragments[0].ConversionType, tc.format)
	}
}

func TestAnalyzeFormatEscape(t *testing.T) {
	fragments, params, storage, err := AnalyzeFormat("100%% done")
	require.NoError(t, err)

	require.Len(t, fragments, 1)
	assert.Equal(t, ConvNone, fragments[0].ConversionType)
	assert.Equal(t, 2, fragments[0].SpecifierLength)
	assert.Equal(t, 3, fragments[0].FormatPos)
	assert.Empty(t, params)
	assert.Equal(t, []byte("%%\x00"), storage)
}

func TestAnalyzeFormatErrors(t *testing.T) {
	for _, format := range []string{"%n", "count: %n", "%q", "tail %"} {
		_, _, _, err := AnalyzeFormat(format)
		assert.Error(t, err, format)
	}
}

// Every NUL-separated token of the storage must equal the corresponding
// specifier from the format string, leading '%' included.
func TestConversionStorageTokens(t *testing.T) {
	formats := []string{
		"%d and %5.2lf and %-10s",
		"%08x%%%c",
		"mix %*.*s %p %llu end",
	}
	for _, format := range formats {
		fragments, _, storage, err := AnalyzeFormat(format)
		require.NoError(t, err, format)

		tokens := bytes.Split(storage, []byte{0})
		// Trailing NUL yields one empty token at the end.
		require.Equal(t, len(fragments)+1, len(tokens), format)
		assert.Empty(t, tokens[len(tokens)-1], format)

		for k, frag := range fragments {
			want := format[frag.FormatPos : frag.FormatPos+frag.SpecifierLength]
			assert.Equal(t, want, string(tokens[k]), format)
		}
	}
}

func TestFragmentsSortedAndStorageIncreasing(t *testing.T) {
	fragments, _, _, err := AnalyzeFormat("%d %s %x %f %c")
	require.NoError(t, err)
	for i := 1; i < len(fragments); i++ {
		assert.Greater(t, fragments[i].FormatPos, fragments[i-1].FormatPos)
		assert.Greater(t, fragments[i].StoragePos, fragments[i-1].StoragePos)
	}
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]Level{
		"none": LevelNone, "error": LevelError, "warning": LevelWarning,
		"warn": LevelWarning, "info": LevelInfo, "debug": LevelDebug,
		"DEBUG": LevelDebug,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
