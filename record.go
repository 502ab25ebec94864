package olog

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Wire layout of one committed record:
//
//	[ u64 log_id ][ u64 info_size ][ i64 ms_timestamp ][ arg bytes... ]
//
// info_size counts the whole record including this header and is the sole
// resynchronization marker: the consumer advances exactly info_size bytes
// per record. All integers are little-endian.
const recordHeaderSize = 24

func putRecordHeader(dst []byte, logID int32, infoSize int, msTimestamp int64) {
	binary.LittleEndian.PutUint64(dst[0:8], uint64(logID))
	binary.LittleEndian.PutUint64(dst[8:16], uint64(infoSize))
	binary.LittleEndian.PutUint64(dst[16:24], uint64(msTimestamp))
}

func readRecordHeader(src []byte) (logID uint64, infoSize int, msTimestamp int64) {
	logID = binary.LittleEndian.Uint64(src[0:8])
	infoSize = int(binary.LittleEndian.Uint64(src[8:16]))
	msTimestamp = int64(binary.LittleEndian.Uint64(src[16:24]))
	return
}

// paramStaticSize returns the per-callsite constant byte size of an argument
// kind. String-like arguments return 0: their size is carried inside each
// record instead.
func paramStaticSize(arg any) int {
	switch arg.(type) {
	case string, []byte, []rune:
		return 0
	case int8, uint8, bool:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	default:
		// int, uint, int64, uint64, uintptr, unsafe.Pointer, float64 and
		// anything exotic, which the encoder stores as 8 zero bytes.
		return 8
	}
}

// stringCap applies the precision rule that bounds a stored string: a static
// cap from the descriptor (ParamType >= 0) or the most recent dynamic
// precision value. A negative dynamic precision means "no cap", as printf
// treats it.
func stringCap(pt ParamType, length, prePrecision int) int {
	switch {
	case pt >= 0 && length > int(pt):
		return int(pt)
	case pt == ParamStringDynamicCap && prePrecision >= 0 && length > prePrecision:
		return prePrecision
	}
	return length
}

// argSizes computes the exact encoded size of every argument and the record
// total. stringLens receives the capped length of each string-like argument
// (bytes, or code points for []rune) so encodeArgs does not repeat the work. The walk mirrors
// encodeArgs exactly; both sides must agree byte for byte.
func argSizes(info *StaticLogInfo, args []any, stringLens []int) int {
	total := recordHeaderSize
	prePrecision := -1
	for i, arg := range args {
		pt := info.ParamTypes[i]
		switch v := arg.(type) {
		case string:
			n := stringCap(pt, len(v), prePrecision)
			stringLens[i] = n
			total += 8 + n + 1
		case []byte:
			n := stringCap(pt, len(v), prePrecision)
			stringLens[i] = n
			total += 8 + n + 1
		case []rune:
			n := stringCap(pt, len(v), prePrecision)
			stringLens[i] = n
			total += 8 + n*4 + 1
		default:
			size := paramStaticSize(arg)
			if pt == ParamDynamicPrecision {
				prePrecision = intValue(arg)
			}
			total += size
		}
	}
	return total
}

// intValue extracts a dynamic width/precision argument as an int.
func intValue(arg any) int {
	switch v := arg.(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	}
	return 0
}

// encodeArgs writes the argument area of a record. Non-strings are stored as
// the raw little-endian bytes of their native width. String-likes are stored
// as [u64 length][bytes...][0x00]; the length excludes the mandatory NUL.
// Wide ([]rune) strings store 4-byte code units. Returns bytes written.
func encodeArgs(dst []byte, info *StaticLogInfo, args []any, stringLens []int) int {
	pos := 0
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			n := stringLens[i]
			binary.LittleEndian.PutUint64(dst[pos:], uint64(n))
			pos += 8
			pos += copy(dst[pos:pos+n], v)
			dst[pos] = 0
			pos++
		case []byte:
			n := stringLens[i]
			binary.LittleEndian.PutUint64(dst[pos:], uint64(n))
			pos += 8
			pos += copy(dst[pos:pos+n], v)
			dst[pos] = 0
			pos++
		case []rune:
			n := stringLens[i]
			binary.LittleEndian.PutUint64(dst[pos:], uint64(n*4))
			pos += 8
			for _, r := range v[:n] {
				binary.LittleEndian.PutUint32(dst[pos:], uint32(r))
				pos += 4
			}
			dst[pos] = 0
			pos++
		case bool:
			if v {
				dst[pos] = 1
			} else {
				dst[pos] = 0
			}
			pos++
		case int8:
			dst[pos] = byte(v)
			pos++
		case uint8:
			dst[pos] = v
			pos++
		case int16:
			binary.LittleEndian.PutUint16(dst[pos:], uint16(v))
			pos += 2
		case uint16:
			binary.LittleEndian.PutUint16(dst[pos:], v)
			pos += 2
		case int32:
			binary.LittleEndian.PutUint32(dst[pos:], uint32(v))
			pos += 4
		case uint32:
			binary.LittleEndian.PutUint32(dst[pos:], v)
			pos += 4
		case float32:
			binary.LittleEndian.PutUint32(dst[pos:], math.Float32bits(v))
			pos += 4
		case int:
			binary.LittleEndian.PutUint64(dst[pos:], uint64(v))
			pos += 8
		case uint:
			binary.LittleEndian.PutUint64(dst[pos:], uint64(v))
			pos += 8
		case int64:
			binary.LittleEndian.PutUint64(dst[pos:], uint64(v))
			pos += 8
		case uint64:
			binary.LittleEndian.PutUint64(dst[pos:], v)
			pos += 8
		case uintptr:
			binary.LittleEndian.PutUint64(dst[pos:], uint64(v))
			pos += 8
		case unsafe.Pointer:
			binary.LittleEndian.PutUint64(dst[pos:], uint64(uintptr(v)))
			pos += 8
		case float64:
			binary.LittleEndian.PutUint64(dst[pos:], math.Float64bits(v))
			pos += 8
		default:
			// Unknown kinds occupy 8 zero bytes so both sides stay in step.
			binary.LittleEndian.PutUint64(dst[pos:], 0)
			pos += 8
		}
	}
	return pos
}

// loadInt reads a little-endian signed integer of the recorded width. Widths
// come from the record side, never from the host, which keeps narrow
// producers and wide consumers interoperable. Short input decodes as zero
// rather than running off the record.
func loadInt(src []byte, size int) int64 {
	if len(src) < size {
		return 0
	}
	switch size {
	case 1:
		return int64(int8(src[0]))
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(src)))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(src)))
	case 8:
		return int64(binary.LittleEndian.Uint64(src))
	}
	return 0
}

// loadUint reads a little-endian unsigned integer of the recorded width.
func loadUint(src []byte, size int) uint64 {
	if len(src) < size {
		return 0
	}
	switch size {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(src))
	case 4:
		return uint64(binary.LittleEndian.Uint32(src))
	case 8:
		return binary.LittleEndian.Uint64(src)
	}
	return 0
}

// loadFloat reads a float of the recorded width.
func loadFloat(src []byte, size int) float64 {
	if len(src) < size {
		return 0
	}
	switch size {
	case 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src)))
	case 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	}
	return 0
}

// unsafeString views a byte slice as a string without copying. The record
// bytes stay alive until the consumer calls consume, which is after
// formatting finishes, so the view never outlives its backing.
func unsafeString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
