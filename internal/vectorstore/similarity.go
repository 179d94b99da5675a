package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either is a zero vector or the lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func float32SliceToBytes(s []float32) []byte {
	buf := make([]byte, len(s)*4)
	for i, f := range s {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// matchesFilter reports whether meta satisfies every condition in f.
// Numbers compare by value regardless of their Go type.
func matchesFilter(meta map[string]any, f Filter) bool {
	for k, want := range f {
		got, ok := meta[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// MetaString returns meta[key] as a string, or "" when absent.
func MetaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// MetaInt returns meta[key] as an int. Backends decode numbers as int64 or
// float64 depending on their payload encoding.
func MetaInt(meta map[string]any, key string) int {
	if f, ok := toFloat(meta[key]); ok {
		return int(f)
	}
	if s, ok := meta[key].(string); ok {
		n, _ := strconv.Atoi(s)
		return n
	}
	return 0
}
