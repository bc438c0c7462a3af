// Package scale maps raw byte counts to visual weights.
//
// A linear mapping makes a 100 GB directory ten-million times larger than a
// 1 KB file, which renders every small file invisible. The curves here
// compress that range so both stay on screen; cube root is the default.
package scale

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Func converts a size in bytes to a dimensionless visual weight.
// Implementations must be strictly monotonic and return a positive value
// for size 0 (the floor guarantees both).
type Func func(size int64) float64

// DefaultFloor is the minimum byte count fed into any curve, so empty
// files still occupy visible space.
const DefaultFloor int64 = 1

func clampFloor(floor int64) int64 {
	if floor < 1 {
		return DefaultFloor
	}
	return floor
}

func floored(size, floor int64) float64 {
	if size < floor {
		size = floor
	}
	return float64(size)
}

// CubeRoot compresses sizes on a cube-root curve. A 1 KB file and a 100 GB
// directory land roughly two orders of magnitude apart instead of eight.
func CubeRoot(floor int64) Func {
	floor = clampFloor(floor)
	return func(size int64) float64 {
		return math.Cbrt(floored(size, floor))
	}
}

// Sqrt compresses sizes on a square-root curve, a middle ground between
// linear and cube root.
func Sqrt(floor int64) Func {
	floor = clampFloor(floor)
	return func(size int64) float64 {
		return math.Sqrt(floored(size, floor))
	}
}

// Log2 compresses hardest; useful when trees mix bytes with terabytes.
// The +1 keeps the result positive at the floor.
func Log2(floor int64) Func {
	floor = clampFloor(floor)
	return func(size int64) float64 {
		return math.Log2(floored(size, floor)) + 1
	}
}

// Linear applies no compression beyond the floor. Mostly useful in tests
// where exact proportionality matters.
func Linear(floor int64) Func {
	floor = clampFloor(floor)
	return func(size int64) float64 {
		return floored(size, floor)
	}
}

// Power raises sizes to an arbitrary exponent in (0, 1]. The city layout
// uses a gentler exponent for building heights than the area curves use.
func Power(exp float64, floor int64) Func {
	if exp <= 0 || exp > 1 {
		exp = 1.0 / 3.0
	}
	floor = clampFloor(floor)
	return func(size int64) float64 {
		return math.Pow(floored(size, floor), exp)
	}
}

// Parse resolves a curve by config name: "cube-root", "sqrt", "log2",
// "linear", or "pow:<exp>". An empty name yields the default curve.
func Parse(name string, floor int64) (Func, error) {
	switch {
	case name == "" || name == "cube-root" || name == "cbrt":
		return CubeRoot(floor), nil
	case name == "sqrt":
		return Sqrt(floor), nil
	case name == "log2" || name == "log":
		return Log2(floor), nil
	case name == "linear":
		return Linear(floor), nil
	case strings.HasPrefix(name, "pow:"):
		exp, err := strconv.ParseFloat(strings.TrimPrefix(name, "pow:"), 64)
		if err != nil {
			return nil, fmt.Errorf("scale: bad exponent in %q: %w", name, err)
		}
		if exp <= 0 || exp > 1 {
			return nil, fmt.Errorf("scale: exponent %v out of range (0,1]", exp)
		}
		return Power(exp, floor), nil
	default:
		return nil, fmt.Errorf("scale: unknown curve %q", name)
	}
}
