// Package vector3 implements the integer and floating-point 3D vector
// arithmetic used to describe volume dimensions, block extents and voxel
// positions throughout the BVP toolchain.
package vector3

import "fmt"

// U32 is a 3-component unsigned integer vector, used for dimensions,
// positions and microblock sizes.
type U32 struct {
	X, Y, Z uint32
}

// F32 is a 3-component floating point vector, used for physical volume
// and voxel scales.
type F32 struct {
	X, Y, Z float32
}

// NewU32 builds a vector from its three components.
func NewU32(x, y, z uint32) U32 {
	return U32{X: x, Y: y, Z: z}
}

// Add returns the component-wise sum of a and b.
func (a U32) Add(b U32) U32 {
	return U32{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

// Sub returns the component-wise difference of a and b.
func (a U32) Sub(b U32) U32 {
	return U32{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

// Mul returns the component-wise product of a and b.
func (a U32) Mul(b U32) U32 {
	return U32{a.X * b.X, a.Y * b.Y, a.Z * b.Z}
}

// Div performs component-wise floating point division, a/b.
func (a U32) Div(b U32) F32 {
	return F32{
		X: float32(a.X) / float32(b.X),
		Y: float32(a.Y) / float32(b.Y),
		Z: float32(a.Z) / float32(b.Z),
	}
}

// Min returns the component-wise minimum of a and b.
func (a U32) Min(b U32) U32 {
	return U32{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)}
}

func min(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// AnyLT reports whether any component of a is strictly less than the
// corresponding component of b.
func (a U32) AnyLT(b U32) bool {
	return a.X < b.X || a.Y < b.Y || a.Z < b.Z
}

// AnyGT reports whether any component of a is strictly greater than the
// corresponding component of b.
func (a U32) AnyGT(b U32) bool {
	return a.X > b.X || a.Y > b.Y || a.Z > b.Z
}

// AnyDiv reports whether any component of a is not evenly divisible by
// the corresponding component of b. A zero divisor component counts as
// non-divisible rather than panicking.
func (a U32) AnyDiv(b U32) bool {
	if b.X == 0 || b.Y == 0 || b.Z == 0 {
		return true
	}
	return a.X%b.X != 0 || a.Y%b.Y != 0 || a.Z%b.Z != 0
}

// MultiplyElements returns x*y*z.
func (a U32) MultiplyElements() uint32 {
	return a.X * a.Y * a.Z
}

// LinearIndex converts a 3D coordinate i into a linear index for a dense
// array with extent dim, using x-major order: x + y*dim.x + z*dim.x*dim.y.
func LinearIndex(i, dim U32) uint64 {
	return uint64(i.X) + uint64(i.Y)*uint64(dim.X) + uint64(i.Z)*uint64(dim.X)*uint64(dim.Y)
}

// ToF32 widens an integer vector into a floating point vector.
func (a U32) ToF32() F32 {
	return F32{float32(a.X), float32(a.Y), float32(a.Z)}
}

// ToJSON converts the vector into the 3-element array form used by the
// manifest schema.
func (a U32) ToJSON() [3]float64 {
	return [3]float64{float64(a.X), float64(a.Y), float64(a.Z)}
}

// String implements fmt.Stringer.
func (a U32) String() string {
	return fmt.Sprintf("[%d %d %d]", a.X, a.Y, a.Z)
}

// Ceil rounds every component of a up to the nearest integer.
func (a F32) Ceil() U32 {
	return U32{ceil(a.X), ceil(a.Y), ceil(a.Z)}
}

func ceil(f float32) uint32 {
	u := uint32(f)
	if float32(u) < f {
		u++
	}
	return u
}

// ToU32 truncates every component of a towards zero.
func (a F32) ToU32() U32 {
	return U32{uint32(a.X), uint32(a.Y), uint32(a.Z)}
}

// ToJSON converts the vector into the 3-element array form used by the
// manifest schema.
func (a F32) ToJSON() [3]float64 {
	return [3]float64{float64(a.X), float64(a.Y), float64(a.Z)}
}

// String implements fmt.Stringer.
func (a F32) String() string {
	return fmt.Sprintf("[%g %g %g]", a.X, a.Y, a.Z)
}

// FromSlice builds a U32 vector from a 3-element numeric slice, as decoded
// from a manifest JSON array.
func FromSlice(v []float64) (U32, error) {
	if len(v) != 3 {
		return U32{}, fmt.Errorf("expected 3 components, got %d", len(v))
	}
	return U32{uint32(v[0]), uint32(v[1]), uint32(v[2])}, nil
}

// FromSliceF32 builds an F32 vector from a 3-element numeric slice.
func FromSliceF32(v []float64) (F32, error) {
	if len(v) != 3 {
		return F32{}, fmt.Errorf("expected 3 components, got %d", len(v))
	}
	return F32{float32(v[0]), float32(v[1]), float32(v[2])}, nil
}
