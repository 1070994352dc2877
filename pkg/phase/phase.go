// Package phase provides fixed-size three-phase vector and matrix types
// shared by the network model and the power-flow solver.
//
// Distribution feeders are modeled per phase (a, b, c), so every quantity
// is either a 3-vector (per-phase values) or a 3x3 matrix (self terms on
// the diagonal, mutual terms off it). Reduced-phase equipment is
// represented with zero rows/columns at the missing phases, never with
// smaller matrices.
package phase

import (
	"encoding/json"
	"fmt"
	"math"
	"math/cmplx"
)

// Vector3 holds one value per phase (a, b, c).
type Vector3 [3]float64

// Matrix3 is a real 3x3 matrix in row-major phase order.
type Matrix3 [3][3]float64

// Complex3 holds one complex value per phase. It is used for aggregated
// complex power (P + jQ) during the backward sweep.
type Complex3 [3]complex128

// Add returns the elementwise sum v + w.
func (v Vector3) Add(w Vector3) Vector3 {
	return Vector3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Square returns the elementwise square of v.
func (v Vector3) Square() Vector3 {
	return Vector3{v[0] * v[0], v[1] * v[1], v[2] * v[2]}
}

// SqrtClamped clamps each component to zero and returns its square root.
// Small negative squared magnitudes are an expected linearization
// artifact, so they are recovered here rather than surfaced as errors.
func (v Vector3) SqrtClamped() Vector3 {
	var out Vector3
	for i, y := range v {
		if y < 0 {
			y = 0
		}
		out[i] = math.Sqrt(y)
	}
	return out
}

// IsZero reports whether every component of v is exactly zero.
func (v Vector3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// Complex combines per-phase active and reactive vectors into p + jq.
func Complex(p, q Vector3) Complex3 {
	return Complex3{
		complex(p[0], q[0]),
		complex(p[1], q[1]),
		complex(p[2], q[2]),
	}
}

// Add returns the elementwise sum s + t.
func (s Complex3) Add(t Complex3) Complex3 {
	return Complex3{s[0] + t[0], s[1] + t[1], s[2] + t[2]}
}

// Real returns the per-phase real parts of s.
func (s Complex3) Real() Vector3 {
	return Vector3{real(s[0]), real(s[1]), real(s[2])}
}

// Imag returns the per-phase imaginary parts of s.
func (s Complex3) Imag() Vector3 {
	return Vector3{imag(s[0]), imag(s[1]), imag(s[2])}
}

// IsNaN reports whether any component of s is NaN.
func (s Complex3) IsNaN() bool {
	return cmplx.IsNaN(s[0]) || cmplx.IsNaN(s[1]) || cmplx.IsNaN(s[2])
}

// MulVec returns the matrix-vector product m·v.
func (m Matrix3) MulVec(v Vector3) Vector3 {
	var out Vector3
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

// Scale returns m with every entry multiplied by k.
func (m Matrix3) Scale(k float64) Matrix3 {
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][j] * k
		}
	}
	return out
}

// UnmarshalJSON decodes a nested 3x3 array, rejecting any other shape.
// A wrongly sized matrix is a data error that must fail fast rather than
// be truncated or zero-padded.
func (m *Matrix3) UnmarshalJSON(data []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != 3 {
		return fmt.Errorf("matrix must have 3 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 3 {
			return fmt.Errorf("matrix row %d must have 3 columns, got %d", i, len(row))
		}
		copy(m[i][:], row)
	}
	return nil
}

// UnmarshalJSON decodes a 3-element array, rejecting any other length.
func (v *Vector3) UnmarshalJSON(data []byte) error {
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	if len(vals) != 3 {
		return fmt.Errorf("vector must have 3 elements, got %d", len(vals))
	}
	copy(v[:], vals)
	return nil
}
