package calibration

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"decouple-tool/internal/apperr"
	"decouple-tool/pkg/colorutil"

	"gonum.org/v1/gonum/mat"
)

// SingularityThreshold is the largest 2-norm condition number accepted for
// the observation matrix.
const SingularityThreshold = 1e15

// rowSumEpsilon is the relative size below which a row sum counts as zero.
const rowSumEpsilon = 1e-12

// Matrix is a row-normalized 3×3 correction matrix. Output channel c is
// the dot product of row c with the input pixel.
type Matrix [3][3]float64

// Identity returns the matrix that leaves every pixel unchanged.
func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// NewMatrix copies a 3×3 gonum matrix.
func NewMatrix(m mat.Matrix) (Matrix, error) {
	r, c := m.Dims()
	if r != 3 || c != 3 {
		return Matrix{}, fmt.Errorf("correction matrix must be 3x3, got %dx%d", r, c)
	}
	var out Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out, nil
}

// Dense returns the matrix as a gonum Dense.
func (m Matrix) Dense() *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		d.SetRow(i, m[i][:])
	}
	return d
}

// RowSums returns the sum of each row.
func (m Matrix) RowSums() [3]float64 {
	var s [3]float64
	for i := range m {
		s[i] = m[i][0] + m[i][1] + m[i][2]
	}
	return s
}

// Apply returns the unmixed channel values for one pixel.
func (m Matrix) Apply(in [3]float64) [3]float64 {
	var out [3]float64
	for c := range m {
		out[c] = m[c][0]*in[0] + m[c][1]*in[1] + m[c][2]*in[2]
	}
	return out
}

func (m Matrix) String() string {
	rows := make([]string, 3)
	for i := range m {
		rows[i] = fmt.Sprintf("[% .6f % .6f % .6f]", m[i][0], m[i][1], m[i][2])
	}
	return strings.Join(rows, "\n")
}

// Assign picks, for each channel, the index of the vector with the largest
// value in that channel. Ties go to the lowest index. The indices need not
// be distinct.
func Assign(vecs [3]ChannelVector) [3]int {
	var roles [3]int
	for c := 0; c < 3; c++ {
		best := 0
		for i := 1; i < len(vecs); i++ {
			if vecs[i][c] > vecs[best][c] {
				best = i
			}
		}
		roles[c] = best
	}
	return roles
}

// Observation stacks the chosen vectors as columns: column 0 is the
// R-dominant image, column 1 G and column 2 B.
func Observation(vecs [3]ChannelVector, roles [3]int) *mat.Dense {
	obs := mat.NewDense(3, 3, nil)
	for col, idx := range roles {
		obs.SetCol(col, vecs[idx][:])
	}
	return obs
}

// Derive inverts obs and scales each row of the inverse to sum to 1.
func Derive(obs mat.Matrix) (Matrix, error) {
	cond := mat.Cond(obs, 2)
	if math.IsNaN(cond) || cond > SingularityThreshold {
		return Matrix{}, &apperr.SingularMatrixError{Cond: cond}
	}

	var inv mat.Dense
	if err := inv.Inverse(obs); err != nil {
		var c mat.Condition
		if !errors.As(err, &c) || math.IsInf(float64(c), 1) {
			return Matrix{}, &apperr.SingularMatrixError{Cond: cond, Reason: err.Error()}
		}
	}

	m, err := NewMatrix(&inv)
	if err != nil {
		return Matrix{}, err
	}
	sums := m.RowSums()
	for i := range m {
		s := sums[i]
		scale := math.Abs(m[i][0]) + math.Abs(m[i][1]) + math.Abs(m[i][2])
		if math.Abs(s) <= rowSumEpsilon*scale || math.IsNaN(s) || math.IsInf(s, 0) {
			return Matrix{}, &apperr.SingularMatrixError{
				Cond:   cond,
				Reason: fmt.Sprintf("row %s of the inverse sums to %g", colorutil.ChannelNames[i], s),
			}
		}
		for j := range m[i] {
			m[i][j] /= s
		}
	}
	return m, nil
}
