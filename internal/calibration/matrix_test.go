package calibration

import (
	"testing"

	"decouple-tool/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAssignTiesGoToFirst(t *testing.T) {
	vecs := [3]ChannelVector{{10, 10, 1}, {10, 5, 9}, {2, 10, 9}}
	assert.Equal(t, [3]int{0, 0, 1}, Assign(vecs))
}

func TestObservationColumns(t *testing.T) {
	vecs := [3]ChannelVector{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	obs := Observation(vecs, [3]int{2, 0, 1})
	assert.Equal(t, []float64{7, 8, 9}, mat.Col(nil, 0, obs))
	assert.Equal(t, []float64{1, 2, 3}, mat.Col(nil, 1, obs))
	assert.Equal(t, []float64{4, 5, 6}, mat.Col(nil, 2, obs))
}

func TestDeriveRowsSumToOne(t *testing.T) {
	obs := mat.NewDense(3, 3, []float64{
		900, 80, 30,
		120, 700, 60,
		40, 90, 650,
	})
	m, err := Derive(obs)
	require.NoError(t, err)
	for _, s := range m.RowSums() {
		assert.InDelta(t, 1.0, s, 1e-9)
	}
}

func TestDeriveSingular(t *testing.T) {
	obs := mat.NewDense(3, 3, []float64{
		500, 500, 500,
		50, 50, 50,
		50, 50, 50,
	})
	_, err := Derive(obs)
	var sErr *apperr.SingularMatrixError
	assert.ErrorAs(t, err, &sErr)
}

func TestDeriveZeroRowSum(t *testing.T) {
	// Inverse of this matrix has a first row summing to zero.
	obs := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		0, 1, 0,
		0, 0, 1,
	})
	var inv mat.Dense
	require.NoError(t, inv.Inverse(obs))
	require.InDelta(t, 0, mat.Sum(inv.RowView(0)), 1e-12)

	_, err := Derive(obs)
	var sErr *apperr.SingularMatrixError
	require.ErrorAs(t, err, &sErr)
	assert.Contains(t, sErr.Error(), "row R")
}

func TestMatrixApply(t *testing.T) {
	assert.Equal(t, [3]float64{1, 2, 3}, Identity().Apply([3]float64{1, 2, 3}))

	m := Matrix{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}}
	assert.Equal(t, [3]float64{2, 3, 1}, m.Apply([3]float64{1, 2, 3}))
}

func TestNewMatrixRejectsShape(t *testing.T) {
	_, err := NewMatrix(mat.NewDense(2, 3, nil))
	assert.Error(t, err)

	m, err := NewMatrix(Identity().Dense())
	require.NoError(t, err)
	assert.Equal(t, Identity(), m)
}
