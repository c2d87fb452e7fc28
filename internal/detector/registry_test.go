package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantarb/arbot/internal/config"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	logger := testLogger()

	r.Register("cross_exchange", NewCrossExchange(config.CrossExchangeConfig{}, logger))
	r.Register("triangular", NewTriangular(config.TriangularConfig{}, logger))

	d, err := r.Get("cross_exchange")
	require.NoError(t, err)
	assert.Equal(t, "cross_exchange", d.Name())

	_, err = r.Get("nope")
	require.Error(t, err)

	assert.Equal(t, []string{"cross_exchange", "triangular"}, r.List())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "cross_exchange", all[0].Name(), "registration order preserved")
	assert.Equal(t, "triangular", all[1].Name())
}

func TestWindowEviction(t *testing.T) {
	w := newWindow(3)
	for _, v := range []float64{1, 2, 3, 4} {
		w.Push(v)
	}
	assert.True(t, w.Full())
	assert.Equal(t, []float64{2, 3, 4}, w.Values())
	assert.Equal(t, 4.0, w.Last())
}

func TestStatsHelpers(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}

	assert.InDelta(t, 3.0, mean(xs), 1e-9)
	assert.InDelta(t, 1.0, pearson(xs, ys), 1e-9)
	assert.InDelta(t, 2.0, olsSlope(ys, xs), 1e-9)
	assert.InDelta(t, 0.0, pearson(xs, []float64{7, 7, 7, 7, 7}), 1e-9, "degenerate series")
	assert.InDelta(t, 1.4142135, stddev(xs), 1e-6)
}
