package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pano/images"
)

// seamMap builds a tiny synthetic map whose left half samples just right of
// the seam (x=10) and whose right half samples just left of it (x=3590).
func seamMap(size int) *SamplingMap {
	m := &SamplingMap{
		Size: size,
		U:    make([]float32, size*size),
		V:    make([]float32, size*size),
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := y*size + x
			if x < size/2 {
				m.U[i] = 10
			} else {
				m.U[i] = 3590
			}
			m.V[i] = 100 + float32(y)
		}
	}
	return m
}

func TestBackProjectSeamSpan(t *testing.T) {
	// Boundary samples at x in {10, 3590} on a 3600-wide canvas straddle the
	// seam. The half-cycle phase shift must win, giving an adjusted span of
	// about 20 pixels rather than the naive 3580.
	m := seamMap(8)
	got, ok := BackProject(images.Rect{X1: 0, Y1: 0, X2: 7, Y2: 7}, m, 3600, 1800)
	require.True(t, ok)

	assert.InDelta(t, 20, float64(got.Width()), 0.5)
	assert.InDelta(t, 100, float64(got.Y1), 0.5)
	assert.InDelta(t, 107, float64(got.Y2), 0.5)
}

func TestBackProjectAwayFromSeam(t *testing.T) {
	// Samples confined to one hemisphere keep the zero shift, so the raw
	// bounds come back unchanged.
	m := &SamplingMap{Size: 4, U: make([]float32, 16), V: make([]float32, 16)}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			i := y*4 + x
			m.U[i] = 1000 + float32(x)*10
			m.V[i] = 500 + float32(y)*10
		}
	}
	got, ok := BackProject(images.Rect{X1: 0, Y1: 0, X2: 3, Y2: 3}, m, 3600, 1800)
	require.True(t, ok)
	assert.InDelta(t, 1000, float64(got.X1), 0.5)
	assert.InDelta(t, 1030, float64(got.X2), 0.5)
	assert.InDelta(t, 500, float64(got.Y1), 0.5)
	assert.InDelta(t, 530, float64(got.Y2), 0.5)
}

func TestBackProjectDegenerateBox(t *testing.T) {
	m := seamMap(8)
	tests := []struct {
		name string
		box  images.Rect
	}{
		{"Zero width", images.Rect{X1: 3, Y1: 0, X2: 3, Y2: 5}},
		{"Zero height", images.Rect{X1: 0, Y1: 4, X2: 5, Y2: 4}},
		{"Inverted", images.Rect{X1: 6, Y1: 6, X2: 1, Y2: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := BackProject(tt.box, m, 3600, 1800)
			assert.False(t, ok)
		})
	}
}
