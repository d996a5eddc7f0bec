package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pano/images"
)

const (
	testW = 3600
	testH = 1800
)

func TestSamplingMapCenterRay(t *testing.T) {
	// An odd size puts a pixel exactly on the optical axis.
	m := BuildSamplingMap(testW, testH, 0, 0, 90, 321)
	u, v := m.At(160, 160)
	assert.InDelta(t, float64(testW)/2, float64(u), 0.5, "yaw 0 looks at the canvas center column")
	assert.InDelta(t, float64(testH)/2, float64(v), 0.5, "pitch 0 looks at the equator")
}

func TestSamplingMapYawRotation(t *testing.T) {
	m := BuildSamplingMap(testW, testH, 90, 0, 90, 321)
	u, v := m.At(160, 160)
	assert.InDelta(t, 0.75*float64(testW), float64(u), 0.5)
	assert.InDelta(t, float64(testH)/2, float64(v), 0.5)
}

func TestSamplingMapPitchRotation(t *testing.T) {
	// With view-space y pointing down, a positive pitch moves the optical
	// axis toward the lower half of the canvas.
	m := BuildSamplingMap(testW, testH, 0, 45, 90, 321)
	_, v := m.At(160, 160)
	assert.InDelta(t, 0.75*float64(testH), float64(v), 0.5)
}

// forwardProject returns the viewport-space bounding box of the equirect box
// by scanning the sampling map, mimicking what a detector would report for a
// region that fills exactly that footprint.
func forwardProject(m *SamplingMap, box images.Rect) (images.Rect, bool) {
	minX, minY := m.Size, m.Size
	maxX, maxY := -1, -1
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			u, v := m.At(x, y)
			if u >= box.X1 && u <= box.X2 && v >= box.Y1 && v <= box.Y2 {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return images.Rect{}, false
	}
	return images.Rect{
		X1: float32(minX), Y1: float32(minY),
		X2: float32(maxX), Y2: float32(maxY),
	}, true
}

func TestProjectBackProjectRoundTrip(t *testing.T) {
	// A box fully inside one hemisphere, away from the seam, must survive
	// the forward/back round trip within a few pixels.
	box := images.Rect{X1: 1750, Y1: 850, X2: 1850, Y2: 950}
	m := BuildSamplingMap(testW, testH, 0, 0, 90, 321)

	vp, found := forwardProject(m, box)
	require.True(t, found, "box should be visible in the viewport")

	got, ok := BackProject(vp, m, testW, testH)
	require.True(t, ok)

	assert.InDelta(t, float64(box.X1), float64(got.X1), 8)
	assert.InDelta(t, float64(box.Y1), float64(got.Y1), 8)
	assert.InDelta(t, float64(box.X2), float64(got.X2), 8)
	assert.InDelta(t, float64(box.Y2), float64(got.Y2), 8)
}
