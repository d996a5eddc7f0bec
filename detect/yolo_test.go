package detect

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pano/images"
)

// synthOutput builds a [4+classes, anchors] channel-major buffer with a
// single confident anchor.
func synthOutput(numClasses, anchors, anchor, class int, cx, cy, w, h, score float32) []float32 {
	data := make([]float32, (4+numClasses)*anchors)
	data[0*anchors+anchor] = cx
	data[1*anchors+anchor] = cy
	data[2*anchors+anchor] = w
	data[3*anchors+anchor] = h
	data[(4+class)*anchors+anchor] = score
	return data
}

func TestDecodeYOLO(t *testing.T) {
	const (
		numClasses = 80
		anchors    = 100
		inputSize  = 640
	)
	// A 2x-downscaled patch: boxes must scale back up.
	data := synthOutput(numClasses, anchors, 7, 2, 320, 320, 100, 50, 0.9)

	dets := decodeYOLO(data, numClasses, anchors, inputSize, 1280, 1280, 0.25)
	require.Len(t, dets, 1)

	d := dets[0]
	assert.Equal(t, 2, d.Class)
	assert.InDelta(t, 0.9, float64(d.Score), 0.001)
	assert.InDelta(t, 540, float64(d.Box.X1), 0.5) // (320-50)*2
	assert.InDelta(t, 590, float64(d.Box.Y1), 0.5) // (320-25)*2
	assert.InDelta(t, 740, float64(d.Box.X2), 0.5)
	assert.InDelta(t, 690, float64(d.Box.Y2), 0.5)
}

func TestDecodeYOLOThreshold(t *testing.T) {
	data := synthOutput(80, 100, 0, 1, 100, 100, 10, 10, 0.2)
	dets := decodeYOLO(data, 80, 100, 640, 640, 640, 0.25)
	assert.Empty(t, dets)
}

func TestApplyNMSSuppressesSameClass(t *testing.T) {
	dets := []Detection{
		{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Class: 1, Score: 0.9},
		{Box: images.Rect{X1: 5, Y1: 5, X2: 105, Y2: 105}, Class: 1, Score: 0.8},
		{Box: images.Rect{X1: 5, Y1: 5, X2: 105, Y2: 105}, Class: 2, Score: 0.7},
	}
	kept := applyNMS(dets, 0.5)
	require.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Score)
	assert.Equal(t, 2, kept[1].Class, "different classes are never suppressed")
}

func TestPrepareInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.White)
		}
	}
	data := make([]float32, 3*4*4)
	require.NoError(t, prepareInput(img, data, 4))
	for _, v := range data {
		assert.InDelta(t, 1.0, float64(v), 0.001)
	}

	short := make([]float32, 10)
	assert.Error(t, prepareInput(img, short, 4))
}

func TestFilterScore(t *testing.T) {
	dets := []Detection{
		{Score: 0.9},
		{Score: 0.1},
		{Score: 0.5},
	}
	kept := FilterScore(dets, 0.5)
	require.Len(t, kept, 2)
	for _, d := range kept {
		assert.GreaterOrEqual(t, d.Score, float32(0.5))
	}
}
