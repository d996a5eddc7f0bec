package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidColumns(w, h int, left, right color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, left)
			} else {
				img.SetRGBA(x, y, right)
			}
		}
	}
	return img
}

func TestBilinearWrapsAtSeam(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	e := NewEquirect(solidColumns(100, 50, red, blue))

	// Sampling halfway between the last column (blue) and the wrapped first
	// column (red) must blend both sides of the seam.
	c := e.Bilinear(99.5, 25)
	assert.InDelta(t, 127, int(c.R), 2, "seam sample should blend red")
	assert.InDelta(t, 127, int(c.B), 2, "seam sample should blend blue")

	// A negative coordinate wraps to the right edge.
	c = e.Bilinear(-0.25, 25)
	assert.Greater(t, int(c.R), int(c.B))
}

func TestBilinearClampsAtPoles(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	e := NewEquirect(solidColumns(10, 10, red, red))

	top := e.Bilinear(2, -5)
	bottom := e.Bilinear(2, 100)
	assert.Equal(t, uint8(255), top.R)
	assert.Equal(t, uint8(255), bottom.R)
}

func TestBilinearExactPixel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(2, 1, color.RGBA{10, 20, 30, 255})
	e := NewEquirect(img)

	c := e.Bilinear(2, 1)
	require.Equal(t, uint8(10), c.R)
	require.Equal(t, uint8(20), c.G)
	require.Equal(t, uint8(30), c.B)
}

func TestAnnotateDrawsBoxes(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	anns := []Annotation{
		{Box: Rect{20, 20, 80, 60}, Class: 2, Score: 0.9},
	}
	out := Annotate(src, anns, func(int) string { return "car" })
	require.NotNil(t, out)

	// Top edge of the box must carry the first palette color.
	c := out.RGBAAt(50, 20)
	assert.Equal(t, palette[0], c)
	// The source must be untouched.
	assert.Equal(t, color.RGBA{}, src.RGBAAt(50, 20))
}
