package images

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"
)

// Equirect is a full-sphere panorama on a 2:1 equirectangular canvas.
//
// Longitude maps linearly to x and latitude to y. Sampling wraps around the
// longitude seam at the left/right edge and clamps vertically at the poles.
type Equirect struct {
	Width  int
	Height int
	pix    *image.RGBA
}

// NewEquirect wraps a decoded image as an equirectangular canvas.
//
// The source is copied into RGBA form so sampling can index the pixel
// buffer directly.
func NewEquirect(src image.Image) *Equirect {
	b := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}
	return &Equirect{
		Width:  b.Dx(),
		Height: b.Dy(),
		pix:    rgba,
	}
}

// Image returns the underlying RGBA canvas.
func (e *Equirect) Image() *image.RGBA {
	return e.pix
}

// Bilinear samples the canvas at a continuous source coordinate using
// bilinear interpolation. The x axis wraps across the longitude seam; the
// y axis clamps at the poles.
func (e *Equirect) Bilinear(u, v float32) color.RGBA {
	x0f := math32.Floor(u)
	y0f := math32.Floor(v)
	fx := u - x0f
	fy := v - y0f

	x0 := wrapX(int(x0f), e.Width)
	x1 := wrapX(int(x0f)+1, e.Width)
	y0 := clampY(int(y0f), e.Height)
	y1 := clampY(int(y0f)+1, e.Height)

	c00 := e.at(x0, y0)
	c10 := e.at(x1, y0)
	c01 := e.at(x0, y1)
	c11 := e.at(x1, y1)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	return color.RGBA{
		R: lerp4(c00.R, c10.R, c01.R, c11.R, w00, w10, w01, w11),
		G: lerp4(c00.G, c10.G, c01.G, c11.G, w00, w10, w01, w11),
		B: lerp4(c00.B, c10.B, c01.B, c11.B, w00, w10, w01, w11),
		A: 255,
	}
}

func (e *Equirect) at(x, y int) color.RGBA {
	i := e.pix.PixOffset(x, y)
	return color.RGBA{
		R: e.pix.Pix[i],
		G: e.pix.Pix[i+1],
		B: e.pix.Pix[i+2],
		A: e.pix.Pix[i+3],
	}
}

func lerp4(a, b, c, d uint8, wa, wb, wc, wd float32) uint8 {
	v := float32(a)*wa + float32(b)*wb + float32(c)*wc + float32(d)*wd
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func wrapX(x, w int) int {
	x %= w
	if x < 0 {
		x += w
	}
	return x
}

func clampY(y, h int) int {
	if y < 0 {
		return 0
	}
	if y >= h {
		return h - 1
	}
	return y
}
