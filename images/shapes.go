// Package images - Equirectangular canvas and bounding-box utilities.
package images

import "math"

// iouEpsilon floors the IoU denominator so zero-area boxes never divide by zero.
const iouEpsilon = 1e-6

// Rect is a lightweight axis-aligned bounding box in pixel space.
//
// Coordinates are continuous; a box is degenerate when X2 <= X1 or Y2 <= Y1.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Degenerate reports whether the box has no positive extent on either axis.
func (r Rect) Degenerate() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns the vertical extent of the box.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Center returns the midpoint of the box.
func (r Rect) Center() (float32, float32) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// Clamp restricts the box to [0,w-1]x[0,h-1].
func (r Rect) Clamp(w, h int) Rect {
	return Rect{
		X1: clampf(r.X1, 0, float32(w-1)),
		Y1: clampf(r.Y1, 0, float32(h-1)),
		X2: clampf(r.X2, 0, float32(w-1)),
		Y2: clampf(r.Y2, 0, float32(h-1)),
	}
}

// CalculateIoU computes the Intersection over Union of two boxes.
//
// IoU measures the extent of overlap between two rectangles:
//
//	IoU = Area of Intersection / Area of Union
//
// A value near 1.0 means the boxes are nearly identical, 0.0 means they do
// not overlap at all. Areas use the pixel-inclusive convention
// (x2-x1+1)*(y2-y1+1), and the denominator is floored by a small epsilon so
// a zero-area box yields 0 rather than a division by zero.
//
// The arithmetic runs in float64 and the result stays float64: the epsilon
// keeps the score strictly below 1.0 even for identical boxes, which a
// float32 result would round away at typical box areas.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float64: The IoU score in [0, 1).
func CalculateIoU(r, o Rect) float64 {
	ix1 := math.Max(float64(r.X1), float64(o.X1))
	iy1 := math.Max(float64(r.Y1), float64(o.Y1))
	ix2 := math.Min(float64(r.X2), float64(o.X2))
	iy2 := math.Min(float64(r.Y2), float64(o.Y2))

	interW := ix2 - ix1 + 1
	interH := iy2 - iy1 + 1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH

	areaR := (float64(r.X2) - float64(r.X1) + 1) * (float64(r.Y2) - float64(r.Y1) + 1)
	areaO := (float64(o.X2) - float64(o.X1) + 1) * (float64(o.Y2) - float64(o.Y1) + 1)

	return inter / (areaR + areaO - inter + iouEpsilon)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

