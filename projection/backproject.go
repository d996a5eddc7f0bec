package projection

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-pano/images"
)

// borderSamples is the number of points sampled along each edge of a box
// when mapping it back onto the panorama. Only the border is sampled; the
// projected region's boundary is taken as representative of its extent.
const borderSamples = 40

// BackProject maps an axis-aligned box detected in viewport pixel space back
// into equirectangular pixel space.
//
// The box border is sampled through the viewport's map, yielding boundary
// coordinates in source space. Because longitude wraps at seamW, each
// sample's x is normalized to a fractional cycle and two candidate phase
// shifts {0, 0.5} are evaluated; the shift minimizing the (max-min) span of
// the shifted values approximates the minimal enclosing arc across the seam
// cut. The x bounds are recomputed under the winning shift, y bounds are the
// raw min/max, and both axes are clamped into the canvas.
//
// The result is always a single box. A detection whose true footprint spans
// more than half the globe in longitude would legitimately split into two
// disjoint regions; it is approximated as one possibly oversized box instead.
//
// Arguments:
//   - box: The detection box in viewport pixel space.
//   - m: The sampling map of the viewport the box was detected in.
//   - seamW, seamH: Equirectangular canvas dimensions in pixels.
//
// Returns:
//   - images.Rect: The box in equirect pixel space.
//   - bool: False when the input box is degenerate.
func BackProject(box images.Rect, m *SamplingMap, seamW, seamH int) (images.Rect, bool) {
	x1 := clampi(int(math32.Round(box.X1)), 0, m.Size-1)
	x2 := clampi(int(math32.Round(box.X2)), 0, m.Size-1)
	y1 := clampi(int(math32.Round(box.Y1)), 0, m.Size-1)
	y2 := clampi(int(math32.Round(box.Y2)), 0, m.Size-1)
	if x2 <= x1 || y2 <= y1 {
		return images.Rect{}, false
	}

	xs := make([]float32, 0, 4*borderSamples)
	ys := make([]float32, 0, 4*borderSamples)
	for i := 0; i < borderSamples; i++ {
		t := float32(i) / float32(borderSamples-1)

		// Top and bottom edges.
		sx := int(math32.Round(float32(x1) + t*float32(x2-x1)))
		u, v := m.At(sx, y1)
		xs, ys = append(xs, u), append(ys, v)
		u, v = m.At(sx, y2)
		xs, ys = append(xs, u), append(ys, v)

		// Left and right edges.
		sy := int(math32.Round(float32(y1) + t*float32(y2-y1)))
		u, v = m.At(x1, sy)
		xs, ys = append(xs, u), append(ys, v)
		u, v = m.At(x2, sy)
		xs, ys = append(xs, u), append(ys, v)
	}

	// Work in angle space [0,1) of the canvas width and pick the phase shift
	// that minimizes the wrap span.
	fw := float32(seamW)
	bestSpan := float32(2)
	var bestShift float32
	for _, shift := range []float32{0, 0.5} {
		lo, hi := float32(2), float32(-1)
		for _, x := range xs {
			a := frac(x/fw + shift)
			if a < lo {
				lo = a
			}
			if a > hi {
				hi = a
			}
		}
		if span := hi - lo; span < bestSpan {
			bestSpan = span
			bestShift = shift
		}
	}

	xMin, xMax := float32(2)*fw, float32(-1)
	for _, x := range xs {
		adj := frac(x/fw+bestShift) * fw
		if adj < xMin {
			xMin = adj
		}
		if adj > xMax {
			xMax = adj
		}
	}
	yMin, yMax := ys[0], ys[0]
	for _, y := range ys[1:] {
		if y < yMin {
			yMin = y
		}
		if y > yMax {
			yMax = y
		}
	}

	out := images.Rect{X1: xMin, Y1: yMin, X2: xMax, Y2: yMax}.Clamp(seamW, seamH)
	return out, true
}

func frac(v float32) float32 {
	return v - math32.Floor(v)
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
