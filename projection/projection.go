// Package projection - Pinhole viewport projection of equirectangular panoramas.
//
// A viewport is a rectilinear (pinhole) projection of a bounded angular
// window of the sphere, parameterized by yaw, pitch and field of view. The
// sampling map built here is consumed both by the renderer, to extract the
// viewport patch, and by the back-projector, to map detections from viewport
// space back onto the panorama.
package projection

import (
	"image"
	"math"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-pano/images"
)

// SamplingMap holds, for every pixel of a square viewport, the continuous
// (u,v) source coordinate into the equirectangular canvas.
//
// Maps are built fresh per viewport and discarded afterwards; they are never
// cached across tiles.
type SamplingMap struct {
	// Size is the square output dimension in pixels.
	Size int
	// U and V are row-major Size*Size grids of source coordinates.
	U []float32
	V []float32
}

// At returns the source coordinate for viewport pixel (x, y).
func (m *SamplingMap) At(x, y int) (float32, float32) {
	i := y*m.Size + x
	return m.U[i], m.V[i]
}

// BuildSamplingMap constructs the pinhole sampling map for one viewport.
//
// Rays are built on a normalized image plane scaled by tan(fov/2), rotated
// about the camera-local horizontal axis by pitch and then about the vertical
// axis by yaw (composed as Ry*Rx), and converted to spherical angles with
//
//	lon = atan2(x, z)
//	lat = atan2(y, sqrt(x*x+z*z))
//
// The atan2 form of the latitude stays well-defined for rays far from the
// optical axis, which matters at wide fields of view.
//
// Arguments:
//   - w, h: Equirectangular canvas dimensions in pixels.
//   - yaw: Camera heading in degrees, [0,360).
//   - pitch: Camera elevation in degrees, [-90,90].
//   - fov: Horizontal field of view in degrees, (0,180).
//   - size: Square output dimension in pixels; must be at least 2.
//
// Returns:
//   - *SamplingMap: Per-pixel source coordinates into the canvas.
func BuildSamplingMap(w, h int, yaw, pitch, fov float64, size int) *SamplingMap {
	m := &SamplingMap{
		Size: size,
		U:    make([]float32, size*size),
		V:    make([]float32, size*size),
	}

	s := math32.Tan(float32(fov*math.Pi/180) / 2)

	yawRad := float32(yaw * math.Pi / 180)
	pitchRad := float32(pitch * math.Pi / 180)
	cosY, sinY := math32.Cos(yawRad), math32.Sin(yawRad)
	cosX, sinX := math32.Cos(pitchRad), math32.Sin(pitchRad)

	fw := float32(w)
	fh := float32(h)
	step := 2 / float32(size-1)

	i := 0
	for row := 0; row < size; row++ {
		// Image y grows downward; flip so +y points down in view space.
		py := -(-1 + float32(row)*step) * s
		for col := 0; col < size; col++ {
			px := (-1 + float32(col)*step) * s
			pz := float32(1)

			norm := math32.Sqrt(px*px + py*py + pz*pz)
			x := px / norm
			y := py / norm
			z := pz / norm

			// Rx(pitch) then Ry(yaw).
			ry := cosX*y - sinX*z
			rz := sinX*y + cosX*z
			rx := cosY*x + sinY*rz
			rz = -sinY*x + cosY*rz

			lon := math32.Atan2(rx, rz)
			lat := math32.Atan2(ry, math32.Sqrt(rx*rx+rz*rz))

			m.U[i] = (lon/(2*math32.Pi) + 0.5) * fw
			m.V[i] = (0.5 - lat/math32.Pi) * fh
			i++
		}
	}
	return m
}

// Render extracts the viewport patch from the panorama by sampling through
// the map with bilinear interpolation.
func (m *SamplingMap) Render(equi *images.Equirect) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.Size, m.Size))
	i := 0
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			out.SetRGBA(x, y, equi.Bilinear(m.U[i], m.V[i]))
			i++
		}
	}
	return out
}
