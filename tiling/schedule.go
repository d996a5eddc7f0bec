// Package tiling - Viewport grid scheduling over the sphere.
package tiling

import (
	"fmt"
)

// pitchEpsilon admits the boundary pitch value into the schedule.
const pitchEpsilon = 1e-6

// ViewportSpec describes one scheduled viewport tile. Immutable once built.
type ViewportSpec struct {
	// Yaw is the camera heading in degrees, [0,360).
	Yaw float64
	// Pitch is the camera elevation in degrees, [-90,90].
	Pitch float64
	// FOV is the horizontal field of view in degrees, (0,180).
	FOV float64
	// Size is the square output dimension in pixels.
	Size int
}

// Schedule enumerates the (yaw, pitch, fov) grid covering the sphere for the
// requested fields of view.
//
// For each fov the angular step is fov*(1-overlap); a non-positive step
// falls back to the fov itself so enumeration always terminates, and the
// stride is floored at one degree. Yaw values run from 0 up to but excluding
// 360; pitch values run from pitchMin to pitchMax inclusive, with a small
// epsilon admitting the boundary value.
//
// Arguments:
//   - fovs: Fields of view in degrees; every value must be positive.
//   - overlap: Fraction of each tile shared with its neighbor, [0,1).
//   - pitchMin, pitchMax: Pitch range in degrees.
//   - size: Square output dimension for every tile.
//
// Returns:
//   - []ViewportSpec: The ordered tile sequence (fov outer, pitch, then yaw).
//   - error: When a fov is non-positive or the schedule comes out empty.
func Schedule(fovs []float64, overlap, pitchMin, pitchMax float64, size int) ([]ViewportSpec, error) {
	if len(fovs) == 0 {
		return nil, fmt.Errorf("tiling: no fields of view requested")
	}

	var specs []ViewportSpec
	for _, fov := range fovs {
		if fov <= 0 {
			return nil, fmt.Errorf("tiling: non-positive fov %v", fov)
		}
		step := fov * (1 - overlap)
		if step <= 0 {
			step = fov
		}
		stride := step
		if stride < 1 {
			stride = 1
		}
		for pitch := pitchMin; pitch <= pitchMax+pitchEpsilon; pitch += stride {
			for yaw := 0.0; yaw < 360; yaw += stride {
				specs = append(specs, ViewportSpec{
					Yaw:   yaw,
					Pitch: pitch,
					FOV:   fov,
					Size:  size,
				})
			}
		}
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("tiling: empty schedule for pitch range [%v,%v]", pitchMin, pitchMax)
	}
	return specs, nil
}