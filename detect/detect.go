// Package detect - Object detector contract and backends.
//
// The pipeline treats the detector as an opaque capability: it hands over a
// viewport patch and receives boxes in that patch's pixel space. Every
// backend must populate box, class and score together; entries missing any
// of them are dropped at the boundary so downstream code never probes for
// optional fields.
package detect

import (
	"context"
	"image"
	"sort"

	"github.com/nvr-ai/go-pano/images"
)

// Detection is a single detected object in viewport pixel space.
type Detection struct {
	// Box is the axis-aligned bounding box.
	Box images.Rect
	// Class is the predicted class index.
	Class int
	// Score is the confidence in [0,1].
	Score float32
}

// Detector runs object detection on a single image patch.
//
// Implementations are stateless per call and safe for concurrent use; they
// may serialize access to accelerated hardware internally.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}

// FilterScore drops detections below the threshold, in place.
func FilterScore(dets []Detection, threshold float32) []Detection {
	out := dets[:0]
	for _, d := range dets {
		if d.Score >= threshold {
			out = append(out, d)
		}
	}
	return out
}

// applyNMS removes overlapping same-class detections, keeping the highest
// scoring box of each overlapping group. The input is sorted in place by
// descending score.
func applyNMS(dets []Detection, iouThreshold float32) []Detection {
	if len(dets) == 0 {
		return dets
	}
	sort.Slice(dets, func(i, j int) bool {
		return dets[i].Score > dets[j].Score
	})

	used := make([]bool, len(dets))
	kept := make([]Detection, 0, len(dets))
	for i := 0; i < len(dets); i++ {
		if used[i] {
			continue
		}
		kept = append(kept, dets[i])
		used[i] = true
		for j := i + 1; j < len(dets); j++ {
			if used[j] || dets[j].Class != dets[i].Class {
				continue
			}
			if images.CalculateIoU(dets[i].Box, dets[j].Box) >= float64(iouThreshold) {
				used[j] = true
			}
		}
	}
	return kept
}
