// Package merge - Cross-viewport detection fusion and suppression.
//
// Overlapping viewports see the same physical object several times. Weighted
// box fusion first collapses those near-duplicates by score-weighted
// averaging, reducing localization noise; classwise non-max suppression then
// removes any residual duplicates fusion did not fully merge. Neither phase
// ever crosses a class boundary.
package merge

import (
	"sort"

	"github.com/nvr-ai/go-pano/detect"
	"github.com/nvr-ai/go-pano/images"
)

// DefaultFusionIoU is the weighted box fusion threshold when no NMS
// threshold is supplied to derive one from.
const DefaultFusionIoU = 0.55

// FusionThreshold derives the fusion IoU from the caller's NMS threshold,
// clamped into [0.3, 0.9].
func FusionThreshold(nmsIoU float32) float32 {
	if nmsIoU < 0.3 {
		return 0.3
	}
	if nmsIoU > 0.9 {
		return 0.9
	}
	return nmsIoU
}

// Merge fuses then suppresses the detections accumulated across all
// viewports of one image. Degenerate boxes are dropped before fusion.
func Merge(dets []detect.Detection, fusionIoU, nmsIoU float32) []detect.Detection {
	valid := make([]detect.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Box.Degenerate() {
			continue
		}
		valid = append(valid, d)
	}
	return Suppress(Fuse(valid, fusionIoU), nmsIoU)
}

// Fuse performs weighted box fusion per class.
//
// Class members are ordered by descending score. The next unclustered box
// seeds a cluster and absorbs every later unclustered box of the same class
// whose IoU with the seed meets the threshold. A singleton cluster passes
// through unchanged; a multi-member cluster emits one box whose coordinates
// are the score-weighted average of its members and whose score is the
// maximum member score.
func Fuse(dets []detect.Detection, iouThreshold float32) []detect.Detection {
	if len(dets) == 0 {
		return nil
	}

	byClass := map[int][]detect.Detection{}
	for _, d := range dets {
		byClass[d.Class] = append(byClass[d.Class], d)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	fused := make([]detect.Detection, 0, len(dets))
	for _, class := range classes {
		group := byClass[class]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Score > group[j].Score
		})

		used := make([]bool, len(group))
		for i, seed := range group {
			if used[i] {
				continue
			}
			used[i] = true
			cluster := []detect.Detection{seed}
			for j := i + 1; j < len(group); j++ {
				if used[j] {
					continue
				}
				if images.CalculateIoU(seed.Box, group[j].Box) >= float64(iouThreshold) {
					cluster = append(cluster, group[j])
					used[j] = true
				}
			}
			fused = append(fused, fuseCluster(cluster))
		}
	}
	return fused
}

func fuseCluster(cluster []detect.Detection) detect.Detection {
	if len(cluster) == 1 {
		return cluster[0]
	}

	var wsum, x1, y1, x2, y2, best float32
	for _, d := range cluster {
		wsum += d.Score
		x1 += d.Box.X1 * d.Score
		y1 += d.Box.Y1 * d.Score
		x2 += d.Box.X2 * d.Score
		y2 += d.Box.Y2 * d.Score
		if d.Score > best {
			best = d.Score
		}
	}
	return detect.Detection{
		Box: images.Rect{
			X1: x1 / wsum,
			Y1: y1 / wsum,
			X2: x2 / wsum,
			Y2: y2 / wsum,
		},
		Class: cluster[0].Class,
		Score: best,
	}
}

// Suppress applies classwise greedy non-max suppression: sort by descending
// score, keep the top remaining box, drop any same-class box overlapping it
// at or above the threshold. Boxes of different classes are never compared.
func Suppress(dets []detect.Detection, iouThreshold float32) []detect.Detection {
	if len(dets) == 0 {
		return nil
	}

	sorted := make([]detect.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	used := make([]bool, len(sorted))
	kept := make([]detect.Detection, 0, len(sorted))
	for i := 0; i < len(sorted); i++ {
		if used[i] {
			continue
		}
		kept = append(kept, sorted[i])
		used[i] = true
		for j := i + 1; j < len(sorted); j++ {
			if used[j] || sorted[j].Class != sorted[i].Class {
				continue
			}
			if images.CalculateIoU(sorted[i].Box, sorted[j].Box) >= float64(iouThreshold) {
				used[j] = true
			}
		}
	}
	return kept
}
