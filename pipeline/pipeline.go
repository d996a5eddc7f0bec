// Package pipeline - Per-image detection orchestration.
//
// For every panorama the pipeline schedules a viewport grid, runs
// {project -> detect -> back-project -> accumulate} once per viewport on a
// bounded worker pool, and fuses the accumulated detections only after a
// full barrier: merging never sees a partial set. A detector failure is
// fatal for the current image only; the batch continues with the next one.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pano/detect"
	"github.com/nvr-ai/go-pano/images"
	"github.com/nvr-ai/go-pano/merge"
	"github.com/nvr-ai/go-pano/progress"
	"github.com/nvr-ai/go-pano/projection"
	"github.com/nvr-ai/go-pano/tiling"
	"github.com/nvr-ai/go-pano/util"
)

// Config carries every pipeline parameter explicitly; there is no ambient
// process-wide state.
type Config struct {
	// InputDir holds the source panoramas; OutputDir receives one annotated
	// image per readable input.
	InputDir  string
	OutputDir string

	// TileSize is the square viewport dimension in pixels.
	TileSize int
	// FOVs are the fields of view to tile the sphere with, in degrees.
	FOVs []float64
	// Overlap is the fraction of each tile shared with its neighbor, [0,1).
	Overlap float64
	// PitchMin and PitchMax bound the scheduled pitch range in degrees.
	PitchMin float64
	PitchMax float64

	// NMSIoU is the suppression threshold for the final merge.
	NMSIoU float32
	// ScoreThreshold drops detections below this confidence.
	ScoreThreshold float32

	// Workers bounds viewport parallelism per image; zero means NumCPU.
	Workers int
}

// DefaultConfig mirrors the defaults the pipeline was tuned with.
func DefaultConfig() Config {
	return Config{
		TileSize:       960,
		FOVs:           []float64{40, 70, 100},
		Overlap:        0.5,
		PitchMin:       -75,
		PitchMax:       75,
		NMSIoU:         0.5,
		ScoreThreshold: 0.25,
		Workers:        runtime.NumCPU(),
	}
}

// ImageResult reports the outcome for one input panorama.
type ImageResult struct {
	// Path is the source image path.
	Path string
	// Detections are the merged detections in equirect pixel space; nil when
	// the image failed.
	Detections []detect.Detection
	// Err records a decode or detector failure for this image.
	Err error
}

// RunDetection processes every readable panorama in cfg.InputDir and writes
// one annotated copy per input into cfg.OutputDir.
//
// Configuration errors surface before any detector invocation. An unreadable
// image is logged and skipped; a detector failure abandons that image but
// the batch continues. Cancellation through ctx stops the batch between
// images and abandons the image in flight.
//
// Arguments:
//   - ctx: Cancels the batch; a cancelled image is dropped, not resumed.
//   - cfg: Pipeline parameters.
//   - det: The detector capability, invoked once per viewport.
//
// Returns:
//   - []ImageResult: One entry per input image, in input order.
//   - error: Configuration or output-directory failures only.
func RunDetection(ctx context.Context, cfg Config, det detect.Detector) ([]ImageResult, error) {
	specs, err := tiling.Schedule(cfg.FOVs, cfg.Overlap, cfg.PitchMin, cfg.PitchMax, cfg.TileSize)
	if err != nil {
		return nil, err
	}

	paths, err := util.ListImageFiles(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}

	results := make([]ImageResult, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		src, err := images.Load(path)
		if err != nil {
			log.Printf("skip unreadable image %s: %v", path, err)
			results = append(results, ImageResult{Path: path, Err: err})
			continue
		}
		equi := images.NewEquirect(src)
		log.Printf("processing %s | size=%dx%d | tiles=%d",
			filepath.Base(path), equi.Width, equi.Height, len(specs))

		all, err := collectViewports(ctx, cfg, specs, equi, det)
		if err != nil {
			log.Printf("image %s failed: %v", path, err)
			results = append(results, ImageResult{Path: path, Err: err})
			continue
		}

		merged := merge.Merge(all, merge.FusionThreshold(cfg.NMSIoU), cfg.NMSIoU)

		anns := make([]images.Annotation, 0, len(merged))
		for _, d := range merged {
			anns = append(anns, images.Annotation{Box: d.Box, Class: d.Class, Score: d.Score})
		}
		annotated := images.Annotate(equi.Image(), anns, detect.ClassName)

		outPath := filepath.Join(cfg.OutputDir, filepath.Base(path))
		if err := images.Save(outPath, annotated); err != nil {
			results = append(results, ImageResult{Path: path, Err: err})
			continue
		}

		log.Printf("saved %s (%d detections)", outPath, len(merged))
		results = append(results, ImageResult{Path: path, Detections: merged})
	}
	return results, nil
}

// collectViewports runs the per-viewport stages on a bounded worker pool and
// joins on all of them before returning: the caller only merges a complete
// set. The first viewport error cancels the rest and abandons the image.
func collectViewports(
	ctx context.Context,
	cfg Config,
	specs []tiling.ViewportSpec,
	equi *images.Equirect,
	det detect.Detector,
) ([]detect.Detection, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(specs) {
		workers = len(specs)
	}

	ictx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := progress.NewTracker(fmt.Sprintf("tiles:%dx%d", equi.Width, equi.Height), len(specs))
	jobs := make(chan tiling.ViewportSpec)

	var (
		mu       sync.Mutex
		all      []detect.Detection
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for spec := range jobs {
				if ictx.Err() != nil {
					continue
				}
				found, err := processViewport(ictx, spec, equi, det, cfg.ScoreThreshold)
				if err != nil {
					fail(err)
					continue
				}
				mu.Lock()
				all = append(all, found...)
				mu.Unlock()
				tracker.Increment()
			}
		}()
	}

	for _, spec := range specs {
		jobs <- spec
	}
	close(jobs)
	wg.Wait()
	tracker.Finish()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return all, nil
}

// processViewport projects one viewport, detects on the rendered patch, and
// back-projects the surviving boxes into equirect space.
func processViewport(
	ctx context.Context,
	spec tiling.ViewportSpec,
	equi *images.Equirect,
	det detect.Detector,
	scoreThreshold float32,
) ([]detect.Detection, error) {
	m := projection.BuildSamplingMap(equi.Width, equi.Height, spec.Yaw, spec.Pitch, spec.FOV, spec.Size)
	patch := m.Render(equi)

	found, err := det.Detect(ctx, patch)
	if err != nil {
		return nil, errors.Wrapf(err, "detector failed at yaw=%.1f pitch=%.1f fov=%.1f",
			spec.Yaw, spec.Pitch, spec.FOV)
	}

	var out []detect.Detection
	for _, d := range detect.FilterScore(found, scoreThreshold) {
		box, ok := projection.BackProject(d.Box, m, equi.Width, equi.Height)
		if !ok || box.Degenerate() {
			continue
		}
		out = append(out, detect.Detection{Box: box, Class: d.Class, Score: d.Score})
	}
	return out, nil
}
