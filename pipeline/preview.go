package pipeline

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pano/images"
	"github.com/nvr-ai/go-pano/projection"
	"github.com/nvr-ai/go-pano/tiling"
)

// fovPalette colors the preview footprints per field of view.
var fovPalette = []color.RGBA{
	{255, 200, 0, 255},
	{0, 255, 0, 255},
	{255, 0, 255, 255},
	{255, 128, 0, 255},
	{0, 255, 255, 255},
	{0, 128, 255, 255},
	{255, 0, 128, 255},
	{128, 255, 0, 255},
	{0, 0, 255, 255},
	{0, 128, 128, 255},
}

// RunTilingPreview renders the scheduled viewport footprints onto a copy of
// one source panorama without invoking the detector. It is a diagnostic for
// tuning fov and overlap choices.
//
// The preview is written next to the source name with a "-tiles" suffix in
// cfg.OutputDir.
func RunTilingPreview(ctx context.Context, cfg Config, inputImage string) (string, error) {
	specs, err := tiling.Schedule(cfg.FOVs, cfg.Overlap, cfg.PitchMin, cfg.PitchMax, cfg.TileSize)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating output directory")
	}

	src, err := images.Load(inputImage)
	if err != nil {
		return "", err
	}
	equi := images.NewEquirect(src)
	preview := images.Clone(equi.Image())

	fovIndex := map[float64]int{}
	for _, fov := range cfg.FOVs {
		if _, ok := fovIndex[fov]; !ok {
			fovIndex[fov] = len(fovIndex)
		}
	}

	// The full patch extent, inset one pixel from the border, maps each
	// viewport's footprint back onto the canvas.
	extent := images.Rect{
		X1: 1, Y1: 1,
		X2: float32(cfg.TileSize - 2),
		Y2: float32(cfg.TileSize - 2),
	}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		m := projection.BuildSamplingMap(equi.Width, equi.Height, spec.Yaw, spec.Pitch, spec.FOV, spec.Size)
		box, ok := projection.BackProject(extent, m, equi.Width, equi.Height)
		if !ok {
			continue
		}
		c := fovPalette[fovIndex[spec.FOV]%len(fovPalette)]
		images.DrawRect(preview, box, c, 2)
	}

	base := filepath.Base(inputImage)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s-tiles%s", strings.TrimSuffix(base, ext), ext)
	outPath := filepath.Join(cfg.OutputDir, name)
	if err := images.Save(outPath, preview); err != nil {
		return "", err
	}

	log.Printf("tiling preview saved: %s | size=%dx%d | tiles=%d",
		outPath, equi.Width, equi.Height, len(specs))
	return outPath, nil
}
