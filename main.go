package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/nvr-ai/go-pano/detect"
	"github.com/nvr-ai/go-pano/pipeline"
)

const (
	// Default ONNX model path
	DefaultModelPath = "yolov8n.onnx"
	// Default input directory of equirectangular panoramas
	DefaultInputDir = "panos"
	// Default output directory for annotated panoramas
	DefaultOutputDir = "panos_out"
)

func main() {
	var (
		mode           string
		inputDir       string
		outputDir      string
		singleImage    string
		modelPath      string
		onnxLibPath    string
		backend        string
		tileSize       int
		modelSize      int
		fovList        string
		overlap        float64
		pitchMin       float64
		pitchMax       float64
		iouThreshold   float64
		scoreThreshold float64
		workers        int
	)
	def := pipeline.DefaultConfig()

	flag.StringVar(&mode, "mode", "detect", "Run mode: detect or tiles")
	flag.StringVar(&inputDir, "input", DefaultInputDir, "Directory of equirectangular panoramas")
	flag.StringVar(&outputDir, "output", DefaultOutputDir, "Output directory for annotated images")
	flag.StringVar(&singleImage, "image", "", "Process a single panorama (tiles mode requires this)")
	flag.StringVar(&modelPath, "model", DefaultModelPath, "Path to YOLO ONNX model file")
	flag.StringVar(&onnxLibPath, "onnx-lib", "", "Path to the onnxruntime shared library")
	flag.StringVar(&backend, "backend", "onnx", "Inference backend: onnx or dnn")
	flag.IntVar(&tileSize, "tile-size", def.TileSize, "Square viewport size in pixels")
	flag.IntVar(&modelSize, "model-size", 640, "Square model input size in pixels")
	flag.StringVar(&fovList, "fovs", formatFOVs(def.FOVs), "Comma-separated fields of view in degrees")
	flag.Float64Var(&overlap, "overlap", def.Overlap, "Fractional overlap between neighboring tiles")
	flag.Float64Var(&pitchMin, "pitch-min", def.PitchMin, "Lowest scheduled pitch in degrees")
	flag.Float64Var(&pitchMax, "pitch-max", def.PitchMax, "Highest scheduled pitch in degrees")
	flag.Float64Var(&iouThreshold, "iou", float64(def.NMSIoU), "IoU threshold for merging detections")
	flag.Float64Var(&scoreThreshold, "confidence", float64(def.ScoreThreshold), "Detection confidence threshold")
	flag.IntVar(&workers, "workers", def.Workers, "Viewport workers per image (0 = NumCPU)")
	flag.Parse()

	fovs, err := parseFOVs(fovList)
	if err != nil {
		log.Fatalf("invalid -fovs: %v", err)
	}

	cfg := pipeline.Config{
		InputDir:       inputDir,
		OutputDir:      outputDir,
		TileSize:       tileSize,
		FOVs:           fovs,
		Overlap:        overlap,
		PitchMin:       pitchMin,
		PitchMax:       pitchMax,
		NMSIoU:         float32(iouThreshold),
		ScoreThreshold: float32(scoreThreshold),
		Workers:        workers,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "tiles":
		if singleImage == "" {
			log.Fatal("tiles mode requires -image")
		}
		outPath, err := pipeline.RunTilingPreview(ctx, cfg, singleImage)
		if err != nil {
			log.Fatalf("tiling preview failed: %v", err)
		}
		log.Printf("preview written: %s", outPath)

	case "detect":
		det, err := newDetector(backend, modelPath, onnxLibPath, modelSize, float32(scoreThreshold))
		if err != nil {
			log.Fatalf("detector init failed: %v", err)
		}
		defer det.Close()

		if singleImage != "" {
			// A single image still goes through the batch path; point the
			// pipeline at the file's directory.
			cfg.InputDir = filepath.Dir(singleImage)
		}

		results, err := pipeline.RunDetection(ctx, cfg, det)
		if err != nil {
			log.Fatalf("detection run failed: %v", err)
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		log.Printf("done: %d images, %d failed", len(results), failed)
		if failed == len(results) && len(results) > 0 {
			os.Exit(1)
		}

	default:
		log.Fatalf("unknown mode %q (want detect or tiles)", mode)
	}
}

// newDetector builds the requested inference backend.
func newDetector(backend, modelPath, onnxLibPath string, inputSize int, scoreThreshold float32) (detect.Detector, error) {
	switch backend {
	case "onnx":
		return detect.NewYOLO(detect.YOLOConfig{
			ModelPath:      modelPath,
			LibraryPath:    onnxLibPath,
			InputSize:      inputSize,
			ScoreThreshold: scoreThreshold,
		})
	case "dnn":
		return detect.NewDNN(detect.DNNConfig{
			ModelPath:      modelPath,
			InputSize:      inputSize,
			ScoreThreshold: scoreThreshold,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q (want onnx or dnn)", backend)
	}
}

func parseFOVs(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	fovs := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		fovs = append(fovs, v)
	}
	if len(fovs) == 0 {
		return nil, fmt.Errorf("no fields of view given")
	}
	return fovs, nil
}

func formatFOVs(fovs []float64) string {
	parts := make([]string, len(fovs))
	for i, f := range fovs {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
