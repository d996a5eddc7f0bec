//go:build gocv

package detect

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-pano/images"
)

// DNN runs a YOLO-family model through the OpenCV DNN module. It is an
// alternative to the ONNX Runtime backend for hosts where OpenCV is already
// present.
type DNN struct {
	net       gocv.Net
	inputSize int
	threshold float32
	mu        sync.Mutex
}

// NewDNN loads the model with gocv.ReadNet on the CPU backend.
func NewDNN(cfg DNNConfig) (*DNN, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if cfg.InputSize == 0 {
		cfg.InputSize = 640
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model: %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &DNN{
		net:       net,
		inputSize: cfg.InputSize,
		threshold: cfg.ScoreThreshold,
	}, nil
}

// Detect runs inference on the patch and returns boxes in patch pixel space.
func (d *DNN) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("converting patch: %w", err)
	}
	defer mat.Close()

	sz := image.Pt(d.inputSize, d.inputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, sz, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// YOLO exports from ultralytics come out transposed: [1, 4+classes, N].
	out := gocv.NewMat()
	defer out.Close()
	gocv.TransposeND(output, []int{0, 2, 1}, &out)
	rows := out.Reshape(1, out.Size()[1])
	defer rows.Close()

	b := img.Bounds()
	dets := d.decodeRows(rows, b.Dx(), b.Dy())
	return applyNMS(dets, yoloNMSThreshold), nil
}

func (d *DNN) decodeRows(rows gocv.Mat, origW, origH int) []Detection {
	scaleX := float32(origW) / float32(d.inputSize)
	scaleY := float32(origH) / float32(d.inputSize)
	cols := rows.Cols()

	var dets []Detection
	for i := 0; i < rows.Rows(); i++ {
		classID := 0
		maxScore := float32(0)
		for c := 4; c < cols; c++ {
			if s := rows.GetFloatAt(i, c); s > maxScore {
				maxScore = s
				classID = c - 4
			}
		}
		if maxScore < d.threshold {
			continue
		}

		cx := rows.GetFloatAt(i, 0)
		cy := rows.GetFloatAt(i, 1)
		w := rows.GetFloatAt(i, 2)
		h := rows.GetFloatAt(i, 3)

		dets = append(dets, Detection{
			Box: images.Rect{
				X1: (cx - w/2) * scaleX,
				Y1: (cy - h/2) * scaleY,
				X2: (cx + w/2) * scaleX,
				Y2: (cy + h/2) * scaleY,
			},
			Class: classID,
			Score: maxScore,
		})
	}
	return dets
}

// Close releases the network.
func (d *DNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
