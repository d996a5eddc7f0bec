package detect

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-pano/images"
)

// yoloNMSThreshold suppresses duplicate anchors within a single patch. The
// cross-viewport merge applies its own thresholds later.
const yoloNMSThreshold = 0.45

// YOLOConfig configures the ONNX Runtime backed YOLO detector.
type YOLOConfig struct {
	// ModelPath is the path to the YOLO .onnx weights.
	ModelPath string
	// LibraryPath optionally points at the onnxruntime shared library.
	LibraryPath string
	// InputSize is the square model input dimension (default 640).
	InputSize int
	// ScoreThreshold drops low-confidence anchors during decoding.
	ScoreThreshold float32
	// IntraOpThreads and InterOpThreads bound onnxruntime parallelism;
	// zero keeps the runtime defaults.
	IntraOpThreads int
	InterOpThreads int
}

// YOLO runs a YOLOv8-family detection model through ONNX Runtime.
//
// The session owns fixed input/output tensors, so calls are serialized
// internally; YOLO is safe for concurrent use.
type YOLO struct {
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	inputSize  int
	numClasses int
	anchors    int
	threshold  float32
	mu         sync.Mutex
}

// NewYOLO loads the model and prepares an inference session.
func NewYOLO(cfg YOLOConfig) (*YOLO, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if cfg.InputSize == 0 {
		cfg.InputSize = 640
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("error initializing ORT environment: %w", err)
		}
	}

	n := cfg.InputSize
	// Anchor count across the three YOLO strides (8, 16, 32).
	anchors := (n/8)*(n/8) + (n/16)*(n/16) + (n/32)*(n/32)
	numClasses := len(COCOClasses)

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(n), int64(n)))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+numClasses), int64(anchors)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}
	defer options.Destroy()
	if cfg.IntraOpThreads > 0 {
		options.SetIntraOpNumThreads(cfg.IntraOpThreads)
	}
	if cfg.InterOpThreads > 0 {
		options.SetInterOpNumThreads(cfg.InterOpThreads)
	}
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &YOLO{
		session:    session,
		input:      inputTensor,
		output:     outputTensor,
		inputSize:  n,
		numClasses: numClasses,
		anchors:    anchors,
		threshold:  cfg.ScoreThreshold,
	}, nil
}

// Detect runs inference on the patch and returns boxes in patch pixel space.
func (d *YOLO) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := prepareInput(img, d.input.GetData(), d.inputSize); err != nil {
		return nil, err
	}
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	b := img.Bounds()
	dets := decodeYOLO(d.output.GetData(), d.numClasses, d.anchors, d.inputSize, b.Dx(), b.Dy(), d.threshold)
	return applyNMS(dets, yoloNMSThreshold), nil
}

// Close releases the session and its tensors.
func (d *YOLO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	return nil
}

// prepareInput fills a CHW float32 tensor buffer with the resized patch,
// normalizing pixel values to [0,1].
func prepareInput(img image.Image, data []float32, size int) error {
	channelSize := size * size
	if len(data) < channelSize*3 {
		return fmt.Errorf("destination tensor only holds %d floats, needs %d",
			len(data), channelSize*3)
	}
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	if img.Bounds().Dx() != size || img.Bounds().Dy() != size {
		img = resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	}

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}

// decodeYOLO parses the [1, 4+classes, anchors] output layout: per anchor a
// center-format box in model input space followed by one score per class.
// Boxes are scaled back to the original patch dimensions.
func decodeYOLO(data []float32, numClasses, anchors, inputSize, origW, origH int, scoreThreshold float32) []Detection {
	scaleX := float32(origW) / float32(inputSize)
	scaleY := float32(origH) / float32(inputSize)

	var dets []Detection
	for i := 0; i < anchors; i++ {
		classID := 0
		maxScore := float32(0)
		for c := 0; c < numClasses; c++ {
			if s := data[(4+c)*anchors+i]; s > maxScore {
				maxScore = s
				classID = c
			}
		}
		if maxScore < scoreThreshold {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

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
