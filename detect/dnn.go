package detect

// DNNConfig configures the OpenCV DNN backed detector. The backend itself
// only compiles in when the binary is built with the gocv tag, keeping
// OpenCV and cgo out of default builds.
type DNNConfig struct {
	// ModelPath is the path to the .onnx weights loaded via gocv.ReadNet.
	ModelPath string
	// InputSize is the square model input dimension (default 640).
	InputSize int
	// ScoreThreshold drops low-confidence rows during decoding.
	ScoreThreshold float32
}
