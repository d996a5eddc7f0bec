//go:build !gocv

package detect

import (
	"context"
	"fmt"
	"image"
)

// DNN is a stub in builds without the gocv tag; NewDNN reports the missing
// backend instead of linking OpenCV.
type DNN struct{}

// NewDNN always fails: the OpenCV backend is not compiled in.
func NewDNN(DNNConfig) (*DNN, error) {
	return nil, fmt.Errorf("dnn backend unavailable: rebuild with -tags gocv")
}

func (d *DNN) Detect(context.Context, image.Image) ([]Detection, error) {
	return nil, fmt.Errorf("dnn backend unavailable: rebuild with -tags gocv")
}

func (d *DNN) Close() error { return nil }
