//go:build !gocv

package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDNNWithoutOpenCV(t *testing.T) {
	det, err := NewDNN(DNNConfig{ModelPath: "model.onnx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gocv")
	assert.Nil(t, det)
}
