// Package datasets holds the in-memory representation shared by the image
// loaders in this module: dense float32 arrays for features and one-hot
// labels, grouped into train/test splits.
//
// Layout and intended usage:
//
// Dataset
//   - Name and number of classes of the loaded dataset
//   - Train and Test splits, each a (features, labels) pair
//   - Features are shaped [sample, height, width, channel], scaled into [0, 1]
//   - Labels are shaped [sample, class], one-hot encoded
//
// The splits convert into gomlx tensors with Split.Tensors, so they can be
// handed straight to a training loop.
package datasets

import (
	"errors"
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// PixelScale is the fixed divisor applied to raw 8-bit pixel values.
const PixelScale = 255

var (
	// ErrCapacityExceeded is returned when a directory holds more samples than
	// the loader was configured to accept.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrImageSize is returned when a decoded image does not have the fixed
	// resolution the loader expects.
	ErrImageSize = errors.New("unexpected image size")

	// ErrMissingAnnotation is returned when a validation image has no entry in
	// the validation manifest.
	ErrMissingAnnotation = errors.New("missing annotation")

	// ErrMalformedManifest is returned for manifest lines with fewer than two tokens.
	ErrMalformedManifest = errors.New("malformed manifest line")

	// ErrLabelOutOfRange is returned when a class index does not fit the
	// one-hot depth.
	ErrLabelOutOfRange = errors.New("label out of range")

	// ErrTooManyClasses is returned when more class folders are found than the
	// configured number of classes.
	ErrTooManyClasses = errors.New("too many classes")
)

// Dataset is a fully loaded train/test pair.
type Dataset struct {
	Name       string
	NumClasses int
	Train      Split
	Test       Split
}

// Split is one (features, labels) pair. X and Y always have the same number
// of samples.
type Split struct {
	X *Array
	Y *Array
}

// Len returns the number of samples in the split.
func (s Split) Len() int {
	if s.X == nil {
		return 0
	}
	return s.X.Len()
}

// Tensors converts the split into gomlx tensors.
func (s Split) Tensors() (x, y *tensors.Tensor) {
	return s.X.Tensor(), s.Y.Tensor()
}

// NewSplit checks that features and labels agree on the number of samples.
func NewSplit(x, y *Array) (Split, error) {
	if x.Len() != y.Len() {
		return Split{}, fmt.Errorf("features and labels sample counts don't match: %d != %d", x.Len(), y.Len())
	}
	return Split{X: x, Y: y}, nil
}
