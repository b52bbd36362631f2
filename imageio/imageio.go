// Package imageio decodes image files into channels-last float32 pixel
// buffers of 3 channels (RGB). Single channel images are replicated into the
// three channels; alpha is dropped.
//
// Supported formats are those registered with the image package: jpeg, png
// and gif from the standard library, plus bmp, tiff and webp.
package imageio

import (
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Noofbiz/imageload/datasets"
)

// Channels is the number of channels of every decoded image.
const Channels = 3

// Open decodes the image at path.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s", path)
	}
	return img, nil
}

// LoadFixed decodes the image at path and returns its pixels as a
// [height, width, 3] buffer. The image must be exactly width x height.
func LoadFixed(path string, width, height int) ([]float32, error) {
	img, err := Open(path)
	if err != nil {
		return nil, err
	}
	size := img.Bounds().Size()
	if size.X != width || size.Y != height {
		return nil, errors.Wrapf(datasets.ErrImageSize, "image %s is %dx%d, expected %dx%d",
			path, size.X, size.Y, width, height)
	}
	return ToHWC(img), nil
}

// LoadResized decodes the image at path, resizes it to width x height with
// nearest-neighbor sampling and returns a [height, width, 3] buffer.
func LoadResized(path string, width, height int) ([]float32, error) {
	img, err := Open(path)
	if err != nil {
		return nil, err
	}
	return ToHWC(imaging.Resize(img, width, height, imaging.NearestNeighbor)), nil
}

// ToHWC flattens img into row-major [height, width, 3] order with raw 0-255
// values.
func ToHWC(img image.Image) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float32, 0, w*h*Channels)

	switch src := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < w; x++ {
				v := float32(row[x])
				out = append(out, v, v, v)
			}
		}
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+3]
				out = append(out, float32(p[0]), float32(p[1]), float32(p[2]))
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				out = append(out, float32(c.R), float32(c.G), float32(c.B))
			}
		}
	}
	return out
}

// Loader decodes one image file into a [height, width, 3] buffer.
type Loader func(path string) ([]float32, error)

// Fixed returns a Loader for images that must already be width x height.
func Fixed(width, height int) Loader {
	return func(path string) ([]float32, error) { return LoadFixed(path, width, height) }
}

// Resized returns a Loader that resizes every image to width x height.
func Resized(width, height int) Loader {
	return func(path string) ([]float32, error) { return LoadResized(path, width, height) }
}

// ReadInto decodes paths[i] into sample i of x. done, if not nil, is called
// after every image.
func ReadInto(x *datasets.Array, paths []string, load Loader, done func()) error {
	if len(paths) > x.Len() {
		return errors.Wrapf(datasets.ErrCapacityExceeded, "%d images for %d samples", len(paths), x.Len())
	}
	for i, p := range paths {
		px, err := load(p)
		if err != nil {
			return err
		}
		if err := x.SetSample(i, px); err != nil {
			return errors.Wrapf(err, "failed to store %s", p)
		}
		if done != nil {
			done()
		}
	}
	return nil
}
