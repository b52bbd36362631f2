package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/imageload/datasets"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadFixed_GrayReplicated(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 3))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 10)
	}
	p := filepath.Join(t.TempDir(), "gray.png")
	writePNG(t, p, gray)

	px, err := LoadFixed(p, 4, 3)
	require.NoError(t, err)
	require.Len(t, px, 4*3*Channels)
	for i := range gray.Pix {
		want := float32(i * 10)
		assert.Equal(t, []float32{want, want, want}, px[i*3:i*3+3], "pixel %d", i)
	}
}

func TestLoadFixed_RGB(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(1, 0, color.NRGBA{R: 40, G: 50, B: 60, A: 255})
	img.Set(0, 1, color.NRGBA{R: 70, G: 80, B: 90, A: 255})
	img.Set(1, 1, color.NRGBA{R: 100, G: 110, B: 120, A: 128})
	p := filepath.Join(t.TempDir(), "rgb.png")
	writePNG(t, p, img)

	px, err := LoadFixed(p, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120}, px)
}

func TestLoadFixed_WrongSize(t *testing.T) {
	p := filepath.Join(t.TempDir(), "small.png")
	writePNG(t, p, image.NewGray(image.Rect(0, 0, 8, 8)))

	_, err := LoadFixed(p, 64, 64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, datasets.ErrImageSize))
}

func TestLoadResized(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	p := filepath.Join(t.TempDir(), "big.png")
	writePNG(t, p, img)

	px, err := LoadResized(p, 4, 4)
	require.NoError(t, err)
	require.Len(t, px, 4*4*Channels)
	for i := 0; i < len(px); i += 3 {
		assert.Equal(t, []float32{200, 100, 50}, px[i:i+3])
	}
}

func TestOpen_NotAnImage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("definitely not an image"), 0o644))
	_, err := Open(p)
	require.Error(t, err)
}
