package classfolder

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/imageload/datasets"
	"github.com/Noofbiz/imageload/h5store"
)

const side = 8

var shades = map[string]uint8{"accordion": 20, "BACKGROUND_Google": 110, "camera": 200}

// writeUniform writes a w x h image filled with one gray shade. Odd images
// are stored as RGB png, even ones as grayscale png.
func writeUniform(t *testing.T, path string, shade uint8, w, h int, gray bool) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var img image.Image
	if gray {
		g := image.NewGray(image.Rect(0, 0, w, h))
		for i := range g.Pix {
			g.Pix[i] = shade
		}
		img = g
	} else {
		c := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c.Set(x, y, color.NRGBA{R: shade, G: shade, B: shade, A: 255})
			}
		}
		img = c
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func buildTree(t *testing.T, perClass map[string]int) string {
	t.Helper()
	root := t.TempDir()
	for class, n := range perClass {
		for i := 0; i < n; i++ {
			// Sizes vary to exercise the resize.
			w, h := 5+i%4, 11-i%3
			p := filepath.Join(root, class, fmt.Sprintf("image_%04d.png", i))
			writeUniform(t, p, shades[class], w, h, i%2 == 0)
		}
	}
	return root
}

func quiet() []Option {
	return []Option{WithImageSize(side), WithOutput(""), WithProgress(false), WithSeed(11)}
}

func requireLabelsMatchFeatures(t *testing.T, s datasets.Split, classes []string) {
	t.Helper()
	idx := datasets.ClassIndex(s.Y)
	for i := 0; i < s.Len(); i++ {
		want := float32(shades[classes[idx[i]]]) / datasets.PixelScale
		for _, v := range s.X.Sample(i) {
			require.InDelta(t, want, v, 1e-6, "sample %d labeled %s", i, classes[idx[i]])
		}
	}
}

func TestLoadCaltech(t *testing.T) {
	root := buildTree(t, map[string]int{"camera": 3, "accordion": 20, "BACKGROUND_Google": 1})
	ds, err := LoadCaltech("caltech", root, append(quiet(), WithNumClasses(3))...)
	require.NoError(t, err)

	assert.Equal(t, "caltech", ds.Name)
	assert.Equal(t, 3, ds.NumClasses)
	assert.Equal(t, []int{21, side, side, 3}, ds.Train.X.Shape)
	assert.Equal(t, []int{21, 3}, ds.Train.Y.Shape)
	assert.Equal(t, []int{3, side, side, 3}, ds.Test.X.Shape)
	assert.Equal(t, []int{3, 3}, ds.Test.Y.Shape)

	// Sorted byte-wise: uppercase folders come first.
	classes := []string{"BACKGROUND_Google", "accordion", "camera"}
	// floor(k*0.95) per class: 1 -> 0, 20 -> 19, 3 -> 2.
	assert.Equal(t, []int{0, 19, 2}, datasets.ClassCounts(ds.Train.Y))
	assert.Equal(t, []int{1, 1, 1}, datasets.ClassCounts(ds.Test.Y))
	requireLabelsMatchFeatures(t, ds.Train, classes)
	requireLabelsMatchFeatures(t, ds.Test, classes)
}

func TestLoadCaltech_DefaultDepth(t *testing.T) {
	root := buildTree(t, map[string]int{"camera": 2})
	ds, err := LoadCaltech("caltech", root, quiet()...)
	require.NoError(t, err)
	assert.Equal(t, DefaultNumClasses, ds.NumClasses)
	assert.Equal(t, []int{1, DefaultNumClasses}, ds.Train.Y.Shape)
	assert.Equal(t, []int{1, DefaultNumClasses}, ds.Test.Y.Shape)
}

func TestLoadCaltech_SameSeedSameOrder(t *testing.T) {
	root := buildTree(t, map[string]int{"camera": 6, "accordion": 6})
	a, err := LoadCaltech("caltech", root, quiet()...)
	require.NoError(t, err)
	b, err := LoadCaltech("caltech", root, quiet()...)
	require.NoError(t, err)
	assert.Equal(t, a.Train.Y.Data, b.Train.Y.Data)
	assert.Equal(t, a.Train.X.Data, b.Train.X.Data)
}

func TestLoadCaltech_TooManyClasses(t *testing.T) {
	root := buildTree(t, map[string]int{"camera": 1, "accordion": 1, "BACKGROUND_Google": 1})
	_, err := LoadCaltech("caltech", root, append(quiet(), WithNumClasses(2))...)
	assert.True(t, errors.Is(err, datasets.ErrTooManyClasses), "got %v", err)
}

func TestLoadCaltech_UndecodableFile(t *testing.T) {
	root := buildTree(t, map[string]int{"camera": 2})
	require.NoError(t, os.WriteFile(filepath.Join(root, "camera", "notes.txt"), []byte("not an image"), 0o644))
	_, err := LoadCaltech("caltech", root, quiet()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes.txt")
}

func TestLoadCaltech_JPEG(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "camera"), 0o755))
	img := image.NewGray(image.Rect(0, 0, 16, 12))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	for i := 0; i < 2; i++ {
		f, err := os.Create(filepath.Join(root, "camera", fmt.Sprintf("%d.jpg", i)))
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 100}))
		require.NoError(t, f.Close())
	}
	ds, err := LoadCaltech("caltech", root, quiet()...)
	require.NoError(t, err)
	for _, v := range ds.Test.X.Data {
		assert.InDelta(t, 128.0/255, v, 2.0/255)
	}
}

func TestLoadCaltech_Persists(t *testing.T) {
	root := buildTree(t, map[string]int{"camera": 4, "accordion": 3})
	out := filepath.Join(t.TempDir(), "caltech101.h5")
	ds, err := LoadCaltech("caltech", root,
		WithImageSize(side), WithProgress(false), WithNumClasses(2), WithOutput(out), WithCompression(6))
	require.NoError(t, err)

	saved, err := h5store.Load(out, DefaultGroup)
	require.NoError(t, err)
	assert.Equal(t, ds.Train.X.Shape, saved.Train.X.Shape)
	assert.Equal(t, ds.Train.X.Data, saved.Train.X.Data)
	assert.Equal(t, ds.Test.Y.Data, saved.Test.Y.Data)
	assert.Equal(t, 2, saved.NumClasses)
}

func TestLoadCaltech_PersistsEmptyTrainSplit(t *testing.T) {
	// One image per class: floor(0.95) = 0, everything lands in test.
	root := buildTree(t, map[string]int{"camera": 1, "accordion": 1})
	out := filepath.Join(t.TempDir(), "single.h5")
	ds, err := LoadCaltech("caltech", root,
		WithImageSize(side), WithProgress(false), WithNumClasses(2), WithOutput(out))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Train.Len())
	assert.Equal(t, 2, ds.Test.Len())

	saved, err := h5store.Load(out, DefaultGroup)
	require.NoError(t, err)
	assert.Equal(t, []int{0, side, side, 3}, saved.Train.X.Shape)
	assert.Equal(t, []int{0, 2}, saved.Train.Y.Shape)
	assert.Equal(t, ds.Test.X.Data, saved.Test.X.Data)
}
