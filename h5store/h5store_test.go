package h5store

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/hdf5"

	"github.com/Noofbiz/imageload/datasets"
)

func randomSplit(t *testing.T, rng *rand.Rand, n, side, classes int) datasets.Split {
	t.Helper()
	x := datasets.NewArray(n, side, side, 3)
	for i := range x.Data {
		x.Data[i] = float32(rng.Intn(256)) / datasets.PixelScale
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i] = rng.Intn(classes)
	}
	y, err := datasets.OneHot(labels, classes)
	require.NoError(t, err)
	s, err := datasets.NewSplit(x, y)
	require.NoError(t, err)
	return s
}

func bits(data []float32) []uint32 {
	out := make([]uint32, len(data))
	for i, v := range data {
		out[i] = math.Float32bits(v)
	}
	return out
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ds := &datasets.Dataset{
		Name:       "tiny",
		NumClasses: 5,
		Train:      randomSplit(t, rng, 37, 8, 5),
		Test:       randomSplit(t, rng, 6, 8, 5),
	}
	path := filepath.Join(t.TempDir(), "tiny.h5")
	require.NoError(t, Save(path, "tiny_group", ds, DefaultLevel))

	got, err := Load(path, "tiny_group")
	require.NoError(t, err)
	assert.Equal(t, 5, got.NumClasses)

	pairs := []struct {
		name      string
		want, got *datasets.Array
	}{
		{KeyXTrain, ds.Train.X, got.Train.X},
		{KeyYTrain, ds.Train.Y, got.Train.Y},
		{KeyXTest, ds.Test.X, got.Test.X},
		{KeyYTest, ds.Test.Y, got.Test.Y},
	}
	for _, p := range pairs {
		assert.Equal(t, p.want.Shape, p.got.Shape, p.name)
		assert.Equal(t, bits(p.want.Data), bits(p.got.Data), p.name)
	}

	_, err = Load(path, "other_group")
	assert.Error(t, err)
}

func TestSave_TruncatesAndHandlesEmptySplit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.h5")
	require.NoError(t, os.WriteFile(path, []byte("stale contents"), 0o644))

	rng := rand.New(rand.NewSource(1))
	empty, err := datasets.NewSplit(datasets.NewArray(0, 4, 4, 3), datasets.NewArray(0, 3))
	require.NoError(t, err)
	ds := &datasets.Dataset{
		NumClasses: 3,
		Train:      randomSplit(t, rng, 2, 4, 3),
		Test:       empty,
	}
	require.NoError(t, Save(path, "g", ds, 9))

	got, err := Load(path, "g")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Train.Len())
	assert.Equal(t, 0, got.Test.Len())
	assert.Equal(t, []int{0, 4, 4, 3}, got.Test.X.Shape)
	assert.Equal(t, []int{0, 3}, got.Test.Y.Shape)

	// Empty datasets are chunked too: only chunked layouts accept an
	// unlimited extent.
	for _, key := range []string{KeyXTest, KeyYTest} {
		_, maxDims := extent(t, path, "g", key)
		assert.Equal(t, unlimited, maxDims[0], key)
	}
	_, maxDims := extent(t, path, "g", KeyXTrain)
	assert.Equal(t, []uint{2, 4, 4, 3}, maxDims)
}

func extent(t *testing.T, path, group, key string) (dims, maxDims []uint) {
	t.Helper()
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	require.NoError(t, err)
	defer f.Close()
	g, err := f.OpenGroup(group)
	require.NoError(t, err)
	defer g.Close()
	dset, err := g.OpenDataset(key)
	require.NoError(t, err)
	defer dset.Close()
	space := dset.Space()
	defer space.Close()
	dims, maxDims, err = space.SimpleExtentDims()
	require.NoError(t, err)
	return dims, maxDims
}

func TestSave_CompressionLevel(t *testing.T) {
	x := datasets.NewArray(2000, 8, 8, 3)
	for i := range x.Data {
		x.Data[i] = 0.5
	}
	y, err := datasets.OneHot(make([]int, 2000), 10)
	require.NoError(t, err)
	s, err := datasets.NewSplit(x, y)
	require.NoError(t, err)
	ds := &datasets.Dataset{NumClasses: 10, Train: s, Test: s}

	size := func(level int) int64 {
		path := filepath.Join(t.TempDir(), "c.h5")
		require.NoError(t, Save(path, "g", ds, level))
		info, err := os.Stat(path)
		require.NoError(t, err)
		return info.Size()
	}
	stored, packed := size(0), size(9)
	rawBytes := int64(4 * 2 * (len(x.Data) + len(y.Data)))
	assert.Greater(t, stored, rawBytes, "level 0 stores the data uncompressed")
	assert.Less(t, packed*10, stored, "level 9 should shrink constant data: %d vs %d bytes", packed, stored)
}

func TestSave_RemovesPartialContainer(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ds := &datasets.Dataset{
		NumClasses: 3,
		Train:      randomSplit(t, rng, 2, 4, 3),
		Test:       datasets.Split{Y: datasets.NewArray(0, 3)},
	}
	path := filepath.Join(t.TempDir(), "partial.h5")
	err := Save(path, "g", ds, DefaultLevel)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "container left behind: %v", statErr)
}

func TestChunkDims(t *testing.T) {
	assert.Equal(t, []uint{21, 64, 64, 3}, chunkDims(datasets.NewArray(100, 64, 64, 3)))
	assert.Equal(t, []uint{1, 224, 224, 3}, chunkDims(datasets.NewArray(10, 224, 224, 3)))
	assert.Equal(t, []uint{3, 200}, chunkDims(datasets.NewArray(3, 200)))
	assert.Equal(t, []uint{1, 4, 4, 3}, chunkDims(datasets.NewArray(0, 4, 4, 3)))
}
