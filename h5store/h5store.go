// Package h5store persists loaded datasets to an HDF5 container.
//
// A container holds a single group with four float32 datasets: x_train,
// y_train, x_test and y_test, each independently gzip (deflate) compressed.
// Downstream consumers rely on exactly this layout.
package h5store

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gonum.org/v1/hdf5"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/imageload/datasets"
)

// DefaultLevel is the gzip compression level used by the loaders.
const DefaultLevel = 2

// Dataset keys inside the group.
const (
	KeyXTrain = "x_train"
	KeyYTrain = "y_train"
	KeyXTest  = "x_test"
	KeyYTest  = "y_test"
)

// chunkBytes bounds the size of one compressed chunk.
const chunkBytes = 1 << 20

// unlimited is H5S_UNLIMITED, (hsize_t)(-1).
const unlimited = ^uint(0)

// Save writes ds to path under group, truncating any existing file.
func Save(path, group string, ds *datasets.Dataset, level int) error {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return errors.Wrapf(err, "failed to create container %s", path)
	}
	if err := writeGroup(f, group, ds, level); err != nil {
		// Never leave a half written container behind.
		_ = f.Close()
		_ = os.Remove(path)
		return errors.Wrapf(err, "failed to write container %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close container %s", path)
	}
	if info, err := os.Stat(path); err == nil {
		klog.V(1).Infof("wrote %s group %q (%s)", path, group, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

func writeGroup(f *hdf5.File, group string, ds *datasets.Dataset, level int) error {
	g, err := f.CreateGroup(group)
	if err != nil {
		return errors.Wrapf(err, "failed to create group %q", group)
	}
	defer g.Close()

	arrays := []struct {
		key string
		a   *datasets.Array
	}{
		{KeyXTrain, ds.Train.X},
		{KeyYTrain, ds.Train.Y},
		{KeyXTest, ds.Test.X},
		{KeyYTest, ds.Test.Y},
	}
	for _, entry := range arrays {
		if entry.a == nil {
			return errors.Errorf("dataset %q is nil", entry.key)
		}
		if err := writeArray(g, entry.key, entry.a, level); err != nil {
			return errors.Wrapf(err, "failed to write dataset %q", entry.key)
		}
	}
	return nil
}

func writeArray(g *hdf5.Group, key string, a *datasets.Array, level int) error {
	dims := make([]uint, len(a.Shape))
	for i, d := range a.Shape {
		dims[i] = uint(d)
	}
	// A chunk can't be larger than a fixed extent, so an empty array gets an
	// unlimited sample axis to stay chunked and compressed like the others.
	var maxDims []uint
	if a.Len() == 0 {
		maxDims = append([]uint(nil), dims...)
		maxDims[0] = unlimited
	}
	space, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return err
	}
	defer space.Close()

	dcpl, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return err
	}
	defer dcpl.Close()
	if err := dcpl.SetChunk(chunkDims(a)); err != nil {
		return err
	}
	if err := dcpl.SetDeflate(level); err != nil {
		return err
	}

	dset, err := g.CreateDatasetWith(key, hdf5.T_NATIVE_FLOAT, space, dcpl)
	if err != nil {
		return err
	}
	if len(a.Data) == 0 {
		return dset.Close()
	}
	if err := dset.Write(&a.Data); err != nil {
		_ = dset.Close()
		return err
	}
	return dset.Close()
}

// chunkDims groups whole samples into chunks of at most chunkBytes. Chunks
// hold at least one sample, even for empty arrays.
func chunkDims(a *datasets.Array) []uint {
	rows := chunkBytes / (4 * a.SampleSize())
	if rows > a.Len() {
		rows = a.Len()
	}
	if rows < 1 {
		rows = 1
	}
	dims := make([]uint, len(a.Shape))
	dims[0] = uint(rows)
	for i, d := range a.Shape[1:] {
		dims[i+1] = uint(d)
	}
	return dims
}

// Load reads a container written by Save.
func Load(path, group string) (*datasets.Dataset, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open container %s", path)
	}
	defer f.Close()

	g, err := f.OpenGroup(group)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open group %q in %s", group, path)
	}
	defer g.Close()

	var arrays [4]*datasets.Array
	for i, key := range []string{KeyXTrain, KeyYTrain, KeyXTest, KeyYTest} {
		arrays[i], err = readArray(g, key)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read dataset %q from %s", key, path)
		}
	}

	train, err := datasets.NewSplit(arrays[0], arrays[1])
	if err != nil {
		return nil, err
	}
	test, err := datasets.NewSplit(arrays[2], arrays[3])
	if err != nil {
		return nil, err
	}
	ds := &datasets.Dataset{Name: group, Train: train, Test: test}
	if len(train.Y.Shape) == 2 {
		ds.NumClasses = train.Y.Shape[1]
	}
	return ds, nil
}

func readArray(g *hdf5.Group, key string) (*datasets.Array, error) {
	dset, err := g.OpenDataset(key)
	if err != nil {
		return nil, err
	}
	defer dset.Close()

	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, err
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}
	a := datasets.NewArray(shape...)
	if len(a.Data) == 0 {
		return a, nil
	}
	if err := dset.Read(&a.Data); err != nil {
		return nil, err
	}
	return a, nil
}
