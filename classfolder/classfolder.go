// Package classfolder loads image datasets stored as one folder per class,
// like Caltech-101:
//
//	<path>/<class>/*
//
// Every image is resized to a fixed resolution and each class is split
// 95/5 between train and test.
package classfolder

import (
	"math/rand"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/imageload/datasets"
	"github.com/Noofbiz/imageload/h5store"
	"github.com/Noofbiz/imageload/imageio"
)

// TrainFraction of every class goes to the training split (rounded down).
const TrainFraction = 0.95

// Defaults match Caltech-101 (101 categories plus background).
const (
	DefaultNumClasses = 102
	DefaultImageSize  = 224
	DefaultOutput     = "../caltech101.h5"
	DefaultGroup      = "caltech101_group"
)

type config struct {
	numClasses int
	imageSize  int
	output     string
	group      string
	level      int
	seed       int64
	progress   bool
}

// Option configures LoadCaltech.
type Option func(*config)

// WithNumClasses sets the one-hot depth and the maximum number of class folders.
func WithNumClasses(n int) Option { return func(c *config) { c.numClasses = n } }

// WithImageSize sets the (square) side every image is resized to.
func WithImageSize(side int) Option { return func(c *config) { c.imageSize = side } }

// WithOutput sets the container path. An empty path disables persistence.
func WithOutput(path string) Option { return func(c *config) { c.output = path } }

// WithGroup sets the group name inside the container.
func WithGroup(group string) Option { return func(c *config) { c.group = group } }

// WithCompression sets the gzip level of the container datasets.
func WithCompression(level int) Option { return func(c *config) { c.level = level } }

// WithSeed seeds the shuffle. Zero means a time based seed.
func WithSeed(seed int64) Option { return func(c *config) { c.seed = seed } }

// WithProgress toggles the progress bar.
func WithProgress(enabled bool) Option { return func(c *config) { c.progress = enabled } }

// classImages are the sorted image paths of one class folder.
type classImages struct {
	name  string
	paths []string
}

// LoadCaltech reads the dataset rooted at path, returns it scaled, one-hot
// encoded and shuffled, and writes it to the configured container. name is
// only used to label the returned dataset.
func LoadCaltech(name, path string, opts ...Option) (*datasets.Dataset, error) {
	cfg := &config{
		numClasses: DefaultNumClasses,
		imageSize:  DefaultImageSize,
		output:     DefaultOutput,
		group:      DefaultGroup,
		level:      h5store.DefaultLevel,
		progress:   true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.seed == 0 {
		cfg.seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(cfg.seed))

	// Counting pass: one class per sorted subfolder. The one-hot depth must
	// hold every class found.
	classes, total, err := scanClasses(path)
	if err != nil {
		return nil, err
	}
	if len(classes) > cfg.numClasses {
		return nil, errors.Wrapf(datasets.ErrTooManyClasses, "%d class folders in %s, expected at most %d", len(classes), path, cfg.numClasses)
	}
	klog.V(1).Infof("%s: %d classes, %d images", name, len(classes), total)

	side := cfg.imageSize
	sampleShape := []int{side, side, imageio.Channels}
	load := imageio.Resized(side, side)
	bar := datasets.NewProgress(total, name, cfg.progress)
	defer bar.Finish()

	// Fill pass: decode and resize each class; its first floor(k*TrainFraction)
	// images go to train, the rest to test.
	var trainParts, testParts []*datasets.Array
	var trainLabels, testLabels []int
	for classIdx, class := range classes {
		x := datasets.NewArray(append([]int{len(class.paths)}, sampleShape...)...)
		if err := imageio.ReadInto(x, class.paths, load, func() { _ = bar.Add(1) }); err != nil {
			return nil, errors.Wrapf(err, "failed to read class %s", class.name)
		}
		trainX, testX := splitClass(x)
		trainParts = append(trainParts, trainX)
		testParts = append(testParts, testX)
		trainLabels = appendRepeated(trainLabels, classIdx, trainX.Len())
		testLabels = appendRepeated(testLabels, classIdx, testX.Len())
	}

	// Stack the classes, then scale, one-hot encode and shuffle each split
	// with its own draw from rng.
	train, err := finalize(sampleShape, trainParts, trainLabels, cfg.numClasses, rng)
	if err != nil {
		return nil, err
	}
	test, err := finalize(sampleShape, testParts, testLabels, cfg.numClasses, rng)
	if err != nil {
		return nil, err
	}

	ds := &datasets.Dataset{Name: name, NumClasses: cfg.numClasses, Train: train, Test: test}

	// Persist, unless saving was disabled with an empty output path.
	if cfg.output != "" {
		if err := h5store.Save(cfg.output, cfg.group, ds, cfg.level); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// scanClasses lists class folders and their images in sorted order.
func scanClasses(root string) ([]classImages, int, error) {
	names, err := datasets.ListDirs(root)
	if err != nil {
		return nil, 0, err
	}
	classes := make([]classImages, len(names))
	total := 0
	for i, name := range names {
		dir := filepath.Join(root, name)
		files, err := datasets.ListFiles(dir)
		if err != nil {
			return nil, 0, err
		}
		paths := make([]string, len(files))
		for j, f := range files {
			paths[j] = filepath.Join(dir, f)
		}
		classes[i] = classImages{name: name, paths: paths}
		total += len(paths)
	}
	return classes, total, nil
}

// splitClass puts the first floor(k*TrainFraction) samples in train and the
// rest in test.
func splitClass(x *datasets.Array) (train, test *datasets.Array) {
	k := x.Len()
	cut := datasets.SplitPoint(k, TrainFraction)
	n := x.SampleSize()
	sampleShape := x.Shape[1:]
	train = &datasets.Array{Data: x.Data[:cut*n], Shape: append([]int{cut}, sampleShape...)}
	test = &datasets.Array{Data: x.Data[cut*n:], Shape: append([]int{k - cut}, sampleShape...)}
	return train, test
}

func appendRepeated(labels []int, value, n int) []int {
	for i := 0; i < n; i++ {
		labels = append(labels, value)
	}
	return labels
}

func finalize(sampleShape []int, parts []*datasets.Array, labels []int, numClasses int, rng *rand.Rand) (datasets.Split, error) {
	x, err := datasets.Concat(sampleShape, parts...)
	if err != nil {
		return datasets.Split{}, err
	}
	return datasets.Finalize(x, labels, numClasses, rng)
}
