// Package external loads image datasets laid out like Tiny ImageNet:
//
//	<path>/train/<class>/images/*
//	<path>/val/images/*
//	<path>/val/val_annotations.txt
//
// Training class folders define the label map; validation images are
// labeled through the annotations file and used as the test split.
package external

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

// Defaults match the Tiny ImageNet distribution.
const (
	DefaultMaxClasses    = 200
	DefaultTrainCapacity = 200 * 500
	DefaultTestCapacity  = 200 * 50
	DefaultImageSize     = 64
	DefaultOutput        = "tiny_imagenet.h5"
	DefaultGroup         = "tiny_imagenet_group"
	AnnotationsFile      = "val_annotations.txt"
)

type config struct {
	maxClasses    int
	numClasses    int
	trainCapacity int
	testCapacity  int
	imageSize     int
	output        string
	group         string
	level         int
	seed          int64
	progress      bool
}

// Option configures LoadExternal.
type Option func(*config)

// WithMaxClasses limits how many training class folders are read.
func WithMaxClasses(n int) Option { return func(c *config) { c.maxClasses = n } }

// WithNumClasses sets the one-hot depth. Defaults to the max classes.
func WithNumClasses(n int) Option { return func(c *config) { c.numClasses = n } }

// WithCapacity sets the maximum number of train and test images accepted.
func WithCapacity(train, test int) Option {
	return func(c *config) { c.trainCapacity, c.testCapacity = train, test }
}

// WithImageSize sets the expected (square) image side.
func WithImageSize(side int) Option { return func(c *config) { c.imageSize = side } }

// WithOutput sets the container path. An empty path disables persistence.
func WithOutput(path string) Option { return func(c *config) { c.output = path } }

// WithGroup sets the group name inside the container.
func WithGroup(group string) Option { return func(c *config) { c.group = group } }

// WithCompression sets the gzip level of the container datasets.
func WithCompression(level int) Option { return func(c *config) { c.level = level } }

// WithSeed seeds the shuffle. Zero means a time based seed.
func WithSeed(seed int64) Option { return func(c *config) { c.seed = seed } }

// WithProgress toggles the progress bars.
func WithProgress(enabled bool) Option { return func(c *config) { c.progress = enabled } }

// sample is one image found during the counting pass.
type sample struct {
	path  string
	label int
}

// LoadExternal reads the dataset rooted at path, returns it scaled, one-hot
// encoded and shuffled, and writes it to the configured container. name is
// only used to label the returned dataset.
func LoadExternal(name, path string, opts ...Option) (*datasets.Dataset, error) {
	cfg := &config{
		maxClasses:    DefaultMaxClasses,
		trainCapacity: DefaultTrainCapacity,
		testCapacity:  DefaultTestCapacity,
		imageSize:     DefaultImageSize,
		output:        DefaultOutput,
		group:         DefaultGroup,
		level:         h5store.DefaultLevel,
		progress:      true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.numClasses == 0 {
		cfg.numClasses = cfg.maxClasses
	}
	if cfg.seed == 0 {
		cfg.seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(cfg.seed))

	// Counting pass: list the training images of the first maxClasses
	// folders, assigning labels in sorted folder order.
	labels := datasets.NewLabelMap()
	trainSamples, err := scanTrain(filepath.Join(path, "train"), cfg.maxClasses, labels)
	if err != nil {
		return nil, err
	}
	// Refuse to go on before decoding anything if a split would not fit.
	if len(trainSamples) > cfg.trainCapacity {
		return nil, errors.Wrapf(datasets.ErrCapacityExceeded, "%d training images, capacity %d", len(trainSamples), cfg.trainCapacity)
	}
	// Validation images are labeled through the annotations file.
	testSamples, err := scanVal(filepath.Join(path, "val"), labels)
	if err != nil {
		return nil, err
	}
	if len(testSamples) > cfg.testCapacity {
		return nil, errors.Wrapf(datasets.ErrCapacityExceeded, "%d validation images, capacity %d", len(testSamples), cfg.testCapacity)
	}
	klog.V(1).Infof("%s: %d classes, %d train and %d test images", name, labels.Len(), len(trainSamples), len(testSamples))

	// Fill pass: arrays are sized from the counts, then decoded, scaled,
	// one-hot encoded and shuffled.
	train, err := readSplit(trainSamples, cfg, rng, "train")
	if err != nil {
		return nil, err
	}
	test, err := readSplit(testSamples, cfg, rng, "val")
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

// scanTrain lists the training images of the first maxClasses class folders,
// in sorted order, registering each class in labels.
func scanTrain(trainDir string, maxClasses int, labels *datasets.LabelMap) ([]sample, error) {
	classes, err := datasets.ListDirs(trainDir)
	if err != nil {
		return nil, err
	}
	if len(classes) > maxClasses {
		klog.V(1).Infof("ignoring %d class folders beyond the first %d", len(classes)-maxClasses, maxClasses)
		classes = classes[:maxClasses]
	}
	var samples []sample
	for _, class := range classes {
		label := labels.Add(class)
		imageDir := filepath.Join(trainDir, class, "images")
		files, err := datasets.ListFiles(imageDir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			samples = append(samples, sample{path: filepath.Join(imageDir, f), label: label})
		}
	}
	return samples, nil
}

// scanVal lists the validation images whose annotated class is in labels.
// An image without annotation is an error; an image annotated with an
// unknown class is skipped.
func scanVal(valDir string, labels *datasets.LabelMap) ([]sample, error) {
	manifest, err := datasets.ReadManifest(filepath.Join(valDir, AnnotationsFile))
	if err != nil {
		return nil, err
	}
	imageDir := filepath.Join(valDir, "images")
	files, err := datasets.ListFiles(imageDir)
	if err != nil {
		return nil, err
	}
	var samples []sample
	skipped := 0
	for _, f := range files {
		class, ok := manifest[f]
		if !ok {
			return nil, errors.Wrapf(datasets.ErrMissingAnnotation, "validation image %s", f)
		}
		label, ok := labels.Index(class)
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, sample{path: filepath.Join(imageDir, f), label: label})
	}
	if skipped > 0 {
		klog.V(1).Infof("skipped %d validation images of classes not in the training set", skipped)
	}
	return samples, nil
}

func readSplit(samples []sample, cfg *config, rng *rand.Rand, desc string) (datasets.Split, error) {
	side := cfg.imageSize
	x := datasets.NewArray(len(samples), side, side, imageio.Channels)
	paths := make([]string, len(samples))
	labels := make([]int, len(samples))
	for i, s := range samples {
		paths[i] = s.path
		labels[i] = s.label
	}

	bar := datasets.NewProgress(len(samples), desc, cfg.progress)
	err := imageio.ReadInto(x, paths, imageio.Fixed(side, side), func() { _ = bar.Add(1) })
	_ = bar.Finish()
	if err != nil {
		return datasets.Split{}, err
	}
	return datasets.Finalize(x, labels, cfg.numClasses, rng)
}
