// Package benchmark loads the standard image classification benchmarks
// (MNIST, Fashion-MNIST, CIFAR-10 and CIFAR-100) into scaled, one-hot
// labeled datasets.
//
// Raw data comes from a Provider; the default one downloads the published
// archives once and caches them on disk.
package benchmark

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/imageload/datasets"
)

// Benchmark names accepted by LoadSimple.
const (
	MNIST        = "mnist"
	FashionMNIST = "fashion_mnist"
	CIFAR10      = "cifar10"
	CIFAR100     = "cifar100"
)

// Format is the canonical shape and label depth of a benchmark.
type Format struct {
	Height, Width, Channels int
	NumClasses              int
}

var formats = map[string]Format{
	MNIST:        {Height: 28, Width: 28, Channels: 1, NumClasses: 10},
	FashionMNIST: {Height: 28, Width: 28, Channels: 1, NumClasses: 10},
	CIFAR10:      {Height: 32, Width: 32, Channels: 3, NumClasses: 10},
	CIFAR100:     {Height: 32, Width: 32, Channels: 3, NumClasses: 100},
}

// FormatOf returns the format of a benchmark and whether the name is known.
func FormatOf(name string) (Format, bool) {
	f, ok := formats[name]
	return f, ok
}

type config struct {
	provider Provider
	cacheDir string
	progress bool
}

// Option configures LoadSimple.
type Option func(*config)

// WithProvider replaces the default downloading provider.
func WithProvider(p Provider) Option {
	return func(c *config) { c.provider = p }
}

// WithCacheDir sets where the default provider caches downloads.
func WithCacheDir(dir string) Option {
	return func(c *config) { c.cacheDir = dir }
}

// WithProgress toggles download progress bars. On by default.
func WithProgress(enabled bool) Option {
	return func(c *config) { c.progress = enabled }
}

// LoadSimple loads a benchmark by name. Unknown names fall back to MNIST
// with a warning.
//
// Features are shaped (N,28,28,1) for MNIST and Fashion-MNIST and
// (N,32,32,3) for the CIFAR sets, scaled by datasets.PixelScale. Labels are
// one-hot with 10 classes, or 100 (fine labels) for CIFAR-100. Sample order
// is the published one.
func LoadSimple(name string, opts ...Option) (*datasets.Dataset, error) {
	cfg := &config{progress: true}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.provider == nil {
		cfg.provider = &Downloader{CacheDir: cfg.cacheDir, Progress: cfg.progress}
	}

	format, ok := formats[name]
	if !ok {
		klog.Warningf("Dataset %s not found, defaulting to mnist.", name)
		name = MNIST
		format = formats[MNIST]
	}

	rawTrain, rawTest, err := cfg.provider.Fetch(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", name)
	}
	train, err := toSplit(rawTrain, format)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to prepare %s train split", name)
	}
	test, err := toSplit(rawTest, format)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to prepare %s test split", name)
	}
	klog.V(1).Infof("loaded %s: %d train, %d test samples", name, train.Len(), test.Len())
	return &datasets.Dataset{
		Name:       name,
		NumClasses: format.NumClasses,
		Train:      train,
		Test:       test,
	}, nil
}

func toSplit(raw *Raw, f Format) (datasets.Split, error) {
	if len(raw.Labels) != raw.N {
		return datasets.Split{}, errors.Errorf("%d labels for %d images", len(raw.Labels), raw.N)
	}
	x, err := datasets.FromBytes(raw.Images, raw.N, f.Height, f.Width, f.Channels)
	if err != nil {
		return datasets.Split{}, err
	}
	return datasets.Finalize(x, raw.Labels, f.NumClasses, nil)
}
