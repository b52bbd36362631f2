// Command imageload loads an image classification dataset with one of the
// module's loaders, optionally persists it to HDF5, and prints a summary.
//
// Usage:
//
//	imageload -loader simple -dataset cifar10 -out cifar10.h5
//	imageload -loader external -path tiny-imagenet-200 -hist tiny.png
//	imageload -loader caltech -path 101_ObjectCategories -seed 7
//	imageload -config imageload.json -v 1
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/imageload/benchmark"
	"github.com/Noofbiz/imageload/classfolder"
	"github.com/Noofbiz/imageload/datasets"
	"github.com/Noofbiz/imageload/external"
	"github.com/Noofbiz/imageload/h5store"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	klog.InitFlags(fs)
	cfg, err := parseConfig(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(2)
	}
	defer klog.Flush()

	ds, err := load(cfg)
	if err != nil {
		klog.Fatalf("failed to load dataset: %v", err)
	}
	summarize(ds)

	if cfg.Hist != "" {
		if err := plotClassCounts(cfg.Hist, ds); err != nil {
			klog.Fatalf("failed to write class distribution plot: %v", err)
		}
		klog.Infof("class distribution written to %s", cfg.Hist)
	}
	if cfg.Tensors {
		for _, s := range []struct {
			name  string
			split datasets.Split
		}{{"train", ds.Train}, {"test", ds.Test}} {
			x, y := s.split.Tensors()
			fmt.Printf("%s tensors: x=%s y=%s\n", s.name, x.Shape(), y.Shape())
		}
	}
}

// load dispatches to the loader selected in cfg.
func load(cfg Config) (*datasets.Dataset, error) {
	switch cfg.Loader {
	case loaderSimple:
		opts := []benchmark.Option{benchmark.WithProgress(cfg.Progress)}
		if cfg.CacheDir != "" {
			opts = append(opts, benchmark.WithCacheDir(cfg.CacheDir))
		}
		ds, err := benchmark.LoadSimple(cfg.Dataset, opts...)
		if err != nil {
			return nil, err
		}
		// Benchmarks are only persisted on request.
		if cfg.Out != "" {
			group := cfg.Group
			if group == "" {
				group = ds.Name + "_group"
			}
			if err := h5store.Save(cfg.Out, group, ds, compression(cfg)); err != nil {
				return nil, err
			}
		}
		return ds, nil

	case loaderExternal:
		opts := []external.Option{
			external.WithProgress(cfg.Progress),
			external.WithSeed(cfg.Seed),
			external.WithCompression(compression(cfg)),
		}
		if cfg.MaxClasses > 0 {
			opts = append(opts, external.WithMaxClasses(cfg.MaxClasses))
		}
		if cfg.NumClasses > 0 {
			opts = append(opts, external.WithNumClasses(cfg.NumClasses))
		}
		if cfg.ImageSize > 0 {
			opts = append(opts, external.WithImageSize(cfg.ImageSize))
		}
		if cfg.Out != "" {
			opts = append(opts, external.WithOutput(cfg.Out))
		}
		if cfg.Group != "" {
			opts = append(opts, external.WithGroup(cfg.Group))
		}
		return external.LoadExternal(cfg.Dataset, cfg.Path, opts...)

	case loaderCaltech:
		opts := []classfolder.Option{
			classfolder.WithProgress(cfg.Progress),
			classfolder.WithSeed(cfg.Seed),
			classfolder.WithCompression(compression(cfg)),
		}
		if cfg.NumClasses > 0 {
			opts = append(opts, classfolder.WithNumClasses(cfg.NumClasses))
		}
		if cfg.ImageSize > 0 {
			opts = append(opts, classfolder.WithImageSize(cfg.ImageSize))
		}
		if cfg.Out != "" {
			opts = append(opts, classfolder.WithOutput(cfg.Out))
		}
		if cfg.Group != "" {
			opts = append(opts, classfolder.WithGroup(cfg.Group))
		}
		return classfolder.LoadCaltech(cfg.Dataset, cfg.Path, opts...)
	}
	return nil, errors.Errorf("unknown loader %q", cfg.Loader)
}

func compression(cfg Config) int {
	if cfg.Compression < 0 {
		return h5store.DefaultLevel
	}
	return cfg.Compression
}

func summarize(ds *datasets.Dataset) {
	klog.Infof("%s: %d classes", ds.Name, ds.NumClasses)
	for _, s := range []struct {
		name  string
		split datasets.Split
	}{{"train", ds.Train}, {"test", ds.Test}} {
		bytes := uint64(4 * (len(s.split.X.Data) + len(s.split.Y.Data)))
		klog.Infof("  %-5s x=%v y=%v (%s in memory)", s.name, s.split.X.Shape, s.split.Y.Shape, humanize.Bytes(bytes))
	}
}
