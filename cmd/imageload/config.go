package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/pkg/errors"
)

// Loader names accepted by -loader.
const (
	loaderSimple   = "simple"
	loaderExternal = "external"
	loaderCaltech  = "caltech"
)

// Config holds every tunable of the command. It can be read from a JSON file
// with -config; flags given explicitly on the command line take precedence
// over the file.
type Config struct {
	Loader      string `json:"loader"`
	Dataset     string `json:"dataset"`
	Path        string `json:"path"`
	Out         string `json:"out"`
	Group       string `json:"group"`
	Seed        int64  `json:"seed"`
	Compression int    `json:"compression"`
	NumClasses  int    `json:"num_classes"`
	MaxClasses  int    `json:"max_classes"`
	ImageSize   int    `json:"image_size"`
	CacheDir    string `json:"cache_dir"`
	Progress    bool   `json:"progress"`
	Hist        string `json:"hist"`
	Tensors     bool   `json:"tensors"`
}

func defaultConfig() Config {
	return Config{
		Loader:      loaderSimple,
		Dataset:     "mnist",
		Compression: -1,
		Progress:    true,
	}
}

// parseConfig parses args into fs and merges the optional JSON config file.
// Zero values mean "use the loader default", except Compression where -1
// does.
func parseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	var flagCfg Config
	configPath := fs.String("config", "", "path to a JSON config file; explicit flags override its values")
	fs.StringVar(&flagCfg.Loader, "loader", cfg.Loader, "loader to use: simple, external or caltech")
	fs.StringVar(&flagCfg.Dataset, "dataset", cfg.Dataset, "dataset name (benchmark name for -loader simple)")
	fs.StringVar(&flagCfg.Path, "path", "", "dataset root directory (external and caltech loaders)")
	fs.StringVar(&flagCfg.Out, "out", "", "HDF5 container to write (empty = loader default, none for simple)")
	fs.StringVar(&flagCfg.Group, "group", "", "group name inside the container (empty = loader default)")
	fs.Int64Var(&flagCfg.Seed, "seed", 0, "shuffle seed (0 = time based)")
	fs.IntVar(&flagCfg.Compression, "compression", cfg.Compression, "gzip level of the container (-1 = default)")
	fs.IntVar(&flagCfg.NumClasses, "num-classes", 0, "one-hot depth (0 = loader default)")
	fs.IntVar(&flagCfg.MaxClasses, "max-classes", 0, "maximum training class folders for the external loader (0 = default)")
	fs.IntVar(&flagCfg.ImageSize, "image-size", 0, "square image side (0 = loader default)")
	fs.StringVar(&flagCfg.CacheDir, "cache-dir", "", "download cache for benchmarks (empty = user cache dir)")
	fs.BoolVar(&flagCfg.Progress, "progress", cfg.Progress, "show progress bars")
	fs.StringVar(&flagCfg.Hist, "hist", "", "if set, write a PNG bar chart of the class distribution to this path")
	fs.BoolVar(&flagCfg.Tensors, "tensors", false, "convert the splits into gomlx tensors and print their shapes")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config %s", *configPath)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config %s", *configPath)
		}
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, apply func()) {
		if set[name] {
			apply()
		}
	}
	override("loader", func() { cfg.Loader = flagCfg.Loader })
	override("dataset", func() { cfg.Dataset = flagCfg.Dataset })
	override("path", func() { cfg.Path = flagCfg.Path })
	override("out", func() { cfg.Out = flagCfg.Out })
	override("group", func() { cfg.Group = flagCfg.Group })
	override("seed", func() { cfg.Seed = flagCfg.Seed })
	override("compression", func() { cfg.Compression = flagCfg.Compression })
	override("num-classes", func() { cfg.NumClasses = flagCfg.NumClasses })
	override("max-classes", func() { cfg.MaxClasses = flagCfg.MaxClasses })
	override("image-size", func() { cfg.ImageSize = flagCfg.ImageSize })
	override("cache-dir", func() { cfg.CacheDir = flagCfg.CacheDir })
	override("progress", func() { cfg.Progress = flagCfg.Progress })
	override("hist", func() { cfg.Hist = flagCfg.Hist })
	override("tensors", func() { cfg.Tensors = flagCfg.Tensors })

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Loader {
	case loaderSimple:
	case loaderExternal, loaderCaltech:
		if c.Path == "" {
			return errors.Errorf("-path is required for the %s loader", c.Loader)
		}
	default:
		return errors.Errorf("unknown loader %q, expected simple, external or caltech", c.Loader)
	}
	if c.Compression < -1 || c.Compression > 9 {
		return errors.Errorf("compression level %d out of range [0, 9]", c.Compression)
	}
	return nil
}
