package benchmark

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// Raw is a benchmark split as distributed: 8-bit pixels in channels-last
// order and integer class labels.
type Raw struct {
	Images   []byte
	Labels   []int
	N        int
	Height   int
	Width    int
	Channels int
}

// Provider supplies raw benchmark splits by dataset name.
type Provider interface {
	Fetch(name string) (train, test *Raw, err error)
}

// source describes where a benchmark is published and how it is packaged.
type source struct {
	base  string
	files []string
	parse func(dir string, files []string) (train, test *Raw, err error)
}

var sources = map[string]source{
	MNIST: {
		base:  "https://storage.googleapis.com/cvdf-datasets/mnist/",
		files: idxFiles,
		parse: parseIDXSet,
	},
	FashionMNIST: {
		base:  "https://storage.googleapis.com/tensorflow/tf-keras-datasets/",
		files: idxFiles,
		parse: parseIDXSet,
	},
	CIFAR10: {
		base:  "https://www.cs.toronto.edu/~kriz/",
		files: []string{"cifar-10-binary.tar.gz"},
		parse: parseCIFAR10,
	},
	CIFAR100: {
		base:  "https://www.cs.toronto.edu/~kriz/",
		files: []string{"cifar-100-binary.tar.gz"},
		parse: parseCIFAR100,
	},
}

// Downloader is the default Provider. It downloads the published archives
// once into CacheDir/<name>/ and parses them from there on every Fetch.
type Downloader struct {
	// CacheDir where archives are stored. If empty, DefaultCacheDir is used.
	CacheDir string

	// Mirror, if set, replaces the base URL of every archive.
	Mirror string

	// Progress shows a progress bar while downloading.
	Progress bool

	// Client used for downloads. If nil a client with a generous timeout is used.
	Client *http.Client
}

// DefaultCacheDir returns $IMAGELOAD_CACHE if set, otherwise
// <user cache dir>/imageload/datasets.
func DefaultCacheDir() string {
	if dir := os.Getenv("IMAGELOAD_CACHE"); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "imageload", "datasets")
}

// Fetch implements Provider.
func (d *Downloader) Fetch(name string) (*Raw, *Raw, error) {
	src, ok := sources[name]
	if !ok {
		return nil, nil, errors.Errorf("no source for benchmark %q", name)
	}
	cacheDir := d.CacheDir
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	dir := filepath.Join(cacheDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create cache dir %s", dir)
	}
	base := src.base
	if d.Mirror != "" {
		base = d.Mirror
	}
	for _, file := range src.files {
		if err := d.fetchFile(base+file, filepath.Join(dir, file)); err != nil {
			return nil, nil, err
		}
	}
	return src.parse(dir, src.files)
}

// fetchFile downloads url to dst unless dst already exists. The download
// goes to a temporary file that is renamed on success.
func (d *Downloader) fetchFile(url, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to stat %s", dst)
	}

	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	klog.V(1).Infof("downloading %s to %s", url, dst)
	resp, err := client.Get(url)
	if err != nil {
		return errors.Wrapf(err, "failed to download %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("failed to download %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", dst)
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	if d.Progress {
		bar := progressbar.DefaultBytes(resp.ContentLength, fmt.Sprintf("downloading %s", filepath.Base(dst)))
		defer bar.Close()
		w = io.MultiWriter(tmp, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "failed to download %s", url)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return errors.Wrapf(err, "failed to move download into %s", dst)
	}
	return nil
}
