package benchmark

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// IDX magic numbers, see http://yann.lecun.com/exdb/mnist/.
const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049
)

// idxFiles are the gzip IDX files of MNIST and Fashion-MNIST, in the order
// train images, train labels, test images, test labels.
var idxFiles = []string{
	"train-images-idx3-ubyte.gz",
	"train-labels-idx1-ubyte.gz",
	"t10k-images-idx3-ubyte.gz",
	"t10k-labels-idx1-ubyte.gz",
}

type idxImageHeader struct{ Magic, Num, Rows, Cols uint32 }

type idxLabelHeader struct{ Magic, Num uint32 }

func parseIDXSet(dir string, files []string) (train, test *Raw, err error) {
	train, err = readIDXPair(filepath.Join(dir, files[0]), filepath.Join(dir, files[1]))
	if err != nil {
		return nil, nil, err
	}
	test, err = readIDXPair(filepath.Join(dir, files[2]), filepath.Join(dir, files[3]))
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func readIDXPair(imagesPath, labelsPath string) (*Raw, error) {
	raw, err := withGzip(imagesPath, readIDXImages)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read images %s", imagesPath)
	}
	labelsRaw, err := withGzip(labelsPath, readIDXLabels)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read labels %s", labelsPath)
	}
	if len(labelsRaw.Labels) != raw.N {
		return nil, errors.Errorf("image count (%d) != label count (%d) in %s", raw.N, len(labelsRaw.Labels), imagesPath)
	}
	raw.Labels = labelsRaw.Labels
	return raw, nil
}

func withGzip(path string, read func(io.Reader) (*Raw, error)) (*Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return read(zr)
}

// readIDXImages reads an IDX image file: a big-endian header (magic, count,
// rows, cols) followed by count*rows*cols unsigned bytes.
func readIDXImages(r io.Reader) (*Raw, error) {
	var head idxImageHeader
	if err := binary.Read(r, binary.BigEndian, &head); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if head.Magic != idxImagesMagic {
		return nil, errors.Errorf("invalid magic number: got %d, want %d", head.Magic, idxImagesMagic)
	}
	n, h, w := int(head.Num), int(head.Rows), int(head.Cols)
	raw := &Raw{
		Images:   make([]byte, n*h*w),
		N:        n,
		Height:   h,
		Width:    w,
		Channels: 1,
	}
	if _, err := io.ReadFull(r, raw.Images); err != nil {
		return nil, errors.Wrapf(err, "failed to read %d images", n)
	}
	return raw, nil
}

// readIDXLabels reads an IDX label file: a big-endian header (magic, count)
// followed by count unsigned bytes.
func readIDXLabels(r io.Reader) (*Raw, error) {
	var head idxLabelHeader
	if err := binary.Read(r, binary.BigEndian, &head); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if head.Magic != idxLabelsMagic {
		return nil, errors.Errorf("invalid magic number: got %d, want %d", head.Magic, idxLabelsMagic)
	}
	buf := make([]byte, head.Num)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrapf(err, "failed to read %d labels", head.Num)
	}
	labels := make([]int, len(buf))
	for i, b := range buf {
		labels[i] = int(b)
	}
	return &Raw{Labels: labels, N: len(labels)}, nil
}
