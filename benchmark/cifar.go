package benchmark

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const (
	cifarSide   = 32
	cifarPlane  = cifarSide * cifarSide
	cifarPixels = 3 * cifarPlane
)

// Binary CIFAR-10 stores <1 label byte><3072 pixel bytes> per record, split
// in five training batches and a test batch.
func parseCIFAR10(dir string, files []string) (train, test *Raw, err error) {
	var trainMembers []string
	for i := 1; i <= 5; i++ {
		trainMembers = append(trainMembers, fmt.Sprintf("cifar-10-batches-bin/data_batch_%d.bin", i))
	}
	testMembers := []string{"cifar-10-batches-bin/test_batch.bin"}
	return readCIFARArchive(filepath.Join(dir, files[0]), trainMembers, testMembers, 1, 0)
}

// Binary CIFAR-100 stores <coarse label byte><fine label byte><3072 pixel
// bytes> per record. Only the fine label is kept.
func parseCIFAR100(dir string, files []string) (train, test *Raw, err error) {
	return readCIFARArchive(filepath.Join(dir, files[0]),
		[]string{"cifar-100-binary/train.bin"}, []string{"cifar-100-binary/test.bin"}, 2, 1)
}

func readCIFARArchive(path string, trainMembers, testMembers []string, labelBytes, labelIndex int) (train, test *Raw, err error) {
	members, err := readTarMembers(path, append(append([]string(nil), trainMembers...), testMembers...))
	if err != nil {
		return nil, nil, err
	}
	train, err = parseCIFARMembers(members, trainMembers, labelBytes, labelIndex)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	test, err = parseCIFARMembers(members, testMembers, labelBytes, labelIndex)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return train, test, nil
}

// readTarMembers extracts the named members of a .tar.gz archive.
func readTarMembers(path string, names []string) (map[string][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer zr.Close()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	out := make(map[string][]byte, len(names))
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		if !wanted[hdr.Name] {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to extract %s from %s", hdr.Name, path)
		}
		out[hdr.Name] = data
	}
	for _, n := range names {
		if _, ok := out[n]; !ok {
			return nil, errors.Errorf("member %s not found in %s", n, path)
		}
	}
	return out, nil
}

func parseCIFARMembers(members map[string][]byte, names []string, labelBytes, labelIndex int) (*Raw, error) {
	raw := &Raw{Height: cifarSide, Width: cifarSide, Channels: 3}
	for _, name := range names {
		if err := appendCIFARRecords(raw, members[name], labelBytes, labelIndex); err != nil {
			return nil, errors.Wrapf(err, "in %s", name)
		}
	}
	return raw, nil
}

// appendCIFARRecords converts the channel-planar records to channels-last
// pixels and appends them to raw.
func appendCIFARRecords(raw *Raw, data []byte, labelBytes, labelIndex int) error {
	recSize := labelBytes + cifarPixels
	if len(data)%recSize != 0 {
		return errors.Errorf("size %d is not a multiple of the record size %d", len(data), recSize)
	}
	n := len(data) / recSize
	start := len(raw.Images)
	raw.Images = append(raw.Images, make([]byte, n*cifarPixels)...)
	for i := 0; i < n; i++ {
		rec := data[i*recSize : (i+1)*recSize]
		raw.Labels = append(raw.Labels, int(rec[labelIndex]))
		pix := rec[labelBytes:]
		dst := raw.Images[start+i*cifarPixels : start+(i+1)*cifarPixels]
		for c := 0; c < 3; c++ {
			for p := 0; p < cifarPlane; p++ {
				dst[p*3+c] = pix[c*cifarPlane+p]
			}
		}
	}
	raw.N += n
	return nil
}
