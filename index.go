package cvatyolo

// Reading back a written detection dataset.

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DatasetIndex is the content of a data.yaml file.
type DatasetIndex struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// DatasetInfo summarises a dataset on disk.
type DatasetInfo struct {
	Dir         string // The directory containing data.yaml.
	Index       DatasetIndex
	ImageCounts map[string]int // Number of image files per index key (train, val, test).
}

// ReadDatasetInfo parses the data.yaml file at path and counts the images of every listed split.
func ReadDatasetInfo(path string) (info DatasetInfo, err error) {
	f, err := os.Open(path)
	if err != nil {
		return DatasetInfo{}, errors.Wrapf(err, "cannot read dataset index %q", path)
	}
	defer closeWithErrCheck(f, &err)

	var index DatasetIndex
	if err := yaml.NewDecoder(f).Decode(&index); err != nil {
		return DatasetInfo{}, errors.Wrapf(err, "failed to parse dataset index %q", path)
	}
	if index.NC != len(index.Names) {
		return DatasetInfo{}, errors.Errorf("dataset index %q lists %d names for nc %d", path,
			len(index.Names), index.NC)
	}

	info = DatasetInfo{
		Dir:         filepath.Dir(path),
		Index:       index,
		ImageCounts: make(map[string]int, 3),
	}
	for i, p := range []string{index.Train, index.Val, index.Test} {
		if p == "" {
			continue
		}
		files, err := filesByExtInDir(resolveImageDir(info.Dir, p), nil)
		if err != nil {
			files = nil // A split without images may have no directory.
		}
		info.ImageCounts[dataYAMLKeys[i]] = len(files)
	}

	return info, nil
}

// resolveImageDir resolves an image directory of the index relative to the dataset directory. The
// "../" prefix written by DataYAML is relative to the images directories themselves, so it falls
// back to the dataset directory when the literal path does not exist.
func resolveImageDir(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	candidate := filepath.Join(dir, p)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return filepath.Join(dir, strings.TrimPrefix(filepath.ToSlash(p), "../"))
}
