package cvatyolo

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// WriteClassificationDataset writes the YOLO classification layout to outDir: one directory per
// split, with one sub-directory per class holding the images tagged with that class. An image with
// several tags is placed in each of their directories. outDir must exist.
func WriteClassificationDataset(outDir string, split DatasetSplit, labels *LabelRegistry,
	opts ExportOptions) error {

	var jobs []exportJob
	dsts := make(map[string]string)
	for i, name := range split.Names {
		splitDir := filepath.Join(outDir, name)
		if err := os.MkdirAll(splitDir, 0755); err != nil {
			return errors.Wrapf(err, "cannot create %q", splitDir)
		}

		for _, img := range split.Parts[i] {
			for _, tag := range img.Tags {
				if err := checkClassDirName(tag); err != nil {
					return errors.Wrapf(err, "invalid tag of image %q", img.FilePath)
				}
				classDir := filepath.Join(splitDir, tag)
				if err := os.MkdirAll(classDir, 0755); err != nil {
					return errors.Wrapf(err, "cannot create %q", classDir)
				}

				dst := filepath.Join(classDir, filepath.Base(img.FilePath))
				if other, ok := dsts[dst]; ok {
					if other == img.FilePath {
						continue // The same tag twice on one image.
					}
					return errors.Errorf("images %q and %q would both be written to %q", other,
						img.FilePath, dst)
				}
				dsts[dst] = img.FilePath
				jobs = append(jobs, exportJob{src: img.FilePath, dst: dst})
			}
		}
	}

	if err := exportImages(jobs, opts); err != nil {
		return err
	}

	log.Printf("Wrote %d classes and %d images to %s", labels.Len(), len(jobs), outDir)
	return nil
}

// checkClassDirName rejects tags that cannot be used as a single directory name below the split
// directory.
func checkClassDirName(tag string) error {
	if tag == "" || tag == "." || tag == ".." || strings.ContainsAny(tag, `/\`) ||
		strings.ContainsRune(tag, os.PathSeparator) {
		return errors.Errorf("tag %q is not a valid class directory name", tag)
	}
	return nil
}
