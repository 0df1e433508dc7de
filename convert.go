package cvatyolo

// The conversion pipeline.

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Result summarises a conversion run.
type Result struct {
	Images  int      // Images written, over all splits.
	Labels  []string // Class names in index order.
	Split   DatasetSplit
	Dropped int // Mask pieces that could not be converted.
}

// Convert runs the whole conversion: parse all annotation files, convert the annotations, register
// the labels, partition the images, and write the dataset to the recreated output directory.
//
// Any invalid annotation file or an impossible partition fails the run before the output directory
// is touched.
func Convert(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	paths, err := cfg.ResolveAnnotationFiles()
	if err != nil {
		return nil, err
	}

	files := make([]AnnotationFile, 0, len(paths))
	for _, p := range paths {
		af, err := LoadCVAT(p)
		if err != nil {
			return nil, err
		}
		files = append(files, af)
	}

	opts := PrepareOptions{Mode: cfg.Mode, Ops: ClipOps{}, Workers: cfg.Workers, Verbose: cfg.Verbose}
	var images LabeledImages
	for _, af := range files {
		prepared, err := PrepareImages(af, opts)
		if err != nil {
			return nil, err
		}
		images = append(images, prepared...)
	}

	if err := images.MapLabels(cfg.MapLabels); err != nil {
		return nil, err
	}
	images.FilterLabels(cfg.FilterLabels, false)

	labels := BuildLabelRegistry(images, cfg.Mode)
	log.Printf("Found %d classes: %s", labels.Len(), strings.Join(labels.Names(), ", "))

	names := DetectionSplitNames
	if cfg.Mode == ModeClassify {
		names = ClassificationSplitNames
	}
	split, err := SplitDataset(images, names, cfg.Split.Percentages())
	if err != nil {
		return nil, err
	}

	if cfg.Mode == ModeClassify {
		for _, img := range images {
			for _, tag := range img.Tags {
				if err := checkClassDirName(tag); err != nil {
					return nil, errors.Wrapf(err, "invalid tag of image %q", img.Name)
				}
			}
		}
	}

	if err := recreateDir(cfg.OutputDir, paths); err != nil {
		return nil, err
	}

	exportOpts := cfg.exportOptions()
	if cfg.Mode == ModeClassify {
		err = WriteClassificationDataset(cfg.OutputDir, split, labels, exportOpts)
	} else {
		err = WriteDetectionDataset(cfg.OutputDir, split, labels, exportOpts)
	}
	if err != nil {
		return nil, err
	}

	if cfg.PreviewDir != "" && cfg.Mode == ModeDetect {
		if err := WritePreviews(cfg.PreviewDir, images, labels); err != nil {
			return nil, err
		}
	}

	if cfg.TFRecord.Enabled {
		if err := writeSplitTFRecords(cfg.OutputDir, split, labels, cfg.TFRecord.Shards); err != nil {
			return nil, err
		}
	}

	res := &Result{Labels: labels.Names(), Split: split}
	for _, part := range split.Parts {
		res.Images += len(part)
	}
	for _, img := range images {
		res.Dropped += img.Dropped
	}
	log.Printf("Converted %d images with %d classes to %s", res.Images, len(res.Labels),
		cfg.OutputDir)

	return res, nil
}

// recreateDir removes dir with all its content and creates it again. It refuses to remove a
// directory that contains one of the annotation files.
func recreateDir(dir string, annotationFiles []string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if filepath.Dir(absDir) == absDir {
		return errors.Errorf("refusing to use the root directory %q as output", dir)
	}
	for _, f := range annotationFiles {
		absFile, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		if rel, err := filepath.Rel(absDir, absFile); err == nil && !strings.HasPrefix(rel, "..") {
			return errors.Errorf("output directory %q contains the annotation file %q", dir, f)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "cannot remove %q", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "cannot create %q", dir)
	}
	return nil
}

// writeSplitTFRecords writes a TFRecord file per non-empty split of a written detection dataset,
// reading the exported images, and the shared label map.
func writeSplitTFRecords(outDir string, split DatasetSplit, labels *LabelRegistry, shards int) error {
	dir := filepath.Join(outDir, "tfrecord")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "cannot create %q", dir)
	}

	for i, name := range split.Names {
		if len(split.Parts[i]) == 0 {
			continue
		}
		exported := make([]LabeledImage, len(split.Parts[i]))
		for j, img := range split.Parts[i] {
			img.FilePath = filepath.Join(outDir, name, "images", filepath.Base(img.FilePath))
			exported[j] = img
		}
		if err := WriteTFRecord(filepath.Join(dir, name+".record"), exported, labels, shards); err != nil {
			return err
		}
	}

	return WriteTFRecordLabelMap(filepath.Join(dir, "label_map.pbtxt"), labels)
}
