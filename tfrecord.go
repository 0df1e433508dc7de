package cvatyolo

// TFRecord object detection export.

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// tfClassID returns the label map ID of a class index. ID 0 is reserved by the TensorFlow object
// detection API.
func tfClassID(class int) int64 {
	return int64(class) + 1
}

// toTFFeatures converts the annotations of a single image to the TensorFlow object detection
// features. Polygons are represented by their bounding boxes.
func toTFFeatures(img LabeledImage, labels *LabelRegistry) (TFFeatureMap, error) {
	// Get the actual image width and height, which differ from the annotation after a resize.
	cfg, format, err := decodeImageConfig(img.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode the image metadata")
	}

	// Read the image data.
	imgData, err := readFile(img.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the image")
	}

	f := make(TFFeatureMap, 16)
	f["image/height"] = cfg.Height
	f["image/width"] = cfg.Width
	f["image/filename"] = img.Name
	f["image/source_id"] = img.FilePath
	f["image/encoded"] = imgData
	f["image/format"] = format

	// Prepare the per label data.
	numLabels := len(img.Boxes) + len(img.Polygons)
	xmins := make([]float32, 0, numLabels)
	ymins := make([]float32, 0, numLabels)
	xmaxs := make([]float32, 0, numLabels)
	ymaxs := make([]float32, 0, numLabels)
	classes := make([]string, 0, numLabels)
	classIDs := make([]int64, 0, numLabels)
	add := func(label string, r Rect) error {
		class, ok := labels.Index(label)
		if !ok {
			return errors.Errorf("unregistered label %q", label)
		}
		xmins = append(xmins, float32(r.X))
		ymins = append(ymins, float32(r.Y))
		xmaxs = append(xmaxs, float32(r.X+r.Width))
		ymaxs = append(ymaxs, float32(r.Y+r.Height))
		classes = append(classes, label)
		classIDs = append(classIDs, tfClassID(class))
		return nil
	}
	for _, b := range img.Boxes {
		if err := add(b.Label, b.Box); err != nil {
			return nil, err
		}
	}
	for _, p := range img.Polygons {
		if err := add(p.Label, p.Polygon.Bounds()); err != nil {
			return nil, err
		}
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs

	return f, nil
}

// WriteCustomTFRecord works like WriteTFRecord, except that it allows for the TFFeatureMap to be
// customised.
//
// Before generating a tensorflow.Example from each image and writing it to the TFRecord file, the
// image and the TFFeatureMap containing the default conversion are passed to customiseFeature,
// which may modify the feature map, as long as all of its values can be converted to
// tensorflow.Feature.
func WriteCustomTFRecord(recordFilePath string, images []LabeledImage, labels *LabelRegistry,
	numShards int, customiseFeature func(img LabeledImage, m TFFeatureMap)) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	defer func() {
		if shardFile != nil {
			closeWithErrCheck(shardFile, &err)
		}
	}()
	shardSize := int(math.Ceil(float64(len(images)) / float64(numShards)))
	shardIdx := -1
	written := 0

	// Convert and serialise one image at a time.
	for i, img := range images {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			// Close the previous shard file.
			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return err
				}
				shardFile = nil
			}

			// Create the new shard file.
			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return errors.Wrapf(err, "failed to create shard at %q", shardPath)
			}
			shardFile = f
		}

		// Convert the image to an example.
		features, err := toTFFeatures(img, labels)
		if err != nil {
			log.Printf("Failed to convert %q: %v", img.FilePath, err)
			continue
		}
		if customiseFeature != nil {
			customiseFeature(img, features)
		}
		tfExample := example.New(features)

		// Write the example.
		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			return errors.Wrapf(err, "failed to write example for %q", img.FilePath)
		}
		written++
	}

	log.Printf("Wrote %d examples to %s", written, recordFilePath)
	return nil
}

// WriteTFRecord does a streaming conversion, serialisation and file write of the images to one or
// more TFRecord files stored under recordFilePath (with suffixes added when numShards>1).
func WriteTFRecord(recordFilePath string, images []LabeledImage, labels *LabelRegistry,
	numShards int) error {
	return WriteCustomTFRecord(recordFilePath, images, labels, numShards, nil)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// WriteTFRecordLabelMap writes the registry as a StringIntLabelMap in protobuf text format.
func WriteTFRecordLabelMap(path string, labels *LabelRegistry) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create the label map file %q", path)
	}
	defer closeWithErrCheck(file, &err)

	for i, name := range labels.Names() {
		if _, err = fmt.Fprintf(file, "item {\n  id: %d\n  name: %q\n}\n", tfClassID(i), name); err != nil {
			return errors.Wrapf(err, "failed to write the label map %q", path)
		}
	}

	return nil
}
