package cvatyolo

// YOLO detection / segmentation dataset output.

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DataYAMLName is the file name of the dataset index in the output directory.
const DataYAMLName = "data.yaml"

// dataYAMLKeys are the index keys for the first, second and third split.
var dataYAMLKeys = []string{"train", "val", "test"}

// DataYAML returns the dataset index listing the image directories of the splits and the class
// names in index order.
func DataYAML(splitNames, classNames []string) string {
	var b strings.Builder
	for i, name := range splitNames {
		if i >= len(dataYAMLKeys) {
			break
		}
		fmt.Fprintf(&b, "%s: ../%s/images\n", dataYAMLKeys[i], name)
	}

	fmt.Fprintf(&b, "\nnc: %d\nnames: [", len(classNames))
	for i, name := range classNames {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("'" + strings.ReplaceAll(name, "'", "''") + "'")
	}
	b.WriteString("]\n\n")

	return b.String()
}

// formatBoxValue prints v as the shortest decimal that reads back as v. Magnitudes below 1e-4 use
// exponent notation, e.g. 1e-05.
func formatBoxValue(v float64) string {
	if v != 0 && math.Abs(v) < 1e-4 {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatPolygonValue prints v with 16 fractional digits, without trailing zeros.
func formatPolygonValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', 16, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// BoxLine returns the label line "<class> <cx> <cy> <w> <h>" of a normalised box.
func BoxLine(class int, r Rect) string {
	return fmt.Sprintf("%d %s %s %s %s", class, formatBoxValue(r.CenterX()),
		formatBoxValue(r.CenterY()), formatBoxValue(r.Width), formatBoxValue(r.Height))
}

// PolygonLine returns the label line "<class> <x1> <y1> <x2> <y2> ..." of a normalised polygon.
func PolygonLine(class int, r RingF) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(class))
	for _, p := range r {
		b.WriteByte(' ')
		b.WriteString(formatPolygonValue(p.X))
		b.WriteByte(' ')
		b.WriteString(formatPolygonValue(p.Y))
	}
	return b.String()
}

// LabelLines returns the label file lines of img: all boxes first, then all polygons.
func LabelLines(img LabeledImage, labels *LabelRegistry) ([]string, error) {
	lines := make([]string, 0, len(img.Boxes)+len(img.Polygons))
	for _, b := range img.Boxes {
		class, ok := labels.Index(b.Label)
		if !ok {
			return nil, errors.Errorf("unregistered label %q in %q", b.Label, img.Name)
		}
		lines = append(lines, BoxLine(class, b.Box))
	}
	for _, p := range img.Polygons {
		class, ok := labels.Index(p.Label)
		if !ok {
			return nil, errors.Errorf("unregistered label %q in %q", p.Label, img.Name)
		}
		lines = append(lines, PolygonLine(class, p.Polygon))
	}
	return lines, nil
}

// WriteDetectionDataset writes the YOLO detection layout to outDir: the data.yaml index, and per
// split an images directory with the exported images and a labels directory with one text file
// per image. outDir must exist.
func WriteDetectionDataset(outDir string, split DatasetSplit, labels *LabelRegistry,
	opts ExportOptions) error {

	index := DataYAML(split.Names, labels.Names())
	if err := os.WriteFile(filepath.Join(outDir, DataYAMLName), []byte(index), 0644); err != nil {
		return errors.Wrap(err, "cannot write dataset index")
	}

	var jobs []exportJob
	for i, name := range split.Names {
		imageDir := filepath.Join(outDir, name, "images")
		labelDir := filepath.Join(outDir, name, "labels")
		for _, dir := range []string{imageDir, labelDir} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.Wrapf(err, "cannot create %q", dir)
			}
		}

		seen := make(map[string]string, len(split.Parts[i]))
		for _, img := range split.Parts[i] {
			// Use the image file name with .txt extension as label file name.
			fileName := filepath.Base(img.FilePath)
			_, baseNoExt, _, err := splitPath(fileName)
			if err != nil {
				return err
			}
			if other, ok := seen[baseNoExt]; ok {
				return errors.Errorf("images %q and %q share the label file name %q in split %s",
					other, img.FilePath, baseNoExt+".txt", name)
			}
			seen[baseNoExt] = img.FilePath

			if err := writeLabelFile(filepath.Join(labelDir, baseNoExt+".txt"), img, labels); err != nil {
				return err
			}
			jobs = append(jobs, exportJob{src: img.FilePath, dst: filepath.Join(imageDir, fileName)})
		}
	}

	if err := exportImages(jobs, opts); err != nil {
		return err
	}

	log.Printf("Wrote %d classes and %d images to %s", labels.Len(), len(jobs), outDir)
	return nil
}

func writeLabelFile(path string, img LabeledImage, labels *LabelRegistry) (err error) {
	lines, err := LabelLines(img, labels)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(file, &err)

	for _, line := range lines {
		if _, err = fmt.Fprintln(file, line); err != nil {
			return err
		}
	}
	return nil
}
