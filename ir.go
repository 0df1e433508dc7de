package cvatyolo

// The intermediate annotation representation shared by all writers.

import (
	"log"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Mode selects the dataset layout.
type Mode string

// Dataset layouts.
const (
	ModeDetect   Mode = "detect"   // Boxes and segmentation polygons, one label file per image.
	ModeClassify Mode = "classify" // Image level tags, one directory per class.
)

// imageExtensions are the file types looked up next to an annotation file.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

// LabeledImage is an image file with its annotations in normalised coordinates.
type LabeledImage struct {
	FilePath string // The image file.
	Name     string // The image name in the annotation file.
	Width    int    // Annotated width in pixels.
	Height   int    // Annotated height in pixels.
	Boxes    []LabeledBox
	Polygons []LabeledPolygon
	Tags     []string
	Dropped  int // Number of mask pieces that could not be converted.
}

// PrepareOptions control PrepareImages.
type PrepareOptions struct {
	Mode    Mode
	Ops     PolygonOps // Defaults to ClipOps.
	Workers int        // Defaults to 2 * runtime.NumCPU().
	Verbose bool       // Log every decoded mask.
}

// PrepareImages locates the image files of af, which must be in the same directory as the
// annotation file, and converts their annotations. Images without a file are skipped. The result
// keeps the order of af.Images.
//
// In detection mode boxes are normalised and masks are decoded into hole-free polygons; masks with
// invalid RLE data are skipped. In classification mode only the tags are kept.
func PrepareImages(af AnnotationFile, opts PrepareOptions) (LabeledImages, error) {
	if opts.Ops == nil {
		opts.Ops = ClipOps{}
	}

	dir := filepath.Dir(af.Path)
	files, err := filesByExtInDir(dir, imageExtensions)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(files))
	for _, f := range files {
		byName[filepath.Base(f)] = f
	}
	if len(files) != len(af.Images) {
		log.Printf("Found %d image files in %q for %d annotated images", len(files), dir,
			len(af.Images))
	}

	type task struct {
		idx  int
		path string
	}
	tasks := make([]task, 0, len(af.Images))
	for i, img := range af.Images {
		path, ok := byName[img.Name]
		if !ok {
			path, ok = byName[filepath.Base(img.Name)]
		}
		if !ok {
			log.Printf("No image file for %q in %q, skipping", img.Name, dir)
			continue
		}
		if !img.Annotated() {
			log.Printf("Image %q has no annotations", img.Name)
		}
		tasks = append(tasks, task{i, path})
	}

	// Decode concurrently. Every worker writes only its own slots of results.
	results := make([]LabeledImage, len(tasks))
	numTasks := opts.Workers
	if numTasks <= 0 {
		numTasks = 2 * runtime.NumCPU()
	}
	if len(tasks) < numTasks {
		numTasks = len(tasks)
	}
	workQueue := make(chan int, 2*numTasks)
	var wg sync.WaitGroup

	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		go func() {
			defer wg.Done()
			for k := range workQueue {
				results[k] = prepareImage(af.Images[tasks[k].idx], tasks[k].path, opts)
			}
		}()
	}
	for k := range tasks {
		workQueue <- k
	}
	close(workQueue)
	wg.Wait()

	dropped := 0
	for _, r := range results {
		dropped += r.Dropped
	}
	log.Printf("Prepared %d of %d images from %s (%d mask pieces dropped)", len(results),
		len(af.Images), af.Path, dropped)

	return results, nil
}

// prepareImage converts the annotations of a single image.
func prepareImage(img Image, path string, opts PrepareOptions) LabeledImage {
	li := LabeledImage{FilePath: path, Name: img.Name, Width: img.Width, Height: img.Height}

	if opts.Mode == ModeClassify {
		for _, t := range img.Tags {
			li.Tags = append(li.Tags, t.Label)
		}
		return li
	}

	for _, b := range img.Boxes {
		li.Boxes = append(li.Boxes, NormalizeBox(b, img.Width, img.Height))
	}

	for i, m := range img.Masks {
		bitmap, err := DecodeRLE(m.RLE, m.Height, m.Width)
		if err != nil {
			log.Printf("Skipping mask %d (%s) of %q: %v", i, m.Label, img.Name, err)
			continue
		}

		mp := MaskToPolygons(bitmap, opts.Ops)
		if len(mp.Dropped) > 0 {
			log.Printf("Dropped %d pieces of mask %d (%s) of %q: %v", len(mp.Dropped), i, m.Label,
				img.Name, mp.Dropped)
			li.Dropped += len(mp.Dropped)
		}
		if opts.Verbose {
			log.Printf("Mask %d (%s) of %q: %d polygons", i, m.Label, img.Name, len(mp.Polygons))
		}

		li.Polygons = append(li.Polygons, NormalizeMask(m, mp.Polygons, img.Width, img.Height)...)
	}

	return li
}

// LabeledImages is the annotation data for a list of images.
type LabeledImages []LabeledImage

// MapLabels replaces label (sub-)strings with substitution values, as specified in mappings.
//
// The format of mappings is old=new.
func (data LabeledImages) MapLabels(mappings []string) error {
	if len(mappings) == 0 {
		return nil
	}

	// Extract the individual old and new strings to map between.
	replacements := make([]struct{ old, new string }, len(mappings))
	for i, v := range mappings {
		a := strings.Split(v, "=")
		if len(a) != 2 || a[0] == "" {
			return errors.Errorf("invalid mapping: %v", v)
		}

		replacements[i].old = a[0]
		replacements[i].new = a[1]
	}

	count := 0
	mapLabel := func(label *string) {
		old := *label
		for _, r := range replacements {
			*label = strings.Replace(*label, r.old, r.new, -1)
		}
		if *label != old {
			count++
		}
	}

	// Apply the replacements, in order, to all labels.
	for i := range data {
		d := &data[i]
		for j := range d.Boxes {
			mapLabel(&d.Boxes[j].Label)
		}
		for j := range d.Polygons {
			mapLabel(&d.Polygons[j].Label)
		}
		for j := range d.Tags {
			mapLabel(&d.Tags[j])
		}
	}

	log.Printf("The label mappings changed %d labels", count)
	return nil
}

// FilterLabels removes all annotations with a label that is not in labelNames. An empty list
// keeps everything. If requireLabel is true, images left without annotations are removed too.
func (data *LabeledImages) FilterLabels(labelNames []string, requireLabel bool) {
	if len(labelNames) == 0 && !requireLabel {
		return
	}

	keep := make(map[string]bool, len(labelNames))
	for _, n := range labelNames {
		keep[n] = true
	}
	match := func(label string) bool {
		return len(labelNames) == 0 || keep[label]
	}

	numFiles := len(*data)
	before, after := 0, 0
	out := (*data)[:0]
	for _, d := range *data {
		before += len(d.Boxes) + len(d.Polygons) + len(d.Tags)

		boxes := d.Boxes[:0]
		for _, b := range d.Boxes {
			if match(b.Label) {
				boxes = append(boxes, b)
			}
		}
		d.Boxes = boxes

		polygons := d.Polygons[:0]
		for _, p := range d.Polygons {
			if match(p.Label) {
				polygons = append(polygons, p)
			}
		}
		d.Polygons = polygons

		tags := d.Tags[:0]
		for _, t := range d.Tags {
			if match(t) {
				tags = append(tags, t)
			}
		}
		d.Tags = tags

		n := len(d.Boxes) + len(d.Polygons) + len(d.Tags)
		after += n
		if requireLabel && n == 0 {
			continue
		}
		out = append(out, d)
	}
	*data = out

	log.Printf("Filtered out %d labels and %d files", before-after, numFiles-len(*data))
}

// BuildLabelRegistry registers the labels of images in order: per image the box labels, then the
// polygon labels in detection mode, or the tag labels in classification mode.
func BuildLabelRegistry(images []LabeledImage, mode Mode) *LabelRegistry {
	reg := NewLabelRegistry()
	for _, img := range images {
		if mode == ModeClassify {
			for _, t := range img.Tags {
				reg.Register(t)
			}
			continue
		}
		for _, b := range img.Boxes {
			reg.Register(b.Label)
		}
		for _, p := range img.Polygons {
			reg.Register(p.Label)
		}
	}
	return reg
}
