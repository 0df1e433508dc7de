// Converts CVAT for images 1.1 annotation exports into YOLO detection, segmentation and
// classification datasets.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensorable/cvatyolo"
)

var (
	configFilePath string // Optional YAML configuration file.
	infoFilePath   string // A data.yaml file to summarise instead of converting.

	annotationFiles    string // A comma-separated list of annotations.xml files.
	annotationListPath string // A file listing annotations.xml files, one per line.
	outDirPath         string // The dataset output directory.
	mode               string // detect or classify.
	useSymlinks        bool   // Symlink images instead of copying them.

	trainPercent float64 // Percentage of images in the train split.
	validPercent float64 // Percentage of images in the valid split.
	testPercent  float64 // Percentage of images in the test split.

	labelMappings string // A comma-separated string of label mappings.
	filterLabels  string // A comma-separated string of labels to keep (empty keeps all).

	imageResizeLonger       int    // The target length for the longer side of the image.
	imageResizeShorter      int    // The target length for the shorter side of the image.
	imageDownsamplingFilter string // The algorithm to use when downsampling.
	imageUpsamplingFilter   string // The algorithm to use when upsampling.
	imageJPEGQuality        int    // The JPEG quality for resized JPEG outputs.

	previewDirPath string // Directory for rendered annotation previews.
	writeTFRecord  bool   // Write TFRecord files next to the YOLO dataset.
	numShardFiles  int    // The number of TFRecord shard files per split.
	numWorkers     int    // Concurrent image workers.
	verbose        bool   // Log every decoded mask.

	cfg cvatyolo.Config // The effective configuration.
)

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  convert:\t-annotations <file[,...]> | -annotations-list <file>"+
			" -out <dir> [-mode detect|classify] [-train % -valid % -test %]")
		_, _ = fmt.Fprintln(os.Stderr, "  inspect:\t-info <data.yaml>")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	defaults := cvatyolo.DefaultConfig()

	flag.StringVar(&configFilePath, "config", configFilePath,
		"The `path` to a YAML configuration file; flags given explicitly override its values")
	flag.StringVar(&infoFilePath, "info", infoFilePath,
		"Summarise the dataset described by the data.yaml at `path` and exit")

	// Input and output arguments.
	flag.StringVar(&annotationFiles, "annotations", annotationFiles,
		"Comma-separated CVAT annotation file `paths`; images must be next to their annotation file")
	flag.StringVar(&annotationListPath, "annotations-list", annotationListPath,
		"The `path` to a file listing CVAT annotation files, one per line")
	flag.StringVar(&outDirPath, "out", defaults.OutputDir,
		"The dataset output directory `path` (removed and recreated)")
	flag.StringVar(&mode, "mode", string(defaults.Mode),
		"The dataset layout {detect, classify}")
	flag.BoolVar(&useSymlinks, "symlinks", useSymlinks,
		"Symlink images into the dataset instead of copying them")

	// Split arguments. All zero selects the default of the mode.
	flag.Float64Var(&trainPercent, "train", 0, "The `percent` of images in the train split")
	flag.Float64Var(&validPercent, "valid", 0, "The `percent` of images in the validation split")
	flag.Float64Var(&testPercent, "test", 0, "The `percent` of images in the test split")

	// Label arguments.
	flag.StringVar(&labelMappings, "map-labels", labelMappings,
		"Comma-separated list of old=new label (sub-)string replacements")
	flag.StringVar(&filterLabels, "filter-labels", filterLabels,
		"Comma-separated list of labels to keep (after map-labels; empty string keeps all)")

	// Image processing arguments.
	flag.IntVar(&imageResizeLonger, "resize-longer", imageResizeLonger,
		"The target `length` for the longer side of the image (zero to keep aspect ratio)")
	flag.IntVar(&imageResizeShorter, "resize-shorter", imageResizeShorter,
		"The target `length` for the shorter side of the image (zero to keep aspect ratio)")
	flag.StringVar(&imageDownsamplingFilter, "downsample-filter", defaults.Export.DownsampleFilter,
		"The filter to use when downsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.StringVar(&imageUpsamplingFilter, "upsample-filter", defaults.Export.UpsampleFilter,
		"The filter to use when upsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.IntVar(&imageJPEGQuality, "jpeg-quality", defaults.Export.JPEGQuality,
		"The quality to use when encoding resized JPEGs [1, 100]")

	// Additional outputs.
	flag.StringVar(&previewDirPath, "previews", previewDirPath,
		"Render the converted annotations over the images into directory `path`")
	flag.BoolVar(&writeTFRecord, "tfrecord", writeTFRecord,
		"Also write TFRecord files and a label map (detect mode only)")
	flag.IntVar(&numShardFiles, "num-shards", defaults.TFRecord.Shards,
		"The number of TFRecord shard files to create per split")
	flag.IntVar(&numWorkers, "workers", numWorkers,
		"The number of concurrent image workers (zero selects two per CPU)")
	flag.BoolVar(&verbose, "verbose", verbose, "Log every decoded mask")

	// Parse and validate flags.
	flag.Parse()
	if flag.NArg() > 0 {
		printUsageAndExit("Unexpected arguments: ", strings.Join(flag.Args(), " "))
	}
	if infoFilePath != "" {
		return
	}

	cfg = defaults
	if configFilePath != "" {
		var err error
		if cfg, err = cvatyolo.LoadConfig(configFilePath); err != nil {
			log.Fatalf("%+v", err)
		}
	}

	// Apply the flags that were set explicitly, so they override the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "annotations":
			cfg.AnnotationFiles = splitList(annotationFiles)
		case "annotations-list":
			cfg.AnnotationList = annotationListPath
		case "out":
			cfg.OutputDir = outDirPath
		case "mode":
			cfg.Mode = cvatyolo.Mode(mode)
		case "symlinks":
			cfg.Export.Symlinks = useSymlinks
		case "train":
			cfg.Split.Train = trainPercent
		case "valid":
			cfg.Split.Valid = validPercent
		case "test":
			cfg.Split.Test = testPercent
		case "map-labels":
			cfg.MapLabels = splitList(labelMappings)
		case "filter-labels":
			cfg.FilterLabels = splitList(filterLabels)
		case "resize-longer":
			cfg.Export.ResizeLonger = imageResizeLonger
		case "resize-shorter":
			cfg.Export.ResizeShorter = imageResizeShorter
		case "downsample-filter":
			cfg.Export.DownsampleFilter = imageDownsamplingFilter
		case "upsample-filter":
			cfg.Export.UpsampleFilter = imageUpsamplingFilter
		case "jpeg-quality":
			cfg.Export.JPEGQuality = imageJPEGQuality
		case "previews":
			cfg.PreviewDir = previewDirPath
		case "tfrecord":
			cfg.TFRecord.Enabled = writeTFRecord
		case "num-shards":
			cfg.TFRecord.Shards = numShardFiles
		case "workers":
			cfg.Workers = numWorkers
		case "verbose":
			cfg.Verbose = verbose
		}
	})

	if err := cfg.Validate(); err != nil {
		printUsageAndExit(err)
	}
	cfg.OutputDir = filepath.Clean(cfg.OutputDir)
}

// splitList splits a comma-separated flag value, dropping empty elements.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if infoFilePath != "" {
		info, err := cvatyolo.ReadDatasetInfo(infoFilePath)
		if err != nil {
			log.Fatalf("Failed to read the dataset: %+v", err)
		}
		fmt.Printf("Dataset %s: %d classes: %s\n", info.Dir, info.Index.NC,
			strings.Join(info.Index.Names, ", "))
		for _, key := range []string{"train", "val", "test"} {
			if n, ok := info.ImageCounts[key]; ok {
				fmt.Printf("  %s: %d images\n", key, n)
			}
		}
		return
	}

	res, err := cvatyolo.Convert(cfg)
	if err != nil {
		log.Fatalf("Conversion failed: %+v", err)
	}

	for i, name := range res.Split.Names {
		log.Printf("%s: %d images", name, len(res.Split.Parts[i]))
	}
	if res.Dropped > 0 {
		log.Printf("%d mask pieces could not be converted, see the log above", res.Dropped)
	}
	log.Print("Total number of labelled images: ", res.Images)
}
