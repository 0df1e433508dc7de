package cvatyolo

import (
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of a conversion run.
type Config struct {
	AnnotationFiles []string       `yaml:"annotation_files"` // CVAT annotations.xml files.
	AnnotationList  string         `yaml:"annotation_list"`  // File listing annotation files, one per line.
	OutputDir       string         `yaml:"output_dir"`       // Recreated on every run.
	Mode            Mode           `yaml:"mode"`
	Split           SplitConfig    `yaml:"split"`
	MapLabels       []string       `yaml:"map_labels"`    // old=new label substitutions.
	FilterLabels    []string       `yaml:"filter_labels"` // Labels to keep; empty keeps all.
	Export          ExportConfig   `yaml:"export"`
	PreviewDir      string         `yaml:"preview_dir"` // Empty disables previews.
	TFRecord        TFRecordConfig `yaml:"tfrecord"`
	Workers         int            `yaml:"workers"` // 0 selects 2 * runtime.NumCPU().
	Verbose         bool           `yaml:"verbose"`
}

// SplitConfig holds the subset percentages. They must add up to 100. All zero selects the default
// of the mode.
type SplitConfig struct {
	Train float64 `yaml:"train"`
	Valid float64 `yaml:"valid"`
	Test  float64 `yaml:"test"`
}

// Percentages returns the percentages in split order.
func (s SplitConfig) Percentages() []float64 {
	return []float64{s.Train, s.Valid, s.Test}
}

// ExportConfig holds the image export settings.
type ExportConfig struct {
	Symlinks         bool   `yaml:"symlinks"`
	ResizeLonger     int    `yaml:"resize_longer"`
	ResizeShorter    int    `yaml:"resize_shorter"`
	DownsampleFilter string `yaml:"downsample_filter"`
	UpsampleFilter   string `yaml:"upsample_filter"`
	JPEGQuality      int    `yaml:"jpeg_quality"`
}

// TFRecordConfig enables the additional TFRecord export of a detection dataset.
type TFRecordConfig struct {
	Enabled bool `yaml:"enabled"`
	Shards  int  `yaml:"shards"`
}

// Default splits of the two modes.
var (
	DefaultDetectionSplit      = SplitConfig{Train: 80, Valid: 20}
	DefaultClassificationSplit = SplitConfig{Train: 75, Valid: 25}
)

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		OutputDir: "dataset",
		Mode:      ModeDetect,
		Export: ExportConfig{
			DownsampleFilter: "box",
			UpsampleFilter:   "linear",
			JPEGQuality:      95,
		},
		TFRecord: TFRecordConfig{Shards: 1},
	}
}

// LoadConfig reads a YAML configuration file. Values missing from the file keep their defaults.
func LoadConfig(path string) (cfg Config, err error) {
	cfg = DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config file %q", path)
	}
	defer closeWithErrCheck(f, &err)

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse config file %q", path)
	}

	return cfg, nil
}

// Validate checks the configuration and fills in the mode dependent split default.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDetect, ModeClassify:
	default:
		return errors.Errorf("mode must be %q or %q, got %q", ModeDetect, ModeClassify, c.Mode)
	}

	if len(c.AnnotationFiles) == 0 && c.AnnotationList == "" {
		return errors.New("no annotation files given")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output_dir must not be empty")
	}

	if c.Split == (SplitConfig{}) {
		if c.Mode == ModeClassify {
			c.Split = DefaultClassificationSplit
		} else {
			c.Split = DefaultDetectionSplit
		}
	}
	var sum float64
	for _, p := range c.Split.Percentages() {
		if p < 0 {
			return errors.Errorf("split percentages must not be negative: %+v", c.Split)
		}
		sum += p
	}
	if math.Abs(sum-100) > percentageTolerance {
		return errors.Errorf("split percentages must add up to 100, got %v", sum)
	}

	if c.Export.ResizeLonger < 0 || c.Export.ResizeShorter < 0 {
		return errors.New("resize sides must not be negative")
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return errors.New("export.jpeg_quality must be between 1 and 100")
	}
	for _, name := range []string{c.Export.DownsampleFilter, c.Export.UpsampleFilter} {
		if _, err := resampleFilter(name); err != nil {
			return err
		}
	}

	if c.TFRecord.Enabled && c.Mode != ModeDetect {
		return errors.New("tfrecord export requires detect mode")
	}
	if c.TFRecord.Shards < 0 {
		return errors.New("tfrecord.shards must not be negative")
	}
	if c.Workers < 0 {
		return errors.New("workers must not be negative")
	}

	return nil
}

// ResolveAnnotationFiles returns the annotation files of the configuration followed by those of
// the list file. Blank lines of the list file are ignored.
func (c *Config) ResolveAnnotationFiles() ([]string, error) {
	files := append([]string(nil), c.AnnotationFiles...)
	if c.AnnotationList != "" {
		lines, err := readLines(c.AnnotationList)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			if l = strings.TrimSpace(l); l != "" {
				files = append(files, l)
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no annotation files given")
	}
	return files, nil
}

// exportOptions converts the export settings.
func (c *Config) exportOptions() ExportOptions {
	return ExportOptions{
		Symlink:          c.Export.Symlinks,
		LongerSide:       c.Export.ResizeLonger,
		ShorterSide:      c.Export.ResizeShorter,
		DownsampleFilter: c.Export.DownsampleFilter,
		UpsampleFilter:   c.Export.UpsampleFilter,
		JPEGQuality:      c.Export.JPEGQuality,
		Workers:          c.Workers,
	}
}
