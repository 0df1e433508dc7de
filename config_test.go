package cvatyolo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
annotation_files: [a/annotations.xml, b/annotations.xml]
output_dir: out
mode: classify
split:
  train: 60
  valid: 30
  test: 10
map_labels: ["car=vehicle"]
export:
  symlinks: true
  resize_longer: 640
tfrecord:
  shards: 4
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a/annotations.xml", "b/annotations.xml"}, cfg.AnnotationFiles)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, ModeClassify, cfg.Mode)
	assert.Equal(t, SplitConfig{Train: 60, Valid: 30, Test: 10}, cfg.Split)
	assert.Equal(t, []string{"car=vehicle"}, cfg.MapLabels)
	assert.True(t, cfg.Export.Symlinks)
	assert.Equal(t, 640, cfg.Export.ResizeLonger)
	assert.Equal(t, 4, cfg.TFRecord.Shards)

	// Defaults survive for missing keys.
	assert.Equal(t, "box", cfg.Export.DownsampleFilter)
	assert.Equal(t, 95, cfg.Export.JPEGQuality)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("output: x\n"), 0644))
	_, err = LoadConfig(unknown)
	assert.Error(t, err)
}

func TestValidateSplitDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnnotationFiles = []string{"annotations.xml"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultDetectionSplit, cfg.Split)

	cfg = DefaultConfig()
	cfg.AnnotationFiles = []string{"annotations.xml"}
	cfg.Mode = ModeClassify
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultClassificationSplit, cfg.Split)
}

func TestValidateErrors(t *testing.T) {
	tests := map[string]func(c *Config){
		"mode":           func(c *Config) { c.Mode = "segment" },
		"no annotations": func(c *Config) { c.AnnotationFiles = nil },
		"output dir":     func(c *Config) { c.OutputDir = " " },
		"negative split": func(c *Config) { c.Split = SplitConfig{Train: 110, Valid: -10} },
		"split sum":      func(c *Config) { c.Split = SplitConfig{Train: 50, Valid: 20} },
		"resize":         func(c *Config) { c.Export.ResizeShorter = -1 },
		"jpeg quality":   func(c *Config) { c.Export.JPEGQuality = 0 },
		"filter":         func(c *Config) { c.Export.UpsampleFilter = "cubic" },
		"tfrecord mode": func(c *Config) {
			c.Mode = ModeClassify
			c.TFRecord.Enabled = true
		},
		"shards":  func(c *Config) { c.TFRecord.Shards = -1 },
		"workers": func(c *Config) { c.Workers = -2 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.AnnotationFiles = []string{"annotations.xml"}
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveAnnotationFiles(t *testing.T) {
	list := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, os.WriteFile(list, []byte("b.xml\n\n  c.xml  \n"), 0644))

	cfg := Config{AnnotationFiles: []string{"a.xml"}, AnnotationList: list}
	files, err := cfg.ResolveAnnotationFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xml", "b.xml", "c.xml"}, files)

	_, err = (&Config{}).ResolveAnnotationFiles()
	assert.Error(t, err)
}

func TestExportOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Export.Symlinks = true
	cfg.Export.ResizeShorter = 320
	cfg.Workers = 3

	opts := cfg.exportOptions()
	assert.True(t, opts.Symlink)
	assert.Equal(t, 320, opts.ShorterSide)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, DefaultExportOptions().DownsampleFilter, opts.DownsampleFilter)
}
