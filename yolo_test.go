package cvatyolo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataYAML(t *testing.T) {
	got := DataYAML(DetectionSplitNames, []string{"car", "it's"})
	want := "train: ../train/images\n" +
		"val: ../valid/images\n" +
		"test: ../test/images\n" +
		"\n" +
		"nc: 2\n" +
		"names: ['car', 'it''s']\n" +
		"\n"
	assert.Equal(t, want, got)

	assert.Equal(t, "train: ../all/images\n\nnc: 0\nnames: []\n\n", DataYAML([]string{"all"}, nil))
}

func TestBoxLine(t *testing.T) {
	assert.Equal(t, "3 0.5 0.625 0.5 0.25", BoxLine(3, Rect{X: 0.25, Y: 0.5, Width: 0.5, Height: 0.25}))
	assert.Equal(t, "0 0.5 0.5 1 1", BoxLine(0, Rect{Width: 1, Height: 1}))
}

func TestFormatBoxValue(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		1:         "1",
		0.0001:    "0.0001",
		0.00001:   "1e-05",
		-0.000025: "-2.5e-05",
		1.0 / 3:   "0.3333333333333333",
	}
	for v, want := range tests {
		assert.Equal(t, want, formatBoxValue(v), "value %v", v)
	}
}

func TestPolygonLine(t *testing.T) {
	r := RingF{{0.5, 0.25}, {1, 0}, {1.0 / 3, 0.1}}
	assert.Equal(t, "1 0.5 0.25 1 0 0.3333333333333333 0.1", PolygonLine(1, r))
	assert.Equal(t, "7", PolygonLine(7, nil))
}

func TestFormatPolygonValue(t *testing.T) {
	tests := map[float64]string{
		0:          "0",
		1:          "1",
		10:         "10",
		0.275:      "0.275",
		0.35:       "0.35",
		2.0 / 3:    "0.6666666666666666",
		-0.125:     "-0.125",
		1.0 / 1024: "0.0009765625",
	}
	for v, want := range tests {
		assert.Equal(t, want, formatPolygonValue(v), "value %v", v)
	}
}

func TestLabelLines(t *testing.T) {
	labels := NewLabelRegistry()
	labels.Register("person")
	labels.Register("car")

	img := LabeledImage{
		Name:     "a.png",
		Polygons: []LabeledPolygon{{Label: "person", Polygon: RingF{{0, 0}, {0.5, 0}, {0.5, 0.5}}}},
		Boxes:    []LabeledBox{{Label: "car", Box: Rect{Width: 0.5, Height: 0.5}}},
	}
	lines, err := LabelLines(img, labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"1 0.25 0.25 0.5 0.5", "0 0 0 0.5 0 0.5 0.5"}, lines)

	img.Boxes[0].Label = "bus"
	_, err = LabelLines(img, labels)
	assert.Error(t, err)
}

func TestWriteDetectionDataset(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeTestImage(t, filepath.Join(src, "a.png"), 8, 4)
	writeTestImage(t, filepath.Join(src, "b.png"), 8, 4)

	labels := NewLabelRegistry()
	labels.Register("car")
	split := DatasetSplit{
		Names: DetectionSplitNames,
		Parts: [][]LabeledImage{
			{{FilePath: filepath.Join(src, "a.png"), Name: "a.png",
				Boxes: []LabeledBox{{Label: "car", Box: Rect{Width: 1, Height: 1}}}}},
			{{FilePath: filepath.Join(src, "b.png"), Name: "b.png"}},
			{},
		},
	}

	require.NoError(t, WriteDetectionDataset(out, split, labels, DefaultExportOptions()))

	index, err := os.ReadFile(filepath.Join(out, DataYAMLName))
	require.NoError(t, err)
	assert.Equal(t, DataYAML(DetectionSplitNames, []string{"car"}), string(index))

	assertFileContent(t, filepath.Join(out, "train", "labels", "a.txt"), "0 0.5 0.5 1 1\n")
	assertFileContent(t, filepath.Join(out, "valid", "labels", "b.txt"), "")
	assert.FileExists(t, filepath.Join(out, "train", "images", "a.png"))
	assert.FileExists(t, filepath.Join(out, "valid", "images", "b.png"))
	assert.DirExists(t, filepath.Join(out, "test", "images"))
	assert.DirExists(t, filepath.Join(out, "test", "labels"))
}

func TestWriteDetectionDatasetSymlinks(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeTestImage(t, filepath.Join(src, "a.png"), 8, 4)

	split := DatasetSplit{
		Names: []string{"train"},
		Parts: [][]LabeledImage{{{FilePath: filepath.Join(src, "a.png"), Name: "a.png"}}},
	}
	opts := DefaultExportOptions()
	opts.Symlink = true
	require.NoError(t, WriteDetectionDataset(out, split, NewLabelRegistry(), opts))

	target, err := os.Readlink(filepath.Join(out, "train", "images", "a.png"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(target))
	assert.Equal(t, filepath.Join(src, "a.png"), target)
}

func TestWriteDetectionDatasetDuplicateStem(t *testing.T) {
	src := t.TempDir()
	writeTestImage(t, filepath.Join(src, "a.png"), 8, 4)
	writeTestImage(t, filepath.Join(src, "a.jpg"), 8, 4)

	split := DatasetSplit{
		Names: []string{"train"},
		Parts: [][]LabeledImage{{
			{FilePath: filepath.Join(src, "a.png"), Name: "a.png"},
			{FilePath: filepath.Join(src, "a.jpg"), Name: "a.jpg"},
		}},
	}
	err := WriteDetectionDataset(t.TempDir(), split, NewLabelRegistry(), DefaultExportOptions())
	assert.Error(t, err)
}

func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}
