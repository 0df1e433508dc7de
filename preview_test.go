package cvatyolo

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassColor(t *testing.T) {
	c0 := ClassColor(0, 128)
	assert.Equal(t, uint8(128), c0.A)
	assert.Equal(t, c0, ClassColor(0, 128))
	assert.NotEqual(t, c0, ClassColor(1, 128))
	assert.NotEqual(t, ClassColor(1, 255), ClassColor(2, 255))
}

func TestDrawAnnotations(t *testing.T) {
	labels := NewLabelRegistry()
	labels.Register("person")

	// The two halves of a ring around the hole 3..6.
	img := LabeledImage{Polygons: []LabeledPolygon{
		{Label: "person", Unscaled: Ring{{0, 0}, {9, 0}, {9, 2}, {0, 2}}},
		{Label: "person", Unscaled: Ring{{0, 7}, {9, 7}, {9, 9}, {0, 9}}},
	}}
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	DrawAnnotations(dst, img, labels)

	assert.Positive(t, dst.RGBAAt(1, 1).A)
	assert.Positive(t, dst.RGBAAt(5, 8).A)
	assert.Zero(t, dst.RGBAAt(4, 4).A)
	assert.Zero(t, dst.RGBAAt(5, 5).A)
}

func TestWritePreviews(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "previews")
	writeTestImage(t, filepath.Join(src, "a.jpg"), 16, 8)
	writeTestImage(t, filepath.Join(src, "b.png"), 16, 8)

	labels := NewLabelRegistry()
	labels.Register("car")
	images := []LabeledImage{
		{FilePath: filepath.Join(src, "a.jpg"),
			Boxes: []LabeledBox{{Label: "car", Unscaled: Rect{X: 2, Y: 2, Width: 8, Height: 4}}}},
		{FilePath: filepath.Join(src, "b.png")},
	}
	require.NoError(t, WritePreviews(out, images, labels))

	assert.FileExists(t, filepath.Join(out, "a.png"))
	assert.NoFileExists(t, filepath.Join(out, "b.png"))

	preview, err := loadImage(filepath.Join(out, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 8), preview.Bounds())

	images[0].FilePath = filepath.Join(src, "missing.png")
	assert.Error(t, WritePreviews(out, images, labels))
}

func TestWritePreviewsNameCollision(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "previews")
	for _, dir := range []string{"x", "y"} {
		require.NoError(t, os.MkdirAll(filepath.Join(src, dir), 0755))
		writeTestImage(t, filepath.Join(src, dir, "a.png"), 8, 8)
	}

	labels := NewLabelRegistry()
	labels.Register("car")
	box := []LabeledBox{{Label: "car", Unscaled: Rect{X: 1, Y: 1, Width: 4, Height: 4}}}
	images := []LabeledImage{
		{FilePath: filepath.Join(src, "x", "a.png"), Boxes: box},
		{FilePath: filepath.Join(src, "y", "a.png"), Boxes: box},
	}

	err := WritePreviews(out, images, labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(src, "y", "a.png"))
}
