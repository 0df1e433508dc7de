package cvatyolo

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImagesCopy(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	path := filepath.Join(src, "a.png")
	writeTestImage(t, path, 8, 4)
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	out := filepath.Join(dst, "a.png")
	require.NoError(t, exportImages([]exportJob{{src: path, dst: out}}, DefaultExportOptions()))

	want, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	st, err := os.Lstat(out)
	require.NoError(t, err)
	assert.True(t, st.Mode().IsRegular())
	assert.True(t, mtime.Equal(st.ModTime()))
}

func TestExportImagesResize(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTestImage(t, filepath.Join(src, "wide.jpg"), 40, 20)
	writeTestImage(t, filepath.Join(src, "tall.png"), 10, 20)

	opts := DefaultExportOptions()
	opts.LongerSide = 20
	opts.Symlink = true
	jobs := []exportJob{
		{src: filepath.Join(src, "wide.jpg"), dst: filepath.Join(dst, "wide.jpg")},
		{src: filepath.Join(src, "tall.png"), dst: filepath.Join(dst, "tall.png")},
	}
	require.NoError(t, exportImages(jobs, opts))

	// Resizing writes real files even when symlinks are requested.
	wide, err := imaging.Open(filepath.Join(dst, "wide.jpg"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), wide.Bounds())

	tall, err := imaging.Open(filepath.Join(dst, "tall.png"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 20), tall.Bounds())
}

func TestExportImagesErrors(t *testing.T) {
	dst := t.TempDir()
	jobs := []exportJob{{src: filepath.Join(dst, "missing.png"), dst: filepath.Join(dst, "out.png")}}
	assert.Error(t, exportImages(jobs, DefaultExportOptions()))

	opts := DefaultExportOptions()
	opts.ShorterSide = 10
	opts.DownsampleFilter = "cubic"
	assert.Error(t, exportImages(jobs, opts))

	assert.NoError(t, exportImages(nil, opts))
}

func TestResizeImage(t *testing.T) {
	img := imaging.New(40, 20, image.Black)

	resized, sw, sh, err := resizeImage(img, 0, 10, imaging.Box, imaging.Linear)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), resized.Bounds())
	assert.Equal(t, 0.5, sw)
	assert.Equal(t, 0.5, sh)

	resized, _, _, err = resizeImage(img, 80, 0, imaging.Box, imaging.Linear)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 40), resized.Bounds())

	_, _, _, err = resizeImage(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 10, 0, imaging.Box, imaging.Box)
	assert.Error(t, err)
}

func TestSplitPath(t *testing.T) {
	dir, base, ext, err := splitPath(filepath.Join("a", "b", "c.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("a", "b"), dir)
	assert.Equal(t, "c.tar", base)
	assert.Equal(t, "gz", ext)

	_, _, _, err = splitPath("noext")
	assert.Error(t, err)
}

func TestFilesByExtInDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.JPG", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.png"), 0755))

	files, err := filesByExtInDir(dir, imageExtensions)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.JPG")}, files)

	files, err = filesByExtInDir(dir, nil)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = filesByExtInDir(filepath.Join(dir, "a.png"), nil)
	assert.Error(t, err)
}
