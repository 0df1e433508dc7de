package cvatyolo

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bitmapFromRows builds a mask from rows of '#' (foreground) and '.' (background).
func bitmapFromRows(rows ...string) *image.Gray {
	bitmap := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				bitmap.Pix[y*bitmap.Stride+x] = MaskForeground
			}
		}
	}
	return bitmap
}

// ringBitmap is a 10x10 square with a 4x4 hole in the middle.
func ringBitmap() *image.Gray {
	rows := make([]string, 10)
	for y := range rows {
		if y >= 3 && y <= 6 {
			rows[y] = "###....###"
		} else {
			rows[y] = strings.Repeat("#", 10)
		}
	}
	return bitmapFromRows(rows...)
}

func TestFindContoursRectangle(t *testing.T) {
	bitmap := bitmapFromRows(
		"........",
		"..####..",
		"..####..",
		"..####..",
		"........",
	)

	contours := FindContours(bitmap)
	require.Len(t, contours, 1)
	assert.False(t, contours[0].Hole)
	assert.Equal(t, -1, contours[0].Parent)
	assert.Equal(t, Ring{{2, 1}, {2, 3}, {5, 3}, {5, 1}}, contours[0].Points)
}

func TestFindContoursHole(t *testing.T) {
	contours := FindContours(ringBitmap())
	require.Len(t, contours, 2)

	outer, hole := contours[0], contours[1]
	assert.False(t, outer.Hole)
	assert.Equal(t, -1, outer.Parent)
	assert.Equal(t, Ring{{0, 0}, {0, 9}, {9, 9}, {9, 0}}, outer.Points)

	assert.True(t, hole.Hole)
	assert.Equal(t, 0, hole.Parent)
	assert.Equal(t, Ring{{2, 3}, {3, 2}, {6, 2}, {7, 3}, {7, 6}, {6, 7}, {3, 7}, {2, 6}}, hole.Points)
}

func TestFindContoursNested(t *testing.T) {
	bitmap := bitmapFromRows(
		"#########",
		"#.......#",
		"#..###..#",
		"#..###..#",
		"#.......#",
		"#########",
		".........",
		"##.......",
	)

	contours := FindContours(bitmap)
	require.Len(t, contours, 4)

	// Frame, its hole, the island in the hole, and the separate bar at the bottom.
	assert.False(t, contours[0].Hole)
	assert.Equal(t, -1, contours[0].Parent)
	assert.True(t, contours[1].Hole)
	assert.Equal(t, 0, contours[1].Parent)
	assert.False(t, contours[2].Hole)
	assert.Equal(t, 1, contours[2].Parent)
	assert.False(t, contours[3].Hole)
	assert.Equal(t, -1, contours[3].Parent)
}

func TestFindContoursSmallRegions(t *testing.T) {
	bitmap := bitmapFromRows(
		"#...",
		"....",
		"..##",
	)

	contours := FindContours(bitmap)
	require.Len(t, contours, 2)
	assert.Equal(t, Ring{{0, 0}}, contours[0].Points)
	assert.Equal(t, Ring{{2, 2}, {3, 2}}, contours[1].Points)
}

func TestFindContoursEmpty(t *testing.T) {
	assert.Empty(t, FindContours(image.NewGray(image.Rect(0, 0, 4, 4))))
	assert.Empty(t, FindContours(image.NewGray(image.Rect(0, 0, 0, 0))))
}
