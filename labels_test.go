package cvatyolo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelRegistry(t *testing.T) {
	reg := NewLabelRegistry()
	assert.Equal(t, 0, reg.Len())

	assert.Equal(t, 0, reg.Register("cat"))
	assert.Equal(t, 1, reg.Register("dog"))
	assert.Equal(t, 0, reg.Register("cat"))
	assert.Equal(t, 2, reg.Len())

	i, ok := reg.Index("dog")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = reg.Index("bird")
	assert.False(t, ok)

	names := reg.Names()
	assert.Equal(t, []string{"cat", "dog"}, names)
	names[0] = "changed"
	assert.Equal(t, []string{"cat", "dog"}, reg.Names())
}

func TestBuildLabelRegistryOrder(t *testing.T) {
	images := []LabeledImage{
		{
			Boxes:    []LabeledBox{{Label: "cat"}, {Label: "dog"}},
			Polygons: []LabeledPolygon{{Label: "cat"}},
			Tags:     []string{"indoor"},
		},
		{
			Polygons: []LabeledPolygon{{Label: "bird"}},
			Boxes:    []LabeledBox{{Label: "fish"}},
			Tags:     []string{"outdoor", "indoor"},
		},
	}

	// Boxes before polygons within each image.
	reg := BuildLabelRegistry(images, ModeDetect)
	assert.Equal(t, []string{"cat", "dog", "fish", "bird"}, reg.Names())

	reg = BuildLabelRegistry(images, ModeClassify)
	assert.Equal(t, []string{"indoor", "outdoor"}, reg.Names())
}
