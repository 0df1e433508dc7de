package cvatyolo

// Debug renderings of the converted annotations.

import (
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Alpha values of the preview overlays.
const (
	polygonAlpha = 128
	boxAlpha     = 255
)

// ClassColor returns a distinct colour for the class index, spacing hues by the golden angle.
func ClassColor(class int, alpha uint8) color.NRGBA {
	hue := math.Mod(float64(class)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.8, 0.95).RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}
}

// DrawAnnotations paints the pixel-space polygons of img filled, and its boxes outlined, onto dst
// in the colours of their classes.
func DrawAnnotations(dst *image.RGBA, img LabeledImage, labels *LabelRegistry) {
	gc := draw2dimg.NewGraphicContext(dst)

	classOf := func(label string) int {
		if i, ok := labels.Index(label); ok {
			return i
		}
		return -1
	}

	// Vertices are pixel indices, so they are drawn at the pixel centres.
	for _, p := range img.Polygons {
		if len(p.Unscaled) < 3 {
			continue
		}
		gc.SetFillColor(ClassColor(classOf(p.Label), polygonAlpha))
		gc.BeginPath()
		gc.MoveTo(float64(p.Unscaled[0].X)+0.5, float64(p.Unscaled[0].Y)+0.5)
		for _, pt := range p.Unscaled[1:] {
			gc.LineTo(float64(pt.X)+0.5, float64(pt.Y)+0.5)
		}
		gc.Close()
		gc.Fill()
	}

	gc.SetLineWidth(2)
	for _, b := range img.Boxes {
		r := b.Unscaled
		gc.SetStrokeColor(ClassColor(classOf(b.Label), boxAlpha))
		gc.BeginPath()
		gc.MoveTo(r.X, r.Y)
		gc.LineTo(r.X+r.Width, r.Y)
		gc.LineTo(r.X+r.Width, r.Y+r.Height)
		gc.LineTo(r.X, r.Y+r.Height)
		gc.Close()
		gc.Stroke()
	}
}

// RenderPreview draws the annotations of img over the image file and saves the result as PNG at
// path.
func RenderPreview(path string, img LabeledImage, labels *LabelRegistry) error {
	src, err := imgio.Open(img.FilePath)
	if err != nil {
		return errors.Wrapf(err, "cannot load image %q", img.FilePath)
	}

	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)
	DrawAnnotations(canvas, img, labels)

	if err := imgio.Save(path, canvas, imgio.PNGEncoder()); err != nil {
		return errors.Wrapf(err, "cannot save preview %q", path)
	}
	return nil
}

// WritePreviews renders a preview of every image with polygons or boxes into dir, named after the
// image file with a .png extension.
func WritePreviews(dir string, images []LabeledImage, labels *LabelRegistry) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "cannot create %q", dir)
	}

	count := 0
	seen := make(map[string]string, len(images))
	for _, img := range images {
		if len(img.Polygons) == 0 && len(img.Boxes) == 0 {
			continue
		}
		_, baseNoExt, _, err := splitPath(img.FilePath)
		if err != nil {
			return err
		}
		if other, ok := seen[baseNoExt]; ok {
			return errors.Errorf("images %q and %q share the preview file name %q", other,
				img.FilePath, baseNoExt+".png")
		}
		seen[baseNoExt] = img.FilePath
		if err := RenderPreview(filepath.Join(dir, baseNoExt+".png"), img, labels); err != nil {
			return err
		}
		count++
	}

	log.Printf("Wrote %d previews to %s", count, dir)
	return nil
}
