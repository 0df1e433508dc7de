package cvatyolo

import (
	"image"
	"math"
)

// Ring is a closed polygon in pixel coordinates. The closing edge from the last to the first point
// is implicit.
type Ring []image.Point

// PointF is a point in normalised image coordinates.
type PointF struct {
	X, Y float64
}

// RingF is a closed polygon in normalised image coordinates.
type RingF []PointF

// Bounds returns the smallest rectangle containing all points of r.
func (r RingF) Bounds() Rect {
	if len(r) == 0 {
		return Rect{}
	}
	minX, minY, maxX, maxY := r[0].X, r[0].Y, r[0].X, r[0].Y
	for _, p := range r[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return RectFromLTRB(minX, minY, maxX, maxY)
}

// Rect is an axis-aligned rectangle given by its top left corner and size.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RectFromLTRB returns the rectangle spanned by the left, top, right and bottom edges. The edges
// are not reordered.
func RectFromLTRB(left, top, right, bottom float64) Rect {
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// CenterX returns the horizontal centre of the rectangle.
func (r Rect) CenterX() float64 {
	return r.X + r.Width/2
}

// CenterY returns the vertical centre of the rectangle.
func (r Rect) CenterY() float64 {
	return r.Y + r.Height/2
}

// LabeledBox is a box annotation in normalised image coordinates. Unscaled holds the same
// rectangle in pixels.
type LabeledBox struct {
	Label    string
	Box      Rect
	Unscaled Rect
}

// LabeledPolygon is a polygon annotation in normalised image coordinates. Unscaled holds the same
// polygon in pixels.
type LabeledPolygon struct {
	Label    string
	Polygon  RingF
	Unscaled Ring
}

// AdjustRing translates r from a mask's local frame into the image frame.
func AdjustRing(r Ring, left, top int) Ring {
	out := make(Ring, len(r))
	offset := image.Pt(left, top)
	for i, p := range r {
		out[i] = p.Add(offset)
	}
	return out
}

// NormalizeRing divides the x coordinates of r by width and the y coordinates by height. Points
// outside the image are not clamped.
func NormalizeRing(r Ring, width, height int) RingF {
	out := make(RingF, len(r))
	w, h := float64(width), float64(height)
	for i, p := range r {
		out[i] = PointF{X: float64(p.X) / w, Y: float64(p.Y) / h}
	}
	return out
}

// NormalizeBox converts a box annotation of an image of the given size.
func NormalizeBox(b Box, width, height int) LabeledBox {
	w, h := float64(width), float64(height)
	return LabeledBox{
		Label:    b.Label,
		Box:      RectFromLTRB(b.XTL/w, b.YTL/h, b.XBR/w, b.YBR/h),
		Unscaled: RectFromLTRB(b.XTL, b.YTL, b.XBR, b.YBR),
	}
}

// NormalizeMask converts the polygons decoded from mask m, which are relative to the mask's
// sub-region, to labelled polygons of an image of the given size.
func NormalizeMask(m Mask, local []Ring, width, height int) []LabeledPolygon {
	out := make([]LabeledPolygon, 0, len(local))
	for _, r := range local {
		adjusted := AdjustRing(r, m.Left, m.Top)
		out = append(out, LabeledPolygon{
			Label:    m.Label,
			Polygon:  NormalizeRing(adjusted, width, height),
			Unscaled: adjusted,
		})
	}
	return out
}
