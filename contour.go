package cvatyolo

// Topological border following on binary masks.

import (
	"image"
)

// Contour is a traced border of a foreground region.
type Contour struct {
	Points Ring // Border pixels, with the inner points of straight runs removed.
	Hole   bool // True for the border between a region and a hole inside it.
	Parent int  // Index of the immediately enclosing contour, or -1 for top level contours.
}

// chainDeltas are the 8 neighbour offsets, counterclockwise on screen (y pointing down),
// starting with east.
var chainDeltas = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

const (
	dirEast = 0
	dirWest = 4
)

// borderInfo is the bookkeeping for one border number during tracing.
type borderInfo struct {
	hole   bool
	parent int // Border number of the parent; 0 for the picture frame itself.
}

// FindContours traces all borders of the 8-connected foreground regions in bitmap (every non-zero
// pixel is foreground) and returns them with their hierarchy, in raster discovery order.
//
// The tracing follows Suzuki and Abe, "Topological structural analysis of digitized binary images
// by border following" (1985). Outer borders and hole borders alternate with nesting depth: an
// outer border's parent is a hole border (or none), and a hole border's parent is the outer border
// of the region it lies in. Points on straight horizontal, vertical and diagonal runs are
// compressed to the run end points.
func FindContours(bitmap *image.Gray) []Contour {
	b := bitmap.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	// Label grid with a zero frame around the picture: 0 background, 1 unvisited foreground,
	// +/-n visited pixels of border n.
	stride := w + 2
	f := make([]int, stride*(h+2))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bitmap.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0 {
				f[(y+1)*stride+x+1] = 1
			}
		}
	}

	t := tracer{f: f, stride: stride, origin: b.Min}
	for i, d := range chainDeltas {
		t.deltas[i] = d.X + d.Y*stride
	}

	// Border number 1 is the frame, which acts as a hole border without a parent.
	borders := []borderInfo{{}, {hole: true}}
	var contours []Contour

	for y := 1; y <= h; y++ {
		lnbd := 1
		for x := 1; x <= w; x++ {
			p := y*stride + x
			v := f[p]
			if v == 0 {
				continue
			}

			var hole, start bool
			var startDir int
			if v == 1 && f[p-1] == 0 {
				start, startDir = true, dirWest
			} else if v >= 1 && f[p+1] == 0 {
				start, hole, startDir = true, true, dirEast
				if v > 1 {
					lnbd = v
				}
			}

			if start {
				nbd := len(borders)
				parent := lnbd
				if prev := borders[lnbd]; prev.hole == hole {
					parent = prev.parent
				}
				borders = append(borders, borderInfo{hole: hole, parent: parent})

				contours = append(contours, Contour{
					Points: t.follow(p, startDir, nbd),
					Hole:   hole,
					Parent: parent - 2, // Border n is contours[n-2]; the frame maps to -1.
				})
			}

			if f[p] != 1 {
				lnbd = abs(f[p])
			}
		}
	}

	return contours
}

type tracer struct {
	f      []int
	stride int
	origin image.Point
	deltas [8]int
}

func (t *tracer) point(p int) image.Point {
	return image.Point{X: p%t.stride - 1 + t.origin.X, Y: p/t.stride - 1 + t.origin.Y}
}

// follow traces the border starting at pixel p0, labelling its pixels with nbd, and returns the
// compressed point sequence. startDir points at the zero pixel that triggered the trace.
func (t *tracer) follow(p0, startDir, nbd int) Ring {
	f := t.f

	// Look clockwise for the first non-zero neighbour.
	s := startDir
	found := false
	for k := 0; k < 8; k++ {
		s = (startDir - k) & 7
		if f[p0+t.deltas[s]] != 0 {
			found = true
			break
		}
	}
	if !found {
		// Isolated pixel.
		f[p0] = -nbd
		return Ring{t.point(p0)}
	}

	p1 := p0 + t.deltas[s]
	p3 := p0
	prevDir := s ^ 4
	var points Ring
	for {
		// Search counterclockwise, starting after the previous border pixel.
		eastZero := false
		var p4 int
		for {
			s = (s + 1) & 7
			p4 = p3 + t.deltas[s]
			if f[p4] != 0 {
				break
			}
			if s == dirEast {
				eastZero = true
			}
		}

		if eastZero {
			f[p3] = -nbd
		} else if f[p3] == 1 {
			f[p3] = nbd
		}

		// Only keep points where the chain direction changes.
		if s != prevDir {
			points = append(points, t.point(p3))
			prevDir = s
		}

		if p4 == p0 && p3 == p1 {
			break
		}
		p3 = p4
		s = (s + 4) & 7
	}

	return points
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
