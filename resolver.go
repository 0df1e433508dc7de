package cvatyolo

// Conversion of decoded masks to hole-free polygons.

import (
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// SplitAngles is the number of evenly spaced cut directions tried per piece.
const SplitAngles = 1000

// maxSplitDepth bounds the re-splitting of halves that still carry holes.
const maxSplitDepth = 32

// DroppedPiece identifies a polygon piece that could not be made hole-free.
type DroppedPiece struct {
	Contour int // Index of the top level contour in FindContours order.
	Piece   int // Index of the piece in the outer-minus-holes difference, or -1 if it failed.
}

// MaskPolygons are the hole-free polygons of one mask in its local pixel frame.
type MaskPolygons struct {
	Polygons []Ring
	Dropped  []DroppedPiece
}

// MaskToPolygons converts a decoded mask to simple polygons without holes.
//
// Only top level regions are converted; regions nested inside holes are ignored. A region with
// holes is cut along a line through the centroid of its first hole so that each half is simply
// connected. For every piece of the region minus its holes, SplitAngles directions are tried in
// order and the first one that yields exactly two polygons is used. Pieces for which no direction
// works are dropped.
func MaskToPolygons(bitmap *image.Gray, ops PolygonOps) MaskPolygons {
	contours := FindContours(bitmap)

	holes := make(map[int][]orb.Ring)
	for _, c := range contours {
		if !c.Hole || c.Parent < 0 || len(c.Points) < 3 {
			continue
		}
		r := toOrbRing(c.Points)
		if planar.Area(r) == 0 {
			continue
		}
		holes[c.Parent] = append(holes[c.Parent], r)
	}

	var res MaskPolygons
	for i, c := range contours {
		if c.Parent != -1 || c.Hole || len(c.Points) < 3 {
			continue
		}

		inner := holes[i]
		if len(inner) == 0 {
			res.Polygons = append(res.Polygons, append(Ring(nil), c.Points...))
			continue
		}

		centroid, _ := planar.CentroidArea(inner[0])
		pieces, err := ops.Difference(orb.Polygon{toOrbRing(c.Points)}, orb.Polygon(inner))
		if err != nil {
			res.Dropped = append(res.Dropped, DroppedPiece{Contour: i, Piece: -1})
			continue
		}

		for j, piece := range pieces {
			parts, ok := resolvePiece(ops, piece, centroid, 0)
			if !ok {
				res.Dropped = append(res.Dropped, DroppedPiece{Contour: i, Piece: j})
				continue
			}
			for _, part := range parts {
				if r := toPixelRing(part); len(r) >= 3 {
					res.Polygons = append(res.Polygons, r)
				}
			}
		}
	}

	return res
}

// resolvePiece cuts piece through centroid and returns the exterior rings of the hole-free parts.
func resolvePiece(ops PolygonOps, piece orb.Polygon, centroid orb.Point, depth int) ([]orb.Ring, bool) {
	if depth > maxSplitDepth {
		return nil, false
	}

	halves := splitThrough(ops, piece, centroid)
	if halves == nil {
		return nil, false
	}

	var out []orb.Ring
	for _, half := range halves {
		if len(half) == 1 {
			out = append(out, half[0])
			continue
		}
		c, _ := planar.CentroidArea(half[1])
		rings, ok := resolvePiece(ops, half, c, depth+1)
		if !ok {
			return nil, false
		}
		out = append(out, rings...)
	}
	return out, true
}

// splitThrough tries the cut directions in order and returns the first split into exactly two
// polygons, or nil.
func splitThrough(ops PolygonOps, piece orb.Polygon, c orb.Point) []orb.Polygon {
	b := piece.Bound().Extend(c)
	reach := math.Max(1000, 4*math.Hypot(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]))

	for k := 0; k < SplitAngles; k++ {
		angle := 2 * math.Pi * float64(k) / SplitAngles
		dx, dy := reach*math.Cos(angle), reach*math.Sin(angle)
		from := orb.Point{c[0] - dx, c[1] - dy}
		to := orb.Point{c[0] + dx, c[1] + dy}

		parts, err := ops.SplitByLine(piece, from, to)
		if err != nil {
			continue
		}
		if len(parts) == 2 {
			return parts
		}
	}
	return nil
}

func toOrbRing(r Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		out = append(out, orb.Point{float64(p.X), float64(p.Y)})
	}
	if len(r) > 0 && r[0] != r[len(r)-1] {
		out = append(out, out[0])
	}
	return out
}

// toPixelRing truncates the vertices of r toward zero and removes the closing vertex and
// consecutive duplicates.
func toPixelRing(r orb.Ring) Ring {
	out := make(Ring, 0, len(r))
	for _, p := range r {
		q := image.Pt(int(p[0]), int(p[1]))
		if len(out) > 0 && out[len(out)-1] == q {
			continue
		}
		out = append(out, q)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}
