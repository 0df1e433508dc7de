package cvatyolo

// Polygon set operations used to resolve mask holes.

import (
	"math"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// PolygonOps is the polygon set capability the hole resolver needs. Polygons follow the orb
// convention: the first ring is the exterior, any further rings are holes.
type PolygonOps interface {
	// Difference returns subject minus every ring of clip.
	Difference(subject, clip orb.Polygon) ([]orb.Polygon, error)

	// SplitByLine cuts poly along the infinite line through a and b and returns the resulting
	// polygons. The segment a-b should reach past the polygon on both sides.
	SplitByLine(poly orb.Polygon, a, b orb.Point) ([]orb.Polygon, error)
}

// minRingArea is the area below which result rings are treated as numerical slivers.
const minRingArea = 1e-9

// ClipOps implements PolygonOps with the Martinez clipping of polyclip-go.
type ClipOps struct{}

// Difference implements PolygonOps.
func (ClipOps) Difference(subject, clip orb.Polygon) ([]orb.Polygon, error) {
	return construct(subject, polyclip.DIFFERENCE, clip)
}

// SplitByLine implements PolygonOps by intersecting poly with the two half-planes on either side
// of the line.
func (ClipOps) SplitByLine(poly orb.Polygon, a, b orb.Point) ([]orb.Polygon, error) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	if dx == 0 && dy == 0 {
		return nil, errors.New("split line has no direction")
	}
	// Left normal, scaled to the segment length so the half-plane quads cover the polygon too.
	nx, ny := -dy, dx

	sides := [2]orb.Polygon{
		{orb.Ring{a, b, {b[0] + nx, b[1] + ny}, {a[0] + nx, a[1] + ny}, a}},
		{orb.Ring{a, {a[0] - nx, a[1] - ny}, {b[0] - nx, b[1] - ny}, b, a}},
	}

	var parts []orb.Polygon
	for _, side := range sides {
		res, err := construct(poly, polyclip.INTERSECTION, side)
		if err != nil {
			return nil, err
		}
		parts = append(parts, res...)
	}
	return parts, nil
}

func construct(subject orb.Polygon, op polyclip.Op, clip orb.Polygon) (res []orb.Polygon, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("polygon clipping failed: %v", r)
			res = nil
		}
	}()

	out := toClipPolygon(subject).Construct(op, toClipPolygon(clip))

	rings := make([]orb.Ring, 0, len(out))
	for _, c := range out {
		if r := fromClipContour(c); r != nil {
			rings = append(rings, r)
		}
	}
	return assemblePolygons(rings), nil
}

func toClipPolygon(p orb.Polygon) polyclip.Polygon {
	out := make(polyclip.Polygon, 0, len(p))
	for _, r := range p {
		n := len(r)
		if n > 1 && r[0] == r[n-1] {
			n--
		}
		c := make(polyclip.Contour, n)
		for i := 0; i < n; i++ {
			c[i] = polyclip.Point{X: r[i][0], Y: r[i][1]}
		}
		out = append(out, c)
	}
	return out
}

// fromClipContour converts a result contour to a closed ring. Degenerate contours give nil.
func fromClipContour(c polyclip.Contour) orb.Ring {
	if len(c) < 3 {
		return nil
	}
	r := make(orb.Ring, 0, len(c)+1)
	for _, p := range c {
		r = append(r, orb.Point{p.X, p.Y})
	}
	if r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	if math.Abs(planar.Area(r)) < minRingArea {
		return nil
	}
	return r
}

// assemblePolygons groups the flat contour list produced by the clipper into polygons with holes,
// using the containment depth of each ring: even depth rings are exteriors, odd depth rings are
// holes of their smallest enclosing ring.
func assemblePolygons(rings []orb.Ring) []orb.Polygon {
	areas := make([]float64, len(rings))
	for i, r := range rings {
		areas[i] = math.Abs(planar.Area(r))
	}

	depth := make([]int, len(rings))
	parent := make([]int, len(rings))
	for i := range rings {
		parent[i] = -1
		for j := range rings {
			if i == j || areas[j] <= areas[i] || !ringInside(rings[i], rings[j]) {
				continue
			}
			depth[i]++
			if parent[i] == -1 || areas[j] < areas[parent[i]] {
				parent[i] = j
			}
		}
	}

	var polys []orb.Polygon
	index := make(map[int]int) // ring index -> polys index
	for i, r := range rings {
		if depth[i]%2 == 0 {
			index[i] = len(polys)
			polys = append(polys, orb.Polygon{r})
		}
	}
	for i, r := range rings {
		if depth[i]%2 == 1 {
			if pi, ok := index[parent[i]]; ok {
				polys[pi] = append(polys[pi], r)
			}
		}
	}
	return polys
}

// ringInside reports whether every vertex and edge midpoint of inner lies inside or on outer.
func ringInside(inner, outer orb.Ring) bool {
	for i := 0; i+1 < len(inner); i++ {
		p, q := inner[i], inner[i+1]
		mid := orb.Point{(p[0] + q[0]) / 2, (p[1] + q[1]) / 2}
		if !planar.RingContains(outer, p) || !planar.RingContains(outer, mid) {
			return false
		}
	}
	return true
}
