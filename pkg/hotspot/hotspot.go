// Package hotspot groups the points above a dose threshold into connected
// regions using a KD-tree neighbor search.
package hotspot

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"iscfluence/pkg/geometry"
)

// Point is a room point tagged with its position in the input slice
type Point struct {
	X, Y, Z float64
	Index   int
}

// Compare implements the kdtree.Comparable interface
func (p Point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(Point)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p Point) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p Point) Distance(c kdtree.Comparable) float64 {
	q := c.(Point)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// Points is a collection of Point that satisfies kdtree.Interface
type Points []Point

func (p Points) Index(i int) kdtree.Comparable         { return p[i] }
func (p Points) Len() int                              { return len(p) }
func (p Points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p Points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{Points: p, Dim: d}, kdtree.MedianOfRandoms(pointPlane{Points: p, Dim: d}, 100))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for Points
type pointPlane struct {
	Points
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.Points[i].X < p.Points[j].X
	case 1:
		return p.Points[i].Y < p.Points[j].Y
	case 2:
		return p.Points[i].Z < p.Points[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{Points: p.Points[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.Points[i], p.Points[j] = p.Points[j], p.Points[i]
}

// Region is a connected group of points
type Region struct {
	// Indices are the positions of the member points in the input, ascending
	Indices []int

	// Centroid is the mean position of the members
	Centroid geometry.RoomPoint
}

// Size returns the number of points in the region
func (r Region) Size() int {
	return len(r.Indices)
}

// Regions groups positions into regions where every point is within radius
// of at least one other member. Regions are ordered by size, largest first,
// and by their first index when sizes are equal.
func Regions(positions []geometry.RoomPoint, radius float64) []Region {
	n := len(positions)
	if n == 0 {
		return nil
	}

	points := make(Points, n)
	for i, p := range positions {
		points[i] = Point{X: p.X, Y: p.Y, Z: p.Z, Index: i}
	}
	tree := kdtree.New(points, false)

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	r2 := radius * radius
	for i, p := range positions {
		keeper := kdtree.NewDistKeeper(r2)
		tree.NearestSet(keeper, Point{X: p.X, Y: p.Y, Z: p.Z, Index: i})
		for _, item := range keeper.Heap {
			// Skip the sentinel value
			if item.Comparable == nil {
				continue
			}
			j := item.Comparable.(Point).Index
			if a, b := find(i), find(j); a != b {
				if a < b {
					parent[b] = a
				} else {
					parent[a] = b
				}
			}
		}
	}

	byRoot := make(map[int]*Region)
	var roots []int
	for i := 0; i < n; i++ {
		root := find(i)
		r, ok := byRoot[root]
		if !ok {
			r = &Region{}
			byRoot[root] = r
			roots = append(roots, root)
		}
		r.Indices = append(r.Indices, i)
	}

	regions := make([]Region, 0, len(roots))
	for _, root := range roots {
		r := byRoot[root]
		var sum geometry.Vector3
		for _, idx := range r.Indices {
			sum = sum.Add(geometry.Vector3(positions[idx]))
		}
		r.Centroid = geometry.RoomPoint(sum.Mul(1 / float64(len(r.Indices))))
		regions = append(regions, *r)
	}

	sort.SliceStable(regions, func(a, b int) bool {
		return len(regions[a].Indices) > len(regions[b].Indices)
	})
	return regions
}
