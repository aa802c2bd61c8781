package euler

import (
	"math"
	"sort"
)

// maxSpan is the number of cells a collider may cover before the grid gives
// up on bucketing it and treats it as unbounded.
const maxSpan = 512

type cellKey struct {
	cx int32
	cy int32
	cz int32
}

// toCellCoord returns the cell index of v. ok is false when the index does
// not fit an int32, NaN included.
func toCellCoord(v, size float64) (c int32, ok bool) {
	f := math.Floor(v / size)
	if !(f >= math.MinInt32 && f <= math.MaxInt32) {
		return 0, false
	}
	return int32(f), true
}

// cellGrid buckets sensor colliders by the cells their bounding sphere
// covers. Overlap tests then only pair a collider with the sensors sharing
// one of its cells. Rebuilt on every step under the world mutex.
type cellGrid struct {
	size      float64
	cells     map[cellKey][]*collider
	unbounded []*collider // planes and huge sensors, near everything
	sensors   []*collider
}

func newCellGrid(size float64) *cellGrid {
	if size <= 0 {
		size = DefaultCellSize
	}
	return &cellGrid{
		size:  size,
		cells: make(map[cellKey][]*collider),
	}
}

func (g *cellGrid) reset() {
	clear(g.cells)
	g.unbounded = g.unbounded[:0]
	g.sensors = g.sensors[:0]
}

// span returns the cell range covered by c's bounding sphere. ok is false
// when the range is unbounded or too large to enumerate.
func (g *cellGrid) span(c *collider) (lo, hi cellKey, ok bool) {
	r := c.desc.Geometry.BoundingRadius()
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return lo, hi, false
	}
	p := c.body.pos.Translation
	var lc, hc [3]int32
	for i := 0; i < 3; i++ {
		var okLo, okHi bool
		lc[i], okLo = toCellCoord(p[i]-r, g.size)
		hc[i], okHi = toCellCoord(p[i]+r, g.size)
		if !okLo || !okHi {
			return lo, hi, false
		}
	}
	lo = cellKey{lc[0], lc[1], lc[2]}
	hi = cellKey{hc[0], hc[1], hc[2]}
	n := (int64(hi.cx) - int64(lo.cx) + 1) * (int64(hi.cy) - int64(lo.cy) + 1) * (int64(hi.cz) - int64(lo.cz) + 1)
	return lo, hi, n <= maxSpan
}

// add places a sensor collider into every cell it covers.
func (g *cellGrid) add(c *collider) {
	g.sensors = append(g.sensors, c)
	lo, hi, ok := g.span(c)
	if !ok {
		g.unbounded = append(g.unbounded, c)
		return
	}
	for x := lo.cx; x <= hi.cx; x++ {
		for y := lo.cy; y <= hi.cy; y++ {
			for z := lo.cz; z <= hi.cz; z++ {
				k := cellKey{x, y, z}
				g.cells[k] = append(g.cells[k], c)
			}
		}
	}
}

// nearby returns the sensors that may overlap c, each once and ordered by
// collider id. Caller does the exact test.
func (g *cellGrid) nearby(c *collider) []*collider {
	lo, hi, ok := g.span(c)
	if !ok {
		return g.sensors
	}
	seen := make(map[uint64]struct{})
	var result []*collider
	take := func(s *collider) {
		if _, dup := seen[s.id]; dup {
			return
		}
		seen[s.id] = struct{}{}
		result = append(result, s)
	}
	for _, s := range g.unbounded {
		take(s)
	}
	for x := lo.cx; x <= hi.cx; x++ {
		for y := lo.cy; y <= hi.cy; y++ {
			for z := lo.cz; z <= hi.cz; z++ {
				for _, s := range g.cells[cellKey{x, y, z}] {
					take(s)
				}
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].id < result[j].id })
	return result
}
