package world

import (
	"math"

	"github.com/l1jgo/spawnpool/internal/core/ecs"
	"github.com/l1jgo/spawnpool/internal/spatial"
)

// AOIGrid is a cell-based area of interest index over live entities.
// Accessed only from the simulation goroutine, no locks.
type AOIGrid struct {
	cellSize float64
	cells    map[cellKey]map[ecs.EntityID]struct{}
}

type cellKey struct {
	cx int32
	cy int32
}

func NewAOIGrid(cellSize float64) *AOIGrid {
	if cellSize <= 0 {
		cellSize = 20
	}
	return &AOIGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[ecs.EntityID]struct{}),
	}
}

func (g *AOIGrid) CellSize() float64 { return g.cellSize }

func (g *AOIGrid) key(x, y float64) cellKey {
	return cellKey{
		cx: int32(math.Floor(x / g.cellSize)),
		cy: int32(math.Floor(y / g.cellSize)),
	}
}

// Add places an entity into the grid.
func (g *AOIGrid) Add(id ecs.EntityID, x, y float64) {
	k := g.key(x, y)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an entity out of the grid.
func (g *AOIGrid) Remove(id ecs.EntityID, x, y float64) {
	k := g.key(x, y)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *AOIGrid) Move(id ecs.EntityID, oldX, oldY, newX, newY float64) {
	if g.key(oldX, oldY) == g.key(newX, newY) {
		return
	}
	g.Remove(id, oldX, oldY)
	g.Add(id, newX, newY)
}

// QueryRectInto appends all entity IDs in cells overlapping r to buf[:0].
// Caller does fine-grained containment filtering.
func (g *AOIGrid) QueryRectInto(r spatial.Rect, buf []ecs.EntityID) []ecs.EntityID {
	buf = buf[:0]
	if r.Empty() {
		return buf
	}
	lo := g.key(r.MinX, r.MinY)
	hi := g.key(r.MaxX, r.MaxY)
	if (int64(hi.cx)-int64(lo.cx)+1)*(int64(hi.cy)-int64(lo.cy)+1) > int64(len(g.cells)) {
		// Sparse grid, walk the occupied cells instead of the rectangle.
		for k, cell := range g.cells {
			if k.cx < lo.cx || k.cx > hi.cx || k.cy < lo.cy || k.cy > hi.cy {
				continue
			}
			for id := range cell {
				buf = append(buf, id)
			}
		}
		return buf
	}
	for cx := lo.cx; cx <= hi.cx; cx++ {
		for cy := lo.cy; cy <= hi.cy; cy++ {
			for id := range g.cells[cellKey{cx: cx, cy: cy}] {
				buf = append(buf, id)
			}
		}
	}
	return buf
}

// Len returns the number of occupied cells.
func (g *AOIGrid) Len() int { return len(g.cells) }
