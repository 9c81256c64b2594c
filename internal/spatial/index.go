package spatial

import (
	"errors"
	"math"
)

// ErrBadGrid is returned by Build for an empty world or non-positive cell size.
var ErrBadGrid = errors.New("spatial: invalid grid")

// Index is a uniform grid answering "which item owns this point".
// Items are buffered by Register and rasterized by Build. Each cell keeps the
// last registered item covering it; overlaps are not resolved by priority.
// Accessed only from the simulation goroutine.
type Index[T Bounded] struct {
	items []T

	world    Rect
	cellSize float64
	cols     int
	rows     int
	cells    []int32 // item index, -1 for none
}

func NewIndex[T Bounded]() *Index[T] {
	return &Index[T]{}
}

// Register buffers an item until the next Build.
func (x *Index[T]) Register(item T) {
	x.items = append(x.items, item)
}

// Len returns the number of registered items.
func (x *Index[T]) Len() int { return len(x.items) }

// Built reports whether a grid exists.
func (x *Index[T]) Built() bool { return x.cells != nil }

// Build rasterizes every registered item into a fresh grid covering world.
func (x *Index[T]) Build(world Rect, cellSize float64) error {
	if world.Empty() || cellSize <= 0 {
		return ErrBadGrid
	}
	x.world = world
	x.cellSize = cellSize
	x.cols = int(math.Ceil(world.Width() / cellSize))
	x.rows = int(math.Ceil(world.Height() / cellSize))
	x.cells = make([]int32, x.cols*x.rows)
	for i := range x.cells {
		x.cells[i] = -1
	}

	for i, item := range x.items {
		b := item.Bounds()
		if b.Empty() || !b.Intersects(world) {
			continue
		}
		c0, r0 := x.cellOf(b.MinX, b.MinY)
		c1 := x.clampCol(int(math.Ceil((b.MaxX-world.MinX)/cellSize)) - 1)
		r1 := x.clampRow(int(math.Ceil((b.MaxY-world.MinY)/cellSize)) - 1)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				x.cells[r*x.cols+c] = int32(i)
			}
		}
	}
	return nil
}

// Lookup returns the item owning the cell under (px, py). Points outside the
// world are clamped to the nearest edge cell.
func (x *Index[T]) Lookup(px, py float64) (T, bool) {
	var zero T
	if x.cells == nil {
		return zero, false
	}
	c, r := x.cellOf(px, py)
	idx := x.cells[r*x.cols+c]
	if idx < 0 {
		return zero, false
	}
	return x.items[idx], true
}

// Clear drops the grid and every registered item.
func (x *Index[T]) Clear() {
	x.items = nil
	x.cells = nil
	x.cols, x.rows = 0, 0
}

func (x *Index[T]) cellOf(px, py float64) (int, int) {
	c := int(math.Floor((px - x.world.MinX) / x.cellSize))
	r := int(math.Floor((py - x.world.MinY) / x.cellSize))
	return x.clampCol(c), x.clampRow(r)
}

func (x *Index[T]) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= x.cols {
		return x.cols - 1
	}
	return c
}

func (x *Index[T]) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= x.rows {
		return x.rows - 1
	}
	return r
}
