package hexgrid

import (
	"container/heap"
	"math/rand/v2"
)

// DefaultCost is the movement cost of a tile without an explicit cost.
const DefaultCost = 1

// MaxPathIterations bounds A* expansion on large grids.
const MaxPathIterations = 4096

// Grid is a rectangular battlefield of width x height tiles laid out in
// odd-r offset coordinates.
type Grid struct {
	width  int
	height int
	cost   map[Hex]int
}

// NewGrid creates a grid with every tile at DefaultCost.
func NewGrid(width, height int) *Grid {
	return &Grid{
		width:  width,
		height: height,
		cost:   make(map[Hex]int),
	}
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Contains reports whether the tile lies on the grid.
func (g *Grid) Contains(h Hex) bool {
	col, row := h.Offset()
	return col >= 0 && col < g.width && row >= 0 && row < g.height
}

// Tile returns the tile at offset coordinates and whether it is on the grid.
func (g *Grid) Tile(col, row int) (Hex, bool) {
	h := FromOffset(col, row)
	return h, g.Contains(h)
}

// Tiles returns every tile, row by row.
func (g *Grid) Tiles() []Hex {
	out := make([]Hex, 0, g.width*g.height)
	for row := 0; row < g.height; row++ {
		for col := 0; col < g.width; col++ {
			out = append(out, FromOffset(col, row))
		}
	}
	return out
}

// SetCost sets the movement cost of a tile.
func (g *Grid) SetCost(h Hex, cost int) {
	g.cost[h] = cost
}

// Cost returns the movement cost of a tile.
func (g *Grid) Cost(h Hex) int {
	if c, ok := g.cost[h]; ok {
		return c
	}
	return DefaultCost
}

// Filter keeps only the tiles that lie on the grid.
func (g *Grid) Filter(tiles []Hex) []Hex {
	out := tiles[:0:0]
	for _, h := range tiles {
		if g.Contains(h) {
			out = append(out, h)
		}
	}
	return out
}

// RandomTiles picks n distinct tiles (or fewer if the grid is smaller)
// not present in exclude.
func (g *Grid) RandomTiles(rng *rand.Rand, n int, exclude map[Hex]bool) []Hex {
	free := make([]Hex, 0, g.width*g.height)
	for _, h := range g.Tiles() {
		if !exclude[h] {
			free = append(free, h)
		}
	}
	rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	if n > len(free) {
		n = len(free)
	}
	return free[:n]
}

// pathNode represents a node in the A* search graph.
type pathNode struct {
	hex    Hex
	parent *pathNode
	gCost  int // actual cost from start
	fCost  int // gCost + heuristic
	index  int // heap index
}

// ShortestPath returns the cheapest path from a to b inclusive, or nil if
// b is unreachable. Moving between two tiles costs the sum of both tile
// costs.
func (g *Grid) ShortestPath(a, b Hex) []Hex {
	if !g.Contains(a) || !g.Contains(b) {
		return nil
	}
	if a == b {
		return []Hex{a}
	}

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, &pathNode{hex: a, fCost: Distance(a, b)})

	best := map[Hex]int{a: 0}
	closed := make(map[Hex]struct{}, 64)

	for range MaxPathIterations {
		if open.Len() == 0 {
			return nil
		}
		current := heap.Pop(open).(*pathNode)
		if current.hex == b {
			return unwind(current)
		}
		if _, done := closed[current.hex]; done {
			continue
		}
		closed[current.hex] = struct{}{}

		for _, next := range current.hex.Neighbors() {
			if !g.Contains(next) {
				continue
			}
			if _, done := closed[next]; done {
				continue
			}
			cost := current.gCost + g.Cost(current.hex) + g.Cost(next)
			if prev, seen := best[next]; seen && prev <= cost {
				continue
			}
			best[next] = cost
			heap.Push(open, &pathNode{
				hex:    next,
				parent: current,
				gCost:  cost,
				fCost:  cost + Distance(next, b),
			})
		}
	}
	return nil
}

func unwind(n *pathNode) []Hex {
	var path []Hex
	for ; n != nil; n = n.parent {
		path = append(path, n.hex)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// nodeHeap implements heap.Interface ordered by fCost.
type nodeHeap []*pathNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].fCost == h[j].fCost {
		return h[i].gCost > h[j].gCost
	}
	return h[i].fCost < h[j].fCost
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}
