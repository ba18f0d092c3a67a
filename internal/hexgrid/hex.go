// Package hexgrid provides axial hex coordinates, traversal primitives and
// shortest-path queries over a bounded battlefield.
package hexgrid

import "math"

// Hex is a tile position in axial coordinates. The third cube coordinate
// is derived: s = -q - r.
type Hex struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h Hex) S() int {
	return -h.Q - h.R
}

// Add returns h + o.
func (h Hex) Add(o Hex) Hex {
	return Hex{Q: h.Q + o.Q, R: h.R + o.R}
}

// Scale multiplies both axial components by k.
func (h Hex) Scale(k int) Hex {
	return Hex{Q: h.Q * k, R: h.R * k}
}

// Directions are the six neighbour offsets, counter-clockwise from east.
var Directions = [6]Hex{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbor returns the adjacent tile in direction dir (0..5, wrapped).
func (h Hex) Neighbor(dir int) Hex {
	return h.Add(Directions[((dir%6)+6)%6])
}

// Neighbors returns all six adjacent tiles.
func (h Hex) Neighbors() [6]Hex {
	var out [6]Hex
	for i, d := range Directions {
		out[i] = h.Add(d)
	}
	return out
}

// Distance returns the hex distance between two tiles.
func Distance(a, b Hex) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	return max(dq, dr, ds)
}

// Direction returns the index of the neighbour direction that best points
// from a towards b. Returns 0 when a == b.
func Direction(a, b Hex) int {
	if a == b {
		return 0
	}
	step := Line(a, b)[1]
	for i, d := range Directions {
		if a.Add(d) == step {
			return i
		}
	}
	return 0
}

// FromOffset converts odd-r offset coordinates (col, row) to axial.
func FromOffset(col, row int) Hex {
	return Hex{Q: col - (row-(row&1))/2, R: row}
}

// Offset converts the tile to odd-r offset coordinates (col, row).
func (h Hex) Offset() (col, row int) {
	return h.Q + (h.R-(h.R&1))/2, h.R
}

// Line returns the tiles on the straight line from a to b, both inclusive.
func Line(a, b Hex) []Hex {
	n := Distance(a, b)
	out := make([]Hex, 0, n+1)
	if n == 0 {
		return append(out, a)
	}
	// Nudge endpoints so points exactly on an edge round consistently.
	const eps = 1e-6
	aq, ar, as := float64(a.Q)+eps, float64(a.R)+eps, float64(a.S())-2*eps
	bq, br, bs := float64(b.Q)+eps, float64(b.R)+eps, float64(b.S())-2*eps
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		out = append(out, cubeRound(
			aq+(bq-aq)*t,
			ar+(br-ar)*t,
			as+(bs-as)*t,
		))
	}
	return out
}

// Ring returns the tiles exactly radius steps away from center.
func Ring(center Hex, radius int) []Hex {
	if radius <= 0 {
		return []Hex{center}
	}
	out := make([]Hex, 0, 6*radius)
	h := center.Add(Directions[4].Scale(radius))
	for side := 0; side < 6; side++ {
		for j := 0; j < radius; j++ {
			out = append(out, h)
			h = h.Neighbor(side)
		}
	}
	return out
}

// Spiral returns center followed by every ring up to radius.
func Spiral(center Hex, radius int) []Hex {
	out := []Hex{center}
	for r := 1; r <= radius; r++ {
		out = append(out, Ring(center, r)...)
	}
	return out
}

func cubeRound(fq, fr, fs float64) Hex {
	q := math.Round(fq)
	r := math.Round(fr)
	s := math.Round(fs)

	dq := math.Abs(q - fq)
	dr := math.Abs(r - fr)
	ds := math.Abs(s - fs)

	switch {
	case dq > dr && dq > ds:
		q = -r - s
	case dr > ds:
		r = -q - s
	}
	return Hex{Q: int(q), R: int(r)}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
