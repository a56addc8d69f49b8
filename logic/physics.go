package logic

import (
	"math"
)

// Square is an axis-aligned block of tiles, [Min, Min+Side) on both axes.
type Square struct {
	Min  Coords
	Side int
}

// BlastArea is the footprint of a detonation: side 2r+1 centred on the bomb.
func BlastArea(center Coords, radius int) Square {
	return Square{
		Min:  Coords{X: center.X - radius, Y: center.Y - radius},
		Side: 2*radius + 1,
	}
}

// Footprint is the tiles a building occupies.
func (b *Building) Footprint() Square {
	return Square{Min: b.Origin, Side: b.Width}
}

// Area is the tile count.
func (s Square) Area() int {
	return s.Side * s.Side
}

// Contains checks a single tile
func (s Square) Contains(c Coords) bool {
	return c.X >= s.Min.X && c.X < s.Min.X+s.Side &&
		c.Y >= s.Min.Y && c.Y < s.Min.Y+s.Side
}

// Overlap counts the tiles shared by two squares.
func (s Square) Overlap(o Square) int {
	return span(s.Min.X, s.Side, o.Min.X, o.Side) * span(s.Min.Y, s.Side, o.Min.Y, o.Side)
}

func span(a, aLen, b, bLen int) int {
	lo := max(a, b)
	hi := min(a+aLen, b+bLen)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// BlastDamage is the share of a bomb's damage a building receives: the
// fraction of its footprint under the blast, scaled by the multiplier and
// rounded half away from zero.
func BlastDamage(b *Building, blast Square, damage int, multiplier float64) int {
	area := b.Footprint().Area()
	if area == 0 {
		return 0
	}
	overlap := b.Footprint().Overlap(blast)
	if overlap == 0 {
		return 0
	}
	frac := float64(overlap) / float64(area)
	return int(math.Round(frac * float64(damage) * multiplier))
}
