// Package layout maps N-D cell positions, expressed in per-axis widths,
// onto a single flat offset into a bank of scalars.
package layout

import "fmt"

// Layout holds the stride multipliers ("places") derived from a set of
// per-axis widths, axis 0 varying fastest.
type Layout struct {
	widths []int
	places []int
	length int
}

// New builds a Layout from per-axis widths (simplified-frame, ghost
// cells included). Panics (Misconfiguration) if any width is not
// positive.
func New(widths []int) Layout {
	if len(widths) == 0 {
		panic("layout: at least one axis is required")
	}
	places := make([]int, len(widths))
	places[0] = 1
	for i, w := range widths {
		if w <= 0 {
			panic(fmt.Sprintf("layout: axis %d width %d is not positive", i, w))
		}
		if i > 0 {
			places[i] = places[i-1] * widths[i-1]
		}
	}
	length := places[len(places)-1] * widths[len(widths)-1]

	w := make([]int, len(widths))
	copy(w, widths)

	return Layout{widths: w, places: places, length: length}
}

// NumDims returns the number of axes this layout was built from.
func (l Layout) NumDims() int { return len(l.widths) }

// Width returns the stored width of axis i.
func (l Layout) Width(i int) int { return l.widths[i] }

// Place returns the stride multiplier ("places[i]") of axis i.
func (l Layout) Place(i int) int { return l.places[i] }

// Length returns the total number of scalars addressed by this layout,
// the product of all widths.
func (l Layout) Length() int { return l.length }

// Offset computes the flat offset of an indexed (already-simplified,
// zero-based) position. There is a single return path: every
// contribution accumulates into ret before it is returned, so a
// caller can never observe a partial sum.
func (l Layout) Offset(p []int) int {
	ret := 0
	for i, c := range p {
		ret += c * l.places[i]
	}
	return ret
}
