// Package axis defines the per-dimension geometry of a partitioned
// N-dimensional field: global and local bounds, ghost ("buffer")
// widths, periodicity, and the coordinate transforms between the
// global simulation frame and the simplified (ghost-inclusive, local)
// frame used for indexing.
package axis

import "fmt"

// Axis holds the geometry of one dimension of a LayerGeometry.
//
// The three coordinate systems in play are:
//   - global: shared by every rank, spans [GlobalMin, GlobalMax).
//   - local: the sub-interval this rank owns, [LocalMin, LocalMax).
//   - simplified: local coordinates shifted so that the left ghost
//     cell sits at index 0, spanning [SimplifiedMin, SimplifiedMax).
type Axis struct {
	GlobalMin, GlobalMax int
	LocalMin, LocalMax   int
	LeftBuffer           int
	RightBuffer          int
	Periodic             bool

	AtLeftBound, AtRightBound           bool
	SpaceContinuesLeft, SpaceContinuesRight bool

	SimplifiedMin, SimplifiedMax int
	MatchingMin, MatchingMax     int

	LocalWidth int
	Width      int
}

// New builds an Axis from the global bounds, this rank's local bounds,
// a symmetric ghost width, and the axis's periodicity flag.
//
// Panics (Misconfiguration, spec.md §7) if the local bounds do not lie
// within the global bounds or are not strictly ordered.
func New(globalMin, globalMax, localMin, localMax, buffer int, periodic bool) Axis {
	if localMin >= localMax {
		panic(fmt.Sprintf("axis: local bounds [%d, %d) are not ordered", localMin, localMax))
	}
	if localMin < globalMin || localMax > globalMax {
		panic(fmt.Sprintf("axis: local bounds [%d, %d) fall outside global bounds [%d, %d)",
			localMin, localMax, globalMin, globalMax))
	}
	if buffer <= 0 {
		panic(fmt.Sprintf("axis: buffer width must be positive, got %d", buffer))
	}

	a := Axis{
		GlobalMin:   globalMin,
		GlobalMax:   globalMax,
		LocalMin:    localMin,
		LocalMax:    localMax,
		LeftBuffer:  buffer,
		RightBuffer: buffer,
		Periodic:    periodic,
	}

	a.AtLeftBound = a.LocalMin == a.GlobalMin
	a.AtRightBound = a.LocalMax == a.GlobalMax

	a.SpaceContinuesLeft = !a.AtLeftBound || a.Periodic
	a.SpaceContinuesRight = !a.AtRightBound || a.Periodic

	a.SimplifiedMin = a.LocalMin - a.LeftBuffer
	a.SimplifiedMax = a.LocalMax + a.RightBuffer

	// matching_min/max start at the local bounds and only extend into
	// the ghost zone when this side has a genuine neighboring rank
	// (space continues) and is not itself sitting on a global bound —
	// a boundary ghost (whether periodic-wrapped or a dead buffer
	// zone) never coincides with global coordinates directly and must
	// always go through Transform.
	a.MatchingMin = a.LocalMin
	if a.SpaceContinuesLeft && !a.AtLeftBound {
		a.MatchingMin -= a.LeftBuffer
	}
	a.MatchingMax = a.LocalMax
	if a.SpaceContinuesRight && !a.AtRightBound {
		a.MatchingMax += a.RightBuffer
	}

	a.LocalWidth = a.LocalMax - a.LocalMin
	a.Width = a.LeftBuffer + a.LocalWidth + a.RightBuffer

	if a.Width <= 0 {
		panic(fmt.Sprintf("axis: computed width %d is not positive", a.Width))
	}

	return a
}

// SendRecvSize returns the extent, on this axis, of the slab that
// crosses the boundary in relative direction d (-1, 0, or +1). This is
// spec.md §4.1's send_recv_size.
func (a Axis) SendRecvSize(d int) int {
	switch {
	case d < 0:
		return a.LeftBuffer
	case d > 0:
		return a.RightBuffer
	default:
		return a.LocalWidth
	}
}

// Transform maps a global coordinate into simplified local
// coordinates, resolving wrap-around per spec.md §4.1. A coordinate
// within the ghost width of this rank's local bounds lands inside
// [SimplifiedMin, SimplifiedMax). Coordinates farther away are not
// normalized: some land outside that range, which the caller
// (ValueLayer.Get/Set/Add) treats as OutOfRange, and others alias onto
// a cell inside it.
func (a Axis) Transform(c int) int {
	switch {
	case c < a.MatchingMin:
		return a.MatchingMax + (c - a.GlobalMin)
	case c > a.MatchingMax:
		return a.MatchingMin - (a.GlobalMax - c)
	default:
		return c
	}
}

// Indexed returns the zero-based offset of a coordinate within this
// axis's Width, applying Transform first unless alreadySimplified is
// set.
func (a Axis) Indexed(c int, alreadySimplified bool) int {
	if !alreadySimplified {
		c = a.Transform(c)
	}
	return c - a.SimplifiedMin
}

// InLocal reports whether a global coordinate falls within this rank's
// local (non-ghost) bounds.
func (a Axis) InLocal(c int) bool {
	return c >= a.LocalMin && c < a.LocalMax
}

// InRange reports whether a global coordinate, once transformed, lands
// inside this axis's simplified (ghost-inclusive) bounds. A false
// result is the per-axis contribution to an OutOfRange error.
func (a Axis) InRange(c int) bool {
	t := a.Transform(c)
	return t >= a.SimplifiedMin && t < a.SimplifiedMax
}

// Report renders a one-line human-readable summary of this axis,
// mirroring the original DimensionDatum::report() debug dump.
func (a Axis) Report(index int) string {
	return fmt.Sprintf(
		"dim %d: global [%d, %d) local [%d, %d) simplified [%d, %d) matching [%d, %d) width=%d",
		index, a.GlobalMin, a.GlobalMax, a.LocalMin, a.LocalMax,
		a.SimplifiedMin, a.SimplifiedMax, a.MatchingMin, a.MatchingMax, a.Width)
}
