// Package topology defines the Cartesian process-mesh contract that a
// geometry.LayerGeometry is built against, plus an in-process
// reference implementation for tests and samples.
package topology

import (
	"strconv"

	"github.com/archsim/meshfield/direction"
	"github.com/archsim/meshfield/transport"
)

// Box is a half-open N-D rectangle: Min[i] <= c[i] < Max[i] per axis.
type Box struct {
	Min, Max []int
}

// Topology is the external collaborator this module consumes: it owns
// the rank-to-coordinate mapping and the partition of a GlobalBox into
// per-rank LocalBoxes, and hands out the transport communicator shared
// by every layer bound to it.
type Topology interface {
	// Dimensions returns this rank's local box within global.
	Dimensions(rank int, global Box) Box
	// Coordinates returns this rank's mesh coordinates.
	Coordinates(rank int) []int
	// RankOf resolves the rank living at coords+d, honoring
	// periodicity; ok is false when d leaves the mesh on a
	// non-periodic axis.
	RankOf(coords []int, d direction.Vector) (rank int, ok bool)
	// Periodic reports whether axis i wraps.
	Periodic(axis int) bool
	// Comm returns the shared transport communicator.
	Comm() transport.Transport
}

// Mesh is a reference Topology: an even N-D grid of rankCounts[i]
// ranks per axis, splitting GlobalBox as evenly as the axis widths
// allow. It exists for tests and samples/, not as a production
// service — a real deployment plugs in its own Topology.
type Mesh struct {
	rankCounts []int
	periodic   []bool
	comm       transport.Transport
}

// NewMesh builds a Mesh from a rank count per axis, a periodicity flag
// per axis, and the transport communicator all bound layers share.
// Panics (Misconfiguration) if the two slices disagree in length or
// any rank count is not positive.
func NewMesh(rankCounts []int, periodic []bool, comm transport.Transport) *Mesh {
	if len(rankCounts) != len(periodic) {
		panic("topology: rankCounts and periodic must have the same length")
	}
	for i, n := range rankCounts {
		if n <= 0 {
			panic("topology: rank count for axis " + strconv.Itoa(i) + " must be positive")
		}
	}
	rc := make([]int, len(rankCounts))
	copy(rc, rankCounts)
	p := make([]bool, len(periodic))
	copy(p, periodic)
	return &Mesh{rankCounts: rc, periodic: p, comm: comm}
}

// Coordinates decomposes a flat rank ID into mesh coordinates, axis 0
// varying fastest — the same convention as layout.Layout.
func (m *Mesh) Coordinates(rank int) []int {
	c := make([]int, len(m.rankCounts))
	for i, n := range m.rankCounts {
		c[i] = rank % n
		rank /= n
	}
	return c
}

func (m *Mesh) rankFromCoords(c []int) int {
	rank, place := 0, 1
	for i, v := range c {
		rank += v * place
		place *= m.rankCounts[i]
	}
	return rank
}

// RankOf resolves the rank at coords+d.
func (m *Mesh) RankOf(coords []int, d direction.Vector) (int, bool) {
	next := make([]int, len(coords))
	for i, c := range coords {
		v := c + d[i]
		n := m.rankCounts[i]
		switch {
		case v < 0:
			if !m.periodic[i] {
				return 0, false
			}
			v += n
		case v >= n:
			if !m.periodic[i] {
				return 0, false
			}
			v -= n
		}
		next[i] = v
	}
	return m.rankFromCoords(next), true
}

// Periodic reports whether axis i wraps.
func (m *Mesh) Periodic(axis int) bool { return m.periodic[axis] }

// Comm returns the shared transport communicator.
func (m *Mesh) Comm() transport.Transport { return m.comm }

// Dimensions splits global as evenly as possible across this mesh's
// rank grid, assigning any remainder to the lowest-coordinate ranks on
// each axis so that extents differ by at most one cell.
func (m *Mesh) Dimensions(rank int, global Box) Box {
	coords := m.Coordinates(rank)
	localMin := make([]int, len(coords))
	localMax := make([]int, len(coords))

	for i, coord := range coords {
		n := m.rankCounts[i]
		extent := global.Max[i] - global.Min[i]
		base := extent / n
		rem := extent % n

		start := coord*base + min(coord, rem)
		width := base
		if coord < rem {
			width++
		}
		localMin[i] = global.Min[i] + start
		localMax[i] = localMin[i] + width
	}

	return Box{Min: localMin, Max: localMax}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
