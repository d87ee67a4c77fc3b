// Package geometry aggregates per-axis geometry, the linear layout,
// and the neighbor table into the shape a value/diffusion layer is
// built from.
package geometry

import (
	"fmt"

	"github.com/archsim/meshfield/axis"
	"github.com/archsim/meshfield/direction"
	"github.com/archsim/meshfield/layout"
	"github.com/archsim/meshfield/neighbor"
	"github.com/archsim/meshfield/topology"
)

// Box is the global box a topology partitions: per-axis half-open
// [Min, Max) bounds, shared identically by every rank.
type Box = topology.Box

// LayerGeometry is the immutable geometry a value/diffusion layer is
// built from: one axis per dimension, the linear layout over their
// widths, and the neighbor table derived from the topology.
type LayerGeometry struct {
	Rank      int
	NumDims   int
	Axes      []axis.Axis
	Layout    layout.Layout
	Neighbors []neighbor.Link
	Dirs      direction.Table
}

// InLocalBounds reports whether a global coordinate falls in this
// rank's local (non-ghost) box on every axis.
func (g LayerGeometry) InLocalBounds(c []int) bool {
	for i, a := range g.Axes {
		if !a.InLocal(c[i]) {
			return false
		}
	}
	return true
}

// Offset computes the flat bank offset of a global coordinate,
// transforming each axis into simplified space first. The second
// return value is false if any axis falls outside its simplified
// range (OutOfRange, spec.md §7).
func (g LayerGeometry) Offset(c []int) (int, bool) {
	idx := make([]int, g.NumDims)
	for i, a := range g.Axes {
		if !a.InRange(c[i]) {
			return 0, false
		}
		idx[i] = a.Indexed(c[i], false)
	}
	return g.Layout.Offset(idx), true
}

// Builder constructs a LayerGeometry from a topology, a global box, a
// ghost width, and per-axis periodicity.
type Builder struct {
	topo     topology.Topology
	global   Box
	buffer   int
	periodic []bool
}

// NewBuilder starts a Builder bound to a topology.
func NewBuilder(topo topology.Topology) Builder {
	return Builder{topo: topo}
}

// WithGlobalBox sets the shared global box.
func (b Builder) WithGlobalBox(box Box) Builder {
	b.global = box
	return b
}

// WithBuffer sets the symmetric ghost width applied to every axis
// (asymmetric widths are out of scope, per spec.md §9).
func (b Builder) WithBuffer(buffer int) Builder {
	b.buffer = buffer
	return b
}

// WithPeriodic sets the per-axis periodicity flags.
func (b Builder) WithPeriodic(periodic []bool) Builder {
	b.periodic = periodic
	return b
}

// Build constructs the geometry for one rank. Panics
// (Misconfiguration) if the global box has no dimensions, the
// periodicity slice length does not match it, the buffer is not
// positive, or this rank's local box is empty or falls outside the
// global box. Whether the local boxes of all ranks together tile the
// global box is not checked.
func (b Builder) Build(rank int) LayerGeometry {
	numDims := len(b.global.Min)
	if numDims == 0 {
		panic("geometry: global box must have at least one dimension")
	}
	if len(b.periodic) != numDims {
		panic(fmt.Sprintf("geometry: periodic flags length %d does not match %d dimensions",
			len(b.periodic), numDims))
	}
	if b.buffer <= 0 {
		panic("geometry: buffer width must be positive")
	}

	local := b.topo.Dimensions(rank, b.global)

	axes := make([]axis.Axis, numDims)
	widths := make([]int, numDims)
	for i := 0; i < numDims; i++ {
		axes[i] = axis.New(b.global.Min[i], b.global.Max[i],
			local.Min[i], local.Max[i], b.buffer, b.periodic[i])
		widths[i] = axes[i].Width
	}

	lay := layout.New(widths)
	dirs := direction.Build(numDims)

	coords := b.topo.Coordinates(rank)
	rankOf := func(d direction.Vector) (int, bool) {
		return b.topo.RankOf(coords, d)
	}
	links := neighbor.Build(axes, lay, dirs, rankOf)

	return LayerGeometry{
		Rank:      rank,
		NumDims:   numDims,
		Axes:      axes,
		Layout:    lay,
		Neighbors: links,
		Dirs:      dirs,
	}
}
