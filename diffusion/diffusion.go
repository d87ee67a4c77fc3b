// Package diffusion implements the double-buffered variant of the
// value layer: a Diffusor rewrites every local cell from its
// (2r+1)^N stencil, banks flip, and ghosts are refreshed.
package diffusion

import (
	"fmt"
	"math"

	"github.com/archsim/meshfield/geometry"
	"github.com/archsim/meshfield/transport"
)

// Diffusor computes a cell's next value from its stencil. Radius
// defaults to 1 when the implementation embeds DefaultRadius.
type Diffusor interface {
	Radius() int
	NewValue(vals []float64) float64
}

// DefaultRadius can be embedded by a Diffusor implementation that
// wants the default radius of 1 without repeating the method.
type DefaultRadius struct{}

// Radius returns 1.
func (DefaultRadius) Radius() int { return 1 }

// Layer holds two banks of length geometry.Layout.Length(); current
// selects which one diffuse reads from, per the bank-index double
// buffer in spec.md §9 (no raw pointer swap).
type Layer struct {
	geom    geometry.LayerGeometry
	banks   [2][]float64
	current int
	trans   transport.Transport
}

// New allocates both banks sized to geom and binds them to a
// transport for Synchronize.
func New(geom geometry.LayerGeometry, trans transport.Transport) *Layer {
	n := geom.Layout.Length()
	return &Layer{
		geom:  geom,
		banks: [2][]float64{make([]float64, n), make([]float64, n)},
		trans: trans,
	}
}

// Geometry returns the layer's immutable geometry.
func (l *Layer) Geometry() geometry.LayerGeometry { return l.geom }

// Bank returns the current bank, for dump/diagnostics consumers.
func (l *Layer) Bank() []float64 { return l.currentBank() }

func (l *Layer) currentBank() []float64 { return l.banks[l.current] }
func (l *Layer) otherBank() []float64    { return l.banks[1-l.current] }

// Initialize fills both banks identically with local and buffer
// values.
func (l *Layer) Initialize(localValue, bufferValue float64) {
	fillBothBanks(l.banks[0], l.banks[1], l.geom, localValue, bufferValue, true, true, 0, l.geom.NumDims-1)
}

func fillBothBanks(a, b []float64, geom geometry.LayerGeometry, localValue, bufferValue float64,
	doLocal, doBuffer bool, base, dimIndex int) {

	ax := geom.Axes[dimIndex]
	place := geom.Layout.Place(dimIndex)

	bufferEdge := ax.LeftBuffer
	localEdge := bufferEdge + ax.LocalWidth
	upperBound := localEdge + ax.RightBuffer

	ptr := base
	i := 0
	for ; i < bufferEdge; i++ {
		if doBuffer {
			if dimIndex == 0 {
				a[ptr], b[ptr] = bufferValue, bufferValue
			} else {
				fillBothBanks(a, b, geom, bufferValue, bufferValue, doBuffer, doBuffer, ptr, dimIndex-1)
			}
		}
		ptr += place
	}
	for ; i < localEdge; i++ {
		if doLocal {
			if dimIndex == 0 {
				a[ptr], b[ptr] = localValue, localValue
			} else {
				fillBothBanks(a, b, geom, localValue, bufferValue, doLocal, doBuffer, ptr, dimIndex-1)
			}
		}
		ptr += place
	}
	if doBuffer {
		for ; i < upperBound; i++ {
			if dimIndex == 0 {
				a[ptr], b[ptr] = bufferValue, bufferValue
			} else {
				fillBothBanks(a, b, geom, bufferValue, bufferValue, doBuffer, doBuffer, ptr, dimIndex-1)
			}
			ptr += place
		}
	}
}

// Diffuse applies diffusor over every local cell's (2r+1)^N stencil,
// writing the other bank, then flips banks and (unless omitSync)
// synchronizes. Panics (Misconfiguration) if the diffusor's radius
// exceeds the ghost width on any axis.
func (l *Layer) Diffuse(diffusor Diffusor, omitSync bool) {
	r := diffusor.Radius()
	for _, a := range l.geom.Axes {
		if r > a.LeftBuffer || r > a.RightBuffer {
			panic(fmt.Sprintf("diffusion: radius %d exceeds ghost width (left=%d right=%d)",
				r, a.LeftBuffer, a.RightBuffer))
		}
	}

	side := 2*r + 1
	count := 1
	for i := 0; i < l.geom.NumDims; i++ {
		count *= side
	}
	vals := make([]float64, count)

	cur, oth := l.currentBank(), l.otherBank()
	diffuseDim(cur, oth, vals, diffusor, l.geom, r, 0, l.geom.NumDims-1)

	l.current = 1 - l.current

	if !omitSync {
		l.Synchronize()
	}
}

func diffuseDim(cur, oth, vals []float64, diffusor Diffusor, geom geometry.LayerGeometry, r, base, dimIndex int) {
	a := geom.Axes[dimIndex]
	place := geom.Layout.Place(dimIndex)

	bufferEdge := a.LeftBuffer
	localEdge := bufferEdge + a.LocalWidth

	ptr := base
	i := 0
	for ; i < bufferEdge; i++ {
		ptr += place
	}
	for ; i < localEdge; i++ {
		if dimIndex == 0 {
			dest := vals[:0]
			dest = grabStencil(dest, cur, geom, r, ptr, geom.NumDims-1)
			oth[ptr] = diffusor.NewValue(dest)
		} else {
			diffuseDim(cur, oth, vals, diffusor, geom, r, ptr, dimIndex-1)
		}
		ptr += place
	}
}

// grabStencil gathers the (2r+1)^N neighborhood around center, axis 0
// fastest, appending into dest — the Go analogue of the original's
// destinationPointer handle shared across recursive calls.
func grabStencil(dest, bank []float64, geom geometry.LayerGeometry, r, center, dimIndex int) []float64 {
	place := geom.Layout.Place(dimIndex)
	start := center - place*r
	size := 2*r + 1

	ptr := start
	for i := 0; i < size; i++ {
		if dimIndex == 0 {
			dest = append(dest, bank[ptr])
		} else {
			dest = grabStencil(dest, bank, geom, r, ptr, dimIndex-1)
		}
		ptr += place
	}
	return dest
}

// Synchronize exchanges ghost cells of the current bank with every
// neighbor, identically to valuelayer.Layer.Synchronize.
func (l *Layer) Synchronize() {
	syncCount := l.trans.NextSyncCount()
	bank := l.currentBank()
	reqs := make([]*transport.Request, 0, len(l.geom.Neighbors))

	for _, n := range l.geom.Neighbors {
		recvTag := 10*(n.RecvDirID+1) + syncCount
		reqs = append(reqs, l.trans.IRecv(n.PeerRank, recvTag))
	}
	for _, n := range l.geom.Neighbors {
		sendTag := 10*(n.SendDirID+1) + syncCount
		payload := n.Volume.Pack(bank, n.SendOffset)
		l.trans.ISend(n.PeerRank, sendTag, payload)
	}

	l.trans.WaitAll(reqs)

	for i, n := range l.geom.Neighbors {
		n.Volume.Unpack(bank, n.RecvOffset, reqs[i].Result())
	}
}

// At returns the value at global coordinate c in the current bank, or
// NaN if out of range.
func (l *Layer) At(c []int) float64 {
	idx, ok := l.geom.Offset(c)
	if !ok {
		return math.NaN()
	}
	return l.currentBank()[idx]
}

// SetAt writes v at global coordinate c in the current bank.
func (l *Layer) SetAt(c []int, v float64) float64 {
	idx, ok := l.geom.Offset(c)
	if !ok {
		return math.NaN()
	}
	l.currentBank()[idx] = v
	return v
}
