// Package valuelayer implements the single-bank N-D scalar field:
// read/write/fill plus boundary-aware ghost exchange.
package valuelayer

import (
	"math"

	"github.com/archsim/meshfield/geometry"
	"github.com/archsim/meshfield/transport"
)

// Layer is a single bank of length geometry.Layout.Length(), addressed
// through the geometry's coordinate transform.
type Layer struct {
	geom  geometry.LayerGeometry
	bank  []float64
	trans transport.Transport
}

// New allocates a zeroed bank sized to geom and binds it to a
// transport for Synchronize.
func New(geom geometry.LayerGeometry, trans transport.Transport) *Layer {
	return &Layer{
		geom:  geom,
		bank:  make([]float64, geom.Layout.Length()),
		trans: trans,
	}
}

// Geometry returns the layer's immutable geometry.
func (l *Layer) Geometry() geometry.LayerGeometry { return l.geom }

// Bank returns the flat scalar bank, for dump/diagnostics consumers.
func (l *Layer) Bank() []float64 { return l.bank }

// Set writes v at global coordinate c, returning v on success or NaN
// if c's transform falls outside the simplified range on any axis
// (OutOfRange, spec.md §7).
func (l *Layer) Set(c []int, v float64) float64 {
	idx, ok := l.geom.Offset(c)
	if !ok {
		return math.NaN()
	}
	l.bank[idx] = v
	return v
}

// Add adds v at global coordinate c, returning the new value or NaN if
// out of range.
func (l *Layer) Add(c []int, v float64) float64 {
	idx, ok := l.geom.Offset(c)
	if !ok {
		return math.NaN()
	}
	l.bank[idx] += v
	return l.bank[idx]
}

// Get returns the value at global coordinate c, or NaN if out of
// range.
func (l *Layer) Get(c []int) float64 {
	idx, ok := l.geom.Offset(c)
	if !ok {
		return math.NaN()
	}
	return l.bank[idx]
}

// InLocalBounds reports whether c is in this rank's local (non-ghost)
// box.
func (l *Layer) InLocalBounds(c []int) bool {
	return l.geom.InLocalBounds(c)
}

// Fill writes localValue into the local region and/or bufferValue
// into the ghost region, recursing outer axis to inner exactly as the
// original fillDimension does (axis numDims-1 down to axis 0).
func (l *Layer) Fill(localValue, bufferValue float64, doLocal, doBuffer bool) {
	if !doLocal && !doBuffer {
		return
	}
	fillBank(l.bank, l.geom, localValue, bufferValue, doLocal, doBuffer, 0, l.geom.NumDims-1)
}

func fillBank(bank []float64, geom geometry.LayerGeometry, localValue, bufferValue float64,
	doLocal, doBuffer bool, base, dimIndex int) {

	a := geom.Axes[dimIndex]
	place := geom.Layout.Place(dimIndex)

	bufferEdge := a.LeftBuffer
	localEdge := bufferEdge + a.LocalWidth
	upperBound := localEdge + a.RightBuffer

	ptr := base
	i := 0
	for ; i < bufferEdge; i++ {
		if doBuffer {
			if dimIndex == 0 {
				bank[ptr] = bufferValue
			} else {
				fillBank(bank, geom, bufferValue, bufferValue, doBuffer, doBuffer, ptr, dimIndex-1)
			}
		}
		ptr += place
	}
	for ; i < localEdge; i++ {
		if doLocal {
			if dimIndex == 0 {
				bank[ptr] = localValue
			} else {
				fillBank(bank, geom, localValue, bufferValue, doLocal, doBuffer, ptr, dimIndex-1)
			}
		}
		ptr += place
	}
	if doBuffer {
		for ; i < upperBound; i++ {
			if dimIndex == 0 {
				bank[ptr] = bufferValue
			} else {
				fillBank(bank, geom, bufferValue, bufferValue, doBuffer, doBuffer, ptr, dimIndex-1)
			}
			ptr += place
		}
	}
}

// Synchronize exchanges ghost cells with every neighbor: a
// non-blocking send and receive is posted per neighbor link, then a
// single wait-all, per spec.md §4.6. Per the open question in spec.md
// §9, a Layer is single-threaded per caller; no write may race a
// Synchronize call.
func (l *Layer) Synchronize() {
	syncCount := l.trans.NextSyncCount()
	reqs := make([]*transport.Request, 0, len(l.geom.Neighbors))

	for _, n := range l.geom.Neighbors {
		recvTag := 10*(n.RecvDirID+1) + syncCount
		reqs = append(reqs, l.trans.IRecv(n.PeerRank, recvTag))
	}
	for _, n := range l.geom.Neighbors {
		sendTag := 10*(n.SendDirID+1) + syncCount
		payload := n.Volume.Pack(l.bank, n.SendOffset)
		l.trans.ISend(n.PeerRank, sendTag, payload)
	}

	l.trans.WaitAll(reqs)

	for i, n := range l.geom.Neighbors {
		n.Volume.Unpack(l.bank, n.RecvOffset, reqs[i].Result())
	}
}
