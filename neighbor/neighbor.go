// Package neighbor describes, for one direction vector, the peer rank
// and the strided volume of scalars exchanged with it.
package neighbor

import (
	"github.com/archsim/meshfield/axis"
	"github.com/archsim/meshfield/direction"
	"github.com/archsim/meshfield/layout"
)

// Volume is a rectangular sub-volume of a layer's flat scalar bank,
// expressed as a nested strided descriptor: per axis, a run length and
// a byte (here, scalar) stride. Axis 0 is innermost / contiguous.
type Volume struct {
	Shape   []int
	Strides []int
}

// Pack gathers the volume's scalars, in lexicographic order (axis 0
// fastest), out of bank starting at base.
func (v Volume) Pack(bank []float64, base int) []float64 {
	out := make([]float64, 0, v.count())
	v.walk(base, len(v.Shape)-1, func(off int) {
		out = append(out, bank[off])
	})
	return out
}

// Unpack scatters a previously-packed payload back into bank starting
// at base, in the same order Pack produced it.
func (v Volume) Unpack(bank []float64, base int, payload []float64) {
	i := 0
	v.walk(base, len(v.Shape)-1, func(off int) {
		bank[off] = payload[i]
		i++
	})
}

func (v Volume) count() int {
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	return n
}

// walk recurses outer axes -> inner axis (axis 0 last, so it varies
// fastest), mirroring the original's innermost-contiguous, outer
// hvector-with-stride construction.
func (v Volume) walk(base, axisIdx int, visit func(off int)) {
	if axisIdx < 0 {
		visit(base)
		return
	}
	for i := 0; i < v.Shape[axisIdx]; i++ {
		v.walk(base+i*v.Strides[axisIdx], axisIdx-1, visit)
	}
}

// Link is one entry of a layer's neighbor table: the peer this rank
// exchanges with along direction d, and the where/what of that
// exchange.
type Link struct {
	Dir        direction.Vector
	PeerRank   int
	Volume     Volume
	SendOffset int
	RecvOffset int
	SendDirID  int
	RecvDirID  int
}

// RankOf resolves a peer rank for a mesh coordinate shifted by d,
// returning ok=false if that direction leaves the mesh under
// non-periodic axes.
type RankOf func(d direction.Vector) (rank int, ok bool)

// Build constructs the full neighbor table for a set of axes sharing a
// layout, given a direction table and a topology rank resolver.
//
// send_offset / recv_offset follow spec.md §4.2 exactly:
//
//	send[i] = left_buffer[i]          if d[i] <= 0
//	        = width[i] - 2*right_buffer[i]  if d[i] > 0
//	recv[i] = 0                       if d[i] < 0
//	        = left_buffer[i]          if d[i] == 0
//	        = width[i] - right_buffer[i]    if d[i] > 0
func Build(axes []axis.Axis, lay layout.Layout, dirs direction.Table, rankOf RankOf) []Link {
	var links []Link

	for _, d := range dirs.Vectors() {
		peer, ok := rankOf(d)
		if !ok {
			continue
		}

		shape := make([]int, len(axes))
		strides := make([]int, len(axes))
		sendOff, recvOff := 0, 0
		for i, a := range axes {
			shape[i] = a.SendRecvSize(d[i])
			strides[i] = lay.Place(i)

			var s, r int
			switch {
			case d[i] <= 0:
				s = a.LeftBuffer
			default:
				s = a.Width - 2*a.RightBuffer
			}
			switch {
			case d[i] < 0:
				r = 0
			case d[i] == 0:
				r = a.LeftBuffer
			default:
				r = a.Width - a.RightBuffer
			}
			sendOff += s * lay.Place(i)
			recvOff += r * lay.Place(i)
		}

		links = append(links, Link{
			Dir:        d,
			PeerRank:   peer,
			Volume:     Volume{Shape: shape, Strides: strides},
			SendOffset: sendOff,
			RecvOffset: recvOff,
			SendDirID:  dirs.ID(d),
			RecvDirID:  dirs.ID(direction.Reverse(d)),
		})
	}

	return links
}
