package neighbor_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/meshfield/axis"
	"github.com/archsim/meshfield/direction"
	"github.com/archsim/meshfield/layout"
	"github.com/archsim/meshfield/neighbor"
)

var _ = Describe("Volume", func() {
	It("round-trips Pack/Unpack through a flat bank", func() {
		lay := layout.New([]int{4, 3})
		bank := make([]float64, lay.Length())
		for i := range bank {
			bank[i] = float64(i)
		}

		v := neighbor.Volume{Shape: []int{2, 2}, Strides: []int{lay.Place(0), lay.Place(1)}}
		packed := v.Pack(bank, lay.Offset([]int{1, 0}))
		Expect(packed).To(HaveLen(4))

		dst := make([]float64, lay.Length())
		v.Unpack(dst, lay.Offset([]int{1, 0}), packed)

		for _, c := range [][]int{{1, 0}, {2, 0}, {1, 1}, {2, 1}} {
			off := lay.Offset(c)
			Expect(dst[off]).To(Equal(bank[off]))
		}
	})
})

var _ = Describe("Build", func() {
	// One axis, global [0,10), local [2,8), ghost 2: width = 2+6+2 = 10.
	a := axis.New(0, 10, 2, 8, 2, false)
	lay := layout.New([]int{a.Width})
	dirs := direction.Build(1)

	rankOf := func(d direction.Vector) (int, bool) {
		if d[0] < 0 {
			return 1, true
		}
		return 2, true
	}

	links := neighbor.Build([]axis.Axis{a}, lay, dirs, rankOf)

	It("builds one link per direction (invariant 4 precondition)", func() {
		Expect(links).To(HaveLen(2))
	})

	It("keeps every send/recv offset inside the bank (invariant 4)", func() {
		for _, l := range links {
			Expect(l.SendOffset).To(BeNumerically(">=", 0))
			Expect(l.SendOffset).To(BeNumerically("<", lay.Length()))
			Expect(l.RecvOffset).To(BeNumerically(">=", 0))
			Expect(l.RecvOffset).To(BeNumerically("<", lay.Length()))
		}
	})

	It("computes the exact -1 direction offsets from the ghost widths", func() {
		var minus neighbor.Link
		for _, l := range links {
			if l.Dir[0] < 0 {
				minus = l
			}
		}
		Expect(minus.SendOffset).To(Equal(a.LeftBuffer))
		Expect(minus.RecvOffset).To(Equal(0))
		Expect(minus.Volume.Shape[0]).To(Equal(a.LeftBuffer))
	})

	It("computes the exact +1 direction offsets from the ghost widths", func() {
		var plus neighbor.Link
		for _, l := range links {
			if l.Dir[0] > 0 {
				plus = l
			}
		}
		Expect(plus.SendOffset).To(Equal(a.Width - 2*a.RightBuffer))
		Expect(plus.RecvOffset).To(Equal(a.Width - a.RightBuffer))
		Expect(plus.Volume.Shape[0]).To(Equal(a.RightBuffer))
	})

	It("pairs every link's SendDirID with its reverse's RecvDirID (invariant 5)", func() {
		for _, l := range links {
			rev := direction.Reverse(l.Dir)
			Expect(l.RecvDirID).To(Equal(dirs.ID(rev)))
		}
	})

	It("gives a +d send slab the same shape as the congruent -d recv slab (invariant 5)", func() {
		shapes := map[int][]int{}
		for _, l := range links {
			shapes[dirs.ID(l.Dir)] = l.Volume.Shape
		}
		for _, l := range links {
			rev := direction.Reverse(l.Dir)
			Expect(shapes[dirs.ID(rev)]).To(Equal(l.Volume.Shape))
		}
	})
})
