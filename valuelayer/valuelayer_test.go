package valuelayer_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/meshfield/geometry"
	"github.com/archsim/meshfield/topology"
	"github.com/archsim/meshfield/transport"
	"github.com/archsim/meshfield/valuelayer"
)

var _ = Describe("Layer", func() {
	Context("1D, 1 rank, periodic, width 8, ghost 1 (scenario S1)", func() {
		It("wraps the boundary data into the dedicated ghost slots on sync", func() {
			mesh := topology.NewMesh([]int{1}, []bool{true}, nil)
			geom := geometry.NewBuilder(mesh).
				WithGlobalBox(geometry.Box{Min: []int{0}, Max: []int{8}}).
				WithBuffer(1).
				WithPeriodic([]bool{true}).
				Build(0)

			comm := transport.NewLoopback(0)
			transport.LinkLoopback(comm, comm)

			layer := valuelayer.New(geom, comm)
			layer.Set([]int{0}, 11.0)
			layer.Set([]int{7}, 22.0)

			layer.Synchronize()

			bank := layer.Bank()
			leftGhost := 0
			rightGhost := geom.Axes[0].Width - 1

			Expect(bank[leftGhost]).To(Equal(22.0), "left ghost should mirror local coord 7")
			Expect(bank[rightGhost]).To(Equal(11.0), "right ghost should mirror local coord 0")
		})
	})

	Context("2D, 2x2 mesh, non-periodic, global 10x10, ghost 1 (scenario S2)", func() {
		It("delivers a boundary write to exactly the ranks whose ghost it falls in (invariant 6)", func() {
			mesh := topology.NewMesh([]int{2, 2}, []bool{false, false}, nil)
			global := geometry.Box{Min: []int{0, 0}, Max: []int{10, 10}}
			build := geometry.NewBuilder(mesh).WithGlobalBox(global).WithBuffer(1).WithPeriodic([]bool{false, false})

			geoms := make([]geometry.LayerGeometry, 4)
			comms := make([]*transport.Loopback, 4)
			layers := make([]*valuelayer.Layer, 4)
			for r := 0; r < 4; r++ {
				geoms[r] = build.Build(r)
				comms[r] = transport.NewLoopback(r)
			}
			for a := 0; a < 4; a++ {
				for b := a + 1; b < 4; b++ {
					transport.LinkLoopback(comms[a], comms[b])
				}
			}
			for r := 0; r < 4; r++ {
				layers[r] = valuelayer.New(geoms[r], comms[r])
			}

			boundary := []int{4, 4}
			owner := -1
			for r := 0; r < 4; r++ {
				if geoms[r].InLocalBounds(boundary) {
					owner = r
				}
			}
			Expect(owner).To(Equal(0), "rank 0 should own the corner-adjacent cell (4,4)")

			layers[owner].Set(boundary, 5.0)

			// Each rank's Synchronize blocks until its peers have sent,
			// so all four run concurrently.
			var wg sync.WaitGroup
			for r := 0; r < 4; r++ {
				wg.Add(1)
				go func(r int) {
					defer wg.Done()
					layers[r].Synchronize()
				}(r)
			}
			wg.Wait()

			for r := 1; r < 4; r++ {
				Expect(layers[r].Get(boundary)).To(Equal(5.0), "rank %d should see the synced ghost value", r)
			}
			Expect(layers[owner].Get(boundary)).To(Equal(5.0), "the owning rank's own cell is untouched by sync")
		})
	})

	Describe("Fill", func() {
		It("separately fills the local region and the ghost region", func() {
			mesh := topology.NewMesh([]int{1, 1}, []bool{false, false}, nil)
			geom := geometry.NewBuilder(mesh).
				WithGlobalBox(geometry.Box{Min: []int{0, 0}, Max: []int{4, 4}}).
				WithBuffer(1).
				WithPeriodic([]bool{false, false}).
				Build(0)

			comm := transport.NewLoopback(0)
			layer := valuelayer.New(geom, comm)

			layer.Fill(3.0, -1.0, true, true)

			Expect(layer.Get([]int{0, 0})).To(Equal(3.0))
			Expect(layer.Get([]int{3, 3})).To(Equal(3.0))
			for _, b := range layer.Bank() {
				Expect(b == 3.0 || b == -1.0).To(BeTrue())
			}
		})
	})

	Describe("Get/Set/Add out of range", func() {
		It("returns NaN rather than panicking", func() {
			mesh := topology.NewMesh([]int{1}, []bool{false}, nil)
			geom := geometry.NewBuilder(mesh).
				WithGlobalBox(geometry.Box{Min: []int{0}, Max: []int{4}}).
				WithBuffer(1).
				WithPeriodic([]bool{false}).
				Build(0)
			layer := valuelayer.New(geom, transport.NewLoopback(0))

			Expect(layer.Get([]int{100})).To(BeNaN())
			Expect(layer.Set([]int{100}, 1.0)).To(BeNaN())
			Expect(layer.Add([]int{100}, 1.0)).To(BeNaN())
		})
	})
})
