package diffusion_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/meshfield/diffusion"
	"github.com/archsim/meshfield/geometry"
	"github.com/archsim/meshfield/topology"
	"github.com/archsim/meshfield/transport"
)

type constDiffusor struct{ v float64 }

func (constDiffusor) Radius() int                       { return 1 }
func (d constDiffusor) NewValue(vals []float64) float64 { return d.v }

type identityDiffusor struct{}

func (identityDiffusor) Radius() int { return 1 }
func (identityDiffusor) NewValue(vals []float64) float64 {
	return vals[1] // center of a 3-entry 1D stencil
}

type radius2Diffusor struct{ v float64 }

func (radius2Diffusor) Radius() int                       { return 2 }
func (d radius2Diffusor) NewValue(vals []float64) float64 { return d.v }

var _ = Describe("Layer.Diffuse", func() {
	It("with omitSync only mutates the local region of the flipped bank (invariant 7)", func() {
		mesh := topology.NewMesh([]int{1}, []bool{false}, nil)
		geom := geometry.NewBuilder(mesh).
			WithGlobalBox(geometry.Box{Min: []int{0}, Max: []int{4}}).
			WithBuffer(1).
			WithPeriodic([]bool{false}).
			Build(0)

		layer := diffusion.New(geom, transport.NewLoopback(0))
		layer.Initialize(1.0, 2.0)

		layer.Diffuse(constDiffusor{v: 42.0}, true)

		Expect(layer.At([]int{0})).To(Equal(42.0))
		Expect(layer.At([]int{3})).To(Equal(42.0))

		bank := layer.Bank()
		Expect(bank[0]).To(Equal(2.0), "left ghost of the flipped bank is untouched by diffuse")
		Expect(bank[len(bank)-1]).To(Equal(2.0), "right ghost of the flipped bank is untouched by diffuse")
	})

	It("panics when the diffusor's radius exceeds the ghost width", func() {
		mesh := topology.NewMesh([]int{1}, []bool{false}, nil)
		geom := geometry.NewBuilder(mesh).
			WithGlobalBox(geometry.Box{Min: []int{0}, Max: []int{4}}).
			WithBuffer(1).
			WithPeriodic([]bool{false}).
			Build(0)
		layer := diffusion.New(geom, transport.NewLoopback(0))
		layer.Initialize(0, 0)

		wide := radius2Diffusor{v: 1}

		Expect(func() { layer.Diffuse(wide, true) }).To(Panic())
	})

	Context("1D, 2 ranks, periodic, ghost 1 (scenario S4-style propagation)", func() {
		It("refreshes both ranks' ghosts from the peer's freshly diffused local data", func() {
			mesh := topology.NewMesh([]int{2}, []bool{true}, nil)
			global := geometry.Box{Min: []int{0}, Max: []int{4}}
			build := geometry.NewBuilder(mesh).WithGlobalBox(global).WithBuffer(1).WithPeriodic([]bool{true})

			geom0 := build.Build(0)
			geom1 := build.Build(1)

			comm0 := transport.NewLoopback(0)
			comm1 := transport.NewLoopback(1)
			transport.LinkLoopback(comm0, comm1)

			layer0 := diffusion.New(geom0, comm0)
			layer1 := diffusion.New(geom1, comm1)
			layer0.Initialize(10.0, 0.0)
			layer1.Initialize(20.0, 0.0)

			// Each rank's Synchronize blocks until its peer has sent, so
			// both ranks diffuse concurrently.
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				layer0.Diffuse(identityDiffusor{}, false)
			}()
			go func() {
				defer wg.Done()
				layer1.Diffuse(identityDiffusor{}, false)
			}()
			wg.Wait()

			bank0 := layer0.Bank()
			bank1 := layer1.Bank()

			Expect(bank0[0]).To(Equal(20.0))
			Expect(bank0[len(bank0)-1]).To(Equal(20.0))
			Expect(bank1[0]).To(Equal(10.0))
			Expect(bank1[len(bank1)-1]).To(Equal(10.0))
		})
	})
})
