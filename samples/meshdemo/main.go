// Command meshdemo runs a 3-D, 2x2x2-rank, periodic average-of-7
// diffusion over a 100x100x100 box, seeding a single cell and
// watching it spread to its six face neighbors over one tick.
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/archsim/meshfield/diffusion"
	"github.com/archsim/meshfield/geometry"
	"github.com/archsim/meshfield/topology"
	"github.com/archsim/meshfield/transport"
)

const (
	meshAxis  = 2 // ranks per axis, 2x2x2 = 8 ranks
	boxExtent = 100
	ghost     = 1
)

// averageOfSeven is the Diffusor of scenario S4: self plus the six
// face neighbors, averaged over all seven entries.
type averageOfSeven struct{}

func (averageOfSeven) Radius() int { return 1 }

func (averageOfSeven) NewValue(vals []float64) float64 {
	// vals is 3x3x3 = 27 entries, axis 0 fastest; face neighbors and
	// self sit at the six positions one step off-center on exactly one
	// axis, plus the center itself.
	center := len(vals) / 2
	side := 3
	sum := vals[center]
	count := 1.0
	offsets := []int{-1, 1}
	places := []int{1, side, side * side}
	for _, place := range places {
		for _, o := range offsets {
			sum += vals[center+o*place]
			count++
		}
	}
	return sum / count
}

func main() {
	logFile, err := os.OpenFile("meshfield_simulation.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		fmt.Println("Failed to open log file:", err)
		return
	}
	defer logFile.Close()
	os.Stdout = logFile
	os.Stderr = logFile

	monitor := monitoring.NewMonitor()
	engine := sim.NewSerialEngine()
	monitor.RegisterEngine(engine)

	numRanks := meshAxis * meshAxis * meshAxis
	rankCounts := []int{meshAxis, meshAxis, meshAxis}
	periodic := []bool{true, true, true}
	global := geometry.Box{Min: []int{0, 0, 0}, Max: []int{boxExtent, boxExtent, boxExtent}}

	comms := make([]*transport.InProcess, numRanks)
	for r := 0; r < numRanks; r++ {
		comms[r] = transport.NewInProcess("Mesh.", r, engine, 1*sim.GHz)
		monitor.RegisterComponent(comms[r])
	}

	mesh := topology.NewMesh(rankCounts, periodic, comms[0])

	layers := make([]*diffusion.Layer, numRanks)
	for r := 0; r < numRanks; r++ {
		geom := geometry.NewBuilder(mesh).
			WithGlobalBox(global).
			WithBuffer(ghost).
			WithPeriodic(periodic).
			Build(r)
		layers[r] = diffusion.New(geom, comms[r])
		layers[r].Initialize(0, 0)
	}

	for a := 0; a < numRanks; a++ {
		coordsA := mesh.Coordinates(a)
		connected := map[int]bool{}
		for _, d := range layers[a].Geometry().Dirs.Vectors() {
			b, ok := mesh.RankOf(coordsA, d)
			if !ok || b <= a || connected[b] {
				continue
			}
			// A pair can be neighbors along more than one direction
			// vector (e.g. both +x and -x in a 2-wide periodic mesh);
			// PortTo shares one port per peer, so only Connect once.
			transport.Connect(engine, 1*sim.GHz, comms[a], comms[b])
			connected[b] = true
		}
	}

	seedRank, localSeed := 0, []int{50, 50, 50}
	for r := 0; r < numRanks; r++ {
		if layers[r].Geometry().InLocalBounds(localSeed) {
			seedRank = r
		}
	}
	layers[seedRank].SetAt(localSeed, 7.0)

	monitor.StartServer()

	layers[seedRank].Diffuse(averageOfSeven{}, false)
	for r := 0; r < numRanks; r++ {
		if r != seedRank {
			layers[r].Diffuse(averageOfSeven{}, false)
		}
	}

	fmt.Println("center:", layers[seedRank].At(localSeed))

	atexit.Exit(0)
}
