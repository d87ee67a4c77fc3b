// Package diagnostics renders human-readable summaries of a layer's
// geometry and reports process memory usage alongside a layer's
// computed footprint.
package diagnostics

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shirou/gopsutil/process"

	"github.com/archsim/meshfield/axis"
	"github.com/archsim/meshfield/neighbor"
)

// ReportAxes renders one row per axis: global/local/simplified/
// matching bounds and width, the same fields DimensionDatum::report()
// dumped per-axis, as a go-pretty table instead of raw columns.
func ReportAxes(axes []axis.Axis) string {
	t := table.NewWriter()
	t.SetTitle("Axes")
	t.AppendHeader(table.Row{"Dim", "Global", "Local", "Simplified", "Matching", "Width"})

	for i, a := range axes {
		t.AppendRow(table.Row{
			i,
			fmt.Sprintf("[%d, %d)", a.GlobalMin, a.GlobalMax),
			fmt.Sprintf("[%d, %d)", a.LocalMin, a.LocalMax),
			fmt.Sprintf("[%d, %d)", a.SimplifiedMin, a.SimplifiedMax),
			fmt.Sprintf("[%d, %d)", a.MatchingMin, a.MatchingMax),
			a.Width,
		})
	}

	return t.Render()
}

// ReportNeighbors renders one row per neighbor link: peer rank,
// direction vector, send/recv offsets and direction IDs.
func ReportNeighbors(links []neighbor.Link) string {
	t := table.NewWriter()
	t.SetTitle("Neighbors")
	t.AppendHeader(table.Row{"Dir", "Peer", "SendOffset", "RecvOffset", "SendDirID", "RecvDirID"})

	for _, n := range links {
		t.AppendRow(table.Row{
			fmt.Sprint([]int(n.Dir)),
			n.PeerRank,
			n.SendOffset,
			n.RecvOffset,
			n.SendDirID,
			n.RecvDirID,
		})
	}

	return t.Render()
}

// MemoryStats pairs the process's resident set size with the byte
// size of a layer's scalar banks.
type MemoryStats struct {
	ProcessRSSBytes uint64
	LayerBytes      int64
}

// MemoryFootprint reads this process's RSS via gopsutil and pairs it
// with a caller-computed layer byte size (e.g.
// 8*geom.Layout.Length()*numBanks).
func MemoryFootprint(layerBytes int64) (MemoryStats, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return MemoryStats{}, fmt.Errorf("diagnostics: opening process handle: %w", err)
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		return MemoryStats{}, fmt.Errorf("diagnostics: reading memory info: %w", err)
	}

	return MemoryStats{ProcessRSSBytes: memInfo.RSS, LayerBytes: layerBytes}, nil
}
