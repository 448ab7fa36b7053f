package bvh

import (
	"bytes"
	"fmt"
	"math"

	"github.com/olekukonko/tablewriter"
)

// Tree quality statistics.
type Stats struct {
	Nodes  int
	Leaves int

	// Leaf depth distribution.
	MinDepth  int
	MaxDepth  int
	MeanDepth float32

	// Primitives per leaf distribution.
	MinCount  int
	MaxCount  int
	MeanCount float32

	// Number of leafs created because no valid split could be found.
	FallbackLeaves int
}

// Calculate leaf depth and primitive count statistics. The returned stats
// are zeroed if the tree has no leafs.
func (t *Tree) CalcStats() Stats {
	stats := Stats{
		Nodes:  len(t.Nodes),
		Leaves: len(t.Leaves),
	}
	if len(t.Leaves) == 0 {
		return stats
	}

	stats.MinDepth, stats.MinCount = math.MaxInt32, math.MaxInt32
	var depthAcc, countAcc int
	for _, leaf := range t.Leaves {
		count := len(leaf.IDs)
		stats.MinDepth = min(stats.MinDepth, leaf.Depth)
		stats.MaxDepth = max(stats.MaxDepth, leaf.Depth)
		stats.MinCount = min(stats.MinCount, count)
		stats.MaxCount = max(stats.MaxCount, count)
		depthAcc += leaf.Depth
		countAcc += count

		if leaf.Fallback {
			stats.FallbackLeaves++
		}
	}

	stats.MeanDepth = float32(depthAcc) / float32(len(t.Leaves))
	stats.MeanCount = float32(countAcc) / float32(len(t.Leaves))
	return stats
}

// Build a tabular representation of the tree statistics.
func (s Stats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Metric", "Min", "Max", "Mean"})
	table.Append([]string{"Leaf depth", fmt.Sprint(s.MinDepth), fmt.Sprint(s.MaxDepth), fmt.Sprintf("%.2f", s.MeanDepth)})
	table.Append([]string{"Leaf primitives", fmt.Sprint(s.MinCount), fmt.Sprint(s.MaxCount), fmt.Sprintf("%.2f", s.MeanCount)})
	table.SetFooter([]string{"Nodes / leafs / fallback", fmt.Sprint(s.Nodes), fmt.Sprint(s.Leaves), fmt.Sprint(s.FallbackLeaves)})
	table.Render()
	return buf.String()
}
