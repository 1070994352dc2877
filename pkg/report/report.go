// Package report turns solve results into human-facing artifacts: text
// tables for the CLI, a one-line topology diagram rendered through
// Graphviz, and a per-phase voltage profile plot.
package report

import (
	"fmt"

	"github.com/voltlab/distflow/pkg/phase"
)

// Header is the column header for voltage tables.
var Header = []string{"Bus", "Va (p.u.)", "Vb (p.u.)", "Vc (p.u.)"}

// Rows formats per-bus voltages as table rows in node order, with four
// decimals per phase (the customary precision for p.u. profiles).
func Rows(nodes []string, voltages []phase.Vector3) [][]string {
	rows := make([][]string, len(nodes))
	for i, bus := range nodes {
		v := voltages[i]
		rows[i] = []string{
			bus,
			fmt.Sprintf("%.4f", v[0]),
			fmt.Sprintf("%.4f", v[1]),
			fmt.Sprintf("%.4f", v[2]),
		}
	}
	return rows
}
