package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/voltlab/distflow/pkg/phase"
)

var phaseNames = [3]string{"phase a", "phase b", "phase c"}

// ProfilePlot builds a voltage-profile plot: per-unit voltage magnitude
// of each phase against bus position (root first). Phases that are zero
// everywhere (absent from the feeder) are skipped.
func ProfilePlot(nodes []string, voltages []phase.Vector3) (*plot.Plot, error) {
	if len(nodes) != len(voltages) {
		return nil, fmt.Errorf("got %d voltages for %d buses", len(voltages), len(nodes))
	}

	p := plot.New()
	p.Title.Text = "Voltage profile"
	p.X.Label.Text = "bus (root outward)"
	p.Y.Label.Text = "|V| (p.u.)"
	p.Legend.Top = true

	for ph := 0; ph < 3; ph++ {
		pts := make(plotter.XYs, len(nodes))
		all0 := true
		for i, v := range voltages {
			pts[i].X = float64(i)
			pts[i].Y = v[ph]
			if v[ph] != 0 {
				all0 = false
			}
		}
		if all0 {
			continue
		}

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("phase %d series: %w", ph, err)
		}
		line.Color = plotutil.Color(ph)
		points.Color = plotutil.Color(ph)
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add(phaseNames[ph], line)
	}

	p.NominalX(nodes...)
	return p, nil
}

// SaveProfile renders the profile to a file; the extension selects the
// format (.png, .svg, .pdf).
func SaveProfile(nodes []string, voltages []phase.Vector3, path string) error {
	p, err := ProfilePlot(nodes, voltages)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save profile %s: %w", path, err)
	}
	return nil
}
