package solver_test

import (
	"fmt"

	"github.com/voltlab/distflow/pkg/phase"
	"github.com/voltlab/distflow/pkg/solver"
)

func ExampleSolver_Solve() {
	// A two-bus feeder: the substation at "650" feeds "632" through a
	// balanced segment with 0.3 ohm resistance and 0.1 ohm reactance
	// per phase.
	z := phase.Matrix3{{0.3, 0, 0}, {0, 0.3, 0}, {0, 0, 0.3}}
	xm := phase.Matrix3{{0.1, 0, 0}, {0, 0.1, 0}, {0, 0, 0.1}}

	s, err := solver.New(
		[]string{"650", "632"},
		[]solver.Line{{From: "650", To: "632", R: z, X: xm}},
		solver.NewBase(4.16, 1.0),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	// No load anywhere: the root voltage propagates unchanged.
	v, err := s.Solve(solver.LoadCase{
		P: make([]phase.Vector3, 2),
		Q: make([]phase.Vector3, 2),
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	for i, bus := range s.Nodes() {
		fmt.Printf("%s: %.4f %.4f %.4f\n", bus, v[i][0], v[i][1], v[i][2])
	}
	// Output:
	// 650: 1.0000 1.0000 1.0000
	// 632: 1.0000 1.0000 1.0000
}
