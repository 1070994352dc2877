package solver

import (
	"fmt"

	"github.com/voltlab/distflow/pkg/phase"
)

// unity is the default root voltage: 1.0 p.u. on all three phases.
var unity = phase.Vector3{1, 1, 1}

// LoadCase is one set of per-bus injections to solve against. P and Q
// hold per-unit active and reactive power per phase, indexed by the bus
// order fixed at construction. A zero RootVoltage means 1.0 p.u. on all
// phases.
type LoadCase struct {
	P []phase.Vector3
	Q []phase.Vector3

	// RootVoltage is the per-phase voltage magnitude (not squared)
	// held at the root bus.
	RootVoltage phase.Vector3
}

// Solve computes the per-unit voltage magnitude per phase at every bus.
// The result slice is indexed like [Solver.Nodes].
//
// Solve is a pure function of its inputs: the solver's topology and
// impedance tables are read-only, and the intermediate flow and
// squared-voltage tables are allocated per call. Repeated calls with
// identical inputs yield identical output.
func (s *Solver) Solve(lc LoadCase) ([]phase.Vector3, error) {
	n := len(s.nodes)
	if len(lc.P) != n {
		return nil, fmt.Errorf("%w: got %d active-load entries for %d nodes", ErrLoadDimension, len(lc.P), n)
	}
	if len(lc.Q) != n {
		return nil, fmt.Errorf("%w: got %d reactive-load entries for %d nodes", ErrLoadDimension, len(lc.Q), n)
	}

	vRoot := lc.RootVoltage
	if vRoot.IsZero() {
		vRoot = unity
	}

	// Backward sweep: aggregate complex power leaf to root. Every
	// child is finalized strictly before its parent.
	flow := make(map[string]phase.Complex3, n)
	for _, node := range s.orderUp {
		sum := phase.Complex(lc.P[s.nodeIdx[node]], lc.Q[s.nodeIdx[node]])
		for _, child := range s.children[node] {
			sum = sum.Add(flow[child])
		}
		flow[node] = sum
	}

	// Forward sweep: propagate squared voltage magnitude root to leaf.
	// Only the root is seeded; buses unreachable from it are never
	// visited and read back as zero voltage.
	ynode := make([]phase.Vector3, n)
	ynode[0] = vRoot.Square()
	root := s.nodes[0]
	for _, node := range s.orderDown {
		if node == root {
			continue
		}
		parent, ok := s.parents[node]
		if !ok {
			continue
		}
		z := s.lines[lineKey{parent, node}]
		mp, mq := CouplingMatrices(z.r, z.x)

		sf := flow[node]
		y := ynode[s.nodeIdx[parent]]
		y = y.Add(mp.MulVec(sf.Real()))
		y = y.Add(mq.MulVec(sf.Imag()))
		ynode[s.nodeIdx[node]] = y
	}

	// Recover magnitudes, clamping linearization artifacts at zero.
	v := make([]phase.Vector3, n)
	for i, y := range ynode {
		v[i] = y.SqrtClamped()
	}
	return v, nil
}
