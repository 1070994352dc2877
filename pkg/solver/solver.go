// Package solver implements the LinDist3Flow linearized power-flow
// method for unbalanced three-phase radial distribution networks.
//
// The solver works on squared voltage magnitudes. One call to
// [Solver.Solve] performs two sweeps over the feeder tree:
//
//  1. Backward: aggregate complex power at every bus from its own load
//     plus all downstream flows (leaf to root).
//  2. Forward: propagate squared voltage magnitude from the root
//     outward through a per-line 3x3 coupling model (root to leaf).
//
// There is no iteration and no convergence check; the result is a
// single deterministic forward evaluation of the linearization. Phase
// angles are not modeled.
package solver

import (
	"errors"
	"fmt"

	"github.com/voltlab/distflow/pkg/phase"
)

var (
	// ErrNoNodes is returned by [New] when the node list is empty.
	ErrNoNodes = errors.New("network has no nodes")

	// ErrLoadDimension is returned by [Solver.Solve] when the load
	// vectors do not match the node count fixed at construction.
	ErrLoadDimension = errors.New("load dimension mismatch")
)

// Line is a directed feeder segment from a parent bus to a child bus.
// R and X are the 3x3 resistance and reactance matrices in absolute
// ohms (already multiplied by line length). Missing phases are zero
// rows/columns.
type Line struct {
	From string
	To   string
	R    phase.Matrix3
	X    phase.Matrix3
}

// Base holds the per-unit normalization bases.
type Base struct {
	voltage float64 // line-to-line, volts
	power   float64 // apparent power, VA
}

// NewBase derives a per-unit base from a line-to-line voltage rating in
// kV and an apparent-power rating in MVA.
func NewBase(vBaseKV, sBaseMVA float64) Base {
	return Base{voltage: vBaseKV * 1000, power: sBaseMVA * 1e6}
}

// Z returns the impedance base in ohms (V² / S).
func (b Base) Z() float64 {
	return b.voltage * b.voltage / b.power
}

// lineKey identifies a directed line by its endpoints.
type lineKey struct {
	from, to string
}

// impedance is a line's per-unit R and X.
type impedance struct {
	r, x phase.Matrix3
}

// Solver holds the immutable topology index and per-unit impedance
// table for one network. It is built once by [New] and is safe to reuse
// across load cases; Solve never mutates it.
//
// The network is assumed radial with the bus at index 0 as the root.
// Cycles and multi-parent nodes are not detected; a non-tree input
// produces undefined traversal results.
type Solver struct {
	nodes   []string
	nodeIdx map[string]int
	base    Base

	children map[string][]string
	parents  map[string]string
	lines    map[lineKey]impedance

	orderDown []string // root outward, breadth-first
	orderUp   []string // reverse of orderDown

	dropped int
}

// New builds a solver from an ordered bus list and a set of directed
// lines. The bus at index 0 is the root. Line impedances are supplied
// in ohms and converted to per-unit against base.
//
// Lines referencing a bus absent from nodes are silently dropped so
// that a filtered or partial topology still solves; the number of
// dropped lines is reported by [Solver.Dropped] for callers that want
// to log it.
func New(nodes []string, lines []Line, base Base) (*Solver, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}

	s := &Solver{
		nodes:    nodes,
		nodeIdx:  make(map[string]int, len(nodes)),
		base:     base,
		children: make(map[string][]string, len(nodes)),
		parents:  make(map[string]string, len(nodes)),
		lines:    make(map[lineKey]impedance, len(lines)),
	}
	for i, n := range nodes {
		if _, dup := s.nodeIdx[n]; dup {
			return nil, fmt.Errorf("duplicate node %q at index %d", n, i)
		}
		s.nodeIdx[n] = i
	}

	zBase := base.Z()
	for _, ln := range lines {
		if _, ok := s.nodeIdx[ln.From]; !ok {
			s.dropped++
			continue
		}
		if _, ok := s.nodeIdx[ln.To]; !ok {
			s.dropped++
			continue
		}
		s.children[ln.From] = append(s.children[ln.From], ln.To)
		s.parents[ln.To] = ln.From
		s.lines[lineKey{ln.From, ln.To}] = impedance{
			r: ln.R.Scale(1 / zBase),
			x: ln.X.Scale(1 / zBase),
		}
	}

	s.orderDown = s.traversalOrder()
	s.orderUp = make([]string, len(s.orderDown))
	for i, n := range s.orderDown {
		s.orderUp[len(s.orderDown)-1-i] = n
	}

	return s, nil
}

// traversalOrder returns the breadth-first order from the root outward.
// Buses unreachable from the root (possible after dropped lines) are
// excluded; they solve to zero voltage.
func (s *Solver) traversalOrder() []string {
	root := s.nodes[0]
	order := make([]string, 0, len(s.nodes))
	visited := map[string]bool{root: true}
	queue := []string{root}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)
		for _, v := range s.children[u] {
			if !visited[v] {
				visited[v] = true
				queue = append(queue, v)
			}
		}
	}
	return order
}

// Nodes returns the bus identities in construction order. Index 0 is
// the root; result columns of Solve use the same order.
func (s *Solver) Nodes() []string { return s.nodes }

// Index returns the dense index of a bus and whether it exists.
func (s *Solver) Index(node string) (int, bool) {
	i, ok := s.nodeIdx[node]
	return i, ok
}

// Base returns the per-unit base fixed at construction.
func (s *Solver) Base() Base { return s.base }

// Dropped returns the number of lines discarded at construction because
// an endpoint was not in the node list.
func (s *Solver) Dropped() int { return s.dropped }
