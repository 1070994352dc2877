// Package network defines the persistent distribution-network model and
// the glue between extracted circuit data and the solver.
//
// The JSON format is the canonical interchange shape produced by
// extraction ([github.com/voltlab/distflow/pkg/dss]) and consumed by the
// solve pipeline. It is human-readable and stable: field names match the
// files emitted by earlier extractors, so existing model files keep
// loading.
package network

import (
	"errors"
	"fmt"

	"github.com/voltlab/distflow/pkg/phase"
	"github.com/voltlab/distflow/pkg/solver"
)

// DefaultRootAliases are the bus names recognized as the feeder source,
// in priority order. IEEE test feeders conventionally name the source
// bus "sourcebus"; "650" and "rg60" cover the 13-bus feeder variants.
var DefaultRootAliases = []string{"sourcebus", "source", "650", "rg60"}

// ErrNoNodes is returned by Model.Validate for a model without buses.
var ErrNoNodes = errors.New("model has no nodes")

// General holds the system bases the model was extracted with.
type General struct {
	VBaseKVLL float64 `json:"v_base_kv_ll" bson:"v_base_kv_ll"` // line-to-line voltage base, kV
	SBaseMVA  float64 `json:"s_base_mva" bson:"s_base_mva"`     // apparent-power base, MVA
}

// Line is a feeder segment with absolute 3x3 impedance matrices in
// ohms. Per-unit-length source data is multiplied by Length during
// extraction, so R and X here are always totals.
type Line struct {
	Name   string        `json:"name" bson:"name"`
	From   string        `json:"from" bson:"from"`
	To     string        `json:"to" bson:"to"`
	Length float64       `json:"length" bson:"length"`
	R      phase.Matrix3 `json:"r_matrix" bson:"r_matrix"`
	X      phase.Matrix3 `json:"x_matrix" bson:"x_matrix"`
}

// Load is a three-phase spot load in absolute units (kW / kvar per
// phase), keyed by bus name.
type Load struct {
	Bus string        `json:"bus" bson:"bus"`
	P   phase.Vector3 `json:"p_load" bson:"p_load"`
	Q   phase.Vector3 `json:"q_load" bson:"q_load"`
}

// Model is the serializable network description: bus list, bases,
// impedance-bearing lines and spot loads.
type Model struct {
	Nodes   []string `json:"nodes" bson:"nodes"`
	General General  `json:"general" bson:"general"`
	Lines   []Line   `json:"lines" bson:"lines"`
	Loads   []Load   `json:"loads" bson:"loads"`
}

// Validate checks the minimal structural requirements for solving.
func (m *Model) Validate() error {
	if len(m.Nodes) == 0 {
		return ErrNoNodes
	}
	seen := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		if n == "" {
			return errors.New("model contains an empty bus name")
		}
		if seen[n] {
			return fmt.Errorf("duplicate bus %q", n)
		}
		seen[n] = true
	}
	for _, ln := range m.Lines {
		if ln.From == "" || ln.To == "" {
			return fmt.Errorf("line %q is missing an endpoint", ln.Name)
		}
	}
	return nil
}

// Reroot returns a copy of nodes with the first recognized source-bus
// alias moved to index 0, the alias that matched, and whether any alias
// was found. When ok is false the input order is returned unchanged and
// the caller should warn: solving with an arbitrary bus as root can
// produce a physically meaningless profile.
func Reroot(nodes []string, aliases []string) (rooted []string, root string, ok bool) {
	if len(aliases) == 0 {
		aliases = DefaultRootAliases
	}
	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		idx[n] = i
	}
	for _, alias := range aliases {
		at, found := idx[alias]
		if !found {
			continue
		}
		rooted = make([]string, 0, len(nodes))
		rooted = append(rooted, alias)
		rooted = append(rooted, nodes[:at]...)
		rooted = append(rooted, nodes[at+1:]...)
		return rooted, alias, true
	}
	return nodes, "", false
}

// MapLoads converts the model's absolute kW/kvar loads into per-unit
// injection vectors indexed by the given bus order. Loads on buses
// absent from the order are skipped: extraction can legitimately carry
// loads behind equipment (transformers, regulators) that the line
// topology does not reach.
//
// Returns the per-unit P and Q slices and the names of skipped buses.
func (m *Model) MapLoads(nodes []string) (p, q []phase.Vector3, skipped []string) {
	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		idx[n] = i
	}
	p = make([]phase.Vector3, len(nodes))
	q = make([]phase.Vector3, len(nodes))

	sBaseKW := m.General.SBaseMVA * 1000
	for _, ld := range m.Loads {
		i, ok := idx[ld.Bus]
		if !ok {
			skipped = append(skipped, ld.Bus)
			continue
		}
		for ph := 0; ph < 3; ph++ {
			p[i][ph] += ld.P[ph] / sBaseKW
			q[i][ph] += ld.Q[ph] / sBaseKW
		}
	}
	return p, q, skipped
}

// SolverLines reshapes the model's lines into the solver's input type.
func (m *Model) SolverLines() []solver.Line {
	out := make([]solver.Line, len(m.Lines))
	for i, ln := range m.Lines {
		out[i] = solver.Line{From: ln.From, To: ln.To, R: ln.R, X: ln.X}
	}
	return out
}
