// Package pipeline orchestrates the distflow stages: convert (extract a
// network model from an OpenDSS circuit), solve (run the LinDist3Flow
// power flow) and report. Centralizing this logic keeps the CLI and the
// HTTP API behaviorally identical.
//
// Create a Runner and execute the full pipeline:
//
//	runner := pipeline.NewRunner(fileCache, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Circuit: "feeder.dss"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i, bus := range result.Nodes {
//	    fmt.Println(bus, result.Voltages[i])
//	}
//
// Stages can also run individually: [Runner.Convert] produces a model,
// [Runner.Solve] evaluates one load case against it.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/voltlab/distflow/pkg/network"
	"github.com/voltlab/distflow/pkg/phase"
)

// ErrNoInput is returned when neither a circuit file nor a model file
// is given.
var ErrNoInput = errors.New("either a circuit (.dss) or a model (.json) input is required")

// Options configures one pipeline run. The struct serializes to JSON so
// the API can accept it as a request body.
type Options struct {
	// Circuit is the path to an OpenDSS circuit file to extract.
	Circuit string `json:"circuit,omitempty"`

	// Model is the path to an already-extracted model JSON file. When
	// set, extraction and the model cache are skipped.
	Model string `json:"model,omitempty"`

	// VBaseKVLL / SBaseMVA override the extraction bases. Zero means
	// derive from the circuit with the standard fallbacks.
	VBaseKVLL float64 `json:"v_base_kv_ll,omitempty"`
	SBaseMVA  float64 `json:"s_base_mva,omitempty"`

	// RootAliases are the bus names recognized as the feeder source,
	// tried in order. Empty means network.DefaultRootAliases.
	RootAliases []string `json:"root_aliases,omitempty"`

	// RootVoltage is the per-phase root voltage in p.u.; zero means
	// unity on all phases.
	RootVoltage phase.Vector3 `json:"root_voltage,omitempty"`

	// Refresh bypasses both caches.
	Refresh bool `json:"refresh,omitempty"`

	// Logger receives progress and warnings. Not serialized.
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the option combination and fills in
// defaults. It is idempotent and called by every Runner entry point
// that needs a file input; [Runner.Solve] accepts an in-memory model
// and only applies the defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Circuit == "" && o.Model == "" {
		return ErrNoInput
	}
	o.setDefaults()
	return nil
}

func (o *Options) setDefaults() {
	if len(o.RootAliases) == 0 {
		o.RootAliases = network.DefaultRootAliases
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	o.validated = true
}

// Stats carries sizes and per-stage timings of one run.
type Stats struct {
	NodeCount   int           `json:"node_count"`
	LineCount   int           `json:"line_count"`
	LoadCount   int           `json:"load_count"`
	ConvertTime time.Duration `json:"convert_time"`
	SolveTime   time.Duration `json:"solve_time"`
}

// CacheInfo records which stages were served from cache.
type CacheInfo struct {
	ModelCached bool `json:"model_cached"`
	SolveCached bool `json:"solve_cached"`
}

// Result is the output of a full pipeline run.
type Result struct {
	// RunID uniquely identifies this evaluation (for stores and logs).
	RunID string `json:"run_id"`

	// Model is the extracted or loaded network model.
	Model *network.Model `json:"model,omitempty"`

	// Root is the bus used as the feeder source. RootFound is false
	// when no alias matched and Nodes[0] was used as a fallback; the
	// voltages may then be physically meaningless.
	Root      string `json:"root"`
	RootFound bool   `json:"root_found"`

	// Nodes is the solve ordering (root first); Voltages[i] is the
	// per-phase voltage magnitude in p.u. at Nodes[i].
	Nodes    []string        `json:"nodes"`
	Voltages []phase.Vector3 `json:"voltages"`

	// SkippedLoads lists load buses absent from the topology.
	SkippedLoads []string `json:"skipped_loads,omitempty"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache_info"`
}

// VoltageAt returns the solved voltage for a bus name.
func (r *Result) VoltageAt(bus string) (phase.Vector3, error) {
	for i, n := range r.Nodes {
		if n == bus {
			return r.Voltages[i], nil
		}
	}
	return phase.Vector3{}, fmt.Errorf("bus %q not in result", bus)
}
