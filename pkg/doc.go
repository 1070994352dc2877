// Package pkg provides the core libraries for distflow power-flow analysis.
//
// # Overview
//
// Distflow evaluates voltage magnitudes on unbalanced three-phase radial
// distribution feeders using the LinDist3Flow linearization. The pkg
// directory is organized into four main areas:
//
//  1. [solver] - The numerical core (sweeps, coupling matrices, per-unit bases)
//  2. [network] / [dss] - The persistent model and OpenDSS extraction
//  3. [pipeline] / [cache] / [store] - Orchestration and persistence
//  4. [report] - Tables, Graphviz diagrams, and profile plots
//
// # Architecture
//
// The typical data flow through distflow:
//
//	OpenDSS circuit (.dss)
//	         ↓
//	    [dss] package (extract buses, impedances, loads)
//	         ↓
//	    [network] package (model JSON + per-unit mapping)
//	         ↓
//	    [solver] package (backward/forward sweeps)
//	         ↓
//	    table/JSON/CSV output, diagrams, profile plots
//
// # Quick Start
//
// Solve a feeder end to end:
//
//	import (
//	    "context"
//	    "github.com/voltlab/distflow/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil)
//	res, _ := runner.Execute(context.Background(), pipeline.Options{
//	    Circuit: "ieee13.dss",
//	})
//	for i, bus := range res.Nodes {
//	    fmt.Println(bus, res.Voltages[i])
//	}
//
// # Main Packages
//
// ## Numerical Core
//
// [phase] - Three-phase value types: per-phase vectors, 3x3 matrices, and
// complex injection vectors shared by every other package.
//
// [solver] - The LinDist3Flow solver: feeder topology, backward power
// aggregation, forward voltage propagation through the phase-coupling
// matrices, and per-unit base conversion.
//
// ## Model and Extraction
//
// [network] - The serializable network model (buses, line impedances in
// ohms, spot loads in kW/kvar), source-bus detection, and the mapping of
// absolute loads to per-unit injections.
//
// [dss] - OpenDSS circuit parsing: master files with Redirect, linecodes,
// lines, loads, and voltage-base derivation.
//
// ## Infrastructure
//
// [pipeline] - Orchestration of convert and solve with content-addressed
// caching, shared by the CLI and the HTTP API.
//
// [cache] - Cache backends: sha-sharded files for the CLI, Redis for the
// API, and a null backend for tests.
//
// [store] - MongoDB persistence for named models and solve-run history.
//
// ## Output
//
// [report] - Voltage tables, Graphviz one-line diagrams, and per-phase
// voltage profile plots.
package pkg
