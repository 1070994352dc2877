package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/voltlab/distflow/pkg/cache"
	"github.com/voltlab/distflow/pkg/network"
	"github.com/voltlab/distflow/pkg/phase"
)

const testCircuit = `Clear
new circuit.mini bus1=sourcebus
New linecode.lc nphases=3
~ rmatrix = (0.3465 | 0.1560 0.3375 | 0.1580 0.1535 0.3414)
~ xmatrix = (1.0179 | 0.5017 1.0478 | 0.4236 0.3849 1.0348)
New Line.src632 Phases=3 Bus1=sourcebus Bus2=632 LineCode=lc Length=0.5
New Load.632 Bus1=632.1.2.3 Phases=3 kW=300 kvar=150
Set Voltagebases=[115, 4.16]
`

func writeTestCircuit(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mini.dss")
	if err := os.WriteFile(path, []byte(testCircuit), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOptions_Validate(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); !errors.Is(err, ErrNoInput) {
		t.Errorf("error = %v, want ErrNoInput", err)
	}

	opts = Options{Circuit: "x.dss"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(opts.RootAliases) == 0 {
		t.Error("root aliases default not applied")
	}
	if opts.Logger == nil {
		t.Error("logger default not applied")
	}
}

func TestExecute_EndToEnd(t *testing.T) {
	circuit := writeTestCircuit(t)
	r := NewRunner(cache.NewNullCache(), nil)
	defer r.Close()

	res, err := r.Execute(context.Background(), Options{Circuit: circuit})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if res.RunID == "" {
		t.Error("missing run ID")
	}
	if !res.RootFound || res.Root != "sourcebus" {
		t.Errorf("root = %q found=%v, want sourcebus", res.Root, res.RootFound)
	}
	if res.Nodes[0] != "sourcebus" {
		t.Errorf("nodes[0] = %q, want the root", res.Nodes[0])
	}
	if len(res.Voltages) != 2 {
		t.Fatalf("voltages = %d, want 2", len(res.Voltages))
	}

	vRoot, err := res.VoltageAt("sourcebus")
	if err != nil {
		t.Fatalf("VoltageAt error: %v", err)
	}
	if vRoot != (phase.Vector3{1, 1, 1}) {
		t.Errorf("root voltage = %v, want unity", vRoot)
	}
	v632, err := res.VoltageAt("632")
	if err != nil {
		t.Fatalf("VoltageAt error: %v", err)
	}
	for ph, mag := range v632 {
		if mag >= 1.0 || mag <= 0 {
			t.Errorf("632 phase %d = %v, want a drop below unity", ph, mag)
		}
	}

	if res.Stats.NodeCount != 2 || res.Stats.LineCount != 1 || res.Stats.LoadCount != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestExecute_CachesModelAndSolve(t *testing.T) {
	circuit := writeTestCircuit(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil)
	defer r.Close()

	ctx := context.Background()
	first, err := r.Execute(ctx, Options{Circuit: circuit})
	if err != nil {
		t.Fatalf("first Execute() error: %v", err)
	}
	if first.CacheInfo.ModelCached || first.CacheInfo.SolveCached {
		t.Errorf("first run cache info = %+v, want cold", first.CacheInfo)
	}

	second, err := r.Execute(ctx, Options{Circuit: circuit})
	if err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}
	if !second.CacheInfo.ModelCached || !second.CacheInfo.SolveCached {
		t.Errorf("second run cache info = %+v, want fully cached", second.CacheInfo)
	}
	for i := range first.Voltages {
		if first.Voltages[i] != second.Voltages[i] {
			t.Errorf("bus %d: cached %v != fresh %v", i, second.Voltages[i], first.Voltages[i])
		}
	}

	// Refresh bypasses both caches.
	third, err := r.Execute(ctx, Options{Circuit: circuit, Refresh: true})
	if err != nil {
		t.Fatalf("refresh Execute() error: %v", err)
	}
	if third.CacheInfo.ModelCached || third.CacheInfo.SolveCached {
		t.Errorf("refresh run cache info = %+v, want cold", third.CacheInfo)
	}
}

func TestSolve_WarnsWithoutRecognizedRoot(t *testing.T) {
	m := &network.Model{
		Nodes:   []string{"a", "b"},
		General: network.General{VBaseKVLL: 4.16, SBaseMVA: 1},
		Lines: []network.Line{{Name: "ab", From: "a", To: "b",
			R: phase.Matrix3{{0.3, 0, 0}, {0, 0.3, 0}, {0, 0, 0.3}},
			X: phase.Matrix3{{0.1, 0, 0}, {0, 0.1, 0}, {0, 0, 0.1}}}},
	}
	r := NewRunner(nil, nil)

	res, err := r.Solve(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if res.RootFound {
		t.Error("no alias matches, RootFound must be false")
	}
	if res.Root != "a" {
		t.Errorf("root = %q, want fallback to first node", res.Root)
	}
}

func TestSolve_CustomRootVoltage(t *testing.T) {
	m := &network.Model{
		Nodes:   []string{"sourcebus"},
		General: network.General{VBaseKVLL: 4.16, SBaseMVA: 1},
	}
	r := NewRunner(nil, nil)

	res, err := r.Solve(context.Background(), m, Options{
		RootVoltage: phase.Vector3{1.05, 1.05, 1.05},
	})
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if res.Voltages[0] != (phase.Vector3{1.05, 1.05, 1.05}) {
		t.Errorf("root voltage = %v, want 1.05 p.u.", res.Voltages[0])
	}
}
