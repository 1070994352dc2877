package network

import (
	"strings"
	"testing"

	"github.com/voltlab/distflow/pkg/phase"
)

func sampleModel() *Model {
	return &Model{
		Nodes:   []string{"632", "650", "671"},
		General: General{VBaseKVLL: 4.16, SBaseMVA: 1.0},
		Lines: []Line{
			{Name: "650632", From: "650", To: "632", Length: 2000,
				R: phase.Matrix3{{0.3, 0, 0}, {0, 0.3, 0}, {0, 0, 0.3}},
				X: phase.Matrix3{{0.1, 0, 0}, {0, 0.1, 0}, {0, 0, 0.1}}},
			{Name: "632671", From: "632", To: "671", Length: 2000,
				R: phase.Matrix3{{0.2, 0, 0}, {0, 0.2, 0}, {0, 0, 0.2}},
				X: phase.Matrix3{{0.08, 0, 0}, {0, 0.08, 0}, {0, 0, 0.08}}},
		},
		Loads: []Load{
			{Bus: "671", P: phase.Vector3{385, 385, 385}, Q: phase.Vector3{220, 220, 220}},
			{Bus: "634", P: phase.Vector3{160, 120, 120}, Q: phase.Vector3{110, 90, 90}},
		},
	}
}

func TestReroot_RecognizesAlias(t *testing.T) {
	rooted, root, ok := Reroot([]string{"632", "650", "671"}, nil)
	if !ok {
		t.Fatal("Reroot() should find the 650 alias")
	}
	if root != "650" {
		t.Errorf("root = %q, want 650", root)
	}
	if rooted[0] != "650" {
		t.Errorf("rooted[0] = %q, want 650", rooted[0])
	}
	if len(rooted) != 3 {
		t.Errorf("len(rooted) = %d, want 3", len(rooted))
	}
	// Remaining order preserved.
	if rooted[1] != "632" || rooted[2] != "671" {
		t.Errorf("rooted = %v, want [650 632 671]", rooted)
	}
}

func TestReroot_AliasPriority(t *testing.T) {
	rooted, root, ok := Reroot([]string{"650", "sourcebus"}, nil)
	if !ok || root != "sourcebus" {
		t.Errorf("root = %q ok=%v, want sourcebus (higher priority than 650)", root, ok)
	}
	if rooted[0] != "sourcebus" {
		t.Errorf("rooted = %v, want sourcebus first", rooted)
	}
}

func TestReroot_NoAliasFound(t *testing.T) {
	nodes := []string{"a", "b"}
	rooted, root, ok := Reroot(nodes, nil)
	if ok || root != "" {
		t.Errorf("Reroot() = %q ok=%v, want no match", root, ok)
	}
	if rooted[0] != "a" || rooted[1] != "b" {
		t.Errorf("rooted = %v, want input order preserved", rooted)
	}
}

func TestMapLoads_PerUnitAndSkips(t *testing.T) {
	m := sampleModel()
	nodes := []string{"650", "632", "671"}

	p, q, skipped := m.MapLoads(nodes)

	// 385 kW on a 1 MVA base is 0.385 p.u.
	if p[2][0] != 0.385 {
		t.Errorf("p[671][a] = %v, want 0.385", p[2][0])
	}
	if q[2][0] != 0.220 {
		t.Errorf("q[671][a] = %v, want 0.220", q[2][0])
	}
	if !p[0].IsZero() || !p[1].IsZero() {
		t.Error("unloaded buses must stay zero")
	}
	if len(skipped) != 1 || skipped[0] != "634" {
		t.Errorf("skipped = %v, want [634]", skipped)
	}
}

func TestMapLoads_AccumulatesSameBus(t *testing.T) {
	m := &Model{
		General: General{SBaseMVA: 1.0},
		Loads: []Load{
			{Bus: "671", P: phase.Vector3{100, 0, 0}},
			{Bus: "671", P: phase.Vector3{50, 0, 0}},
		},
	}
	p, _, _ := m.MapLoads([]string{"671"})
	if p[0][0] != 0.15 {
		t.Errorf("p = %v, want accumulated 0.15", p[0][0])
	}
}

func TestModel_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Model)
		wantErr string
	}{
		{"valid", func(*Model) {}, ""},
		{"no nodes", func(m *Model) { m.Nodes = nil }, "no nodes"},
		{"duplicate bus", func(m *Model) { m.Nodes = append(m.Nodes, "650") }, "duplicate"},
		{"empty bus", func(m *Model) { m.Nodes[0] = "" }, "empty bus"},
		{"dangling line", func(m *Model) { m.Lines[0].To = "" }, "missing an endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleModel()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSolverLines(t *testing.T) {
	m := sampleModel()
	lines := m.SolverLines()
	if len(lines) != 2 {
		t.Fatalf("len = %d, want 2", len(lines))
	}
	if lines[0].From != "650" || lines[0].To != "632" {
		t.Errorf("lines[0] = %s→%s, want 650→632", lines[0].From, lines[0].To)
	}
	if lines[1].R != m.Lines[1].R {
		t.Error("impedance matrices must carry over unchanged")
	}
}
