package cli

import (
	"testing"

	"github.com/voltlab/distflow/pkg/phase"
)

func TestParseRootVoltage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    phase.Vector3
		wantErr bool
	}{
		{"empty means default", "", phase.Vector3{}, false},
		{"single value on all phases", "1.05", phase.Vector3{1.05, 1.05, 1.05}, false},
		{"per-phase values", "1.05,1.0,0.98", phase.Vector3{1.05, 1.0, 0.98}, false},
		{"spaces tolerated", "1.05, 1.0, 0.98", phase.Vector3{1.05, 1.0, 0.98}, false},
		{"two values rejected", "1.0,1.0", phase.Vector3{}, true},
		{"garbage rejected", "high", phase.Vector3{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRootVoltage(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRootVoltage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseRootVoltage(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitInput(t *testing.T) {
	tests := []struct {
		arg     string
		circuit string
		model   string
	}{
		{"feeder.dss", "feeder.dss", ""},
		{"model.json", "", "model.json"},
		{"MODEL.JSON", "", "MODEL.JSON"},
		{"ieee13", "ieee13", ""},
	}

	for _, tt := range tests {
		circuit, model := splitInput(tt.arg)
		if circuit != tt.circuit || model != tt.model {
			t.Errorf("splitInput(%q) = (%q, %q), want (%q, %q)",
				tt.arg, circuit, model, tt.circuit, tt.model)
		}
	}
}

func TestDefaultModelPath(t *testing.T) {
	if got := defaultModelPath("feeders/ieee13.dss"); got != "feeders/ieee13.json" {
		t.Errorf("defaultModelPath = %q", got)
	}
	if got := defaultModelPath("master"); got != "master.json" {
		t.Errorf("defaultModelPath without extension = %q", got)
	}
}
