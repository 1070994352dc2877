package solver

import (
	"math"
	"testing"

	"github.com/voltlab/distflow/pkg/phase"
)

func TestCouplingMatrices_Diagonal(t *testing.T) {
	r := phase.Matrix3{{0.5, 0, 0}, {0, 0.6, 0}, {0, 0, 0.7}}
	x := phase.Matrix3{{0.1, 0, 0}, {0, 0.2, 0}, {0, 0, 0.3}}

	mp, mq := CouplingMatrices(r, x)

	wantP := phase.Matrix3{{-1.0, 0, 0}, {0, -1.2, 0}, {0, 0, -1.4}}
	wantQ := phase.Matrix3{{-0.2, 0, 0}, {0, -0.4, 0}, {0, 0, -0.6}}
	if mp != wantP {
		t.Errorf("MP = %v, want %v", mp, wantP)
	}
	if mq != wantQ {
		t.Errorf("MQ = %v, want %v", mq, wantQ)
	}
}

func TestCouplingMatrices_OffDiagonalTable(t *testing.T) {
	// Pin the fixed LinDist3Flow coefficient table entry by entry.
	// These combinations (mutual term ± sqrt(3) times the opposite
	// mutual term, signs alternating per phase row) are a constant of
	// the method, so any change here is a behavioral break.
	var r, x phase.Matrix3
	r[0][1], r[0][2] = 1, 2
	r[1][0], r[1][2] = 3, 4
	r[2][0], r[2][1] = 5, 6
	x[0][1], x[0][2] = 10, 20
	x[1][0], x[1][2] = 30, 40
	x[2][0], x[2][1] = 50, 60

	mp, mq := CouplingMatrices(r, x)
	s3 := math.Sqrt(3)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"MP[a][b]", mp[0][1], 1 - s3*10},
		{"MP[a][c]", mp[0][2], 2 + s3*20},
		{"MP[b][a]", mp[1][0], 3 + s3*30},
		{"MP[b][c]", mp[1][2], 4 - s3*40},
		{"MP[c][a]", mp[2][0], 5 - s3*50},
		{"MP[c][b]", mp[2][1], 6 + s3*60},
		{"MQ[a][b]", mq[0][1], 10 + s3*1},
		{"MQ[a][c]", mq[0][2], 20 - s3*2},
		{"MQ[b][a]", mq[1][0], 30 - s3*3},
		{"MQ[b][c]", mq[1][2], 40 + s3*4},
		{"MQ[c][a]", mq[2][0], 50 + s3*5},
		{"MQ[c][b]", mq[2][1], 60 - s3*6},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	// Diagonals are untouched by mutual terms.
	for i := 0; i < 3; i++ {
		if mp[i][i] != 0 || mq[i][i] != 0 {
			t.Errorf("diagonal (%d,%d) nonzero for zero self-impedance", i, i)
		}
	}
}

func TestCouplingMatrices_ZeroImpedance(t *testing.T) {
	mp, mq := CouplingMatrices(phase.Matrix3{}, phase.Matrix3{})
	if mp != (phase.Matrix3{}) || mq != (phase.Matrix3{}) {
		t.Error("zero impedance must produce zero coupling matrices")
	}
}

func TestCouplingMatrices_Pure(t *testing.T) {
	r := phase.Matrix3{{0.3, 0.05, 0}, {0.05, 0.3, 0}, {0, 0, 0.3}}
	x := phase.Matrix3{{0.1, 0.02, 0}, {0.02, 0.1, 0}, {0, 0, 0.1}}
	rCopy, xCopy := r, x

	mp1, mq1 := CouplingMatrices(r, x)
	mp2, mq2 := CouplingMatrices(r, x)

	if r != rCopy || x != xCopy {
		t.Error("CouplingMatrices mutated its inputs")
	}
	if mp1 != mp2 || mq1 != mq2 {
		t.Error("CouplingMatrices is not deterministic")
	}
}
