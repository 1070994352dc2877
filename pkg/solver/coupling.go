package solver

import (
	"math"

	"github.com/voltlab/distflow/pkg/phase"
)

var sqrt3 = math.Sqrt(3)

// CouplingMatrices derives the LinDist3Flow sensitivity matrices MP and
// MQ from a line's per-unit resistance and reactance matrices. MP maps
// the per-phase active-power flow to the change in squared voltage
// magnitude across the line; MQ does the same for reactive power.
//
// The off-diagonal entries are the fixed LinDist3Flow coupling
// coefficients: each phase row combines the other two phases' mutual
// terms with opposite-signed sqrt(3) factors, reflecting the nominal
// 120° phase separation assumed by the linearization. The per-entry
// formulas below are a domain constant of the method and are written
// out literally rather than derived from a general phasor rotation.
func CouplingMatrices(r, x phase.Matrix3) (mp, mq phase.Matrix3) {
	for i := 0; i < 3; i++ {
		mp[i][i] = -2 * r[i][i]
		mq[i][i] = -2 * x[i][i]
	}

	// Row a
	mp[0][1] = r[0][1] - sqrt3*x[0][1]
	mp[0][2] = r[0][2] + sqrt3*x[0][2]
	mq[0][1] = x[0][1] + sqrt3*r[0][1]
	mq[0][2] = x[0][2] - sqrt3*r[0][2]

	// Row b
	mp[1][0] = r[1][0] + sqrt3*x[1][0]
	mp[1][2] = r[1][2] - sqrt3*x[1][2]
	mq[1][0] = x[1][0] - sqrt3*r[1][0]
	mq[1][2] = x[1][2] + sqrt3*r[1][2]

	// Row c
	mp[2][0] = r[2][0] - sqrt3*x[2][0]
	mp[2][1] = r[2][1] + sqrt3*x[2][1]
	mq[2][0] = x[2][0] + sqrt3*r[2][0]
	mq[2][1] = x[2][1] - sqrt3*r[2][1]

	return mp, mq
}
