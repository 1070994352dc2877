package dss

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/voltlab/distflow/pkg/phase"
)

// tokenize splits a directive into whitespace-separated fields while
// keeping bracketed values ("rmatrix=(0.3 | 0.1 0.3)") intact, and
// re-joins fields around bare "=" so "rmatrix = (...)" parses the same
// as "rmatrix=(...)".
func tokenize(stmt string) []string {
	var (
		tokens []string
		cur    strings.Builder
		depth  int
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range stmt {
		switch {
		case r == '(' || r == '[' || r == '{':
			depth++
			cur.WriteRune(r)
		case r == ')' || r == ']' || r == '}':
			depth--
			cur.WriteRune(r)
		case (r == ' ' || r == '\t' || r == ',') && depth == 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	// Merge "key = value" and "key= value" into "key=value".
	var out []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "=" && len(out) > 0 && i+1 < len(tokens):
			out[len(out)-1] += "=" + tokens[i+1]
			i++
		case strings.HasSuffix(tok, "=") && i+1 < len(tokens):
			out = append(out, tok+tokens[i+1])
			i++
		default:
			out = append(out, tok)
		}
	}
	return out
}

// parseBusPhases splits "632.1.2" into the lower-cased bus name and the
// zero-based phase indices. A bare bus name means all three phases.
func parseBusPhases(s string) (bus string, phases []int) {
	parts := strings.Split(s, ".")
	bus = strings.ToLower(parts[0])
	if len(parts) == 1 {
		return bus, []int{0, 1, 2}
	}
	for _, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 3 {
			continue // neutral (.0) and ground terminals are not phases
		}
		phases = append(phases, n-1)
	}
	if len(phases) == 0 {
		phases = []int{0, 1, 2}
	}
	return bus, phases
}

// parseNumberList reads "[115, 4.16, .48]" or "(1 2 3)" into floats.
func parseNumberList(val string) ([]float64, error) {
	val = strings.Trim(val, "[](){}")
	fields := strings.FieldsFunc(val, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseTriangularMatrix reads an OpenDSS matrix literal. Rows are
// separated by "|"; a lower-triangular literal (rows of length 1..n) is
// mirrored into a full symmetric matrix, a full literal (all rows of
// length n) is taken as-is. Any other shape is an error.
func parseTriangularMatrix(val string, n int) ([][]float64, error) {
	val = strings.Trim(val, "[](){}")
	rowStrs := strings.Split(val, "|")
	if len(rowStrs) != n {
		return nil, fmt.Errorf("expected %d rows, got %d", n, len(rowStrs))
	}

	rows := make([][]float64, n)
	for i, rs := range rowStrs {
		vals, err := parseNumberList(rs)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows[i] = vals
	}

	full := make([][]float64, n)
	for i := range full {
		full[i] = make([]float64, n)
	}
	switch {
	case isTriangular(rows):
		for i := 0; i < n; i++ {
			for j := 0; j <= i; j++ {
				full[i][j] = rows[i][j]
				full[j][i] = rows[i][j]
			}
		}
	case isSquare(rows):
		for i := 0; i < n; i++ {
			copy(full[i], rows[i])
		}
	default:
		return nil, fmt.Errorf("matrix is neither lower-triangular nor square")
	}
	return full, nil
}

func isTriangular(rows [][]float64) bool {
	for i, r := range rows {
		if len(r) != i+1 {
			return false
		}
	}
	return true
}

func isSquare(rows [][]float64) bool {
	for _, r := range rows {
		if len(r) != len(rows) {
			return false
		}
	}
	return true
}

// expand3x3 maps a reduced nPhases x nPhases matrix onto a full 3x3
// matrix using the bus's phase indices; missing phases stay zero.
func expand3x3(m [][]float64, phases []int) phase.Matrix3 {
	var out phase.Matrix3
	for i, pi := range phases {
		if i >= len(m) {
			break
		}
		for j, pj := range phases {
			if j >= len(m[i]) {
				continue
			}
			out[pi][pj] = m[i][j]
		}
	}
	return out
}
