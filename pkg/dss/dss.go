// Package dss extracts a distribution-network model from OpenDSS
// circuit files.
//
// It parses the subset of the OpenDSS netlist dialect that the
// LinDist3Flow model needs: circuit and source-bus declaration, line
// codes with phase impedance matrices, line segments, spot loads and
// voltage bases. Everything else (transformers, regulators, capacitors,
// switches) is skipped with a debug log, since their behavior is out of
// scope for the linearized model.
//
// Impedance matrices are expanded to full 3x3 form with zero
// rows/columns at missing phases and multiplied by line length, so the
// resulting model always carries absolute ohms. Line lengths are
// converted into the line code's declared units first; the IEEE test
// feeders give line codes in ohms per mile and lengths in feet. When
// either side omits units the length is taken in the line code's
// units, matching the OpenDSS "none" default.
package dss

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/voltlab/distflow/pkg/network"
	"github.com/voltlab/distflow/pkg/phase"
)

// Defaults used when the circuit file does not declare bases. They are
// the canonical IEEE 13-bus values.
const (
	DefaultVBaseKVLL = 4.16
	DefaultSBaseMVA  = 1.0
)

// Options controls extraction.
type Options struct {
	// VBaseKVLL overrides the line-to-line voltage base. Zero means
	// derive it from the circuit's "Set VoltageBases" directive,
	// falling back to DefaultVBaseKVLL.
	VBaseKVLL float64

	// SBaseMVA is the apparent-power base. Zero means DefaultSBaseMVA.
	SBaseMVA float64

	// Logger receives debug messages about skipped directives.
	Logger *log.Logger
}

// Extract parses the circuit file at path and returns the network
// model. Redirect directives are resolved relative to the file's
// directory.
func Extract(path string, opts Options) (*network.Model, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	p := &parser{
		logger:    opts.Logger,
		lineCodes: make(map[string]*lineCode),
		loads:     make(map[string]*busLoad),
		nodes:     make(map[string]bool),
	}
	if err := p.parseFile(path); err != nil {
		return nil, err
	}
	return p.model(opts)
}

// lineCode is a named per-length impedance description.
type lineCode struct {
	nPhases int
	units   string
	r, x    [][]float64 // nPhases x nPhases, before phase mapping
}

// unitMeters maps OpenDSS length units to meters. "none", the OpenDSS
// default, carries no conversion information and maps to zero.
var unitMeters = map[string]float64{
	"none": 0,
	"m":    1,
	"km":   1000,
	"cm":   0.01,
	"in":   0.0254,
	"ft":   0.3048,
	"kft":  304.8,
	"mi":   1609.344,
}

// lengthUnits validates a units= attribute value.
func lengthUnits(val string) (string, error) {
	u := strings.ToLower(val)
	if _, ok := unitMeters[u]; !ok {
		return "", fmt.Errorf("unknown length units %q", val)
	}
	return u, nil
}

// scaledLength converts a line length into the line code's units. When
// either side is "none" the length is taken in the line code's units.
func scaledLength(length float64, lineUnits, codeUnits string) float64 {
	lm, cm := unitMeters[lineUnits], unitMeters[codeUnits]
	if lm == 0 || cm == 0 {
		return length
	}
	return length * lm / cm
}

// busLoad accumulates per-phase load at one bus.
type busLoad struct {
	p, q phase.Vector3
}

type parser struct {
	logger    *log.Logger
	sourceBus string
	vBases    []float64
	lineCodes map[string]*lineCode
	lines     []network.Line
	loads     map[string]*busLoad
	loadOrder []string
	nodes     map[string]bool
}

// parseFile reads one .dss file, joining "~" continuation lines to the
// directive they extend and stripping "!" comments.
func (p *parser) parseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read circuit %s: %w", path, err)
	}

	var pending string
	flush := func() error {
		if pending == "" {
			return nil
		}
		err := p.directive(pending, filepath.Dir(path))
		pending = ""
		return err
	}

	for _, raw := range strings.Split(string(data), "\n") {
		line := raw
		if i := strings.Index(line, "!"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "~") {
			pending += " " + strings.TrimSpace(line[1:])
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		pending = line
	}
	return flush()
}

// directive dispatches one logical statement.
func (p *parser) directive(stmt, dir string) error {
	fields := tokenize(stmt)
	if len(fields) == 0 {
		return nil
	}
	verb := strings.ToLower(fields[0])

	switch verb {
	case "clear", "calcvoltagebases", "solve":
		return nil
	case "redirect", "compile":
		if len(fields) < 2 {
			return fmt.Errorf("%s without a file name", verb)
		}
		target := strings.Trim(fields[1], `"`)
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		return p.parseFile(target)
	case "set":
		p.set(fields[1:])
		return nil
	case "new":
		if len(fields) < 2 {
			return fmt.Errorf("new without an element name")
		}
		return p.newElement(fields[1], fields[2:])
	default:
		p.logger.Debug("skipping directive", "verb", verb)
		return nil
	}
}

func (p *parser) set(params []string) {
	for _, kv := range params {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(key, "voltagebases") {
			if vals, err := parseNumberList(val); err == nil {
				p.vBases = vals
			}
		}
	}
}

// newElement handles "New <class>.<name> key=value ...".
func (p *parser) newElement(spec string, params []string) error {
	class, name, _ := strings.Cut(spec, ".")
	class = strings.ToLower(class)
	name = strings.ToLower(name)

	switch class {
	case "circuit":
		p.circuit(params)
		return nil
	case "linecode":
		return p.lineCode(name, params)
	case "line":
		return p.line(name, params)
	case "load":
		return p.load(name, params)
	default:
		p.logger.Debug("skipping element", "class", class, "name", name)
		return nil
	}
}

func (p *parser) circuit(params []string) {
	p.sourceBus = "sourcebus"
	for _, kv := range params {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(key, "bus1") {
			bus, _ := parseBusPhases(val)
			p.sourceBus = bus
		}
	}
	p.nodes[p.sourceBus] = true
}

func (p *parser) lineCode(name string, params []string) error {
	lc := &lineCode{nPhases: 3}
	for _, kv := range params {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "nphases":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 || n > 3 {
				return fmt.Errorf("linecode %s: bad nphases %q", name, val)
			}
			lc.nPhases = n
		case "units":
			u, err := lengthUnits(val)
			if err != nil {
				return fmt.Errorf("linecode %s: %w", name, err)
			}
			lc.units = u
		case "rmatrix":
			m, err := parseTriangularMatrix(val, lc.nPhases)
			if err != nil {
				return fmt.Errorf("linecode %s rmatrix: %w", name, err)
			}
			lc.r = m
		case "xmatrix":
			m, err := parseTriangularMatrix(val, lc.nPhases)
			if err != nil {
				return fmt.Errorf("linecode %s xmatrix: %w", name, err)
			}
			lc.x = m
		}
	}
	if lc.r == nil || lc.x == nil {
		return fmt.Errorf("linecode %s: missing rmatrix or xmatrix", name)
	}
	p.lineCodes[name] = lc
	return nil
}

func (p *parser) line(name string, params []string) error {
	var (
		bus1, bus2 string
		phases     []int
		length     = 1.0
		units      string
		nPhases    = 3
		code       *lineCode
		rInline    [][]float64
		xInline    [][]float64
	)

	for _, kv := range params {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "bus1":
			bus1, phases = parseBusPhases(val)
		case "bus2":
			bus2, _ = parseBusPhases(val)
		case "phases":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 || n > 3 {
				return fmt.Errorf("line %s: bad phases %q", name, val)
			}
			nPhases = n
		case "length":
			l, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("line %s: bad length %q", name, val)
			}
			length = l
		case "units":
			u, err := lengthUnits(val)
			if err != nil {
				return fmt.Errorf("line %s: %w", name, err)
			}
			units = u
		case "linecode":
			lc, ok := p.lineCodes[strings.ToLower(val)]
			if !ok {
				return fmt.Errorf("line %s: unknown linecode %q", name, val)
			}
			code = lc
		case "rmatrix":
			m, err := parseTriangularMatrix(val, nPhases)
			if err != nil {
				return fmt.Errorf("line %s rmatrix: %w", name, err)
			}
			rInline = m
		case "xmatrix":
			m, err := parseTriangularMatrix(val, nPhases)
			if err != nil {
				return fmt.Errorf("line %s xmatrix: %w", name, err)
			}
			xInline = m
		}
	}

	if bus1 == "" || bus2 == "" {
		return fmt.Errorf("line %s: missing bus1 or bus2", name)
	}

	// Inline matrices are per the line's own units, so the declared
	// length applies directly; a line code's matrices are per the
	// code's units and the length is converted into those first.
	var (
		r, x  [][]float64
		scale = length
	)
	switch {
	case rInline != nil && xInline != nil:
		r, x = rInline, xInline
	case code != nil:
		r, x = code.r, code.x
		scale = scaledLength(length, units, code.units)
		if len(phases) == 3 && code.nPhases < 3 {
			return fmt.Errorf("line %s: 3-phase buses with %d-phase linecode", name, code.nPhases)
		}
	default:
		return fmt.Errorf("line %s: no linecode and no inline impedance", name)
	}

	if len(phases) < len(r) {
		return fmt.Errorf("line %s: %d-phase impedance on %d-phase bus %s", name, len(r), len(phases), bus1)
	}

	p.nodes[bus1] = true
	p.nodes[bus2] = true
	p.lines = append(p.lines, network.Line{
		Name:   name,
		From:   bus1,
		To:     bus2,
		Length: length,
		R:      expand3x3(r, phases).Scale(scale),
		X:      expand3x3(x, phases).Scale(scale),
	})
	return nil
}

func (p *parser) load(name string, params []string) error {
	var (
		bus    string
		phases []int
		kw     float64
		kvar   float64
	)
	for _, kv := range params {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "bus1":
			bus, phases = parseBusPhases(val)
		case "kw":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("load %s: bad kw %q", name, val)
			}
			kw = v
		case "kvar":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("load %s: bad kvar %q", name, val)
			}
			kvar = v
		}
	}
	if bus == "" {
		return fmt.Errorf("load %s: missing bus1", name)
	}

	bl := p.loads[bus]
	if bl == nil {
		bl = &busLoad{}
		p.loads[bus] = bl
		p.loadOrder = append(p.loadOrder, bus)
	}

	// OpenDSS gives total kW/kvar for the element; split it evenly
	// over the connected phases.
	n := float64(len(phases))
	for _, ph := range phases {
		if ph < 3 {
			bl.p[ph] += kw / n
			bl.q[ph] += kvar / n
		}
	}
	return nil
}

// model assembles the final network model with sorted bus names.
func (p *parser) model(opts Options) (*network.Model, error) {
	if len(p.nodes) == 0 {
		return nil, fmt.Errorf("circuit declares no buses")
	}

	nodes := make([]string, 0, len(p.nodes))
	for n := range p.nodes {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	m := &network.Model{
		Nodes: nodes,
		General: network.General{
			VBaseKVLL: opts.VBaseKVLL,
			SBaseMVA:  opts.SBaseMVA,
		},
		Lines: p.lines,
	}
	if m.General.VBaseKVLL == 0 {
		m.General.VBaseKVLL = p.feederVBase()
	}
	if m.General.SBaseMVA == 0 {
		m.General.SBaseMVA = DefaultSBaseMVA
	}

	for _, bus := range p.loadOrder {
		bl := p.loads[bus]
		m.Loads = append(m.Loads, network.Load{Bus: bus, P: bl.p, Q: bl.q})
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// feederVBase picks the feeder voltage base from "Set VoltageBases".
// Test feeders list transmission, feeder and service bases together
// (e.g. [115, 4.16, .48]); the feeder level is the second-largest
// entry. A single entry is used as-is.
func (p *parser) feederVBase() float64 {
	switch len(p.vBases) {
	case 0:
		return DefaultVBaseKVLL
	case 1:
		return p.vBases[0]
	}
	sorted := append([]float64(nil), p.vBases...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	return sorted[1]
}
