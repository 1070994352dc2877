package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/voltlab/distflow/pkg/cache"
	"github.com/voltlab/distflow/pkg/dss"
	"github.com/voltlab/distflow/pkg/network"
	"github.com/voltlab/distflow/pkg/observability"
	"github.com/voltlab/distflow/pkg/solver"
)

// Runner executes pipeline stages with caching. The zero value is not
// usable; construct with NewRunner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTLModel / TTLSolve override the default cache lifetimes.
	TTLModel time.Duration
	TTLSolve time.Duration
}

// NewRunner creates a runner. A nil c disables caching; a nil logger
// falls back to log.Default().
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Logger:   logger,
		TTLModel: cache.TTLModel,
		TTLSolve: cache.TTLSolve,
	}
}

// Convert extracts a network model from the circuit file in opts,
// serving it from cache when the file content and bases are unchanged.
func (r *Runner) Convert(ctx context.Context, opts Options) (*network.Model, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(opts.Circuit)
	if err != nil {
		return nil, false, fmt.Errorf("read circuit %s: %w", opts.Circuit, err)
	}
	key := r.Keyer.ModelKey(cache.Hash(raw), opts.VBaseKVLL, opts.SBaseMVA)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if m, err := network.UnmarshalModel(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "model")
				return m, true, nil
			}
			// A stale or corrupt entry falls through to re-extraction.
			_ = r.Cache.Delete(ctx, key)
		}
	}
	observability.Cache().OnCacheMiss(ctx, "model")

	start := time.Now()
	observability.Pipeline().OnConvertStart(ctx, opts.Circuit)
	m, err := dss.Extract(opts.Circuit, dss.Options{
		VBaseKVLL: opts.VBaseKVLL,
		SBaseMVA:  opts.SBaseMVA,
		Logger:    opts.Logger,
	})
	if err != nil {
		observability.Pipeline().OnConvertComplete(ctx, opts.Circuit, 0, time.Since(start), err)
		return nil, false, fmt.Errorf("extract %s: %w", opts.Circuit, err)
	}
	observability.Pipeline().OnConvertComplete(ctx, opts.Circuit, len(m.Nodes), time.Since(start), nil)

	if data, err := network.MarshalModel(m); err == nil {
		_ = r.Cache.Set(ctx, key, data, r.TTLModel)
		observability.Cache().OnCacheSet(ctx, "model", len(data))
	}
	return m, false, nil
}

// LoadModel returns the model for opts, either read from a model file
// or converted from a circuit.
func (r *Runner) LoadModel(ctx context.Context, opts Options) (*network.Model, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if opts.Model != "" {
		m, err := network.ReadModelFile(opts.Model)
		return m, false, err
	}
	return r.Convert(ctx, opts)
}

// Solve runs the power flow for the model's own loads and fills in the
// solve-related fields of a Result. Identical model + options pairs are
// served from cache.
func (r *Runner) Solve(ctx context.Context, m *network.Model, opts Options) (*Result, error) {
	opts.setDefaults()
	logger := opts.Logger

	nodes, root, found := network.Reroot(m.Nodes, opts.RootAliases)
	if found {
		logger.Debug("reference bus identified", "bus", root)
	} else {
		root = nodes[0]
		logger.Warn("no recognized source bus; using first node as root",
			"root", root, "aliases", opts.RootAliases)
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Model:     m,
		Root:      root,
		RootFound: found,
		Nodes:     nodes,
	}

	key, err := r.solveKey(m, nodes, opts)
	if err != nil {
		return nil, err
	}
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if err := json.Unmarshal(data, &res.Voltages); err == nil && len(res.Voltages) == len(nodes) {
				res.CacheInfo.SolveCached = true
				observability.Cache().OnCacheHit(ctx, "solve")
				return res, nil
			}
			_ = r.Cache.Delete(ctx, key)
		}
	}
	observability.Cache().OnCacheMiss(ctx, "solve")

	p, q, skipped := m.MapLoads(nodes)
	if len(skipped) > 0 {
		logger.Debug("loads on buses outside the line topology ignored", "buses", skipped)
	}
	res.SkippedLoads = skipped

	start := time.Now()
	observability.Pipeline().OnSolveStart(ctx, res.RunID, len(nodes))

	s, err := solver.New(nodes, m.SolverLines(), solver.NewBase(m.General.VBaseKVLL, m.General.SBaseMVA))
	if err != nil {
		observability.Pipeline().OnSolveComplete(ctx, res.RunID, time.Since(start), err)
		return nil, fmt.Errorf("build solver: %w", err)
	}
	if s.Dropped() > 0 {
		logger.Debug("lines referencing unknown buses dropped", "count", s.Dropped())
	}

	res.Voltages, err = s.Solve(solver.LoadCase{P: p, Q: q, RootVoltage: opts.RootVoltage})
	observability.Pipeline().OnSolveComplete(ctx, res.RunID, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	if data, err := json.Marshal(res.Voltages); err == nil {
		_ = r.Cache.Set(ctx, key, data, r.TTLSolve)
		observability.Cache().OnCacheSet(ctx, "solve", len(data))
	}
	return res, nil
}

// Execute runs convert + solve and assembles the full result.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	start := time.Now()
	m, modelCached, err := r.LoadModel(ctx, opts)
	if err != nil {
		return nil, err
	}
	convertTime := time.Since(start)

	start = time.Now()
	res, err := r.Solve(ctx, m, opts)
	if err != nil {
		return nil, err
	}

	res.CacheInfo.ModelCached = modelCached
	res.Stats = Stats{
		NodeCount:   len(m.Nodes),
		LineCount:   len(m.Lines),
		LoadCount:   len(m.Loads),
		ConvertTime: convertTime,
		SolveTime:   time.Since(start),
	}
	return res, nil
}

// Close releases the runner's cache backend.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// solveKey derives the cache key for one solve: the model content, the
// rooted node order and the root voltage all affect the result.
func (r *Runner) solveKey(m *network.Model, nodes []string, opts Options) (string, error) {
	modelData, err := network.MarshalModel(m)
	if err != nil {
		return "", fmt.Errorf("hash model: %w", err)
	}
	caseData, err := json.Marshal(struct {
		Nodes []string   `json:"nodes"`
		Root  [3]float64 `json:"root"`
	}{nodes, opts.RootVoltage})
	if err != nil {
		return "", fmt.Errorf("hash load case: %w", err)
	}
	return r.Keyer.SolveKey(cache.Hash(modelData), cache.Hash(caseData)), nil
}
