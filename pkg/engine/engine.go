package engine

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
	"github.com/ishanwen-byte/symrule-go/pkg/eval"
	"github.com/ishanwen-byte/symrule-go/pkg/gp"
	"github.com/ishanwen-byte/symrule-go/pkg/parser"
)

// Consultant is invoked synchronously between generation blocks to merge
// external suggestions into the live search state.
type Consultant interface {
	Consult(ctx context.Context, generation int)
}

// Engine runs the evolutionary search: it owns the population, the hall
// of fame and the primitive set, and drives generation blocks with
// tournament selection, height-bounded variation and elitist survivor
// selection. The engine is single-threaded and sequential.
type Engine struct {
	cfg    types.GPConfig
	ps     *gp.PrimitiveSet
	gen    *gp.Generator
	rng    *rand.Rand
	parser *parser.Parser
	logger *logrus.Logger

	X [][]float64
	y []int

	population []*gp.Individual
	hof        *HallOfFame
	history    []types.BestRecord
	generation int

	consultant Consultant
	interval   int
}

// Result is the outcome of a completed run.
type Result struct {
	Best       *gp.Individual
	Expression string
	Fitness    float64
	Predict    func([]float64) float64
	History    []types.BestRecord
}

// New creates an engine over a primitive set and a fixed sample set.
func New(cfg types.GPConfig, ps *gp.PrimitiveSet, X [][]float64, y []int) (*Engine, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errors.New(errors.ConfigInvalid, "sample matrix and label vector must be non-empty and parallel")
	}
	for i, row := range X {
		if len(row) != ps.Arity() {
			return nil, errors.Newf(errors.ConfigInvalid,
				"sample %d has %d features, expected %d", i, len(row), ps.Arity())
		}
	}

	p, err := parser.New(ps)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	e := &Engine{
		cfg:    cfg,
		ps:     ps,
		gen:    gp.NewGenerator(ps, rng),
		rng:    rng,
		parser: p,
		logger: logger,
		X:      X,
		y:      y,
		hof:    NewHallOfFame(ps.Arity() + constants.HofExtraCapacity),
	}

	logger.WithFields(logrus.Fields{
		"population": cfg.PopulationSize,
		"max_height": cfg.MaxTreeHeight,
		"hof":        e.hof.Capacity(),
		"seed":       seed,
	}).Info("Initialized search engine")

	return e, nil
}

// SetConsultant attaches an advisor consultant invoked every interval
// generations, at block boundaries.
func (e *Engine) SetConsultant(c Consultant, interval int) {
	e.consultant = c
	e.interval = interval
}

// SetLogger replaces the engine logger.
func (e *Engine) SetLogger(logger *logrus.Logger) {
	e.logger = logger
}

// Labels returns the declared variable names.
func (e *Engine) Labels() []string {
	return e.ps.Variables()
}

// OperatorNames returns the registered operator names.
func (e *Engine) OperatorNames() []string {
	return e.ps.OperatorNames()
}

// SampleCount returns the number of training samples.
func (e *Engine) SampleCount() int {
	return len(e.X)
}

// Generation returns the current generation index.
func (e *Engine) Generation() int {
	return e.generation
}

// Top returns the best k hall-of-fame entries.
func (e *Engine) Top(k int) []types.HofEntry {
	return e.hof.Top(k)
}

// History returns the per-block best records.
func (e *Engine) History() []types.BestRecord {
	out := make([]types.BestRecord, len(e.history))
	copy(out, e.history)
	return out
}

// Population returns the live population. Exposed for tests and the
// suggestion-integration path; callers must not retain it.
func (e *Engine) Population() []*gp.Individual {
	return e.population
}

// InitPopulation builds a fresh ramped population of PopulationSize
// individuals and clears the hall of fame.
func (e *Engine) InitPopulation() {
	e.population = make([]*gp.Individual, e.cfg.PopulationSize)
	for i := range e.population {
		e.population[i] = e.gen.NewIndividual(e.cfg.MaxTreeHeight)
	}
	e.hof.Clear()
	e.history = nil
	e.generation = 0
}

func (e *Engine) evaluate(ind *gp.Individual) {
	if ind.HasFitness() {
		return
	}
	ind.SetFitness(eval.EvaluatePerformance(ind, e.ps, e.X, e.y))
}

func (e *Engine) evaluateAll(inds []*gp.Individual) {
	for _, ind := range inds {
		e.evaluate(ind)
	}
}

// tournament picks the highest-fitness individual among a uniformly
// sampled subset; ties go to the first encountered.
func (e *Engine) tournament(pool []*gp.Individual) *gp.Individual {
	best := pool[e.rng.Intn(len(pool))]
	for i := 1; i < e.cfg.SelectTourSize; i++ {
		contender := pool[e.rng.Intn(len(pool))]
		if contender.Fitness() > best.Fitness() {
			best = contender
		}
	}
	return best
}

func (e *Engine) selectParents(mu int) []*gp.Individual {
	parents := make([]*gp.Individual, mu)
	for i := range parents {
		parents[i] = e.tournament(e.population)
	}
	return parents
}

// varOr produces lambda offspring: draw two parents, cross with
// probability CrossoverProb, then mutate with probability MutationProb.
// Both operators roll back to the parent when the height bound breaks.
func (e *Engine) varOr(parents []*gp.Individual, lambda int) []*gp.Individual {
	offspring := make([]*gp.Individual, 0, lambda)
	for len(offspring) < lambda {
		p1 := parents[e.rng.Intn(len(parents))]
		p2 := parents[e.rng.Intn(len(parents))]

		child := p1.Clone()
		if e.rng.Float64() < e.cfg.CrossoverProb {
			child, _ = e.gen.MateWithLimit(p1, p2, e.cfg.MaxTreeHeight)
		}
		if e.rng.Float64() < e.cfg.MutationProb {
			child = e.gen.MutateWithLimit(child, e.cfg.MaxTreeHeight)
		}
		offspring = append(offspring, child)
	}
	return offspring
}

// survivors keeps the best mu individuals of the combined pool.
func survivors(pool []*gp.Individual, mu int) []*gp.Individual {
	kept := make([]*gp.Individual, 0, mu)
	used := make([]bool, len(pool))
	for len(kept) < mu && len(kept) < len(pool) {
		bestIdx := -1
		bestFit := math.Inf(-1)
		for i, ind := range pool {
			if used[i] {
				continue
			}
			if bestIdx == -1 || ind.Fitness() > bestFit {
				bestIdx = i
				bestFit = ind.Fitness()
			}
		}
		used[bestIdx] = true
		kept = append(kept, pool[bestIdx])
	}
	return kept
}

// RunBlock executes nGen generations of mu+lambda evolution.
func (e *Engine) RunBlock(ctx context.Context, nGen int) error {
	mu := e.cfg.SelectTourSize
	lambda := 2 * e.hof.Capacity()

	e.evaluateAll(e.population)
	e.hof.Update(e.population)

	for g := 0; g < nGen; g++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		parents := e.selectParents(mu)
		offspring := e.varOr(parents, lambda)
		e.evaluateAll(offspring)

		pool := append(append([]*gp.Individual{}, parents...), offspring...)
		e.population = survivors(pool, mu)
		e.hof.Update(e.population)
		e.generation++
	}

	return nil
}

// Run drives the whole search: generation blocks with consultation at
// configured boundaries, terminating when the requested generation count
// is exhausted. The best-ever genotype is returned compiled, together
// with its canonical text.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.population == nil {
		e.InitPopulation()
	}

	step := e.cfg.GenerationStep
	if step <= 0 {
		step = constants.DefaultGenerationStep
	}

	for gen := 0; gen < e.cfg.NumGenerations; gen += step {
		n := step
		if remaining := e.cfg.NumGenerations - gen; remaining < n {
			n = remaining
		}

		if err := e.RunBlock(ctx, n); err != nil {
			return nil, err
		}

		best := e.hof.Best()
		e.history = append(e.history, types.BestRecord{
			Generation: gen,
			Expression: best.String(),
			Fitness:    best.Fitness(),
		})
		e.logger.WithFields(logrus.Fields{
			"generation": gen,
			"expression": best.String(),
			"fitness":    best.Fitness(),
		}).Info("Generation block completed")

		if e.consultant != nil && e.interval > 0 && gen%e.interval == 0 {
			e.consultant.Consult(ctx, gen)
		}
	}

	best := e.hof.Best()
	if best == nil {
		return nil, errors.New(errors.Evaluation, "search produced no evaluated individuals")
	}
	fn, err := gp.Compile(best, e.ps)
	if err != nil {
		return nil, err
	}

	return &Result{
		Best:       best,
		Expression: best.String(),
		Fitness:    best.Fitness(),
		Predict:    fn,
		History:    e.History(),
	}, nil
}

// IntegrateSuggestion parses, validates and scores one advisor
// suggestion. On success the individual enters the hall of fame (subject
// to its invariants) and replaces the single lowest-fitness member of
// the live population. On failure the search state is left untouched and
// the outcome records the reason.
func (e *Engine) IntegrateSuggestion(s types.Suggestion) types.SuggestionOutcome {
	outcome := types.SuggestionOutcome{
		Expression: s.Expression,
		Reason:     s.Reason,
	}

	ind, err := e.parser.Parse(s.Expression)
	if err == nil {
		err = parser.CheckHeight(ind, e.cfg.MaxTreeHeight)
	}

	var fn func([]float64) float64
	if err == nil {
		fn, err = gp.Compile(ind, e.ps)
	}

	if err != nil {
		outcome.Status = constants.StatusFailed
		outcome.Error = err.Error()
		e.logger.WithFields(logrus.Fields{
			"expression": s.Expression,
			"error":      err.Error(),
		}).Warn("Rejected advisor suggestion")
		return outcome
	}

	ind.SetFitness(eval.EvaluateFunc(fn, e.X, e.y))
	e.hof.Update([]*gp.Individual{ind})

	if len(e.population) > 0 {
		worst := 0
		for i, member := range e.population {
			if member.Fitness() < e.population[worst].Fitness() {
				worst = i
			}
		}
		e.population[worst] = ind
	}

	outcome.Status = constants.StatusSuccess
	outcome.Fitness = ind.Fitness()
	e.logger.WithFields(logrus.Fields{
		"expression": s.Expression,
		"fitness":    ind.Fitness(),
	}).Info("Integrated advisor suggestion")
	return outcome
}

// Reset releases the population, hall of fame, history and counters.
// It is idempotent and safe to invoke during teardown paths.
func (e *Engine) Reset() {
	e.population = nil
	e.history = nil
	e.generation = 0
	if e.hof != nil {
		e.hof.Clear()
	}
}
