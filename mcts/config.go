package mcts

import (
	"runtime"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// SearchMode selects the child-scoring formula.
type SearchMode int

const (
	// PUCT weighs exploration by the policy prior; it needs an
	// evaluator that produces meaningful priors.
	PUCT SearchMode = iota
	// UCB1 is the classic prior-free bandit rule.
	UCB1
)

func (m SearchMode) String() string {
	if m == UCB1 {
		return "UCB1"
	}
	return "PUCT"
}

// Config drives a tree search. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// MaxIterations caps the number of root descents. Zero means no
	// iteration cap, in which case TimeLimit must be set.
	MaxIterations int
	// TimeLimit is the wall-clock budget; whichever of the two caps
	// is hit first ends the search.
	TimeLimit time.Duration
	// ExplorationConstant is c in both UCB1 and PUCT.
	ExplorationConstant float32
	// Mode selects PUCT (default) or UCB1.
	Mode SearchMode
	// ArenaSize bounds the node count. On exhaustion expansion is
	// refused and the search degrades to already-expanded nodes.
	ArenaSize int

	// EarlyStopFraction stops the search once the most-visited root
	// child holds more than this share of root visits, after
	// EarlyStopMinVisits. Zero disables early stopping.
	EarlyStopFraction  float32
	EarlyStopMinVisits int

	// RootNoiseWeight mixes Dirichlet noise into the root priors in
	// PUCT mode, for self-play exploration. Zero (the default) keeps
	// searches deterministic given a deterministic evaluator.
	RootNoiseWeight float32
	DirichletAlpha  float64

	// ReuseTree keeps the tree between searches when the supplied
	// position matches the retained root (see ReuseSubtree). Off by
	// default: the tree is rebuilt per search.
	ReuseTree bool

	// Seed fixes the search's random source; zero seeds from the
	// clock.
	Seed int64
}

// DefaultConfig returns the settings used throughout the tests: PUCT
// with a moderate exploration constant and a million-node arena.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       10000,
		ExplorationConstant: 1.7,
		Mode:                PUCT,
		ArenaSize:           1 << 20,
		EarlyStopFraction:   0.6,
		EarlyStopMinVisits:  200,
		DirichletAlpha:      0.3,
	}
}

// Validate aggregates every configuration problem instead of stopping
// at the first.
func (c Config) Validate() error {
	var errs error
	if c.MaxIterations <= 0 && c.TimeLimit <= 0 {
		errs = multierror.Append(errs, errors.New("mcts: need MaxIterations or TimeLimit"))
	}
	if c.ExplorationConstant < 0 {
		errs = multierror.Append(errs, errors.New("mcts: ExplorationConstant must be non-negative"))
	}
	if c.ArenaSize < 2 {
		errs = multierror.Append(errs, errors.New("mcts: ArenaSize too small"))
	}
	if c.EarlyStopFraction < 0 || c.EarlyStopFraction >= 1 {
		errs = multierror.Append(errs, errors.New("mcts: EarlyStopFraction must be in [0, 1)"))
	}
	if c.RootNoiseWeight < 0 || c.RootNoiseWeight > 1 {
		errs = multierror.Append(errs, errors.New("mcts: RootNoiseWeight must be in [0, 1]"))
	}
	if c.RootNoiseWeight > 0 && c.DirichletAlpha <= 0 {
		errs = multierror.Append(errs, errors.New("mcts: DirichletAlpha must be positive with root noise"))
	}
	return errs
}

// ParallelConfig drives ParallelSearch.
type ParallelConfig struct {
	// NumWorkers is the goroutine count; 1 degenerates to the
	// sequential search. Zero picks the CPU count.
	NumWorkers int
	// UseInferenceThread funnels evaluator calls through a dedicated
	// batching goroutine instead of calling inline from workers.
	UseInferenceThread bool
	// BatchSize and QueueSize shape the inference queue; both have
	// working defaults.
	BatchSize int
	QueueSize int
}

// DefaultParallelConfig uses every CPU and inline evaluation.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{NumWorkers: runtime.NumCPU()}
}

func (c ParallelConfig) withDefaults() ParallelConfig {
	if c.NumWorkers <= 0 {
		c.NumWorkers = runtime.NumCPU()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 8
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return c
}

// Validate checks the parallel settings.
func (c ParallelConfig) Validate() error {
	var errs error
	if c.NumWorkers < 0 {
		errs = multierror.Append(errs, errors.New("mcts: NumWorkers must be non-negative"))
	}
	if c.BatchSize < 0 || c.QueueSize < 0 {
		errs = multierror.Append(errs, errors.New("mcts: batch queue sizes must be non-negative"))
	}
	return errs
}
