package eval

import (
	"io"

	"github.com/dgraph-io/ristretto/v2"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/pentemind/game"
	"github.com/pentemind/mcts"
)

// cacheEntry is one memoised evaluation. The prior slice is shared by
// every reader and must be treated as immutable.
type cacheEntry struct {
	priors []mcts.MovePrior
	value  float32
}

// Cached memoises another evaluator's results keyed by the position's
// Zobrist hash. Ristretto gives it concurrent access and cost-based
// eviction, so the wrapper is safe to share across search workers.
//
// The hash covers stones, capture counters and side to move; a 64-bit
// collision returns a stale entry, which for a prior cache degrades
// search quality rather than correctness.
type Cached struct {
	inner mcts.Evaluator
	cache *ristretto.Cache[uint64, cacheEntry]
}

// NewCached wraps inner with a cache holding roughly maxEntries
// evaluations.
func NewCached(inner mcts.Evaluator, maxEntries int64) (*Cached, error) {
	if inner == nil {
		return nil, errors.New("eval: nil inner evaluator")
	}
	if maxEntries <= 0 {
		maxEntries = 1 << 18
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, cacheEntry]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "eval: creating evaluation cache")
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Evaluate implements mcts.Evaluator.
func (c *Cached) Evaluate(s *game.State) ([]mcts.MovePrior, float32) {
	key := s.Hash()
	if e, ok := c.cache.Get(key); ok {
		return e.priors, e.value
	}
	priors, value := c.inner.Evaluate(s)
	c.cache.Set(key, cacheEntry{priors: priors, value: value}, 1)
	return priors, value
}

// EvaluatePolicy serves from the same cache as Evaluate.
func (c *Cached) EvaluatePolicy(s *game.State) []mcts.MovePrior {
	priors, _ := c.Evaluate(s)
	return priors
}

// EvaluateValue serves from the same cache as Evaluate.
func (c *Cached) EvaluateValue(s *game.State) float32 {
	_, value := c.Evaluate(s)
	return value
}

// Metrics exposes the underlying cache metrics for inspection.
func (c *Cached) Metrics() *ristretto.Metrics {
	return c.cache.Metrics
}

// Close releases the cache and the inner evaluator if it is closable.
func (c *Cached) Close() error {
	var errs error
	c.cache.Close()
	if closer, ok := c.inner.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}
