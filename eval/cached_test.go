package eval

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentemind/game"
	"github.com/pentemind/mcts"
)

// countingEval counts how often the wrapped evaluator actually runs.
type countingEval struct {
	inner mcts.Evaluator
	calls int32
}

func (c *countingEval) Evaluate(s *game.State) ([]mcts.MovePrior, float32) {
	atomic.AddInt32(&c.calls, 1)
	return c.inner.Evaluate(s)
}

func (c *countingEval) EvaluatePolicy(s *game.State) []mcts.MovePrior {
	p, _ := c.Evaluate(s)
	return p
}

func (c *countingEval) EvaluateValue(s *game.State) float32 {
	_, v := c.Evaluate(s)
	return v
}

func TestCachedServesFromCache(t *testing.T) {
	counting := &countingEval{inner: NewHeuristic()}
	cached, err := NewCached(counting, 1024)
	require.NoError(t, err)
	defer cached.Close()

	st := testState(t, "K10", "L9")

	p1, v1 := cached.Evaluate(st)
	require.EqualValues(t, 1, atomic.LoadInt32(&counting.calls))

	// Ristretto admits asynchronously; flush before the re-read.
	cached.cache.Wait()

	p2, v2 := cached.Evaluate(st)
	assert.EqualValues(t, 1, atomic.LoadInt32(&counting.calls), "second lookup must hit the cache")
	assert.Equal(t, p1, p2)
	assert.Equal(t, v1, v2)
}

func TestCachedDistinguishesPositions(t *testing.T) {
	counting := &countingEval{inner: NewHeuristic()}
	cached, err := NewCached(counting, 1024)
	require.NoError(t, err)
	defer cached.Close()

	cached.Evaluate(testState(t, "K10", "L9"))
	cached.cache.Wait()
	cached.Evaluate(testState(t, "K10", "M9"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&counting.calls))
}

func TestCachedPolicyAndValueShareCache(t *testing.T) {
	counting := &countingEval{inner: NewHeuristic()}
	cached, err := NewCached(counting, 1024)
	require.NoError(t, err)
	defer cached.Close()

	st := testState(t, "K10", "L9")
	_ = cached.EvaluatePolicy(st)
	cached.cache.Wait()
	_ = cached.EvaluateValue(st)
	assert.EqualValues(t, 1, atomic.LoadInt32(&counting.calls))
}

func TestCachedNilInner(t *testing.T) {
	_, err := NewCached(nil, 16)
	assert.Error(t, err)
}

func TestCachedConcurrentAccess(t *testing.T) {
	cached, err := NewCached(NewHeuristic(), 1024)
	require.NoError(t, err)
	defer cached.Close()

	st := testState(t, "K10", "L9")
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			local := st.Clone()
			for j := 0; j < 100; j++ {
				priors, _ := cached.Evaluate(local)
				if len(priors) != len(local.LegalMoves()) {
					t.Error("prior length mismatch")
					return
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
}
