package mcts

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pentemind/game"
)

// DriverState is the lifecycle of the parallel search driver.
type DriverState int32

const (
	DriverIdle DriverState = iota
	DriverRunning
	DriverStopping
	DriverDone
)

func (s DriverState) String() string {
	switch s {
	case DriverRunning:
		return "Running"
	case DriverStopping:
		return "Stopping"
	case DriverDone:
		return "Done"
	}
	return "Idle"
}

// DriverState returns the current driver lifecycle state.
func (t *Tree) DriverState() DriverState {
	return DriverState(atomic.LoadInt32(&t.driver))
}

func (t *Tree) markStopping() {
	atomic.CompareAndSwapInt32(&t.driver, int32(DriverRunning), int32(DriverStopping))
}

// ParallelSearch runs the same search as Search with a pool of worker
// goroutines sharing the tree. Work is shared through the atomic
// iteration counter: each worker claims a slot, runs one full cycle,
// and re-checks the limits. Workers never block on one another except
// through virtual loss and the optional inference queue.
func (t *Tree) ParallelSearch(state *game.State, pcfg ParallelConfig) (game.Move, error) {
	pcfg = pcfg.withDefaults()
	if err := pcfg.Validate(); err != nil {
		return game.NoMove(), err
	}
	if err := t.beginSearch(state, pcfg.NumWorkers); err != nil {
		return game.NoMove(), err
	}
	start := time.Now()
	atomic.StoreInt32(&t.driver, int32(DriverRunning))

	var inf *inferenceServer
	if pcfg.UseInferenceThread {
		inf = startInference(t, pcfg)
	}

	var wg sync.WaitGroup
	for i := 0; i < pcfg.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := t.newWorker()
			if inf != nil {
				w.evalFull = inf.evaluateFull
				w.evalValue = inf.evaluateValue
			}
			for {
				if reason := t.checkLimits(); reason != StopNone {
					t.setStopReason(reason)
					t.markStopping()
					return
				}
				if !t.claimIteration() {
					t.markStopping()
					return
				}
				w.runIteration()
			}
		}()
	}

	wg.Wait()
	if inf != nil {
		inf.shutdown()
	}
	t.finishSearch(start)
	atomic.StoreInt32(&t.driver, int32(DriverDone))
	return t.BestMove(), nil
}

// evalRequest asks the inference goroutine for one evaluation. The
// requesting worker parks on its one-shot channel, so the state it
// passes stays untouched until the reply lands.
type evalRequest struct {
	state  *game.State
	policy bool // full policy+value vs value only
	out    chan evalResult
}

type evalResult struct {
	priors []MovePrior
	value  float32
}

// inferenceServer drains evaluation requests in batches on a single
// goroutine, which is where a GPU-backed evaluator would amortise its
// dispatch overhead.
type inferenceServer struct {
	t     *Tree
	queue chan evalRequest
}

func startInference(t *Tree, pcfg ParallelConfig) *inferenceServer {
	s := &inferenceServer{
		t:     t,
		queue: make(chan evalRequest, pcfg.QueueSize),
	}
	go s.loop(pcfg.BatchSize)
	return s
}

// shutdown closes the queue once every worker has exited; the loop
// goroutine drains what is left and returns.
func (s *inferenceServer) shutdown() {
	close(s.queue)
}

func (s *inferenceServer) loop(batchSize int) {
	batch := make([]evalRequest, 0, batchSize)
	for {
		first, ok := <-s.queue
		if !ok {
			return
		}
		batch = append(batch[:0], first)
	fill:
		for len(batch) < batchSize {
			select {
			case req, ok := <-s.queue:
				if !ok {
					break fill
				}
				batch = append(batch, req)
			default:
				break fill
			}
		}
		s.serve(batch)
	}
}

func (s *inferenceServer) serve(batch []evalRequest) {
	t := s.t

	// A batch-capable evaluator gets the policy requests in one call.
	if be, ok := t.eval.(BatchEvaluator); ok {
		var states []*game.State
		var idxs []int
		for i, req := range batch {
			if req.policy {
				states = append(states, req.state)
				idxs = append(idxs, i)
			}
		}
		if len(states) > 0 {
			priors, values := be.EvaluateBatch(states)
			for bi, i := range idxs {
				req := batch[i]
				req.out <- evalResult{
					priors: t.conditionPriors(req.state, priors[bi]),
					value:  values[bi],
				}
				batch[i].policy = false
				batch[i].out = nil
			}
		}
		for _, req := range batch {
			if req.out != nil {
				req.out <- evalResult{value: t.eval.EvaluateValue(req.state)}
			}
		}
		return
	}

	for _, req := range batch {
		if req.policy {
			raw, v := t.eval.Evaluate(req.state)
			req.out <- evalResult{priors: t.conditionPriors(req.state, raw), value: v}
		} else {
			req.out <- evalResult{value: t.eval.EvaluateValue(req.state)}
		}
	}
}

func (s *inferenceServer) evaluateFull(st *game.State) ([]MovePrior, float32) {
	out := make(chan evalResult, 1)
	s.queue <- evalRequest{state: st, policy: true, out: out}
	r := <-out
	return r.priors, r.value
}

func (s *inferenceServer) evaluateValue(st *game.State) float32 {
	out := make(chan evalResult, 1)
	s.queue <- evalRequest{state: st, out: out}
	r := <-out
	return r.value
}
