package mcts

import (
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"
	distrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/pentemind/game"
)

// unvisitedBase is the selection score floor for children with no real
// or virtual visits; adding the prior on top makes unvisited children
// explored in prior order.
const unvisitedBase float32 = 1e6

// Search runs the configured number of iterations single-threaded and
// returns the recommended move. On a terminal position it returns the
// invalid sentinel and ErrNoLegalMove.
func (t *Tree) Search(state *game.State) (game.Move, error) {
	if err := t.beginSearch(state, 1); err != nil {
		return game.NoMove(), err
	}
	start := time.Now()
	w := t.newWorker()

	for {
		if reason := t.checkLimits(); reason != StopNone {
			t.setStopReason(reason)
			break
		}
		if !t.claimIteration() {
			break
		}
		w.runIteration()
	}

	t.finishSearch(start)
	return t.BestMove(), nil
}

// claimIteration grabs one slot of the iteration budget. Workers share
// the same fetch-add counter in parallel mode.
func (t *Tree) claimIteration() bool {
	it := atomic.AddInt32(&t.iterations, 1)
	if t.cfg.MaxIterations > 0 && int(it) > t.cfg.MaxIterations {
		t.setStopReason(StopIterations)
		return false
	}
	return true
}

func (t *Tree) setStopReason(r StopReason) {
	atomic.CompareAndSwapInt32(&t.stopReason, int32(StopNone), int32(r))
}

// checkLimits is polled at the top of every worker loop. In-flight
// iterations always run to completion.
func (t *Tree) checkLimits() StopReason {
	if atomic.LoadInt32(&t.stop) != 0 {
		return StopCancelled
	}
	root := t.node(t.root)
	if root.Solved() != Unsolved {
		return StopSolved
	}
	if !t.deadline.IsZero() && time.Now().After(t.deadline) {
		return StopTime
	}
	// The early-stop scan walks the root children, so only do it
	// every so often.
	if t.cfg.EarlyStopFraction > 0 && atomic.LoadInt32(&t.completed)%64 == 0 {
		rv := root.Visits()
		if rv >= int32(t.cfg.EarlyStopMinVisits) && root.Expanded() {
			var best int32
			for _, cid := range t.children(root) {
				if v := t.node(cid).Visits(); v > best {
					best = v
				}
			}
			if float32(best) > t.cfg.EarlyStopFraction*float32(rv) {
				return StopEarly
			}
		}
	}
	return StopNone
}

// beginSearch validates the position, decides whether the retained
// tree can be kept, and makes sure the root is expanded.
func (t *Tree) beginSearch(state *game.State, workers int) error {
	if state == nil {
		return ErrNilState
	}
	if state.IsTerminal() {
		return ErrNoLegalMove
	}

	atomic.StoreInt32(&t.collisions, 0)
	atomic.StoreInt32(&t.exhausted, 0)
	atomic.StoreInt32(&t.mismatches, 0)

	keep := t.cfg.ReuseTree && t.haveRoot &&
		t.rootHash == state.Hash() &&
		t.node(t.root).Expanded()
	if !keep {
		t.ClearTree()
		id, ok := t.allocNodes(1)
		if !ok {
			return ErrArenaExhausted
		}
		t.nodes[id].init(nilNode, game.NoMove(), state.SideToMove().Other(), 1)
		t.root = id
		t.rootState = state.Clone()
		t.rootHash = state.Hash()
		t.haveRoot = true
	}

	atomic.StoreInt32(&t.stop, 0)
	atomic.StoreInt32(&t.iterations, 0)
	atomic.StoreInt32(&t.completed, 0)
	atomic.StoreInt32(&t.maxDepth, 0)
	atomic.StoreInt32(&t.stopReason, int32(StopNone))
	t.workers = workers
	if t.cfg.TimeLimit > 0 {
		t.deadline = time.Now().Add(t.cfg.TimeLimit)
	} else {
		t.deadline = time.Time{}
	}

	t.prepareRoot()
	return nil
}

func (t *Tree) finishSearch(start time.Time) {
	t.elapsed = time.Since(start)
	t.setStopReason(StopIterations) // only lands if nothing else did
}

// prepareRoot expands the root if it is still a leaf and mixes in the
// configured Dirichlet exploration noise.
func (t *Tree) prepareRoot() {
	root := t.node(t.root)
	if !root.Expanded() {
		w := t.newWorker()
		if root.tryBeginExpand() {
			priors, value := w.evalFull(w.st)
			if t.expand(t.root, w.st.SideToMove(), priors) {
				root.finishExpand()
				// The root's own expansion visit, so the visit
				// identity visits = sum(children) + 1 holds at the
				// root too.
				t.backpropagate(nil, value)
			} else {
				root.abortExpand()
			}
		}
	}
	if t.cfg.Mode == PUCT && t.cfg.RootNoiseWeight > 0 && root.Expanded() {
		t.mixRootNoise()
	}
}

// mixRootNoise blends a Dirichlet sample into the root priors, the
// usual self-play exploration kick.
func (t *Tree) mixRootNoise() {
	root := t.node(t.root)
	kids := t.children(root)
	if len(kids) < 2 {
		return
	}
	alpha := make([]float64, len(kids))
	for i := range alpha {
		alpha[i] = t.cfg.DirichletAlpha
	}
	seed := uint64(t.cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	dist := distmv.NewDirichlet(alpha, distrand.NewSource(seed))
	sample := dist.Rand(nil)

	w := t.cfg.RootNoiseWeight
	for i, cid := range kids {
		c := t.node(cid)
		c.prior = (1-w)*c.prior + w*float32(sample[i])
	}
}

// worker is the per-goroutine iteration state: a private clone of the
// root position that moves are made on and undone from, a path buffer,
// and the evaluation entry points (redirected when inference batching
// is on).
type worker struct {
	t    *Tree
	st   *game.State
	path []NodeID

	evalFull  func(*game.State) ([]MovePrior, float32)
	evalValue func(*game.State) float32
}

func (t *Tree) newWorker() *worker {
	w := &worker{
		t:    t,
		st:   t.rootState.Clone(),
		path: make([]NodeID, 0, 64),
	}
	w.evalFull = w.directEvaluate
	w.evalValue = t.eval.EvaluateValue
	return w
}

// runIteration is one full selection -> expansion -> evaluation ->
// backpropagation cycle on the shared tree.
func (w *worker) runIteration() {
	t := w.t
	w.path = w.path[:0]
	id := t.root
	node := t.node(id)
	depth := 0

	// Selection. Virtual loss is added before each descent step so
	// concurrent workers are biased away from this path.
	for node.Expanded() && node.Solved() == Unsolved {
		cid := t.selectChild(node)
		if cid == nilNode {
			break
		}
		c := t.node(cid)
		c.addVirtualLoss(1)
		w.path = append(w.path, cid)
		if err := w.st.MakeMove(c.move); err != nil {
			// A child move can never be illegal on a consistent
			// tree; bail out of the iteration defensively.
			c.addVirtualLoss(-1)
			w.path = w.path[:len(w.path)-1]
			break
		}
		id, node = cid, c
		depth++
	}

	var value float32
	switch {
	case node.Solved() == SolvedWin:
		value = 1
	case node.Solved() == SolvedLoss:
		value = -1
	case w.st.IsTerminal():
		node.setTerminal()
		value = w.terminalValue(id, node)
	default:
		value = w.expandAndEvaluate(id, node)
	}

	t.backpropagate(w.path, value)
	for range w.path {
		w.st.UndoMove()
	}
	t.observeDepth(int32(depth))
	atomic.AddInt32(&t.completed, 1)
}

// selectChild scores the children of an expanded node and returns the
// best. A SolvedLoss child (a proven loss for the opponent to move
// there) is a proven win for the selector and is taken immediately;
// SolvedWin children are losing moves and are skipped unless nothing
// else remains.
func (t *Tree) selectChild(n *Node) NodeID {
	kids := t.children(n)
	if len(kids) == 0 {
		return nilNode
	}

	parentVisits := n.Visits() + n.VirtualLoss()
	if parentVisits < 1 {
		parentVisits = 1
	}
	sqrtN := math32.Sqrt(float32(parentVisits))
	lnN := math32.Log(float32(parentVisits))

	best := nilNode
	bestScore := float32(math32.Inf(-1))
	bestPrior := float32(-1)

	for _, cid := range kids {
		c := t.node(cid)
		switch c.Solved() {
		case SolvedLoss:
			return cid
		case SolvedWin:
			continue
		}

		visits := c.Visits()
		vloss := c.VirtualLoss()
		nEff := visits + vloss

		var score float32
		if nEff <= 0 {
			score = unvisitedBase + c.prior
		} else {
			q := (c.TotalValue() - float32(vloss)) / float32(nEff)
			if t.cfg.Mode == PUCT {
				score = q + t.cfg.ExplorationConstant*c.prior*sqrtN/(1+float32(nEff))
			} else {
				score = q + t.cfg.ExplorationConstant*math32.Sqrt(lnN/float32(nEff))
			}
		}
		if score > bestScore || (score == bestScore && c.prior > bestPrior) {
			best = cid
			bestScore = score
			bestPrior = c.prior
		}
	}

	if best == nilNode {
		// Every move is a proven loss; keep statistics flowing
		// through the first child until the solver reaches the root.
		return kids[0]
	}
	return best
}

// terminalValue scores a terminal leaf from the side to move's
// perspective and feeds the solver. The CAS inside markSolved makes
// sure the parent's unproven counter is decremented exactly once no
// matter how many workers reach this terminal.
func (w *worker) terminalValue(id NodeID, node *Node) float32 {
	winner := w.st.Winner()
	switch winner {
	case game.None:
		return 0 // draw: no proof recorded
	case w.st.SideToMove():
		if node.markSolved(SolvedWin) {
			w.t.propagateSolved(id, SolvedWin)
		}
		return 1
	default:
		if node.markSolved(SolvedLoss) {
			w.t.propagateSolved(id, SolvedLoss)
		}
		return -1
	}
}

// propagateSolved walks proofs toward the root:
//   - a SolvedLoss child means the parent's side to move has a winning
//     move, so the parent becomes SolvedWin;
//   - a SolvedWin child is one more refuted parent move; when the last
//     unproven child flips, the parent becomes SolvedLoss.
func (t *Tree) propagateSolved(id NodeID, status SolvedStatus) {
	for {
		parent := t.node(id).parent
		if parent == nilNode {
			return
		}
		pn := t.node(parent)
		switch status {
		case SolvedLoss:
			if !pn.markSolved(SolvedWin) {
				return
			}
			status = SolvedWin
		case SolvedWin:
			if atomic.AddInt32(&pn.unproven, -1) > 0 {
				return
			}
			if !pn.markSolved(SolvedLoss) {
				return
			}
			status = SolvedLoss
		default:
			return
		}
		id = parent
	}
}

// expandAndEvaluate turns a leaf into an internal node. Exactly one
// worker wins the CAS and publishes the children; racers wait out the
// expansion (counted as a collision) and contribute an evaluation of
// the same position instead.
func (w *worker) expandAndEvaluate(id NodeID, node *Node) float32 {
	t := w.t
	if node.tryBeginExpand() {
		priors, value := w.evalFull(w.st)
		if t.expand(id, w.st.SideToMove(), priors) {
			node.finishExpand()
		} else {
			node.abortExpand() // arena exhausted; stays a leaf
		}
		return value
	}

	if node.expanding() {
		atomic.AddInt32(&t.collisions, 1)
		for node.expanding() {
			runtime.Gosched()
		}
	}
	return w.evalValue(w.st)
}

// expand bulk-allocates one child node per prior and wires the span.
// The caller publishes with finishExpand; until then nothing else can
// see the children.
func (t *Tree) expand(id NodeID, mover game.Player, priors []MovePrior) bool {
	k := int32(len(priors))
	if k == 0 {
		return false
	}
	start, ok := t.allocNodes(k)
	if !ok {
		return false
	}
	span, ok := t.allocChildSpan(k)
	if !ok {
		return false
	}
	for i := int32(0); i < k; i++ {
		cid := start + NodeID(i)
		t.nodes[cid].init(id, priors[i].Move, mover, priors[i].P)
		t.childIndex[span+i] = cid
	}
	node := t.node(id)
	node.childStart = span
	node.childCount = k
	atomic.StoreInt32(&node.unproven, k)
	return true
}

// directEvaluate calls the evaluator inline and conditions its output:
// priors are aligned to the state's legal moves, renormalised, and
// sorted by probability so unvisited children explore best-first. Any
// mismatch with the legal-move set falls back to a uniform prior.
func (w *worker) directEvaluate(st *game.State) ([]MovePrior, float32) {
	raw, value := w.t.eval.Evaluate(st)
	return w.t.conditionPriors(st, raw), value
}

func (t *Tree) conditionPriors(st *game.State, raw []MovePrior) []MovePrior {
	legal := st.LegalMoves()
	out := make([]MovePrior, len(legal))

	var table [game.BoardCells]float32
	var present [game.BoardCells]bool
	mismatch := len(raw) != len(legal)
	for _, mp := range raw {
		idx := mp.Move.Index()
		if idx < 0 || present[idx] || mp.P < 0 {
			mismatch = true
			break
		}
		table[idx] = mp.P
		present[idx] = true
	}

	var sum float32
	if !mismatch {
		for i, m := range legal {
			if !present[m.Index()] {
				mismatch = true
				break
			}
			out[i] = MovePrior{Move: m, P: table[m.Index()]}
			sum += out[i].P
		}
	}

	if mismatch {
		atomic.AddInt32(&t.mismatches, 1)
	}
	if mismatch || sum <= math32.SmallestNonzeroFloat32 {
		p := 1 / float32(len(legal))
		for i, m := range legal {
			out[i] = MovePrior{Move: m, P: p}
		}
		return out
	}

	for i := range out {
		out[i].P /= sum
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].P > out[j].P })
	return out
}

// backpropagate adds the leaf value along the path, flipping sign at
// every step so each node accumulates from its mover's perspective,
// and takes back the virtual losses added during descent.
func (t *Tree) backpropagate(path []NodeID, leafValue float32) {
	val := -leafValue
	for i := len(path) - 1; i >= 0; i-- {
		n := t.node(path[i])
		n.record(val)
		n.addVirtualLoss(-1)
		val = -val
	}
	t.node(t.root).record(val)
}

func (t *Tree) observeDepth(d int32) {
	for {
		cur := atomic.LoadInt32(&t.maxDepth)
		if d <= cur || atomic.CompareAndSwapInt32(&t.maxDepth, cur, d) {
			return
		}
	}
}

// BestMove returns the recommendation from the last search: the most
// visited root child, ties broken by higher mean value. A solved root
// returns the proven winning child directly.
func (t *Tree) BestMove() game.Move {
	if !t.haveRoot {
		return game.NoMove()
	}
	root := t.node(t.root)
	if !root.Expanded() {
		return game.NoMove()
	}
	kids := t.children(root)
	if len(kids) == 0 {
		return game.NoMove()
	}

	if root.Solved() == SolvedWin {
		for _, cid := range kids {
			if t.node(cid).Solved() == SolvedLoss {
				return t.node(cid).move
			}
		}
	}

	best := kids[0]
	bestVisits := int32(-1)
	bestQ := float32(math32.Inf(-1))
	for _, cid := range kids {
		c := t.node(cid)
		// Never recommend a proven losing move if any alternative
		// exists.
		if c.Solved() == SolvedWin && len(kids) > 1 {
			continue
		}
		v := c.Visits()
		q := c.MeanValue()
		if v > bestVisits || (v == bestVisits && q > bestQ) {
			best = cid
			bestVisits = v
			bestQ = q
		}
	}
	return t.node(best).move
}

// ProvenWinningMove returns the winning move once the root is solved
// in the searcher's favour, or the invalid sentinel.
func (t *Tree) ProvenWinningMove() game.Move {
	if !t.haveRoot {
		return game.NoMove()
	}
	root := t.node(t.root)
	if root.Solved() != SolvedWin || !root.Expanded() {
		return game.NoMove()
	}
	for _, cid := range t.children(root) {
		if t.node(cid).Solved() == SolvedLoss {
			return t.node(cid).move
		}
	}
	return game.NoMove()
}
