package mcts

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/pentemind/game"
)

// Sentinel errors for the search entry points.
var (
	// ErrNoLegalMove is returned when a search is started on a
	// terminal position; the move alongside it is the invalid
	// sentinel.
	ErrNoLegalMove = errors.New("mcts: no legal move in terminal position")
	// ErrNilState guards the public entry points.
	ErrNilState = errors.New("mcts: nil state")
	// ErrArenaExhausted is returned when not even a root node fits;
	// mid-search exhaustion is not an error, it just stops expansion
	// and shows up in Stats.
	ErrArenaExhausted = errors.New("mcts: arena exhausted")
)

// StopReason records why the last search ended.
type StopReason int

const (
	StopNone StopReason = iota
	StopIterations
	StopTime
	StopEarly
	StopSolved
	StopCancelled
)

func (r StopReason) String() string {
	switch r {
	case StopIterations:
		return "Iterations"
	case StopTime:
		return "Time"
	case StopEarly:
		return "EarlyStop"
	case StopSolved:
		return "Solved"
	case StopCancelled:
		return "Cancelled"
	}
	return "None"
}

// Tree is the search tree plus the arenas its nodes live in.
//
// Nodes and child-index slots are bump-allocated with fetch-add
// cursors and never freed individually; a reset just rewinds the
// cursors. That is what lets concurrent workers expand without locks:
// allocation is one atomic add, and a node's child slice is immutable
// once its expanded flag is published.
type Tree struct {
	cfg  Config
	eval Evaluator

	nodes       []Node
	nodeCursor  int32 // atomic
	childIndex  []NodeID
	childCursor int32 // atomic

	root      NodeID
	rootState *game.State // position the tree is rooted at
	rootHash  uint64
	haveRoot  bool

	// driver state, shared with parallel.go
	driver     int32 // atomic DriverState
	stop       int32 // atomic cancel flag
	deadline   time.Time
	iterations int32 // atomic: claimed iteration slots
	completed  int32 // atomic: finished iterations

	collisions int32 // atomic: selection hit a node mid-expansion
	exhausted  int32 // atomic: refused expansions, arena full
	mismatches int32 // atomic: evaluator prior/legal-move mismatches
	maxDepth   int32 // atomic

	stopReason int32 // atomic StopReason
	elapsed    time.Duration
	workers    int
}

// NewTree allocates the arenas for the given configuration. The
// evaluator is shared by every worker and must be thread-safe.
func NewTree(cfg Config, eval Evaluator) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, errors.New("mcts: nil evaluator")
	}
	return &Tree{
		cfg:        cfg,
		eval:       eval,
		nodes:      make([]Node, cfg.ArenaSize),
		childIndex: make([]NodeID, cfg.ArenaSize),
		root:       nilNode,
	}, nil
}

// Config returns the search configuration.
func (t *Tree) Config() Config { return t.cfg }

func (t *Tree) node(id NodeID) *Node { return &t.nodes[id] }

// children returns the published child slice of n. Callers must have
// observed n.Expanded() first.
func (t *Tree) children(n *Node) []NodeID {
	return t.childIndex[n.childStart : n.childStart+n.childCount]
}

// allocNodes claims n contiguous arena slots, or reports exhaustion.
func (t *Tree) allocNodes(n int32) (NodeID, bool) {
	end := atomic.AddInt32(&t.nodeCursor, n)
	if int(end) > len(t.nodes) {
		atomic.AddInt32(&t.exhausted, 1)
		return nilNode, false
	}
	return NodeID(end - n), true
}

// allocChildSpan claims n contiguous child-index slots.
func (t *Tree) allocChildSpan(n int32) (int32, bool) {
	end := atomic.AddInt32(&t.childCursor, n)
	if int(end) > len(t.childIndex) {
		atomic.AddInt32(&t.exhausted, 1)
		return 0, false
	}
	return end - n, true
}

// ClearTree drops the whole tree. No destructors run; the arenas are
// rewound and slots are fully rewritten on their next allocation.
func (t *Tree) ClearTree() {
	atomic.StoreInt32(&t.nodeCursor, 0)
	atomic.StoreInt32(&t.childCursor, 0)
	t.root = nilNode
	t.rootState = nil
	t.rootHash = 0
	t.haveRoot = false
}

// TreeSize returns the number of allocated nodes.
func (t *Tree) TreeSize() int {
	n := int(atomic.LoadInt32(&t.nodeCursor))
	if n > len(t.nodes) {
		n = len(t.nodes)
	}
	return n
}

// Stop requests cancellation; workers finish their in-flight
// iteration and exit.
func (t *Tree) Stop() {
	atomic.StoreInt32(&t.stop, 1)
}

// Stats describes the last (or running) search.
type Stats struct {
	Iterations          int
	RootVisits          int32
	RootValue           float32
	RootSolved          SolvedStatus
	TreeSize            int
	MaxDepth            int
	Collisions          int32
	ArenaExhausted      int32
	EvaluatorMismatches int32
	Elapsed             time.Duration
	StopReason          StopReason
	Workers             int
}

// Stats snapshots the search counters.
func (t *Tree) Stats() Stats {
	s := Stats{
		Iterations:          int(atomic.LoadInt32(&t.completed)),
		TreeSize:            t.TreeSize(),
		MaxDepth:            int(atomic.LoadInt32(&t.maxDepth)),
		Collisions:          atomic.LoadInt32(&t.collisions),
		ArenaExhausted:      atomic.LoadInt32(&t.exhausted),
		EvaluatorMismatches: atomic.LoadInt32(&t.mismatches),
		Elapsed:             t.elapsed,
		StopReason:          StopReason(atomic.LoadInt32(&t.stopReason)),
		Workers:             t.workers,
	}
	if t.haveRoot {
		root := t.node(t.root)
		s.RootVisits = root.Visits()
		s.RootValue = root.MeanValue()
		s.RootSolved = root.Solved()
	}
	return s
}

// ChildStat is one root child in TopChildren output.
type ChildStat struct {
	Move   game.Move
	Visits int32
	Q      float32
	Prior  float32
	Solved SolvedStatus
}

// TopChildren returns up to k root children ordered by visit count,
// ties broken by mean value. k <= 0 returns all of them.
func (t *Tree) TopChildren(k int) []ChildStat {
	if !t.haveRoot {
		return nil
	}
	root := t.node(t.root)
	if !root.Expanded() {
		return nil
	}
	kids := t.children(root)
	out := make([]ChildStat, 0, len(kids))
	for _, cid := range kids {
		c := t.node(cid)
		out = append(out, ChildStat{
			Move:   c.Move(),
			Visits: c.Visits(),
			Q:      c.MeanValue(),
			Prior:  c.Prior(),
			Solved: c.Solved(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		return out[i].Q > out[j].Q
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// ReuseSubtree re-roots the tree at the child reached by move,
// compacting the retained subtree to the arena front and reclaiming
// everything else. Returns false (and leaves the tree untouched) when
// the move has no corresponding child. Must not be called while a
// search is running.
func (t *Tree) ReuseSubtree(move game.Move) bool {
	if !t.haveRoot || t.rootState == nil {
		return false
	}
	root := t.node(t.root)
	if !root.Expanded() {
		return false
	}
	var target NodeID = nilNode
	for _, cid := range t.children(root) {
		if t.node(cid).move == move {
			target = cid
			break
		}
	}
	if target == nilNode {
		return false
	}
	if err := t.rootState.MakeMove(move); err != nil {
		return false
	}

	// Breadth-first compacting copy into scratch slices; the new id
	// of a node is simply its visit order.
	oldCount := int(atomic.LoadInt32(&t.nodeCursor))
	scratch := make([]Node, 0, oldCount)
	scratchKids := make([]NodeID, 0, oldCount)
	queue := make([]NodeID, 0, oldCount)

	queue = append(queue, target)
	scratch = append(scratch, *t.node(target))
	scratch[0].parent = nilNode

	for qi := 0; qi < len(queue); qi++ {
		n := scratch[qi]
		if !n.Expanded() || n.childCount == 0 {
			scratch[qi].childStart = 0
			scratch[qi].childCount = n.childCount
			continue
		}
		span := t.childIndex[n.childStart : n.childStart+n.childCount]
		newStart := int32(len(scratchKids))
		for _, oldChild := range span {
			newID := NodeID(len(queue))
			scratchKids = append(scratchKids, newID)
			queue = append(queue, oldChild)
			scratch = append(scratch, *t.node(oldChild))
			scratch[len(scratch)-1].parent = NodeID(qi)
		}
		scratch[qi].childStart = newStart
	}

	copy(t.nodes, scratch)
	copy(t.childIndex, scratchKids)
	atomic.StoreInt32(&t.nodeCursor, int32(len(scratch)))
	atomic.StoreInt32(&t.childCursor, int32(len(scratchKids)))
	t.root = 0
	t.rootHash = t.rootState.Hash()
	return true
}
