package mcts

import (
	"sync/atomic"

	"github.com/pentemind/game"
)

// NodeID is an index into the tree's node arena; it stands in for a
// pointer so the whole tree lives in one allocation.
type NodeID int32

const nilNode NodeID = -1

// SolvedStatus is the minimax proof annotation on a node, kept beside
// the running statistical average. It is the proven outcome for the
// side to move AT the node: a terminal position whose previous move
// completed five in a row is a SolvedLoss for the player now to move.
type SolvedStatus uint32

const (
	Unsolved SolvedStatus = iota
	SolvedWin
	SolvedLoss
)

func (s SolvedStatus) String() string {
	switch s {
	case SolvedWin:
		return "SolvedWin"
	case SolvedLoss:
		return "SolvedLoss"
	}
	return "Unsolved"
}

// Expansion/terminal flags, stored in one atomic word. A node starts
// at zero, is claimed for expansion by a single CAS, and publishes its
// child slice with the store of flagExpanded.
const (
	flagExpanding uint32 = 1
	flagExpanded  uint32 = 2
	flagTerminal  uint32 = 4
)

// valueScale fixes the resolution of the atomic value accumulator:
// outcomes in [-1, 1] are stored in milli-units.
const valueScale = 1000

// Node is one fixed-size arena slot. Statistics are only ever touched
// through atomics; the identity fields (parent, move, mover, prior,
// child span) are written by the expanding worker before the expanded
// flag is released and are immutable afterwards.
type Node struct {
	parent NodeID
	move   game.Move
	mover  game.Player // who played move to create this node
	prior  float32

	childStart int32 // span into the tree's child-index arena
	childCount int32

	visits      int32  // atomic
	value       int64  // atomic, milli-units, mover's perspective
	virtualLoss int32  // atomic
	unproven    int32  // atomic: children not yet proven SolvedWin
	solved      uint32 // atomic SolvedStatus
	flags       uint32 // atomic
}

// init rewrites every field of a freshly allocated slot. Arena slots
// are recycled across resets without zeroing, so nothing may be left
// to a previous life.
func (n *Node) init(parent NodeID, move game.Move, mover game.Player, prior float32) {
	n.parent = parent
	n.move = move
	n.mover = mover
	n.prior = prior
	n.childStart = 0
	n.childCount = 0
	atomic.StoreInt32(&n.visits, 0)
	atomic.StoreInt64(&n.value, 0)
	atomic.StoreInt32(&n.virtualLoss, 0)
	atomic.StoreInt32(&n.unproven, 0)
	atomic.StoreUint32(&n.solved, uint32(Unsolved))
	atomic.StoreUint32(&n.flags, 0)
}

// Move returns the move that led to this node from its parent.
func (n *Node) Move() game.Move { return n.move }

// Mover returns the player who made that move.
func (n *Node) Mover() game.Player { return n.mover }

// Prior returns the policy prior attached at expansion.
func (n *Node) Prior() float32 { return n.prior }

// Visits returns the backpropagated visit count.
func (n *Node) Visits() int32 { return atomic.LoadInt32(&n.visits) }

// VirtualLoss returns the in-flight descent count through this node.
func (n *Node) VirtualLoss() int32 { return atomic.LoadInt32(&n.virtualLoss) }

// TotalValue returns the accumulated outcome sum from the mover's
// perspective.
func (n *Node) TotalValue() float32 {
	return float32(atomic.LoadInt64(&n.value)) / valueScale
}

// Q returns the virtual-loss-discounted mean value used by selection:
// (total - vloss) / max(1, visits + vloss).
func (n *Node) Q() float32 {
	v := n.Visits()
	vl := n.VirtualLoss()
	den := v + vl
	if den < 1 {
		den = 1
	}
	return (n.TotalValue() - float32(vl)) / float32(den)
}

// MeanValue returns the plain average outcome, zero before any visit.
func (n *Node) MeanValue() float32 {
	v := n.Visits()
	if v == 0 {
		return 0
	}
	return n.TotalValue() / float32(v)
}

// Solved returns the proof status.
func (n *Node) Solved() SolvedStatus {
	return SolvedStatus(atomic.LoadUint32(&n.solved))
}

// markSolved transitions Unsolved -> status exactly once. The CAS is
// what prevents double-decrementing the parent's unproven counter
// under concurrent updates.
func (n *Node) markSolved(status SolvedStatus) bool {
	return atomic.CompareAndSwapUint32(&n.solved, uint32(Unsolved), uint32(status))
}

// Unproven returns the count of children not yet proven SolvedWin.
func (n *Node) Unproven() int32 { return atomic.LoadInt32(&n.unproven) }

func (n *Node) addVirtualLoss(d int32) { atomic.AddInt32(&n.virtualLoss, d) }

func (n *Node) record(value float32) {
	atomic.AddInt32(&n.visits, 1)
	atomic.AddInt64(&n.value, int64(value*valueScale))
}

// Expanded reports whether the child slice has been published.
func (n *Node) Expanded() bool {
	return atomic.LoadUint32(&n.flags)&flagExpanded != 0
}

func (n *Node) expanding() bool {
	return atomic.LoadUint32(&n.flags)&flagExpanding != 0
}

// tryBeginExpand claims the node for expansion. Exactly one caller
// wins; everyone else sees expanding() until the winner publishes.
func (n *Node) tryBeginExpand() bool {
	return atomic.CompareAndSwapUint32(&n.flags, 0, flagExpanding)
}

// finishExpand publishes the child slice written by the winner. The
// atomic store pairs with the atomic load in Expanded: a reader that
// observes the flag also observes the child span and priors.
func (n *Node) finishExpand() {
	atomic.StoreUint32(&n.flags, flagExpanded)
}

// abortExpand releases the claim without publishing, used when the
// arena is exhausted. The node stays a leaf.
func (n *Node) abortExpand() {
	atomic.StoreUint32(&n.flags, 0)
}

// Terminal reports whether the node's position ended the game.
func (n *Node) Terminal() bool {
	return atomic.LoadUint32(&n.flags)&flagTerminal != 0
}

func (n *Node) setTerminal() {
	for {
		old := atomic.LoadUint32(&n.flags)
		if old&flagTerminal != 0 {
			return
		}
		if atomic.CompareAndSwapUint32(&n.flags, old, old|flagTerminal) {
			return
		}
	}
}
