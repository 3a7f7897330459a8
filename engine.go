// Package pentemind is a Monte Carlo Tree Search engine for the
// Pente family of games: Pente, Keryo-Pente and Gomoku on a 19x19
// board. The Engine couples a game state, a search tree and an
// evaluator; the game and mcts packages underneath are usable on
// their own.
package pentemind

import (
	"io"
	"log"
	"os"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/pentemind/eval"
	"github.com/pentemind/game"
	"github.com/pentemind/mcts"
)

// Config assembles an Engine.
type Config struct {
	// Game selects the rule set; defaults to standard Pente.
	Game game.Config
	// Search drives the tree search; defaults to mcts.DefaultConfig.
	Search mcts.Config
	// Parallel shapes ParallelSearch; zero value means one worker per
	// CPU with inline evaluation.
	Parallel mcts.ParallelConfig
	// Evaluator produces priors and values; defaults to the tactical
	// heuristic.
	Evaluator mcts.Evaluator
	// Logger receives per-search summaries; nil keeps the engine
	// quiet.
	Logger *log.Logger
}

// DefaultConfig plays Pente with the heuristic evaluator.
func DefaultConfig() Config {
	return Config{
		Game:      game.PenteConfig(),
		Search:    mcts.DefaultConfig(),
		Parallel:  mcts.DefaultParallelConfig(),
		Evaluator: eval.NewHeuristic(),
	}
}

// Engine owns a position and the search tree rooted at it.
type Engine struct {
	cfg    Config
	state  *game.State
	tree   *mcts.Tree
	logger *log.Logger
}

// New validates the configuration and builds an engine at the empty
// position.
func New(cfg Config) (*Engine, error) {
	if cfg.Evaluator == nil {
		cfg.Evaluator = eval.NewHeuristic()
	}

	var errs error
	if err := cfg.Search.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := cfg.Parallel.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs != nil {
		return nil, errs
	}

	tree, err := mcts.NewTree(cfg.Search, cfg.Evaluator)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", log.LstdFlags)
	}
	return &Engine{
		cfg:    cfg,
		state:  game.NewState(cfg.Game),
		tree:   tree,
		logger: logger,
	}, nil
}

// NewDefault is New(DefaultConfig()) with logging to stderr.
func NewDefault() (*Engine, error) {
	cfg := DefaultConfig()
	cfg.Logger = log.New(os.Stderr, "pentemind ", log.LstdFlags)
	return New(cfg)
}

// State exposes the engine's position. Mutating it directly between
// searches is allowed; the tree notices the changed root.
func (e *Engine) State() *game.State { return e.state }

// Play applies a move to the engine's position and, when tree reuse
// is enabled, re-roots the retained tree underneath it.
func (e *Engine) Play(m game.Move) error {
	if err := e.state.MakeMove(m); err != nil {
		return err
	}
	if e.cfg.Search.ReuseTree {
		e.tree.ReuseSubtree(m)
	}
	return nil
}

// Undo takes back the last move.
func (e *Engine) Undo() { e.state.UndoMove() }

// Search runs the configured single-threaded search on the current
// position and returns the recommended move.
func (e *Engine) Search() (game.Move, error) {
	move, err := e.tree.Search(e.state)
	e.logSearch(move, err)
	return move, err
}

// ParallelSearch is Search with the configured worker pool.
func (e *Engine) ParallelSearch() (game.Move, error) {
	move, err := e.tree.ParallelSearch(e.state, e.cfg.Parallel)
	e.logSearch(move, err)
	return move, err
}

func (e *Engine) logSearch(move game.Move, err error) {
	if err != nil {
		e.logger.Printf("move %d: search failed: %v", e.state.MoveCount(), err)
		return
	}
	s := e.tree.Stats()
	e.logger.Printf("move %d: best %v after %d iterations, %d nodes, depth %d, %v (%v)",
		e.state.MoveCount(), move, s.Iterations, s.TreeSize, s.MaxDepth, s.Elapsed, s.StopReason)
}

// BestMove returns the last search's recommendation without searching
// again.
func (e *Engine) BestMove() game.Move { return e.tree.BestMove() }

// Stats returns the last search's statistics.
func (e *Engine) Stats() mcts.Stats { return e.tree.Stats() }

// TopChildren inspects the k most visited replies from the last
// search.
func (e *Engine) TopChildren(k int) []mcts.ChildStat { return e.tree.TopChildren(k) }

// ClearTree drops the retained search tree.
func (e *Engine) ClearTree() { e.tree.ClearTree() }

// ReuseSubtree re-roots the retained tree under move, keeping its
// statistics for the next search.
func (e *Engine) ReuseSubtree(m game.Move) bool { return e.tree.ReuseSubtree(m) }

// Stop cancels a running search; the best move so far is returned by
// the search call.
func (e *Engine) Stop() { e.tree.Stop() }

// Tree exposes the underlying search tree.
func (e *Engine) Tree() *mcts.Tree { return e.tree }

// Close releases evaluator resources.
func (e *Engine) Close() error {
	var errs error
	if closer, ok := e.cfg.Evaluator.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}
