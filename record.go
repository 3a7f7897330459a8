package pentemind

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/pentemind/game"
)

// ParseRecord tokenises a game record such as "1. K10 L9 2. N10 M7".
// Tokens at positions 0, 3, 6, ... are move numbers and are ignored;
// the rest are move strings in Black/White pairs.
func ParseRecord(record string) ([]game.Move, error) {
	tokens := strings.Fields(record)
	moves := make([]game.Move, 0, len(tokens))
	for i, tok := range tokens {
		if i%3 == 0 {
			continue
		}
		m, err := game.ParseMove(tok)
		if err != nil {
			return nil, errors.Wrapf(err, "token %d", i)
		}
		moves = append(moves, m)
	}
	return moves, nil
}

// Replay parses a record and applies it to a fresh state under cfg.
func Replay(record string, cfg game.Config) (*game.State, error) {
	moves, err := ParseRecord(record)
	if err != nil {
		return nil, err
	}
	st := game.NewState(cfg)
	for i, m := range moves {
		if err := st.MakeMove(m); err != nil {
			return nil, errors.Wrapf(err, "replaying move %d (%v)", i+1, m)
		}
	}
	return st, nil
}
