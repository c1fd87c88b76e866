// Package gamestate defines the capability contract that a concrete game
// must satisfy to be searched by the negamax package. A game supplies
// win-testing, valuation, move enumeration, player-swapping, a total order,
// and symmetry enumeration; the engine supplies everything else.
package gamestate

// Player is one of the two sides of a zero-sum game. The negamax sign-flip
// convention requires all valuation and table bookkeeping to be expressed
// in the Maximizer's perspective and converted at the boundary.
type Player int

const (
	Maximizer Player = 1
	Minimizer Player = -1
)

// Opponent returns the other player.
func (p Player) Opponent() Player {
	return -p
}

func (p Player) String() string {
	if p == Maximizer {
		return "+1"
	}
	return "-1"
}

// GameState is the capability contract for a game position. It is meant to
// be instantiated with a pointer type (e.g. *tictactoe.Position) so that
// Swap can mutate in place.
//
// Contract requirements, enforced by convention rather than at runtime:
//   - Value is always computed from the Maximizer's perspective, regardless
//     of whose turn it is.
//   - Possibilities must return at least one successor for any state that
//     is not terminal by Win; an empty return degenerates to an artificial
//     loss score.
//   - Symmetries must include the state itself and therefore never be empty.
//   - Compare must be a total order, so that a canonical representative can
//     be chosen deterministically and states can key an ordered structure.
type GameState[S any] interface {
	// Win reports whether the state is a terminal win for player.
	Win(player Player) bool
	// Value evaluates the state in the Maximizer's perspective. It is only
	// consulted at terminal or depth-exhausted nodes.
	Value() int
	// Possibilities returns the successor states reachable by player's move.
	Possibilities(player Player) []S
	// Swap exchanges the two players' roles in place.
	Swap()
	// Symmetries returns all states strategically equivalent to this one,
	// including the state itself.
	Symmetries() []S
	// Compare returns a negative, zero, or positive number as the state
	// orders before, equal to, or after other.
	Compare(other S) int
	// Clone returns a deep copy.
	Clone() S
}

// Canonical reduces a state to the single representative of its symmetry
// class: the minimum of Symmetries() under Compare. The state itself is not
// modified. Panics if the game model returns no symmetries, which violates
// the contract.
func Canonical[S GameState[S]](s S) S {
	syms := s.Symmetries()
	if len(syms) == 0 {
		panic("gamestate: Symmetries returned an empty set")
	}
	best := syms[0]
	for _, sym := range syms[1:] {
		if sym.Compare(best) < 0 {
			best = sym
		}
	}
	return best
}
