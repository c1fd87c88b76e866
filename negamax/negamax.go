// Package negamax implements a generic adversarial search engine for
// two-player, zero-sum, perfect-information games: depth-limited negamax
// with alpha-beta pruning, backed by a transposition table keyed on
// canonicalized, symmetry-reduced state.
package negamax

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/bclement/zugzwang/gamestate"
)

// thanks Wikipedia:
/*
function negamax(node, depth, α, β, color) is
    if depth = 0 or node is a terminal node then
        return color × the heuristic value of node

    childNodes := generateMoves(node)
    value := −∞
    foreach child in childNodes do
        value := max(value, −negamax(child, depth − 1, −β, −α, −color))
        α := max(α, value)
        if α ≥ β then
            break (* cut-off *)
    return value
(* Initial call for Player A's root node *)
negamax(rootNode, depth, −∞, +∞, 1)
**/

// Infinity is 10 million. It doubles as the window bound and, negated, as
// the best-value sentinel; it leaves ample headroom for the (depth+1)
// terminal multiplier without wrapping.
const Infinity = 10000000

// Below this remaining depth, table bookkeeping overhead is judged not to
// pay for itself and the search falls back to plain negamax.
const tableMinDepth = 3

// Negamax is plain fail-soft negamax with alpha-beta pruning and no
// memoization. The returned score is in player's perspective and valid
// within the caller's [α, β] window; it may lie outside the window when a
// cutoff occurred.
//
// Terminal scores carry a (depth+1) multiplier: wins reached with more
// remaining depth score with larger magnitude, so the engine prefers the
// fastest forced win and the slowest forced loss.
func Negamax[S gamestate.GameState[S]](s S, player gamestate.Player, depth, α, β int) int {
	if depth == 0 || s.Win(player.Opponent()) {
		return int(player) * s.Value() * (depth + 1)
	}

	bestValue := -Infinity

	for _, child := range s.Possibilities(player) {
		v := -Negamax(child, player.Opponent(), depth-1, -β, -α)

		if v > bestValue {
			bestValue = v
		}
		if v > α {
			α = v
		}
		if α >= β {
			break // beta cut-off
		}
	}
	return bestValue
}

// NegamaxTable is Negamax consulting and updating a transposition table.
// With an empty table it returns exactly what Negamax would; the table only
// changes the cost, never the result. Shallow sub-searches (remaining depth
// below tableMinDepth) delegate entirely to plain Negamax.
func NegamaxTable[S gamestate.GameState[S]](s S, player gamestate.Player, depth, α, β int, table *Table[S]) int {
	if depth == 0 || s.Win(player.Opponent()) {
		return int(player) * s.Value() * (depth + 1)
	}

	if depth < tableMinDepth {
		return Negamax(s, player, depth, α, β)
	}

	// The bound computed below is classified against the window in effect
	// before any table-assisted narrowing.
	alphaOrig := α
	betaOrig := β

	if score, ok := table.Get(s, player, depth, &α, &β); ok {
		return score
	}

	bestValue := -Infinity

	for _, child := range s.Possibilities(player) {
		v := -NegamaxTable(child, player.Opponent(), depth-1, -β, -α, table)

		if v > bestValue {
			bestValue = v
		}
		if v > α {
			α = v
		}
		if α >= β {
			break // beta cut-off
		}
	}

	table.Insert(s, player, depth, alphaOrig, betaOrig, bestValue)
	return bestValue
}

// NegamaxValue returns the value of s in the Maximizer's perspective, with
// player to move, searching depth plies deep.
func NegamaxValue[S gamestate.GameState[S]](s S, player gamestate.Player, depth int, table *Table[S]) int {
	return int(player) * NegamaxTable(s, player, depth, -Infinity, Infinity, table)
}

type solution[S any] struct {
	state S
	score int
}

// BotPlay returns all the best successor states for player, searched depth
// plies deep. Ties are included in order of discovery. The table is
// compacted before returning, since the root is where accumulated dominated
// records are cheapest to discard. An empty slice is returned when the
// player has no moves.
func BotPlay[S gamestate.GameState[S]](s S, player gamestate.Player, depth int, table *Table[S]) []S {
	tstart := time.Now()
	bestValue := -Infinity
	var sols []*solution[S]

	if table.logStream != nil {
		fmt.Fprint(table.logStream, "plays:\n")
	}
	for _, child := range s.Possibilities(player) {
		value := -NegamaxTable(child, player.Opponent(), depth, -Infinity, Infinity, table)

		if table.logStream != nil {
			fmt.Fprintf(table.logStream, "- play: %v\n  value: %d\n", describe(child), value)
		}

		if value > bestValue {
			bestValue = value
			sols = sols[:0]
		}
		if value == bestValue {
			sols = append(sols, &solution[S]{state: child, score: value})
		}
	}

	table.Clean()

	log.Debug().
		Int("best-value", bestValue).
		Int("candidates", len(sols)).
		Int("depth", depth).
		Uint64("ttable-created", table.created).
		Uint64("ttable-lookups", table.lookups).
		Uint64("ttable-hits", table.hits).
		Int("ttable-entries", table.Len()).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
		Msg("bot-play-returning")

	return lo.Map(sols, func(item *solution[S], _ int) S {
		return item.state
	})
}

func describe(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
