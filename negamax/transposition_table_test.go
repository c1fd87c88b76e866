package negamax

import (
	"testing"

	"github.com/matryer/is"

	"github.com/bclement/zugzwang/games/tictactoe"
	"github.com/bclement/zugzwang/gamestate"
)

func entriesAt(t *Table[*tictactoe.Position], depth int, state *tictactoe.Position) []TableEntry {
	node, ok := t.tree.Get(&tableNode[*tictactoe.Position]{depth: depth, state: gamestate.Canonical(state)})
	if !ok {
		return nil
	}
	return node.entries
}

func TestInsertClassification(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(4)

	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 5)  // score <= alpha
	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 25) // score >= beta
	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 15) // inside the window

	entries := entriesAt(table, 5, p)
	is.Equal(len(entries), 3)
	is.Equal(entries[0], TableEntry{Score: 5, Flag: TTUpper})
	is.Equal(entries[1], TableEntry{Score: 25, Flag: TTLower})
	is.Equal(entries[2], TableEntry{Score: 15, Flag: TTExact})
}

func TestGetNarrowsWindow(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(4)
	table.Insert(p, gamestate.Maximizer, 5, 20, 30, 15) // upper bound 15
	table.Insert(p, gamestate.Maximizer, 5, 0, 3, 5)    // lower bound 5

	α, β := -100, 100
	_, ok := table.Get(p, gamestate.Maximizer, 5, &α, &β)
	is.True(!ok) // no exact record, no collapse
	is.Equal(α, 5)
	is.Equal(β, 15)
}

func TestGetExact(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(4)
	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 15)

	α, β := -100, 100
	score, ok := table.Get(p, gamestate.Maximizer, 5, &α, &β)
	is.True(ok)
	is.Equal(score, 15)
	is.Equal(α, -100)
	is.Equal(β, 100)
}

func TestGetWindowCollapse(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(4)
	table.Insert(p, gamestate.Maximizer, 5, 0, 40, 50) // lower bound 50

	α, β := -100, 40
	score, ok := table.Get(p, gamestate.Maximizer, 5, &α, &β)
	is.True(ok) // alpha raised past beta
	is.Equal(score, 50)
}

func TestGetMissesOtherDepth(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(4)
	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 15)

	α, β := -100, 100
	_, ok := table.Get(p, gamestate.Maximizer, 4, &α, &β)
	is.True(!ok)
	is.Equal(α, -100)
	is.Equal(β, 100)
}

func TestPerspectiveNormalization(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(4, 0, 2)

	table.Insert(p, gamestate.Minimizer, 5, 10, 20, 15)

	// The same position probed as the Minimizer hits...
	α, β := -100, 100
	score, ok := table.Get(p, gamestate.Minimizer, 5, &α, &β)
	is.True(ok)
	is.Equal(score, 15)

	// ...and so does the swapped position probed as the Maximizer.
	swapped := p.Clone()
	swapped.Swap()
	α, β = -100, 100
	score, ok = table.Get(swapped, gamestate.Maximizer, 5, &α, &β)
	is.True(ok)
	is.Equal(score, 15)
}

func TestSymmetryKeying(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(0, 4)
	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 15)

	for _, sym := range p.Symmetries() {
		α, β := -100, 100
		score, ok := table.Get(sym, gamestate.Maximizer, 5, &α, &β)
		is.True(ok)
		is.Equal(score, 15)
	}
	is.Equal(table.Len(), 1)
}

func TestCleanExactDominatesEverything(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(4)
	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 5)  // upper
	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 25) // lower
	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 15) // exact
	table.Insert(p, gamestate.Maximizer, 5, 10, 20, 16) // exact, duplicate class
	is.Equal(table.Len(), 4)

	table.Clean()
	entries := entriesAt(table, 5, p)
	is.Equal(len(entries), 1)
	is.Equal(entries[0].Flag, uint8(TTExact))
}

func TestCleanKeepsBoundPair(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(4)
	table.Insert(p, gamestate.Maximizer, 5, 20, 30, 15) // upper
	table.Insert(p, gamestate.Maximizer, 5, 20, 30, 10) // upper, duplicate class
	table.Insert(p, gamestate.Maximizer, 5, 0, 3, 5)    // lower

	table.Clean()
	entries := entriesAt(table, 5, p)
	is.Equal(len(entries), 2)
	flags := map[uint8]bool{}
	for _, e := range entries {
		flags[e.Flag] = true
	}
	is.True(flags[TTUpper])
	is.True(flags[TTLower])
}

func TestCleanIdempotent(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	NegamaxValue(position(), gamestate.Maximizer, 7, table)

	table.Clean()
	once := table.Len()
	is.True(once > 0) // never removes the last record for a key
	table.Clean()
	is.Equal(table.Len(), once)
}

func TestCleanNeverChangesExactResults(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	p := position(4, 0)
	want := NegamaxValue(p, gamestate.Maximizer, 6, table)
	table.Clean()
	is.Equal(NegamaxValue(p, gamestate.Maximizer, 6, table), want)
}

func TestLenAndIsEmpty(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	is.True(table.IsEmpty())
	is.Equal(table.Len(), 0)

	table.Insert(position(4), gamestate.Maximizer, 5, 10, 20, 15)
	table.Insert(position(4), gamestate.Maximizer, 5, 10, 20, 15)
	table.Insert(position(4), gamestate.Maximizer, 6, 10, 20, 15)
	is.True(!table.IsEmpty())
	is.Equal(table.Len(), 3) // records, not keys
}

func TestSnapshotRestore(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	NegamaxValue(position(4), gamestate.Minimizer, 6, table)
	table.Clean()

	records := table.Snapshot()
	restored := NewTable[*tictactoe.Position]()
	restored.Restore(records)
	is.Equal(restored.Len(), table.Len())

	p := position(4)
	α1, β1 := -Infinity, Infinity
	s1, ok1 := table.Get(p, gamestate.Minimizer, 6, &α1, &β1)
	α2, β2 := -Infinity, Infinity
	s2, ok2 := restored.Get(p, gamestate.Minimizer, 6, &α2, &β2)
	is.Equal(ok1, ok2)
	is.Equal(s1, s2)
	is.Equal(α1, α2)
	is.Equal(β1, β2)
}

func TestMemoryBudget(t *testing.T) {
	is := is.New(t)
	table := NewTable[*tictactoe.Position]()
	is.True(!table.OverBudget()) // no budget set

	NegamaxValue(position(), gamestate.Maximizer, 9, table)
	table.SetMemoryBudget(0.25)
	is.True(!table.OverBudget())
}
