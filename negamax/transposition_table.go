package negamax

import (
	"io"

	"github.com/google/btree"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/bclement/zugzwang/gamestate"
)

const (
	TTExact = 0x01
	TTLower = 0x02
	TTUpper = 0x03
)

// Rough per-record footprint used for memory budgeting. States dominate in
// practice, so this is an underestimate for large game models.
const entrySize = 64

const btreeDegree = 16

// TableEntry is one cached bound for a table key. Score is exact when Flag
// is TTExact, a lower bound on the true value when TTLower, and an upper
// bound when TTUpper.
type TableEntry struct {
	Score int
	Flag  uint8
}

// tableNode holds all the bounds recorded for one (remaining depth,
// canonical state) key. Depth is part of the key because a bound computed
// at shallower remaining depth does not validly bound a deeper search.
type tableNode[S gamestate.GameState[S]] struct {
	depth   int
	state   S
	entries []TableEntry
}

// Table is a transposition table: an ordered mapping from (remaining depth,
// canonical state) to bound records. All stored states are keyed from the
// Maximizer's perspective and reduced to the minimum of their symmetry
// class, to maximize the hit rate across equivalent positions.
//
// A Table is created empty, owned by the caller, and intentionally
// accumulates records across successive queries; the only eviction is the
// explicit dominance compaction in Clean. It must not be shared by
// concurrent searches without external synchronization.
type Table[S gamestate.GameState[S]] struct {
	tree *btree.BTreeG[*tableNode[S]]

	created    uint64
	lookups    uint64
	hits       uint64
	maxEntries int

	logStream io.Writer
}

// NewTable creates an empty transposition table.
func NewTable[S gamestate.GameState[S]]() *Table[S] {
	less := func(a, b *tableNode[S]) bool {
		if a.depth != b.depth {
			return a.depth < b.depth
		}
		return a.state.Compare(b.state) < 0
	}
	return &Table[S]{tree: btree.NewG(btreeDegree, less)}
}

// Len returns the total number of bound records across all keys.
func (t *Table[S]) Len() int {
	n := 0
	t.tree.Ascend(func(node *tableNode[S]) bool {
		n += len(node.entries)
		return true
	})
	return n
}

// IsEmpty reports whether the table holds no records.
func (t *Table[S]) IsEmpty() bool {
	return t.tree.Len() == 0
}

// SetLogStream directs a YAML-ish trace of root-query plays to w.
func (t *Table[S]) SetLogStream(w io.Writer) {
	t.logStream = w
}

// SetMemoryBudget caps the table at the number of records fitting in the
// given fraction of total system memory. The cap is advisory: Insert never
// refuses a record, but OverBudget starts reporting true, and the caller is
// expected to Clean (or discard the table) when it does.
func (t *Table[S]) SetMemoryBudget(fractionOfMemory float64) {
	totalMem := memory.TotalMemory()
	t.maxEntries = int(fractionOfMemory * (float64(totalMem) / float64(entrySize)))
	log.Info().
		Int("max-entries", t.maxEntries).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("transposition-table-budget")
}

// OverBudget reports whether the table has outgrown its memory budget. It
// always returns false when no budget was set.
func (t *Table[S]) OverBudget() bool {
	return t.maxEntries > 0 && t.Len() > t.maxEntries
}

// normalize returns the canonical table key state for a probe or insertion:
// the position as seen from the Maximizer, reduced to the minimum of its
// symmetry class. The argument is never mutated.
func normalize[S gamestate.GameState[S]](state S, player gamestate.Player) S {
	if player == gamestate.Minimizer {
		cpy := state.Clone()
		cpy.Swap()
		state = cpy
	}
	return gamestate.Canonical(state)
}

// Get probes the table for the given node. Cached bounds narrow α and β in
// place; the probe returns (score, true) when an exact record is found or
// the narrowed window collapses, and (0, false) otherwise, in which case
// the caller searches with the possibly-narrowed window.
func (t *Table[S]) Get(state S, player gamestate.Player, depth int, α, β *int) (int, bool) {
	t.lookups++

	canon := normalize(state, player)
	node, ok := t.tree.Get(&tableNode[S]{depth: depth, state: canon})
	if !ok {
		return 0, false
	}
	t.hits++

	for _, entry := range node.entries {
		switch entry.Flag {
		case TTExact:
			return entry.Score, true
		case TTUpper:
			if entry.Score < *β {
				*β = entry.Score
			}
		case TTLower:
			if entry.Score > *α {
				*α = entry.Score
			}
		}

		if *α >= *β {
			return entry.Score, true
		}
	}
	return 0, false
}

// Insert records a freshly computed value for the given node. The bound
// quality is classified against the original (pre-narrowing) α/β window in
// effect at that node: at most α means the true value is at most score, at
// least β means it is at least score, and in between the value is exact.
// Records are appended raw; merging is deferred to Clean.
func (t *Table[S]) Insert(state S, player gamestate.Player, depth, α, β, score int) {
	canon := normalize(state, player)

	entry := TableEntry{Score: score}
	switch {
	case score <= α:
		entry.Flag = TTUpper
	case score >= β:
		entry.Flag = TTLower
	default:
		entry.Flag = TTExact
	}

	node, ok := t.tree.Get(&tableNode[S]{depth: depth, state: canon})
	if !ok {
		node = &tableNode[S]{depth: depth, state: canon.Clone()}
		t.tree.ReplaceOrInsert(node)
	}
	node.entries = append(node.entries, entry)
	t.created++
}

// SnapshotRecord is one key's worth of table contents, in the exported form
// used by persistence layers. States are canonical Maximizer-perspective
// keys.
type SnapshotRecord[S gamestate.GameState[S]] struct {
	Depth   int
	State   S
	Entries []TableEntry
}

// Snapshot copies the table contents out, in key order.
func (t *Table[S]) Snapshot() []SnapshotRecord[S] {
	records := make([]SnapshotRecord[S], 0, t.tree.Len())
	t.tree.Ascend(func(node *tableNode[S]) bool {
		records = append(records, SnapshotRecord[S]{
			Depth:   node.depth,
			State:   node.state.Clone(),
			Entries: append([]TableEntry(nil), node.entries...),
		})
		return true
	})
	return records
}

// Restore merges snapshot records back in, raw. The states must already be
// canonical Maximizer-perspective keys (as produced by Snapshot); no
// re-normalization or re-classification happens here.
func (t *Table[S]) Restore(records []SnapshotRecord[S]) {
	for _, rec := range records {
		node, ok := t.tree.Get(&tableNode[S]{depth: rec.Depth, state: rec.State})
		if !ok {
			node = &tableNode[S]{depth: rec.Depth, state: rec.State.Clone()}
			t.tree.ReplaceOrInsert(node)
		}
		node.entries = append(node.entries, rec.Entries...)
		t.created += uint64(len(rec.Entries))
	}
}

// Clean removes dominated bound records: for every key, a record is
// discarded when some other record at the same key is exact or shares its
// quality. After compaction a key holds at most one exact record, or at
// most one upper and one lower bound. Cleaning twice in a row is a no-op
// the second time.
func (t *Table[S]) Clean() {
	removed := 0
	t.tree.Ascend(func(node *tableNode[S]) bool {
		entries := node.entries
		i := 0
	iloop:
		for i < len(entries) {
			for j := range entries {
				if i != j && (entries[j].Flag == TTExact || entries[j].Flag == entries[i].Flag) {
					// j subsumes i; swap-remove and retry index i.
					entries[i] = entries[len(entries)-1]
					entries = entries[:len(entries)-1]
					removed++
					continue iloop
				}
			}
			i++
		}
		node.entries = entries
		return true
	})

	log.Debug().
		Int("removed", removed).
		Int("entries", t.Len()).
		Int("keys", t.tree.Len()).
		Msg("ttable-cleaned")
}
