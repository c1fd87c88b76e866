// Package tictactoe implements the gamestate capability contract for 3x3
// tic-tac-toe. The Maximizer plays X. It is the reference game model used
// by the shell, the automatic runner, and the integration tests.
package tictactoe

import (
	"fmt"
	"strings"

	"github.com/bclement/zugzwang/gamestate"
)

type Cell int8

const (
	Empty Cell = 0
	X     Cell = 1
	O     Cell = -1
)

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	}
	return "."
}

// Position is a 3x3 board, row-major. It does not track whose turn it is;
// the engine passes the player explicitly.
type Position struct {
	Cells [9]Cell
}

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// The eight dihedral transforms of the board, as index permutations with
// newCells[i] = oldCells[perm[i]]. Built from the quarter rotation and the
// column mirror at init.
var transforms [8][9]int

func init() {
	identity := [9]int{0, 1, 2, 3, 4, 5, 6, 7, 8}
	rot90 := [9]int{6, 3, 0, 7, 4, 1, 8, 5, 2}
	mirror := [9]int{2, 1, 0, 5, 4, 3, 8, 7, 6}

	compose := func(a, b [9]int) [9]int {
		var out [9]int
		for i := range out {
			out[i] = b[a[i]]
		}
		return out
	}

	t := identity
	for i := 0; i < 4; i++ {
		transforms[i] = t
		transforms[i+4] = compose(t, mirror)
		t = compose(t, rot90)
	}
}

func mark(player gamestate.Player) Cell {
	if player == gamestate.Maximizer {
		return X
	}
	return O
}

// Win reports whether player has completed a line.
func (p *Position) Win(player gamestate.Player) bool {
	m := mark(player)
	for _, line := range lines {
		if p.Cells[line[0]] == m && p.Cells[line[1]] == m && p.Cells[line[2]] == m {
			return true
		}
	}
	return false
}

// Value evaluates the board for X: +-100 for a completed win, otherwise the
// count of lines still open for X minus the lines still open for O. A full
// drawn board evaluates to 0.
func (p *Position) Value() int {
	if p.Win(gamestate.Maximizer) {
		return 100
	}
	if p.Win(gamestate.Minimizer) {
		return -100
	}
	value := 0
	for _, line := range lines {
		var xs, os int
		for _, idx := range line {
			switch p.Cells[idx] {
			case X:
				xs++
			case O:
				os++
			}
		}
		if xs > 0 && os == 0 {
			value++
		}
		if os > 0 && xs == 0 {
			value--
		}
	}
	return value
}

// Possibilities returns one successor per empty cell. A full board yields a
// single null move (the unchanged board), so that a non-won terminal never
// presents zero possibilities to the engine.
func (p *Position) Possibilities(player gamestate.Player) []*Position {
	m := mark(player)
	var succs []*Position
	for i, c := range p.Cells {
		if c != Empty {
			continue
		}
		next := p.Clone()
		next.Cells[i] = m
		succs = append(succs, next)
	}
	if len(succs) == 0 {
		succs = append(succs, p.Clone())
	}
	return succs
}

// Swap exchanges the two players' marks in place.
func (p *Position) Swap() {
	for i, c := range p.Cells {
		p.Cells[i] = -c
	}
}

// Symmetries returns the eight dihedral transforms of the board, the board
// itself among them.
func (p *Position) Symmetries() []*Position {
	syms := make([]*Position, 0, len(transforms))
	for _, perm := range transforms {
		next := &Position{}
		for i, src := range perm {
			next.Cells[i] = p.Cells[src]
		}
		syms = append(syms, next)
	}
	return syms
}

// Compare orders boards cell-lexicographically.
func (p *Position) Compare(other *Position) int {
	for i := range p.Cells {
		if p.Cells[i] != other.Cells[i] {
			return int(p.Cells[i]) - int(other.Cells[i])
		}
	}
	return 0
}

// Clone returns a deep copy.
func (p *Position) Clone() *Position {
	cpy := *p
	return &cpy
}

// Play places player's mark on cell (0-8). It rejects occupied cells and
// out-of-range indices.
func (p *Position) Play(cell int, player gamestate.Player) error {
	if cell < 0 || cell >= len(p.Cells) {
		return fmt.Errorf("cell %d out of range", cell)
	}
	if p.Cells[cell] != Empty {
		return fmt.Errorf("cell %d is already occupied", cell)
	}
	p.Cells[cell] = mark(player)
	return nil
}

// Empties returns the number of open cells.
func (p *Position) Empties() int {
	n := 0
	for _, c := range p.Cells {
		if c == Empty {
			n++
		}
	}
	return n
}

// Over reports whether the game has ended: a completed line or a full board.
func (p *Position) Over() bool {
	return p.Win(gamestate.Maximizer) || p.Win(gamestate.Minimizer) || p.Empties() == 0
}

func (p *Position) String() string {
	var sb strings.Builder
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			sb.WriteString(p.Cells[r*3+c].String())
		}
		if r < 2 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// DisplayText renders the board for the shell, with cell numbers on empties.
func (p *Position) DisplayText() string {
	var sb strings.Builder
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			idx := r*3 + c
			if p.Cells[idx] == Empty {
				fmt.Fprintf(&sb, " %d ", idx)
			} else {
				fmt.Fprintf(&sb, " %s ", p.Cells[idx])
			}
			if c < 2 {
				sb.WriteByte('|')
			}
		}
		sb.WriteByte('\n')
		if r < 2 {
			sb.WriteString("---+---+---\n")
		}
	}
	return sb.String()
}
