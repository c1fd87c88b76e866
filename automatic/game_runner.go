// Package automatic contains the logic for automatic self-play: two engine
// configurations play full games of tic-tac-toe against each other, each
// side owning its own transposition table for the duration of a game.
package automatic

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
	"lukechampine.com/frand"

	"github.com/bclement/zugzwang/gamestate"
	"github.com/bclement/zugzwang/games/tictactoe"
	"github.com/bclement/zugzwang/negamax"
)

const maxPlies = 12

// Settings configures a batch of self-play games. DepthX and DepthO are the
// search depths for the two sides; MemoryFraction, when positive, caps each
// table at a fraction of system memory (a table over budget is discarded
// between moves).
type Settings struct {
	DepthX         int
	DepthO         int
	Games          int
	Concurrency    int
	MemoryFraction float64
}

// LogPlay is one ply of a finished game, for the YAML game log.
type LogPlay struct {
	Player string `yaml:"player"`
	Board  string `yaml:"board"`
	Ties   int    `yaml:"ties"`
}

// LogGame is the YAML log record for one finished game.
type LogGame struct {
	Game   int       `yaml:"game"`
	Winner string    `yaml:"winner"`
	Plays  []LogPlay `yaml:"plays"`
}

// Results tallies a finished batch.
type Results struct {
	XWins int
	OWins int
	Draws int
}

func (r Results) String() string {
	return fmt.Sprintf("X %d - O %d - draws %d", r.XWins, r.OWins, r.Draws)
}

// GameRunner is the master struct for the self-play logic. The optional
// logchan receives one YAML document per finished game.
type GameRunner struct {
	settings Settings
	logchan  chan string

	mu      sync.Mutex
	results Results
}

// NewGameRunner instantiates a runner. logchan may be nil.
func NewGameRunner(logchan chan string, settings Settings) *GameRunner {
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}
	return &GameRunner{settings: settings, logchan: logchan}
}

// playGame plays a single game to completion and returns the winning side,
// or 0 for a draw.
func (r *GameRunner) playGame(gidx int) (gamestate.Player, error) {
	pos := &tictactoe.Position{}
	tables := map[gamestate.Player]*negamax.Table[*tictactoe.Position]{
		gamestate.Maximizer: negamax.NewTable[*tictactoe.Position](),
		gamestate.Minimizer: negamax.NewTable[*tictactoe.Position](),
	}
	depths := map[gamestate.Player]int{
		gamestate.Maximizer: r.settings.DepthX,
		gamestate.Minimizer: r.settings.DepthO,
	}
	if r.settings.MemoryFraction > 0 {
		for _, t := range tables {
			t.SetMemoryBudget(r.settings.MemoryFraction)
		}
	}

	glog := LogGame{Game: gidx}
	player := gamestate.Maximizer
	for plies := 0; !pos.Over() && plies < maxPlies; plies++ {
		table := tables[player]
		moves := negamax.BotPlay(pos, player, depths[player], table)
		if len(moves) == 0 {
			return 0, fmt.Errorf("game %d: no moves for player %v at %v", gidx, player, pos)
		}
		pos = moves[frand.Intn(len(moves))]
		glog.Plays = append(glog.Plays, LogPlay{
			Player: player.String(),
			Board:  pos.String(),
			Ties:   len(moves),
		})

		if table.OverBudget() {
			log.Debug().Int("game", gidx).Msg("table-over-budget-discarding")
			tables[player] = negamax.NewTable[*tictactoe.Position]()
		}
		player = player.Opponent()
	}

	var winner gamestate.Player
	switch {
	case pos.Win(gamestate.Maximizer):
		winner = gamestate.Maximizer
		glog.Winner = "X"
	case pos.Win(gamestate.Minimizer):
		winner = gamestate.Minimizer
		glog.Winner = "O"
	default:
		glog.Winner = "draw"
	}

	if r.logchan != nil {
		out, err := yaml.Marshal([]LogGame{glog})
		if err != nil {
			return winner, err
		}
		r.logchan <- string(out)
	}
	return winner, nil
}

func (r *GameRunner) tally(winner gamestate.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch winner {
	case gamestate.Maximizer:
		r.results.XWins++
	case gamestate.Minimizer:
		r.results.OWins++
	default:
		r.results.Draws++
	}
}

// Run plays the configured number of games, at most Concurrency at a time,
// and returns the tally. Each game owns its tables, so concurrent games
// never share a search resource.
func (r *GameRunner) Run(ctx context.Context) (Results, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.settings.Concurrency)

	for i := 0; i < r.settings.Games; i++ {
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			winner, err := r.playGame(i)
			if err != nil {
				return err
			}
			r.tally(winner)
			return nil
		})
	}
	err := g.Wait()

	r.mu.Lock()
	results := r.results
	r.mu.Unlock()
	log.Info().
		Int("games", r.settings.Games).
		Int("x-wins", results.XWins).
		Int("o-wins", results.OWins).
		Int("draws", results.Draws).
		Msg("selfplay-done")
	return results, err
}
