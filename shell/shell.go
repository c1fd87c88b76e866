// Package shell implements an interactive console for playing tic-tac-toe
// against the engine and poking at the transposition table.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/bclement/zugzwang/automatic"
	"github.com/bclement/zugzwang/config"
	"github.com/bclement/zugzwang/games/tictactoe"
	"github.com/bclement/zugzwang/gamestate"
	"github.com/bclement/zugzwang/negamax"
	"github.com/bclement/zugzwang/tablestore"
)

type ShellController struct {
	l   *readline.Instance
	cfg *config.Config

	pos         *tictactoe.Position
	table       *negamax.Table[*tictactoe.Position]
	humanPlayer gamestate.Player
	onTurn      gamestate.Player
	engineDepth int
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func usage(w io.Writer) {
	io.WriteString(w, "commands:\n")
	io.WriteString(w, "new - start a new game (the table is kept warm)\n")
	io.WriteString(w, "show - print the board\n")
	io.WriteString(w, "play <cell> - place your mark on cell 0-8; the engine replies\n")
	io.WriteString(w, "side <x|o> - choose your side for the next game\n")
	io.WriteString(w, "value - evaluate the current position\n")
	io.WriteString(w, "depth <n> - set the engine search depth\n")
	io.WriteString(w, "stats - show table size\n")
	io.WriteString(w, "clean - compact the table\n")
	io.WriteString(w, "selfplay [n] - play n engine-vs-engine games\n")
	io.WriteString(w, "save / load - persist or restore the table\n")
	io.WriteString(w, "exit - quit\n")
}

func NewShellController(cfg *config.Config) *ShellController {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mzugzwang>\033[0m ",
		HistoryFile:     "/tmp/readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc := &ShellController{
		l:           l,
		cfg:         cfg,
		table:       negamax.NewTable[*tictactoe.Position](),
		humanPlayer: gamestate.Maximizer,
		engineDepth: cfg.Depth,
	}
	if cfg.MemoryFraction > 0 {
		sc.table.SetMemoryBudget(cfg.MemoryFraction)
	}
	sc.newGame()
	return sc
}

// newGame resets the board but keeps the table; accumulating bounds across
// games is the point of the cache.
func (sc *ShellController) newGame() {
	sc.pos = &tictactoe.Position{}
	sc.onTurn = gamestate.Maximizer
}

func (sc *ShellController) out() io.Writer {
	return sc.l.Stderr()
}

func (sc *ShellController) showBoard() {
	showMessage(sc.pos.DisplayText(), sc.out())
}

// engineMove has the engine play one move for the side on turn, breaking
// ties among equally good moves at random.
func (sc *ShellController) engineMove() error {
	moves := negamax.BotPlay(sc.pos, sc.onTurn, sc.engineDepth, sc.table)
	if len(moves) == 0 {
		return fmt.Errorf("engine has no moves")
	}
	sc.pos = moves[frand.Intn(len(moves))]
	sc.onTurn = sc.onTurn.Opponent()
	return nil
}

func (sc *ShellController) announceIfOver() bool {
	if !sc.pos.Over() {
		return false
	}
	switch {
	case sc.pos.Win(gamestate.Maximizer):
		showMessage("X wins.", sc.out())
	case sc.pos.Win(gamestate.Minimizer):
		showMessage("O wins.", sc.out())
	default:
		showMessage("Draw.", sc.out())
	}
	return true
}

func (sc *ShellController) handlePlay(arg string) error {
	if sc.pos.Over() {
		return fmt.Errorf("the game is over; use new")
	}
	if sc.onTurn != sc.humanPlayer {
		return fmt.Errorf("it is not your turn")
	}
	cell, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("play takes a cell number 0-8")
	}
	if err := sc.pos.Play(cell, sc.humanPlayer); err != nil {
		return err
	}
	sc.onTurn = sc.onTurn.Opponent()
	sc.showBoard()
	if sc.announceIfOver() {
		return nil
	}
	if err := sc.engineMove(); err != nil {
		return err
	}
	sc.showBoard()
	sc.announceIfOver()
	return nil
}

func (sc *ShellController) handleSelfPlay(fields []string) error {
	games := sc.cfg.SelfPlayGames
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("selfplay takes a number of games")
		}
		games = n
	}
	runner := automatic.NewGameRunner(nil, automatic.Settings{
		DepthX:         sc.engineDepth,
		DepthO:         sc.engineDepth,
		Games:          games,
		Concurrency:    4,
		MemoryFraction: sc.cfg.MemoryFraction,
	})
	results, err := runner.Run(context.Background())
	if err != nil {
		return err
	}
	showMessage(results.String(), sc.out())
	return nil
}

func (sc *ShellController) handleSave() error {
	store, err := tablestore.Open(sc.cfg.TableStorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := tablestore.Save(store, sc.table); err != nil {
		return err
	}
	showMessage(fmt.Sprintf("saved %d entries to %s", sc.table.Len(), sc.cfg.TableStorePath), sc.out())
	return nil
}

func (sc *ShellController) handleLoad() error {
	store, err := tablestore.Open(sc.cfg.TableStorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := tablestore.Load(store, sc.table); err != nil {
		return err
	}
	showMessage(fmt.Sprintf("table now holds %d entries", sc.table.Len()), sc.out())
	return nil
}

func (sc *ShellController) commandSwitch(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "new":
		sc.newGame()
		sc.showBoard()
		if sc.humanPlayer == gamestate.Minimizer {
			if err := sc.engineMove(); err != nil {
				return err
			}
			sc.showBoard()
		}
	case "show":
		sc.showBoard()
	case "play":
		if len(fields) < 2 {
			return fmt.Errorf("play takes a cell number 0-8")
		}
		return sc.handlePlay(fields[1])
	case "side":
		if len(fields) < 2 || (fields[1] != "x" && fields[1] != "o") {
			return fmt.Errorf("side takes x or o")
		}
		sc.humanPlayer = gamestate.Maximizer
		if fields[1] == "o" {
			sc.humanPlayer = gamestate.Minimizer
		}
		showMessage("you play "+strings.ToUpper(fields[1])+" starting next game", sc.out())
	case "value":
		v := negamax.NegamaxValue(sc.pos, sc.onTurn, sc.engineDepth, sc.table)
		showMessage(fmt.Sprintf("value for X: %d (%v to move, depth %d)", v, sc.onTurn, sc.engineDepth), sc.out())
	case "depth":
		if len(fields) < 2 {
			return fmt.Errorf("depth takes a number")
		}
		d, err := strconv.Atoi(fields[1])
		if err != nil || d < 1 {
			return fmt.Errorf("depth takes a positive number")
		}
		sc.engineDepth = d
	case "stats":
		showMessage(fmt.Sprintf("table entries: %d", sc.table.Len()), sc.out())
	case "clean":
		sc.table.Clean()
		showMessage(fmt.Sprintf("table entries after clean: %d", sc.table.Len()), sc.out())
	case "selfplay":
		return sc.handleSelfPlay(fields)
	case "save":
		return sc.handleSave()
	case "load":
		return sc.handleLoad()
	case "help":
		usage(sc.out())
	case "exit", "quit":
		sc.l.Close()
		return io.EOF
	default:
		return fmt.Errorf("unknown command %q; try help", fields[0])
	}
	return nil
}

func (sc *ShellController) Loop(sig chan os.Signal) {

	defer sc.l.Close()

	for {

		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)

		err = sc.commandSwitch(line)
		if err == io.EOF {
			sig <- syscall.SIGINT
			break
		} else if err != nil {
			showMessage("error: "+err.Error(), sc.out())
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}
