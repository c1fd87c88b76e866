package automatic

import (
	"context"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestSelfPlayPerfectDepthDraws(t *testing.T) {
	is := is.New(t)
	games := 2
	logchan := make(chan string, games)
	runner := NewGameRunner(logchan, Settings{
		DepthX:      9,
		DepthO:      9,
		Games:       games,
		Concurrency: 2,
	})
	results, err := runner.Run(context.Background())
	is.NoErr(err)

	// Two perfect players always draw.
	is.Equal(results.Draws, games)
	is.Equal(results.XWins, 0)
	is.Equal(results.OWins, 0)

	close(logchan)
	logged := 0
	for entry := range logchan {
		logged++
		is.True(strings.Contains(entry, "winner: draw"))
		is.True(strings.Contains(entry, "plays:"))
	}
	is.Equal(logged, games)
}

func TestSelfPlayMismatchedDepths(t *testing.T) {
	is := is.New(t)
	runner := NewGameRunner(nil, Settings{
		DepthX: 5,
		DepthO: 3,
		Games:  3,
	})
	results, err := runner.Run(context.Background())
	is.NoErr(err)
	is.Equal(results.XWins+results.OWins+results.Draws, 3)
}
