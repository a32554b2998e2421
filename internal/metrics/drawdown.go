package metrics

import (
	"sort"

	"github.com/wonny/fundquant/internal/contracts"
)

// drawdowns walks the equity curve compounded from 1.0 and returns the
// maximum drawdown and the second deepest episode.
//
// An episode opens when equity falls below its running peak and closes when
// equity gets back to that peak; episodes never overlap. An episode still
// open at the end of the window counts.
func drawdowns(r []float64) (maxDD, secondDD contracts.NullFloat) {
	if len(r) == 0 {
		return contracts.Null, contracts.Null
	}

	equity, peak := 1.0, 1.0
	trough := 0.0
	inEpisode := false
	var episodes []float64

	for _, v := range r {
		equity *= 1 + v
		if equity >= peak {
			if inEpisode {
				episodes = append(episodes, trough)
				inEpisode = false
			}
			peak = equity
			continue
		}

		dd := equity/peak - 1
		if !inEpisode {
			inEpisode = true
			trough = dd
		} else if dd < trough {
			trough = dd
		}
	}
	if inEpisode {
		episodes = append(episodes, trough)
	}

	if len(episodes) == 0 {
		return contracts.Some(0), contracts.Null
	}

	sort.Float64s(episodes)
	maxDD = contracts.Some(episodes[0])
	if len(episodes) < 2 {
		return maxDD, contracts.Null
	}
	return maxDD, contracts.Some(episodes[1])
}
