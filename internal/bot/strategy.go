package bot

import (
	"errors"
	"fmt"

	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

// ErrStuck means no candidate operation was accepted by the engine.
var ErrStuck = errors.New("bot: no legal operation")

// Strategy chooses the next operation for a campaign. It returns the
// command together with the state the engine produced for it.
type Strategy interface {
	Name() string
	Step(e *campaign.Engine, gs *campaign.GameState, dice *Dice) (campaign.Command, *campaign.GameState, error)
}

// StrategyFor returns the strategy registered under name.
func StrategyFor(name string) (Strategy, error) {
	switch name {
	case "random":
		return RandomStrategy{}, nil
	case "greedy", "":
		return GreedyStrategy{}, nil
	case "cautious":
		return GreedyStrategy{Cautious: true}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// Names lists the registered strategies.
func Names() []string {
	return []string{"random", "greedy", "cautious"}
}

// --- RandomStrategy ---

// RandomStrategy plays the first accepted candidate in a random order. End
// turn is only tried once nothing else is accepted, so games still advance.
type RandomStrategy struct{}

func (RandomStrategy) Name() string { return "random" }

func (RandomStrategy) Step(e *campaign.Engine, gs *campaign.GameState, dice *Dice) (campaign.Command, *campaign.GameState, error) {
	cands := Candidates(e, gs)
	var last []campaign.Command
	for _, i := range dice.Perm(len(cands)) {
		c := cands[i]
		if c.Op == campaign.OpEndTurn {
			last = append(last, c)
			continue
		}
		if next, err := e.Execute(gs, c); err == nil {
			return c, next, nil
		}
	}
	for _, c := range last {
		if next, err := e.Execute(gs, c); err == nil {
			return c, next, nil
		}
	}
	return campaign.Command{}, nil, ErrStuck
}

// --- GreedyStrategy ---

// GreedyStrategy evaluates every accepted candidate one operation deep and
// keeps the best scoring result. Cautious raises the weight of carried
// supplies and lowers the pull towards the victory cities.
type GreedyStrategy struct {
	Cautious bool
}

func (g GreedyStrategy) Name() string {
	if g.Cautious {
		return "cautious"
	}
	return "greedy"
}

func (g GreedyStrategy) Step(e *campaign.Engine, gs *campaign.GameState, dice *Dice) (campaign.Command, *campaign.GameState, error) {
	w := defaultWeights
	if g.Cautious {
		w = cautiousWeights
	}
	dist := distancesToVictory(e.Map())

	var (
		best      campaign.Command
		bestState *campaign.GameState
		bestScore float64
	)
	for _, c := range Candidates(e, gs) {
		next, err := e.Execute(gs, c)
		if err != nil {
			continue
		}
		s := w.score(e.Map(), dist, next)
		if c.Op == campaign.OpEndTurn {
			s -= w.UnusedAction * float64(gs.Solitaire.ActionsLeft)
		}
		// Jitter only separates ties.
		s += dice.Float64() * 0.01
		if bestState == nil || s > bestScore {
			best, bestState, bestScore = c, next, s
		}
	}
	if bestState == nil {
		return campaign.Command{}, nil, ErrStuck
	}
	return best, bestState, nil
}
