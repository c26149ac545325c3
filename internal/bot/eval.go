package bot

import (
	"sync"

	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

// distCache maps *campaign.Map to its victory distances. Maps are read-only
// once built, so one computation per map serves every game.
var distCache sync.Map

// distancesToVictory returns, for every area, the number of routes to the
// nearest victory city. Unreachable areas are absent.
func distancesToVictory(m *campaign.Map) map[string]int {
	if v, ok := distCache.Load(m); ok {
		return v.(map[string]int)
	}
	dist := make(map[string]int, len(m.Areas))
	var queue []string
	for _, id := range m.AreaIDs() {
		if m.Area(id).Victory {
			dist[id] = 0
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, nb := range m.Neighbors(id) {
			if _, seen := dist[nb]; !seen {
				dist[nb] = dist[id] + 1
				queue = append(queue, nb)
			}
		}
	}
	v, _ := distCache.LoadOrStore(m, dist)
	return v.(map[string]int)
}

// weights tune the position score.
type weights struct {
	Medal        float64
	Area         float64
	Marker       float64
	Carry        float64
	Fuel         float64 // extra per fuel carried by an armored army
	Halted       float64
	Distance     float64 // per route between an army and the nearest victory city
	Stock        float64
	Rail         float64
	UnusedAction float64 // charged when ending a turn with actions left
}

var defaultWeights = weights{
	Medal: 400, Area: 40, Marker: 25, Carry: 3, Fuel: 4, Halted: 60,
	Distance: 12, Stock: 0.5, Rail: 6, UnusedAction: 30,
}

var cautiousWeights = weights{
	Medal: 400, Area: 40, Marker: 35, Carry: 8, Fuel: 8, Halted: 120,
	Distance: 5, Stock: 1, Rail: 6, UnusedAction: 20,
}

const decisive = 1e6

// score rates a position from the player's side.
func (w weights) score(m *campaign.Map, dist map[string]int, gs *campaign.GameState) float64 {
	switch gs.Phase {
	case campaign.PhaseWon:
		return decisive + float64(gs.Ledger.Medals)*w.Medal
	case campaign.PhaseLost:
		return -decisive
	}

	s := float64(gs.Ledger.Medals) * w.Medal
	s += float64(gs.ControlledCount(gs.Faction)) * w.Area
	s -= float64(gs.MarkerCount()) * w.Marker
	s += float64(gs.Ledger.Stock.Total()) * w.Stock

	for _, a := range gs.Armies {
		if a.Faction != gs.Faction {
			continue
		}
		s += float64(a.Carry.Total()) * w.Carry
		if a.Class == campaign.Armored {
			s += float64(a.Carry.Fuel) * w.Fuel
		}
		if a.Halted {
			s -= w.Halted
		}
		if d, ok := dist[a.Location]; ok {
			s -= float64(d) * w.Distance
		}
	}
	for id, st := range gs.Areas {
		if st.Rail && !m.Area(id).Rail {
			s += w.Rail
		}
	}
	return s
}
