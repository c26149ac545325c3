package campaign

// Encircle captures every marked area that is cut off from all victory
// areas. A pocket is cut off when a search through neutral or marked ground
// reaches no victory area; any controlled area blocks the search.
//
// Victory areas, main supply bases and partisan markers are never
// encircled. Captures found in one pass are applied together, then the
// analysis repeats until nothing more falls. Returns the captured area IDs
// in capture order.
func Encircle(gs *GameState, m *Map, f Faction) []string {
	var captured []string
	for {
		var pass []string
		for _, id := range m.AreaIDs() {
			st := gs.Areas[id]
			a := m.Areas[id]
			if !st.Marker || st.Partisan || a.Victory || a.Type == MainSupplyBase {
				continue
			}
			if !reachesVictory(gs, m, id) {
				pass = append(pass, id)
			}
		}
		if len(pass) == 0 {
			return captured
		}
		for _, id := range pass {
			gs.capture(m, id, f)
		}
		captured = append(captured, pass...)
	}
}

func reachesVictory(gs *GameState, m *Map, start string) bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, nb := range m.Neighbors(id) {
			if seen[nb] {
				continue
			}
			seen[nb] = true
			st := gs.Areas[nb]
			if st.Controller != Neutral && !st.Marker {
				continue
			}
			if m.Areas[nb].Victory {
				return true
			}
			queue = append(queue, nb)
		}
	}
	return false
}
