package bot

import "github.com/freeeve/race-to-moscow/pkg/campaign"

// Candidates lists the operations worth trying from gs. The list is a
// superset: the engine still decides which are legal. Vehicle placement is
// left out because bots feed armies through base stock only. Unloading is
// left out so free transfers cannot cycle.
func Candidates(e *campaign.Engine, gs *campaign.GameState) []campaign.Command {
	m := e.Map()
	switch gs.Phase {
	case campaign.PhaseWon, campaign.PhaseLost:
		return nil

	case campaign.PhaseEncounterPending:
		var out []campaign.Command
		for _, d := range e.Decisions(gs) {
			out = append(out, campaign.Command{Op: campaign.OpResolve, Decision: d})
		}
		return out

	case campaign.PhaseRailheadOffer:
		out := []campaign.Command{{Op: campaign.OpDeclineRailhead}}
		for _, id := range gs.Railhead {
			out = append(out, campaign.Command{Op: campaign.OpAdvanceRailhead, Area: id})
		}
		return out

	case campaign.PhaseTransportSelecting, campaign.PhaseTransportConfiguring:
		return []campaign.Command{{Op: campaign.OpCancelTransport}, {Op: campaign.OpFinishTransport}}

	case campaign.PhaseArmoredMoving, campaign.PhaseConfirmContinue, campaign.PhaseConfirmForcedMarch:
		out := []campaign.Command{{Op: campaign.OpFinishMovement}}
		if a := gs.Army(gs.Solitaire.ActiveArmy); a != nil {
			for _, nb := range m.Neighbors(a.Location) {
				out = append(out, campaign.Command{Op: campaign.OpMove, Army: a.ID, Area: nb})
			}
		}
		return out
	}

	var out []campaign.Command
	for _, id := range gs.Ledger.Hand {
		out = append(out, campaign.Command{Op: campaign.OpPlayCard, Card: id})
	}
	for _, a := range gs.Armies {
		if a.Faction != gs.Faction {
			continue
		}
		stock := gs.Areas[a.Location].Stock
		if a.Carry.Total() < campaign.ArmySlotCap {
			for _, r := range campaign.AllResources() {
				if stock.Get(r) > 0 {
					out = append(out, campaign.Command{Op: campaign.OpLoad, Army: a.ID, Resource: r, Quantity: 1})
				}
			}
		}
		if gs.Solitaire.ActionsLeft > 0 {
			for _, nb := range m.Neighbors(a.Location) {
				out = append(out, campaign.Command{Op: campaign.OpMove, Army: a.ID, Area: nb})
			}
		}
	}
	if gs.Solitaire.ActionsLeft > 0 {
		out = append(out, campaign.Command{Op: campaign.OpTakeSupplies})
		for _, id := range m.AreaIDs() {
			if m.Area(id).Type == campaign.MainSupplyBase && gs.Friendly(id) {
				out = append(out, campaign.Command{Op: campaign.OpResupply, Area: id})
			}
		}
	}
	return append(out, campaign.Command{Op: campaign.OpEndTurn})
}
