package campaign

import "fmt"

// Faction is one of the three German army groups. The empty faction marks
// an area nobody controls.
type Faction string

const (
	Gray    Faction = "gray"  // Army Group North
	White   Faction = "white" // Army Group Centre
	Brown   Faction = "brown" // Army Group South
	Neutral Faction = ""
)

// AllFactions returns the playable army groups in map order.
func AllFactions() []Faction {
	return []Faction{Gray, White, Brown}
}

// ParseFaction converts a string to a Faction.
func ParseFaction(s string) (Faction, error) {
	for _, f := range AllFactions() {
		if string(f) == s {
			return f, nil
		}
	}
	return Neutral, fmt.Errorf("unknown faction %q", s)
}

// ArmyClass separates armies that burn fuel and may drive several legs per
// action from armies that march once.
type ArmyClass string

const (
	Armored ArmyClass = "armored"
	Field   ArmyClass = "field"
)

// Mode selects the opponent's marker supply and the deck exhaustion policy.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeHard     Mode = "hard"
	ModeTest     Mode = "test" // decks reshuffle instead of running dry
)

// ParseMode converts a string to a Mode. An empty string selects ModeStandard.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeStandard, nil
	case ModeStandard, ModeHard, ModeTest:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

func (m Mode) markerPool() int {
	if m == ModeHard {
		return 8
	}
	return 12
}

func (m Mode) startingStock() Supplies {
	if m == ModeHard {
		return Supplies{Fuel: 15, Ammo: 15, Food: 15}
	}
	return Supplies{Fuel: 20, Ammo: 20, Food: 20}
}

func (m Mode) reshuffles() bool {
	return m == ModeTest
}
