package campaign

import (
	"fmt"
	"sort"
)

// CardKind tags which variant of a Card is populated.
type CardKind string

const (
	KindCombat CardKind = "combat"
	KindEvent  CardKind = "event"
	KindFront  CardKind = "front"
)

// EventEffect identifies what an event card does.
type EventEffect string

const (
	EffectSupplies  EventEffect = "supplies"  // adds Delta to the army, capped by slots
	EffectToll      EventEffect = "toll"      // pay Toll or retreat
	EffectHalt      EventEffect = "halt"      // movement ends here, or retreat
	EffectPartisans EventEffect = "partisans" // partisan marker on a neutral neighbour
	EffectAuxiliary EventEffect = "auxiliary" // retained: one extra action per turn
	EffectCache     EventEffect = "cache"     // retained: Delta into the global stock
	EffectQuiet     EventEffect = "quiet"
)

// DeckName identifies one of the three decks.
type DeckName string

const (
	DeckEncounter DeckName = "encounter" // drawn entering a marked area
	DeckPursuit   DeckName = "pursuit"   // drawn after capturing an unmarked area
	DeckFront     DeckName = "front"     // drawn by the opponent at turn end
)

// AllDecks returns the deck names in display order.
func AllDecks() []DeckName {
	return []DeckName{DeckEncounter, DeckPursuit, DeckFront}
}

type CombatSpec struct {
	Cost Supplies `json:"cost"`
}

type EventSpec struct {
	Effect EventEffect `json:"effect"`
	Delta  Supplies    `json:"delta"`
	Toll   Supplies    `json:"toll"`
}

type FrontSpec struct {
	CounterAttack bool `json:"counterAttack"`
}

// Card is a tagged union: exactly one of Combat, Event or Front is set,
// matching Kind.
type Card struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Kind        CardKind    `json:"kind"`
	Deck        DeckName    `json:"deck"`
	Era         int         `json:"era"`
	Retain      bool        `json:"retain,omitempty"`
	Combat      *CombatSpec `json:"combat,omitempty"`
	Event       *EventSpec  `json:"event,omitempty"`
	Front       *FrontSpec  `json:"front,omitempty"`
}

func (c *Card) validate() error {
	set := 0
	for _, ok := range []bool{c.Combat != nil, c.Event != nil, c.Front != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("card %q: exactly one variant must be set", c.ID)
	}
	switch c.Kind {
	case KindCombat:
		if c.Combat == nil {
			return fmt.Errorf("card %q: combat card without cost", c.ID)
		}
		if c.Combat.Cost.Negative() {
			return fmt.Errorf("card %q: negative cost", c.ID)
		}
	case KindEvent:
		if c.Event == nil {
			return fmt.Errorf("card %q: event card without effect", c.ID)
		}
		if c.Event.Delta.Negative() {
			return fmt.Errorf("card %q: negative delta", c.ID)
		}
		if c.Event.Toll.Negative() {
			return fmt.Errorf("card %q: negative toll", c.ID)
		}
		switch c.Event.Effect {
		case EffectAuxiliary, EffectCache:
			if !c.Retain {
				return fmt.Errorf("card %q: %s cards must be retained", c.ID, c.Event.Effect)
			}
		case EffectSupplies, EffectToll, EffectHalt, EffectPartisans, EffectQuiet:
			if c.Retain {
				return fmt.Errorf("card %q: %s cards resolve immediately", c.ID, c.Event.Effect)
			}
		default:
			return fmt.Errorf("card %q: unknown effect %q", c.ID, c.Event.Effect)
		}
	case KindFront:
		if c.Front == nil {
			return fmt.Errorf("card %q: front card without front data", c.ID)
		}
	default:
		return fmt.Errorf("card %q: unknown kind %q", c.ID, c.Kind)
	}
	return nil
}

// CardSet is the catalogue of every card and the composition of each deck.
type CardSet struct {
	cards map[string]*Card
	decks map[DeckName][]string // card IDs, one entry per copy
}

// NewCardSet builds a catalogue. copies gives how many instances of a card
// go into its deck; a missing entry means one.
func NewCardSet(cards []*Card, copies map[string]int) (*CardSet, error) {
	cs := &CardSet{
		cards: make(map[string]*Card, len(cards)),
		decks: make(map[DeckName][]string, 3),
	}
	for _, c := range cards {
		if c.ID == "" {
			return nil, fmt.Errorf("card without id")
		}
		if _, dup := cs.cards[c.ID]; dup {
			return nil, fmt.Errorf("duplicate card %q", c.ID)
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		switch c.Deck {
		case DeckEncounter, DeckPursuit:
			if c.Kind == KindFront {
				return nil, fmt.Errorf("card %q: front card in %s deck", c.ID, c.Deck)
			}
		case DeckFront:
			if c.Kind != KindFront {
				return nil, fmt.Errorf("card %q: only front cards belong in the front deck", c.ID)
			}
		default:
			return nil, fmt.Errorf("card %q: unknown deck %q", c.ID, c.Deck)
		}
		if c.Era < 1 {
			c.Era = 1
		}
		cs.cards[c.ID] = c
		n, ok := copies[c.ID]
		if !ok {
			n = 1
		}
		for range n {
			cs.decks[c.Deck] = append(cs.decks[c.Deck], c.ID)
		}
	}
	for _, d := range AllDecks() {
		if len(cs.decks[d]) == 0 {
			return nil, fmt.Errorf("%s deck is empty", d)
		}
	}
	return cs, nil
}

// Card returns the card with the given ID, or nil.
func (cs *CardSet) Card(id string) *Card {
	return cs.cards[id]
}

// All returns every distinct card ordered by ID.
func (cs *CardSet) All() []*Card {
	out := make([]*Card, 0, len(cs.cards))
	for _, c := range cs.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeckSize returns the number of card instances in a full deck.
func (cs *CardSet) DeckSize(name DeckName) int {
	return len(cs.decks[name])
}

// build shuffles a fresh deck. The encounter deck is shuffled era by era with
// the earliest era on top, so the hardest resistance appears late.
func (cs *CardSet) build(name DeckName, rng Source) Deck {
	ids := append([]string(nil), cs.decks[name]...)
	if name != DeckEncounter {
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		return Deck{Cards: ids}
	}
	byEra := make(map[int][]string)
	for _, id := range ids {
		era := cs.cards[id].Era
		byEra[era] = append(byEra[era], id)
	}
	eras := make([]int, 0, len(byEra))
	for era := range byEra {
		eras = append(eras, era)
	}
	sort.Ints(eras)
	out := make([]string, 0, len(ids))
	for _, era := range eras {
		stage := byEra[era]
		rng.Shuffle(len(stage), func(i, j int) { stage[i], stage[j] = stage[j], stage[i] })
		out = append(out, stage...)
	}
	return Deck{Cards: out}
}

// Deck is an ordered draw pile plus its discards.
type Deck struct {
	Cards   []string `json:"cards"`
	Discard []string `json:"discard"`
}

func (d Deck) clone() Deck {
	return Deck{
		Cards:   append([]string(nil), d.Cards...),
		Discard: append([]string(nil), d.Discard...),
	}
}

func (d *Deck) pop() (string, bool) {
	if len(d.Cards) == 0 {
		return "", false
	}
	id := d.Cards[0]
	d.Cards = d.Cards[1:]
	return id, true
}

// reshuffle moves every discard back into the draw pile.
func (d *Deck) reshuffle(rng Source) {
	d.Cards = append(d.Cards, d.Discard...)
	d.Discard = nil
	rng.Shuffle(len(d.Cards), func(i, j int) { d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i] })
}

// Decks groups the three decks of a campaign.
type Decks struct {
	Encounter Deck `json:"encounter"`
	Pursuit   Deck `json:"pursuit"`
	Front     Deck `json:"front"`
}

func (d *Decks) get(name DeckName) *Deck {
	switch name {
	case DeckEncounter:
		return &d.Encounter
	case DeckPursuit:
		return &d.Pursuit
	case DeckFront:
		return &d.Front
	}
	return nil
}

// DeckView is a read-only look at a deck.
type DeckView struct {
	Name      DeckName `json:"name"`
	Remaining int      `json:"remaining"`
	Discarded int      `json:"discarded"`
	Top       *Card    `json:"top,omitempty"`
}
