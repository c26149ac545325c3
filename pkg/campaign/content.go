package campaign

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed content/*.yaml
var contentFS embed.FS

const (
	mapFile   = "map.yaml"
	cardsFile = "cards.yaml"
)

type mapDocument struct {
	Areas  []*Area    `yaml:"areas"`
	Routes []Route    `yaml:"routes"`
	Armies []ArmySpec `yaml:"armies"`
}

type cardDocument struct {
	ID            string      `yaml:"id"`
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description"`
	Kind          CardKind    `yaml:"kind"`
	Era           int         `yaml:"era"`
	Copies        *int        `yaml:"copies"`
	Retain        bool        `yaml:"retain"`
	Cost          Supplies    `yaml:"cost"`
	Effect        EventEffect `yaml:"effect"`
	Delta         Supplies    `yaml:"delta"`
	Toll          Supplies    `yaml:"toll"`
	CounterAttack bool        `yaml:"counter_attack"`
}

type cardsDocument struct {
	Decks map[DeckName][]cardDocument `yaml:"decks"`
}

// LoadMap reads a topology document. JSON documents are accepted as well,
// being valid YAML.
func LoadMap(r io.Reader) (*Map, error) {
	var doc mapDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding map: %w", err)
	}
	return NewMap(doc.Areas, doc.Routes, doc.Armies)
}

// LoadCards reads a card document listing the three decks.
func LoadCards(r io.Reader) (*CardSet, error) {
	var doc cardsDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding cards: %w", err)
	}
	var cards []*Card
	copies := make(map[string]int)
	for _, name := range AllDecks() {
		for _, d := range doc.Decks[name] {
			c := &Card{
				ID:          d.ID,
				Name:        d.Name,
				Description: d.Description,
				Kind:        d.Kind,
				Deck:        name,
				Era:         d.Era,
				Retain:      d.Retain,
			}
			switch d.Kind {
			case KindCombat:
				c.Combat = &CombatSpec{Cost: d.Cost}
			case KindEvent:
				c.Event = &EventSpec{Effect: d.Effect, Delta: d.Delta, Toll: d.Toll}
			case KindFront:
				c.Front = &FrontSpec{CounterAttack: d.CounterAttack}
			}
			if c.Name == "" {
				c.Name = c.ID
			}
			if d.Copies != nil {
				copies[d.ID] = *d.Copies
			}
			cards = append(cards, c)
		}
	}
	for name := range doc.Decks {
		if name != DeckEncounter && name != DeckPursuit && name != DeckFront {
			return nil, fmt.Errorf("unknown deck %q", name)
		}
	}
	return NewCardSet(cards, copies)
}

// LoadContentDir reads map.yaml and cards.yaml from dir.
func LoadContentDir(dir string) (*Map, *CardSet, error) {
	mf, err := os.Open(filepath.Join(dir, mapFile))
	if err != nil {
		return nil, nil, err
	}
	defer mf.Close()
	m, err := LoadMap(mf)
	if err != nil {
		return nil, nil, err
	}
	cf, err := os.Open(filepath.Join(dir, cardsFile))
	if err != nil {
		return nil, nil, err
	}
	defer cf.Close()
	cards, err := LoadCards(cf)
	if err != nil {
		return nil, nil, err
	}
	return m, cards, nil
}

var (
	standardMap      *Map
	standardMapOnce  sync.Once
	standardCards    *CardSet
	standardCardOnce sync.Once
)

// StandardMap returns the embedded 1941 campaign map. It is built once and
// shared.
func StandardMap() *Map {
	standardMapOnce.Do(func() {
		f, err := contentFS.Open("content/" + mapFile)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		if standardMap, err = LoadMap(f); err != nil {
			panic(fmt.Sprintf("embedded map: %v", err))
		}
	})
	return standardMap
}

// StandardCards returns the embedded card catalogue.
func StandardCards() *CardSet {
	standardCardOnce.Do(func() {
		f, err := contentFS.Open("content/" + cardsFile)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		if standardCards, err = LoadCards(f); err != nil {
			panic(fmt.Sprintf("embedded cards: %v", err))
		}
	})
	return standardCards
}
