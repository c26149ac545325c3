package campaign

import (
	"fmt"
	"sort"
)

// AreaType classifies an area on the campaign map.
type AreaType string

const (
	Plain          AreaType = "plain"
	Fortified      AreaType = "fortified"        // entering costs 1 ammo unless already held
	MainSupplyBase AreaType = "main_supply_base" // target of base resupply, immune to encirclement
	VictoryCity    AreaType = "victory"
)

// RouteKind distinguishes roads from railways.
type RouteKind string

const (
	Road RouteKind = "road"
	Rail RouteKind = "rail"
)

// Area is a single map region. Everything here is fixed for the campaign;
// what changes during play lives in AreaState.
type Area struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	X            int      `json:"x" yaml:"x"`
	Y            int      `json:"y" yaml:"y"`
	Type         AreaType `json:"type" yaml:"type"`
	Rail         bool     `json:"rail" yaml:"rail"`                                     // rail-capable at start
	Owner        Faction  `json:"owner,omitempty" yaml:"owner,omitempty"`               // starting area of this faction
	Victory      bool     `json:"victory,omitempty" yaml:"victory,omitempty"`           // capturing it wins
	Medal        bool     `json:"medal,omitempty" yaml:"medal,omitempty"`               // first capture grants a medal
	Restricted   Faction  `json:"restricted,omitempty" yaml:"restricted,omitempty"`     // only this faction may enter
	SovietMarker bool     `json:"sovietMarker,omitempty" yaml:"soviet_marker,omitempty"` // enemy marker at start
	Stock        Supplies `json:"stock" yaml:"stock"`
}

// IsStarting reports whether the area is seeded with a faction's control.
func (a *Area) IsStarting() bool {
	return a.Owner != Neutral
}

// Route is an undirected connection between two areas.
type Route struct {
	ID   int       `json:"id" yaml:"-"`
	A    string    `json:"a" yaml:"a"`
	B    string    `json:"b" yaml:"b"`
	Kind RouteKind `json:"kind" yaml:"kind"`
}

// Other returns the endpoint opposite id.
func (r Route) Other(id string) string {
	if r.A == id {
		return r.B
	}
	return r.A
}

// Connects reports whether the route joins a and b in either direction.
func (r Route) Connects(a, b string) bool {
	return (r.A == a && r.B == b) || (r.A == b && r.B == a)
}

// ArmySpec describes an army as it stands at the start of a campaign.
type ArmySpec struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Faction  Faction   `json:"faction" yaml:"faction"`
	Class    ArmyClass `json:"class" yaml:"class"`
	Location string    `json:"location" yaml:"location"`
	Carry    Supplies  `json:"carry" yaml:"carry"`
}

// Map holds the area graph. It is read-only once built and safe to share
// between goroutines.
type Map struct {
	Areas  map[string]*Area
	Routes []Route
	Armies []ArmySpec

	ids       []string
	adjacency map[string][]int // area ID -> route IDs touching it
}

// NewMap validates areas, routes and armies and builds the adjacency index.
// Route IDs are reassigned densely in the order given.
func NewMap(areas []*Area, routes []Route, armies []ArmySpec) (*Map, error) {
	m := &Map{
		Areas:     make(map[string]*Area, len(areas)),
		adjacency: make(map[string][]int, len(areas)),
	}
	for _, a := range areas {
		if a.ID == "" {
			return nil, fmt.Errorf("area without id")
		}
		if _, dup := m.Areas[a.ID]; dup {
			return nil, fmt.Errorf("duplicate area %q", a.ID)
		}
		switch a.Type {
		case Plain, Fortified, MainSupplyBase, VictoryCity:
		case "":
			a.Type = Plain
		default:
			return nil, fmt.Errorf("area %q: unknown type %q", a.ID, a.Type)
		}
		if a.Type == VictoryCity {
			a.Victory = true
		}
		if a.Stock.Negative() {
			return nil, fmt.Errorf("area %q: negative stock", a.ID)
		}
		if a.Owner != Neutral && a.SovietMarker {
			return nil, fmt.Errorf("area %q: starting area cannot hold a marker", a.ID)
		}
		if a.Name == "" {
			a.Name = a.ID
		}
		m.Areas[a.ID] = a
		m.ids = append(m.ids, a.ID)
	}
	sort.Strings(m.ids)

	seen := make(map[[2]string]bool, len(routes))
	for i, r := range routes {
		if m.Areas[r.A] == nil || m.Areas[r.B] == nil {
			return nil, fmt.Errorf("route %s-%s: unknown endpoint", r.A, r.B)
		}
		if r.A == r.B {
			return nil, fmt.Errorf("route %s-%s: self-loop", r.A, r.B)
		}
		switch r.Kind {
		case Road, Rail:
		case "":
			r.Kind = Road
		default:
			return nil, fmt.Errorf("route %s-%s: unknown kind %q", r.A, r.B, r.Kind)
		}
		key := [2]string{min(r.A, r.B), max(r.A, r.B)}
		if seen[key] {
			return nil, fmt.Errorf("route %s-%s: duplicate", r.A, r.B)
		}
		seen[key] = true
		r.ID = i
		m.Routes = append(m.Routes, r)
		m.adjacency[r.A] = append(m.adjacency[r.A], i)
		m.adjacency[r.B] = append(m.adjacency[r.B], i)
	}

	armyIDs := make(map[string]bool, len(armies))
	for _, spec := range armies {
		if armyIDs[spec.ID] {
			return nil, fmt.Errorf("duplicate army %q", spec.ID)
		}
		armyIDs[spec.ID] = true
		if m.Areas[spec.Location] == nil {
			return nil, fmt.Errorf("army %q: unknown location %q", spec.ID, spec.Location)
		}
		if _, err := ParseFaction(string(spec.Faction)); err != nil {
			return nil, fmt.Errorf("army %q: %w", spec.ID, err)
		}
		if spec.Class != Armored && spec.Class != Field {
			return nil, fmt.Errorf("army %q: unknown class %q", spec.ID, spec.Class)
		}
		if spec.Carry.Negative() || spec.Carry.Total() > ArmySlotCap {
			return nil, fmt.Errorf("army %q: carry must be 0..%d tokens", spec.ID, ArmySlotCap)
		}
		m.Armies = append(m.Armies, spec)
	}
	return m, nil
}

// AreaIDs returns all area IDs in sorted order.
func (m *Map) AreaIDs() []string {
	return m.ids
}

// Area returns the area with the given ID, or nil.
func (m *Map) Area(id string) *Area {
	return m.Areas[id]
}

// Route returns the route with the given ID.
func (m *Map) Route(id int) (Route, bool) {
	if id < 0 || id >= len(m.Routes) {
		return Route{}, false
	}
	return m.Routes[id], true
}

// RoutesOf returns every route touching the area.
func (m *Map) RoutesOf(id string) []Route {
	out := make([]Route, 0, len(m.adjacency[id]))
	for _, ri := range m.adjacency[id] {
		out = append(out, m.Routes[ri])
	}
	return out
}

// RoutesBetween returns the routes joining a and b.
func (m *Map) RoutesBetween(a, b string) []Route {
	var out []Route
	for _, ri := range m.adjacency[a] {
		if m.Routes[ri].Connects(a, b) {
			out = append(out, m.Routes[ri])
		}
	}
	return out
}

// Adjacent reports whether a route joins a and b.
func (m *Map) Adjacent(a, b string) bool {
	for _, ri := range m.adjacency[a] {
		if m.Routes[ri].Connects(a, b) {
			return true
		}
	}
	return false
}

// Neighbors returns the IDs of all areas one route away, sorted.
func (m *Map) Neighbors(id string) []string {
	out := make([]string, 0, len(m.adjacency[id]))
	for _, ri := range m.adjacency[id] {
		out = append(out, m.Routes[ri].Other(id))
	}
	sort.Strings(out)
	return out
}
