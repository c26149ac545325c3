package campaign

import "fmt"

// ArmySlotCap is the number of supply tokens an army can carry in total.
const ArmySlotCap = 6

// Resource is one of the three consumable supply classes.
type Resource string

const (
	Fuel Resource = "fuel"
	Ammo Resource = "ammo"
	Food Resource = "food"
)

// AllResources returns the supply classes in display order.
func AllResources() []Resource {
	return []Resource{Fuel, Ammo, Food}
}

// ParseResource converts a string to a Resource.
func ParseResource(s string) (Resource, error) {
	switch Resource(s) {
	case Fuel, Ammo, Food:
		return Resource(s), nil
	}
	return "", fmt.Errorf("unknown resource %q", s)
}

// Supplies is a bundle of fuel, ammunition and food tokens. It is used for
// army carry, area stock, the global stockpile and card costs alike.
type Supplies struct {
	Fuel int `json:"fuel" yaml:"fuel"`
	Ammo int `json:"ammo" yaml:"ammo"`
	Food int `json:"food" yaml:"food"`
}

// Of returns a bundle holding n units of a single resource.
func Of(r Resource, n int) Supplies {
	return Supplies{}.With(r, n)
}

// Get returns the amount of one resource.
func (s Supplies) Get(r Resource) int {
	switch r {
	case Fuel:
		return s.Fuel
	case Ammo:
		return s.Ammo
	case Food:
		return s.Food
	}
	return 0
}

// With returns a copy of s with resource r set to n.
func (s Supplies) With(r Resource, n int) Supplies {
	switch r {
	case Fuel:
		s.Fuel = n
	case Ammo:
		s.Ammo = n
	case Food:
		s.Food = n
	}
	return s
}

// Total returns the number of tokens in the bundle.
func (s Supplies) Total() int {
	return s.Fuel + s.Ammo + s.Food
}

// IsZero reports whether the bundle is empty.
func (s Supplies) IsZero() bool {
	return s == Supplies{}
}

// Negative reports whether any component is below zero.
func (s Supplies) Negative() bool {
	return s.Fuel < 0 || s.Ammo < 0 || s.Food < 0
}

func (s Supplies) Add(o Supplies) Supplies {
	return Supplies{Fuel: s.Fuel + o.Fuel, Ammo: s.Ammo + o.Ammo, Food: s.Food + o.Food}
}

func (s Supplies) Sub(o Supplies) Supplies {
	return Supplies{Fuel: s.Fuel - o.Fuel, Ammo: s.Ammo - o.Ammo, Food: s.Food - o.Food}
}

// Covers reports whether s holds at least o of every resource.
func (s Supplies) Covers(o Supplies) bool {
	return s.Fuel >= o.Fuel && s.Ammo >= o.Ammo && s.Food >= o.Food
}

// Min returns the per-resource minimum of s and o: what s can actually pay
// towards a cost of o.
func (s Supplies) Min(o Supplies) Supplies {
	return Supplies{Fuel: min(s.Fuel, o.Fuel), Ammo: min(s.Ammo, o.Ammo), Food: min(s.Food, o.Food)}
}

// Fit trims o so that adding it to s stays within capacity, filling fuel,
// then ammo, then food.
func (s Supplies) Fit(o Supplies, capacity int) Supplies {
	room := capacity - s.Total()
	var out Supplies
	for _, r := range AllResources() {
		n := min(o.Get(r), max(room, 0))
		out = out.With(r, n)
		room -= n
	}
	return out
}

func (s Supplies) String() string {
	return fmt.Sprintf("%d fuel, %d ammo, %d food", s.Fuel, s.Ammo, s.Food)
}
